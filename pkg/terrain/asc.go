package terrain

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ascNoData replaces a positive NODATA_value so the grid's negative sentinel still applies.
const ascNoData = -9999.0

// maxASCCells bounds the grid a header may declare (2 GiB of elevations).
const maxASCCells = 1 << 28

type ascHeader struct {
	ncols, nrows int
	xll, yll     float64
	center       bool
	cellsize     float64
	nodata       float64
	hasNoData    bool
}

// LoadASC reads an ESRI ASCII grid file.
func LoadASC(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ASCII grid: %w", err)
	}
	defer f.Close()

	g, err := ReadASC(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ReadASC parses an ESRI ASCII grid. Rows are stored north to south, so the
// latitude axis is descending. Longitudes are the column centers (x) and
// latitudes the row centers (y).
func ReadASC(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	h, first, err := readASCHeader(sc)
	if err != nil {
		return nil, err
	}

	// Rows grow with the data so a lying header fails on short data, not in make.
	var elev [][]float64
	pending := first
	for i := 0; i < h.nrows; i++ {
		row := make([]float64, 0, min(h.ncols, 4096))
		for j := 0; j < h.ncols; j++ {
			tok := pending
			pending = ""
			if tok == "" {
				if !sc.Scan() {
					if err := sc.Err(); err != nil {
						return nil, err
					}
					return nil, fmt.Errorf("%w: data ends at row %d col %d, want %dx%d", ErrShapeMismatch, i, j, h.nrows, h.ncols)
				}
				tok = sc.Text()
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value at row %d col %d: %w", i, j, err)
			}
			if h.hasNoData && v == h.nodata && v >= 0 {
				v = ascNoData
			}
			row = append(row, v)
		}
		elev = append(elev, row)
	}
	if sc.Scan() {
		return nil, fmt.Errorf("%w: trailing data after %dx%d values", ErrShapeMismatch, h.nrows, h.ncols)
	}

	offset := h.cellsize / 2
	if h.center {
		offset = 0
	}
	lats := make([]float64, h.nrows)
	for i := range lats {
		lats[i] = h.yll + offset + float64(h.nrows-1-i)*h.cellsize
	}
	lons := make([]float64, h.ncols)
	for j := range lons {
		lons[j] = h.xll + offset + float64(j)*h.cellsize
	}

	return NewGrid(lats, lons, elev)
}

// readASCHeader consumes "key value" pairs until the first numeric token,
// which is returned as the first data value.
func readASCHeader(sc *bufio.Scanner) (ascHeader, string, error) {
	var h ascHeader
	seen := map[string]bool{}

	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			if err := h.check(seen); err != nil {
				return h, "", err
			}
			return h, key, nil
		}
		if !sc.Scan() {
			return h, "", fmt.Errorf("missing value for header %q", key)
		}
		val := sc.Text()
		num, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return h, "", fmt.Errorf("invalid header %s %q: %w", key, val, err)
		}
		seen[key] = true

		switch key {
		case "ncols", "nrows":
			if num != math.Trunc(num) || num < 0 || num > maxASCCells {
				return h, "", fmt.Errorf("%w: header %s %s", ErrShapeMismatch, key, val)
			}
			if key == "ncols" {
				h.ncols = int(num)
			} else {
				h.nrows = int(num)
			}
		case "xllcorner":
			h.xll = num
		case "xllcenter":
			h.xll, h.center = num, true
		case "yllcorner":
			h.yll = num
		case "yllcenter":
			h.yll, h.center = num, true
		case "cellsize":
			h.cellsize = num
		case "nodata_value":
			h.nodata, h.hasNoData = num, true
		default:
			return h, "", fmt.Errorf("unknown header %q", key)
		}
	}
	if err := sc.Err(); err != nil {
		return h, "", err
	}
	return h, "", fmt.Errorf("ASCII grid has no data")
}

func (h ascHeader) check(seen map[string]bool) error {
	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if !seen[k] {
			return fmt.Errorf("missing header %q", k)
		}
	}
	if h.ncols < 2 || h.nrows < 2 {
		return fmt.Errorf("%w: %dx%d", ErrAxisTooShort, h.nrows, h.ncols)
	}
	if h.nrows > maxASCCells/h.ncols {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrShapeMismatch, h.nrows, h.ncols, maxASCCells)
	}
	if h.cellsize <= 0 {
		return fmt.Errorf("cellsize must be positive, got %f", h.cellsize)
	}
	return nil
}
