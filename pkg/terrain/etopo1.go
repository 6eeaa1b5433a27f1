package terrain

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
)

const (
	// ETOPO1 constants (grid-registered: 10801 rows × 21601 cols, 1 arc-minute)
	etopo1Rows = 10801
	etopo1Cols = 21601
	etopo1Size = etopo1Rows * etopo1Cols * 2 // 16-bit signed little-endian
)

// ETOPO1 reads rectangular windows out of the ETOPO1 global relief binary.
// Bathymetry comes through as negative values and therefore reads as no-data.
type ETOPO1 struct {
	file *os.File
}

// OpenETOPO1 opens the ETOPO1 binary file.
func OpenETOPO1(path string) (*ETOPO1, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	if info.Size() != int64(etopo1Size) {
		f.Close()
		return nil, fmt.Errorf("invalid ETOPO1 file size: expected %d, got %d", etopo1Size, info.Size())
	}

	return &ETOPO1{file: f}, nil
}

// Close closes the file handle.
func (e *ETOPO1) Close() error {
	return e.file.Close()
}

// Window returns the grid of all samples inside the closed rectangle.
// Latitudes come out north to south (descending), longitudes west to east.
func (e *ETOPO1) Window(minLat, maxLat, minLon, maxLon float64) (*Grid, error) {
	if minLat < -90 || maxLat > 90 || minLon < -180 || maxLon > 180 || minLat >= maxLat || minLon >= maxLon {
		return nil, fmt.Errorf("invalid ETOPO1 window: lat [%f, %f], lon [%f, %f]", minLat, maxLat, minLon, maxLon)
	}

	// Snap inward so the grid never exceeds the requested rectangle.
	rowStart := int(math.Ceil((90.0-maxLat)*60.0 - 1e-9))
	rowEnd := int(math.Floor((90.0-minLat)*60.0 + 1e-9))
	colStart := int(math.Ceil((minLon+180.0)*60.0 - 1e-9))
	colEnd := int(math.Floor((maxLon+180.0)*60.0 + 1e-9))

	rows := rowEnd - rowStart + 1
	cols := colEnd - colStart + 1
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("ETOPO1 window too small: %dx%d samples", rows, cols)
	}

	lats := make([]float64, rows)
	for r := range lats {
		lats[r] = 90.0 - float64(rowStart+r)/60.0
	}
	lons := make([]float64, cols)
	for c := range lons {
		lons[c] = float64(colStart+c)/60.0 - 180.0
	}

	elev := make([][]float64, rows)
	for r := range elev {
		row, err := e.readRow(rowStart+r, colStart, cols)
		if err != nil {
			return nil, fmt.Errorf("failed to read ETOPO1 row %d: %w", rowStart+r, err)
		}
		elev[r] = row
	}

	slog.Debug("ETOPO1 window loaded", "rows", rows, "cols", cols, "row_start", rowStart, "col_start", colStart)
	return NewGrid(lats, lons, elev)
}

// readRow reads a contiguous run of samples from one row.
func (e *ETOPO1) readRow(row, colStart, count int) ([]float64, error) {
	offset := int64(row*etopo1Cols+colStart) * 2
	b := make([]byte, count*2)
	if _, err := e.file.ReadAt(b, offset); err != nil {
		return nil, err
	}

	out := make([]float64, count)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2])))
	}
	return out, nil
}
