package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"radarcov/pkg/coverage"
	"radarcov/pkg/db"
)

// Store defines the repository interface.
type Store interface {
	RunStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Runs ---

// SaveRun persists a run and its maps in one transaction. An empty ID is assigned a UUID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, maps map[float64]*coverage.Map) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Levels = coverage.SortedLevels(maps)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, fingerprint, observer_lat, observer_lon, height_agl, samples, margin, rows, cols, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Fingerprint, run.Observer.Lat, run.Observer.Lon, run.Observer.HeightAGL,
		run.Samples, run.Margin, run.Rows, run.Cols, run.CreatedAt.Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, fl := range run.Levels {
		m := maps[fl]
		rows, cols := m.Shape()
		if rows != run.Rows || cols != run.Cols {
			return fmt.Errorf("FL%g map is %dx%d, run is %dx%d", fl, rows, cols, run.Rows, run.Cols)
		}
		blob, err := compress(packCells(m.Cells()))
		if err != nil {
			return fmt.Errorf("compress FL%g: %w", fl, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO coverage_maps (run_id, flight_level, altitude_m, visible, cells) VALUES (?, ?, ?, ?, ?)`,
			run.ID, fl, m.AltitudeM, m.Visible(), blob)
		if err != nil {
			return fmt.Errorf("insert FL%g: %w", fl, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("Coverage run saved", "id", run.ID, "levels", len(run.Levels))
	return nil
}

// FindRun returns the newest run with the given fingerprint, or nil if there is none.
func (s *SQLiteStore) FindRun(ctx context.Context, fingerprint string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE fingerprint = ? ORDER BY created_at DESC LIMIT 1", fingerprint)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if run.Levels, err = s.levels(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns every stored run, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.Levels, err = s.levels(ctx, run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// LoadMaps restores every coverage map of a run.
func (s *SQLiteStore) LoadMaps(ctx context.Context, runID string) (map[float64]*coverage.Map, error) {
	var nrows, ncols int
	err := s.db.QueryRowContext(ctx, "SELECT rows, cols FROM runs WHERE id = ?", runID).Scan(&nrows, &ncols)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT flight_level, cells FROM coverage_maps WHERE run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	maps := make(map[float64]*coverage.Map)
	for rows.Next() {
		var fl float64
		var blob []byte
		if err := rows.Scan(&fl, &blob); err != nil {
			return nil, err
		}
		packed, err := decompress(blob)
		if err != nil {
			return nil, fmt.Errorf("decompress FL%g: %w", fl, err)
		}
		cells, err := unpackCells(packed, nrows*ncols)
		if err != nil {
			return nil, fmt.Errorf("FL%g: %w", fl, err)
		}
		m, err := coverage.NewMapFromCells(fl, nrows, ncols, cells)
		if err != nil {
			return nil, err
		}
		maps[fl] = m
	}
	return maps, rows.Err()
}

func (s *SQLiteStore) levels(ctx context.Context, runID string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT flight_level FROM coverage_maps WHERE run_id = ? ORDER BY flight_level", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var fl float64
		if err := rows.Scan(&fl); err != nil {
			return nil, err
		}
		out = append(out, fl)
	}
	return out, rows.Err()
}

const runColumns = `id, fingerprint,
	COALESCE(observer_lat, 0), COALESCE(observer_lon, 0), COALESCE(height_agl, 0),
	COALESCE(samples, 0), COALESCE(margin, 0), COALESCE(rows, 0), COALESCE(cols, 0), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (*Run, error) {
	var run Run
	err := r.Scan(&run.ID, &run.Fingerprint,
		&run.Observer.Lat, &run.Observer.Lon, &run.Observer.HeightAGL,
		&run.Samples, &run.Margin, &run.Rows, &run.Cols, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// --- Cell Packing ---

// packCells stores eight cells per byte, least significant bit first.
func packCells(cells []bool) []byte {
	out := make([]byte, (len(cells)+7)/8)
	for k, v := range cells {
		if v {
			out[k/8] |= 1 << (k % 8)
		}
	}
	return out
}

func unpackCells(data []byte, n int) ([]bool, error) {
	if len(data) != (n+7)/8 {
		return nil, fmt.Errorf("packed cells are %d bytes, want %d for %d cells", len(data), (n+7)/8, n)
	}
	cells := make([]bool, n)
	for k := range cells {
		cells[k] = data[k/8]&(1<<(k%8)) != 0
	}
	return cells, nil
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO persistent_state (key, value) VALUES (?, ?)", key, val)
	return err
}
