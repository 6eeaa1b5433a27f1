package coverage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"radarcov/pkg/terrain"
)

var (
	// ErrInvalidSampleCount is returned when fewer than 2 path subdivisions are requested.
	ErrInvalidSampleCount = errors.New("sample count must be at least 2")
	// ErrNegativeMargin is returned for a negative or NaN safety margin.
	ErrNegativeMargin = errors.New("margin must be non-negative")
)

// progressReports is the approximate number of cell progress callbacks per map.
const progressReports = 50

// Params are the per-run LOS settings shared by every cell.
type Params struct {
	Observer terrain.Observer
	Samples  int
	Margin   float64
}

func (p Params) validate() error {
	if p.Samples < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleCount, p.Samples)
	}
	if !(p.Margin >= 0) {
		return fmt.Errorf("%w: got %v", ErrNegativeMargin, p.Margin)
	}
	return nil
}

// Listener receives advisory progress. Calls are serialized by the engine.
type Listener interface {
	// CellsDone fires roughly every total/50 cells and always on the last cell.
	CellsDone(fl float64, done, total int)
	// TierDone fires once per completed tier in ComputeAll.
	TierDone(fl float64, done, total int)
}

// Engine computes coverage maps over a terrain grid.
type Engine struct {
	grid     *terrain.Grid
	workers  int
	listener Listener
	mu       sync.Mutex // serializes listener calls
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of row workers; n <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithListener installs a progress listener.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// NewEngine creates an engine bound to an immutable grid.
func NewEngine(g *terrain.Grid, opts ...Option) *Engine {
	e := &Engine{grid: g}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// Compute evaluates one flight level over every grid cell.
// Cancellation is honored between rows.
func (e *Engine) Compute(ctx context.Context, p Params, fl float64) (*Map, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	rows, cols := e.grid.Shape()
	m := newMap(fl, rows, cols)
	prog := e.newProgress(fl, rows*cols)

	eye, ok := terrain.EyeHeight(e.grid, p.Observer)
	if !ok {
		// Unknown terrain under the observer blocks every ray.
		slog.Warn("Observer has no terrain data, coverage is empty",
			"lat", p.Observer.Lat, "lon", p.Observer.Lon, "fl", fl)
		prog.add(rows * cols)
		return m, nil
	}

	workers := e.workers
	if workers > rows {
		workers = rows
	}

	start := time.Now()
	rowCh := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rowCh)
		for i := 0; i < rows; i++ {
			select {
			case rowCh <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range rowCh {
				if err := gctx.Err(); err != nil {
					return err
				}
				e.computeRow(m, i, p, eye)
				prog.add(cols)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("coverage FL%g: %w", fl, err)
	}

	slog.Debug("Coverage map computed",
		"fl", fl,
		"alt_m", m.AltitudeM,
		"visible_pct", fmt.Sprintf("%.2f", m.Percent()),
		"workers", workers,
		"elapsed", time.Since(start))
	return m, nil
}

// computeRow fills row i. Each worker owns whole rows, so writes never overlap.
func (e *Engine) computeRow(m *Map, i int, p Params, eye float64) {
	lat := e.grid.Lat(i)
	base := i * m.cols
	for j := 0; j < m.cols; j++ {
		tgt := terrain.Target{Lat: lat, Lon: e.grid.Lon(j), AltMSL: m.AltitudeM}
		m.cells[base+j] = terrain.ClearPath(e.grid, p.Observer, eye, tgt, p.Samples, p.Margin)
	}
}

// ComputeAll evaluates every flight level concurrently. Duplicate levels are computed once.
func (e *Engine) ComputeAll(ctx context.Context, p Params, levels []float64) (map[float64]*Map, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	unique := make([]float64, 0, len(levels))
	seen := make(map[float64]bool, len(levels))
	for _, fl := range levels {
		if math.IsNaN(fl) {
			return nil, fmt.Errorf("invalid flight level: NaN")
		}
		if !seen[fl] {
			seen[fl] = true
			unique = append(unique, fl)
		}
	}

	var (
		resMu sync.Mutex
		done  int
	)
	maps := make(map[float64]*Map, len(unique))
	g, gctx := errgroup.WithContext(ctx)

	for _, fl := range unique {
		fl := fl // per-iteration copy; go.mod targets go 1.21 loop semantics
		g.Go(func() error {
			m, err := e.Compute(gctx, p, fl)
			if err != nil {
				return err
			}

			resMu.Lock()
			maps[fl] = m
			done++
			n := done
			resMu.Unlock()

			slog.Info("Coverage tier complete",
				"fl", fl,
				"visible_pct", fmt.Sprintf("%.2f", m.Percent()),
				"progress", fmt.Sprintf("%d/%d", n, len(unique)))
			e.notifyTier(fl, n, len(unique))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return maps, nil
}

func (e *Engine) notifyTier(fl float64, done, total int) {
	if e.listener == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener.TierDone(fl, done, total)
}

// progress throttles CellsDone callbacks to a bounded cadence.
type progress struct {
	e        *Engine
	fl       float64
	total    int
	interval int
	done     int
	next     int
}

func (e *Engine) newProgress(fl float64, total int) *progress {
	interval := total / progressReports
	if interval < 1 {
		interval = 1
	}
	return &progress{e: e, fl: fl, total: total, interval: interval, next: interval}
}

func (p *progress) add(n int) {
	if p.e.listener == nil {
		return
	}
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	p.done += n
	if p.done >= p.next || p.done == p.total {
		p.e.listener.CellsDone(p.fl, p.done, p.total)
		p.next = (p.done/p.interval + 1) * p.interval
	}
}

// Compute evaluates one flight level with a default engine.
func Compute(ctx context.Context, g *terrain.Grid, p Params, fl float64) (*Map, error) {
	return NewEngine(g).Compute(ctx, p, fl)
}

// ComputeAll evaluates several flight levels with a default engine.
func ComputeAll(ctx context.Context, g *terrain.Grid, p Params, levels []float64) (map[float64]*Map, error) {
	return NewEngine(g).ComputeAll(ctx, p, levels)
}
