package coverage

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radarcov/pkg/terrain"
)

func testTerrain(t *testing.T) *terrain.Grid {
	t.Helper()
	g, err := terrain.Synthetic(terrain.SyntheticSpec{
		Rows: 24, Cols: 30,
		MinLat: 43.5, MaxLat: 43.8,
		MinLon: 7.0, MaxLon: 7.4,
		Seed:         42,
		MaxElevation: 1500,
		SeaLevel:     0.45,
	})
	require.NoError(t, err)
	return g
}

func testParams(g *terrain.Grid) Params {
	return Params{
		Observer: terrain.Observer{Lat: g.Lat(12), Lon: g.Lon(15), HeightAGL: 30},
		Samples:  100,
		Margin:   5,
	}
}

func TestFlightLevelToMeters(t *testing.T) {
	tests := []struct {
		fl   float64
		want float64
	}{
		{0, 0},
		{5, 152.4},
		{50, 1524.0},
		{100, 3048.0},
		{400, 12192.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, FlightLevelToMeters(tt.fl), 1e-9, "FL%g", tt.fl)
	}
}

func TestCompute_MatchesPerCellLOS(t *testing.T) {
	g := testTerrain(t)
	p := testParams(g)

	m, err := Compute(context.Background(), g, p, 50)
	require.NoError(t, err)
	assert.Equal(t, 1524.0, m.AltitudeM)

	rows, cols := g.Shape()
	mr, mc := m.Shape()
	require.Equal(t, rows, mr)
	require.Equal(t, cols, mc)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			want := terrain.IsVisible(terrain.Query{
				Observer: p.Observer,
				Target:   terrain.Target{Lat: g.Lat(i), Lon: g.Lon(j), AltMSL: 1524.0},
				Samples:  p.Samples,
				Margin:   p.Margin,
			}, g)
			require.Equal(t, want, m.At(i, j), "cell (%d,%d)", i, j)
		}
	}
}

func TestCompute_WorkerCountDoesNotChangeResult(t *testing.T) {
	g := testTerrain(t)
	p := testParams(g)

	ref, err := NewEngine(g, WithWorkers(1)).Compute(context.Background(), p, 20)
	require.NoError(t, err)

	for _, n := range []int{2, 3, 7, 64} {
		m, err := NewEngine(g, WithWorkers(n)).Compute(context.Background(), p, 20)
		require.NoError(t, err)
		assert.Equal(t, ref.Cells(), m.Cells(), "workers=%d", n)
	}
}

func TestCompute_HigherTierSeesAtLeastAsMuchOnFlatTerrain(t *testing.T) {
	g := flatGrid(t, 10, 10)
	p := Params{Observer: terrain.Observer{Lat: g.Lat(5), Lon: g.Lon(5), HeightAGL: 10}, Samples: 50}

	maps, err := ComputeAll(context.Background(), g, p, []float64{5, 100})
	require.NoError(t, err)
	assert.Equal(t, 100, maps[5].Visible())
	assert.Equal(t, 100, maps[100].Visible())
}

func TestCompute_ObserverWithoutTerrain(t *testing.T) {
	g := testTerrain(t)
	p := testParams(g)
	p.Observer.Lat = 60

	m, err := Compute(context.Background(), g, p, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Visible())
}

func TestCompute_InvalidParams(t *testing.T) {
	g := flatGrid(t, 3, 3)
	o := terrain.Observer{Lat: g.Lat(1), Lon: g.Lon(1)}

	tests := []struct {
		name    string
		p       Params
		wantErr error
	}{
		{"Zero samples", Params{Observer: o, Samples: 0}, ErrInvalidSampleCount},
		{"One sample", Params{Observer: o, Samples: 1}, ErrInvalidSampleCount},
		{"Negative margin", Params{Observer: o, Samples: 10, Margin: -1}, ErrNegativeMargin},
		{"NaN margin", Params{Observer: o, Samples: 10, Margin: math.NaN()}, ErrNegativeMargin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(context.Background(), g, tt.p, 10)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = ComputeAll(context.Background(), g, tt.p, []float64{10})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompute_Cancelled(t *testing.T) {
	g := testTerrain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(g, WithWorkers(2)).Compute(ctx, testParams(g), 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

type recorder struct {
	mu    sync.Mutex
	cells map[float64][]int
	tiers []int
	total int
}

func (r *recorder) CellsDone(fl float64, done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cells == nil {
		r.cells = map[float64][]int{}
	}
	r.cells[fl] = append(r.cells[fl], done)
	r.total = total
}

func (r *recorder) TierDone(_ float64, done, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, done)
}

func TestCompute_ProgressIsBounded(t *testing.T) {
	g := testTerrain(t)
	p := testParams(g)
	rows, cols := g.Shape()

	rec := &recorder{}
	m, err := NewEngine(g, WithWorkers(4), WithListener(rec)).Compute(context.Background(), p, 50)
	require.NoError(t, err)

	plain, err := Compute(context.Background(), g, p, 50)
	require.NoError(t, err)
	assert.Equal(t, plain.Cells(), m.Cells(), "listener must not alter results")

	calls := rec.cells[50]
	require.NotEmpty(t, calls)
	assert.LessOrEqual(t, len(calls), progressReports+1)
	assert.Equal(t, rows*cols, calls[len(calls)-1], "last report covers every cell")
	assert.Equal(t, rows*cols, rec.total)
	for k := 1; k < len(calls); k++ {
		assert.Greater(t, calls[k], calls[k-1])
	}
}

func TestComputeAll(t *testing.T) {
	g := testTerrain(t)
	p := testParams(g)
	rec := &recorder{}
	e := NewEngine(g, WithListener(rec))

	maps, err := e.ComputeAll(context.Background(), p, []float64{100, 5, 50, 5})
	require.NoError(t, err)
	require.Len(t, maps, 3, "duplicate levels are computed once")
	assert.Equal(t, []float64{5, 50, 100}, SortedLevels(maps))
	assert.ElementsMatch(t, []int{1, 2, 3}, rec.tiers)

	for fl, m := range maps {
		single, err := e.Compute(context.Background(), p, fl)
		require.NoError(t, err)
		assert.Equal(t, single.Cells(), m.Cells(), "FL%g", fl)
	}

	empty, err := e.ComputeAll(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSummarize(t *testing.T) {
	a, err := NewMapFromCells(100, 2, 2, []bool{true, true, true, false})
	require.NoError(t, err)
	b, err := NewMapFromCells(5, 2, 2, []bool{true, false, false, false})
	require.NoError(t, err)

	stats := Summarize(map[float64]*Map{100: a, 5: b})
	require.Len(t, stats, 2)
	assert.Equal(t, 5.0, stats[0].FlightLevel)
	assert.Equal(t, 1, stats[0].Visible)
	assert.Equal(t, 4, stats[0].Total)
	assert.InDelta(t, 25.0, stats[0].Percent, 1e-9)
	assert.Equal(t, 3, stats[1].Visible)
	assert.InDelta(t, 3048.0, stats[1].AltitudeM, 1e-9)

	_, err = NewMapFromCells(5, 2, 3, []bool{true})
	assert.Error(t, err)
}

func flatGrid(t *testing.T, rows, cols int) *terrain.Grid {
	t.Helper()
	lats := make([]float64, rows)
	lons := make([]float64, cols)
	elev := make([][]float64, rows)
	for i := range lats {
		lats[i] = 45 + float64(i)*0.01
		elev[i] = make([]float64, cols)
		for j := range elev[i] {
			elev[i][j] = 100
		}
	}
	for j := range lons {
		lons[j] = 6 + float64(j)*0.01
	}
	g, err := terrain.NewGrid(lats, lons, elev)
	require.NoError(t, err)
	return g
}
