package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radarcov/pkg/config"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{Name: "ok", Check: func(ctx context.Context) error { return nil }, Critical: true},
		{Name: "minor", Check: func(ctx context.Context) error { return errors.New("minor issue") }},
		{Name: "deadline", Check: func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			if !ok {
				return errors.New("no deadline")
			}
			return nil
		}},
	}

	results := Run(context.Background(), probes)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	assert.Error(t, results[1].Error)
	assert.NoError(t, results[2].Error)
}

func TestAnalyze(t *testing.T) {
	fail := errors.New("fail")
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{"All pass", []Result{{Probe: Probe{Name: "P1", Critical: true}}}, false},
		{"Critical failure", []Result{{Probe: Probe{Name: "P1", Critical: true}, Error: fail}}, true},
		{"Non-critical failure", []Result{{Probe: Probe{Name: "P1"}, Error: fail}}, false},
		{"Mixed", []Result{
			{Probe: Probe{Name: "P1"}, Error: fail},
			{Probe: Probe{Name: "P2", Critical: true}, Error: fail},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Analyze(tt.results)
			if tt.wantErr {
				assert.ErrorIs(t, err, fail)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChecks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "terrain.asc")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	ctx := context.Background()

	assert.NoError(t, FileReadable(file)(ctx))
	assert.Error(t, FileReadable(filepath.Join(dir, "missing.asc"))(ctx))
	assert.Error(t, FileReadable(dir)(ctx))

	out := filepath.Join(dir, "out", "nested")
	assert.NoError(t, DirWritable(out)(ctx))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")
}

func TestPreflight(t *testing.T) {
	cfg := config.DefaultConfig()
	names := func(ps []Probe) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"terrain asc", "run store", "export directory"}, names(Preflight(cfg)))

	cfg.Terrain.Source = config.SourceSynthetic
	cfg.DB.Enabled = false
	cfg.Export.GeoJSON = false
	cfg.Export.H3Resolution = -1
	cfg.Masks.Shapefile = "zones.shp"
	assert.Equal(t, []string{"exclusion polygons"}, names(Preflight(cfg)))
}
