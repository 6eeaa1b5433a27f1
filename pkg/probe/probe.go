// Package probe runs preflight checks before a coverage run starts.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"radarcov/pkg/config"
)

// checkTimeout bounds a single check when the caller sets no deadline.
const checkTimeout = 5 * time.Second

// CheckFunc returns nil if the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single preflight check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // a failure aborts the run
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes probes in order.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))
	for i, p := range probes {
		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
	}
	return results
}

// Analyze logs every result and joins the errors of failed critical probes.
func Analyze(results []Result) error {
	var critical []error
	for _, r := range results {
		if r.Error == nil {
			slog.Debug("Preflight check passed", "check", r.Probe.Name, "elapsed", r.Duration.Round(time.Millisecond))
			continue
		}
		if r.Probe.Critical {
			slog.Error("Preflight check failed", "check", r.Probe.Name, "error", r.Error)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		} else {
			slog.Warn("Preflight check failed", "check", r.Probe.Name, "error", r.Error)
		}
	}
	return errors.Join(critical...)
}

// FileReadable checks that path is an existing, readable regular file.
func FileReadable(path string) CheckFunc {
	return func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}
}

// DirWritable checks that dir exists or can be created and accepts new files.
func DirWritable(dir string) CheckFunc {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return err
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}

// Preflight returns the checks a configured run depends on.
func Preflight(cfg *config.Config) []Probe {
	var probes []Probe

	if cfg.Terrain.Source != config.SourceSynthetic {
		probes = append(probes, Probe{
			Name:     "terrain " + cfg.Terrain.Source,
			Check:    FileReadable(cfg.Terrain.Path),
			Critical: true,
		})
	}
	if cfg.Masks.Shapefile != "" {
		probes = append(probes, Probe{
			Name:     "exclusion polygons",
			Check:    FileReadable(cfg.Masks.Shapefile),
			Critical: true,
		})
	}
	if cfg.DB.Enabled {
		probes = append(probes, Probe{
			Name:     "run store",
			Check:    DirWritable(filepath.Dir(cfg.DB.Path)),
			Critical: true,
		})
	}
	if cfg.Export.GeoJSON || cfg.Export.H3Resolution >= 0 {
		probes = append(probes, Probe{
			Name:     "export directory",
			Check:    DirWritable(cfg.Export.Dir),
			Critical: true,
		})
	}
	return probes
}
