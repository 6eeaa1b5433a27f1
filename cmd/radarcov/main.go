package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"radarcov/pkg/config"
	"radarcov/pkg/coverage"
	"radarcov/pkg/db"
	"radarcov/pkg/db/maintenance"
	"radarcov/pkg/logging"
	"radarcov/pkg/probe"
	"radarcov/pkg/store"
	"radarcov/pkg/terrain"
	"radarcov/pkg/version"
)

const (
	defaultConfigPath = "configs/radarcov.yaml"
	configEnv         = "RADARCOV_CONFIG"
	lastRunKey        = "last_run_id"
)

var (
	configPath = flag.String("config", "", "Path to the config file (default $"+configEnv+" or "+defaultConfigPath+")")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	listStored = flag.Bool("list-runs", false, "List stored coverage runs and exit")
)

func main() {
	// .env is optional
	_ = godotenv.Load()
	flag.Parse()

	path := resolveConfigPath(*configPath)

	if *initConfig {
		if err := config.GenerateDefault(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", path)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listStored {
		if err := listRuns(ctx, path, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, path); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: radarcov failed: %v\n", err)
		os.Exit(1)
	}
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(configEnv); env != "" {
		return env
	}
	return defaultConfigPath
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("radarcov started", "version", version.Version, "config", configPath)

	if err := probe.Analyze(probe.Run(ctx, probe.Preflight(cfg))); err != nil {
		return fmt.Errorf("preflight checks failed: %w", err)
	}

	grid, err := loadTerrain(&cfg.Terrain)
	if err != nil {
		return err
	}
	rows, cols := grid.Shape()
	lo, hi := grid.MinMax()
	slog.Info("Terrain ready", "source", cfg.Terrain.Source, "rows", rows, "cols", cols, "min_m", lo, "max_m", hi)

	admissible, err := buildMasks(cfg, grid)
	if err != nil {
		return err
	}

	params := coverage.Params{
		Observer: terrain.Observer{
			Lat:       cfg.Observer.Lat,
			Lon:       cfg.Observer.Lon,
			HeightAGL: cfg.Observer.HeightAGL.Meters(),
		},
		Samples: cfg.Coverage.Samples,
		Margin:  cfg.Coverage.Margin.Meters(),
	}

	maps, err := computeOrLoad(ctx, cfg, grid, params)
	if err != nil {
		return err
	}

	report(maps, admissible)

	if err := exportResults(cfg, grid, params.Observer, maps, admissible); err != nil {
		return err
	}

	slog.Info("radarcov finished")
	return nil
}

// computeOrLoad reuses a stored run with the same fingerprint when the store is enabled.
func computeOrLoad(ctx context.Context, cfg *config.Config, grid *terrain.Grid, params coverage.Params) (map[float64]*coverage.Map, error) {
	engine := coverage.NewEngine(grid,
		coverage.WithWorkers(cfg.Coverage.Workers),
		coverage.WithListener(logListener{}))

	if !cfg.DB.Enabled {
		return compute(ctx, engine, params, cfg.Coverage.FlightLevels)
	}

	dbConn, st, err := initDB(cfg)
	if err != nil {
		return nil, err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, cfg.DB.Retention()); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	fp := store.Fingerprint(grid, params, cfg.Coverage.FlightLevels)
	existing, err := st.FindRun(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to look up stored run: %w", err)
	}
	if existing != nil {
		maps, err := st.LoadMaps(ctx, existing.ID)
		if err == nil {
			slog.Info("Reusing stored coverage run", "id", existing.ID, "created", existing.CreatedAt, "levels", len(maps))
			return maps, nil
		}
		slog.Warn("Stored run unreadable, recomputing", "id", existing.ID, "error", err)
	}

	maps, err := compute(ctx, engine, params, cfg.Coverage.FlightLevels)
	if err != nil {
		return nil, err
	}

	rows, cols := grid.Shape()
	run := &store.Run{
		Fingerprint: fp,
		Observer:    params.Observer,
		Samples:     params.Samples,
		Margin:      params.Margin,
		Rows:        rows,
		Cols:        cols,
	}
	if err := st.SaveRun(ctx, run, maps); err != nil {
		slog.Error("Failed to store coverage run", "error", err)
		return maps, nil
	}
	if err := st.SetState(ctx, lastRunKey, run.ID); err != nil {
		slog.Warn("Failed to record last run", "error", err)
	}
	return maps, nil
}

func compute(ctx context.Context, engine *coverage.Engine, params coverage.Params, levels []float64) (map[float64]*coverage.Map, error) {
	start := time.Now()
	maps, err := engine.ComputeAll(ctx, params, levels)
	if err != nil {
		return nil, fmt.Errorf("coverage computation failed: %w", err)
	}
	slog.Info("Coverage computed", "tiers", len(maps), "elapsed", time.Since(start).Round(time.Millisecond))
	return maps, nil
}

// listRuns prints one line per stored run, newest first.
func listRuns(ctx context.Context, configPath string, w io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.DB.Enabled {
		return fmt.Errorf("run store is disabled in %s", configPath)
	}

	dbConn, st, err := initDB(cfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  fp=%s  obs=(%.4f, %.4f, %.0fm)  grid=%dx%d  levels=%v\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Fingerprint,
			r.Observer.Lat, r.Observer.Lon, r.Observer.HeightAGL, r.Rows, r.Cols, r.Levels)
	}
	return nil
}

func initDB(cfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// logListener forwards engine progress to the debug log.
type logListener struct{}

func (logListener) CellsDone(fl float64, done, total int) {
	slog.Debug("Coverage progress", "fl", fl, "done", done, "total", total)
}

func (logListener) TierDone(fl float64, done, total int) {
	slog.Debug("Tier finished", "fl", fl, "tiers_done", done, "tiers_total", total)
}
