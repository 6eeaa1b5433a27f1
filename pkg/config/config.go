package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Terrain source kinds.
const (
	SourceASC       = "asc"
	SourceETOPO1    = "etopo1"
	SourceSynthetic = "synthetic"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Terrain  TerrainConfig  `yaml:"terrain"`
	Observer ObserverConfig `yaml:"observer"`
	Coverage CoverageConfig `yaml:"coverage"`
	Masks    MasksConfig    `yaml:"masks"`
	Export   ExportConfig   `yaml:"export"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
	Trace bool   `yaml:"trace"` // per-sample LOS logging
}

// DBConfig holds settings for the coverage run store.
type DBConfig struct {
	Enabled bool     `yaml:"enabled"`
	Path    string   `yaml:"path"`
	MaxAge  Duration `yaml:"max_age"` // runs older than this are pruned at startup; 0 keeps all
}

// TerrainConfig selects and shapes the elevation grid.
type TerrainConfig struct {
	Source    string          `yaml:"source"` // "asc", "etopo1", "synthetic"
	Path      string          `yaml:"path"`
	Bounds    BoundsConfig    `yaml:"bounds"`   // ETOPO1 window
	Decimate  int             `yaml:"decimate"` // keep every Nth row/column; 0 or 1 keeps all
	Synthetic SyntheticConfig `yaml:"synthetic"`
}

// BoundsConfig is a closed lat/lon rectangle in degrees.
type BoundsConfig struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// SyntheticConfig drives the noise terrain generator.
type SyntheticConfig struct {
	Rows         int     `yaml:"rows"`
	Cols         int     `yaml:"cols"`
	Seed         int64   `yaml:"seed"`
	MaxElevation float64 `yaml:"max_elevation"`
	SeaLevel     float64 `yaml:"sea_level"` // normalized noise value mapped to 0 m
}

// ObserverConfig is the sensor position.
type ObserverConfig struct {
	Lat       float64  `yaml:"lat"`
	Lon       float64  `yaml:"lon"`
	HeightAGL Distance `yaml:"height_agl"`
}

// CoverageConfig holds LOS sampling and tier settings.
type CoverageConfig struct {
	FlightLevels []float64 `yaml:"flight_levels"`
	Samples      int       `yaml:"samples"`
	Margin       Distance  `yaml:"margin"`
	Workers      int       `yaml:"workers"` // 0 = one per CPU
}

// MasksConfig holds the site admissibility constraints.
type MasksConfig struct {
	Land            bool         `yaml:"land"`
	Radius          Distance     `yaml:"radius"`           // 0 disables the distance mask
	Center          *PointConfig `yaml:"center"`           // defaults to the observer
	FrenchTerritory bool         `yaml:"french_territory"` // exclude Monaco and Italy east of 7.5°E
	Exclusions      []RuleConfig `yaml:"exclusions"`
	Shapefile       string       `yaml:"shapefile"` // polygons to exclude
}

// PointConfig is a lat/lon pair in degrees.
type PointConfig struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// RuleConfig describes one exclusion rule.
// Type is one of "bbox", "lon_above", "lon_below", "lat_above", "lat_below".
type RuleConfig struct {
	Name   string  `yaml:"name,omitempty"`
	Type   string  `yaml:"type"`
	MinLat float64 `yaml:"min_lat,omitempty"`
	MaxLat float64 `yaml:"max_lat,omitempty"`
	MinLon float64 `yaml:"min_lon,omitempty"`
	MaxLon float64 `yaml:"max_lon,omitempty"`
	Value  float64 `yaml:"value,omitempty"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Dir          string `yaml:"dir"`
	GeoJSON      bool   `yaml:"geojson"`
	H3Resolution int    `yaml:"h3_resolution"` // negative disables the hexagon summary
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Path:  "./logs/radarcov.log",
			Level: "INFO",
		},
		DB: DBConfig{
			Enabled: true,
			Path:    "./data/radarcov.db",
			MaxAge:  Duration(30 * Day),
		},
		Terrain: TerrainConfig{
			Source: SourceASC,
			Path:   "data/terrain.asc",
			Bounds: BoundsConfig{
				MinLat: 43.5,
				MaxLat: 44.0,
				MinLon: 6.9,
				MaxLon: 7.6,
			},
			Decimate: 1,
			Synthetic: SyntheticConfig{
				Rows:         120,
				Cols:         160,
				Seed:         42,
				MaxElevation: 2500,
				SeaLevel:     0.35,
			},
		},
		Observer: ObserverConfig{
			Lat:       43.6584,
			Lon:       7.2159,
			HeightAGL: Distance(50),
		},
		Coverage: CoverageConfig{
			FlightLevels: []float64{5, 10, 20, 50, 100, 200, 300, 400},
			Samples:      400,
			Margin:       0,
			Workers:      0,
		},
		Masks: MasksConfig{
			Land:            true,
			Radius:          Distance(50000),
			FrenchTerritory: true,
			Exclusions:      []RuleConfig{},
		},
		Export: ExportConfig{
			Dir:          "./out",
			GeoJSON:      true,
			H3Resolution: 7,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandPaths resolves $VAR references in file paths. The raw values stay on disk.
func (c *Config) expandPaths() {
	c.Log.Path = os.ExpandEnv(c.Log.Path)
	c.DB.Path = os.ExpandEnv(c.DB.Path)
	c.Terrain.Path = os.ExpandEnv(c.Terrain.Path)
	c.Masks.Shapefile = os.ExpandEnv(c.Masks.Shapefile)
	c.Export.Dir = os.ExpandEnv(c.Export.Dir)
}

var ruleTypes = map[string]bool{
	"bbox":      true,
	"lon_above": true,
	"lon_below": true,
	"lat_above": true,
	"lat_below": true,
}

// Validate checks the settings the engine cannot recover from.
func (c *Config) Validate() error {
	switch c.Terrain.Source {
	case SourceASC, SourceETOPO1, SourceSynthetic:
	default:
		return fmt.Errorf("unknown terrain source '%s': must be one of %s, %s, %s", c.Terrain.Source, SourceASC, SourceETOPO1, SourceSynthetic)
	}
	if c.Coverage.Samples < 2 {
		return fmt.Errorf("coverage.samples must be >= 2, got %d", c.Coverage.Samples)
	}
	if c.Coverage.Margin < 0 {
		return fmt.Errorf("coverage.margin must be non-negative, got %v", float64(c.Coverage.Margin))
	}
	if len(c.Coverage.FlightLevels) == 0 {
		return fmt.Errorf("coverage.flight_levels must not be empty")
	}
	if c.Masks.Radius < 0 {
		return fmt.Errorf("masks.radius must be non-negative, got %v", float64(c.Masks.Radius))
	}
	for i, r := range c.Masks.Exclusions {
		if !ruleTypes[r.Type] {
			return fmt.Errorf("masks.exclusions[%d]: unknown rule type '%s'", i, r.Type)
		}
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# radarcov Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)
# Flight levels are hundreds of feet MSL (FL50 = 1524 m).

`)
	data = append(header, data...)

	reSource := regexp.MustCompile(`(?m)^(\s+)source:`)
	data = reSource.ReplaceAll(data, []byte("${1}# Options: asc, etopo1, synthetic\n${1}source:"))

	reRules := regexp.MustCompile(`(?m)^(\s+)exclusions:`)
	data = reRules.ReplaceAll(data, []byte("${1}# Rule types: bbox, lon_above, lon_below, lat_above, lat_below\n${1}exclusions:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}

// Retention returns the run retention window.
func (c *DBConfig) Retention() time.Duration {
	return time.Duration(c.MaxAge)
}
