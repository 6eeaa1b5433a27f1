package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"radarcov/pkg/config"
	"radarcov/pkg/coverage"
	"radarcov/pkg/export"
	"radarcov/pkg/mask"
	"radarcov/pkg/terrain"
)

// report logs per-tier visibility and how much of it falls on admissible sites.
func report(maps map[float64]*coverage.Map, admissible *mask.Mask) {
	for _, st := range coverage.Summarize(maps) {
		onSite := -1
		m := maps[st.FlightLevel]
		rows, cols := m.Shape()
		if vis, err := mask.FromCells(rows, cols, m.Cells()); err == nil {
			if both, err := mask.Combine(vis, admissible); err == nil {
				onSite = both.Count()
			}
		}
		slog.Info("Coverage",
			"fl", st.FlightLevel,
			"alt_m", fmt.Sprintf("%.1f", st.AltitudeM),
			"visible", st.Visible,
			"total", st.Total,
			"pct", fmt.Sprintf("%.2f", st.Percent),
			"admissible_visible", onSite)
	}
}

func exportResults(cfg *config.Config, g *terrain.Grid, o terrain.Observer, maps map[float64]*coverage.Map, admissible *mask.Mask) error {
	dir := cfg.Export.Dir

	if cfg.Export.GeoJSON {
		fc, err := export.CoverageCollection(g, maps, o)
		if err != nil {
			return err
		}
		if err := export.WriteFile(filepath.Join(dir, "coverage.geojson"), fc); err != nil {
			return err
		}

		mfc, err := export.MaskCollection(g, admissible, "admissible")
		if err != nil {
			return err
		}
		if err := export.WriteFile(filepath.Join(dir, "admissible.geojson"), mfc); err != nil {
			return err
		}
		slog.Info("GeoJSON exported", "dir", dir, "coverage_features", len(fc.Features), "mask_features", len(mfc.Features))
	}

	if res := cfg.Export.H3Resolution; res >= 0 {
		for _, fl := range coverage.SortedLevels(maps) {
			hexes, err := export.HexSummary(g, maps[fl], res)
			if err != nil {
				return fmt.Errorf("hex summary FL%g: %w", fl, err)
			}
			fc, err := export.HexCollection(hexes, geojson.Properties{"flight_level": fl})
			if err != nil {
				return err
			}
			path := filepath.Join(dir, fmt.Sprintf("hex_fl%03.0f.geojson", fl))
			if err := export.WriteFile(path, fc); err != nil {
				return err
			}
		}
		slog.Info("H3 summary exported", "dir", dir, "resolution", res, "tiers", len(maps))
	}
	return nil
}
