package main

import (
	"fmt"
	"log/slog"

	"radarcov/pkg/config"
	"radarcov/pkg/geo"
	"radarcov/pkg/mask"
	"radarcov/pkg/terrain"
)

// loadTerrain builds the elevation grid from the configured source.
func loadTerrain(cfg *config.TerrainConfig) (*terrain.Grid, error) {
	var (
		g   *terrain.Grid
		err error
	)

	switch cfg.Source {
	case config.SourceASC:
		g, err = terrain.LoadASC(cfg.Path)
	case config.SourceETOPO1:
		var src *terrain.ETOPO1
		src, err = terrain.OpenETOPO1(cfg.Path)
		if err != nil {
			break
		}
		defer src.Close()
		b := cfg.Bounds
		g, err = src.Window(b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	case config.SourceSynthetic:
		s := cfg.Synthetic
		b := cfg.Bounds
		g, err = terrain.Synthetic(terrain.SyntheticSpec{
			Rows: s.Rows, Cols: s.Cols,
			MinLat: b.MinLat, MaxLat: b.MaxLat,
			MinLon: b.MinLon, MaxLon: b.MaxLon,
			Seed:         s.Seed,
			MaxElevation: s.MaxElevation,
			SeaLevel:     s.SeaLevel,
		})
	default:
		err = fmt.Errorf("unknown terrain source %q", cfg.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load terrain: %w", err)
	}

	if cfg.Decimate > 1 {
		rows, cols := g.Shape()
		g = g.Decimate(cfg.Decimate)
		r2, c2 := g.Shape()
		slog.Info("Terrain decimated", "step", cfg.Decimate, "from", fmt.Sprintf("%dx%d", rows, cols), "to", fmt.Sprintf("%dx%d", r2, c2))
	}
	return g, nil
}

// buildMasks combines land, distance and region constraints into one admissibility mask.
func buildMasks(cfg *config.Config, g *terrain.Grid) (*mask.Mask, error) {
	lats, lons := g.Lats(), g.Lons()
	rows, cols := g.Shape()
	masks := []*mask.Mask{mask.New(rows, cols, true)}

	if cfg.Masks.Land {
		land := mask.ByElevation(g)
		slog.Debug("Land mask", "cells", land.Count())
		masks = append(masks, land)
	}

	if radius := cfg.Masks.Radius.KM(); radius > 0 {
		center := geo.Point{Lat: cfg.Observer.Lat, Lon: cfg.Observer.Lon}
		if c := cfg.Masks.Center; c != nil {
			center = geo.Point{Lat: c.Lat, Lon: c.Lon}
		}
		dist := mask.ByDistance(lats, lons, center, radius)
		slog.Debug("Distance mask", "radius_km", radius, "cells", dist.Count())
		masks = append(masks, dist)
	}

	rules, err := mask.RulesFromConfig(cfg.Masks.Exclusions)
	if err != nil {
		return nil, err
	}
	if cfg.Masks.FrenchTerritory {
		rules = append(rules, mask.FrenchTerritoryRules()...)
	}
	if cfg.Masks.Shapefile != "" {
		extra, err := mask.LoadRulesFile(cfg.Masks.Shapefile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, extra...)
	}
	if len(rules) > 0 {
		region := mask.ByRegion(lats, lons, rules...)
		slog.Debug("Region mask", "rules", len(rules), "cells", region.Count())
		masks = append(masks, region)
	}

	admissible, err := mask.Combine(masks...)
	if err != nil {
		return nil, err
	}
	slog.Info("Admissible sites", "cells", admissible.Count(), "of", rows*cols)
	return admissible, nil
}
