package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10s", 10 * time.Second, false},
		{"1.5h", 90 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"2d2h", 50 * time.Hour, false},
		{"0.5d", 12 * time.Hour, false},
		{"720h0m0s", 30 * Day, false},
		{"", 0, false},
		{"invalid", 0, true},
		{"1w", 0, true},
		{"2dx", 0, true},
		{"-1d", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{"100m", 100, false},
		{"50km", 50000, false},
		{"1nm", 1852, false},
		{"1000ft", 304.8, false},
		{"500", 500, false}, // Unitless fallback
		{"10x", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDistance(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDistance(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDistance(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestYAMLMarshal(t *testing.T) {
	type TestConfig struct {
		Age    Duration `yaml:"age"`
		Radius Distance `yaml:"radius"`
	}
	tests := []struct {
		cfg      TestConfig
		expected string
	}{
		{TestConfig{Duration(30 * Day), Distance(50000)}, "age: 30d\nradius: 50km\n"},
		{TestConfig{Duration(90 * time.Minute), Distance(1500)}, "age: 1h30m0s\nradius: 1500m\n"},
		{TestConfig{Duration(0), Distance(12.5)}, "age: 0s\nradius: 12.5m\n"},
	}

	for _, tt := range tests {
		out, err := yaml.Marshal(tt.cfg)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if string(out) != tt.expected {
			t.Errorf("Marshal(%+v) = %q, want %q", tt.cfg, out, tt.expected)
		}

		var back TestConfig
		if err := yaml.Unmarshal(out, &back); err != nil {
			t.Fatalf("Unmarshal(%q) failed: %v", out, err)
		}
		if back != tt.cfg {
			t.Errorf("round trip of %q = %+v, want %+v", out, back, tt.cfg)
		}
	}
}

func TestYAMLUnmarshal(t *testing.T) {
	type TestConfig struct {
		Age    Duration `yaml:"age"`
		Radius Distance `yaml:"radius"`
		Height Distance `yaml:"height"`
	}

	yamlData := `
age: 2d
radius: 50km
height: 20
`
	var cfg TestConfig
	if err := yaml.Unmarshal([]byte(yamlData), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if time.Duration(cfg.Age) != 48*time.Hour {
		t.Errorf("Expected 48h, got %v", time.Duration(cfg.Age))
	}
	if cfg.Radius.KM() != 50 {
		t.Errorf("Expected 50km, got %v", cfg.Radius.KM())
	}
	if cfg.Height.Meters() != 20 {
		t.Errorf("Expected 20m, got %v", cfg.Height.Meters())
	}
}
