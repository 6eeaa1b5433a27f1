package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Day is the unit of run retention.
const Day = 24 * time.Hour

// Duration is a time.Duration that also reads a leading day count, as in "30d" or "2d12h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler. Whole days are written as "Nd".
func (d Duration) MarshalYAML() (interface{}, error) {
	td := time.Duration(d)
	if td != 0 && td%Day == 0 {
		return fmt.Sprintf("%dd", td/Day), nil
	}
	return td.String(), nil
}

// ParseDuration accepts time.ParseDuration syntax, optionally prefixed by a day count.
// An empty string is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	days, rest, ok := strings.Cut(s, "d")
	if !ok {
		return time.ParseDuration(s)
	}
	n, err := strconv.ParseFloat(days, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid day count in duration %q", s)
	}

	total := time.Duration(n * float64(Day))
	if rest != "" {
		extra, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += extra
	}
	return total, nil
}

// Distance is a length in meters.
type Distance float64

// Meters returns the distance in meters.
func (d Distance) Meters() float64 { return float64(d) }

// KM returns the distance in kilometers.
func (d Distance) KM() float64 { return float64(d) / 1000.0 }

// UnmarshalYAML implements yaml.Unmarshaler. Bare numbers are meters.
func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err == nil {
		*d = Distance(f)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	m, err := ParseDistance(s)
	if err != nil {
		return err
	}
	*d = Distance(m)
	return nil
}

// MarshalYAML implements yaml.Marshaler. Whole kilometers are written in km.
func (d Distance) MarshalYAML() (interface{}, error) {
	m := float64(d)
	if m >= 1000 && m == 1000*float64(int64(m/1000)) {
		return strconv.FormatFloat(m/1000, 'f', -1, 64) + "km", nil
	}
	return strconv.FormatFloat(m, 'f', -1, 64) + "m", nil
}

// distanceUnits is ordered so "m" is tried after the longer suffixes ending in it.
var distanceUnits = []struct {
	suffix string
	meters float64
}{
	{"km", 1000},
	{"nm", 1852},
	{"ft", 0.3048},
	{"m", 1},
}

// ParseDistance reads "12km", "5nm", "300ft", "50m" or a bare number of meters.
func ParseDistance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	scale := 1.0
	for _, u := range distanceUnits {
		if num, ok := strings.CutSuffix(s, u.suffix); ok {
			s, scale = strings.TrimSpace(num), u.meters
			break
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid distance number: %w", err)
	}
	return v * scale, nil
}
