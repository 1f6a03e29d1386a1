/*
Copyright © 2026 the tropo authors.
This file is part of tropo.

tropo is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

tropo is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with tropo.  If not, see <http://www.gnu.org/licenses/>.
*/

package tropoutil

import (
	"testing"
	"time"

	"github.com/lnashier/viper"
)

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	cfg.Set("json", `{"file": "/data/era5.nc"}`)
	cfg.Set("native", map[string]interface{}{"file": "/data/era5.nc"})
	cfg.Set("bad", `{"file": `)

	for _, name := range []string{"json", "native"} {
		m, err := GetStringMapString(name, cfg)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if m["file"] != "/data/era5.nc" {
			t.Errorf("%s: have %v", name, m)
		}
	}
	if _, err := GetStringMapString("bad", cfg); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestGetFloat64Slice(t *testing.T) {
	cfg := viper.New()
	cfg.Set("json", `[0, 500.5, 1500]`)
	cfg.Set("native", []interface{}{0, 500.5, 1500})
	cfg.Set("bad", `[0, `)

	want := []float64{0, 500.5, 1500}
	for _, name := range []string{"json", "native"} {
		s, err := getFloat64Slice(name, cfg)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(s) != len(want) {
			t.Fatalf("%s: have %v", name, s)
		}
		for i := range want {
			if s[i] != want[i] {
				t.Errorf("%s element %d: want %g but have %g", name, i, want[i], s[i])
			}
		}
	}
	if _, err := getFloat64Slice("bad", cfg); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestParseTime(t *testing.T) {
	cfg := viper.New()
	if _, err := parseTime(cfg); err == nil {
		t.Error("expected an error when WeatherTime is unset")
	}
	cfg.Set("WeatherTime", "01/02/2020")
	if _, err := parseTime(cfg); err == nil {
		t.Error("expected an error for a non-RFC3339 timestamp")
	}
	cfg.Set("WeatherTime", "2020-01-02T03:00:00Z")
	tm, err := parseTime(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !tm.Equal(time.Date(2020, 1, 2, 3, 0, 0, 0, time.UTC)) {
		t.Errorf("have %v", tm)
	}
}

func TestParseBounds(t *testing.T) {
	cfg := viper.New()
	cfg.Set("Bounds.LatMin", 33.0)
	cfg.Set("Bounds.LatMax", 36.0)
	cfg.Set("Bounds.LonMin", -119.0)
	cfg.Set("Bounds.LonMax", -116.0)
	b, err := parseBounds(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if b.Min.Y != 33 || b.Max.Y != 36 || b.Min.X != -119 || b.Max.X != -116 {
		t.Errorf("have %+v", b)
	}

	cfg.Set("Bounds.LatMax", 32.0)
	if _, err := parseBounds(cfg); err == nil {
		t.Error("expected an error for inverted bounds")
	}
	cfg.Set("Bounds.LatMax", 95.0)
	if _, err := parseBounds(cfg); err == nil {
		t.Error("expected an error for a latitude beyond the pole")
	}
}

func TestCheckOutputFile(t *testing.T) {
	if err := checkOutputFile(""); err == nil {
		t.Error("expected an error for an empty output file")
	}
	if err := checkOutputFile("delays.csv"); err == nil {
		t.Error("expected an error for a non-NetCDF output file")
	}
	if err := checkOutputFile("delays.nc"); err != nil {
		t.Error(err)
	}
}

func TestGridAxis(t *testing.T) {
	have := gridAxis(34, 35, 0.5)
	want := []float64{34, 34.5}
	if len(have) != len(want) {
		t.Fatalf("have %v", have)
	}
	for i := range want {
		if have[i] != want[i] {
			t.Errorf("element %d: want %g but have %g", i, want[i], have[i])
		}
	}
	if len(gridAxis(35, 34, 0.5)) != 0 {
		t.Error("an inverted range should sample no points")
	}
}
