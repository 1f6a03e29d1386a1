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

package tropo

import (
	"math"
	"testing"
)

func TestAxisLocate(t *testing.T) {
	axis := []float64{0, 1, 3, 6}
	cases := []struct {
		v    float64
		i    int
		frac float64
		ok   bool
	}{
		{0, 0, 0, true},
		{0.5, 0, 0.5, true},
		{1, 0, 1, true},
		{2, 1, 0.5, true},
		{6, 2, 1, true},
		{-0.1, 0, 0, false},
		{6.1, 0, 0, false},
	}
	for _, c := range cases {
		i, frac, ok := axisLocate(axis, c.v)
		if ok != c.ok {
			t.Errorf("axisLocate(%g): ok = %v, want %v", c.v, ok, c.ok)
			continue
		}
		if ok && (i != c.i || math.Abs(frac-c.frac) > 1e-12) {
			t.Errorf("axisLocate(%g): have (%d, %g), want (%d, %g)", c.v, i, frac, c.i, c.frac)
		}
	}
}

func TestInterpolatorRequiresPreparedGrid(t *testing.T) {
	w := &WeatherData{Model: "ERA5"}
	if _, err := w.newInterpolator(); err == nil {
		t.Fatal("expected an error for unprepared weather data")
	}
}

func TestInterpolatorLinearField(t *testing.T) {
	const tolerance = 1.0e-6
	w := constantWeather(0, 0)
	// Hydrostatic refractivity linear in height, so trilinear
	// interpolation is exact between levels.
	for iy := 0; iy < len(w.Ys); iy++ {
		for ix := 0; ix < len(w.Xs); ix++ {
			for iz, z := range w.Zs {
				w.Hydro.Set(300-0.01*z, iy, ix, iz)
			}
		}
	}
	g, err := w.newInterpolator()
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []struct{ lat, lon, h float64 }{
		{34.5, -117.5, 0},
		{34.0, -117.0, 2500},
		{35.2, -116.3, 7300},
	} {
		x, y, z := llaToECEF(c.lat, c.lon, c.h)
		out := make([]float64, 1)
		g.hydroPPM([]float64{x, y, z}, out)
		want := 300 - 0.01*c.h
		if math.Abs(out[0]-want)/want > tolerance {
			t.Errorf("(%g, %g, %g): want %g but have %g", c.lat, c.lon, c.h, want, out[0])
		}
	}
}

func TestInterpolatorOutsideDomain(t *testing.T) {
	w := constantWeather(230, 40)
	g, err := w.newInterpolator()
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		name        string
		lat, lon, h float64
	}{
		{"north of the grid", 50, -117, 1000},
		{"west of the grid", 34.5, -150, 1000},
		{"above the top level", 34.5, -117, 20000},
		{"below the bottom level", 34.5, -117, -500},
	} {
		t.Run(c.name, func(t *testing.T) {
			x, y, z := llaToECEF(c.lat, c.lon, c.h)
			out := make([]float64, 1)
			g.wetPPM([]float64{x, y, z}, out)
			if !math.IsNaN(out[0]) {
				t.Errorf("want NaN but have %g", out[0])
			}
		})
	}
}
