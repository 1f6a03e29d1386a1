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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
)

func TestWeatherFileName(t *testing.T) {
	tm := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		name   string
		bounds *geom.Bounds
		want   string
	}{
		{
			name: "western hemisphere",
			bounds: &geom.Bounds{
				Min: geom.Point{X: -117.3, Y: 33.2},
				Max: geom.Point{X: -114.1, Y: 36.8},
			},
			want: "ERA5_2020_01_02_T03_04_05_34N_37N_118W_115W.nc",
		},
		{
			name: "southern hemisphere",
			bounds: &geom.Bounds{
				Min: geom.Point{X: 150.1, Y: -35.7},
				Max: geom.Point{X: 152.9, Y: -32.2},
			},
			want: "ERA5_2020_01_02_T03_04_05_36S_33S_151E_153E.nc",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if have := weatherFileName("ERA5", tm, c.bounds); have != c.want {
				t.Errorf("want %s but have %s", c.want, have)
			}
		})
	}
}

func TestRawFileName(t *testing.T) {
	tm := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	want := filepath.Join("out", "HRES_2020_01_02_T03_04_05.nc")
	if have := rawFileName("out", "HRES", tm); have != want {
		t.Errorf("want %s but have %s", want, have)
	}
}

// preparedTestGrid runs the preparation pipeline over a synthetic grid so
// persistence tests have every derived field populated.
func preparedTestGrid(t *testing.T) *WeatherData {
	w := rawTestGrid()
	w.Model = "FAKE"
	w.Time = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := w.findVaporPressure(); err != nil {
		t.Fatal(err)
	}
	if err := w.regridUniform(nil); err != nil {
		t.Fatal(err)
	}
	w.fillGaps()
	w.findRefractivity()
	w.padFloor()
	w.computeZTD()
	return w
}

func TestWeatherDataRoundTrip(t *testing.T) {
	const tolerance = 1.0e-10
	w := preparedTestGrid(t)
	path := filepath.Join(t.TempDir(), "grid.nc")
	if err := WriteWeatherData(path, w); err != nil {
		t.Fatal(err)
	}
	w2, err := ReadWeatherData(path)
	if err != nil {
		t.Fatal(err)
	}

	if w2.Model != w.Model || !w2.Time.Equal(w.Time) || w2.Proj != w.Proj {
		t.Errorf("metadata: have (%s, %v, %q)", w2.Model, w2.Time, w2.Proj)
	}
	if w2.YRes != w.YRes || w2.XRes != w.XRes || w2.ZMin != w.ZMin || w2.ZMax != w.ZMax {
		t.Errorf("grid parameters: have (%g, %g, %g, %g)", w2.YRes, w2.XRes, w2.ZMin, w2.ZMax)
	}
	for i, z := range w.Zs {
		if math.Abs(w2.Zs[i]-z) > 1e-9 {
			t.Fatalf("level %d: want %g but have %g", i, z, w2.Zs[i])
		}
	}
	for _, name := range weatherGridVars {
		arrayCompare(*w2.gridVar(name), *w.gridVar(name), tolerance, name, t)
	}
}

func TestReadWeatherDataVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.nc")
	h := cdf.NewHeader([]string{"y"}, []int{1})
	h.AddAttribute("", "data_version", "0.0")
	h.AddVariable("ys", []string{"y"}, []float64{0})
	h.Define()
	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cdf.Create(ff, h); err != nil {
		t.Fatal(err)
	}
	ff.Close()

	if _, err := ReadWeatherData(path); err == nil {
		t.Fatal("expected an error for a stale data version")
	}
}
