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

	"github.com/ctessum/sparse"
)

func TestZenithTotalsConstantProfile(t *testing.T) {
	const tolerance = 1.0e-12
	const refr = 230.0
	zs := []float64{0, 1000, 3000, 8000, 15000}
	n := sparse.ZerosDense(2, 2, len(zs))
	for i := range n.Elements {
		n.Elements[i] = refr
	}
	ztd := cumulativeZenith(n, zs)
	for iy := 0; iy < 2; iy++ {
		for ix := 0; ix < 2; ix++ {
			for iz, z := range zs {
				// Constant refractivity integrates exactly.
				want := 1e-6 * refr * (zs[len(zs)-1] - z)
				have := ztd.Get(iy, ix, iz)
				if math.Abs(have-want) > tolerance {
					t.Errorf("node (%d, %d) level %d: want %g but have %g", iy, ix, iz, want, have)
				}
			}
		}
	}
}

func TestZenithTotalsZeroProfile(t *testing.T) {
	zs := []float64{0, 5000, 15000}
	n := sparse.ZerosDense(1, 1, len(zs))
	ztd := cumulativeZenith(n, zs)
	for i, v := range ztd.Elements {
		if v != 0 {
			t.Errorf("level %d: zero refractivity must give zero delay, have %g", i, v)
		}
	}
}

func TestZenithTotalsNaNPropagates(t *testing.T) {
	zs := []float64{0, 1000, 2000}
	n := sparse.ZerosDense(1, 1, len(zs))
	n.Elements[0], n.Elements[1], n.Elements[2] = 100, math.NaN(), 100
	ztd := cumulativeZenith(n, zs)
	if !math.IsNaN(ztd.Get(0, 0, 0)) || !math.IsNaN(ztd.Get(0, 0, 1)) {
		t.Error("NaN in the column tail must propagate downward")
	}
	if v := ztd.Get(0, 0, 2); v != 0 {
		t.Errorf("top level: want 0 but have %g", v)
	}
}

func TestComputeZTD(t *testing.T) {
	zs := []float64{0, 1000}
	w := &WeatherData{Zs: zs}
	w.Wet = sparse.ZerosDense(1, 1, 2)
	w.Hydro = sparse.ZerosDense(1, 1, 2)
	w.Wet.Elements[0], w.Wet.Elements[1] = 50, 50
	w.Hydro.Elements[0], w.Hydro.Elements[1] = 250, 250
	w.computeZTD()
	if want, have := 1e-6*50*1000, w.WetZTD.Get(0, 0, 0); math.Abs(have-want) > 1e-12 {
		t.Errorf("wet total: want %g but have %g", want, have)
	}
	if want, have := 1e-6*250*1000, w.HydroZTD.Get(0, 0, 0); math.Abs(have-want) > 1e-12 {
		t.Errorf("hydrostatic total: want %g but have %g", want, have)
	}
}
