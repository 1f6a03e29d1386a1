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

func svpWater(t float64) float64 {
	tref := t - 273.15
	return 6.1121 * math.Exp(17.502*tref/(240.97+tref)) * 100
}

func svpIce(t float64) float64 {
	tref := t - 273.15
	return 6.1121 * math.Exp(22.587*tref/(273.86+tref)) * 100
}

func TestSaturationVaporPressure(t *testing.T) {
	const tolerance = 1.0e-10

	// Pure phases outside the blend band.
	for _, temp := range []float64{273.15, 280, 300, 330} {
		want := svpWater(temp)
		if have := saturationVaporPressure(temp); math.Abs(have-want)/want > tolerance {
			t.Errorf("water phase at %g K: want %g but have %g", temp, want, have)
		}
	}
	for _, temp := range []float64{200, 230, 250.15} {
		want := svpIce(temp)
		if have := saturationVaporPressure(temp); math.Abs(have-want)/want > tolerance {
			t.Errorf("ice phase at %g K: want %g but have %g", temp, want, have)
		}
	}

	// Continuity at both blend edges.
	const eps = 1.0e-7
	for _, edge := range []float64{250.15, 273.15} {
		below := saturationVaporPressure(edge - eps)
		at := saturationVaporPressure(edge)
		above := saturationVaporPressure(edge + eps)
		if math.Abs(below-at)/at > 1e-5 || math.Abs(above-at)/at > 1e-5 {
			t.Errorf("discontinuity at %g K: %g, %g, %g", edge, below, at, above)
		}
	}

	if !math.IsNaN(saturationVaporPressure(math.NaN())) {
		t.Error("NaN temperature should give NaN saturation vapor pressure")
	}
}

func TestVaporPressure(t *testing.T) {
	const tolerance = 1.0e-10
	p := sparse.ZerosDense(1, 1, 2)
	temp := sparse.ZerosDense(1, 1, 2)
	p.Elements[0], p.Elements[1] = 101325, 80000
	temp.Elements[0], temp.Elements[1] = 290, 280

	t.Run("from specific humidity", func(t *testing.T) {
		q := sparse.ZerosDense(1, 1, 2)
		q.Elements[0], q.Elements[1] = 0.01, 0.005
		e := vaporPressureFromQ(q, p, temp)
		for i := range e.Elements {
			wmix := q.Elements[i] / (1 - q.Elements[i])
			want := wmix * rv * (p.Elements[i] - saturationVaporPressure(temp.Elements[i])) / rd
			if math.Abs(e.Elements[i]-want)/want > tolerance {
				t.Errorf("element %d: want %g but have %g", i, want, e.Elements[i])
			}
		}
	})

	t.Run("from relative humidity", func(t *testing.T) {
		rh := sparse.ZerosDense(1, 1, 2)
		rh.Elements[0], rh.Elements[1] = 50, 100
		e := vaporPressureFromRH(rh, temp)
		for i := range e.Elements {
			want := rh.Elements[i] / 100 * saturationVaporPressure(temp.Elements[i])
			if math.Abs(e.Elements[i]-want)/want > tolerance {
				t.Errorf("element %d: want %g but have %g", i, want, e.Elements[i])
			}
		}
	})
}

func TestFindVaporPressureUnknownKind(t *testing.T) {
	w := &WeatherData{
		Humidity: "dewpoint",
		P:        sparse.ZerosDense(1, 1, 1),
		T:        sparse.ZerosDense(1, 1, 1),
	}
	err := w.findVaporPressure()
	if err == nil {
		t.Fatal("expected an error for an unknown humidity kind")
	}
	if _, ok := err.(HumidityTypeErr); !ok {
		t.Errorf("want HumidityTypeErr but have %T: %v", err, err)
	}
}

func TestRefractivity(t *testing.T) {
	const tolerance = 1.0e-10
	w := &WeatherData{
		P: sparse.ZerosDense(1, 1, 1),
		T: sparse.ZerosDense(1, 1, 1),
		E: sparse.ZerosDense(1, 1, 1),
	}
	w.P.Elements[0] = 100000
	w.T.Elements[0] = 290
	w.E.Elements[0] = 1200
	w.findRefractivity()

	wantWet := k2*1200/290 + k3*1200/(290*290)
	wantHydro := k1 * 100000 / 290
	if have := w.Wet.Elements[0]; math.Abs(have-wantWet)/wantWet > tolerance {
		t.Errorf("wet refractivity: want %g but have %g", wantWet, have)
	}
	if have := w.Hydro.Elements[0]; math.Abs(have-wantHydro)/wantHydro > tolerance {
		t.Errorf("hydrostatic refractivity: want %g but have %g", wantHydro, have)
	}

	// Model-specific constants override the defaults.
	w.K1, w.K2, w.K3 = 0.8, 0.25, 3.8e3
	w.findRefractivity()
	wantWet = 0.25*1200/290 + 3.8e3*1200/(290*290)
	wantHydro = 0.8 * 100000 / 290
	if have := w.Wet.Elements[0]; math.Abs(have-wantWet)/wantWet > tolerance {
		t.Errorf("wet refractivity with model constants: want %g but have %g", wantWet, have)
	}
	if have := w.Hydro.Elements[0]; math.Abs(have-wantHydro)/wantHydro > tolerance {
		t.Errorf("hydrostatic refractivity with model constants: want %g but have %g", wantHydro, have)
	}
}
