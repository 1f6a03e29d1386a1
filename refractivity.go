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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// physical constants
const (
	k1 = 0.776   // refractivity constant [K/Pa]
	k2 = 0.233   // refractivity constant [K/Pa]
	k3 = 3.75e3  // refractivity constant [K^2/Pa]
	rd = 287.06  // specific gas constant of dry air [J/(kg K)]
	rv = 461.524 // specific gas constant of water vapor [J/(kg K)]
	g0 = 9.80665 // standard gravity [m/s2]
)

// Humidity variable kinds a weather model reader can provide.
const (
	HumidityQ  = "q"  // specific humidity [kg/kg]
	HumidityRH = "rh" // relative humidity [percent]
)

// saturationVaporPressure returns the saturation vapor pressure [Pa] at
// temperature t [K], using the Buck equation over water and the
// Alduchov-Eskridge equation over ice, blended quadratically between
// -23 °C and 0 °C so the result is continuous at both edges.
func saturationVaporPressure(t float64) float64 {
	const (
		t1 = 273.15 // 0 °C
		t2 = 250.15 // -23 °C
	)
	tref := t - t1
	svpw := 6.1121 * math.Exp(17.502*tref/(240.97+tref))
	svpi := 6.1121 * math.Exp(22.587*tref/(273.86+tref))
	var svp float64
	switch {
	case t > t1:
		svp = svpw
	case t < t2:
		svp = svpi
	default:
		// NaN temperatures fall through to here and propagate.
		wgt := (t - t2) / (t1 - t2)
		svp = svpi + (svpw-svpi)*wgt*wgt
	}
	return svp * 100 // hPa to Pa
}

// vaporPressureFromQ converts specific humidity q [kg/kg] to water vapor
// partial pressure [Pa] given total pressure p [Pa] and temperature t [K].
func vaporPressureFromQ(q, p, t *sparse.DenseArray) *sparse.DenseArray {
	e := sparse.ZerosDense(q.Shape...)
	for ii, qv := range q.Elements {
		svp := saturationVaporPressure(t.Elements[ii])
		wmix := qv / (1 - qv) // mixing ratio
		e.Elements[ii] = wmix * rv * (p.Elements[ii] - svp) / rd
	}
	return e
}

// vaporPressureFromRH converts relative humidity rh [percent] to water vapor
// partial pressure [Pa] given temperature t [K].
func vaporPressureFromRH(rh, t *sparse.DenseArray) *sparse.DenseArray {
	e := sparse.ZerosDense(rh.Shape...)
	for ii, rhv := range rh.Elements {
		e.Elements[ii] = rhv / 100 * saturationVaporPressure(t.Elements[ii])
	}
	return e
}

// wetRefractivity returns k2·e/t + k3·e/t² [ppm] for water vapor partial
// pressure e [Pa] and temperature t [K].
func wetRefractivity(e, t *sparse.DenseArray, k2, k3 float64) *sparse.DenseArray {
	n := sparse.ZerosDense(e.Shape...)
	for ii, ev := range e.Elements {
		tv := t.Elements[ii]
		n.Elements[ii] = k2*ev/tv + k3*ev/(tv*tv)
	}
	return n
}

// hydrostaticRefractivity returns k1·p/t [ppm] for total pressure p [Pa] and
// temperature t [K].
func hydrostaticRefractivity(p, t *sparse.DenseArray, k1 float64) *sparse.DenseArray {
	n := sparse.ZerosDense(p.Shape...)
	for ii, pv := range p.Elements {
		n.Elements[ii] = k1 * pv / t.Elements[ii]
	}
	return n
}

// findVaporPressure computes the water vapor partial pressure field from
// whichever humidity variable the model reader provided, consuming it.
// An unrecognized humidity kind is a fatal error.
func (w *WeatherData) findVaporPressure() error {
	switch w.Humidity {
	case HumidityQ:
		if err := matchShapes(w.P.Shape, map[string]*sparse.DenseArray{"Q": w.Q, "T": w.T}); err != nil {
			return fmt.Errorf("tropo: computing vapor pressure: %v", err)
		}
		w.E = vaporPressureFromQ(w.Q, w.P, w.T)
	case HumidityRH:
		if err := matchShapes(w.P.Shape, map[string]*sparse.DenseArray{"RH": w.RH, "T": w.T}); err != nil {
			return fmt.Errorf("tropo: computing vapor pressure: %v", err)
		}
		w.E = vaporPressureFromRH(w.RH, w.T)
	default:
		return HumidityTypeErr{Kind: w.Humidity}
	}
	w.Q = nil
	w.RH = nil
	return nil
}

// findRefractivity computes the wet and hydrostatic refractivity fields from
// the pressure, temperature and vapor pressure fields, using the model's
// calibrated constants where the reader set them.
func (w *WeatherData) findRefractivity() {
	k1v, k2v, k3v := w.K1, w.K2, w.K3
	if k1v == 0 {
		k1v = k1
	}
	if k2v == 0 {
		k2v = k2
	}
	if k3v == 0 {
		k3v = k3
	}
	w.Wet = wetRefractivity(w.E, w.T, k2v, k3v)
	w.Hydro = hydrostaticRefractivity(w.P, w.T, k1v)
}

// matchShapes returns a ShapeErr if any of the named arrays is nil or does
// not have the reference shape.
func matchShapes(want []int, arrays map[string]*sparse.DenseArray) error {
	for name, a := range arrays {
		if a == nil {
			return ShapeErr{Name: name, Want: fmt.Sprintf("%v", want), Have: nil}
		}
		if len(a.Shape) != len(want) {
			return ShapeErr{Name: name, Want: fmt.Sprintf("%v", want), Have: a.Shape}
		}
		for ii, n := range want {
			if a.Shape[ii] != n {
				return ShapeErr{Name: name, Want: fmt.Sprintf("%v", want), Have: a.Shape}
			}
		}
	}
	return nil
}
