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
	"sort"

	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// gridInterpolator evaluates refractivity at arbitrary points of a prepared
// weather grid by trilinear interpolation over the grid axes. Points outside
// the grid domain evaluate to NaN rather than an error; the NaN propagates
// through integration as a missing delay. A gridInterpolator is read-only
// and safe for concurrent use.
type gridInterpolator struct {
	w      *WeatherData
	toGrid proj.Transformer // geographic to native grid; nil for geographic grids
}

// newInterpolator returns an interpolator over w, which must have completed
// the preparation pipeline.
func (w *WeatherData) newInterpolator() (*gridInterpolator, error) {
	if w.Wet == nil || w.Hydro == nil || len(w.Zs) == 0 {
		return nil, fmt.Errorf("tropo: weather data for %s at %v has not been prepared", w.Model, w.Time)
	}
	g := &gridInterpolator{w: w}
	if w.Proj != "" {
		gridSR, err := w.SpatialRef()
		if err != nil {
			return nil, err
		}
		longLat, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
		if err != nil {
			return nil, fmt.Errorf("tropo: parsing geographic projection: %v", err)
		}
		g.toGrid, err = longLat.NewTransform(gridSR)
		if err != nil {
			return nil, fmt.Errorf("tropo: creating weather grid transform: %v", err)
		}
	}
	return g, nil
}

// wetPPM evaluates wet refractivity [ppm] at ECEF positions (flattened
// x, y, z triples), writing one value per position into out.
func (g *gridInterpolator) wetPPM(positions, out []float64) {
	g.evaluate(g.w.Wet, positions, out)
}

// hydroPPM evaluates hydrostatic refractivity [ppm] at ECEF positions.
func (g *gridInterpolator) hydroPPM(positions, out []float64) {
	g.evaluate(g.w.Hydro, positions, out)
}

func (g *gridInterpolator) evaluate(field *sparse.DenseArray, positions, out []float64) {
	for i := range out {
		out[i] = g.at(field, positions[3*i], positions[3*i+1], positions[3*i+2])
	}
}

// at returns the trilinear interpolation of field at the ECEF point
// (ex, ey, ez), or NaN if the point lies outside the grid domain.
func (g *gridInterpolator) at(field *sparse.DenseArray, ex, ey, ez float64) float64 {
	lat, lon, h := ecefToLLA(ex, ey, ez)
	gx, gy := lon, lat
	if g.toGrid != nil {
		var err error
		gx, gy, err = g.toGrid(lon, lat)
		if err != nil {
			return math.NaN()
		}
	}
	ix, fx, ok := axisLocate(g.w.Xs, gx)
	if !ok {
		return math.NaN()
	}
	iy, fy, ok := axisLocate(g.w.Ys, gy)
	if !ok {
		return math.NaN()
	}
	iz, fz, ok := axisLocate(g.w.Zs, h)
	if !ok {
		return math.NaN()
	}

	c00 := lerp(field.Get(iy, ix, iz), field.Get(iy, ix+1, iz), fx)
	c10 := lerp(field.Get(iy+1, ix, iz), field.Get(iy+1, ix+1, iz), fx)
	c01 := lerp(field.Get(iy, ix, iz+1), field.Get(iy, ix+1, iz+1), fx)
	c11 := lerp(field.Get(iy+1, ix, iz+1), field.Get(iy+1, ix+1, iz+1), fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

func lerp(a, b, f float64) float64 { return a + f*(b-a) }

// axisLocate finds the cell of the ascending axis containing v, returning
// the lower cell index and the fractional position within the cell. ok is
// false when v falls outside the axis range. Values within round-off of the
// axis ends are clamped, so a ray ending exactly at the grid top does not
// fall out of the domain from the ECEF round trip.
func axisLocate(axis []float64, v float64) (i int, frac float64, ok bool) {
	n := len(axis)
	if n < 2 {
		return 0, 0, false
	}
	eps := 1e-6 * (axis[n-1] - axis[0])
	if v < axis[0]-eps || v > axis[n-1]+eps {
		return 0, 0, false
	}
	if v < axis[0] {
		v = axis[0]
	} else if v > axis[n-1] {
		v = axis[n-1]
	}
	i = sort.SearchFloat64s(axis, v)
	if i > 0 {
		i--
	}
	if i == n-1 {
		i--
	}
	frac = (v - axis[i]) / (axis[i+1] - axis[i])
	return i, frac, true
}
