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

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// interp1 linearly interpolates the samples (xs, ys) at x. xs must be
// ascending. Values of x outside the range of xs give NaN rather than an
// extrapolation.
func interp1(xs, ys []float64, x float64) float64 {
	if len(xs) == 0 || x < xs[0] || x > xs[len(xs)-1] {
		return math.NaN()
	}
	i := sort.SearchFloat64s(xs, x)
	if i < len(xs) && xs[i] == x {
		return ys[i]
	}
	// x lies strictly between xs[i-1] and xs[i].
	frac := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + frac*(ys[i]-ys[i-1])
}

// column is a view of one vertical profile of a within the [ny, nx, nz]
// layout, where z is the contiguous last axis.
func column(a *sparse.DenseArray, iy, ix int) []float64 {
	nz := a.Shape[2]
	start := (iy*a.Shape[1] + ix) * nz
	return a.Elements[start : start+nz]
}

// meanLevelHeights returns the mean height of each native model level over
// the horizontal domain, ignoring NaN nodes. It is the default target
// vertical axis for regridding.
func (w *WeatherData) meanLevelHeights() []float64 {
	ny, nx, nz := w.Dims()
	zs := make([]float64, nz)
	for iz := 0; iz < nz; iz++ {
		var sum float64
		var n int
		for iy := 0; iy < ny; iy++ {
			for ix := 0; ix < nx; ix++ {
				v := w.ZNodes.Elements[(iy*nx+ix)*nz+iz]
				if !math.IsNaN(v) {
					sum += v
					n++
				}
			}
		}
		if n == 0 {
			zs[iz] = math.NaN()
		} else {
			zs[iz] = sum / float64(n)
		}
	}
	return zs
}

// regridColumn resamples one column from the source heights zs onto the
// target heights newZs, writing NaN outside the source range.
func regridColumn(zs, vals, newZs, out []float64) {
	// Model levels may be stored top-down; reverse such columns so the
	// interpolation always sees ascending heights.
	if len(zs) > 1 && zs[0] > zs[len(zs)-1] {
		rz := make([]float64, len(zs))
		rv := make([]float64, len(vals))
		for i := range zs {
			rz[len(zs)-1-i] = zs[i]
			rv[len(vals)-1-i] = vals[i]
		}
		zs, vals = rz, rv
	}
	for i, z := range newZs {
		out[i] = interp1(zs, vals, z)
	}
}

// regridUniform resamples every variable from the grid's native, per-column
// vertical levels onto the shared ascending axis zLevels. If zLevels is nil
// the mean height of each native level is used. Values outside a column's
// native range become NaN; they are repaired by fillGaps. The per-node level
// heights are consumed.
func (w *WeatherData) regridUniform(zLevels []float64) error {
	if w.ZNodes == nil {
		return fmt.Errorf("tropo: regridding weather data: per-node level heights are missing")
	}
	if zLevels == nil {
		zLevels = w.meanLevelHeights()
	}
	if !sort.Float64sAreSorted(zLevels) {
		return fmt.Errorf("tropo: regridding weather data: target levels must be ascending")
	}
	ny, nx, _ := w.Dims()
	nzNew := len(zLevels)

	for _, v := range []**sparse.DenseArray{&w.P, &w.T, &w.E, &w.Lats, &w.Lons} {
		if *v == nil {
			continue
		}
		out := sparse.ZerosDense(ny, nx, nzNew)
		for iy := 0; iy < ny; iy++ {
			for ix := 0; ix < nx; ix++ {
				regridColumn(column(w.ZNodes, iy, ix), column(*v, iy, ix),
					zLevels, column(out, iy, ix))
			}
		}
		*v = out
	}
	w.Zs = append([]float64(nil), zLevels...)
	w.ZNodes = nil
	return nil
}

// fillColumnGaps repairs NaN runs in one profile: interior gaps are linearly
// interpolated between the bracketing valid samples and leading or trailing
// gaps take the nearest valid value. An entirely invalid profile is left
// alone.
func fillColumnGaps(zs, vals []float64) {
	first, last := -1, -1
	for i, v := range vals {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return
	}
	for i := 0; i < first; i++ {
		vals[i] = vals[first]
	}
	for i := last + 1; i < len(vals); i++ {
		vals[i] = vals[last]
	}
	for i := first + 1; i < last; i++ {
		if !math.IsNaN(vals[i]) {
			continue
		}
		lo := i - 1
		hi := i
		for math.IsNaN(vals[hi]) {
			hi++
		}
		for j := i; j < hi; j++ {
			frac := (zs[j] - zs[lo]) / (zs[hi] - zs[lo])
			vals[j] = vals[lo] + frac*(vals[hi]-vals[lo])
		}
		i = hi
	}
}

// fillGaps repairs the NaN values that regridding introduced in P, T and E,
// column by column. Columns with no valid data at all stay NaN; they mark
// parts of the domain the model genuinely does not cover.
func (w *WeatherData) fillGaps() {
	ny, nx, _ := w.Dims()
	for _, a := range []*sparse.DenseArray{w.P, w.T, w.E, w.Lats, w.Lons} {
		if a == nil {
			continue
		}
		for iy := 0; iy < ny; iy++ {
			for ix := 0; ix < nx; ix++ {
				fillColumnGaps(w.Zs, column(a, iy, ix))
			}
		}
	}
}

// padLower prepends a copy of each column's lowest level to a.
func padLower(a *sparse.DenseArray) *sparse.DenseArray {
	ny, nx, nz := a.Shape[0], a.Shape[1], a.Shape[2]
	out := sparse.ZerosDense(ny, nx, nz+1)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			src := column(a, iy, ix)
			dst := column(out, iy, ix)
			dst[0] = src[0]
			copy(dst[1:], src)
		}
	}
	return out
}

// padFloor inserts a synthetic level at the integration floor ZMin when the
// lowest shared level lies above it, duplicating each column's lowest
// profile values. This is a floor extension to make the integral start at
// the floor, not a physical extrapolation.
func (w *WeatherData) padFloor() {
	if len(w.Zs) == 0 || w.ZMin >= w.Zs[0] {
		return
	}
	for _, v := range []**sparse.DenseArray{&w.P, &w.T, &w.E, &w.Lats, &w.Lons, &w.Wet, &w.Hydro} {
		if *v == nil {
			continue
		}
		*v = padLower(*v)
	}
	w.Zs = append([]float64{w.ZMin}, w.Zs...)
}

// trimExtent crops the horizontal domain to the grid nodes inside b plus
// nExtra cells of padding on each side, to bound the memory held by the
// prepared grid. Nothing is trimmed if no node falls inside b.
func (w *WeatherData) trimExtent(b *geom.Bounds, nExtra int) {
	ny, nx, _ := w.Dims()
	rowHit := make([]bool, ny)
	colHit := make([]bool, nx)
	any := false
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			lat := w.Lats.Get(iy, ix, 0)
			lon := w.Lons.Get(iy, ix, 0)
			if lat > b.Min.Y && lat < b.Max.Y && lon > b.Min.X && lon < b.Max.X {
				rowHit[iy] = true
				colHit[ix] = true
				any = true
			}
		}
	}
	if !any {
		return
	}
	y0, y1 := hitRange(rowHit, nExtra)
	x0, x1 := hitRange(colHit, nExtra)

	for _, v := range []**sparse.DenseArray{&w.P, &w.T, &w.E, &w.Lats, &w.Lons, &w.Wet, &w.Hydro} {
		if *v == nil {
			continue
		}
		*v = subsetYX(*v, y0, y1, x0, x1)
	}
	if w.Ys != nil {
		w.Ys = append([]float64(nil), w.Ys[y0:y1]...)
	}
	if w.Xs != nil {
		w.Xs = append([]float64(nil), w.Xs[x0:x1]...)
	}
}

// hitRange returns the half-open index range covering the true entries of
// hits, expanded by nExtra on each side and clamped to the slice.
func hitRange(hits []bool, nExtra int) (lo, hi int) {
	lo, hi = len(hits), 0
	for i, h := range hits {
		if h {
			if i < lo {
				lo = i
			}
			hi = i + 1
		}
	}
	lo -= nExtra
	hi += nExtra
	if lo < 0 {
		lo = 0
	}
	if hi > len(hits) {
		hi = len(hits)
	}
	return lo, hi
}

// subsetYX returns the [y0:y1, x0:x1, :] slab of a.
func subsetYX(a *sparse.DenseArray, y0, y1, x0, x1 int) *sparse.DenseArray {
	nz := a.Shape[2]
	out := sparse.ZerosDense(y1-y0, x1-x0, nz)
	for iy := y0; iy < y1; iy++ {
		for ix := x0; ix < x1; ix++ {
			copy(column(out, iy-y0, ix-x0), column(a, iy, ix))
		}
	}
	return out
}
