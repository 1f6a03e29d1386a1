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

import "github.com/ctessum/sparse"

// computeZTD fills WetZTD and HydroZTD with the zenith delay [m] from each
// stored level up to the top of the stored column: the cumulative trapezoid
// of refractivity over height, scaled by 1e-6. The top level's total is zero
// and NaN refractivity anywhere in a column's tail propagates NaN downward.
// These totals are the authoritative zenith baseline: a ray-traced zenith
// delay converges to them as the sample step shrinks.
func (w *WeatherData) computeZTD() {
	w.WetZTD = cumulativeZenith(w.Wet, w.Zs)
	w.HydroZTD = cumulativeZenith(w.Hydro, w.Zs)
}

func cumulativeZenith(n *sparse.DenseArray, zs []float64) *sparse.DenseArray {
	ny, nx, nz := n.Shape[0], n.Shape[1], n.Shape[2]
	out := sparse.ZerosDense(ny, nx, nz)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			prof := column(n, iy, ix)
			tot := column(out, iy, ix)
			tot[nz-1] = 0
			for iz := nz - 2; iz >= 0; iz-- {
				tot[iz] = tot[iz+1] +
					1e-6*0.5*(prof[iz]+prof[iz+1])*(zs[iz+1]-zs[iz])
			}
		}
	}
	return out
}
