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
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// WeatherData holds one timestamp of weather model output on a [ny, nx, nz]
// node grid, along with the refractivity and zenith-delay fields derived
// from it. Model readers fill in the raw fields (P, T, one of Q or RH,
// Lats, Lons, ZNodes and the axes); Prepare then runs the grid preparation
// pipeline which populates E, Wet, Hydro, WetZTD and HydroZTD and replaces
// the per-node level heights with the shared vertical axis Zs.
type WeatherData struct {
	// Model is the name of the weather model this data came from.
	Model string
	// Time is the timestamp the data is valid for.
	Time time.Time

	// Humidity is the humidity variable kind the model reader provides,
	// either HumidityQ or HumidityRH. It determines how the water vapor
	// partial pressure is computed.
	Humidity string

	// Proj is the Proj4 specification of the native horizontal grid.
	// The empty string means the grid is in geographic (longitude,
	// latitude) coordinates.
	Proj string

	// Ys and Xs are the native horizontal grid axes (degrees for
	// geographic grids, meters for projected grids), both ascending.
	// Zs is the shared vertical axis [m], ascending; it is only set
	// once the grid has been regridded onto uniform levels.
	Ys, Xs, Zs []float64

	// YRes and XRes are the native horizontal grid resolutions in the
	// units of Ys and Xs.
	YRes, XRes float64

	// ZMin is the integration floor [m]: the grid is padded down to this
	// height if the model levels do not reach it. ZMax is the default
	// reference height [m] for zenith totals.
	ZMin, ZMax float64

	// Refractivity constants calibrated for this model. Zero values fall
	// back to the package defaults.
	K1, K2, K3 float64

	// Lats and Lons give the geodetic coordinates of every grid node
	// [degrees], shape [ny, nx, nz].
	Lats, Lons *sparse.DenseArray

	// ZNodes gives the height above the ellipsoid of every node [m] on
	// the model's native levels, shape [ny, nx, nz]. It is consumed by
	// regridding and is nil afterwards.
	ZNodes *sparse.DenseArray

	// P is pressure [Pa], T is temperature [K] and E is water vapor
	// partial pressure [Pa], shape [ny, nx, nz]. E is derived from Q or
	// RH during preparation.
	P, T, E *sparse.DenseArray

	// Q is specific humidity [kg/kg] and RH is relative humidity
	// [percent]; a reader sets whichever one matches Humidity. Both are
	// consumed when E is computed.
	Q, RH *sparse.DenseArray

	// Wet and Hydro are the wet and hydrostatic refractivity [ppm],
	// shape [ny, nx, nz].
	Wet, Hydro *sparse.DenseArray

	// WetZTD and HydroZTD give, for every node, the zenith delay [m]
	// from that node's level up to the top of the stored column.
	WetZTD, HydroZTD *sparse.DenseArray
}

// Dims returns the grid dimensions (ny, nx, nz).
func (w *WeatherData) Dims() (ny, nx, nz int) {
	return w.P.Shape[0], w.P.Shape[1], w.P.Shape[2]
}

// SpatialRef returns the spatial reference of the native horizontal grid,
// or nil if the grid is geographic.
func (w *WeatherData) SpatialRef() (*proj.SR, error) {
	if w.Proj == "" {
		return nil, nil
	}
	sr, err := proj.Parse(w.Proj)
	if err != nil {
		return nil, fmt.Errorf("tropo: parsing weather grid projection %q: %v", w.Proj, err)
	}
	return sr, nil
}

// Bounds returns the geographic bounding box of the grid nodes.
func (w *WeatherData) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for i, lat := range w.Lats.Elements {
		lon := w.Lons.Elements[i]
		if math.IsNaN(lat) || math.IsNaN(lon) {
			continue
		}
		if lon < b.Min.X {
			b.Min.X = lon
		}
		if lon > b.Max.X {
			b.Max.X = lon
		}
		if lat < b.Min.Y {
			b.Min.Y = lat
		}
		if lat > b.Max.Y {
			b.Max.Y = lat
		}
	}
	return b
}

// checkNodeShapes returns an error unless all node arrays a reader must
// supply are present and share the same shape.
func (w *WeatherData) checkNodeShapes() error {
	if w.P == nil || len(w.P.Shape) != 3 {
		var have []int
		if w.P != nil {
			have = w.P.Shape
		}
		return ShapeErr{Name: "P", Want: "[ny nx nz]", Have: have}
	}
	arrays := map[string]*sparse.DenseArray{
		"T":      w.T,
		"Lats":   w.Lats,
		"Lons":   w.Lons,
		"ZNodes": w.ZNodes,
	}
	switch w.Humidity {
	case HumidityQ:
		arrays["Q"] = w.Q
	case HumidityRH:
		arrays["RH"] = w.RH
	}
	return matchShapes(w.P.Shape, arrays)
}

// paddedBounds returns b grown by the given margins on every side.
func paddedBounds(b *geom.Bounds, dy, dx float64) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.Min.X - dx, Y: b.Min.Y - dy},
		Max: geom.Point{X: b.Max.X + dx, Y: b.Max.Y + dy},
	}
}
