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
	"context"
	"fmt"
	"math"
	"os"
	"reflect"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Default integration bounds [m]. The floor sits below sea level so that
// low-lying query points stay inside the grid; the ceiling is the nominal
// top of the troposphere.
const (
	defaultZMin = -100
	defaultZMax = 15000
)

func init() {
	RegisterModel("ERA5", func() Model { return new(ERA5) })
	RegisterModel("HRES", func() Model { return new(HRES) })
}

// ERA5 reads the ECMWF ERA5 reanalysis on pressure levels from NetCDF4
// files holding temperature t [K], specific humidity q [kg/kg] and
// geopotential z [m²/s²] on dimensions (time, level, latitude, longitude).
type ERA5 struct {
	// File is an explicit path to a raw ERA5 file. When empty, Fetch
	// expects the conventionally named file to have been staged in the
	// output directory already.
	File string `mapstructure:"file"`
}

// Name implements Model.
func (m *ERA5) Name() string { return "ERA5" }

// ValidRange implements Model: ERA5 is produced from 1950 onward with no
// end date.
func (m *ERA5) ValidRange() (time.Time, time.Time) {
	return time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}
}

// AvailabilityLag implements Model: final ERA5 products lag real time by
// about three months.
func (m *ERA5) AvailabilityLag() time.Duration { return 3 * 30 * 24 * time.Hour }

// Fetch implements Model. Downloading from the Copernicus archive is out
// of scope; Fetch resolves the configured or conventionally named local
// file.
func (m *ERA5) Fetch(ctx context.Context, bounds *geom.Bounds, t time.Time, dir string) (string, error) {
	return resolveRawFile(m.Name(), m.File, dir, t)
}

// LoadWeather implements Model.
func (m *ERA5) LoadWeather(path string) (*WeatherData, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tropo: opening ERA5 file %s: %v", path, err)
	}
	defer nc.Close()

	lats, err := ncAxis(nc, "latitude")
	if err != nil {
		return nil, fmt.Errorf("tropo: reading ERA5 file %s: %v", path, err)
	}
	lons, err := ncAxis(nc, "longitude")
	if err != nil {
		return nil, fmt.Errorf("tropo: reading ERA5 file %s: %v", path, err)
	}
	levels, err := ncAxis(nc, "level") // [hPa]
	if err != nil {
		return nil, fmt.Errorf("tropo: reading ERA5 file %s: %v", path, err)
	}

	w := &WeatherData{
		Humidity: HumidityQ,
		ZMin:     defaultZMin,
		ZMax:     defaultZMax,
	}
	fields := map[string]**sparse.DenseArray{"t": &w.T, "q": &w.Q, "z": &w.ZNodes}
	flipY := len(lats) > 1 && lats[0] > lats[1]
	// Pressure levels ascending in pressure are descending in height.
	flipZ := len(levels) > 1 && levels[0] < levels[1]
	for name, dst := range fields {
		a, err := ncField(nc, name, 3)
		if err != nil {
			return nil, fmt.Errorf("tropo: reading ERA5 file %s: %v", path, err)
		}
		*dst = levToNodeOrder(a, flipY, flipZ)
	}
	// Geopotential to height above the ellipsoid.
	w.ZNodes.Scale(1 / g0)

	ny, nx, nz := len(lats), len(lons), len(levels)
	w.P = sparse.ZerosDense(ny, nx, nz)
	w.Lats = sparse.ZerosDense(ny, nx, nz)
	w.Lons = sparse.ZerosDense(ny, nx, nz)
	w.Ys = orientAxis(lats, flipY)
	w.Xs = orientAxis(lons, false)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			for iz := 0; iz < nz; iz++ {
				lev := iz
				if flipZ {
					lev = nz - 1 - iz
				}
				w.P.Set(levels[lev]*100, iy, ix, iz) // hPa to Pa
				w.Lats.Set(w.Ys[iy], iy, ix, iz)
				w.Lons.Set(w.Xs[ix], iy, ix, iz)
			}
		}
	}
	w.YRes = axisRes(w.Ys)
	w.XRes = axisRes(w.Xs)
	return w, nil
}

// HRES reads the ECMWF HRES analysis on hybrid model levels from NetCDF4
// files holding t and q on dimensions (time, level, latitude, longitude)
// plus the log of surface pressure lnsp, the surface geopotential zs and
// the hybrid coefficient vectors hyai and hybi. Pressure and geopotential
// on the model levels are reconstructed by integrating the hydrostatic
// equation upward from the surface with the moist-temperature correction.
type HRES struct {
	File string `mapstructure:"file"`
}

// Name implements Model.
func (m *HRES) Name() string { return "HRES" }

// ValidRange implements Model.
func (m *HRES) ValidRange() (time.Time, time.Time) {
	return time.Date(1983, 4, 20, 0, 0, 0, 0, time.UTC), time.Time{}
}

// AvailabilityLag implements Model: operational HRES products publish
// within about six hours.
func (m *HRES) AvailabilityLag() time.Duration { return 6 * time.Hour }

// Fetch implements Model.
func (m *HRES) Fetch(ctx context.Context, bounds *geom.Bounds, t time.Time, dir string) (string, error) {
	return resolveRawFile(m.Name(), m.File, dir, t)
}

// LoadWeather implements Model.
func (m *HRES) LoadWeather(path string) (*WeatherData, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tropo: opening HRES file %s: %v", path, err)
	}
	defer nc.Close()

	lats, err := ncAxis(nc, "latitude")
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}
	lons, err := ncAxis(nc, "longitude")
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}
	a, err := ncAxis(nc, "hyai")
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}
	b, err := ncAxis(nc, "hybi")
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}
	t3, err := ncField(nc, "t", 3)
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}
	q3, err := ncField(nc, "q", 3)
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}
	lnsp, err := ncField(nc, "lnsp", 2)
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}
	zsfc, err := ncField(nc, "z", 2)
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}

	p3, h3, err := hybridLevelHeights(t3, q3, lnsp, zsfc, a, b)
	if err != nil {
		return nil, fmt.Errorf("tropo: reading HRES file %s: %v", path, err)
	}

	w := &WeatherData{
		Humidity: HumidityQ,
		ZMin:     defaultZMin,
		ZMax:     defaultZMax,
	}
	flipY := len(lats) > 1 && lats[0] > lats[1]
	// Hybrid model levels number from the top of the atmosphere down.
	w.T = levToNodeOrder(t3, flipY, true)
	w.Q = levToNodeOrder(q3, flipY, true)
	w.P = levToNodeOrder(p3, flipY, true)
	w.ZNodes = levToNodeOrder(h3, flipY, true)

	ny, nx, nz := w.T.Shape[0], w.T.Shape[1], w.T.Shape[2]
	w.Lats = sparse.ZerosDense(ny, nx, nz)
	w.Lons = sparse.ZerosDense(ny, nx, nz)
	w.Ys = orientAxis(lats, flipY)
	w.Xs = orientAxis(lons, false)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			for iz := 0; iz < nz; iz++ {
				w.Lats.Set(w.Ys[iy], iy, ix, iz)
				w.Lons.Set(w.Xs[ix], iy, ix, iz)
			}
		}
	}
	w.YRes = axisRes(w.Ys)
	w.XRes = axisRes(w.Xs)
	return w, nil
}

// hybridLevelHeights reconstructs pressure [Pa] and height [m] on hybrid
// model levels from temperature t and specific humidity q (shape
// [nlev, ny, nx], level 0 at the top of the atmosphere), the log of
// surface pressure lnsp and the surface geopotential zsfc (shape
// [ny, nx]), and the half-level coefficient vectors a [Pa] and b, each of
// length nlev+1. It integrates the hydrostatic equation from the surface
// upward using the moist temperature Tv = T·(1 + 0.609133·q).
func hybridLevelHeights(t, q, lnsp, zsfc *sparse.DenseArray, a, b []float64) (p, h *sparse.DenseArray, err error) {
	nlev := t.Shape[0]
	ny, nx := t.Shape[1], t.Shape[2]
	if len(a) != nlev+1 || len(b) != nlev+1 {
		return nil, nil, fmt.Errorf("model has %d levels but %d and %d hybrid coefficients; the coefficient vectors must have one more entry than there are levels",
			nlev, len(a), len(b))
	}
	p = sparse.ZerosDense(nlev, ny, nx)
	h = sparse.ZerosDense(nlev, ny, nx)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			sp := math.Exp(lnsp.Get(iy, ix))
			zs := zsfc.Get(iy, ix)
			zh := 0.0 // geopotential above the surface at the half level below
			for lev := nlev; lev >= 1; lev-- {
				ilev := lev - 1
				tv := t.Get(ilev, iy, ix) * (1 + 0.609133*q.Get(ilev, iy, ix))
				phBelow := a[lev] + b[lev]*sp
				phAbove := a[lev-1] + b[lev-1]*sp
				p.Set((phAbove+phBelow)/2, ilev, iy, ix)

				var dlogP, alpha float64
				if lev == 1 {
					dlogP = math.Log(phBelow / 0.1)
					alpha = math.Ln2
				} else {
					dlogP = math.Log(phBelow / phAbove)
					alpha = 1 - phAbove/(phBelow-phAbove)*dlogP
				}
				trd := tv * rd
				h.Set((zh+trd*alpha+zs)/g0, ilev, iy, ix)
				zh += trd * dlogP
			}
		}
	}
	return p, h, nil
}

// resolveRawFile returns the configured raw-file path, or else the
// conventionally named staged file under dir.
func resolveRawFile(model, configured, dir string, t time.Time) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("tropo: raw %s file %s: %v", model, configured, err)
		}
		return configured, nil
	}
	p := rawFileName(dir, model, t)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("tropo: no raw %s data for %v: stage it at %s or configure an explicit file path",
			model, t.Format(time.RFC3339), p)
	}
	return p, nil
}

// ncAxis reads a 1-D coordinate variable.
func ncAxis(nc api.Group, name string) ([]float64, error) {
	a, err := ncRead(nc, name)
	if err != nil {
		return nil, err
	}
	if len(a.Shape) != 1 {
		return nil, fmt.Errorf("variable %s has shape %v but must be one-dimensional", name, a.Shape)
	}
	return a.Elements, nil
}

// ncField reads a gridded variable of the given rank, dropping a leading
// time dimension by taking its first record.
func ncField(nc api.Group, name string, rank int) (*sparse.DenseArray, error) {
	a, err := ncRead(nc, name)
	if err != nil {
		return nil, err
	}
	if len(a.Shape) == rank+1 {
		n := len(a.Elements) / a.Shape[0]
		out := sparse.ZerosDense(a.Shape[1:]...)
		copy(out.Elements, a.Elements[:n])
		return out, nil
	}
	if len(a.Shape) != rank {
		return nil, fmt.Errorf("variable %s has shape %v but %d dimensions are required", name, a.Shape, rank)
	}
	return a, nil
}

// ncRead reads a whole NetCDF4 variable into a dense array, flattening
// whatever numeric type and nesting depth the file stores.
func ncRead(nc api.Group, name string) (*sparse.DenseArray, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", name, err)
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", name, err)
	}
	shape, elems, err := flattenNumeric(reflect.ValueOf(vals))
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", name, err)
	}
	a := sparse.ZerosDense(shape...)
	copy(a.Elements, elems)
	return a, nil
}

// flattenNumeric converts an arbitrarily nested numeric slice to its shape
// and flattened float64 values.
func flattenNumeric(v reflect.Value) ([]int, []float64, error) {
	if v.Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("unexpected value of type %s", v.Type())
	}
	var shape []int
	for t := v; t.Kind() == reflect.Slice; {
		shape = append(shape, t.Len())
		if t.Len() == 0 {
			break
		}
		t = t.Index(0)
	}
	var elems []float64
	var walk func(reflect.Value) error
	walk = func(s reflect.Value) error {
		for i := 0; i < s.Len(); i++ {
			e := s.Index(i)
			switch e.Kind() {
			case reflect.Slice:
				if err := walk(e); err != nil {
					return err
				}
			case reflect.Float32, reflect.Float64:
				elems = append(elems, e.Float())
			case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				elems = append(elems, float64(e.Int()))
			case reflect.Uint8, reflect.Uint16, reflect.Uint32:
				elems = append(elems, float64(e.Uint()))
			default:
				return fmt.Errorf("unexpected element of type %s", e.Type())
			}
		}
		return nil
	}
	if err := walk(v); err != nil {
		return nil, nil, err
	}
	return shape, elems, nil
}

// levToNodeOrder transposes a [nlev, ny, nx] field to the [ny, nx, nz] node
// layout, optionally flipping the y axis (descending-latitude files) and
// the level axis (top-down level order) so both end up ascending.
func levToNodeOrder(a *sparse.DenseArray, flipY, flipZ bool) *sparse.DenseArray {
	nz, ny, nx := a.Shape[0], a.Shape[1], a.Shape[2]
	out := sparse.ZerosDense(ny, nx, nz)
	for iy := 0; iy < ny; iy++ {
		srcY := iy
		if flipY {
			srcY = ny - 1 - iy
		}
		for ix := 0; ix < nx; ix++ {
			for iz := 0; iz < nz; iz++ {
				srcZ := iz
				if flipZ {
					srcZ = nz - 1 - iz
				}
				out.Set(a.Get(srcZ, srcY, ix), iy, ix, iz)
			}
		}
	}
	return out
}

// orientAxis returns the axis values in ascending order.
func orientAxis(axis []float64, flip bool) []float64 {
	out := make([]float64, len(axis))
	if !flip {
		copy(out, axis)
		return out
	}
	for i, v := range axis {
		out[len(axis)-1-i] = v
	}
	return out
}

// axisRes returns the median absolute spacing of an axis.
func axisRes(axis []float64) float64 {
	if len(axis) < 2 {
		return 0
	}
	return math.Abs(axis[1] - axis[0])
}
