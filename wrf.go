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
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

func init() {
	RegisterModel("WRF", func() Model { return new(WRF) })
}

// WRF reads wrfout files produced by the Weather Research and Forecasting
// model: pressure from the perturbation and base-state components P + PB,
// temperature from the perturbation potential temperature T, humidity from
// the QVAPOR mixing ratio and level heights from the destaggered
// geopotential (PH + PHB)/g0. The native horizontal grid is the model's
// projected grid, reconstructed from the file's global attributes.
type WRF struct {
	// File is an explicit path to a wrfout file. When empty, Fetch
	// expects the conventionally named file to have been staged in the
	// output directory already.
	File string `mapstructure:"file"`
}

// Name implements Model.
func (m *WRF) Name() string { return "WRF" }

// ValidRange implements Model: wrfout files are user-supplied simulation
// output, so any time is acceptable.
func (m *WRF) ValidRange() (time.Time, time.Time) {
	return time.Time{}, time.Time{}
}

// AvailabilityLag implements Model.
func (m *WRF) AvailabilityLag() time.Duration { return 0 }

// Fetch implements Model.
func (m *WRF) Fetch(ctx context.Context, bounds *geom.Bounds, t time.Time, dir string) (string, error) {
	return resolveRawFile(m.Name(), m.File, dir, t)
}

// LoadWeather implements Model.
func (m *WRF) LoadWeather(path string) (*WeatherData, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tropo: opening WRF file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("tropo: opening WRF file %s: %v", path, err)
	}

	vars := make(map[string]*sparse.DenseArray)
	for _, name := range []string{"P", "PB", "T", "QVAPOR", "PH", "PHB", "XLAT", "XLONG"} {
		vars[name], err = readWRFVar(f, name)
		if err != nil {
			return nil, fmt.Errorf("tropo: reading WRF file %s: %v", path, err)
		}
	}

	// Pressure is perturbation plus base state [Pa].
	pres := vars["P"].Copy()
	pres.AddDense(vars["PB"])

	// Temperature from perturbation potential temperature.
	temp := sparse.ZerosDense(pres.Shape...)
	for i, tp := range vars["T"].Elements {
		temp.Elements[i] = thetaPerturbToTemperature(tp, pres.Elements[i])
	}

	// QVAPOR is a mixing ratio; specific humidity is w/(1+w).
	q := sparse.ZerosDense(pres.Shape...)
	for i, wmix := range vars["QVAPOR"].Elements {
		q.Elements[i] = wmix / (1 + wmix)
	}

	heights := wrfLayerHeights(vars["PH"], vars["PHB"])

	w := &WeatherData{
		Humidity: HumidityQ,
		ZMin:     defaultZMin,
		ZMax:     defaultZMax,
	}
	w.P = levToNodeOrder(pres, false, false)
	w.T = levToNodeOrder(temp, false, false)
	w.Q = levToNodeOrder(q, false, false)
	w.ZNodes = levToNodeOrder(heights, false, false)

	ny, nx, nz := w.P.Shape[0], w.P.Shape[1], w.P.Shape[2]
	w.Lats = sparse.ZerosDense(ny, nx, nz)
	w.Lons = sparse.ZerosDense(ny, nx, nz)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			lat := vars["XLAT"].Get(iy, ix)
			lon := vars["XLONG"].Get(iy, ix)
			for iz := 0; iz < nz; iz++ {
				w.Lats.Set(lat, iy, ix, iz)
				w.Lons.Set(lon, iy, ix, iz)
			}
		}
	}

	if err := m.readProjection(f, w, ny, nx); err != nil {
		return nil, fmt.Errorf("tropo: reading WRF file %s: %v", path, err)
	}
	return w, nil
}

// readProjection reconstructs the native projected grid axes from the
// wrfout global attributes. Only Lambert conformal conic grids (MAP_PROJ
// 1) are supported; WRF's map projections use a spherical earth of radius
// 6370 km.
func (m *WRF) readProjection(f *cdf.File, w *WeatherData, ny, nx int) error {
	mapProj := int(wrfAttr(f, "MAP_PROJ"))
	if mapProj != 1 {
		return fmt.Errorf("unsupported map projection %d; only Lambert conformal conic (1) is supported", mapProj)
	}
	dx := wrfAttr(f, "DX")
	dy := wrfAttr(f, "DY")
	w.Proj = fmt.Sprintf("+proj=lcc +lat_1=%g +lat_2=%g +lat_0=%g +lon_0=%g +x_0=0 +y_0=0 +a=6370000 +b=6370000 +to_meter=1",
		wrfAttr(f, "TRUELAT1"), wrfAttr(f, "TRUELAT2"),
		wrfAttr(f, "MOAD_CEN_LAT"), wrfAttr(f, "STAND_LON"))
	w.XRes = dx
	w.YRes = dy
	// The grid is centered on the projection origin.
	w.Xs = make([]float64, nx)
	for i := range w.Xs {
		w.Xs[i] = dx * (float64(i) - float64(nx-1)/2)
	}
	w.Ys = make([]float64, ny)
	for i := range w.Ys {
		w.Ys[i] = dy * (float64(i) - float64(ny-1)/2)
	}
	return nil
}

// wrfLayerHeights converts the staggered perturbation and base-state
// geopotentials [m²/s²] to heights above the ellipsoid [m] on the
// unstaggered mass levels.
func wrfLayerHeights(ph, phb *sparse.DenseArray) *sparse.DenseArray {
	nzStag, ny, nx := ph.Shape[0], ph.Shape[1], ph.Shape[2]
	out := sparse.ZerosDense(nzStag-1, ny, nx)
	for k := 0; k < nzStag-1; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				below := (ph.Get(k, j, i) + phb.Get(k, j, i)) / g0
				above := (ph.Get(k+1, j, i) + phb.Get(k+1, j, i)) / g0
				out.Set((below+above)/2, k, j, i)
			}
		}
	}
	return out
}

// thetaPerturbToTemperature converts WRF perturbation potential
// temperature [K] at pressure p [Pa] to absolute temperature [K].
func thetaPerturbToTemperature(thetaPerturb, p float64) float64 {
	const (
		po    = 101300. // Pa, reference pressure
		kappa = 0.2854
	)
	θ := thetaPerturb + 300
	return θ * math.Pow(p/po, kappa)
}

// readWRFVar reads the first time record of a wrfout variable.
func readWRFVar(f *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %v is not in the file", name)
	}
	dims = dims[1:] // drop the Time dimension
	nread := 1
	for _, d := range dims {
		nread *= d
	}
	start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
	start[0], end[0] = 0, 1
	for i, d := range dims {
		end[i+1] = d
	}
	r := f.Reader(name, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	switch vals := buf.(type) {
	case []float32:
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	case []float64:
		copy(data.Elements, vals)
	default:
		return nil, fmt.Errorf("variable %s has unexpected type %T", name, buf)
	}
	return data, nil
}

// wrfAttr returns a numeric global attribute of a wrfout file, or NaN if
// it is missing.
func wrfAttr(f *cdf.File, name string) float64 {
	switch v := f.Header.GetAttribute("", name).(type) {
	case []float32:
		if len(v) > 0 {
			return float64(v[0])
		}
	case []float64:
		if len(v) > 0 {
			return v[0]
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0])
		}
	}
	return math.NaN()
}
