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
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// weatherTimeFormat is the timestamp layout used in prepared-grid
// filenames.
const weatherTimeFormat = "2006_01_02_T15_04_05"

// weatherFileName returns the cache filename for a prepared weather grid,
// keyed by model name, valid time and the query bounding box rounded up to
// whole degrees with hemisphere letters.
func weatherFileName(model string, t time.Time, bounds *geom.Bounds) string {
	hemi := func(v float64, pos, neg string) string {
		if v < 0 {
			return neg
		}
		return pos
	}
	return fmt.Sprintf("%s_%s_%.0f%s_%.0f%s_%.0f%s_%.0f%s.nc",
		model, t.UTC().Format(weatherTimeFormat),
		math.Ceil(math.Abs(bounds.Min.Y)), hemi(bounds.Min.Y, "N", "S"),
		math.Ceil(math.Abs(bounds.Max.Y)), hemi(bounds.Max.Y, "N", "S"),
		math.Ceil(math.Abs(bounds.Min.X)), hemi(bounds.Min.X, "E", "W"),
		math.Ceil(math.Abs(bounds.Max.X)), hemi(bounds.Max.X, "E", "W"))
}

// rawFileName returns the staging filename for raw (unprepared) weather
// model output.
func rawFileName(dir, model string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.nc", model, t.UTC().Format(weatherTimeFormat)))
}

// weatherGridVars lists the 3-D node variables a prepared-grid file holds,
// in storage order.
var weatherGridVars = []string{"P", "T", "E", "Wet", "Hydro", "WetZTD", "HydroZTD", "lats", "lons"}

func (w *WeatherData) gridVar(name string) **sparse.DenseArray {
	switch name {
	case "P":
		return &w.P
	case "T":
		return &w.T
	case "E":
		return &w.E
	case "Wet":
		return &w.Wet
	case "Hydro":
		return &w.Hydro
	case "WetZTD":
		return &w.WetZTD
	case "HydroZTD":
		return &w.HydroZTD
	case "lats":
		return &w.Lats
	case "lons":
		return &w.Lons
	}
	panic(fmt.Sprintf("tropo: unknown weather grid variable %q", name))
}

// WriteWeatherData persists a prepared weather grid as a classic NetCDF
// file.
func WriteWeatherData(path string, w *WeatherData) error {
	ny, nx, nz := w.Dims()
	h := cdf.NewHeader([]string{"y", "x", "z"}, []int{ny, nx, nz})
	h.AddAttribute("", "model", w.Model)
	h.AddAttribute("", "time", w.Time.UTC().Format(time.RFC3339))
	h.AddAttribute("", "projection", w.Proj)
	h.AddAttribute("", "data_version", GridDataVersion)
	h.AddAttribute("", "yres", []float64{w.YRes})
	h.AddAttribute("", "xres", []float64{w.XRes})
	h.AddAttribute("", "zmin", []float64{w.ZMin})
	h.AddAttribute("", "zmax", []float64{w.ZMax})

	for _, name := range weatherGridVars {
		h.AddVariable(name, []string{"y", "x", "z"}, []float64{0})
	}
	h.AddVariable("ys", []string{"y"}, []float64{0})
	h.AddVariable("xs", []string{"x"}, []float64{0})
	h.AddVariable("zs", []string{"z"}, []float64{0})
	h.AddAttribute("zs", "units", "m")
	h.AddAttribute("P", "units", "Pa")
	h.AddAttribute("T", "units", "K")
	h.AddAttribute("E", "units", "Pa")
	h.AddAttribute("Wet", "units", "ppm")
	h.AddAttribute("Hydro", "units", "ppm")
	h.AddAttribute("WetZTD", "units", "m")
	h.AddAttribute("HydroZTD", "units", "m")
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("tropo: creating weather grid file %s: %v", path, err)
	}

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tropo: creating weather grid file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("tropo: creating weather grid file %s: %v", path, err)
	}

	for _, name := range weatherGridVars {
		a := *w.gridVar(name)
		wr := f.Writer(name, []int{0, 0, 0}, []int{ny, nx, nz})
		if _, err := wr.Write(a.Elements); err != nil {
			return fmt.Errorf("tropo: writing weather grid variable %s: %v", name, err)
		}
	}
	for name, vals := range map[string][]float64{"ys": w.Ys, "xs": w.Xs, "zs": w.Zs} {
		wr := f.Writer(name, []int{0}, []int{len(vals)})
		if _, err := wr.Write(vals); err != nil {
			return fmt.Errorf("tropo: writing weather grid axis %s: %v", name, err)
		}
	}
	return nil
}

// ReadWeatherData reads back a prepared weather grid written by
// WriteWeatherData.
func ReadWeatherData(path string) (*WeatherData, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tropo: opening weather grid file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Open(ff)
	if err != nil {
		return nil, fmt.Errorf("tropo: opening weather grid file %s: %v", path, err)
	}

	w := new(WeatherData)
	if v, ok := f.Header.GetAttribute("", "data_version").(string); !ok || v != GridDataVersion {
		return nil, fmt.Errorf("tropo: weather grid file %s has data version %v but version %s is required; delete it to regenerate",
			path, f.Header.GetAttribute("", "data_version"), GridDataVersion)
	}
	w.Model, _ = f.Header.GetAttribute("", "model").(string)
	w.Proj, _ = f.Header.GetAttribute("", "projection").(string)
	if s, ok := f.Header.GetAttribute("", "time").(string); ok {
		if w.Time, err = time.Parse(time.RFC3339, s); err != nil {
			return nil, fmt.Errorf("tropo: weather grid file %s has an invalid timestamp: %v", path, err)
		}
	}
	for attr, dst := range map[string]*float64{"yres": &w.YRes, "xres": &w.XRes, "zmin": &w.ZMin, "zmax": &w.ZMax} {
		if v, ok := f.Header.GetAttribute("", attr).([]float64); ok && len(v) == 1 {
			*dst = v[0]
		}
	}

	for _, name := range weatherGridVars {
		a, err := readGridVar(f, name)
		if err != nil {
			return nil, fmt.Errorf("tropo: reading weather grid file %s: %v", path, err)
		}
		*w.gridVar(name) = a
	}
	for name, dst := range map[string]*[]float64{"ys": &w.Ys, "xs": &w.Xs, "zs": &w.Zs} {
		a, err := readGridVar(f, name)
		if err != nil {
			return nil, fmt.Errorf("tropo: reading weather grid file %s: %v", path, err)
		}
		*dst = a.Elements
	}
	return w, nil
}

// readGridVar reads one whole variable of a prepared-grid file into a
// dense array.
func readGridVar(f *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %s is missing", name)
	}
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", name, err)
	}
	a := sparse.ZerosDense(dims...)
	switch vals := buf.(type) {
	case []float64:
		copy(a.Elements, vals)
	case []float32:
		for i, v := range vals {
			a.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("variable %s has unexpected type %T", name, buf)
	}
	return a, nil
}
