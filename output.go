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
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// An Outputter writes delay results to a NetCDF file. The output variables
// are expressions over the computed delays and the query coordinates
// (hydrostatic, wet, lat, lon, height), so callers can write derived
// quantities without post-processing the file.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
}

// NewOutputter creates an Outputter writing to fileName. outputVariables
// maps output variable names to expressions; nil selects the defaults
// hydrostatic, wet and total = hydrostatic + wet. outputFunctions makes
// additional functions available to the expressions beyond the built-in
// exp and sqrt.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("tropo: got %d arguments for function 'exp', but need 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"sqrt": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("tropo: got %d arguments for function 'sqrt', but need 1", len(arg))
			}
			return math.Sqrt(arg[0].(float64)), nil
		},
		"sum": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("tropo: got %d arguments for function 'sum', but need 1", len(arg))
			}
			return floats.Sum(arg[0].([]float64)), nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}
	if outputVariables == nil {
		outputVariables = map[string]string{
			"hydrostatic": "hydrostatic",
			"wet":         "wet",
			"total":       "hydrostatic + wet",
		}
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: defaultOutputFuncs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	for name, exprStr := range o.outputVariables {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(exprStr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("tropo: parsing output variable %s expression %q: %v", name, exprStr, err)
		}
		o.expressions[name] = expr
	}
	return o, nil
}

// WriteArea writes delay results on the cartesian area grid spanned by the
// lat, lon and height axes, as produced by DelayOverArea. hydro and wet
// must have shape [len(lats), len(lons), len(hts)].
func (o *Outputter) WriteArea(lats, lons, hts []float64, hydro, wet *sparse.DenseArray) error {
	want := []int{len(lats), len(lons), len(hts)}
	if err := matchShapes(want, map[string]*sparse.DenseArray{"hydro": hydro, "wet": wet}); err != nil {
		return fmt.Errorf("tropo: writing delay output: %v", err)
	}

	h := cdf.NewHeader([]string{"lat", "lon", "height"}, want)
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("height", []string{"height"}, []float64{0})
	h.AddAttribute("height", "units", "m")
	names := make([]string, 0, len(o.outputVariables))
	for name := range o.outputVariables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.AddVariable(name, []string{"lat", "lon", "height"}, []float64{0})
		h.AddAttribute(name, "description", o.outputVariables[name])
		h.AddAttribute(name, "units", "m")
	}
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("tropo: creating delay output file %s: %v", o.fileName, err)
	}

	ff, err := os.Create(o.fileName)
	if err != nil {
		return fmt.Errorf("tropo: creating delay output file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("tropo: creating delay output file %s: %v", o.fileName, err)
	}

	for name, vals := range map[string][]float64{"lat": lats, "lon": lons, "height": hts} {
		w := f.Writer(name, []int{0}, []int{len(vals)})
		if _, err := w.Write(vals); err != nil {
			return fmt.Errorf("tropo: writing delay output axis %s: %v", name, err)
		}
	}

	params := make(map[string]interface{}, 5)
	for _, name := range names {
		expr := o.expressions[name]
		data := make([]float64, len(hydro.Elements))
		i := 0
		for _, lat := range lats {
			for _, lon := range lons {
				for _, ht := range hts {
					params["hydrostatic"] = hydro.Elements[i]
					params["wet"] = wet.Elements[i]
					params["lat"] = lat
					params["lon"] = lon
					params["height"] = ht
					v, err := expr.Evaluate(params)
					if err != nil {
						return fmt.Errorf("tropo: evaluating output variable %s: %v", name, err)
					}
					fv, ok := v.(float64)
					if !ok {
						return fmt.Errorf("tropo: output variable %s expression %q does not evaluate to a number",
							name, o.outputVariables[name])
					}
					data[i] = fv
					i++
				}
			}
		}
		w := f.Writer(name, []int{0, 0, 0}, want)
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("tropo: writing delay output variable %s: %v", name, err)
		}
	}
	return nil
}
