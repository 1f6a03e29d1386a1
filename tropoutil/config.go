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

package tropoutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// GetStringMapString returns a map[string]string from the configuration,
// accepting either a native map or a JSON-encoded string (which is how
// map-valued options travel on the command line).
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch t := i.(type) {
	case map[string]string:
		return t, nil
	case map[string]interface{}:
		return cast.ToStringMapString(t), nil
	case string:
		o := make(map[string]string)
		d := json.NewDecoder(bytes.NewBufferString(t))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("tropoutil: parsing configuration variable %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("tropoutil: configuration variable %s has invalid type %T", varName, i)
	}
}

// getFloat64Slice returns a []float64 from the configuration, accepting
// either a native slice or a JSON-encoded string.
func getFloat64Slice(varName string, cfg *viper.Viper) ([]float64, error) {
	i := cfg.Get(varName)
	switch t := i.(type) {
	case []float64:
		return t, nil
	case []interface{}:
		o := make([]float64, len(t))
		for j, v := range t {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return nil, fmt.Errorf("tropoutil: parsing configuration variable %s: %v", varName, err)
			}
			o[j] = f
		}
		return o, nil
	case string:
		var o []float64
		d := json.NewDecoder(bytes.NewBufferString(t))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("tropoutil: parsing configuration variable %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("tropoutil: configuration variable %s has invalid type %T", varName, i)
	}
}

// parseTime returns the weather timestamp from the configuration.
func parseTime(cfg *viper.Viper) (time.Time, error) {
	s := cfg.GetString("WeatherTime")
	if s == "" {
		return time.Time{}, fmt.Errorf("tropoutil: WeatherTime is not set; specify the timestamp in RFC3339 format, for example 2020-01-01T06:00:00Z")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("tropoutil: parsing WeatherTime: %v", err)
	}
	return t.UTC(), nil
}

// parseBounds returns the geographic region of interest from the
// configuration.
func parseBounds(cfg *viper.Viper) (*geom.Bounds, error) {
	b := &geom.Bounds{
		Min: geom.Point{X: cfg.GetFloat64("Bounds.LonMin"), Y: cfg.GetFloat64("Bounds.LatMin")},
		Max: geom.Point{X: cfg.GetFloat64("Bounds.LonMax"), Y: cfg.GetFloat64("Bounds.LatMax")},
	}
	if b.Min.Y >= b.Max.Y || b.Min.X >= b.Max.X {
		return nil, fmt.Errorf("tropoutil: bounds (%g, %g) to (%g, %g) are empty",
			b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}
	if b.Min.Y < -90 || b.Max.Y > 90 || b.Min.X < -180 || b.Max.X > 360 {
		return nil, fmt.Errorf("tropoutil: bounds (%g, %g) to (%g, %g) are not geographic coordinates",
			b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}
	return b, nil
}

// checkOutputFile makes sure that the output file is specified and is a
// NetCDF file.
func checkOutputFile(o string) error {
	if o == "" {
		return fmt.Errorf("tropoutil: you need to specify an output file")
	}
	if filepath.Ext(o) != ".nc" {
		return fmt.Errorf("tropoutil: output file must be a NetCDF file; have %s", o)
	}
	return nil
}

// gridAxis samples the half-open range [min, max) every res, matching the
// axes the area delay grid is computed on.
func gridAxis(min, max, res float64) []float64 {
	var vals []float64
	for i := 0; ; i++ {
		v := min + float64(i)*res
		if v >= max {
			break
		}
		vals = append(vals, v)
	}
	return vals
}

// writeConfig writes the current configuration in TOML format.
func writeConfig(w io.Writer) error {
	// Rebuild the option tree so dotted option names become TOML tables.
	tree := make(map[string]interface{})
	for _, option := range options {
		if option.name == "config" {
			continue
		}
		var v interface{}
		switch option.defaultVal.(type) {
		case map[string]string:
			m, err := GetStringMapString(option.name, Cfg)
			if err != nil {
				return err
			}
			v = m
		case []float64:
			s, err := getFloat64Slice(option.name, Cfg)
			if err != nil {
				return err
			}
			v = s
		default:
			v = Cfg.Get(option.name)
		}
		parts := strings.Split(option.name, ".")
		node := tree
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}

	// Encode top-level scalars before tables so the output parses back.
	isTable := func(v interface{}) bool {
		switch v.(type) {
		case map[string]interface{}, map[string]string:
			return true
		}
		return false
	}
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := isTable(tree[names[i]]), isTable(tree[names[j]])
		if ti != tj {
			return tj
		}
		return names[i] < names[j]
	})
	ordered := make(map[string]interface{})
	e := toml.NewEncoder(w)
	for _, name := range names {
		for k := range ordered {
			delete(ordered, k)
		}
		ordered[name] = tree[name]
		if err := e.Encode(ordered); err != nil {
			return fmt.Errorf("tropoutil: encoding configuration: %v", err)
		}
	}
	return nil
}
