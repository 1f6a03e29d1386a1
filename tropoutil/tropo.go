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
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/mitchellh/mapstructure"
	"github.com/spatialmodel/tropo"
)

// modelFromConfig instantiates the configured weather model and applies
// the model-specific options to it. A "file" option pointing at a URL or
// blob storage location is downloaded first.
func modelFromConfig(ctx context.Context, cfg *viper.Viper, c chan string) (tropo.Model, error) {
	m, err := tropo.ModelByName(cfg.GetString("WeatherModel"))
	if err != nil {
		return nil, err
	}
	opts, err := GetStringMapString("ModelOptions", cfg)
	if err != nil {
		return nil, err
	}
	if file, ok := opts["file"]; ok && file != "" {
		local, err := maybeDownload(ctx, os.ExpandEnv(file), c)
		if err != nil {
			return nil, fmt.Errorf("tropoutil: fetching weather model file: %v", err)
		}
		opts["file"] = local
	}
	if err := mapstructure.Decode(opts, m); err != nil {
		return nil, fmt.Errorf("tropoutil: applying %s model options: %v", m.Name(), err)
	}
	return m, nil
}

// PrepareWeather fetches the configured weather model output and runs the
// grid preparation pipeline, caching the prepared grid under WeatherDir.
func PrepareWeather(ctx context.Context, cfg *viper.Viper) (*tropo.WeatherData, error) {
	c := outChan()
	m, err := modelFromConfig(ctx, cfg, c)
	if err != nil {
		return nil, err
	}
	t, err := parseTime(cfg)
	if err != nil {
		return nil, err
	}
	bounds, err := parseBounds(cfg)
	if err != nil {
		return nil, err
	}
	zlevels, err := getFloat64Slice("ZLevels", cfg)
	if err != nil {
		return nil, err
	}
	dir := os.ExpandEnv(cfg.GetString("WeatherDir"))
	return tropo.Prepare(ctx, m, t, bounds, dir, &tropo.PrepareOptions{ZLevels: zlevels})
}

// Delay prepares the weather grid, computes hydrostatic and wet delays on
// the configured area grid and writes them to the configured output file.
func Delay(ctx context.Context, cfg *viper.Viper) error {
	outputFile := os.ExpandEnv(cfg.GetString("OutputFile"))
	if err := checkOutputFile(outputFile); err != nil {
		return err
	}
	outputVars, err := GetStringMapString("OutputVariables", cfg)
	if err != nil {
		return err
	}
	o, err := tropo.NewOutputter(outputFile, outputVars, nil)
	if err != nil {
		return err
	}

	w, err := PrepareWeather(ctx, cfg)
	if err != nil {
		return err
	}

	latMin, latMax, latRes := cfg.GetFloat64("Bounds.LatMin"), cfg.GetFloat64("Bounds.LatMax"), cfg.GetFloat64("Delay.LatRes")
	lonMin, lonMax, lonRes := cfg.GetFloat64("Bounds.LonMin"), cfg.GetFloat64("Bounds.LonMax"), cfg.GetFloat64("Delay.LonRes")
	htMin, htMax, htRes := cfg.GetFloat64("Delay.HtMin"), cfg.GetFloat64("Delay.HtMax"), cfg.GetFloat64("Delay.HtRes")
	lats := gridAxis(latMin, latMax, latRes)
	lons := gridAxis(lonMin, lonMax, lonRes)
	hts := gridAxis(htMin, htMax, htRes)

	los := tropo.Zenith
	if angle := cfg.GetFloat64("Delay.IncidenceAngle"); angle >= 0 {
		degrees := make([]float64, len(lats)*len(lons)*len(hts))
		for i := range degrees {
			degrees[i] = angle
		}
		los = tropo.IncidenceAngles{Degrees: degrees}
	}
	dcfg := tropo.DelayConfig{
		Step:     cfg.GetFloat64("Delay.Step"),
		ZRef:     cfg.GetFloat64("Delay.ZRef"),
		Parallel: cfg.GetBool("Delay.Parallel"),
		Workers:  cfg.GetInt("Delay.Workers"),
	}
	hydro, wet, err := tropo.DelayOverArea(w,
		latMin, latMax, latRes, lonMin, lonMax, lonRes, htMin, htMax, htRes,
		los, dcfg)
	if err != nil {
		return err
	}

	if err := o.WriteArea(lats, lons, hts, hydro, wet); err != nil {
		return err
	}
	tropo.Log.Infof("tropo: wrote %d delay values to %s", len(hydro.Elements), outputFile)
	return nil
}
