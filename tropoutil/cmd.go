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

// Package tropoutil provides the configuration and command-line interface
// for the tropo atmospheric delay model.
package tropoutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/tropo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to tropo.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "WeatherModel",
			usage: `
              WeatherModel specifies the weather model to take atmospheric
              state from. Valid options are "ERA5", "HRES" and "WRF".`,
			shorthand:  "m",
			defaultVal: "ERA5",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "WeatherTime",
			usage: `
              WeatherTime is the UTC timestamp to compute delays for, in
              RFC3339 format (for example 2020-01-01T06:00:00Z).`,
			shorthand:  "t",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "WeatherDir",
			usage: `
              WeatherDir is the directory raw weather model files are staged
              in and prepared weather grids are cached in. It can include
              environment variables.`,
			defaultVal: "weather",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "ModelOptions",
			usage: `
              ModelOptions holds model-specific settings, for example
              {"file": "/data/era5.nc"} to read a specific raw weather file.
              File paths can be HTTP URLs or blob storage locations, in which
              case they will be downloaded first.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "ZLevels",
			usage: `
              ZLevels is the shared vertical axis to regrid the weather model
              onto, in meters above the ellipsoid, ascending. If empty, the
              mean height of each native model level is used.`,
			defaultVal: []float64{},
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "Bounds.LatMin",
			usage: `
              Bounds.LatMin is the southern edge of the region of interest
              [degrees].`,
			defaultVal: 31.0,
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "Bounds.LatMax",
			usage: `
              Bounds.LatMax is the northern edge of the region of interest
              [degrees].`,
			defaultVal: 37.0,
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "Bounds.LonMin",
			usage: `
              Bounds.LonMin is the western edge of the region of interest
              [degrees].`,
			defaultVal: -121.0,
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "Bounds.LonMax",
			usage: `
              Bounds.LonMax is the eastern edge of the region of interest
              [degrees].`,
			defaultVal: -114.0,
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags(), delayCmd.Flags()},
		},
		{
			name: "Delay.LatRes",
			usage: `
              Delay.LatRes is the latitude spacing of the output delay grid
              [degrees].`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.LonRes",
			usage: `
              Delay.LonRes is the longitude spacing of the output delay grid
              [degrees].`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.HtMin",
			usage: `
              Delay.HtMin is the lowest query height of the output delay grid
              [m].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.HtMax",
			usage: `
              Delay.HtMax is the height the output delay grid stops below
              [m].`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.HtRes",
			usage: `
              Delay.HtRes is the height spacing of the output delay grid [m].`,
			defaultVal: 500.0,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.Step",
			usage: `
              Delay.Step is the sample spacing along each integration ray [m].
              Smaller steps are more accurate and slower.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.ZRef",
			usage: `
              Delay.ZRef is the reference height delay integration stops at
              [m].`,
			defaultVal: 15000.0,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.Parallel",
			usage: `
              Delay.Parallel selects parallel delay integration over a worker
              pool.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.Workers",
			usage: `
              Delay.Workers is the worker pool size for parallel integration.
              If zero or less, the number of logical CPUs is used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "Delay.IncidenceAngle",
			usage: `
              Delay.IncidenceAngle maps the zenith delays to a slanted viewing
              geometry by dividing by the cosine of this angle [degrees].
              If negative, plain zenith delays are computed.`,
			defaultVal: -1.0,
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the NetCDF file delay results are
              written to. It can include environment variables.`,
			shorthand:  "o",
			defaultVal: "tropo_output.nc",
			flagsets:   []*pflag.FlagSet{delayCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which variables should be written to
              the output file, as expressions over the computed delays and the
              query coordinates (hydrostatic, wet, lat, lon, height).`,
			defaultVal: map[string]string{
				"hydrostatic": "hydrostatic",
				"wet":         "wet",
				"total":       "hydrostatic + wet",
			},
			flagsets: []*pflag.FlagSet{delayCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("TROPO")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case []float64, map[string]string:
				// Complex values travel as JSON on the command line.
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(bytes.TrimSpace(b.Bytes()))
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(prepareCmd)
	Root.AddCommand(delayCmd)
	Root.AddCommand(configCmd)
}

// outChan returns a channel printing to standard output.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			fmt.Print(msg)
		}
	}()
	return outChan
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("tropo: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "tropo",
	Short: "A tropospheric propagation delay model.",
	Long: `tropo computes the delay the troposphere adds to radar signals
traveling between the ground and a satellite, from weather model output.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'TROPO_var' where 'var' is the name of the variable to be set. Many
configuration variables are additionally allowed to contain environment
variables within them.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of tropo.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("tropo v%s\n", tropo.Version)
	},
	DisableAutoGenTag: true,
}

// prepareCmd fetches weather model output and prepares the delay grid
// without computing any delays, so later delay runs hit the cache.
var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Prepare a weather grid",
	Long: `prepare fetches raw weather model output for the configured model,
time and region, derives the refractivity fields from it and caches the
prepared grid under WeatherDir for later delay computations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := PrepareWeather(context.TODO(), Cfg)
		return err
	},
	DisableAutoGenTag: true,
}

// delayCmd computes delays over the configured area grid.
var delayCmd = &cobra.Command{
	Use:   "delay",
	Short: "Compute propagation delays",
	Long: `delay computes hydrostatic and wet propagation delays on the
configured latitude/longitude/height grid, preparing the weather grid first
if no cached one exists, and writes the results to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Delay(context.TODO(), Cfg)
	},
	DisableAutoGenTag: true,
}

// configCmd prints the fully resolved configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the configuration",
	Long: `config prints the current configuration, including values from the
configuration file, environment variables and command-line flags, in TOML
format. The output can be used as a configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfig(cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}
