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
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/requestcache"
	"github.com/jonboulle/clockwork"
)

// Model is the capability interface a weather data source implements.
// Implementations resolve raw model output files and decode them onto the
// WeatherData node grid; the shared preparation pipeline takes it from
// there.
type Model interface {
	// Name identifies the model in the registry and in cache filenames.
	Name() string

	// ValidRange returns the period the model has data for. A zero end
	// time means the range is open-ended.
	ValidRange() (start, end time.Time)

	// AvailabilityLag returns how far the model's published products lag
	// real time.
	AvailabilityLag() time.Duration

	// Fetch resolves the raw model output file for the given geographic
	// bounds and time, staging it under dir if necessary, and returns
	// its path.
	Fetch(ctx context.Context, bounds *geom.Bounds, t time.Time, dir string) (string, error)

	// LoadWeather decodes a raw model output file onto the node grid.
	LoadWeather(path string) (*WeatherData, error)
}

var (
	modelMu  sync.RWMutex
	registry = make(map[string]func() Model)
)

// RegisterModel makes a weather model constructor selectable by name.
// It panics if the name is already taken.
func RegisterModel(name string, f func() Model) {
	modelMu.Lock()
	defer modelMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("tropo: weather model %q registered twice", name))
	}
	registry[name] = f
}

// ModelByName returns a new instance of the named registered weather model.
func ModelByName(name string) (Model, error) {
	modelMu.RLock()
	defer modelMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		names := make([]string, 0, len(registry))
		for n := range registry {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("tropo: unknown weather model %q; registered models are %s",
			name, strings.Join(names, ", "))
	}
	return f(), nil
}

// CheckTime returns a DomainError when t falls outside m's valid range or
// inside its availability lag window. The clock is injectable so the lag
// window can be tested.
func CheckTime(clock clockwork.Clock, m Model, t time.Time) error {
	start, end := m.ValidRange()
	if t.Before(start) || (!end.IsZero() && t.After(end)) {
		return TimeOutOfRangeErr{Model: m.Name(), Requested: t, Start: start, End: end}
	}
	if lag := m.AvailabilityLag(); t.After(clock.Now().UTC().Add(-lag)) {
		return DataLagErr{Model: m.Name(), Requested: t, Lag: lag}
	}
	return nil
}

// PrepareOptions adjusts the grid preparation pipeline. The zero value
// selects the defaults.
type PrepareOptions struct {
	// ZLevels is the shared vertical axis to regrid onto [m], ascending.
	// When nil, the mean height of each native model level is used.
	ZLevels []float64
	// Clock is the time source for availability checks; defaults to the
	// real clock.
	Clock clockwork.Clock
}

// Prepare turns raw weather model output into a ready-to-query grid. If a
// previously prepared grid for the same model, time and (rounded) bounds
// exists under outputDir it is read back and the pipeline is skipped.
// Otherwise the raw data is fetched and decoded, and then normalized in
// stages: the humidity variable becomes water vapor partial pressure, the
// native levels are regridded onto a shared vertical axis, interpolation
// gaps are filled, refractivity is derived, the grid is padded down to the
// integration floor and trimmed to the padded bounds, and the per-level
// zenith totals are computed. The prepared grid is persisted before it is
// returned.
func Prepare(ctx context.Context, m Model, t time.Time, bounds *geom.Bounds, outputDir string, opts *PrepareOptions) (*WeatherData, error) {
	if opts == nil {
		opts = &PrepareOptions{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := CheckTime(clock, m, t); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("tropo: creating weather output directory: %v", err)
	}

	cachePath := filepath.Join(outputDir, weatherFileName(m.Name(), t, bounds))
	if _, err := os.Stat(cachePath); err == nil {
		Log.Infof("tropo: using prepared weather grid %s", cachePath)
		return ReadWeatherData(cachePath)
	}

	rawPath, err := m.Fetch(ctx, bounds, t, outputDir)
	if err != nil {
		return nil, err
	}
	w, err := m.LoadWeather(rawPath)
	if err != nil {
		return nil, err
	}
	w.Model = m.Name()
	w.Time = t
	if err := w.checkNodeShapes(); err != nil {
		return nil, fmt.Errorf("tropo: preparing %s weather data: %v", m.Name(), err)
	}

	if err := w.findVaporPressure(); err != nil {
		return nil, err
	}
	if err := w.regridUniform(opts.ZLevels); err != nil {
		return nil, err
	}
	w.fillGaps()
	w.findRefractivity()
	w.padFloor()
	w.trimExtent(paddedBounds(bounds, 2*w.YRes, 2*w.XRes), 2)
	w.computeZTD()

	if err := WriteWeatherData(cachePath, w); err != nil {
		return nil, err
	}
	return w, nil
}

// WeatherCache collapses concurrent Prepare calls for the same prepared
// grid into a single pipeline run and keeps recently prepared grids in
// memory.
type WeatherCache struct {
	cache *requestcache.Cache
}

type prepareRequest struct {
	m         Model
	t         time.Time
	bounds    *geom.Bounds
	outputDir string
	opts      *PrepareOptions
}

// NewWeatherCache returns a cache holding up to maxEntries prepared grids
// in memory.
func NewWeatherCache(maxEntries int) *WeatherCache {
	c := &WeatherCache{}
	c.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		r := request.(prepareRequest)
		return Prepare(ctx, r.m, r.t, r.bounds, r.outputDir, r.opts)
	}, runtime.GOMAXPROCS(-1),
		requestcache.Deduplicate(), requestcache.Memory(maxEntries))
	return c
}

// Prepare is equivalent to the package-level Prepare, deduplicated by the
// prepared grid's cache key.
func (c *WeatherCache) Prepare(ctx context.Context, m Model, t time.Time, bounds *geom.Bounds, outputDir string, opts *PrepareOptions) (*WeatherData, error) {
	req := c.cache.NewRequest(ctx,
		prepareRequest{m: m, t: t, bounds: bounds, outputDir: outputDir, opts: opts},
		weatherFileName(m.Name(), t, bounds),
	)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*WeatherData), nil
}
