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
	"runtime"

	"github.com/ctessum/sparse"
)

// DelayConfig holds the tuning parameters for delay integration. The zero
// value selects the defaults.
type DelayConfig struct {
	// Step is the sample spacing along each ray [m]; default 1 m. Larger
	// steps trade integration accuracy (the trapezoidal error shrinks
	// with the square of the step) for speed.
	Step float64
	// ZRef is the reference height the integration stops at [m];
	// default 15000 m, the nominal top of the troposphere.
	ZRef float64
	// Parallel selects fan-out over a worker pool.
	Parallel bool
	// Workers is the worker pool size when Parallel is set; default is
	// the number of logical CPUs.
	Workers int
}

func (c *DelayConfig) setDefaults() {
	if c.Step <= 0 {
		c.Step = 1
	}
	if c.ZRef <= 0 {
		c.ZRef = 15000
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(-1)
	}
}

// Delay job kinds.
const (
	jobHydro = "hydrostatic"
	jobWet   = "wet"
)

// delayJob is a contiguous range of query points to integrate for one
// delay kind.
type delayJob struct {
	kind       string
	start, end int
}

// trapz integrates the samples ys over the coordinates xs by the
// trapezoidal rule. A single sample integrates to zero.
func trapz(xs, ys []float64) float64 {
	var sum float64
	for i := 0; i+1 < len(xs); i++ {
		sum += 0.5 * (ys[i] + ys[i+1]) * (xs[i+1] - xs[i])
	}
	return sum
}

// delayRange integrates one delay kind for the query points in lats, lons
// and hts. vecs holds flattened look vectors for the range, or nil for
// zenith rays; angles holds incidence angles [degrees] for the secant
// correction, or nil. The result is a pure function of the grid values and
// sample spacing, so sequential and parallel dispatch agree exactly.
func (g *gridInterpolator) delayRange(kind string, lats, lons, hts, vecs, angles []float64, step, zref float64) ([]float64, error) {
	rays := sampleRays(lats, lons, hts, vecs, step, zref)
	ppm := make([]float64, rays.nSamples())
	switch kind {
	case jobHydro:
		g.hydroPPM(rays.positions, ppm)
	case jobWet:
		g.wetPPM(rays.positions, ppm)
	default:
		return nil, fmt.Errorf("tropo: unknown delay job kind %q", kind)
	}

	out := make([]float64, len(lats))
	nGaps := 0
	for i := range out {
		off, c := rays.offsets[i], rays.counts[i]
		d := 1e-6 * trapz(rays.tPoints[off:off+c], ppm[off:off+c])
		if angles != nil {
			d /= cosd(angles[i])
		}
		if math.IsNaN(d) {
			nGaps++
		}
		out[i] = d
	}
	if nGaps > 0 {
		Log.Warnf("tropo: %d of %d %s delays are NaN: rays left the weather model domain", nGaps, len(out), kind)
	}
	return out, nil
}

// DelayFromGrid computes the hydrostatic and wet delay [m] from each query
// point up to the reference height. llas holds geodetic query points as
// (latitude [deg], longitude [deg], height [m]) triples in its last axis;
// the returned arrays have the shape of llas with that axis removed. los
// selects the viewing geometry: Zenith, per-point LookVectors (traced
// slant paths) or per-point IncidenceAngles (zenith integration with a
// secant correction). Query points the weather grid does not cover yield
// NaN delays rather than an error.
func DelayFromGrid(w *WeatherData, llas *sparse.DenseArray, los LineOfSight, cfg DelayConfig) (hydro, wet *sparse.DenseArray, err error) {
	cfg.setDefaults()
	if llas == nil || len(llas.Shape) == 0 || llas.Shape[len(llas.Shape)-1] != 3 {
		var have []int
		if llas != nil {
			have = llas.Shape
		}
		return nil, nil, ShapeErr{Name: "llas", Want: "[..., 3]", Have: have}
	}
	outShape := llas.Shape[:len(llas.Shape)-1]
	if len(outShape) == 0 {
		outShape = []int{1}
	}
	n := len(llas.Elements) / 3
	lats := make([]float64, n)
	lons := make([]float64, n)
	hts := make([]float64, n)
	for i := 0; i < n; i++ {
		lats[i] = llas.Elements[3*i]
		lons[i] = llas.Elements[3*i+1]
		hts[i] = llas.Elements[3*i+2]
	}

	var vecs, angles []float64
	switch l := los.(type) {
	case zenithSentinel:
	case LookVectors:
		if l.Vectors == nil || len(l.Vectors.Elements) != 3*n {
			var have []int
			if l.Vectors != nil {
				have = l.Vectors.Shape
			}
			return nil, nil, ShapeErr{Name: "look vectors", Want: fmt.Sprintf("[%d 3]", n), Have: have}
		}
		vecs = l.Vectors.Elements
	case IncidenceAngles:
		if len(l.Degrees) != n {
			return nil, nil, ShapeErr{Name: "incidence angles", Want: fmt.Sprintf("[%d]", n), Have: []int{len(l.Degrees)}}
		}
		angles = l.Degrees
	default:
		return nil, nil, fmt.Errorf("tropo: unknown line-of-sight kind %q", los.losKind())
	}

	g, err := w.newInterpolator()
	if err != nil {
		return nil, nil, err
	}

	hydroFlat := make([]float64, n)
	wetFlat := make([]float64, n)
	if cfg.Parallel && n > 0 && cfg.Workers > 1 {
		err = dispatch(g, lats, lons, hts, vecs, angles, cfg, hydroFlat, wetFlat)
	} else {
		err = runJobs(g, []delayJob{{jobHydro, 0, n}, {jobWet, 0, n}},
			lats, lons, hts, vecs, angles, cfg, hydroFlat, wetFlat)
	}
	if err != nil {
		return nil, nil, err
	}

	hydro = sparse.ZerosDense(outShape...)
	copy(hydro.Elements, hydroFlat)
	wet = sparse.ZerosDense(outShape...)
	copy(wet.Elements, wetFlat)
	return hydro, wet, nil
}

// runJobs executes jobs sequentially, writing each job's result into its
// pre-assigned range of the output slices.
func runJobs(g *gridInterpolator, jobs []delayJob, lats, lons, hts, vecs, angles []float64, cfg DelayConfig, hydroOut, wetOut []float64) error {
	for _, job := range jobs {
		data, err := runJob(g, job, lats, lons, hts, vecs, angles, cfg)
		if err != nil {
			return err
		}
		switch job.kind {
		case jobHydro:
			copy(hydroOut[job.start:job.end], data)
		case jobWet:
			copy(wetOut[job.start:job.end], data)
		}
	}
	return nil
}

func runJob(g *gridInterpolator, job delayJob, lats, lons, hts, vecs, angles []float64, cfg DelayConfig) ([]float64, error) {
	var jobVecs, jobAngles []float64
	if vecs != nil {
		jobVecs = vecs[3*job.start : 3*job.end]
	}
	if angles != nil {
		jobAngles = angles[job.start:job.end]
	}
	return g.delayRange(job.kind, lats[job.start:job.end], lons[job.start:job.end],
		hts[job.start:job.end], jobVecs, jobAngles, cfg.Step, cfg.ZRef)
}

// dispatch fans the query points out over a fixed-size worker pool. The
// points are split into contiguous ranges, roughly half the pool's chunks
// integrating hydrostatic delay and half wet delay. Each worker returns an
// owned result slice per job which the dispatcher merges into the output
// arrays, so no buffer is visible to more than one writer and completion
// order cannot affect the result. The first job error aborts the whole
// computation and discards the remaining results.
func dispatch(g *gridInterpolator, lats, lons, hts, vecs, angles []float64, cfg DelayConfig, hydroOut, wetOut []float64) error {
	n := len(lats)
	nh := cfg.Workers / 2
	if nh < 1 {
		nh = 1
	}
	nw := cfg.Workers - nh
	if nw < 1 {
		nw = 1
	}
	jobs := append(chunkJobs(jobHydro, n, nh), chunkJobs(jobWet, n, nw)...)

	type jobResult struct {
		job  delayJob
		data []float64
	}
	jobChan := make(chan delayJob, len(jobs))
	resChan := make(chan jobResult, len(jobs))
	errChan := make(chan error)
	for x := 0; x < cfg.Workers; x++ {
		go func() {
			for job := range jobChan {
				data, err := runJob(g, job, lats, lons, hts, vecs, angles, cfg)
				if err != nil {
					errChan <- err
					return
				}
				resChan <- jobResult{job: job, data: data}
			}
			errChan <- nil
		}()
	}
	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	var firstErr error
	for x := 0; x < cfg.Workers; x++ {
		if err := <-errChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	close(resChan)
	for r := range resChan {
		switch r.job.kind {
		case jobHydro:
			copy(hydroOut[r.job.start:r.job.end], r.data)
		case jobWet:
			copy(wetOut[r.job.start:r.job.end], r.data)
		}
	}
	return nil
}

// chunkJobs splits [0, n) into nChunks contiguous jobs of the given kind,
// with boundaries on an even integer spacing.
func chunkJobs(kind string, n, nChunks int) []delayJob {
	jobs := make([]delayJob, 0, nChunks)
	for i := 0; i < nChunks; i++ {
		start := i * n / nChunks
		end := (i + 1) * n / nChunks
		if start == end {
			continue
		}
		jobs = append(jobs, delayJob{kind: kind, start: start, end: end})
	}
	return jobs
}

// arange returns the half-open range [min, max) sampled every res.
func arange(min, max, res float64) []float64 {
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

// DelayOverArea computes hydrostatic and wet delay [m] on the cartesian
// grid of the half-open latitude, longitude and height ranges, each
// sampled at its own resolution. The returned arrays have shape
// [nlat, nlon, nheight].
func DelayOverArea(w *WeatherData, latMin, latMax, latRes, lonMin, lonMax, lonRes, htMin, htMax, htRes float64, los LineOfSight, cfg DelayConfig) (hydro, wet *sparse.DenseArray, err error) {
	if latRes <= 0 || lonRes <= 0 || htRes <= 0 {
		return nil, nil, fmt.Errorf("tropo: delay area resolutions must be positive; got (%g, %g, %g)", latRes, lonRes, htRes)
	}
	lats := arange(latMin, latMax, latRes)
	lons := arange(lonMin, lonMax, lonRes)
	hts := arange(htMin, htMax, htRes)
	if len(lats) == 0 || len(lons) == 0 || len(hts) == 0 {
		return nil, nil, fmt.Errorf("tropo: delay area [%g, %g) x [%g, %g) x [%g, %g) is empty",
			latMin, latMax, lonMin, lonMax, htMin, htMax)
	}
	llas := sparse.ZerosDense(len(lats), len(lons), len(hts), 3)
	i := 0
	for _, lat := range lats {
		for _, lon := range lons {
			for _, ht := range hts {
				llas.Elements[i] = lat
				llas.Elements[i+1] = lon
				llas.Elements[i+2] = ht
				i += 3
			}
		}
	}
	return DelayFromGrid(w, llas, los, cfg)
}
