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
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// LineOfSight specifies the viewing geometry for a set of delay queries.
// The three implementations are the Zenith sentinel, LookVectors for true
// slant-path tracing, and IncidenceAngles for the secant approximation.
type LineOfSight interface {
	losKind() string
}

type zenithSentinel struct{}

func (zenithSentinel) losKind() string { return "zenith" }

// Zenith is the LineOfSight meaning "straight up": each ray follows the
// local ellipsoidal vertical from the query point to the reference height.
var Zenith LineOfSight = zenithSentinel{}

// LookVectors holds one ECEF direction vector per query point, pointing
// from the ground toward the sensor; shape [..., 3], flattening to [N, 3].
// Each vector is rescaled so that its vertical component (the projection on
// the local up vector) spans the distance from the query point to the
// reference height. The rescaling also stretches the horizontal extent
// proportionally, which assumes a constant incidence angle along the
// path; the approximation is good when the vertical component dominates.
type LookVectors struct {
	Vectors *sparse.DenseArray
}

func (LookVectors) losKind() string { return "look vectors" }

// IncidenceAngles holds one incidence angle [degrees] per query point.
// Delays are integrated along the zenith and divided by the cosine of the
// incidence angle afterwards, a secant approximation that avoids tracing
// the oblique geometry.
type IncidenceAngles struct {
	Degrees []float64
}

func (IncidenceAngles) losKind() string { return "incidence angles" }

// sampledRays holds the sample geometry for a batch of rays: one flattened
// buffer of ECEF sample positions for all rays, the matching arc-length
// coordinates, and a per-ray offset table for re-slicing. The flat layout
// lets the refractivity of a whole batch be evaluated in one call.
type sampledRays struct {
	positions []float64 // 3 values (x, y, z) per sample
	tPoints   []float64 // arc length from the ray origin [m]
	offsets   []int     // index of each ray's first sample
	counts    []int     // number of samples in each ray
}

func (r *sampledRays) nSamples() int { return len(r.tPoints) }

// ray returns the sample arc lengths for ray i.
func (r *sampledRays) ray(i int) []float64 {
	return r.tPoints[r.offsets[i] : r.offsets[i]+r.counts[i]]
}

// sampleRays builds the sample geometry for rays starting at the given
// geodetic points. vecs holds one ECEF look vector (3 values) per point, or
// is nil for zenith rays. Look vectors are rescaled so their vertical
// component reaches from the point height to zref; zenith vectors are the
// local vertical scaled by (zref − height), so the path top lands exactly
// at the reference height. Each ray is sampled every step meters: the
// sample count is ceil(length/step), the first sample sits at the origin
// and the last exactly at the path end. A zero-length ray gets a single
// degenerate sample, which integrates to zero.
func sampleRays(lats, lons, hts, vecs []float64, step, zref float64) *sampledRays {
	n := len(lats)
	r := &sampledRays{
		offsets: make([]int, n),
		counts:  make([]int, n),
	}

	lengths := make([]float64, n)
	units := make([]float64, 3*n)
	total := 0
	for i := 0; i < n; i++ {
		var vx, vy, vz float64
		ux, uy, uz := upVector(lats[i], lons[i])
		if vecs == nil {
			s := zref - hts[i]
			vx, vy, vz = ux*s, uy*s, uz*s
		} else {
			vx, vy, vz = vecs[3*i], vecs[3*i+1], vecs[3*i+2]
			// Rescale so the vertical component spans (zref − h) and
			// the integral stops at the reference height.
			s := (zref - hts[i]) / dot3(vx, vy, vz, ux, uy, uz)
			vx, vy, vz = vx*s, vy*s, vz*s
		}
		l := norm3(vx, vy, vz)
		lengths[i] = l
		if l > 0 {
			units[3*i], units[3*i+1], units[3*i+2] = vx/l, vy/l, vz/l
		}
		c := int(math.Ceil(l / step))
		if c < 1 || math.IsNaN(l) {
			c = 1
		}
		r.offsets[i] = total
		r.counts[i] = c
		total += c
	}

	r.positions = make([]float64, 3*total)
	r.tPoints = make([]float64, total)
	for i := 0; i < n; i++ {
		ox, oy, oz := llaToECEF(lats[i], lons[i], hts[i])
		off, c := r.offsets[i], r.counts[i]
		ts := r.tPoints[off : off+c]
		if c > 1 {
			// Evenly spaced from 0 to the full path length inclusive,
			// so the last sample lands exactly on the path end.
			floats.Span(ts, 0, lengths[i])
		}
		for j, t := range ts {
			k := 3 * (off + j)
			r.positions[k] = ox + t*units[3*i]
			r.positions[k+1] = oy + t*units[3*i+1]
			r.positions[k+2] = oz + t*units[3*i+2]
		}
	}
	return r
}
