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
	"testing"
)

func TestECEFRoundTrip(t *testing.T) {
	cases := []struct {
		lat, lon, h float64
	}{
		{0, 0, 0},
		{45, 45, 1000},
		{-33.5, 151.2, 20},
		{71.3, -156.8, 5},
		{-89.9, 10, 2500},
		{34.2, -118.17, 15000},
	}
	for _, c := range cases {
		x, y, z := llaToECEF(c.lat, c.lon, c.h)
		lat, lon, h := ecefToLLA(x, y, z)
		if math.Abs(lat-c.lat) > 1e-9 || math.Abs(lon-c.lon) > 1e-9 {
			t.Errorf("(%g, %g, %g): round trip gave (%g, %g)", c.lat, c.lon, c.h, lat, lon)
		}
		if math.Abs(h-c.h) > 1e-3 {
			t.Errorf("(%g, %g, %g): round trip height %g", c.lat, c.lon, c.h, h)
		}
	}
}

func TestECEFEquator(t *testing.T) {
	x, y, z := llaToECEF(0, 0, 0)
	if math.Abs(x-wgs84a) > 1e-6 || math.Abs(y) > 1e-6 || math.Abs(z) > 1e-6 {
		t.Errorf("equator at the prime meridian: have (%g, %g, %g)", x, y, z)
	}
}

func TestUpVector(t *testing.T) {
	for _, c := range [][2]float64{{0, 0}, {45, 90}, {-60, -120}, {90, 0}} {
		ux, uy, uz := upVector(c[0], c[1])
		if n := norm3(ux, uy, uz); math.Abs(n-1) > 1e-12 {
			t.Errorf("up vector at (%g, %g) has norm %g", c[0], c[1], n)
		}
	}
	// Moving along the up vector changes geodetic height one-for-one.
	const lat, lon, h0, d = 37.5, -122.1, 150.0, 4000.0
	x, y, z := llaToECEF(lat, lon, h0)
	ux, uy, uz := upVector(lat, lon)
	lat2, lon2, h2 := ecefToLLA(x+d*ux, y+d*uy, z+d*uz)
	if math.Abs(lat2-lat) > 1e-8 || math.Abs(lon2-lon) > 1e-8 {
		t.Errorf("up vector is not normal to the ellipsoid: (%g, %g)", lat2, lon2)
	}
	if math.Abs(h2-(h0+d)) > 1e-3 {
		t.Errorf("height along up vector: want %g but have %g", h0+d, h2)
	}
}

func TestDegreeTrig(t *testing.T) {
	if math.Abs(cosd(60)-0.5) > 1e-12 {
		t.Errorf("cosd(60) = %g", cosd(60))
	}
	if math.Abs(sind(30)-0.5) > 1e-12 {
		t.Errorf("sind(30) = %g", sind(30))
	}
}
