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

import "math"

// WGS84 ellipsoid parameters.
const (
	wgs84a  = 6378137.0         // semi-major axis [m]
	wgs84f  = 1 / 298.257223563 // flattening
	wgs84e2 = wgs84f * (2 - wgs84f)
	wgs84b  = wgs84a * (1 - wgs84f) // semi-minor axis [m]
)

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

func cosd(d float64) float64 { return math.Cos(toRad(d)) }
func sind(d float64) float64 { return math.Sin(toRad(d)) }

// llaToECEF converts geodetic latitude and longitude [degrees] and height
// above the ellipsoid [m] to earth-centered earth-fixed coordinates [m].
func llaToECEF(lat, lon, h float64) (x, y, z float64) {
	sinLat, cosLat := math.Sincos(toRad(lat))
	sinLon, cosLon := math.Sincos(toRad(lon))
	n := wgs84a / math.Sqrt(1-wgs84e2*sinLat*sinLat)
	x = (n + h) * cosLat * cosLon
	y = (n + h) * cosLat * sinLon
	z = (n*(1-wgs84e2) + h) * sinLat
	return
}

// ecefToLLA converts earth-centered earth-fixed coordinates [m] to geodetic
// latitude and longitude [degrees] and height above the ellipsoid [m], by
// fixed-point iteration on the latitude. Five iterations give sub-millimeter
// height accuracy everywhere in the troposphere.
func ecefToLLA(x, y, z float64) (lat, lon, h float64) {
	lon = toDeg(math.Atan2(y, x))
	p := math.Hypot(x, y)
	if p < 1e-9 {
		// On the polar axis the longitude is arbitrary.
		lat = math.Copysign(90, z)
		h = math.Abs(z) - wgs84b
		return
	}
	phi := math.Atan2(z, p*(1-wgs84e2))
	var n, hgt float64
	for i := 0; i < 5; i++ {
		sinPhi := math.Sin(phi)
		n = wgs84a / math.Sqrt(1-wgs84e2*sinPhi*sinPhi)
		hgt = p/math.Cos(phi) - n
		phi = math.Atan2(z, p*(1-wgs84e2*n/(n+hgt)))
	}
	lat = toDeg(phi)
	h = hgt
	return
}

// upVector returns the geodetic up (zenith) unit vector in ECEF coordinates
// at the given latitude and longitude [degrees].
func upVector(lat, lon float64) (ux, uy, uz float64) {
	sinLat, cosLat := math.Sincos(toRad(lat))
	sinLon, cosLon := math.Sincos(toRad(lon))
	return cosLat * cosLon, cosLat * sinLon, sinLat
}

func norm3(x, y, z float64) float64 { return math.Sqrt(x*x + y*y + z*z) }

func dot3(x1, y1, z1, x2, y2, z2 float64) float64 { return x1*x2 + y1*y2 + z1*z2 }
