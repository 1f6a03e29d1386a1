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

// Package tropo estimates the atmospheric propagation delay experienced by
// radar signals traveling through the troposphere. It reads the output of
// numerical weather models, converts pressure, temperature and humidity
// fields to hydrostatic and wet refractivity on a regular vertical grid, and
// integrates refractivity along rays from query points up to a reference
// height to produce delays in meters.
//
// The main entry points are Prepare, which turns raw weather model output
// into a ready-to-query WeatherData grid (caching the prepared grid as a
// NetCDF file), and DelayFromGrid and DelayOverArea, which compute
// hydrostatic and wet delays for sets of query points either along the local
// zenith or along explicit lines of sight.
package tropo
