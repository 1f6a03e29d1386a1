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
	"time"
)

// TimeOutOfRangeErr is returned when a weather product is requested for a
// time outside the period covered by the model.
type TimeOutOfRangeErr struct {
	Model      string
	Requested  time.Time
	Start, End time.Time
}

func (e TimeOutOfRangeErr) Error() string {
	if e.End.IsZero() {
		return fmt.Sprintf("weather model %s has no data before %v (requested %v)",
			e.Model, e.Start.Format(time.RFC3339), e.Requested.Format(time.RFC3339))
	}
	return fmt.Sprintf("weather model %s only covers %v to %v (requested %v)",
		e.Model, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339),
		e.Requested.Format(time.RFC3339))
}

// DataLagErr is returned when a weather product is requested for a time more
// recent than the model's publication lag allows.
type DataLagErr struct {
	Model     string
	Requested time.Time
	Lag       time.Duration
}

func (e DataLagErr) Error() string {
	return fmt.Sprintf("weather model %s data for %v is not yet available: products lag real time by %v",
		e.Model, e.Requested.Format(time.RFC3339), e.Lag)
}

// HumidityTypeErr is returned when weather model output declares a humidity
// variable kind that the refractivity calculation does not understand.
type HumidityTypeErr struct {
	Kind string
}

func (e HumidityTypeErr) Error() string {
	return fmt.Sprintf("unsupported humidity kind %q; must be %q (specific humidity) or %q (relative humidity)",
		e.Kind, HumidityQ, HumidityRH)
}

// ShapeErr is returned when an input array does not have the dimensions an
// operation requires.
type ShapeErr struct {
	Name string
	Want string
	Have []int
}

func (e ShapeErr) Error() string {
	return fmt.Sprintf("%s must have shape %s but has shape %v", e.Name, e.Want, e.Have)
}
