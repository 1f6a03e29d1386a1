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
	"io/ioutil"

	"github.com/sirupsen/logrus"
)

const (
	// Version gives the version number.
	Version = "0.3.0"

	// GridDataVersion gives the version of the prepared-grid file layout
	// written and required by this version of the software.
	GridDataVersion = "1.1"
)

// Log receives diagnostic messages from package operations, most notably
// warnings about numerical gaps (NaN refractivity encountered along a ray).
// It discards everything by default; callers wanting diagnostics should
// replace the output and level.
var Log = &logrus.Logger{
	Out:       ioutil.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.WarnLevel,
}
