/*
Copyright (C) 2013-2014 Regents of the University of Minnesota.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command picap is a command-line interface for the embedded-conductor
// electrostatic PIC core.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spatialmodel/picap/picaperr"
	"github.com/spatialmodel/picap/picaputil"
)

func main() {
	if err := picaputil.Execute(); err != nil {
		var perr *picaperr.Error
		if errors.As(err, &perr) {
			fmt.Fprintf(os.Stderr, "rank %d: %s: %s\n", perr.Rank, perr.Kind, perr.Op)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
