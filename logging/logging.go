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

// Package logging provides the rank-prefixed structured logger used
// throughout the capacitance core. A fatal error surfaces as a single
// rank-prefixed log line immediately before the process aborts; this
// package is what produces that line.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger tagged with the given MPI-style rank. Every entry it
// produces carries a "rank" field so a multi-process run's interleaved
// stderr can still be attributed to a process.
func New(rank int) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l.WithField("rank", rank)
}

// SetFormat switches between human-readable text output (the default, used
// interactively) and JSON (used when log output is consumed by tooling).
func SetFormat(l *logrus.Logger, format string) error {
	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return &unknownFormatError{format}
	}
	return nil
}

type unknownFormatError struct{ format string }

func (e *unknownFormatError) Error() string {
	return "logging: unknown log format " + e.format + " (want \"text\" or \"json\")"
}
