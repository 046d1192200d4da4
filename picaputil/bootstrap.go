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

package picaputil

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// loadBootstrap reads the low-level grid/mpi settings from an .ini file
// using a dictionary-style, section:key config format, and writes them
// into Cfg as defaults so the rest of configuration (TOML via viper,
// command-line flags) can still override them. It is a no-op if path
// is empty.
func loadBootstrap(path string) error {
	if path == "" {
		return nil
	}
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("picap: reading bootstrap file %s: %v", path, err)
	}

	grid := file.Section("grid")
	if v := grid.Key("trueSize").String(); v != "" {
		ints, err := parseIntList(v)
		if err != nil {
			return fmt.Errorf("picap: bootstrap grid:trueSize: %v", err)
		}
		Cfg.SetDefault("grid.trueSize", ints)
	}
	if v := grid.Key("nGhostLayers").String(); v != "" {
		ints, err := parseIntList(v)
		if err != nil {
			return fmt.Errorf("picap: bootstrap grid:nGhostLayers: %v", err)
		}
		Cfg.SetDefault("grid.nGhostLayers", ints)
	}
	if v := grid.Key("h").String(); v != "" {
		floats, err := parseFloatList(v)
		if err != nil {
			return fmt.Errorf("picap: bootstrap grid:h: %v", err)
		}
		Cfg.SetDefault("grid.h", floats)
	}

	mpi := file.Section("mpi")
	if v := mpi.Key("ranks").String(); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("picap: bootstrap mpi:ranks: %v", err)
		}
		Cfg.SetDefault("mpi.ranks", n)
	}

	return nil
}

// parseIntList parses a comma-separated list of integers: this .ini
// format expresses vectors as a single delimited key value rather than
// a native list type.
func parseIntList(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// parseFloatList parses a comma-separated list of float64s.
func parseFloatList(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
