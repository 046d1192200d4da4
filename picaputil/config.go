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

// Package picaputil wires the capacitance core's packages into a runnable
// program: configuration (viper, following inmaputil's options-slice
// pattern), a cobra command tree, and the init-then-step run loop that
// drives objmap, classify, capacitance, poisson, correct, impact, and
// photoemission together over a comm.Communicator.
package picaputil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/spf13/pflag"

	"github.com/spatialmodel/picap/grid"
)

// Cfg holds configuration information, following inmaputil's package-level
// viper instance.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "bootstrap",
			usage: `
              bootstrap specifies the path to a low-level .ini file
              holding grid and mpi settings, read before the rest of
              configuration resolves. Optional.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-format",
			usage: `
              log-format selects "text" (human-readable) or "json"
              structured log output.`,
			defaultVal: "text",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "input.objectMap",
			usage: `
              input.objectMap is the path to the netCDF file holding the
              Object dataset that tags each grid node's conductor
              membership.`,
			defaultVal: "object.ncf",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "output.file",
			usage: `
              output.file is the path to the netCDF file the final rho,
              phi, and rhoObj grids are persisted to.`,
			defaultVal: "picap_output.ncf",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "grid.trueSize",
			usage: `
              grid.trueSize is the global true-domain node count along
              x, y, z (excluding ghost layers).`,
			defaultVal: []int{32, 32, 32},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "grid.nGhostLayers",
			usage: `
              grid.nGhostLayers is the ghost layer count before and
              after each axis, in the order xBefore, xAfter, yBefore,
              yAfter, zBefore, zAfter.`,
			defaultVal: []int{1, 1, 1, 1, 1, 1},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "grid.h",
			usage: `
              grid.h is the physical grid spacing along x, y, z.`,
			defaultVal: []float64{1, 1, 1},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "methods.poisson",
			usage: `
              methods.poisson selects the Poisson solver: "jacobi" for
              damped-Jacobi/SOR point relaxation, or "multigrid" for
              the geometric-multigrid V-cycle.`,
			defaultVal: "jacobi",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "methods.omega",
			usage: `
              methods.omega is the SOR relaxation factor used by the
              jacobi solver; 1.0 is plain damped-Jacobi.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "methods.tol",
			usage: `
              methods.tol is the Poisson solver's residual-norm
              convergence tolerance.`,
			defaultVal: 1e-6,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "methods.maxIter",
			usage: `
              methods.maxIter is the maximum number of Poisson solver
              iterations per solve.`,
			defaultVal: 2000,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "mpi.ranks",
			usage: `
              mpi.ranks is the number of goroutine-backed ranks to run
              the simulation across.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "run.numSteps",
			usage: `
              run.numSteps is the number of simulation time steps to
              run.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "run.dt",
			usage: `
              run.dt is the simulation time step, in seconds.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "fields.b",
			usage: `
              fields.b is a uniform external magnetic field (Bx, By,
              Bz) applied to every particle in addition to the field
              the Poisson solve produces.`,
			defaultVal: []float64{0, 0, 0},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "population.charges",
			usage: `
              population.charges gives each species' per-particle
              charge.`,
			defaultVal: []float64{-1.6e-19},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "population.masses",
			usage: `
              population.masses gives each species' per-particle mass,
              parallel to population.charges.`,
			defaultVal: []float64{9.11e-31},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "population.capacities",
			usage: `
              population.capacities gives each species' fixed
              allocated particle block size, parallel to
              population.charges.`,
			defaultVal: []int{10000},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "population.seedPerRank",
			usage: `
              population.seedPerRank is the number of particles of each
              species to scatter uniformly at random across this
              rank's true domain at the start of the run, in
              grid-index units.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "objects.enabled",
			usage: `
              objects.enabled turns on the conductor-object subsystem;
              if true and the Object Map contains no tagged nodes, the
              run aborts with a CONFIG error.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), validateCmd.Flags()},
		},
		{
			name: "objects.photoemission",
			usage: `
              objects.photoemission turns on the sun-driven
              photoelectron yield subcomponent.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "objects.workFunction",
			usage: `
              objects.workFunction gives each object's photoelectric
              work function cutoff (m^-1), indexed 1..N.`,
			defaultVal: []float64{5e6},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "objects.conductingSurface",
			usage: `
              objects.conductingSurface gives each object's exposed
              conducting surface area (m^2), indexed 1..N.`,
			defaultVal: []float64{1.0},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "objects.distanceFromSun",
			usage: `
              objects.distanceFromSun is the distance from the sun
              used for the photoemission solid-angle calculation, in
              meters.`,
			defaultVal: 1.496e11,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "spectrum.blackBodyTemp",
			usage: `
              spectrum.blackBodyTemp is the blackbody temperature (K)
              used for the Planck spectral integral.`,
			defaultVal: 5778.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()
	Cfg.SetEnvPrefix("PICAP")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 {
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.String(option.name, v, option.usage)
			case bool:
				set.Bool(option.name, v, option.usage)
			case int:
				set.Int(option.name, v, option.usage)
			case float64:
				set.Float64(option.name, v, option.usage)
			case []int:
				set.IntSlice(option.name, v, option.usage)
			case []float64:
				set.Float64Slice(option.name, v, option.usage)
			default:
				panic("picaputil: invalid default value type for option " + option.name)
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig reads the .ini bootstrap file, if any, then the TOML
// configuration file, if there is one; bootstrap values act as
// defaults the TOML file and command-line flags can still override.
func setConfig() error {
	if err := loadBootstrap(Cfg.GetString("bootstrap")); err != nil {
		return err
	}
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("picap: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// gridNGhostLayers converts the flat grid.nGhostLayers config value into
// grid.Grid's [2*NDim]int layout, validating its length.
func gridNGhostLayers() ([2 * grid.NDim]int, error) {
	var out [2 * grid.NDim]int
	v := Cfg.GetIntSlice("grid.nGhostLayers")
	if len(v) != 2*grid.NDim {
		return out, fmt.Errorf("grid.nGhostLayers has %d entries, want %d", len(v), 2*grid.NDim)
	}
	copy(out[:], v)
	return out, nil
}

// gridTrueSize reads the global true-domain size, validating its length.
func gridTrueSize() ([grid.NDim]int, error) {
	var out [grid.NDim]int
	v := Cfg.GetIntSlice("grid.trueSize")
	if len(v) != grid.NDim {
		return out, fmt.Errorf("grid.trueSize has %d entries, want %d", len(v), grid.NDim)
	}
	copy(out[:], v)
	return out, nil
}

// gridSpacing reads the physical grid spacing, validating its length.
func gridSpacing() ([grid.NDim]float64, error) {
	var out [grid.NDim]float64
	v := Cfg.GetFloat64Slice("grid.h")
	if len(v) != grid.NDim {
		return out, fmt.Errorf("grid.h has %d entries, want %d", len(v), grid.NDim)
	}
	copy(out[:], v)
	return out, nil
}

// checkOutputFile makes sure the output file's directory exists.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file (for example: output.file="state.ncf")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if outdir != "." {
		if _, err := os.Stat(outdir); err != nil {
			return f, fmt.Errorf("picap: the output.file directory doesn't exist: %v", err)
		}
	}
	return f, nil
}
