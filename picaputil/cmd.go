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
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/picap/logging"
)

// Version is this build's version string.
const Version = "0.1.0-dev"

// Root is the main command.
var Root = &cobra.Command{
	Use:   "picap",
	Short: "A distributed embedded-conductor electrostatic PIC core.",
	Long: `picap assembles per-object capacitance matrices from a tagged
conductor Object Map, then runs a plasma simulation step loop that
solves the Poisson equation, corrects each conductor to its
self-consistent floating potential, and collects particle impacts onto
conductor surfaces.

Configuration can be changed by using a configuration file (and providing
the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'PICAP_var'
where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version number",
	Long:              "version prints the version number of this build of picap.",
	DisableAutoGenTag: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("picap v%s\n", Version)
	},
}

var runCmd = &cobra.Command{
	Use:               "run",
	Short:             "Run a simulation.",
	Long:              "run loads the Object Map, assembles the capacitance structure, and steps the simulation the configured number of times.",
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logrus.New()
		if err := logging.SetFormat(logger, Cfg.GetString("log-format")); err != nil {
			return err
		}
		return Run(Cfg, logger)
	},
}

var validateCmd = &cobra.Command{
	Use:               "validate",
	Short:             "Validate configuration and the Object Map without running.",
	Long:              "validate checks that the grid, method, and Object Map configuration are internally consistent, without running any simulation steps.",
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := Validate(Cfg)
		if err != nil {
			return err
		}
		cmd.Printf("configuration OK: %d conductor object(s) found\n", n)
		return nil
	},
}

func init() {
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(validateCmd)
}

// Execute runs the command tree, returning any error encountered
// unwrapped so callers can type-assert a *picaperr.Error.
func Execute() error {
	return Root.Execute()
}
