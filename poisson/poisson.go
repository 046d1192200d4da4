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

// Package poisson implements the solver contract the capacitance core
// drives repeatedly (once per capacitance-matrix column, and once per
// time step after correction): given a charge density rho, produce the
// potential phi satisfying the discrete Poisson equation over a
// grid.Grid, re-entrant and with boundary conditions owned by the
// solver rather than the caller.
//
// Solver is a damped-Jacobi / successive-over-relaxation point
// relaxation, the style of iterative field update used throughout the
// relaxation-loop examples this module draws on (a stencil pass over
// every interior node, each pass separated by a halo exchange) adapted
// to three dimensions and to this module's stride-indexed grid.Grid.
package poisson

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"
)

// BoundaryCondition selects how Solver treats the global domain edge
// (a subdomain with no neighbor on a given side). It has no effect on
// inter-subdomain faces, which always halo-exchange.
type BoundaryCondition int

const (
	// Dirichlet holds phi at zero on the global domain edge's ghost
	// layer for every iteration.
	Dirichlet BoundaryCondition = iota
	// Periodic leaves the global domain edge's ghost layer unpinned:
	// no wrap-around onto the opposite edge is performed, so those
	// ghost nodes keep whatever values they already hold.
	Periodic
)

// Config configures a Solver instance. Neighbors[d][0] and
// Neighbors[d][1] are the lower- and upper-neighbor ranks along axis d
// (grid.NDim axes), or -1 at the global domain edge, matching
// grid.Grid.Exchange's convention.
type Config struct {
	Neighbors [grid.NDim][2]int
	// H is the physical grid spacing along each axis.
	H [grid.NDim]float64
	BC        BoundaryCondition
	// Omega is the SOR relaxation factor; 1.0 reduces to plain
	// damped-Jacobi.
	Omega   float64
	Tol     float64
	MaxIter int
}

// Solver is a re-entrant Poisson solver satisfying capacitance.Solver
// and correct's implicit solver dependency.
type Solver struct {
	cfg Config
}

// New builds a Solver from cfg.
func New(cfg Config) *Solver {
	if cfg.Omega == 0 {
		cfg.Omega = 1.0
	}
	return &Solver{cfg: cfg}
}

// Solve relaxes phi toward a solution of the discrete Poisson equation
// sourced by rho, iterating until the global residual norm drops below
// cfg.Tol or cfg.MaxIter passes have run. phi is used as the initial
// guess and overwritten in place.
func (s *Solver) Solve(rho, phi *grid.Grid, c comm.Communicator) error {
	rank := c.Rank()
	coeff := [grid.NDim]float64{}
	var diag float64
	for d := 0; d < grid.NDim; d++ {
		h := s.cfg.H[d]
		coeff[d] = 1 / (h * h)
		diag += 2 * coeff[d]
	}
	if diag == 0 {
		return picaperr.Configf(rank, "poisson.Solve", "grid spacing H is all zero")
	}

	scratch := make([]float64, phi.Len())

	for iter := 0; iter < s.cfg.MaxIter; iter++ {
		if err := s.exchangeAndPin(phi, c); err != nil {
			return err
		}
		copy(scratch, phi.Values())

		residSq := sweep(rho, phi, scratch, coeff, diag, s.cfg.Omega)

		total, err := c.AllReduce(residSq, comm.Sum)
		if err != nil {
			return picaperr.Commf(rank, "poisson.Solve", "all-reduce(residual norm): %v", err)
		}
		if math.Sqrt(total) < s.cfg.Tol {
			return s.exchangeAndPin(phi, c)
		}
	}
	return s.exchangeAndPin(phi, c)
}

// exchangeAndPin halo-exchanges phi across every axis and, for a
// Dirichlet boundary, zeroes any ghost layer at the global domain edge
// (a -1 neighbor) that Exchange left untouched.
func (s *Solver) exchangeAndPin(phi *grid.Grid, c comm.Communicator) error {
	rank := c.Rank()
	for axis := 0; axis < grid.NDim; axis++ {
		lower, upper := s.cfg.Neighbors[axis][0], s.cfg.Neighbors[axis][1]
		if err := phi.Exchange(c, axis, lower, upper, grid.HaloSet); err != nil {
			return picaperr.Commf(rank, "poisson.Solve", "halo exchange axis %d: %v", axis, err)
		}
	}
	if s.cfg.BC == Dirichlet {
		pinEdgeGhostsToZero(phi, s.cfg.Neighbors)
	}
	return nil
}

// pinEdgeGhostsToZero zeroes every ghost node on a face with no
// neighbor, implementing a Dirichlet boundary at the global domain
// edge.
func pinEdgeGhostsToZero(phi *grid.Grid, neighbors [grid.NDim][2]int) {
	vals := phi.Values()
	for i := range vals {
		if !phi.IsGhost(i) {
			continue
		}
		x, y, z := phi.Coords(i)
		coords := [grid.NDim]int{x, y, z}
		for d := 0; d < grid.NDim; d++ {
			lo := phi.NGhostLayers[2*d]
			hi := lo + phi.TrueSize[d]
			if coords[d] < lo && neighbors[d][0] < 0 {
				vals[i] = 0
			}
			if coords[d] >= hi && neighbors[d][1] < 0 {
				vals[i] = 0
			}
		}
	}
}

// sweep performs one damped-Jacobi/SOR pass over every non-ghost node,
// reading neighbor values from old (the pre-sweep snapshot) and writing
// the update into phi, returning the sum of squared per-node residuals
// for this rank's subdomain.
func sweep(rho, phi *grid.Grid, old []float64, coeff [grid.NDim]float64, diag, omega float64) float64 {
	sp := phi.SizeProd
	vals := phi.Values()
	rhoVals := rho.Values()
	var residSq float64
	for i := range vals {
		if phi.IsGhost(i) {
			continue
		}
		neighborSum := coeff[0]*(old[i+sp[1]]+old[i-sp[1]]) +
			coeff[1]*(old[i+sp[2]]+old[i-sp[2]]) +
			coeff[2]*(old[i+sp[3]]+old[i-sp[3]])
		jacobi := (neighborSum - rhoVals[i]) / diag
		resid := jacobi - old[i]
		vals[i] = old[i] + omega*resid
		residSq += resid * resid
	}
	return residSq
}

// residualNorm is a small gonum-backed helper kept for diagnostics and
// tests: the L2 norm of a - b, taken over every entry.
func residualNorm(a, b []float64) float64 {
	diff := make([]float64, len(a))
	copy(diff, a)
	floats.Sub(diff, b)
	return floats.Norm(diff, 2)
}
