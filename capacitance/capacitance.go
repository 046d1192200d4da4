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

// Package capacitance assembles, inverts, and stores one dense
// capacitance matrix per conductor object. Column i of object a's
// capacitance matrix is the vector of surface-node potentials produced by
// placing a unit charge at surface node i and solving the Poisson
// equation with zero charge everywhere else; the correction step needs
// the inverse of this matrix.
package capacitance

import (
	"github.com/spatialmodel/picap/classify"
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"

	"gonum.org/v1/gonum/mat"
)

// Solver is the external Poisson solve this package drives repeatedly
// during assembly: rho is read, phi is written, and repeated calls with
// identical rho produce identical phi.
type Solver interface {
	Solve(rho, phi *grid.Grid, c comm.Communicator) error
}

// Object holds object a's inverted capacitance matrix and the derived
// scalar Sₐ = 1 / Σ K⁻¹ₐ[i,j].
type Object struct {
	T    int // global surface node count
	Kinv *mat.Dense
	S    float64
	Cond float64 // condition number of Cₐ, if computable; 0 if not
}

// Store is the per-object Capacitance Store, built once at init.
type Store struct {
	Objects []*Object // index 0 unused; objects are 1..N
}

// Build assembles the capacitance matrix for every object 1..tbl.N via
// repeated unit-charge Poisson solves, then inverts each one and
// computes its Sₐ scalar.
func Build(solver Solver, tbl *classify.Tables, gsm *classify.GlobalSurfaceMap, rho, phi *grid.Grid, c comm.Communicator) (*Store, error) {
	store := &Store{Objects: make([]*Object, tbl.N+1)}
	for a := 1; a <= tbl.N; a++ {
		obj, err := buildOne(solver, tbl, gsm, a, rho, phi, c)
		if err != nil {
			return nil, err
		}
		store.Objects[a] = obj
	}
	return store, nil
}

func buildOne(solver Solver, tbl *classify.Tables, gsm *classify.GlobalSurfaceMap, a int, rho, phi *grid.Grid, c comm.Communicator) (*Object, error) {
	T := gsm.T[a]
	if T < 1 {
		return nil, picaperr.Configf(c.Rank(), "capacitance.Build", "object %d has %d global surface nodes, want >= 1", a, T)
	}

	rank := c.Rank()
	localOffset := gsm.LocalOffset(a, rank)
	localLo, localHi := tbl.SO[a-1], tbl.SO[a]

	// localOwner[j] is true if this rank owns global surface index j of
	// object a; localIndex[j] is the corresponding local surface slot.
	owns := func(j int) (localSlot int, ok bool) {
		if j < localOffset || j >= localOffset+(localHi-localLo) {
			return 0, false
		}
		return localLo + (j - localOffset), true
	}

	C := mat.NewDense(T, T, nil)

	for i := 0; i < T; i++ {
		slot, iOwned := owns(i)
		if iOwned {
			rho.Values()[tbl.Surface[slot]] = 1
		}
		if err := solver.Solve(rho, phi, c); err != nil {
			return nil, picaperr.Numericalf(rank, "capacitance.Build", "object %d column %d: Poisson solve failed: %v", a, i, err)
		}
		for localJ := localLo; localJ < localHi; localJ++ {
			globalJ := localOffset + (localJ - localLo)
			C.Set(globalJ, i, phi.Values()[tbl.Surface[localJ]])
		}
		if iOwned {
			rho.Values()[tbl.Surface[slot]] = 0
		}
	}

	summed, err := allReduceMatrix(c, C, T)
	if err != nil {
		return nil, err
	}

	var lu mat.LU
	lu.Factorize(summed)
	cond := lu.Cond()

	var kinv mat.Dense
	if err := kinv.Inverse(summed); err != nil {
		return nil, picaperr.Numericalf(rank, "capacitance.Build", "object %d: LU inversion failed (cond=%.3e): %v", a, cond, err)
	}

	s := 0.0
	for i := 0; i < T; i++ {
		for j := 0; j < T; j++ {
			s += kinv.At(i, j)
		}
	}
	if s == 0 {
		return nil, picaperr.Numericalf(rank, "capacitance.Build", "object %d: Sₐ is zero (Σ K⁻¹ has no nonzero contribution)", a)
	}

	return &Object{T: T, Kinv: &kinv, S: 1 / s, Cond: cond}, nil
}

// allReduceMatrix sums C element-wise across every rank via repeated
// scalar all-reduces, producing the complete Cₐ on every rank.
func allReduceMatrix(c comm.Communicator, C *mat.Dense, T int) (*mat.Dense, error) {
	out := mat.NewDense(T, T, nil)
	for i := 0; i < T; i++ {
		for j := 0; j < T; j++ {
			v, err := c.AllReduce(C.At(i, j), comm.Sum)
			if err != nil {
				return nil, picaperr.Commf(c.Rank(), "capacitance.allReduceMatrix", "all-reduce(sum) at (%d,%d): %v", i, j, err)
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}
