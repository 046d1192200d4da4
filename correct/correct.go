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

// Package correct implements the per-time-step Hockney-Miyake charge
// correction: after a base Poisson solve produces a tentative phi
// that generally does not satisfy the equipotential constraint on each
// conductor, Apply nudges rho so that a follow-up solve will bring every
// conductor to its self-consistent floating potential.
package correct

import (
	"github.com/spatialmodel/picap/capacitance"
	"github.com/spatialmodel/picap/classify"
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"
)

// Apply runs the four-step Hockney-Miyake correction for every object in
// store against the just-solved phi, accumulating corrections into rho.
// The caller re-invokes the Poisson solver after Apply returns.
func Apply(store *capacitance.Store, tbl *classify.Tables, gsm *classify.GlobalSurfaceMap, rho, phi *grid.Grid, c comm.Communicator) error {
	for a := 1; a <= tbl.N; a++ {
		if err := applyOne(store.Objects[a], tbl, gsm, a, rho, phi, c); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(obj *capacitance.Object, tbl *classify.Tables, gsm *classify.GlobalSurfaceMap, a int, rho, phi *grid.Grid, c comm.Communicator) error {
	rank := c.Rank()
	T := obj.T
	localLo, localHi := tbl.SO[a-1], tbl.SO[a]
	localOffset := gsm.LocalOffset(a, rank)

	// Step 1: the object's self-consistent floating potential.
	var localSum float64
	for localJ := localLo; localJ < localHi; localJ++ {
		globalJ := localOffset + (localJ - localLo)
		rowSum := 0.0
		for i := 0; i < T; i++ {
			rowSum += obj.Kinv.At(globalJ, i)
		}
		localSum += rowSum * phi.Values()[tbl.Surface[localJ]]
	}
	phiC, err := c.AllReduce(obj.S*localSum, comm.Sum)
	if err != nil {
		return picaperr.Commf(rank, "correct.Apply", "object %d: all-reduce(phiC): %v", a, err)
	}

	// Step 2: per-node potential deficit, gathered to the full T-vector.
	deltaPhiLocal := make([]float64, T)
	for localJ := localLo; localJ < localHi; localJ++ {
		globalJ := localOffset + (localJ - localLo)
		deltaPhiLocal[globalJ] = phiC - phi.Values()[tbl.Surface[localJ]]
	}
	deltaPhi, err := comm.AllReduceVector(c, deltaPhiLocal, comm.Sum)
	if err != nil {
		return picaperr.Commf(rank, "correct.Apply", "object %d: all-reduce(deltaPhi): %v", a, err)
	}

	// Step 3: the charge correction driving phi toward phiC at this
	// object's surface, gathered to the full T-vector.
	rhoCorrLocal := make([]float64, T)
	for i := 0; i < T; i++ {
		s := 0.0
		for localJ := localLo; localJ < localHi; localJ++ {
			globalJ := localOffset + (localJ - localLo)
			s += obj.Kinv.At(globalJ, i) * deltaPhi[globalJ]
		}
		rhoCorrLocal[i] = s
	}
	rhoCorr, err := comm.AllReduceVector(c, rhoCorrLocal, comm.Sum)
	if err != nil {
		return picaperr.Commf(rank, "correct.Apply", "object %d: all-reduce(rhoCorr): %v", a, err)
	}

	// Step 4: fold the correction into this rank's owned surface nodes.
	for localJ := localLo; localJ < localHi; localJ++ {
		globalJ := localOffset + (localJ - localLo)
		rho.Values()[tbl.Surface[localJ]] += rhoCorr[globalJ]
	}
	return nil
}
