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

package poisson

import (
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"
)

// MGSolver is a geometric-multigrid V-cycle built on the same
// damped-Jacobi sweep Solver uses at its finest level, coarsening by a
// factor of two per level until a grid is small enough to relax
// directly. It has the same Solve signature as Solver and is selected
// by the same config key. Unlike Solver, it does not iterate to a
// tolerance: each Solve call runs a single V-cycle starting from phi's
// current values, so repeated calls with the same rho keep refining
// phi rather than reproducing it.
//
// MGSolver restricts to single-rank subdomains: a subdomain spanning
// multiple ranks cannot be halved independently per rank without
// re-partitioning the coarse grids, which is out of scope here. A
// multi-rank caller should use Solver instead.
type MGSolver struct {
	cfg      Config
	levels   int
	preIter  int
	postIter int
}

// NewMG builds an MGSolver with the given number of V-cycle levels
// (including the finest) and pre-/post-smoothing sweep counts.
func NewMG(cfg Config, levels, preIter, postIter int) *MGSolver {
	if cfg.Omega == 0 {
		cfg.Omega = 1.0
	}
	return &MGSolver{cfg: cfg, levels: levels, preIter: preIter, postIter: postIter}
}

// Solve runs one V-cycle per call, using phi's current values as the
// starting guess.
func (m *MGSolver) Solve(rho, phi *grid.Grid, c comm.Communicator) error {
	if c.Size() != 1 {
		return picaperr.Configf(c.Rank(), "poisson.MGSolver.Solve", "multigrid solver requires a single-rank subdomain, got %d ranks", c.Size())
	}
	m.vCycle(rho, phi, c, m.levels, m.cfg.H)
	return nil
}

func (m *MGSolver) vCycle(rho, phi *grid.Grid, c comm.Communicator, levelsLeft int, h [grid.NDim]float64) {
	coeff, diag := coeffAndDiag(h)

	if levelsLeft <= 1 || !canCoarsen(phi) {
		relax(rho, phi, coeff, diag, m.cfg.Omega, m.preIter+m.postIter)
		return
	}

	relax(rho, phi, coeff, diag, m.cfg.Omega, m.preIter)

	residual := grid.New(phi.TrueSize, ghostBefore(phi), ghostAfter(phi))
	computeResidual(rho, phi, residual, coeff, diag)

	coarse := coarsen(residual)
	coarsePhi := grid.New(coarse.TrueSize, ghostBefore(coarse), ghostAfter(coarse))
	coarseH := [grid.NDim]float64{h[0] * 2, h[1] * 2, h[2] * 2}
	m.vCycle(coarse, coarsePhi, c, levelsLeft-1, coarseH)

	prolongAdd(coarsePhi, phi)
	relax(rho, phi, coeff, diag, m.cfg.Omega, m.postIter)
}

func coeffAndDiag(h [grid.NDim]float64) (coeff [grid.NDim]float64, diag float64) {
	for d := 0; d < grid.NDim; d++ {
		coeff[d] = 1 / (h[d] * h[d])
		diag += 2 * coeff[d]
	}
	return coeff, diag
}

func ghostBefore(g *grid.Grid) [grid.NDim]int {
	return [grid.NDim]int{g.NGhostLayers[0], g.NGhostLayers[2], g.NGhostLayers[4]}
}

func ghostAfter(g *grid.Grid) [grid.NDim]int {
	return [grid.NDim]int{g.NGhostLayers[1], g.NGhostLayers[3], g.NGhostLayers[5]}
}

// relax runs n damped-Jacobi sweeps of phi against rho in place, with
// no halo exchange: MGSolver only ever operates on single-rank
// subdomains, so "ghost" nodes here are a fixed Dirichlet-zero frame
// rather than inter-rank halos.
func relax(rho, phi *grid.Grid, coeff [grid.NDim]float64, diag, omega float64, n int) {
	scratch := make([]float64, phi.Len())
	for iter := 0; iter < n; iter++ {
		copy(scratch, phi.Values())
		sweep(rho, phi, scratch, coeff, diag, omega)
	}
}

func computeResidual(rho, phi, residual *grid.Grid, coeff [grid.NDim]float64, diag float64) {
	sp := phi.SizeProd
	phiVals := phi.Values()
	rhoVals := rho.Values()
	resVals := residual.Values()
	for i := range phiVals {
		if phi.IsGhost(i) {
			continue
		}
		lap := coeff[0]*(phiVals[i+sp[1]]+phiVals[i-sp[1]]-2*phiVals[i]) +
			coeff[1]*(phiVals[i+sp[2]]+phiVals[i-sp[2]]-2*phiVals[i]) +
			coeff[2]*(phiVals[i+sp[3]]+phiVals[i-sp[3]]-2*phiVals[i])
		resVals[i] = rhoVals[i] - lap
	}
}

// canCoarsen reports whether every axis of g's true size can be evenly
// halved, a requirement of the simple cell-averaging restriction this
// V-cycle uses.
func canCoarsen(g *grid.Grid) bool {
	for d := 0; d < grid.NDim; d++ {
		if g.TrueSize[d] < 4 || g.TrueSize[d]%2 != 0 {
			return false
		}
	}
	return true
}

// coarsen restricts fine onto a grid with half the true size per axis
// by 2x2x2 block-averaging, the standard geometric-multigrid
// restriction operator.
func coarsen(fine *grid.Grid) *grid.Grid {
	coarseTrue := [grid.NDim]int{fine.TrueSize[0] / 2, fine.TrueSize[1] / 2, fine.TrueSize[2] / 2}
	coarse := grid.New(coarseTrue, ghostBefore(fine), ghostAfter(fine))
	fv := fine.Values()
	before := ghostBefore(fine)
	for z := 0; z < coarseTrue[2]; z++ {
		for y := 0; y < coarseTrue[1]; y++ {
			for x := 0; x < coarseTrue[0]; x++ {
				var sum float64
				for dz := 0; dz < 2; dz++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							fx := before[0] + 2*x + dx
							fy := before[1] + 2*y + dy
							fz := before[2] + 2*z + dz
							sum += fv[fine.Idx(fx, fy, fz)]
						}
					}
				}
				coarse.Values()[coarse.Idx(before[0]+x, before[1]+y, before[2]+z)] = sum / 8
			}
		}
	}
	return coarse
}

// prolongAdd adds each coarse node's correction onto the 2x2x2 block
// of fine nodes it covers (piecewise-constant prolongation), the dual
// of coarsen's block-averaging restriction.
func prolongAdd(coarse, fine *grid.Grid) {
	coarseTrue := coarse.TrueSize
	cBefore := ghostBefore(coarse)
	fBefore := ghostBefore(fine)
	for z := 0; z < coarseTrue[2]; z++ {
		for y := 0; y < coarseTrue[1]; y++ {
			for x := 0; x < coarseTrue[0]; x++ {
				v := coarse.Values()[coarse.Idx(cBefore[0]+x, cBefore[1]+y, cBefore[2]+z)]
				for dz := 0; dz < 2; dz++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							fx := fBefore[0] + 2*x + dx
							fy := fBefore[1] + 2*y + dy
							fz := fBefore[2] + 2*z + dz
							if fx >= fine.Size[0] || fy >= fine.Size[1] || fz >= fine.Size[2] {
								continue
							}
							fi := fine.Idx(fx, fy, fz)
							if fine.IsGhost(fi) {
								continue
							}
							fine.Values()[fi] += v
						}
					}
				}
			}
		}
	}
}
