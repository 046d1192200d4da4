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

// Package impact collects particle impacts onto conductor objects: each
// step, every particle whose cell-integer position falls in an object's
// Interior list
// is absorbed, its charge attributed to that object, and the accumulated
// charge redistributed uniformly across the object's surface nodes.
package impact

import (
	"math"

	"github.com/spatialmodel/picap/classify"
	"github.com/spatialmodel/picap/collision"
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"
	"github.com/spatialmodel/picap/population"
)

// Collect scans every live particle of every species against tbl's
// Interior lookup. For each particle whose cell falls inside an
// object, policy decides whether it is absorbed; an absorbed
// particle's charge is attributed to that object and the particle is
// removed. Collected charge is deposited uniformly onto rhoObj's
// surface nodes of the owning object. rhoObj accumulates across
// steps; the caller adds it into the plasma rho before the next
// Poisson solve.
func Collect(pop *population.Population, tbl *classify.Tables, gsm *classify.GlobalSurfaceMap, g *grid.Grid, rhoObj *grid.Grid, c comm.Communicator, policy collision.ElasticCollisionPolicy) error {
	rank := c.Rank()
	collected := make([]float64, tbl.N+1)

	for s := range pop.Species {
		start, stop := pop.Range(s)
		for i := start; i < stop; i++ {
			part := pop.Particles[i]
			cellIdx, ok := cellIndex(g, part.Pos)
			if !ok {
				// Particle's cell index lands on a ghost node; skip
				// attribution rather than double-count work another
				// rank already owns.
				continue
			}
			a := findOwningObject(tbl, cellIdx)
			if a == 0 {
				continue
			}
			outcome := policy.Resolve(float64(a), pop.Charge(s))
			if !outcome.Absorbed {
				continue
			}
			collected[a] += outcome.Charge
			pop.Cut(s, i)
			// A particle just got swapped into index i from the end of
			// this species' live range; re-examine it before advancing.
			stop--
			i--
		}
	}

	for a := 1; a <= tbl.N; a++ {
		total, err := c.AllReduce(collected[a], comm.Sum)
		if err != nil {
			return picaperr.Commf(rank, "impact.Collect", "object %d: all-reduce(collectedCharge): %v", a, err)
		}
		t := gsm.T[a]
		if t == 0 {
			continue
		}
		share := total / float64(t)
		for localB := tbl.SO[a-1]; localB < tbl.SO[a]; localB++ {
			rhoObj.Values()[tbl.Surface[localB]] += share
		}
	}
	return nil
}

// cellIndex derives the linear index of a particle's cell lower corner
// (floor of each position component), reporting false if that node is a
// ghost node of the local subdomain.
func cellIndex(g *grid.Grid, pos [3]float64) (int, bool) {
	x := int(math.Floor(pos[0]))
	y := int(math.Floor(pos[1]))
	z := int(math.Floor(pos[2]))
	if x < 0 || y < 0 || z < 0 || x >= g.Size[0] || y >= g.Size[1] || z >= g.Size[2] {
		return 0, false
	}
	i := g.Idx(x, y, z)
	if g.IsGhost(i) {
		return 0, false
	}
	return i, true
}

// findOwningObject scans every object's Interior list for idx, returning
// the owning object tag or 0 if none matches. Interior lists are small
// per-object index sets built by classify.Build, so a linear scan over
// them is cheap and keeps the lookup independent of grid size.
func findOwningObject(tbl *classify.Tables, idx int) int {
	for a := 1; a <= tbl.N; a++ {
		for _, i := range tbl.Interior[tbl.IO[a-1]:tbl.IO[a]] {
			if i == idx {
				return a
			}
		}
	}
	return 0
}
