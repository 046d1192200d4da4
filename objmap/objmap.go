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

// Package objmap owns the per-node integer tag field identifying which
// conductor object, if any, each grid node belongs to. Tag 0 means plasma;
// a positive tag a means the node belongs to object a. The field is loaded
// once at init, ghost-exchanged, and never mutated afterward.
package objmap

import (
	"math"

	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"
)

// Loader reads the Object dataset into a field shaped like g and returns
// it as raw real values (pre-rounding); objio.Reader implements this.
type Loader interface {
	LoadObject(g *grid.Grid) ([]float64, error)
}

// Map is the per-process tag field and the object count every rank agrees
// on.
type Map struct {
	Tag []int // one entry per grid node, round(loaded value)
	N   int   // number of objects, max tag across all ranks
}

// Load reads the Object dataset via l into a field shaped like g,
// ghost-exchanges it in Set mode so boundary stencils see a consistent
// neighbor tag, and determines the object count N via an all-reduce max
// over every rank's local maximum tag.
//
// lowerNeighbor/upperNeighbor give g's neighbor ranks along each axis (-1
// for "no neighbor"), in the same [axis][2] shape grid.Grid.NGhostLayers
// uses: neighbors[d][0] is the rank below axis d, neighbors[d][1] is the
// rank above it.
func Load(l Loader, g *grid.Grid, c comm.Communicator, neighbors [grid.NDim][2]int, objectsEnabled bool) (*Map, error) {
	raw, err := l.LoadObject(g)
	if err != nil {
		return nil, picaperr.Configf(c.Rank(), "objmap.Load", "loading object map: %v", err)
	}
	if len(raw) != g.Len() {
		return nil, picaperr.Configf(c.Rank(), "objmap.Load",
			"loaded object map has %d nodes, grid has %d: shape disagreement", len(raw), g.Len())
	}

	var nGhostBefore, nGhostAfter [grid.NDim]int
	for d := 0; d < grid.NDim; d++ {
		nGhostBefore[d] = g.NGhostLayers[2*d]
		nGhostAfter[d] = g.NGhostLayers[2*d+1]
	}
	field := grid.New(g.TrueSize, nGhostBefore, nGhostAfter)
	copy(field.Values(), raw)

	for axis := 0; axis < grid.NDim; axis++ {
		if err := field.Exchange(c, axis, neighbors[axis][0], neighbors[axis][1], grid.HaloSet); err != nil {
			return nil, picaperr.Commf(c.Rank(), "objmap.Load", "halo exchange along axis %d: %v", axis, err)
		}
	}

	tag := make([]int, len(raw))
	localMax := 0
	for i, v := range field.Values() {
		t := int(math.Round(v))
		tag[i] = t
		if t > localMax {
			localMax = t
		}
	}

	nFloat, err := c.AllReduce(float64(localMax), comm.Max)
	if err != nil {
		return nil, picaperr.Commf(c.Rank(), "objmap.Load", "all-reduce(max) over object tags: %v", err)
	}
	n := int(nFloat)

	if objectsEnabled && n == 0 {
		return nil, picaperr.Configf(c.Rank(), "objmap.Load", "object subsystem enabled but object map contains no tagged nodes (N=0)")
	}

	return &Map{Tag: tag, N: n}, nil
}
