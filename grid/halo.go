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

package grid

import "github.com/spatialmodel/picap/comm"

// HaloMode selects which of the two ghost-layer synchronization
// operations Exchange performs.
type HaloMode int

const (
	// HaloSet overwrites this grid's ghost slab with the neighboring
	// subdomain's adjoining true-domain slab. Used before a stencil pass
	// needs ghost values to read, e.g. before computing the Laplacian at
	// a node one layer inside the true domain.
	HaloSet HaloMode = iota
	// HaloAdd adds the neighboring subdomain's ghost slab into this
	// grid's adjoining true-domain slab. Used to fold charge density
	// deposited into a ghost layer by particles or surface nodes that
	// are logically owned by the neighboring subdomain back into the
	// true domain that owns them.
	HaloAdd
)

// Exchange synchronizes the ghost layers of axis (0, 1, or 2 for x, y, z)
// with the subdomains at lowerNeighbor and upperNeighbor, which are
// communicator ranks or -1 if this subdomain sits at the global domain
// edge in that direction and has no neighbor to exchange with.
//
// Exchange assumes every rank's subdomain has the same ghost-layer
// thickness on matching sides along axis, which holds for the uniform
// block decomposition the capacitance core is built for.
func (g *Grid) Exchange(c comm.Communicator, axis int, lowerNeighbor, upperNeighbor int, mode HaloMode) error {
	before := g.NGhostLayers[2*axis]
	after := g.NGhostLayers[2*axis+1]
	trueLo := before
	trueHi := before + g.TrueSize[axis]

	switch mode {
	case HaloSet:
		if err := g.exchangeDirection(c, axis, trueLo, after, trueHi, after, lowerNeighbor, upperNeighbor, false); err != nil {
			return err
		}
		return g.exchangeDirection(c, axis, trueHi-before, before, 0, before, upperNeighbor, lowerNeighbor, false)
	case HaloAdd:
		if err := g.exchangeDirection(c, axis, 0, before, trueHi-before, before, lowerNeighbor, upperNeighbor, true); err != nil {
			return err
		}
		return g.exchangeDirection(c, axis, trueHi, after, trueLo, after, upperNeighbor, lowerNeighbor, true)
	}
	return nil
}

func (g *Grid) exchangeDirection(c comm.Communicator, axis, sendStart, sendThickness, recvStart, recvThickness, dest, source int, add bool) error {
	var sendBuf []float64
	if dest >= 0 {
		sendBuf = g.extractSlab(axis, sendStart, sendThickness)
	}
	recvBuf, err := c.SendRecv(dest, sendBuf, source)
	if err != nil {
		return err
	}
	if source >= 0 {
		g.depositSlab(axis, recvStart, recvThickness, recvBuf, add)
	}
	return nil
}

// forSlab calls f for every (x, y, z) whose coordinate along axis falls in
// [start, start+thickness), with the other two axes spanning their full
// extent including ghosts, in z-outer, y-middle, x-inner order.
func (g *Grid) forSlab(axis, start, thickness int, f func(x, y, z int)) {
	lo, hi := [NDim]int{0, 0, 0}, g.Size
	lo[axis] = start
	hi[axis] = start + thickness
	for z := lo[2]; z < hi[2]; z++ {
		for y := lo[1]; y < hi[1]; y++ {
			for x := lo[0]; x < hi[0]; x++ {
				f(x, y, z)
			}
		}
	}
}

func (g *Grid) extractSlab(axis, start, thickness int) []float64 {
	n := thickness
	for d := 0; d < NDim; d++ {
		if d != axis {
			n *= g.Size[d]
		}
	}
	buf := make([]float64, 0, n)
	vals := g.Values()
	g.forSlab(axis, start, thickness, func(x, y, z int) {
		buf = append(buf, vals[g.Idx(x, y, z)])
	})
	return buf
}

func (g *Grid) depositSlab(axis, start, thickness int, buf []float64, add bool) {
	vals := g.Values()
	i := 0
	g.forSlab(axis, start, thickness, func(x, y, z int) {
		idx := g.Idx(x, y, z)
		if add {
			vals[idx] += buf[i]
		} else {
			vals[idx] = buf[i]
		}
		i++
	})
}
