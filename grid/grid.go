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

// Package grid implements the Cartesian 3D scalar grid abstraction that the
// capacitance core is built on top of: a per-process subdomain with ghost
// layers, flat linear indexing via cumulative strides, and a halo exchange
// for synchronizing ghost layers with neighboring subdomains.
//
// The storage backing a Grid is a github.com/ctessum/sparse DenseArray,
// the same dense-field container InMAP uses for its meteorology and
// concentration fields (see vargrid.go's CTMData); the stride/ghost-layer
// bookkeeping on top of it is new, since InMAP's own Cell grid is an
// unstructured polygon mesh with no notion of strides or ghosts.
package grid

import (
	"github.com/ctessum/sparse"
)

// NDim is the number of spatial dimensions a Grid has. The capacitance core
// is defined for 3D Cartesian subdomains only.
const NDim = 3

// Grid is a Cartesian 3D scalar field over a single process's subdomain,
// including ghost layers used for stencil completeness and inter-rank
// communication.
type Grid struct {
	// Size is the per-axis size of the subdomain including ghost layers.
	Size [NDim]int
	// TrueSize is the per-axis size of the subdomain excluding ghost layers.
	TrueSize [NDim]int
	// NGhostLayers holds, for axis d, the ghost layer count before the true
	// domain at NGhostLayers[2*d] and after it at NGhostLayers[2*d+1].
	NGhostLayers [2 * NDim]int
	// SizeProd holds cumulative strides: SizeProd[0] is always 1 (the
	// degenerate "component" stride for a scalar field), and SizeProd[d]
	// for d in {1,2,3} is the stride of axis d-1 (x, y, z respectively), so
	// that a linear index advances by SizeProd[d] when axis d-1's
	// coordinate increments by one. This indexing convention, including
	// the off-by-one between axis number and SizeProd slot, matches the
	// node-classification stencil in classify.surfaceOffsets exactly --
	// changing it changes which nodes are surface nodes.
	SizeProd [NDim + 1]int

	data *sparse.DenseArray
}

// New allocates a zeroed Grid of the given true size and per-axis ghost
// layer counts (before, after for each axis, in x,y,z order).
func New(trueSize [NDim]int, nGhostBefore, nGhostAfter [NDim]int) *Grid {
	g := &Grid{}
	for d := 0; d < NDim; d++ {
		g.TrueSize[d] = trueSize[d]
		g.NGhostLayers[2*d] = nGhostBefore[d]
		g.NGhostLayers[2*d+1] = nGhostAfter[d]
		g.Size[d] = trueSize[d] + nGhostBefore[d] + nGhostAfter[d]
	}
	g.SizeProd[0] = 1
	g.SizeProd[1] = 1
	g.SizeProd[2] = g.Size[0]
	g.SizeProd[3] = g.Size[0] * g.Size[1]
	// sparse.DenseArray is shaped with the last axis fastest-varying, so we
	// give it (z, y, x) to get x fastest, matching SizeProd above.
	g.data = sparse.ZerosDense(g.Size[2], g.Size[1], g.Size[0])
	return g
}

// Len returns the total number of nodes in the subdomain, including ghosts.
func (g *Grid) Len() int { return g.SizeProd[3] * g.Size[2] }

// Values returns the grid's flat backing storage. Index i corresponds to
// coordinates recoverable via Coords(i); mutating the returned slice
// mutates the grid.
func (g *Grid) Values() []float64 { return g.data.Elements }

// Idx returns the linear index of the node at (x, y, z), where each
// coordinate includes the ghost offset (i.e. coordinate 0 is the first
// ghost layer, not the first true-domain node).
func (g *Grid) Idx(x, y, z int) int {
	return x*g.SizeProd[1] + y*g.SizeProd[2] + z*g.SizeProd[3]
}

// Coords recovers the (x, y, z) coordinates of linear index i.
func (g *Grid) Coords(i int) (x, y, z int) {
	z = i / g.SizeProd[3]
	rem := i % g.SizeProd[3]
	y = rem / g.SizeProd[2]
	x = rem % g.SizeProd[2]
	return x, y, z
}

// IsGhost reports whether linear index i refers to a ghost node: a node
// whose coordinate along any axis falls outside that axis's true-domain
// band.
func (g *Grid) IsGhost(i int) bool {
	x, y, z := g.Coords(i)
	coords := [NDim]int{x, y, z}
	for d := 0; d < NDim; d++ {
		lo := g.NGhostLayers[2*d]
		hi := lo + g.TrueSize[d]
		if coords[d] < lo || coords[d] >= hi {
			return true
		}
	}
	return false
}

// Zero sets every value in the grid, including ghosts, to zero.
func (g *Grid) Zero() {
	for i := range g.data.Elements {
		g.data.Elements[i] = 0
	}
}

// Sum returns the sum of all values in the grid, including ghosts.
func (g *Grid) Sum() float64 { return g.data.Sum() }

// CopyFrom overwrites g's values with src's. The two grids must have
// identical shape.
func (g *Grid) CopyFrom(src *Grid) {
	copy(g.data.Elements, src.data.Elements)
}
