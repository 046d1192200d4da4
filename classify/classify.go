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

// Package classify derives, from an object tag field, per-object interior
// and surface node lookup tables, and the global surface index map
// produced by gathering every rank's local surface counts.
//
// Interior and Surface tables share one layout: a concatenated index
// array plus an offset table so object a's entries occupy
// [offsets[a-1], offsets[a]) for a in 1..N. Every table is built with two passes over
// the local subdomain: a counting pass that sizes the offset table, and a
// fill pass in the same scan order, so the fill order always matches the
// order used to size it.
package classify

import (
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"
)

// Tables holds the per-process Interior and Surface lookups for all N
// objects, plus the optional sun-facing Exposed table.
type Tables struct {
	N int

	IO       []int // len N+1
	Interior []int // len IO[N]

	SO      []int // len N+1
	Surface []int // len SO[N]

	// EO and Exposed are nil unless ExposedNodes was run.
	EO      []int
	Exposed []int
}

// surfaceOffsets returns, in the exact order the surface-node stencil requires,
// the eight linear-index offsets of the cells below-and-including node i,
// using the grid's strides. The order is i, i-sizeProd[3], i-sizeProd[1],
// i-sizeProd[1]-sizeProd[3], i-sizeProd[2], i-sizeProd[2]-sizeProd[3],
// i-sizeProd[2]-sizeProd[1], i-sizeProd[2]-sizeProd[1]-sizeProd[3]. This
// asymmetric, lower-corner-only stencil is part of the contract, not an
// implementation detail: a symmetric stencil produces a different
// capacitance matrix.
func surfaceOffsets(sp [grid.NDim + 1]int) [8]int {
	return [8]int{
		0,
		-sp[3],
		-sp[1],
		-sp[1] - sp[3],
		-sp[2],
		-sp[2] - sp[3],
		-sp[2] - sp[1],
		-sp[2] - sp[1] - sp[3],
	}
}

// isSurfaceNode reports whether node i is a surface node of object a: not
// a ghost node, and between 1 and 7 (inclusive) of its eight lower-corner
// neighbor cells belong to object a.
func isSurfaceNode(g *grid.Grid, tag []int, offsets [8]int, i, a int) bool {
	if g.IsGhost(i) {
		return false
	}
	d := 0
	for _, off := range offsets {
		if tag[i+off] == a {
			d++
		}
	}
	return d > 0 && d < 8
}

// BuildInterior builds the Interior lookup: for every local linear index,
// including ghosts, whose tag equals a (1 <= a <= n), record it under
// object a in scan order.
func BuildInterior(tag []int, n int) (io, interior []int) {
	io = make([]int, n+1)
	for _, t := range tag {
		if t >= 1 && t <= n {
			io[t]++
		}
	}
	for a := 1; a <= n; a++ {
		io[a] += io[a-1]
	}
	interior = make([]int, io[n])
	next := make([]int, n+1)
	copy(next, io)
	for i, t := range tag {
		if t >= 1 && t <= n {
			interior[next[t-1]] = i
			next[t-1]++
		}
	}
	return io, interior
}

// BuildSurface builds the Surface lookup using the asymmetric
// below-and-including stencil (the surface-node criterion): object a's
// surface nodes are its non-ghost nodes with between one and seven (of
// eight) of those sampled neighbor cells also tagged a.
func BuildSurface(g *grid.Grid, tag []int, n int) (so, surface []int) {
	offsets := surfaceOffsets(g.SizeProd)
	so = make([]int, n+1)
	for a := 1; a <= n; a++ {
		for i := range tag {
			if tag[i] == a && isSurfaceNode(g, tag, offsets, i, a) {
				so[a]++
			}
		}
	}
	for a := 1; a <= n; a++ {
		so[a] += so[a-1]
	}
	surface = make([]int, so[n])
	next := make([]int, n+1)
	copy(next, so)
	for a := 1; a <= n; a++ {
		for i := range tag {
			if tag[i] == a && isSurfaceNode(g, tag, offsets, i, a) {
				surface[next[a-1]] = i
				next[a-1]++
			}
		}
	}
	return so, surface
}

// ExposedNodes builds the optional sun-facing exposed-node table used
// only by the photoemission subcomponent: for each (y, z) in the local
// plane and each object a, the first surface node encountered scanning
// x = 0 .. size[0]-1, i.e. the node with an unobstructed line of sight in
// the +x direction.
func ExposedNodes(g *grid.Grid, tag []int, n int) (eo, exposed []int) {
	offsets := surfaceOffsets(g.SizeProd)
	eo = make([]int, n+1)
	found := make([][]int, n+1) // found[a] in (z,y) scan order

	for a := 1; a <= n; a++ {
		for z := 0; z < g.Size[2]; z++ {
			for y := 0; y < g.Size[1]; y++ {
				for x := 0; x < g.Size[0]; x++ {
					i := g.Idx(x, y, z)
					if tag[i] == a && isSurfaceNode(g, tag, offsets, i, a) {
						found[a] = append(found[a], i)
						break
					}
				}
			}
		}
		eo[a] = eo[a-1] + len(found[a])
	}
	exposed = make([]int, eo[n])
	for a := 1; a <= n; a++ {
		copy(exposed[eo[a-1]:eo[a]], found[a])
	}
	return eo, exposed
}

// Build runs BuildInterior and BuildSurface for all n objects over the
// local subdomain.
func Build(g *grid.Grid, tag []int, n int) *Tables {
	io, interior := BuildInterior(tag, n)
	so, surface := BuildSurface(g, tag, n)
	return &Tables{N: n, IO: io, Interior: interior, SO: so, Surface: surface}
}

// WithExposedNodes computes and attaches the sun-facing exposed-node
// table to t.
func (t *Tables) WithExposedNodes(g *grid.Grid, tag []int) *Tables {
	t.EO, t.Exposed = ExposedNodes(g, tag, t.N)
	return t
}

// GlobalSurfaceMap is the per-object, per-rank cumulative surface-node
// offset table: an all-gather of every rank's local surface count per
// object, prefix-summed into the canonical rank-major global surface
// ordering that the capacitance matrix is indexed by.
type GlobalSurfaceMap struct {
	// G[a] has length P+1; rank r's surface nodes of object a occupy the
	// global index range [G[a][r], G[a][r+1]).
	G [][]int
	// T[a] is the global surface count for object a (G[a][P]).
	T []int
}

// BuildGlobalSurfaceMap performs the per-object all-gather of local
// surface counts and prefix-sums them into the canonical global ordering.
func BuildGlobalSurfaceMap(t *Tables, c comm.Communicator) (*GlobalSurfaceMap, error) {
	p := c.Size()
	gsm := &GlobalSurfaceMap{G: make([][]int, t.N+1), T: make([]int, t.N+1)}
	for a := 1; a <= t.N; a++ {
		localCount := t.SO[a] - t.SO[a-1]
		counts, err := c.AllGatherInt(localCount)
		if err != nil {
			return nil, picaperr.Commf(c.Rank(), "classify.BuildGlobalSurfaceMap", "all-gather of surface counts for object %d: %v", a, err)
		}
		if len(counts) != p {
			return nil, picaperr.Internalf(c.Rank(), "classify.BuildGlobalSurfaceMap", "all-gather returned %d counts, want %d", len(counts), p)
		}
		g := make([]int, p+1)
		for r := 0; r < p; r++ {
			g[r+1] = g[r] + counts[r]
		}
		gsm.G[a] = g
		gsm.T[a] = g[p]
	}
	return gsm, nil
}

// LocalOffset returns this rank's starting global surface index for
// object a.
func (gsm *GlobalSurfaceMap) LocalOffset(a, rank int) int { return gsm.G[a][rank] }
