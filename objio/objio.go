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

// Package objio reads and writes the netCDF state file holding the
// Object Map and the run's persisted grids (rho, phi, rhoObj). It
// implements objmap.Loader over a single "Object" dataset, the way the
// teacher reads meteorology fields via cdf.ReaderWriterAt.
package objio

import (
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/spatialmodel/picap/grid"
)

const objectVarName = "Object"

// Reader loads the Object dataset from a netCDF file, satisfying
// objmap.Loader.
type Reader struct {
	RW cdf.ReaderWriterAt
}

// LoadObject reads the Object variable shaped like g's true size from
// the netCDF file, returning one raw (pre-rounding) value per node in
// g's local linear-index order, including ghosts (left zero: the
// object map has no data for ghost nodes beyond what halo exchange
// fills in after loading).
func (r Reader) LoadObject(g *grid.Grid) ([]float64, error) {
	f, err := cdf.Open(r.RW)
	if err != nil {
		return nil, fmt.Errorf("objio.LoadObject: %v", err)
	}
	dims := f.Header.Lengths(objectVarName)
	if len(dims) != grid.NDim {
		return nil, fmt.Errorf("objio.LoadObject: Object dataset has %d dimensions, want %d", len(dims), grid.NDim)
	}
	n := 1
	for _, d := range dims {
		n *= d
	}
	if n != g.TrueSize[0]*g.TrueSize[1]*g.TrueSize[2] {
		return nil, fmt.Errorf("objio.LoadObject: Object dataset has %d true-domain nodes, grid wants %d",
			n, g.TrueSize[0]*g.TrueSize[1]*g.TrueSize[2])
	}

	rdr := f.Reader(objectVarName, nil, nil)
	tmp := make([]float32, n)
	if _, err := rdr.Read(tmp); err != nil {
		return nil, fmt.Errorf("objio.LoadObject: %v", err)
	}

	raw := make([]float64, g.Len())
	k := 0
	for z := 0; z < g.TrueSize[2]; z++ {
		for y := 0; y < g.TrueSize[1]; y++ {
			for x := 0; x < g.TrueSize[0]; x++ {
				gx := g.NGhostLayers[0] + x
				gy := g.NGhostLayers[2] + y
				gz := g.NGhostLayers[4] + z
				raw[g.Idx(gx, gy, gz)] = float64(tmp[k])
				k++
			}
		}
	}
	return raw, nil
}

// WriteState persists the true-domain subarrays of rho, phi, and
// rhoObj to the netCDF file w, one variable per grid, mirroring
// CTMData.Write's pattern of defining a header up front and writing
// each variable's data after.
func WriteState(w *os.File, rho, phi, rhoObj *grid.Grid) error {
	fields := map[string]*grid.Grid{"rho": rho, "phi": phi, "rhoObj": rhoObj}
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)

	trueSize := rho.TrueSize
	h := cdf.NewHeader([]string{"x", "y", "z"}, []int{trueSize[0], trueSize[1], trueSize[2]})
	h.AddAttribute("", "comment", "capacitance core persisted state")
	for _, name := range names {
		h.AddVariable(name, []string{"z", "y", "x"}, []float32{0})
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("objio.WriteState: %v", err)
	}
	for _, name := range names {
		if err := writeTrueDomain(f, name, fields[name]); err != nil {
			return fmt.Errorf("objio.WriteState: writing %s: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeTrueDomain(f *cdf.File, varName string, g *grid.Grid) error {
	trueSize := g.TrueSize
	data := sparse.ZerosDense(trueSize[2], trueSize[1], trueSize[0])
	vals := g.Values()
	i := 0
	for z := 0; z < trueSize[2]; z++ {
		for y := 0; y < trueSize[1]; y++ {
			for x := 0; x < trueSize[0]; x++ {
				gx := g.NGhostLayers[0] + x
				gy := g.NGhostLayers[2] + y
				gz := g.NGhostLayers[4] + z
				data.Elements[i] = vals[g.Idx(gx, gy, gz)]
				i++
			}
		}
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(varName)
	start := make([]int, len(end))
	wtr := f.Writer(varName, start, end)
	_, err := wtr.Write(data32)
	return err
}
