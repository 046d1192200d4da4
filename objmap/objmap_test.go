package objmap

import (
	"testing"

	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/picaperr"
)

type fakeLoader struct {
	values []float64
	err    error
}

func (f *fakeLoader) LoadObject(g *grid.Grid) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.values, nil
}

func singleRankComm() comm.Communicator {
	return comm.NewLocalGroup(1)[0]
}

func noNeighbors() [grid.NDim][2]int {
	return [grid.NDim][2]int{{-1, -1}, {-1, -1}, {-1, -1}}
}

func TestLoadSingleObject(t *testing.T) {
	g := grid.New([3]int{2, 2, 2}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	raw := make([]float64, g.Len())
	// Tag the single true-domain node at (1,1,1) as object 1.
	raw[g.Idx(1, 1, 1)] = 1.0

	m, err := Load(&fakeLoader{values: raw}, g, singleRankComm(), noNeighbors(), true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.N != 1 {
		t.Errorf("N = %d, want 1", m.N)
	}
	if m.Tag[g.Idx(1, 1, 1)] != 1 {
		t.Errorf("Tag at (1,1,1) = %d, want 1", m.Tag[g.Idx(1, 1, 1)])
	}
	if m.Tag[g.Idx(0, 0, 0)] != 0 {
		t.Errorf("Tag at untagged node = %d, want 0", m.Tag[g.Idx(0, 0, 0)])
	}
}

func TestLoadRoundsValues(t *testing.T) {
	g := grid.New([3]int{1, 1, 1}, [3]int{0, 0, 0}, [3]int{0, 0, 0})
	raw := []float64{2.6}
	m, err := Load(&fakeLoader{values: raw}, g, singleRankComm(), noNeighbors(), true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Tag[0] != 3 {
		t.Errorf("Tag[0] = %d, want round(2.6) = 3", m.Tag[0])
	}
}

func TestLoadZeroObjectsWhenEnabled(t *testing.T) {
	g := grid.New([3]int{2, 2, 2}, [3]int{0, 0, 0}, [3]int{0, 0, 0})
	raw := make([]float64, g.Len())
	_, err := Load(&fakeLoader{values: raw}, g, singleRankComm(), noNeighbors(), true)
	if err == nil {
		t.Fatal("expected CONFIG error for N=0 with objects enabled")
	}
	var pe *picaperr.Error
	if pe, _ = asPicapErr(err); pe == nil || pe.Kind != picaperr.CONFIG {
		t.Errorf("err = %v, want a CONFIG *picaperr.Error", err)
	}
}

func TestLoadShapeMismatch(t *testing.T) {
	g := grid.New([3]int{2, 2, 2}, [3]int{0, 0, 0}, [3]int{0, 0, 0})
	_, err := Load(&fakeLoader{values: []float64{1, 2, 3}}, g, singleRankComm(), noNeighbors(), true)
	if err == nil {
		t.Fatal("expected CONFIG error for shape mismatch")
	}
}

func asPicapErr(err error) (*picaperr.Error, bool) {
	pe, ok := err.(*picaperr.Error)
	return pe, ok
}
