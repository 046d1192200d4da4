package impact

import (
	"math"
	"testing"

	"github.com/spatialmodel/picap/classify"
	"github.com/spatialmodel/picap/collision"
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
	"github.com/spatialmodel/picap/population"
)

func cubeTables(t *testing.T, g *grid.Grid) (*classify.Tables, *classify.GlobalSurfaceMap, comm.Communicator) {
	t.Helper()
	c := comm.NewLocalGroup(1)[0]
	tag := make([]int, g.Len())
	for z := 2; z <= 3; z++ {
		for y := 2; y <= 3; y++ {
			for x := 2; x <= 3; x++ {
				tag[g.Idx(x, y, z)] = 1
			}
		}
	}
	tbl := classify.Build(g, tag, 1)
	gsm, err := classify.BuildGlobalSurfaceMap(tbl, c)
	if err != nil {
		t.Fatalf("BuildGlobalSurfaceMap: %v", err)
	}
	return tbl, gsm, c
}

// TestS5ParticleImpact: one negatively charged particle inside object 1's
// interior is absorbed, and rhoObj gains a uniform charge/T1 contribution
// on every surface node.
func TestS5ParticleImpact(t *testing.T) {
	g := grid.New([3]int{4, 4, 4}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	rhoObj := grid.New([3]int{4, 4, 4}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	tbl, gsm, c := cubeTables(t, g)

	pop := population.New([]float64{-1.0}, []float64{1.0}, []int{1})
	// The cube spans true-grid coordinates [2,3]^3; place the particle's
	// cell-integer position exactly on the cube's own lower corner, which
	// classify.Build includes in the Interior list.
	pop.Append(0, population.Particle{Pos: [3]float64{2.5, 2.5, 2.5}})

	if err := Collect(pop, tbl, gsm, g, rhoObj, c, collision.AbsorbOnImpact{}); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	start, stop := pop.Range(0)
	if stop != start {
		t.Fatalf("particle was not absorbed: live range = [%d,%d)", start, stop)
	}

	T := gsm.T[1]
	want := -1.0 / float64(T)
	for b := tbl.SO[0]; b < tbl.SO[1]; b++ {
		got := rhoObj.Values()[tbl.Surface[b]]
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("rhoObj at surface slot = %v, want %v", got, want)
		}
	}
}

// TestNoParticlesLeavesRhoObjUnchanged covers the common per-step case
// where nothing crosses an object boundary.
func TestNoParticlesLeavesRhoObjUnchanged(t *testing.T) {
	g := grid.New([3]int{4, 4, 4}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	rhoObj := grid.New([3]int{4, 4, 4}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	tbl, gsm, c := cubeTables(t, g)
	pop := population.New([]float64{-1.0}, []float64{1.0}, []int{4})
	pop.Append(0, population.Particle{Pos: [3]float64{1.5, 1.5, 1.5}})

	if err := Collect(pop, tbl, gsm, g, rhoObj, c, collision.AbsorbOnImpact{}); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	start, stop := pop.Range(0)
	if stop-start != 1 {
		t.Fatalf("particle outside any object should not be absorbed, live count = %d", stop-start)
	}
	for _, v := range rhoObj.Values() {
		if v != 0 {
			t.Fatalf("rhoObj should be untouched, got %v", v)
		}
	}
}

// TestGhostCellParticleSkipped: a particle whose floored position lands
// on a ghost node is never attributed, even if the ghost holds an
// object's tag.
func TestGhostCellParticleSkipped(t *testing.T) {
	g := grid.New([3]int{2, 2, 2}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	rhoObj := grid.New([3]int{2, 2, 2}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	c := comm.NewLocalGroup(1)[0]
	tag := make([]int, g.Len())
	tag[g.Idx(0, 0, 0)] = 1 // ghost layer index 0 on every axis
	tbl := classify.Build(g, tag, 1)
	gsm, err := classify.BuildGlobalSurfaceMap(tbl, c)
	if err != nil {
		t.Fatalf("BuildGlobalSurfaceMap: %v", err)
	}

	pop := population.New([]float64{-1.0}, []float64{1.0}, []int{1})
	pop.Append(0, population.Particle{Pos: [3]float64{0.2, 0.2, 0.2}})

	if err := Collect(pop, tbl, gsm, g, rhoObj, c, collision.AbsorbOnImpact{}); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	start, stop := pop.Range(0)
	if stop-start != 1 {
		t.Fatalf("particle on a ghost cell must not be absorbed, live count = %d", stop-start)
	}
}
