package capacitance

import (
	"math"
	"testing"

	"github.com/spatialmodel/picap/classify"
	"github.com/spatialmodel/picap/comm"
	"github.com/spatialmodel/picap/grid"
)

// identitySolver is a fake Poisson solve where phi is a copy of rho: the
// Green's function is the identity, so a unit charge at surface node i
// produces phi=1 at node i and phi=0 everywhere else. This makes Cₐ (and
// therefore K⁻¹ₐ) the identity matrix, giving an exactly predictable
// capacitance assembly to test against.
type identitySolver struct{}

func (identitySolver) Solve(rho, phi *grid.Grid, c comm.Communicator) error {
	phi.CopyFrom(rho)
	return nil
}

func newGridAndComm(trueSize [3]int) (*grid.Grid, *grid.Grid, comm.Communicator) {
	rho := grid.New(trueSize, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	phi := grid.New(trueSize, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	c := comm.NewLocalGroup(1)[0]
	return rho, phi, c
}

func TestS1SingleNodeCapacitance(t *testing.T) {
	rho, phi, c := newGridAndComm([3]int{4, 4, 4})
	tag := make([]int, rho.Len())
	tag[rho.Idx(2, 2, 2)] = 1
	tbl := classify.Build(rho, tag, 1)
	gsm, err := classify.BuildGlobalSurfaceMap(tbl, c)
	if err != nil {
		t.Fatalf("BuildGlobalSurfaceMap: %v", err)
	}

	store, err := Build(identitySolver{}, tbl, gsm, rho, phi, c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	obj := store.Objects[1]
	if obj.T != 1 {
		t.Fatalf("T = %d, want 1", obj.T)
	}
	if got := obj.Kinv.At(0, 0); math.Abs(got-1) > 1e-9 {
		t.Fatalf("Kinv[0][0] = %v, want 1", got)
	}
	if math.Abs(obj.S-1) > 1e-9 {
		t.Fatalf("S = %v, want 1", obj.S)
	}
}

func TestS2CubeCapacitanceIdentity(t *testing.T) {
	rho, phi, c := newGridAndComm([3]int{4, 4, 4})
	tag := make([]int, rho.Len())
	for z := 2; z <= 3; z++ {
		for y := 2; y <= 3; y++ {
			for x := 2; x <= 3; x++ {
				tag[rho.Idx(x, y, z)] = 1
			}
		}
	}
	tbl := classify.Build(rho, tag, 1)
	gsm, err := classify.BuildGlobalSurfaceMap(tbl, c)
	if err != nil {
		t.Fatalf("BuildGlobalSurfaceMap: %v", err)
	}

	store, err := Build(identitySolver{}, tbl, gsm, rho, phi, c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	obj := store.Objects[1]
	if obj.T != 7 {
		t.Fatalf("T = %d, want 7", obj.T)
	}
	for i := 0; i < obj.T; i++ {
		for j := 0; j < obj.T; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if got := obj.Kinv.At(i, j); math.Abs(got-want) > 1e-9 {
				t.Fatalf("Kinv[%d][%d] = %v, want %v", i, j, got, want)
			}
		}
	}
	wantS := 1.0 / float64(obj.T)
	if math.Abs(obj.S-wantS) > 1e-9 {
		t.Fatalf("S = %v, want %v", obj.S, wantS)
	}
}

func TestZeroSurfaceNodesFailsConfig(t *testing.T) {
	rho, phi, c := newGridAndComm([3]int{4, 4, 4})
	tag := make([]int, rho.Len())
	// Object 1 has no tagged nodes at all (N forced to 1 externally).
	tbl := classify.Build(rho, tag, 1)
	gsm, err := classify.BuildGlobalSurfaceMap(tbl, c)
	if err != nil {
		t.Fatalf("BuildGlobalSurfaceMap: %v", err)
	}
	if _, err := Build(identitySolver{}, tbl, gsm, rho, phi, c); err == nil {
		t.Fatal("expected CONFIG error for an object with zero surface nodes")
	}
}
