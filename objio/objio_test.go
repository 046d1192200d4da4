package objio

import (
	"os"
	"testing"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/picap/grid"
)

func writeObjectNCF(t *testing.T, path string, trueSize [3]int, values []float32) {
	t.Helper()
	h := cdf.NewHeader([]string{"z", "y", "x"}, []int{trueSize[2], trueSize[1], trueSize[0]})
	h.AddVariable(objectVarName, []string{"z", "y", "x"}, []float32{0})
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	defer f.Close()
	cf, err := cdf.Create(f, h)
	if err != nil {
		t.Fatalf("cdf.Create: %v", err)
	}
	end := cf.Header.Lengths(objectVarName)
	start := make([]int, len(end))
	w := cf.Writer(objectVarName, start, end)
	if _, err := w.Write(values); err != nil {
		t.Fatalf("writing Object variable: %v", err)
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		t.Fatalf("UpdateNumRecs: %v", err)
	}
}

// TestLoadObjectRoundTrip writes a small Object dataset directly with
// cdf, then checks Reader.LoadObject places each true-domain value at
// the grid index its ghost-aware coordinates predict.
func TestLoadObjectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/object.nc"
	trueSize := [3]int{2, 2, 2}
	values := []float32{1, 0, 0, 0, 0, 0, 0, 0} // tag 1 at true-domain (0,0,0)
	writeObjectNCF(t, path, trueSize, values)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open: %v", err)
	}
	defer f.Close()

	g := grid.New(trueSize, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	raw, err := Reader{RW: f}.LoadObject(g)
	if err != nil {
		t.Fatalf("LoadObject: %v", err)
	}
	if len(raw) != g.Len() {
		t.Fatalf("len(raw) = %d, want %d", len(raw), g.Len())
	}
	got := raw[g.Idx(1, 1, 1)] // true-domain origin, offset by one ghost layer
	if got != 1 {
		t.Fatalf("raw at true-domain origin = %v, want 1", got)
	}
	if raw[g.Idx(2, 1, 1)] != 0 {
		t.Fatalf("raw at (1,0,0) of true domain = %v, want 0", raw[g.Idx(2, 1, 1)])
	}
}

// TestWriteStateRoundTrip writes rho/phi/rhoObj and reads each back,
// checking the true-domain values survive.
func TestWriteStateRoundTrip(t *testing.T) {
	trueSize := [3]int{2, 2, 2}
	rho := grid.New(trueSize, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	phi := grid.New(trueSize, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	rhoObj := grid.New(trueSize, [3]int{1, 1, 1}, [3]int{1, 1, 1})
	rho.Values()[rho.Idx(1, 1, 1)] = 3.5
	phi.Values()[phi.Idx(1, 1, 1)] = -2.25

	dir := t.TempDir()
	path := dir + "/state.nc"
	w, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create: %v", err)
	}
	if err := WriteState(w, rho, phi, rhoObj); err != nil {
		w.Close()
		t.Fatalf("WriteState: %v", err)
	}
	w.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open: %v", err)
	}
	defer f.Close()
	cf, err := cdf.Open(f)
	if err != nil {
		t.Fatalf("cdf.Open: %v", err)
	}
	n := trueSize[0] * trueSize[1] * trueSize[2]
	rhoOut := make([]float32, n)
	if _, err := cf.Reader("rho", nil, nil).Read(rhoOut); err != nil {
		t.Fatalf("reading rho back: %v", err)
	}
	if rhoOut[0] != 3.5 {
		t.Fatalf("rho true-domain origin round-tripped as %v, want 3.5", rhoOut[0])
	}
}
