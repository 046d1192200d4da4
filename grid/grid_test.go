package grid

import "testing"

func testGrid() *Grid {
	return New([3]int{4, 5, 6}, [3]int{1, 1, 1}, [3]int{1, 1, 1})
}

func TestSizeProd(t *testing.T) {
	g := testGrid()
	if g.Size != [3]int{6, 7, 8} {
		t.Fatalf("Size = %v, want [6 7 8]", g.Size)
	}
	want := [4]int{1, 1, 6, 42}
	if g.SizeProd != want {
		t.Fatalf("SizeProd = %v, want %v", g.SizeProd, want)
	}
	if g.Len() != 6*7*8 {
		t.Fatalf("Len() = %d, want %d", g.Len(), 6*7*8)
	}
}

func TestIdxCoordsRoundTrip(t *testing.T) {
	g := testGrid()
	for z := 0; z < g.Size[2]; z++ {
		for y := 0; y < g.Size[1]; y++ {
			for x := 0; x < g.Size[0]; x++ {
				i := g.Idx(x, y, z)
				gx, gy, gz := g.Coords(i)
				if gx != x || gy != y || gz != z {
					t.Fatalf("Coords(Idx(%d,%d,%d)) = (%d,%d,%d)", x, y, z, gx, gy, gz)
				}
			}
		}
	}
}

func TestIdxXFastest(t *testing.T) {
	g := testGrid()
	if g.Idx(1, 0, 0)-g.Idx(0, 0, 0) != 1 {
		t.Error("x should be the fastest-varying axis (stride 1)")
	}
	if g.Idx(0, 1, 0)-g.Idx(0, 0, 0) != g.Size[0] {
		t.Error("y stride should equal Size[0]")
	}
	if g.Idx(0, 0, 1)-g.Idx(0, 0, 0) != g.Size[0]*g.Size[1] {
		t.Error("z stride should equal Size[0]*Size[1]")
	}
}

func TestIsGhost(t *testing.T) {
	g := testGrid()
	cases := []struct {
		x, y, z int
		ghost   bool
	}{
		{0, 2, 2, true},  // x ghost-before
		{5, 2, 2, true},  // x ghost-after (Size[0]-1)
		{2, 0, 2, true},  // y ghost-before
		{2, 6, 2, true},  // y ghost-after
		{2, 2, 0, true},  // z ghost-before
		{2, 2, 7, true},  // z ghost-after
		{1, 1, 1, false}, // first true-domain node
		{4, 5, 6, false}, // last true-domain node (TrueSize 4,5,6 + 1 ghost before)
	}
	for _, c := range cases {
		i := g.Idx(c.x, c.y, c.z)
		if got := g.IsGhost(i); got != c.ghost {
			t.Errorf("IsGhost(%d,%d,%d) = %v, want %v", c.x, c.y, c.z, got, c.ghost)
		}
	}
}

func TestZeroAndSum(t *testing.T) {
	g := testGrid()
	vals := g.Values()
	for i := range vals {
		vals[i] = 1
	}
	if g.Sum() != float64(g.Len()) {
		t.Fatalf("Sum() = %v, want %v", g.Sum(), float64(g.Len()))
	}
	g.Zero()
	if g.Sum() != 0 {
		t.Fatalf("Sum() after Zero() = %v, want 0", g.Sum())
	}
}

func TestCopyFrom(t *testing.T) {
	a := testGrid()
	b := testGrid()
	for i := range a.Values() {
		a.Values()[i] = float64(i)
	}
	b.CopyFrom(a)
	for i := range a.Values() {
		if a.Values()[i] != b.Values()[i] {
			t.Fatalf("CopyFrom mismatch at %d: %v != %v", i, a.Values()[i], b.Values()[i])
		}
	}
}
