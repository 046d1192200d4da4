package comm

import (
	"sync"
	"testing"
)

func runGroup(n int, f func(c *LocalCommunicator)) {
	comms := NewLocalGroup(n)
	var wg sync.WaitGroup
	wg.Add(n)
	for _, c := range comms {
		go func(c *LocalCommunicator) {
			defer wg.Done()
			f(c)
		}(c)
	}
	wg.Wait()
}

func TestAllReduceSum(t *testing.T) {
	const n = 4
	results := make([]float64, n)
	var mu sync.Mutex
	runGroup(n, func(c *LocalCommunicator) {
		v, err := c.AllReduce(float64(c.Rank()+1), Sum)
		if err != nil {
			t.Errorf("rank %d: %v", c.Rank(), err)
		}
		mu.Lock()
		results[c.Rank()] = v
		mu.Unlock()
	})
	for r, v := range results {
		if v != 10 { // 1+2+3+4
			t.Errorf("rank %d: AllReduce(Sum) = %v, want 10", r, v)
		}
	}
}

func TestAllReduceMax(t *testing.T) {
	const n = 3
	results := make([]float64, n)
	var mu sync.Mutex
	runGroup(n, func(c *LocalCommunicator) {
		v, _ := c.AllReduce(float64(c.Rank()*10), Max)
		mu.Lock()
		results[c.Rank()] = v
		mu.Unlock()
	})
	for r, v := range results {
		if v != 20 {
			t.Errorf("rank %d: AllReduce(Max) = %v, want 20", r, v)
		}
	}
}

func TestAllGather(t *testing.T) {
	const n = 4
	var mu sync.Mutex
	var allResults [][]float64
	runGroup(n, func(c *LocalCommunicator) {
		got, err := c.AllGather(float64(c.Rank()) * 1.5)
		if err != nil {
			t.Errorf("rank %d: %v", c.Rank(), err)
		}
		mu.Lock()
		allResults = append(allResults, got)
		mu.Unlock()
	})
	want := []float64{0, 1.5, 3, 4.5}
	for _, got := range allResults {
		if len(got) != n {
			t.Fatalf("AllGather returned %d values, want %d", len(got), n)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("AllGather()[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

func TestBcast(t *testing.T) {
	const n = 5
	var mu sync.Mutex
	results := make([]float64, n)
	runGroup(n, func(c *LocalCommunicator) {
		v, _ := c.Bcast(float64(c.Rank())*100+42, 2)
		mu.Lock()
		results[c.Rank()] = v
		mu.Unlock()
	})
	for r, v := range results {
		if v != 242 {
			t.Errorf("rank %d: Bcast = %v, want 242", r, v)
		}
	}
}

func TestSendRecvChain(t *testing.T) {
	const n = 4
	results := make([][]float64, n)
	var mu sync.Mutex
	runGroup(n, func(c *LocalCommunicator) {
		r := c.Rank()
		dest, source := r+1, r-1
		if dest >= n {
			dest = -1
		}
		if source < 0 {
			source = -1
		}
		send := []float64{float64(r), float64(r) * 2}
		recv, err := c.SendRecv(dest, send, source)
		if err != nil {
			t.Errorf("rank %d: %v", r, err)
		}
		mu.Lock()
		results[r] = recv
		mu.Unlock()
	})
	if results[0] != nil {
		t.Errorf("rank 0 has no source, want nil recv, got %v", results[0])
	}
	for r := 1; r < n; r++ {
		want := []float64{float64(r - 1), float64(r-1) * 2}
		got := results[r]
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("rank %d: SendRecv = %v, want %v", r, got, want)
		}
	}
}

func TestAllReduceIntMax(t *testing.T) {
	const n = 6
	results := make([]int, n)
	var mu sync.Mutex
	runGroup(n, func(c *LocalCommunicator) {
		v, _ := c.AllReduceInt(c.Rank(), func(a, b int) int {
			if a > b {
				return a
			}
			return b
		})
		mu.Lock()
		results[c.Rank()] = v
		mu.Unlock()
	})
	for r, v := range results {
		if v != n-1 {
			t.Errorf("rank %d: AllReduceInt(Max) = %d, want %d", r, v, n-1)
		}
	}
}
