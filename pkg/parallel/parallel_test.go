package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	for _, mode := range []ExecutionMode{Parallel, Sequential} {
		t.Run(mode.String(), func(t *testing.T) {
			const n = 1000
			counts := make([]int32, n)
			For(mode, n, func(i int) {
				atomic.AddInt32(&counts[i], 1)
			})
			for i, c := range counts {
				if c != 1 {
					t.Fatalf("index %d visited %d times", i, c)
				}
			}
		})
	}
}

func TestForRangeDisjoint(t *testing.T) {
	const n = 103
	var total int64
	ForRange(Parallel, n, 10, func(lo, hi int) {
		if hi-lo > 10 || lo >= hi {
			t.Errorf("bad range [%d,%d)", lo, hi)
		}
		atomic.AddInt64(&total, int64(hi-lo))
	})
	if total != n {
		t.Errorf("covered %d indices, want %d", total, n)
	}
}

func TestReduceSum(t *testing.T) {
	for _, mode := range []ExecutionMode{Parallel, Sequential} {
		got := Reduce(mode, 100, 7, 0, func(lo, hi int) int {
			s := 0
			for i := lo; i < hi; i++ {
				s += i
			}
			return s
		}, func(a, b int) int { return a + b })
		if got != 4950 {
			t.Errorf("%s: Reduce = %d, want 4950", mode, got)
		}
	}
}

func TestGroupSequentialRunsInline(t *testing.T) {
	g := NewGroup(Sequential)
	ran := false
	g.Go(func() { ran = true })
	if !ran {
		t.Fatal("sequential task did not run at submission")
	}
	g.Wait()
}

func TestGroupPropagatesPanic(t *testing.T) {
	g := NewGroup(Parallel)
	g.Go(func() { panic("boom") })
	defer func() {
		r := recover()
		p, ok := r.(*TaskPanic)
		if !ok {
			t.Fatalf("recovered %T, want *TaskPanic", r)
		}
		if p.Value != "boom" {
			t.Errorf("panic value = %v, want boom", p.Value)
		}
	}()
	g.Wait()
}
