// Package parallel is the fork-join scheduler used by every data-parallel
// stage. Work is fanned out as independent tasks or disjoint index ranges and
// joined explicitly with Wait. ExecutionMode selects between running tasks on
// goroutines and running them inline, behind the same API.
package parallel

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// ExecutionMode selects how submitted work is run.
type ExecutionMode int

const (
	Parallel   ExecutionMode = iota // tasks run on goroutines
	Sequential                      // tasks run inline at submission
)

func (m ExecutionMode) String() string {
	switch m {
	case Parallel:
		return "parallel"
	case Sequential:
		return "sequential"
	default:
		return fmt.Sprintf("ExecutionMode(%d)", int(m))
	}
}

// Workers returns the number of goroutines used for range splitting.
func Workers() int {
	return runtime.GOMAXPROCS(0)
}

// TaskPanic is re-raised by Wait when a task panicked.
type TaskPanic struct {
	Value any
	Stack string
}

func (p *TaskPanic) Error() string {
	return fmt.Sprintf("parallel: task panicked: %v\n%s", p.Value, p.Stack)
}

// Group runs tasks and waits for all of them. The zero value runs tasks in
// Parallel mode.
type Group struct {
	mode ExecutionMode
	wg   sync.WaitGroup

	mu  sync.Mutex
	err *TaskPanic
}

// NewGroup returns a group using the given mode.
func NewGroup(mode ExecutionMode) *Group {
	return &Group{mode: mode}
}

// Go submits fn. In Sequential mode fn runs before Go returns.
func (g *Group) Go(fn func()) {
	if g.mode == Sequential {
		g.run(fn)
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.run(fn)
	}()
}

func (g *Group) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.mu.Lock()
			if g.err == nil {
				g.err = &TaskPanic{Value: r, Stack: string(debug.Stack())}
			}
			g.mu.Unlock()
		}
	}()
	fn()
}

// Wait blocks until every submitted task has finished. If any task panicked
// the first panic is re-raised here, on the joining goroutine.
func (g *Group) Wait() {
	g.wg.Wait()
	g.mu.Lock()
	err := g.err
	g.err = nil
	g.mu.Unlock()
	if err != nil {
		panic(err)
	}
}

// For calls fn(i) for every i in [0, n). Iteration order is unspecified.
func For(mode ExecutionMode, n int, fn func(i int)) {
	ForRange(mode, n, 0, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			fn(i)
		}
	})
}

// ForRange splits [0, n) into disjoint half-open ranges of at least grain
// elements and calls fn once per range. grain <= 0 picks a size that gives
// each worker a few ranges.
func ForRange(mode ExecutionMode, n, grain int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if mode == Sequential {
		fn(0, n)
		return
	}
	grain = grainSize(n, grain)
	g := NewGroup(mode)
	for lo := 0; lo < n; lo += grain {
		lo, hi := lo, min(lo+grain, n)
		g.Go(func() { fn(lo, hi) })
	}
	g.Wait()
}

// Reduce maps every range of [0, n) to a partial result with mapFn and folds
// the partials with combine. combine must be associative and commutative:
// partials are folded in completion order.
func Reduce[T any](mode ExecutionMode, n, grain int, zero T, mapFn func(lo, hi int) T, combine func(a, b T) T) T {
	if n <= 0 {
		return zero
	}
	if mode == Sequential {
		return combine(zero, mapFn(0, n))
	}
	grain = grainSize(n, grain)
	var (
		mu  sync.Mutex
		acc = zero
	)
	ForRange(mode, n, grain, func(lo, hi int) {
		part := mapFn(lo, hi)
		mu.Lock()
		acc = combine(acc, part)
		mu.Unlock()
	})
	return acc
}

func grainSize(n, grain int) int {
	if grain > 0 {
		return grain
	}
	chunks := Workers() * 4
	grain = (n + chunks - 1) / chunks
	if grain < 1 {
		grain = 1
	}
	return grain
}
