package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/lodproxy/pkg/graph"
)

// DefaultTimeout bounds a single evaluation when Engine.Timeout is zero.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a recipe runs past the engine timeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned when a newer evaluation started while this
	// one was running.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// evalResult carries one evaluation's output from its goroutine.
type evalResult struct {
	graph  *graph.DesignGraph
	errors []EvalError
	err    error
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

func (e *Engine) currentGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// await blocks until ch delivers or ctx ends. The evaluating goroutine may
// outlive a timeout; its late result lands in the buffered channel and is
// dropped.
func (e *Engine) await(ctx context.Context, ch <-chan evalResult, gen uint64) (*graph.DesignGraph, []EvalError, error) {
	select {
	case res := <-ch:
		if gen != e.currentGeneration() {
			return nil, nil, ErrSuperseded
		}
		return res.graph, res.errors, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout())
		}
		return nil, nil, ctx.Err()
	}
}
