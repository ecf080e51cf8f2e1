package specialist

import (
	"context"
	"sync"

	"laila/internal/agent"
)

// Toolset hands out the tools a specialist may use for one invocation.
// Acquire always returns a non-nil release func, even with an error, and the
// caller defers it right away. Releasing more than once is harmless.
type Toolset interface {
	Acquire(ctx context.Context) (tools []agent.Tool, release func(), err error)
}

// LocalToolset is a fixed set of in-process tools with nothing to release.
type LocalToolset []agent.Tool

func (l LocalToolset) Acquire(context.Context) ([]agent.Tool, func(), error) {
	return []agent.Tool(l), func() {}, nil
}

func noop() {}

func once(f func()) func() {
	var o sync.Once
	return func() { o.Do(f) }
}
