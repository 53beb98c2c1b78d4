package render_pipeline

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/command"
)

// Optimizer reorders a frame's commands in place. Implementations must return a permutation:
// no command may be added or dropped.
type Optimizer interface {
	Optimize(cmds []command.Command)
}

// OptimizerFunc adapts a function to Optimizer.
type OptimizerFunc func(cmds []command.Command)

func (f OptimizerFunc) Optimize(cmds []command.Command) {
	f(cmds)
}

// KindOptimizer stable-sorts commands by kind ordinal only, clustering same-kind work while
// keeping collection order within each kind.
type KindOptimizer struct{}

func (KindOptimizer) Optimize(cmds []command.Command) {
	slices.SortStableFunc(cmds, command.Compare)
}

// StateOptimizer stable-sorts by kind, then by the command's backend handle, so draws sharing a
// texture, shader or mesh end up adjacent.
type StateOptimizer struct{}

func (StateOptimizer) Optimize(cmds []command.Command) {
	slices.SortStableFunc(cmds, func(a, b command.Command) int {
		return cmp.Or(command.Compare(a, b), cmp.Compare(a.SortKey(), b.SortKey()))
	})
}
