// Package sched provides the call-graph traversal and the per-routine
// side-table through which transformations pass analysis results from
// callees to callers.
//
// The traversal contract is what makes the side-table safe: routines are
// visited in dependency order, callees strictly before callers, each
// routine exactly once. An entry written during a callee's visit is
// therefore complete and read-only by the time any caller looks it up.
package sched

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fortlab/stackpool/ir"
)

// Role describes how a routine participates in a call tree.
type Role int

const (
	// RoleKernel routines receive the stack handle from their caller.
	RoleKernel Role = iota
	// RoleDriver routines own the block loop and provision the buffer.
	RoleDriver
)

func (r Role) String() string {
	if r == RoleDriver {
		return "driver"
	}
	return "kernel"
}

// Item is one routine in the call graph together with its side-table.
type Item struct {
	routine   *ir.Subroutine
	role      Role
	trafoData map[string]any
	calls     []*Item
}

// Name returns the routine name.
func (it *Item) Name() string { return it.routine.Name }

// Routine returns the routine IR owned by this item.
func (it *Item) Routine() *ir.Subroutine { return it.routine }

// Role returns the routine's role in the tree.
func (it *Item) Role() Role { return it.role }

// Successors returns the items this routine calls, in registration order.
func (it *Item) Successors() []*Item { return it.calls }

// TrafoData returns the side-table entry published under key, or nil.
func (it *Item) TrafoData(key string) any { return it.trafoData[key] }

// SetTrafoData publishes a side-table entry. Entries are append-only by
// contract: publishing twice under the same key is a programming error.
func (it *Item) SetTrafoData(key string, value any) {
	if _, ok := it.trafoData[key]; ok {
		panic(fmt.Sprintf("sched: trafo data %q republished for %s", key, it.routine.Name))
	}
	it.trafoData[key] = value
}

// Transformation is one pass over the call graph.
type Transformation interface {
	// Key identifies this transformation instance in the side-table.
	Key() string
	// TransformSubroutine rewrites one routine. Successor items have
	// already been transformed and their side-table entries published.
	TransformSubroutine(item *Item, role Role, successors []*Item) error
}

// Graph is a call graph of routines.
type Graph struct {
	items map[string]*Item
	order []string
	log   *zap.Logger
}

// NewGraph returns an empty call graph logging through logger; a nil
// logger disables logging.
func NewGraph(logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{items: make(map[string]*Item), log: logger}
}

// Add registers a routine with the given role and returns its item.
func (g *Graph) Add(routine *ir.Subroutine, role Role) *Item {
	key := strings.ToUpper(routine.Name)
	if it, ok := g.items[key]; ok {
		return it
	}
	it := &Item{routine: routine, role: role, trafoData: make(map[string]any)}
	g.items[key] = it
	g.order = append(g.order, key)
	return it
}

// Item returns the registered routine by name, or nil.
func (g *Graph) Item(name string) *Item {
	return g.items[strings.ToUpper(name)]
}

// AddCall records that caller invokes callee.
func (g *Graph) AddCall(caller, callee string) error {
	from := g.Item(caller)
	to := g.Item(callee)
	if from == nil || to == nil {
		return fmt.Errorf("sched: call %s -> %s references unregistered routine", caller, callee)
	}
	for _, existing := range from.calls {
		if existing == to {
			return nil
		}
	}
	from.calls = append(from.calls, to)
	return nil
}

// Process visits every routine in dependency order (callees strictly
// before callers) and applies the transformation once per routine. An
// error from any routine aborts the run immediately so that a
// half-threaded call tree is never silently produced.
func (g *Graph) Process(t Transformation) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Item]int)

	var visit func(it *Item) error
	visit = func(it *Item) error {
		switch state[it] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("sched: call cycle through %s", it.routine.Name)
		}
		state[it] = visiting
		for _, callee := range it.calls {
			if err := visit(callee); err != nil {
				return err
			}
		}
		g.log.Debug("transforming routine",
			zap.String("routine", it.routine.Name),
			zap.String("role", it.role.String()),
		)
		if err := t.TransformSubroutine(it, it.role, it.calls); err != nil {
			return fmt.Errorf("sched: %s: %w", it.routine.Name, err)
		}
		state[it] = done
		return nil
	}

	for _, key := range g.order {
		if err := visit(g.items[key]); err != nil {
			return err
		}
	}
	return nil
}
