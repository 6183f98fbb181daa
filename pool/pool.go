// Package pool implements the stack pool allocation pass. Local
// temporary arrays of kernel routines are carved out of one pre-sized
// scratch buffer that the driver allocates once per run; the running
// carve position is threaded through the call tree as a pair of base
// and bound arguments, so no kernel performs a heap allocation of its
// own.
//
// The pass runs over a sched.Graph in dependency order. Each kernel
// publishes a RoutineFrame describing how much stack it and its callees
// need; drivers aggregate the published frames of the kernels they call
// into the buffer size.
package pool

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fortlab/stackpool/dim"
	"github.com/fortlab/stackpool/ir"
	"github.com/fortlab/stackpool/sched"
)

// Names introduced into transformed routines. Kernels receive the
// incoming stack window as YDSTACK arguments and carve from a local
// YLSTACK copy so the caller's cursor is never mutated. The limit
// exists only when overflow guards are enabled.
const (
	stackArgBase    = "YDSTACK_L"
	stackArgLimit   = "YDSTACK_U"
	stackLocalBase  = "YLSTACK_L"
	stackLocalLimit = "YLSTACK_U"
	stackSizeName   = "ISTSZ"
	stackBufferName = "ZSTACK"
	overlayPrefix   = "IP_"

	insertPragmaKeyword = "loki"
	insertPragmaContent = "stack-insert"
)

// Directive selects the parallelization dialect whose pragmas the pass
// keeps consistent with the variables it introduces.
type Directive int

const (
	DirectiveNone Directive = iota
	DirectiveOpenMP
	DirectiveOpenACC
)

func (d Directive) String() string {
	switch d {
	case DirectiveOpenMP:
		return "openmp"
	case DirectiveOpenACC:
		return "openacc"
	default:
		return "none"
	}
}

// Sentinel returns the pragma sentinel keyword of the dialect, or "".
func (d Directive) Sentinel() string {
	switch d {
	case DirectiveOpenMP:
		return "omp"
	case DirectiveOpenACC:
		return "acc"
	default:
		return ""
	}
}

// Config configures one Transformation instance.
type Config struct {
	// BlockDim is the outer block dimension the driver loops over. Its
	// Size names the allocation extent of the buffer's block axis and
	// its Index identifies the driver's block loops.
	BlockDim dim.Dimension

	// Horizontal is the innermost (column) dimension. Temporaries whose
	// leading extent is the horizontal size are assumed wide enough to
	// keep successive carves aligned, so they skip the alignment clamp
	// on their element size.
	Horizontal dim.Dimension

	// CheckBounds inserts an overflow guard after every carve. When
	// disabled the upper bound is not declared or threaded at all.
	CheckBounds bool

	// CrayPtrLoc switches the carve arithmetic from byte offsets to
	// element counts: the buffer itself is threaded as an extra
	// argument and addresses are formed with LOC at the point of use.
	CrayPtrLoc bool

	// Directive selects which parallel pragmas to synchronize.
	Directive Directive

	// RealKind is the kind parameter of the driver buffer and of the
	// element-size probes. Defaults to JPRB.
	RealKind string

	// Key overrides the side-table key, for running two differently
	// configured instances over one graph.
	Key string

	// Logger receives pass diagnostics; nil disables logging.
	Logger *zap.Logger
}

// Transformation is the stack pool allocation pass. Create with New and
// apply through sched.Graph.Process.
type Transformation struct {
	cfg Config
	log *zap.Logger
}

// New returns a Transformation for the given configuration.
func New(cfg Config) *Transformation {
	if cfg.RealKind == "" {
		cfg.RealKind = "JPRB"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Transformation{cfg: cfg, log: log}
}

// Key identifies this transformation in the sched side-table.
func (t *Transformation) Key() string {
	if t.cfg.Key != "" {
		return t.cfg.Key
	}
	return "stack_pool_allocator"
}

// PoolTemporary is one relocated temporary array.
type PoolTemporary struct {
	Name  string
	Type  ir.TypeSpec
	Shape []ir.Bound
	// Size is the carve width in bytes (element counts in CrayPtrLoc
	// mode), in terms of the owning routine's dummy arguments.
	Size ir.Expression
	// Offset is the cumulative size of the preceding temporaries; nil
	// for the first.
	Offset ir.Expression
}

// RoutineFrame is the analysis result a kernel publishes for its
// callers. All expressions are in terms of the kernel's own dummy
// arguments; callers hoist them by substituting actual arguments.
type RoutineFrame struct {
	// OwnSize is the stack the routine carves for itself, nil when it
	// relocates nothing.
	OwnSize ir.Expression
	// TotalSize is OwnSize plus the widest requirement among outgoing
	// calls.
	TotalSize ir.Expression
	// Temporaries lists the relocated arrays in declaration order.
	Temporaries []PoolTemporary
}

// Frame returns the frame published for item by this transformation,
// or nil when the routine does not participate.
func (t *Transformation) Frame(item *sched.Item) *RoutineFrame {
	f, _ := item.TrafoData(t.Key()).(*RoutineFrame)
	return f
}

// TransformSubroutine implements sched.Transformation.
func (t *Transformation) TransformSubroutine(item *sched.Item, role sched.Role, successors []*sched.Item) error {
	if role == sched.RoleDriver {
		return t.transformDriver(item, successors)
	}
	return t.transformKernel(item, successors)
}

// calleeInfo pairs a successor item with its published frame.
type calleeInfo struct {
	item  *sched.Item
	frame *RoutineFrame
}

// calleeFrames indexes the participating successors by uppercase name.
// Successors without a published frame were skipped by the pass and are
// treated as opaque: their call sites stay untouched.
func (t *Transformation) calleeFrames(successors []*sched.Item) map[string]*calleeInfo {
	out := make(map[string]*calleeInfo, len(successors))
	for _, s := range successors {
		if f := t.Frame(s); f != nil {
			out[strings.ToUpper(s.Name())] = &calleeInfo{item: s, frame: f}
		}
	}
	return out
}

// int8Spec is the type of stack cursors and carve addresses.
func int8Spec() ir.TypeSpec {
	return ir.TypeSpec{Base: ir.TypeInteger, Kind: ir.Int(8)}
}

// bufferSpec is the element type of the scratch buffer.
func (t *Transformation) bufferSpec() ir.TypeSpec {
	return ir.TypeSpec{Base: ir.TypeReal, Kind: ir.Ident(t.cfg.RealKind)}
}

// insertStmts splices stmts into body before index at.
func insertStmts(body []ir.Statement, at int, stmts []ir.Statement) []ir.Statement {
	out := make([]ir.Statement, 0, len(body)+len(stmts))
	out = append(out, body[:at]...)
	out = append(out, stmts...)
	out = append(out, body[at:]...)
	return out
}

// ensureUse guarantees the routine imports the given names from module.
// An existing import of the whole module already covers them.
func ensureUse(routine *ir.Subroutine, module string, intrinsic bool, names ...string) {
	for _, stmt := range routine.Body[:routine.DeclEnd()] {
		us, ok := stmt.(*ir.UseStmt)
		if !ok || !strings.EqualFold(us.Module, module) {
			continue
		}
		if len(us.Only) == 0 {
			return
		}
		for _, n := range names {
			if !containsFold(us.Only, n) {
				us.Only = append(us.Only, n)
			}
		}
		return
	}
	use := &ir.UseStmt{Module: module, Intrinsic: intrinsic, Only: append([]string{}, names...)}
	routine.Body = insertStmts(routine.Body, 0, []ir.Statement{use})
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
