package pool

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fortlab/stackpool/dim"
	"github.com/fortlab/stackpool/ir"
	"github.com/fortlab/stackpool/sched"
	"github.com/fortlab/stackpool/symbol"
)

// transformDriver provisions the scratch buffer in a root routine: it
// aggregates the published requirements of the kernels called from the
// block loops, sizes and allocates the buffer once, seeds a fresh
// window at the top of every block iteration and threads the window
// into the kernel calls.
func (t *Transformation) transformDriver(item *sched.Item, successors []*sched.Item) error {
	routine := item.Routine()
	scope, err := symbol.Collect(routine)
	if err != nil {
		return &PassError{Phase: PhaseAnalyze, Kind: KindInternal, Routine: routine.Name, Err: err}
	}
	if scope.Lookup(stackSizeName) != nil {
		t.log.Debug("stack buffer already provisioned",
			zap.String("routine", routine.Name))
		return nil
	}

	frames := t.calleeFrames(successors)
	aggregate, err := t.calleeStackSize(routine, frames)
	if err != nil {
		return err
	}
	if aggregate == nil {
		t.log.Debug("no participating call sites",
			zap.String("routine", routine.Name))
		return nil
	}
	if t.cfg.BlockDim.Size == "" || t.cfg.BlockDim.Index == "" {
		return &PassError{Phase: PhaseProvision, Kind: KindUnsupported, Routine: routine.Name,
			Detail: "block dimension not configured"}
	}
	blockLoops := collectBlockLoops(routine.Body, t.cfg.BlockDim, frames)
	if len(blockLoops) == 0 {
		return &PassError{Phase: PhaseProvision, Kind: KindUnsupported, Routine: routine.Name,
			Detail: "no block loop encloses the kernel calls"}
	}

	// The aggregate is in bytes; the buffer extent is in elements. The
	// division is distributed over sum terms so each stays a readable
	// bytes-per-element quotient; a MAX aggregate is divided once.
	istsz := aggregate
	if !t.cfg.CrayPtrLoc {
		istsz = divideByElem(aggregate, t.elemProbe())
	}

	decls := []ir.Statement{
		&ir.TypeDecl{Type: int8Spec(), Entities: []ir.DeclEntity{{Name: stackSizeName}}},
		&ir.TypeDecl{
			Type:     t.bufferSpec(),
			Attrs:    []ir.Attr{ir.AttrAllocatable},
			Entities: []ir.DeclEntity{{Name: stackBufferName, Shape: []ir.Bound{{}, {}}}},
		},
		&ir.TypeDecl{Type: int8Spec(), Entities: []ir.DeclEntity{{Name: stackLocalBase}}},
	}
	if t.cfg.CheckBounds {
		decls = append(decls,
			&ir.TypeDecl{Type: int8Spec(), Entities: []ir.DeclEntity{{Name: stackLocalLimit}}})
	}
	routine.Body = insertStmts(routine.Body, specPartEnd(routine), decls)

	if !t.cfg.CrayPtrLoc {
		ensureUse(routine, "ISO_C_BINDING", true, "C_SIZEOF")
	}
	t.importMissing(routine, scope, istsz, successors)

	setup := []ir.Statement{
		&ir.Assignment{Lhs: ir.Ident(stackSizeName), Rhs: istsz},
		&ir.AllocateStmt{Objects: []ir.Expression{
			&ir.ArrayRef{Name: stackBufferName, Subscripts: []ir.Expression{
				ir.Ident(stackSizeName), ir.Ident(t.cfg.BlockDim.Size),
			}},
		}},
	}
	if t.cfg.Directive == DirectiveOpenACC {
		setup = append(setup, &ir.Pragma{Keyword: "acc", Content: "data create(" + stackBufferName + ")"})
	}
	routine.Body = insertStmts(routine.Body, t.insertionIndex(routine), setup)

	var limit ir.Expression
	if t.cfg.CheckBounds {
		limit = ir.Ident(stackLocalLimit)
	}
	for _, loop := range blockLoops {
		loop.Body = insertStmts(loop.Body, 0, t.loopSeeds())
		var buffer ir.Expression
		if t.cfg.CrayPtrLoc {
			buffer = &ir.ArrayRef{Name: stackBufferName, Subscripts: []ir.Expression{
				&ir.RangeExpr{}, ir.Ident(loop.Var),
			}}
		}
		err := t.threadCallList(routine.Name, loop.Body, frames,
			ir.Ident(stackLocalBase), limit, buffer)
		if err != nil {
			return err
		}
	}

	if t.cfg.Directive == DirectiveOpenACC {
		routine.Body = append(routine.Body, &ir.Pragma{Keyword: "acc", Content: "end data"})
	}
	routine.Body = append(routine.Body, &ir.DeallocateStmt{Objects: []ir.Expression{ir.Ident(stackBufferName)}})

	t.syncLoopDirectives(routine, blockLoops)
	return nil
}

// insertionIndex locates where the buffer setup goes: right after an
// explicit stack-insert marker pragma when the source carries one,
// otherwise at the top of the executable part.
func (t *Transformation) insertionIndex(routine *ir.Subroutine) int {
	for i, stmt := range routine.Body {
		p, ok := stmt.(*ir.Pragma)
		if ok && strings.EqualFold(p.Keyword, insertPragmaKeyword) && p.StartsWith(insertPragmaContent) {
			return i + 1
		}
	}
	return specPartEnd(routine)
}

// specPartEnd returns the index just past the last specification
// statement. Unlike Subroutine.DeclEnd it does not step over pragmas
// and comments attached to the executable part, so statements inserted
// here cannot split a parallel directive from its loop.
func specPartEnd(routine *ir.Subroutine) int {
	end := 0
	for i, stmt := range routine.Body {
		switch stmt.(type) {
		case *ir.UseStmt, *ir.TypeDecl, *ir.AddressOverlay:
			end = i + 1
		case *ir.Comment, *ir.Pragma:
			// Attachment is ambiguous; they count only when another
			// specification statement follows.
		default:
			return end
		}
	}
	return end
}

// loopSeeds builds the per-iteration window reset. In byte mode the
// base is the address of the iteration's column of the buffer; in
// element-counted mode it is simply index one. The limit exists only
// when bounds are checked.
func (t *Transformation) loopSeeds() []ir.Statement {
	if t.cfg.CrayPtrLoc {
		out := []ir.Statement{
			&ir.Assignment{Lhs: ir.Ident(stackLocalBase), Rhs: ir.Int(1)},
		}
		if t.cfg.CheckBounds {
			out = append(out, &ir.Assignment{
				Lhs: ir.Ident(stackLocalLimit),
				Rhs: ir.Add(ir.Ident(stackLocalBase), ir.Ident(stackSizeName)),
			})
		}
		return out
	}
	out := []ir.Statement{
		&ir.Assignment{
			Lhs: ir.Ident(stackLocalBase),
			Rhs: &ir.InlineCall{Name: "LOC", Args: []ir.Expression{
				&ir.ArrayRef{Name: stackBufferName, Subscripts: []ir.Expression{
					ir.Int(1), ir.Ident(t.cfg.BlockDim.Index),
				}},
			}},
		},
	}
	if t.cfg.CheckBounds {
		out = append(out, &ir.Assignment{
			Lhs: ir.Ident(stackLocalLimit),
			Rhs: ir.Add(ir.Ident(stackLocalBase), ir.Mul(ir.Ident(stackSizeName), t.elemProbe())),
		})
	}
	return out
}

// elemProbe is the byte width of one buffer element.
func (t *Transformation) elemProbe() ir.Expression {
	probe := &ir.InlineCall{
		Name:   "REAL",
		Args:   []ir.Expression{ir.Int(1)},
		KwArgs: []ir.KeywordArg{{Name: "KIND", Value: ir.Ident(t.cfg.RealKind)}},
	}
	return &ir.InlineCall{Name: "C_SIZEOF", Args: []ir.Expression{probe}}
}

// divideByElem rewrites a byte total into an element count.
func divideByElem(e ir.Expression, elem ir.Expression) ir.Expression {
	if be, ok := e.(*ir.BinaryExpr); ok && (be.Op == ir.OpAdd || be.Op == ir.OpSub) {
		return ir.Binary(be.Op, divideByElem(be.Left, elem), divideByElem(be.Right, elem))
	}
	return ir.Binary(ir.OpDiv, e, ir.CloneExpr(elem))
}

// collectBlockLoops finds the outermost loops over the block index that
// contain at least one call into a participating callee.
func collectBlockLoops(stmts []ir.Statement, blockDim dim.Dimension, frames map[string]*calleeInfo) []*ir.DoLoop {
	var out []*ir.DoLoop
	var walk func(stmts []ir.Statement)
	walk = func(stmts []ir.Statement) {
		for _, stmt := range stmts {
			switch n := stmt.(type) {
			case *ir.DoLoop:
				if blockDim.MatchesIndex(n.Var) && containsFramedCall(n.Body, frames) {
					out = append(out, n)
					continue
				}
				walk(n.Body)
			case *ir.IfStmt:
				walk(n.Then)
				walk(n.Else)
			}
		}
	}
	walk(stmts)
	return out
}

func containsFramedCall(stmts []ir.Statement, frames map[string]*calleeInfo) bool {
	found := false
	for _, stmt := range stmts {
		ir.Inspect(stmt, func(n ir.Node) bool {
			switch c := n.(type) {
			case *ir.CallStmt:
				if frames[strings.ToUpper(c.Name)] != nil {
					found = true
				}
			case *ir.InlineCall:
				if frames[strings.ToUpper(c.Name)] != nil {
					found = true
				}
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

// importMissing pulls declarations of names referenced by the buffer
// size into the driver. A kernel's size expression may mention kind
// constants or module data the driver never used before; the donor
// import is looked up in the callees.
func (t *Transformation) importMissing(routine *ir.Subroutine, scope *symbol.Scope, expr ir.Expression, successors []*sched.Item) {
	for _, name := range ir.FreeVariables(expr) {
		base := name
		if i := strings.IndexByte(base, '%'); i >= 0 {
			base = base[:i]
		}
		if scope.Lookup(base) != nil || importsName(routine, base) {
			continue
		}
		module, intrinsic, ok := findDonorImport(successors, base)
		if !ok {
			t.log.Debug("no donor import found for size symbol",
				zap.String("routine", routine.Name),
				zap.String("symbol", base))
			continue
		}
		ensureUse(routine, module, intrinsic, base)
	}
}

func importsName(routine *ir.Subroutine, name string) bool {
	for _, stmt := range routine.Body[:routine.DeclEnd()] {
		us, ok := stmt.(*ir.UseStmt)
		if ok && containsFold(us.Only, name) {
			return true
		}
	}
	return false
}

func findDonorImport(successors []*sched.Item, name string) (module string, intrinsic, ok bool) {
	for _, s := range successors {
		callee := s.Routine()
		for _, stmt := range callee.Body[:callee.DeclEnd()] {
			us, isUse := stmt.(*ir.UseStmt)
			if isUse && containsFold(us.Only, name) {
				return us.Module, us.Intrinsic, true
			}
		}
	}
	return "", false, false
}
