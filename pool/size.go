package pool

import (
	"strings"

	"github.com/fortlab/stackpool/ir"
	"github.com/fortlab/stackpool/symbol"
)

// localTemporaries selects the routine's relocatable arrays in
// declaration order. A local array qualifies when it is not a dummy
// argument, carries no PARAMETER, ALLOCATABLE or POINTER attribute, has
// an explicit shape, and that shape depends on at least one
// runtime-varying name. Compile-time-constant arrays stay where they
// are: relocating them would trade static storage for carve arithmetic
// with nothing gained.
//
// Any derived-type local, array or scalar, disqualifies the whole
// routine; its name is returned so the caller can report it.
func (t *Transformation) localTemporaries(scope *symbol.Scope) (temps []PoolTemporary, derived string) {
	for _, sym := range scope.InOrder() {
		if sym.IsArgument() {
			continue
		}
		if sym.IsDerived() {
			return nil, sym.Name()
		}
		if !sym.IsArray() {
			continue
		}
		if sym.Flags().HasAny(symbol.FlagParameter | symbol.FlagAllocatable | symbol.FlagPointer) {
			continue
		}
		if !explicitShape(sym.Shape()) || !t.runtimeVarying(scope, sym.Shape()) {
			continue
		}
		temps = append(temps, PoolTemporary{
			Name:  sym.Name(),
			Type:  sym.Type(),
			Shape: sym.Shape(),
		})
	}
	t.sizeTemporaries(temps)
	return temps, ""
}

// explicitShape reports whether every dimension has a declared upper
// bound. Deferred and assumed shapes cannot be carved.
func explicitShape(shape []ir.Bound) bool {
	for _, b := range shape {
		if b.Upper == nil {
			return false
		}
	}
	return true
}

// runtimeVarying reports whether the shape references at least one name
// that is not a PARAMETER constant of the routine.
func (t *Transformation) runtimeVarying(scope *symbol.Scope, shape []ir.Bound) bool {
	for _, b := range shape {
		for _, e := range []ir.Expression{b.Lower, b.Upper} {
			for _, name := range ir.FreeVariables(e) {
				sym := scope.Lookup(name)
				if sym == nil || !sym.Flags().HasAny(symbol.FlagParameter) {
					return true
				}
			}
		}
	}
	return false
}

// sizeTemporaries fills in Size and Offset for each temporary. Size is
// element size times the extent product in byte mode, the bare extent
// product in element-counted mode. Offset accumulates the sizes of the
// preceding temporaries in declaration order.
func (t *Transformation) sizeTemporaries(temps []PoolTemporary) {
	var running ir.Expression
	for i := range temps {
		var size ir.Expression
		if !t.cfg.CrayPtrLoc {
			size = t.elementSize(temps[i].Type, temps[i].Shape[0])
		}
		for _, b := range temps[i].Shape {
			size = ir.Mul(size, extent(b))
		}
		temps[i].Size = ir.Simplify(size)
		temps[i].Offset = running
		running = ir.Simplify(ir.Add(ir.CloneExpr(running), ir.CloneExpr(temps[i].Size)))
	}
}

// extent returns the element count of one dimension.
func extent(b ir.Bound) ir.Expression {
	if b.Lower == nil {
		return ir.CloneExpr(b.Upper)
	}
	span := ir.Binary(ir.OpSub, ir.CloneExpr(b.Upper), ir.CloneExpr(b.Lower))
	return &ir.ParenExpr{Expr: ir.Add(span, ir.Int(1))}
}

// elementSize builds the per-element byte size of a temporary,
// C_SIZEOF over a unit literal of the declared type and kind. Unless
// the leading dimension spans the horizontal, the probe is clamped to
// the widest scalar so successive carves stay aligned.
func (t *Transformation) elementSize(ts ir.TypeSpec, leading ir.Bound) ir.Expression {
	var unit ir.Expression = ir.Int(1)
	ctor := "REAL"
	switch ts.Base {
	case ir.TypeInteger:
		ctor = "INT"
	case ir.TypeLogical:
		ctor = "LOGICAL"
		unit = &ir.LogicalLit{Value: true}
	case ir.TypeComplex:
		ctor = "CMPLX"
	}
	probe := &ir.InlineCall{Name: ctor, Args: []ir.Expression{unit}}
	if ts.Kind != nil {
		probe.KwArgs = []ir.KeywordArg{{Name: "KIND", Value: ir.CloneExpr(ts.Kind)}}
	}
	size := ir.Expression(&ir.InlineCall{Name: "C_SIZEOF", Args: []ir.Expression{probe}})
	if !t.leadsHorizontal(leading) {
		size = &ir.InlineCall{Name: "MAX", Args: []ir.Expression{size, ir.Int(8)}}
	}
	return size
}

// leadsHorizontal reports whether the leading dimension's bounds
// reference the configured horizontal size or one of its aliases.
func (t *Transformation) leadsHorizontal(leading ir.Bound) bool {
	if t.cfg.Horizontal.IsZero() {
		return false
	}
	for _, e := range []ir.Expression{leading.Lower, leading.Upper} {
		for _, name := range ir.FreeVariables(e) {
			if t.cfg.Horizontal.MatchesSize(name) {
				return true
			}
		}
	}
	return false
}

// ownSize sums the temporaries' carve widths in declaration order.
// Returns nil when nothing is relocated.
func ownSize(temps []PoolTemporary) ir.Expression {
	var sum ir.Expression
	for i := range temps {
		sum = ir.Add(sum, ir.CloneExpr(temps[i].Size))
	}
	if sum == nil {
		return nil
	}
	return ir.Simplify(sum)
}

// calleeStackSize scans the routine for calls into participating
// callees and returns the widest hoisted requirement among them, each
// callee's published TotalSize rewritten from its formal names to the
// actual arguments of the call site. Returns nil when no call site
// contributes.
func (t *Transformation) calleeStackSize(routine *ir.Subroutine, frames map[string]*calleeInfo) (ir.Expression, error) {
	var widest ir.Expression
	var firstErr error

	hoist := func(name string, args []ir.Expression, kwargs []ir.KeywordArg, rendered string) {
		info := frames[strings.ToUpper(name)]
		if info == nil || isZeroSize(info.frame.TotalSize) {
			return
		}
		subs, err := actualBindings(info.item.Routine().Params, args, kwargs, routine.Name, rendered)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		hoisted := ir.Simplify(ir.SubstituteExpr(info.frame.TotalSize, subs))
		widest = ir.MaxOf(widest, hoisted)
	}

	ir.Inspect(routine, func(n ir.Node) bool {
		if firstErr != nil {
			return false
		}
		switch c := n.(type) {
		case *ir.CallStmt:
			hoist(c.Name, c.Args, c.KwArgs, string(c.AppendString(nil)))
		case *ir.InlineCall:
			hoist(c.Name, c.Args, c.KwArgs, ir.ExprString(c))
		}
		return true
	})
	return widest, firstErr
}

// actualBindings zips a callee's dummy arguments with the actual
// arguments of one call site, keyed by uppercase formal name.
func actualBindings(params []ir.Param, args []ir.Expression, kwargs []ir.KeywordArg, routine, rendered string) (map[string]ir.Expression, error) {
	if len(args) > len(params) {
		return nil, signatureMismatch(routine, rendered, "more positional arguments than dummy arguments")
	}
	subs := make(map[string]ir.Expression, len(args)+len(kwargs))
	for i, a := range args {
		subs[strings.ToUpper(params[i].Name)] = a
	}
	for _, kw := range kwargs {
		found := false
		for i := range params {
			if strings.EqualFold(params[i].Name, kw.Name) {
				subs[strings.ToUpper(params[i].Name)] = kw.Value
				found = true
				break
			}
		}
		if !found {
			return nil, signatureMismatch(routine, rendered, "keyword argument "+kw.Name+" matches no dummy argument")
		}
	}
	return subs, nil
}

func isZeroSize(e ir.Expression) bool {
	lit, ok := e.(*ir.IntLit)
	return ok && lit.Value == 0
}
