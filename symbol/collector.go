package symbol

import "github.com/fortlab/stackpool/ir"

// Collect builds a routine's symbol table from its signature and
// specification statements. Dummy arguments are defined first, in
// parameter order; local declarations follow in source order. A local
// declaration of a name already defined as a dummy argument refines the
// argument's type rather than redefining it.
func Collect(routine *ir.Subroutine) (*Scope, error) {
	sc := &Scope{
		routine: routine,
		symbols: make(map[string]*Symbol),
	}

	for _, p := range routine.Params {
		sym := &Symbol{
			name:   p.Name,
			typ:    p.Type,
			shape:  p.Shape,
			intent: p.Intent,
			flags:  FlagArgument.With(FlagOptional, p.Optional),
		}
		if err := sc.Define(sym); err != nil {
			return nil, err
		}
	}

	declEnd := routine.DeclEnd()
	for _, stmt := range routine.Body[:declEnd] {
		switch n := stmt.(type) {
		case *ir.TypeDecl:
			if err := collectDecl(sc, n); err != nil {
				return nil, err
			}
		case *ir.AddressOverlay:
			// The overlay target keeps its original declaration; the
			// address variable is declared by its own TypeDecl.
			if sc.Lookup(n.Target) == nil {
				sym := &Symbol{name: n.Target, typ: n.Type, shape: n.Shape, declNode: n}
				if err := sc.Define(sym); err != nil {
					return nil, err
				}
			}
		}
	}
	return sc, nil
}

func collectDecl(sc *Scope, decl *ir.TypeDecl) error {
	var flags Flags
	flags = flags.With(FlagParameter, decl.HasAttr(ir.AttrParameter))
	flags = flags.With(FlagAllocatable, decl.HasAttr(ir.AttrAllocatable))
	flags = flags.With(FlagPointer, decl.HasAttr(ir.AttrPointer))
	flags = flags.With(FlagTarget, decl.HasAttr(ir.AttrTarget))
	flags = flags.With(FlagOptional, decl.HasAttr(ir.AttrOptional))

	for _, e := range decl.Entities {
		if existing := sc.Lookup(e.Name); existing != nil && existing.IsArgument() {
			// Refine the dummy argument's declaration.
			existing.typ = decl.Type
			if e.Shape != nil {
				existing.shape = e.Shape
			}
			if decl.Intent != ir.IntentUnspecified {
				existing.intent = decl.Intent
			}
			existing.flags |= flags
			existing.declNode = decl
			continue
		}
		sym := &Symbol{
			name:     e.Name,
			typ:      decl.Type,
			shape:    e.Shape,
			intent:   decl.Intent,
			flags:    flags,
			declNode: decl,
		}
		if err := sc.Define(sym); err != nil {
			return err
		}
	}
	return nil
}
