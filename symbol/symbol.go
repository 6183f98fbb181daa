// Package symbol provides per-routine symbol tables mapping names to
// type, kind, shape and attribute information, as required by the
// stack-pool-allocation pass.
package symbol

import (
	"fmt"
	"strings"

	"github.com/fortlab/stackpool/ir"
)

// Flags
type Flags uint64

const (
	FlagArgument Flags = 1 << iota
	FlagParameter
	FlagAllocatable
	FlagPointer
	FlagTarget
	FlagOptional
)

func (f Flags) HasAny(hasBits Flags) bool { return f&hasBits != 0 }
func (f Flags) HasAll(hasBits Flags) bool { return f&hasBits == hasBits }
func (f Flags) With(mask Flags, setBits bool) Flags {
	if setBits {
		return f | mask
	}
	return f &^ mask
}

// Symbol represents one declared entity of a routine.
type Symbol struct {
	name     string
	typ      ir.TypeSpec
	shape    []ir.Bound
	intent   ir.Intent
	flags    Flags
	declNode ir.Node
}

// Name returns the symbol name as declared.
func (s *Symbol) Name() string { return s.name }

// Type returns the declared type specification.
func (s *Symbol) Type() ir.TypeSpec { return s.typ }

// Shape returns the array shape, nil for scalars.
func (s *Symbol) Shape() []ir.Bound { return s.shape }

// Intent returns the declared intent, IntentUnspecified for locals.
func (s *Symbol) Intent() ir.Intent { return s.intent }

// Flags returns the symbol [Flags].
func (s *Symbol) Flags() Flags { return s.flags }

// DeclNode returns the declaration node this symbol came from.
func (s *Symbol) DeclNode() ir.Node { return s.declNode }

// IsArray reports whether the symbol has a declared shape.
func (s *Symbol) IsArray() bool { return len(s.shape) > 0 }

// IsArgument reports whether the symbol is a dummy argument.
func (s *Symbol) IsArgument() bool { return s.flags.HasAny(FlagArgument) }

// IsDerived reports whether the symbol has a derived (aggregate) type.
func (s *Symbol) IsDerived() bool { return s.typ.Base == ir.TypeDerived }

// Scope is one routine's symbol table. Fortran names are
// case-insensitive; lookups are normalized. Declaration order is
// preserved for iteration.
type Scope struct {
	routine *ir.Subroutine
	symbols map[string]*Symbol
	order   []string
}

// Routine returns the routine this scope describes.
func (sc *Scope) Routine() *ir.Subroutine { return sc.routine }

// Lookup returns the symbol for name, or nil.
func (sc *Scope) Lookup(name string) *Symbol {
	return sc.symbols[normalizeCase(name)]
}

// Define adds a symbol to the scope.
func (sc *Scope) Define(sym *Symbol) error {
	key := normalizeCase(sym.name)
	if _, ok := sc.symbols[key]; ok {
		return fmt.Errorf("symbol %s already defined in %s", sym.name, sc.routine.Name)
	}
	sc.symbols[key] = sym
	sc.order = append(sc.order, key)
	return nil
}

// InOrder returns all symbols in declaration order (dummy arguments
// first, then locals as declared).
func (sc *Scope) InOrder() []*Symbol {
	out := make([]*Symbol, 0, len(sc.order))
	for _, key := range sc.order {
		out = append(out, sc.symbols[key])
	}
	return out
}

// normalizeCase converts a Fortran identifier to normalized form
// (uppercase) for case-insensitive lookup.
func normalizeCase(name string) string {
	return strings.ToUpper(name)
}
