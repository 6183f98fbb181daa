package ir

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an IR tree in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor
// w for each of the non-nil children of node, followed by a call of
// w.Visit(nil).
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Subroutine:
		for _, stmt := range n.Body {
			Walk(v, stmt)
		}

	case *TypeDecl:
		if n.Type.Kind != nil {
			Walk(v, n.Type.Kind)
		}
		for _, e := range n.Entities {
			for _, b := range e.Shape {
				if b.Lower != nil {
					Walk(v, b.Lower)
				}
				if b.Upper != nil {
					Walk(v, b.Upper)
				}
			}
			if e.Init != nil {
				Walk(v, e.Init)
			}
		}

	case *AddressOverlay:
		if n.Type.Kind != nil {
			Walk(v, n.Type.Kind)
		}
		for _, b := range n.Shape {
			if b.Lower != nil {
				Walk(v, b.Lower)
			}
			if b.Upper != nil {
				Walk(v, b.Upper)
			}
		}

	case *UseStmt:
		// No child nodes.

	case *Assignment:
		Walk(v, n.Lhs)
		Walk(v, n.Rhs)

	case *CallStmt:
		for _, a := range n.Args {
			Walk(v, a)
		}
		for _, kw := range n.KwArgs {
			Walk(v, kw.Value)
		}

	case *DoLoop:
		Walk(v, n.Start)
		Walk(v, n.Stop)
		if n.Step != nil {
			Walk(v, n.Step)
		}
		for _, stmt := range n.Body {
			Walk(v, stmt)
		}

	case *IfStmt:
		Walk(v, n.Cond)
		for _, stmt := range n.Then {
			Walk(v, stmt)
		}
		for _, stmt := range n.Else {
			Walk(v, stmt)
		}

	case *StopStmt:
		// No child nodes.

	case *AllocateStmt:
		for _, o := range n.Objects {
			Walk(v, o)
		}

	case *DeallocateStmt:
		for _, o := range n.Objects {
			Walk(v, o)
		}

	case *Pragma:
		// Clause parameters are strings, not nodes.

	case *Comment:
		// No child nodes.

	case *Identifier, *IntLit, *RealLit, *LogicalLit:
		// Leaf nodes.

	case *BinaryExpr:
		Walk(v, n.Left)
		Walk(v, n.Right)

	case *UnaryExpr:
		Walk(v, n.Operand)

	case *ParenExpr:
		Walk(v, n.Expr)

	case *InlineCall:
		for _, a := range n.Args {
			Walk(v, a)
		}
		for _, kw := range n.KwArgs {
			Walk(v, kw.Value)
		}

	case *ArrayRef:
		for _, s := range n.Subscripts {
			Walk(v, s)
		}

	case *RangeExpr:
		if n.Start != nil {
			Walk(v, n.Start)
		}
		if n.Stop != nil {
			Walk(v, n.Stop)
		}
		if n.Stride != nil {
			Walk(v, n.Stride)
		}
	}

	v.Visit(nil)
}

// Inspect traverses an IR tree in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Inspect invokes f
// recursively for each of the non-nil children of node, followed by a
// call of f(nil).
//
// Inspect is a convenience wrapper around Walk that allows using a
// simple function instead of implementing the Visitor interface.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}
