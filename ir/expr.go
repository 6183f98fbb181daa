package ir

import "strconv"

// BinaryOp enumerates the binary operators the pass reads or emits.
type BinaryOp int

const (
	OpAdd BinaryOp = iota // +
	OpSub                 // -
	OpMul                 // *
	OpDiv                 // /
	OpPow                 // **
	OpGT                  // >
	OpGE                  // >=
	OpLT                  // <
	OpLE                  // <=
	OpEQ                  // ==
	OpNE                  // /=
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "**"
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpEQ:
		return "=="
	case OpNE:
		return "/="
	default:
		return "<op>"
	}
}

// IsArithmetic reports whether the operator produces a numeric value.
func (op BinaryOp) IsArithmetic() bool { return op <= OpPow }

// IsComparison reports whether the operator produces a logical value.
func (op BinaryOp) IsComparison() bool { return op >= OpGT }

// Identifier is a bare name. The Value may be a component path such as
// geom%blk_dim%nb; the pass treats such paths as opaque scalar names.
type Identifier struct {
	Value    string
	StartPos int
	EndPos   int
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) AppendString(dst []byte) []byte {
	return append(dst, i.Value...)
}
func (i *Identifier) Pos() int { return i.StartPos }
func (i *Identifier) End() int { return i.EndPos }

// Ident is shorthand for constructing an Identifier.
func Ident(name string) *Identifier { return &Identifier{Value: name} }

// IntLit is an integer literal.
type IntLit struct {
	Value    int64
	StartPos int
	EndPos   int
}

func (il *IntLit) expressionNode() {}
func (il *IntLit) AppendString(dst []byte) []byte {
	return strconv.AppendInt(dst, il.Value, 10)
}
func (il *IntLit) Pos() int { return il.StartPos }
func (il *IntLit) End() int { return il.EndPos }

// Int is shorthand for constructing an IntLit.
func Int(v int64) *IntLit { return &IntLit{Value: v} }

// RealLit is a floating-point literal kept in its source spelling so
// kind suffixes like 0.0_jprb survive round trips.
type RealLit struct {
	Raw      string
	StartPos int
	EndPos   int
}

func (rl *RealLit) expressionNode() {}
func (rl *RealLit) AppendString(dst []byte) []byte {
	return append(dst, rl.Raw...)
}
func (rl *RealLit) Pos() int { return rl.StartPos }
func (rl *RealLit) End() int { return rl.EndPos }

// LogicalLit is .TRUE. or .FALSE.
type LogicalLit struct {
	Value    bool
	StartPos int
	EndPos   int
}

func (ll *LogicalLit) expressionNode() {}
func (ll *LogicalLit) AppendString(dst []byte) []byte {
	if ll.Value {
		return append(dst, ".TRUE."...)
	}
	return append(dst, ".FALSE."...)
}
func (ll *LogicalLit) Pos() int { return ll.StartPos }
func (ll *LogicalLit) End() int { return ll.EndPos }

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	Op       BinaryOp
	Left     Expression
	Right    Expression
	StartPos int
	EndPos   int
}

func (be *BinaryExpr) expressionNode() {}
func (be *BinaryExpr) AppendString(dst []byte) []byte {
	dst = be.Left.AppendString(dst)
	if be.Op == OpMul || be.Op == OpDiv || be.Op == OpPow {
		dst = append(dst, be.Op.String()...)
	} else {
		dst = append(dst, ' ')
		dst = append(dst, be.Op.String()...)
		dst = append(dst, ' ')
	}
	return be.Right.AppendString(dst)
}
func (be *BinaryExpr) Pos() int { return be.StartPos }
func (be *BinaryExpr) End() int { return be.EndPos }

// Binary constructs a BinaryExpr.
func Binary(op BinaryOp, left, right Expression) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

// Add returns left + right; a nil side yields the other operand.
func Add(left, right Expression) Expression {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return Binary(OpAdd, left, right)
}

// Mul returns left * right.
func Mul(left, right Expression) Expression {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return Binary(OpMul, left, right)
}

// UnaryExpr is a unary operation; only numeric negation is used here.
type UnaryExpr struct {
	Op       BinaryOp
	Operand  Expression
	StartPos int
	EndPos   int
}

func (ue *UnaryExpr) expressionNode() {}
func (ue *UnaryExpr) AppendString(dst []byte) []byte {
	dst = append(dst, ue.Op.String()...)
	return ue.Operand.AppendString(dst)
}
func (ue *UnaryExpr) Pos() int { return ue.StartPos }
func (ue *UnaryExpr) End() int { return ue.EndPos }

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr     Expression
	StartPos int
	EndPos   int
}

func (pe *ParenExpr) expressionNode() {}
func (pe *ParenExpr) AppendString(dst []byte) []byte {
	dst = append(dst, '(')
	dst = pe.Expr.AppendString(dst)
	return append(dst, ')')
}
func (pe *ParenExpr) Pos() int { return pe.StartPos }
func (pe *ParenExpr) End() int { return pe.EndPos }

// KeywordArg is a name=value actual argument.
type KeywordArg struct {
	Name  string
	Value Expression
}

func (kw KeywordArg) AppendString(dst []byte) []byte {
	dst = append(dst, kw.Name...)
	dst = append(dst, '=')
	return kw.Value.AppendString(dst)
}

// InlineCall is a value-producing call appearing inside an expression,
// including intrinsic calls such as C_SIZEOF, MAX and LOC.
type InlineCall struct {
	Name     string
	Args     []Expression
	KwArgs   []KeywordArg
	StartPos int
	EndPos   int
}

func (ic *InlineCall) expressionNode() {}
func (ic *InlineCall) AppendString(dst []byte) []byte {
	dst = append(dst, ic.Name...)
	dst = append(dst, '(')
	for i, a := range ic.Args {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = a.AppendString(dst)
	}
	for i, kw := range ic.KwArgs {
		if i > 0 || len(ic.Args) > 0 {
			dst = append(dst, ", "...)
		}
		dst = kw.AppendString(dst)
	}
	return append(dst, ')')
}
func (ic *InlineCall) Pos() int { return ic.StartPos }
func (ic *InlineCall) End() int { return ic.EndPos }

// MaxOf returns MAX(left, right), or the sole non-nil operand. Operands
// that render identically are collapsed.
func MaxOf(left, right Expression) Expression {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if string(left.AppendString(nil)) == string(right.AppendString(nil)) {
		return left
	}
	if mc, ok := left.(*InlineCall); ok && equalFold(mc.Name, "MAX") {
		return &InlineCall{Name: mc.Name, Args: append(append([]Expression{}, mc.Args...), right)}
	}
	return &InlineCall{Name: "MAX", Args: []Expression{left, right}}
}

// ArrayRef is an array element or section reference.
type ArrayRef struct {
	Name       string
	Subscripts []Expression
	StartPos   int
	EndPos     int
}

func (ar *ArrayRef) expressionNode() {}
func (ar *ArrayRef) AppendString(dst []byte) []byte {
	dst = append(dst, ar.Name...)
	dst = append(dst, '(')
	for i, s := range ar.Subscripts {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = s.AppendString(dst)
	}
	return append(dst, ')')
}
func (ar *ArrayRef) Pos() int { return ar.StartPos }
func (ar *ArrayRef) End() int { return ar.EndPos }

// RangeExpr is a section subscript lower:upper:stride; all parts may be
// nil, in which case it renders as a bare colon.
type RangeExpr struct {
	Start    Expression
	Stop     Expression
	Stride   Expression
	StartPos int
	EndPos   int
}

func (re *RangeExpr) expressionNode() {}
func (re *RangeExpr) AppendString(dst []byte) []byte {
	if re.Start != nil {
		dst = re.Start.AppendString(dst)
	}
	dst = append(dst, ':')
	if re.Stop != nil {
		dst = re.Stop.AppendString(dst)
	}
	if re.Stride != nil {
		dst = append(dst, ':')
		dst = re.Stride.AppendString(dst)
	}
	return dst
}
func (re *RangeExpr) Pos() int { return re.StartPos }
func (re *RangeExpr) End() int { return re.EndPos }

// ExprString renders an expression to a string, "" for nil.
func ExprString(e Expression) string {
	if e == nil {
		return ""
	}
	return string(e.AppendString(nil))
}
