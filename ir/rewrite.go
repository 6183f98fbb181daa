package ir

import (
	"sort"
	"strings"
)

// CloneExpr returns a deep copy of e. Published size expressions must not
// share nodes with the routine they were built from, so that later
// rewrites of the routine cannot corrupt them.
func CloneExpr(e Expression) Expression {
	switch n := e.(type) {
	case nil:
		return nil
	case *Identifier:
		c := *n
		return &c
	case *IntLit:
		c := *n
		return &c
	case *RealLit:
		c := *n
		return &c
	case *LogicalLit:
		c := *n
		return &c
	case *BinaryExpr:
		return &BinaryExpr{Op: n.Op, Left: CloneExpr(n.Left), Right: CloneExpr(n.Right)}
	case *UnaryExpr:
		return &UnaryExpr{Op: n.Op, Operand: CloneExpr(n.Operand)}
	case *ParenExpr:
		return &ParenExpr{Expr: CloneExpr(n.Expr)}
	case *InlineCall:
		c := &InlineCall{Name: n.Name}
		for _, a := range n.Args {
			c.Args = append(c.Args, CloneExpr(a))
		}
		for _, kw := range n.KwArgs {
			c.KwArgs = append(c.KwArgs, KeywordArg{Name: kw.Name, Value: CloneExpr(kw.Value)})
		}
		return c
	case *ArrayRef:
		c := &ArrayRef{Name: n.Name}
		for _, s := range n.Subscripts {
			c.Subscripts = append(c.Subscripts, CloneExpr(s))
		}
		return c
	case *RangeExpr:
		return &RangeExpr{Start: CloneExpr(n.Start), Stop: CloneExpr(n.Stop), Stride: CloneExpr(n.Stride)}
	default:
		return e
	}
}

// SubstituteExpr returns a copy of e with every free identifier that has
// an entry in subs (case-insensitive) replaced by a clone of the mapped
// expression. It is how a callee's size expression is hoisted into the
// caller's scope: formal dimension names are replaced by the actual
// arguments of the call.
func SubstituteExpr(e Expression, subs map[string]Expression) Expression {
	if e == nil || len(subs) == 0 {
		return CloneExpr(e)
	}
	switch n := e.(type) {
	case *Identifier:
		if repl, ok := subs[strings.ToUpper(n.Value)]; ok {
			return CloneExpr(repl)
		}
		c := *n
		return &c
	case *BinaryExpr:
		return &BinaryExpr{Op: n.Op, Left: SubstituteExpr(n.Left, subs), Right: SubstituteExpr(n.Right, subs)}
	case *UnaryExpr:
		return &UnaryExpr{Op: n.Op, Operand: SubstituteExpr(n.Operand, subs)}
	case *ParenExpr:
		return &ParenExpr{Expr: SubstituteExpr(n.Expr, subs)}
	case *InlineCall:
		c := &InlineCall{Name: n.Name}
		for _, a := range n.Args {
			c.Args = append(c.Args, SubstituteExpr(a, subs))
		}
		for _, kw := range n.KwArgs {
			c.KwArgs = append(c.KwArgs, KeywordArg{Name: kw.Name, Value: SubstituteExpr(kw.Value, subs)})
		}
		return c
	case *ArrayRef:
		c := &ArrayRef{Name: n.Name}
		for _, s := range n.Subscripts {
			c.Subscripts = append(c.Subscripts, SubstituteExpr(s, subs))
		}
		return c
	case *RangeExpr:
		return &RangeExpr{Start: SubstituteExpr(n.Start, subs), Stop: SubstituteExpr(n.Stop, subs), Stride: SubstituteExpr(n.Stride, subs)}
	default:
		return CloneExpr(e)
	}
}

// FreeVariables returns the names of all identifiers and array bases
// referenced by e, uppercased and deduplicated, in order of appearance.
// Intrinsic call names (MAX, C_SIZEOF, ...) are not variables and are
// excluded; keyword-argument names (KIND=...) likewise.
func FreeVariables(e Expression) []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		u := strings.ToUpper(name)
		if !seen[u] {
			seen[u] = true
			names = append(names, u)
		}
	}
	Inspect(e, func(n Node) bool {
		switch v := n.(type) {
		case *Identifier:
			add(v.Value)
		case *ArrayRef:
			add(v.Name)
		}
		return true
	})
	return names
}

// term is one product in sum-of-products normal form: an integer
// coefficient times atomic factors.
type term struct {
	coeff   int64
	factors []Expression
	keys    []string
}

func (t term) key() string { return strings.Join(t.keys, "\x00") }

// sortFactors orders factors and their keys together.
func (t *term) sortFactors() {
	type pair struct {
		f Expression
		k string
	}
	pairs := make([]pair, len(t.factors))
	for i := range t.factors {
		pairs[i] = pair{t.factors[i], t.keys[i]}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return factorLess(pairs[a].f, pairs[a].k, pairs[b].f, pairs[b].k)
	})
	for i, p := range pairs {
		t.factors[i] = p.f
		t.keys[i] = p.k
	}
}

// Simplify normalizes an arithmetic expression to an ordered
// sum-of-products: integer literals are folded into coefficients,
// products are expanded over parenthesized sums, like terms are
// collected, and factors within a term are ordered canonically (calls
// before bare names, then lexically). Non-arithmetic subtrees (calls,
// divisions) are treated as opaque atoms. Term order follows first
// appearance, preserving declaration order in size sums.
func Simplify(e Expression) Expression {
	if e == nil {
		return nil
	}
	terms := flattenSum(e, 1)

	// Collect like terms, keeping first-appearance order.
	var order []string
	byKey := make(map[string]*term)
	for i := range terms {
		t := terms[i]
		t.sortFactors()
		k := t.key()
		if prev, ok := byKey[k]; ok {
			prev.coeff += t.coeff
			continue
		}
		byKey[k] = &t
		order = append(order, k)
	}

	var out Expression
	for _, k := range order {
		t := byKey[k]
		if t.coeff == 0 {
			continue
		}
		if t.coeff < 0 {
			neg := *t
			neg.coeff = -t.coeff
			if out == nil {
				out = &UnaryExpr{Op: OpSub, Operand: neg.build()}
			} else {
				out = Binary(OpSub, out, neg.build())
			}
			continue
		}
		out = Add(out, t.build())
	}
	if out == nil {
		return Int(0)
	}
	return out
}

func (t *term) build() Expression {
	if len(t.factors) == 0 {
		return Int(t.coeff)
	}
	var prod Expression
	if t.coeff != 1 {
		prod = Int(t.coeff)
	}
	for _, f := range t.factors {
		prod = Mul(prod, f)
	}
	return prod
}

// flattenSum decomposes e into terms, multiplying every coefficient by
// sign (+1 or -1).
func flattenSum(e Expression, sign int64) []term {
	switch n := e.(type) {
	case *IntLit:
		return []term{{coeff: sign * n.Value}}
	case *ParenExpr:
		return flattenSum(n.Expr, sign)
	case *UnaryExpr:
		if n.Op == OpSub {
			return flattenSum(n.Operand, -sign)
		}
		if n.Op == OpAdd {
			return flattenSum(n.Operand, sign)
		}
	case *BinaryExpr:
		switch n.Op {
		case OpAdd:
			return append(flattenSum(n.Left, sign), flattenSum(n.Right, sign)...)
		case OpSub:
			return append(flattenSum(n.Left, sign), flattenSum(n.Right, -sign)...)
		case OpMul:
			left := flattenSum(n.Left, sign)
			right := flattenSum(n.Right, 1)
			var out []term
			for _, lt := range left {
				for _, rt := range right {
					out = append(out, term{
						coeff:   lt.coeff * rt.coeff,
						factors: append(append([]Expression{}, lt.factors...), rt.factors...),
						keys:    append(append([]string{}, lt.keys...), rt.keys...),
					})
				}
			}
			return out
		}
	}
	// Opaque atom: identifiers, calls, divisions, powers, literals.
	return []term{atomTerm(e, sign)}
}

func atomTerm(e Expression, sign int64) term {
	return term{coeff: sign, factors: []Expression{e}, keys: []string{factorKey(e)}}
}

func factorKey(e Expression) string {
	return strings.ToUpper(string(e.AppendString(nil)))
}

// factorLess orders call-like factors (C_SIZEOF, MAX, ...) before bare
// identifiers, each group lexically, matching the conventional layout
// elemsize*dim1*dim2 of size expressions.
func factorLess(a Expression, ka string, b Expression, kb string) bool {
	ra, rb := factorRank(a), factorRank(b)
	if ra != rb {
		return ra < rb
	}
	return ka < kb
}

func factorRank(e Expression) int {
	if _, ok := e.(*Identifier); ok {
		return 1
	}
	return 0
}
