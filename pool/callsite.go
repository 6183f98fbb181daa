package pool

import (
	"strings"

	"github.com/fortlab/stackpool/ir"
)

// threadCallList appends the stack window to every call into a
// participating callee found under stmts, including calls nested in
// loops and branches and value-producing calls inside expressions.
// Calls to routines without a published frame stay untouched.
func (t *Transformation) threadCallList(caller string, stmts []ir.Statement, frames map[string]*calleeInfo, base, limit, buffer ir.Expression) error {
	var firstErr error
	for _, stmt := range stmts {
		ir.Inspect(stmt, func(n ir.Node) bool {
			if firstErr != nil {
				return false
			}
			switch c := n.(type) {
			case *ir.CallStmt:
				if info := frames[strings.ToUpper(c.Name)]; info != nil {
					firstErr = t.appendStackArgs(caller, string(c.AppendString(nil)),
						&c.Args, &c.KwArgs, info, base, limit, buffer)
				}
			case *ir.InlineCall:
				if info := frames[strings.ToUpper(c.Name)]; info != nil {
					firstErr = t.appendStackArgs(caller, ir.ExprString(c),
						&c.Args, &c.KwArgs, info, base, limit, buffer)
				}
			}
			return true
		})
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

// appendStackArgs extends one call site with the stack window. The
// appended arguments use keyword form whenever the original call used
// any keyword or the callee declares optional dummy arguments; a
// purely positional call to a fixed signature stays positional. A nil
// limit or buffer is not appended at all.
func (t *Transformation) appendStackArgs(caller, rendered string, args *[]ir.Expression, kwargs *[]ir.KeywordArg, callee *calleeInfo, base, limit, buffer ir.Expression) error {
	params := callee.item.Routine().Params

	for _, kw := range *kwargs {
		if strings.EqualFold(kw.Name, stackArgBase) {
			return nil
		}
	}
	supplied := len(*args) + len(*kwargs)
	if supplied > len(params) {
		return signatureMismatch(caller, rendered,
			"more arguments than "+callee.item.Name()+" declares")
	}
	if supplied == len(params) {
		// A saturated argument list already carries the stack window.
		return nil
	}
	for _, kw := range *kwargs {
		if findParam(params, kw.Name) < 0 {
			return signatureMismatch(caller, rendered,
				"keyword argument "+kw.Name+" matches no dummy argument of "+callee.item.Name())
		}
	}

	if len(*kwargs) > 0 || hasOptionalParams(params) {
		*kwargs = append(*kwargs,
			ir.KeywordArg{Name: stackArgBase, Value: ir.CloneExpr(base)})
		if limit != nil {
			*kwargs = append(*kwargs, ir.KeywordArg{Name: stackArgLimit, Value: ir.CloneExpr(limit)})
		}
		if buffer != nil {
			*kwargs = append(*kwargs, ir.KeywordArg{Name: stackBufferName, Value: ir.CloneExpr(buffer)})
		}
		return nil
	}
	*args = append(*args, ir.CloneExpr(base))
	if limit != nil {
		*args = append(*args, ir.CloneExpr(limit))
	}
	if buffer != nil {
		*args = append(*args, ir.CloneExpr(buffer))
	}
	return nil
}

func findParam(params []ir.Param, name string) int {
	for i := range params {
		if strings.EqualFold(params[i].Name, name) {
			return i
		}
	}
	return -1
}

// hasOptionalParams reports whether any dummy argument is OPTIONAL.
// Appending positionally past an absent optional would bind the stack
// window to the wrong dummy, so such callees always get keywords.
func hasOptionalParams(params []ir.Param) bool {
	for i := range params {
		if params[i].Optional {
			return true
		}
	}
	return false
}
