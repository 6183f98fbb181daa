package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortlab/stackpool/ir"
	"github.com/fortlab/stackpool/sched"
)

// smallKernel is a minimal participating kernel with one temporary.
func smallKernel(name string, extraParams ...ir.Param) *ir.Subroutine {
	params := append([]ir.Param{inParam("KLON", intSpec())}, extraParams...)
	return &ir.Subroutine{
		Name:   name,
		Params: params,
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.TypeDecl{Type: realSpec(), Entities: []ir.DeclEntity{{Name: "TMP", Shape: shape("KLON")}}},
			&ir.Assignment{
				Lhs: &ir.ArrayRef{Name: "TMP", Subscripts: []ir.Expression{ir.Int(1)}},
				Rhs: &ir.RealLit{Raw: "0.0_JPRB"},
			},
		},
	}
}

func TestPositionalCallStaysPositional(t *testing.T) {
	callee := smallKernel("INNER")
	caller := &ir.Subroutine{
		Name:   "OUTER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.CallStmt{Name: "INNER", Args: []ir.Expression{ir.Ident("KLON")}},
		},
	}
	processTree(t, defaultConfig(), nil, caller, callee)

	assert.Contains(t, caller.Render(), "CALL INNER(KLON, YLSTACK_L, YLSTACK_U)")
}

func TestKeywordCallGetsKeywords(t *testing.T) {
	callee := smallKernel("INNER")
	caller := &ir.Subroutine{
		Name:   "OUTER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.CallStmt{Name: "INNER", KwArgs: []ir.KeywordArg{{Name: "KLON", Value: ir.Ident("KLON")}}},
		},
	}
	processTree(t, defaultConfig(), nil, caller, callee)

	assert.Contains(t, caller.Render(),
		"CALL INNER(KLON=KLON, YDSTACK_L=YLSTACK_L, YDSTACK_U=YLSTACK_U)")
}

func TestOptionalParamsForceKeywords(t *testing.T) {
	callee := smallKernel("INNER", ir.Param{
		Name: "LDEBUG", Type: ir.TypeSpec{Base: ir.TypeLogical}, Intent: ir.IntentIn, Optional: true,
	})
	caller := &ir.Subroutine{
		Name:   "OUTER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			// Positional call, but the callee has an OPTIONAL dummy:
			// appending positionally would bind the window to LDEBUG.
			&ir.CallStmt{Name: "INNER", Args: []ir.Expression{ir.Ident("KLON")}},
		},
	}
	processTree(t, defaultConfig(), nil, caller, callee)

	assert.Contains(t, caller.Render(),
		"CALL INNER(KLON, YDSTACK_L=YLSTACK_L, YDSTACK_U=YLSTACK_U)")
}

func TestInlineCallThreaded(t *testing.T) {
	callee := smallKernel("EVAL")
	caller := &ir.Subroutine{
		Name:   "OUTER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.TypeDecl{Type: realSpec(), Entities: []ir.DeclEntity{{Name: "X"}}},
			&ir.Assignment{
				Lhs: ir.Ident("X"),
				Rhs: &ir.InlineCall{Name: "EVAL", Args: []ir.Expression{ir.Ident("KLON")}},
			},
		},
	}
	processTree(t, defaultConfig(), nil, caller, callee)

	assert.Contains(t, caller.Render(), "X = EVAL(KLON, YLSTACK_L, YLSTACK_U)")
}

func TestCallInNestedControlFlowThreaded(t *testing.T) {
	callee := smallKernel("INNER")
	caller := &ir.Subroutine{
		Name:   "OUTER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.IfStmt{
				Cond: ir.Binary(ir.OpGT, ir.Ident("KLON"), ir.Int(0)),
				Then: []ir.Statement{
					&ir.DoLoop{Var: "J", Start: ir.Int(1), Stop: ir.Int(2), Body: []ir.Statement{
						&ir.CallStmt{Name: "INNER", Args: []ir.Expression{ir.Ident("KLON")}},
					}},
				},
			},
		},
	}
	processTree(t, defaultConfig(), nil, caller, callee)

	assert.Contains(t, caller.Render(), "CALL INNER(KLON, YLSTACK_L, YLSTACK_U)")
}

func TestNonParticipatingCalleeLeftAlone(t *testing.T) {
	// INNER has neither temporaries nor participating callees, so it
	// publishes no frame and its call sites stay untouched.
	callee := &ir.Subroutine{
		Name:   "INNER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
		},
	}
	caller := smallKernel("OUTER")
	caller.Body = append(caller.Body, &ir.CallStmt{Name: "INNER", Args: []ir.Expression{ir.Ident("KLON")}})
	processTree(t, defaultConfig(), nil, caller, callee)

	assert.False(t, callee.HasParam("YDSTACK_L"))
	assert.Contains(t, caller.Render(), "CALL INNER(KLON)\n")
}

func TestSignatureMismatchAborts(t *testing.T) {
	callee := smallKernel("INNER")
	caller := &ir.Subroutine{
		Name:   "OUTER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.CallStmt{Name: "INNER", Args: []ir.Expression{
				ir.Ident("KLON"), ir.Int(1), ir.Int(2), ir.Int(3), ir.Int(4), ir.Int(5),
			}},
		},
	}

	g := sched.NewGraph(nil)
	g.Add(caller, sched.RoleKernel)
	g.Add(callee, sched.RoleKernel)
	require.NoError(t, g.AddCall("OUTER", "INNER"))

	err := g.Process(New(defaultConfig()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, &PassError{Kind: KindSignatureMismatch}))
	assert.Contains(t, err.Error(), "OUTER")
}

func TestUnknownKeywordAborts(t *testing.T) {
	callee := smallKernel("INNER")
	caller := &ir.Subroutine{
		Name:   "OUTER",
		Params: []ir.Param{inParam("KLON", intSpec())},
		Body: []ir.Statement{
			&ir.TypeDecl{Type: intSpec(), Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.CallStmt{Name: "INNER", KwArgs: []ir.KeywordArg{{Name: "KBOGUS", Value: ir.Int(1)}}},
		},
	}

	g := sched.NewGraph(nil)
	g.Add(caller, sched.RoleKernel)
	g.Add(callee, sched.RoleKernel)
	require.NoError(t, g.AddCall("OUTER", "INNER"))

	err := g.Process(New(defaultConfig()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, &PassError{Kind: KindSignatureMismatch}))
	assert.Contains(t, err.Error(), "KBOGUS")
}
