package ir

import "testing"

// TestRoutineJSONRoundTrip feeds a representative routine through the
// exchange format and checks the rendered Fortran is unchanged.
func TestRoutineJSONRoundTrip(t *testing.T) {
	s := &Subroutine{
		Name: "KERNEL",
		Params: []Param{
			{Name: "KLON", Type: TypeSpec{Base: TypeInteger, Kind: Ident("JPIM")}, Intent: IntentIn},
			{Name: "FIELD", Type: TypeSpec{Base: TypeReal, Kind: Ident("JPRB")}, Intent: IntentInOut, Shape: []Bound{{Upper: Ident("KLON")}}},
			{Name: "LDEBUG", Type: TypeSpec{Base: TypeLogical}, Intent: IntentIn, Optional: true},
		},
		Body: []Statement{
			&UseStmt{Module: "PARKIND1", Only: []string{"JPIM", "JPRB"}},
			&Pragma{Keyword: "acc", Content: "routine seq"},
			&TypeDecl{Type: TypeSpec{Base: TypeInteger, Kind: Ident("JPIM")}, Intent: IntentIn, Entities: []DeclEntity{{Name: "KLON"}}},
			&TypeDecl{Type: TypeSpec{Base: TypeInteger}, Attrs: []Attr{AttrParameter}, Entities: []DeclEntity{{Name: "NCLV", Init: Int(5)}}},
			&TypeDecl{Type: TypeSpec{Base: TypeReal, Kind: Ident("JPRB")}, Entities: []DeclEntity{{Name: "TMP", Shape: []Bound{{Upper: Ident("KLON")}, {Lower: Int(0), Upper: Ident("NCLV")}}}}},
			&Comment{Text: "initialize"},
			&DoLoop{Var: "JL", Start: Int(1), Stop: Ident("KLON"), Body: []Statement{
				&Assignment{
					Lhs: &ArrayRef{Name: "TMP", Subscripts: []Expression{Ident("JL"), Int(0)}},
					Rhs: &RealLit{Raw: "0.0_JPRB"},
				},
				&IfStmt{
					Cond: Binary(OpGE, &ArrayRef{Name: "FIELD", Subscripts: []Expression{Ident("JL")}}, &RealLit{Raw: "0.5_JPRB"}),
					Then: []Statement{
						&CallStmt{Name: "UPDATE", Args: []Expression{Ident("JL")}, KwArgs: []KeywordArg{{Name: "LDBG", Value: &LogicalLit{Value: false}}}},
					},
					Else: []Statement{
						&Assignment{Lhs: Ident("X"), Rhs: &UnaryExpr{Op: OpSub, Operand: &ParenExpr{Expr: Binary(OpAdd, Ident("X"), Int(1))}}},
					},
				},
			}},
			&AllocateStmt{Objects: []Expression{&ArrayRef{Name: "SCRATCH", Subscripts: []Expression{Ident("KLON")}}}},
			&DeallocateStmt{Objects: []Expression{Ident("SCRATCH")}},
			&StopStmt{Code: "done"},
		},
	}

	data, err := MarshalRoutine(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := UnmarshalRoutine(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got, want := back.Render(), s.Render(); got != want {
		t.Errorf("round trip changed rendering:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if !back.FindParam("LDEBUG").Optional {
		t.Error("optional flag lost")
	}
}

func TestUnmarshalRejectsUnknownKinds(t *testing.T) {
	if _, err := UnmarshalRoutine([]byte(`{"name":"K","body":[{"kind":"gosub"}]}`)); err == nil {
		t.Error("unknown statement kind accepted")
	}
	if _, err := UnmarshalRoutine([]byte(`{"name":"K","body":[{"kind":"assign","lhs":{"kind":"wat"},"rhs":{"kind":"int","int":1}}]}`)); err == nil {
		t.Error("unknown expression kind accepted")
	}
}
