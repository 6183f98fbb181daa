package ir

import (
	"strings"
	"testing"
)

func TestTypeDeclRendering(t *testing.T) {
	tests := []struct {
		name string
		decl *TypeDecl
		want string
	}{
		{
			"plain scalar",
			&TypeDecl{Type: TypeSpec{Base: TypeInteger}, Entities: []DeclEntity{{Name: "N"}}},
			"INTEGER :: N",
		},
		{
			"kind and intent",
			&TypeDecl{
				Type:     TypeSpec{Base: TypeReal, Kind: Ident("JPRB")},
				Intent:   IntentInOut,
				Entities: []DeclEntity{{Name: "FIELD", Shape: []Bound{{Upper: Ident("KLON")}}}},
			},
			"REAL(KIND=JPRB), INTENT(INOUT) :: FIELD(KLON)",
		},
		{
			"parameter with init",
			&TypeDecl{
				Type:     TypeSpec{Base: TypeInteger},
				Attrs:    []Attr{AttrParameter},
				Entities: []DeclEntity{{Name: "NCLV", Init: Int(5)}},
			},
			"INTEGER, PARAMETER :: NCLV = 5",
		},
		{
			"allocatable deferred shape",
			&TypeDecl{
				Type:     TypeSpec{Base: TypeReal, Kind: Ident("JPRB")},
				Attrs:    []Attr{AttrAllocatable},
				Entities: []DeclEntity{{Name: "ZSTACK", Shape: []Bound{{}, {}}}},
			},
			"REAL(KIND=JPRB), ALLOCATABLE :: ZSTACK(:, :)",
		},
		{
			"derived type",
			&TypeDecl{
				Type:     TypeSpec{Base: TypeDerived, TypeName: "POINT"},
				Entities: []DeclEntity{{Name: "P", Shape: []Bound{{Upper: Ident("KLON")}}}},
			},
			"TYPE(POINT) :: P(KLON)",
		},
		{
			"explicit lower bound",
			&TypeDecl{
				Type:     TypeSpec{Base: TypeReal},
				Entities: []DeclEntity{{Name: "T", Shape: []Bound{{Lower: Int(0), Upper: Ident("N")}}}},
			},
			"REAL :: T(0:N)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.decl.AppendString(nil)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddressOverlayRendering(t *testing.T) {
	ao := &AddressOverlay{
		PtrName: "IP_TMP1",
		Target:  "TMP1",
		Type:    TypeSpec{Base: TypeReal, Kind: Ident("JPRB")},
		Shape:   []Bound{{Upper: Ident("KLON")}},
	}
	want := "REAL(KIND=JPRB) :: TMP1(KLON)\nPOINTER(IP_TMP1, TMP1)"
	if got := string(ao.AppendString(nil)); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUseStmtRendering(t *testing.T) {
	us := &UseStmt{Module: "ISO_C_BINDING", Intrinsic: true, Only: []string{"C_SIZEOF"}}
	if got := string(us.AppendString(nil)); got != "USE, INTRINSIC :: ISO_C_BINDING, ONLY: C_SIZEOF" {
		t.Errorf("got %q", got)
	}
	plain := &UseStmt{Module: "PARKIND1", Only: []string{"JPIM", "JPRB"}}
	if got := string(plain.AppendString(nil)); got != "USE PARKIND1, ONLY: JPIM, JPRB" {
		t.Errorf("got %q", got)
	}
}

func TestSubroutineRender(t *testing.T) {
	s := &Subroutine{
		Name: "SWEEP",
		Params: []Param{
			{Name: "N", Type: TypeSpec{Base: TypeInteger}, Intent: IntentIn},
			{Name: "X", Type: TypeSpec{Base: TypeReal}, Intent: IntentInOut, Shape: []Bound{{Upper: Ident("N")}}},
		},
		Body: []Statement{
			&TypeDecl{Type: TypeSpec{Base: TypeInteger}, Intent: IntentIn, Entities: []DeclEntity{{Name: "N"}}},
			&TypeDecl{Type: TypeSpec{Base: TypeReal}, Intent: IntentInOut, Entities: []DeclEntity{{Name: "X", Shape: []Bound{{Upper: Ident("N")}}}}},
			&DoLoop{Var: "J", Start: Int(1), Stop: Ident("N"), Body: []Statement{
				&IfStmt{
					Cond: Binary(OpGT, &ArrayRef{Name: "X", Subscripts: []Expression{Ident("J")}}, Int(0)),
					Then: []Statement{
						&Assignment{Lhs: &ArrayRef{Name: "X", Subscripts: []Expression{Ident("J")}}, Rhs: Int(0)},
					},
				},
			}},
		},
	}
	want := strings.Join([]string{
		"SUBROUTINE SWEEP(N, X)",
		"  INTEGER, INTENT(IN) :: N",
		"  REAL, INTENT(INOUT) :: X(N)",
		"  DO J=1,N",
		"    IF (X(J) > 0) THEN",
		"      X(J) = 0",
		"    END IF",
		"  END DO",
		"END SUBROUTINE SWEEP",
		"",
	}, "\n")
	if got := s.Render(); got != want {
		t.Errorf("Render mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestDeclEnd(t *testing.T) {
	s := &Subroutine{
		Name: "K",
		Body: []Statement{
			&UseStmt{Module: "PARKIND1", Only: []string{"JPRB"}},
			&TypeDecl{Type: TypeSpec{Base: TypeInteger}, Entities: []DeclEntity{{Name: "N"}}},
			&Comment{Text: "locals"},
			&TypeDecl{Type: TypeSpec{Base: TypeReal}, Entities: []DeclEntity{{Name: "T"}}},
			&Assignment{Lhs: Ident("T"), Rhs: Int(0)},
			&TypeDecl{Type: TypeSpec{Base: TypeReal}, Entities: []DeclEntity{{Name: "LATE"}}},
		},
	}
	if got := s.DeclEnd(); got != 4 {
		t.Errorf("DeclEnd = %d, want 4", got)
	}
}

func TestFindParam(t *testing.T) {
	s := &Subroutine{Name: "K", Params: []Param{{Name: "KLon"}}}
	if !s.HasParam("KLON") {
		t.Error("case-insensitive lookup failed")
	}
	if s.FindParam("missing") != nil {
		t.Error("found nonexistent param")
	}
}
