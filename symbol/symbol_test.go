package symbol

import (
	"testing"

	"github.com/fortlab/stackpool/ir"
)

func TestFlags(t *testing.T) {
	var f Flags
	f = f.With(FlagArgument, true).With(FlagOptional, true)
	if !f.HasAll(FlagArgument | FlagOptional) {
		t.Error("HasAll failed")
	}
	if f.HasAny(FlagParameter | FlagPointer) {
		t.Error("HasAny matched unset bits")
	}
	f = f.With(FlagOptional, false)
	if f.HasAny(FlagOptional) {
		t.Error("With(false) did not clear")
	}
}

func routineFixture() *ir.Subroutine {
	intSpec := ir.TypeSpec{Base: ir.TypeInteger, Kind: ir.Ident("JPIM")}
	realSpec := ir.TypeSpec{Base: ir.TypeReal, Kind: ir.Ident("JPRB")}
	return &ir.Subroutine{
		Name: "KERNEL",
		Params: []ir.Param{
			{Name: "KLON", Type: intSpec, Intent: ir.IntentIn},
			{Name: "FIELD", Type: realSpec, Intent: ir.IntentInOut, Shape: []ir.Bound{{Upper: ir.Ident("KLON")}}},
		},
		Body: []ir.Statement{
			&ir.UseStmt{Module: "PARKIND1", Only: []string{"JPIM", "JPRB"}},
			&ir.TypeDecl{Type: intSpec, Intent: ir.IntentIn, Entities: []ir.DeclEntity{{Name: "KLON"}}},
			&ir.TypeDecl{Type: realSpec, Intent: ir.IntentInOut, Entities: []ir.DeclEntity{{Name: "FIELD", Shape: []ir.Bound{{Upper: ir.Ident("KLON")}}}}},
			&ir.TypeDecl{Type: intSpec, Attrs: []ir.Attr{ir.AttrParameter}, Entities: []ir.DeclEntity{{Name: "NCLV", Init: ir.Int(5)}}},
			&ir.TypeDecl{Type: realSpec, Entities: []ir.DeclEntity{{Name: "TMP", Shape: []ir.Bound{{Upper: ir.Ident("KLON")}}}}},
			&ir.TypeDecl{Type: realSpec, Attrs: []ir.Attr{ir.AttrAllocatable}, Entities: []ir.DeclEntity{{Name: "BUF", Shape: []ir.Bound{{}}}}},
			&ir.Assignment{Lhs: ir.Ident("TMP"), Rhs: ir.Int(0)},
			// Past the specification part, must be ignored.
			&ir.TypeDecl{Type: realSpec, Entities: []ir.DeclEntity{{Name: "GHOST"}}},
		},
	}
}

func TestCollect(t *testing.T) {
	sc, err := Collect(routineFixture())
	if err != nil {
		t.Fatal(err)
	}

	klon := sc.Lookup("klon")
	if klon == nil || !klon.IsArgument() {
		t.Fatal("KLON not collected as argument")
	}
	if klon.Intent() != ir.IntentIn {
		t.Errorf("KLON intent = %v", klon.Intent())
	}

	field := sc.Lookup("FIELD")
	if field == nil || !field.IsArgument() || !field.IsArray() {
		t.Fatal("FIELD not refined as array argument")
	}

	nclv := sc.Lookup("NCLV")
	if nclv == nil || !nclv.Flags().HasAny(FlagParameter) {
		t.Error("NCLV missing parameter flag")
	}

	tmp := sc.Lookup("TMP")
	if tmp == nil || tmp.IsArgument() || !tmp.IsArray() {
		t.Error("TMP not collected as local array")
	}

	buf := sc.Lookup("BUF")
	if buf == nil || !buf.Flags().HasAny(FlagAllocatable) {
		t.Error("BUF missing allocatable flag")
	}

	if sc.Lookup("GHOST") != nil {
		t.Error("declaration after executable part collected")
	}
}

func TestCollectOrder(t *testing.T) {
	sc, err := Collect(routineFixture())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, sym := range sc.InOrder() {
		names = append(names, sym.Name())
	}
	want := []string{"KLON", "FIELD", "NCLV", "TMP", "BUF"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestCollectDuplicateLocal(t *testing.T) {
	r := &ir.Subroutine{
		Name: "K",
		Body: []ir.Statement{
			&ir.TypeDecl{Type: ir.TypeSpec{Base: ir.TypeReal}, Entities: []ir.DeclEntity{{Name: "X"}}},
			&ir.TypeDecl{Type: ir.TypeSpec{Base: ir.TypeReal}, Entities: []ir.DeclEntity{{Name: "X"}}},
		},
	}
	if _, err := Collect(r); err == nil {
		t.Error("duplicate local accepted")
	}
}

func TestIsDerived(t *testing.T) {
	r := &ir.Subroutine{
		Name: "K",
		Body: []ir.Statement{
			&ir.TypeDecl{
				Type:     ir.TypeSpec{Base: ir.TypeDerived, TypeName: "POINT"},
				Entities: []ir.DeclEntity{{Name: "P", Shape: []ir.Bound{{Upper: ir.Ident("N")}}}},
			},
		},
	}
	sc, err := Collect(r)
	if err != nil {
		t.Fatal(err)
	}
	if !sc.Lookup("P").IsDerived() {
		t.Error("derived type not detected")
	}
}
