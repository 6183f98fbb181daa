package ir

import (
	"reflect"
	"testing"
)

func TestPragmaClauses(t *testing.T) {
	p := &Pragma{Keyword: "omp", Content: "parallel default(shared) private(b, ylstack_l) firstprivate(a)"}
	got := p.Clauses()
	want := []Clause{
		{Name: "parallel"},
		{Name: "default", Args: []string{"shared"}},
		{Name: "private", Args: []string{"b", "ylstack_l"}},
		{Name: "firstprivate", Args: []string{"a"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPragmaClausesNestedParens(t *testing.T) {
	p := &Pragma{Keyword: "acc", Content: "parallel copyin(geom%blk_dim%nb, f(1, 2))"}
	got := p.Clauses()
	want := []Clause{
		{Name: "parallel"},
		{Name: "copyin", Args: []string{"geom%blk_dim%nb", "f(1, 2)"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPragmaAddClauseArgs(t *testing.T) {
	p := &Pragma{Keyword: "omp", Content: "parallel private(b)"}
	p.AddClauseArgs("private", "YLSTACK_L", "YLSTACK_U")
	if p.Content != "parallel private(b, YLSTACK_L, YLSTACK_U)" {
		t.Errorf("got %q", p.Content)
	}
	// Existing arguments are not repeated, case-insensitively.
	p.AddClauseArgs("private", "ylstack_l")
	if p.Content != "parallel private(b, YLSTACK_L, YLSTACK_U)" {
		t.Errorf("dedup failed: %q", p.Content)
	}
	// Absent clause is created.
	p2 := &Pragma{Keyword: "omp", Content: "parallel"}
	p2.AddClauseArgs("private", "X")
	if p2.Content != "parallel private(X)" {
		t.Errorf("got %q", p2.Content)
	}
}

func TestPragmaRemoveClauseArgs(t *testing.T) {
	p := &Pragma{Keyword: "omp", Content: "parallel firstprivate(a, ylstack_l) private(b)"}
	p.RemoveClauseArgs("firstprivate", "YLSTACK_L")
	if p.Content != "parallel firstprivate(a) private(b)" {
		t.Errorf("got %q", p.Content)
	}
	// Emptied clause disappears.
	p.RemoveClauseArgs("firstprivate", "a")
	if p.Content != "parallel private(b)" {
		t.Errorf("got %q", p.Content)
	}
	// Unrelated pragma content is never rewritten.
	p2 := &Pragma{Keyword: "omp", Content: "do  schedule(static)"}
	p2.RemoveClauseArgs("firstprivate", "x")
	if p2.Content != "do  schedule(static)" {
		t.Errorf("untouched pragma rewritten: %q", p2.Content)
	}
}

func TestPragmaStartsWith(t *testing.T) {
	p := &Pragma{Keyword: "loki", Content: "stack-insert"}
	if !p.StartsWith("stack-insert") {
		t.Error("StartsWith failed on exact match")
	}
	if !(&Pragma{Keyword: "omp", Content: "parallel do"}).StartsWith("parallel") {
		t.Error("StartsWith failed on prefix")
	}
	if (&Pragma{Keyword: "omp", Content: "do"}).StartsWith("parallel") {
		t.Error("StartsWith matched wrong word")
	}
}

func TestPragmaRendering(t *testing.T) {
	p := &Pragma{Keyword: "acc", Content: "data create(ZSTACK)"}
	if got := string(p.AppendString(nil)); got != "!$acc data create(ZSTACK)" {
		t.Errorf("got %q", got)
	}
}
