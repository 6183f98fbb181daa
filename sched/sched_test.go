package sched

import (
	"strings"
	"testing"

	"github.com/fortlab/stackpool/ir"
)

type recorder struct {
	order []string
	fail  string
}

func (r *recorder) Key() string { return "recorder" }

func (r *recorder) TransformSubroutine(item *Item, role Role, successors []*Item) error {
	if item.Name() == r.fail {
		return &visitError{item.Name()}
	}
	r.order = append(r.order, item.Name())
	item.SetTrafoData(r.Key(), len(r.order))
	return nil
}

type visitError struct{ name string }

func (e *visitError) Error() string { return e.name + " failed" }

func routine(name string) *ir.Subroutine { return &ir.Subroutine{Name: name} }

func TestProcessVisitsCalleesFirst(t *testing.T) {
	g := NewGraph(nil)
	g.Add(routine("DRIVER"), RoleDriver)
	g.Add(routine("K1"), RoleKernel)
	g.Add(routine("K2"), RoleKernel)
	if err := g.AddCall("DRIVER", "K1"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddCall("K1", "K2"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	if err := g.Process(rec); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(rec.order, ","); got != "K2,K1,DRIVER" {
		t.Errorf("visit order %s, want K2,K1,DRIVER", got)
	}

	// Side-table entries are readable after the run.
	if g.Item("k2").TrafoData("recorder") != 1 {
		t.Error("K2 side-table entry missing or wrong")
	}
}

func TestProcessVisitsEachRoutineOnce(t *testing.T) {
	g := NewGraph(nil)
	g.Add(routine("A"), RoleDriver)
	g.Add(routine("B"), RoleDriver)
	g.Add(routine("SHARED"), RoleKernel)
	if err := g.AddCall("A", "SHARED"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddCall("B", "SHARED"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	if err := g.Process(rec); err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, n := range rec.order {
		if n == "SHARED" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("SHARED visited %d times", count)
	}
}

func TestProcessDetectsCycle(t *testing.T) {
	g := NewGraph(nil)
	g.Add(routine("A"), RoleKernel)
	g.Add(routine("B"), RoleKernel)
	if err := g.AddCall("A", "B"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddCall("B", "A"); err != nil {
		t.Fatal(err)
	}
	err := g.Process(&recorder{})
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("expected cycle error, got %v", err)
	}
}

func TestProcessAbortsOnError(t *testing.T) {
	g := NewGraph(nil)
	g.Add(routine("DRIVER"), RoleDriver)
	g.Add(routine("K1"), RoleKernel)
	if err := g.AddCall("DRIVER", "K1"); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{fail: "K1"}
	err := g.Process(rec)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "K1") {
		t.Errorf("error lacks routine name: %v", err)
	}
	if len(rec.order) != 0 {
		t.Errorf("caller transformed after callee failed: %v", rec.order)
	}
}

func TestAddCallUnregistered(t *testing.T) {
	g := NewGraph(nil)
	g.Add(routine("A"), RoleKernel)
	if err := g.AddCall("A", "MISSING"); err == nil {
		t.Error("unregistered callee accepted")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	g := NewGraph(nil)
	r := routine("A")
	first := g.Add(r, RoleKernel)
	second := g.Add(r, RoleKernel)
	if first != second {
		t.Error("re-adding a routine created a second item")
	}
}

func TestSetTrafoDataRepublishPanics(t *testing.T) {
	g := NewGraph(nil)
	it := g.Add(routine("A"), RoleKernel)
	it.SetTrafoData("k", 1)
	defer func() {
		if recover() == nil {
			t.Error("republish did not panic")
		}
	}()
	it.SetTrafoData("k", 2)
}
