package pool

import (
	"strings"

	"github.com/fortlab/stackpool/ir"
)

// syncLoopDirectives keeps the parallel pragmas enclosing instrumented
// block loops consistent with the window variables the pass introduced:
// the cursor pair becomes private to each thread, and any stale
// firstprivate capture of it is dropped. Pragmas of other dialects and
// unrelated clauses are never touched.
func (t *Transformation) syncLoopDirectives(routine *ir.Subroutine, loops []*ir.DoLoop) {
	sentinel := t.cfg.Directive.Sentinel()
	if sentinel == "" || len(loops) == 0 {
		return
	}
	instrumented := make(map[*ir.DoLoop]bool, len(loops))
	for _, l := range loops {
		instrumented[l] = true
	}
	cursors := []string{stackLocalBase}
	if t.cfg.CheckBounds {
		cursors = append(cursors, stackLocalLimit)
	}

	var walk func(stmts []ir.Statement)
	walk = func(stmts []ir.Statement) {
		for i, stmt := range stmts {
			switch n := stmt.(type) {
			case *ir.DoLoop:
				if instrumented[n] {
					fixEnclosingPragmas(stmts, i, sentinel, cursors)
				}
				walk(n.Body)
			case *ir.IfStmt:
				walk(n.Then)
				walk(n.Else)
			}
		}
	}
	walk(routine.Body)
}

// fixEnclosingPragmas adjusts the contiguous run of pragmas directly
// above the loop at index i. Both the combined form (parallel do) and
// the split form (parallel on one line, do on the next) are handled by
// scanning the whole run.
func fixEnclosingPragmas(stmts []ir.Statement, i int, sentinel string, cursors []string) {
	for j := i - 1; j >= 0; j-- {
		p, ok := stmts[j].(*ir.Pragma)
		if !ok {
			return
		}
		if !strings.EqualFold(p.Keyword, sentinel) || !p.StartsWith("parallel") {
			continue
		}
		p.AddClauseArgs("private", cursors...)
		p.RemoveClauseArgs("firstprivate", cursors...)
	}
}
