package pool

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fortlab/stackpool/ir"
	"github.com/fortlab/stackpool/sched"
	"github.com/fortlab/stackpool/symbol"
)

// transformKernel rewrites one kernel routine: the incoming stack
// window is added to the signature, relocated temporaries become
// address overlays carved from a local cursor, and calls into
// participating callees forward the remaining window. The resulting
// frame is published for the routine's callers.
func (t *Transformation) transformKernel(item *sched.Item, successors []*sched.Item) error {
	routine := item.Routine()
	if routine.HasParam(stackArgBase) {
		t.log.Debug("stack arguments already present",
			zap.String("routine", routine.Name))
		return nil
	}

	scope, err := symbol.Collect(routine)
	if err != nil {
		return &PassError{Phase: PhaseAnalyze, Kind: KindInternal, Routine: routine.Name, Err: err}
	}

	temps, derived := t.localTemporaries(scope)
	if derived != "" {
		t.log.Warn("derived-type locals are not supported, routine left untouched",
			zap.String("routine", routine.Name),
			zap.String("variable", derived))
		return nil
	}

	frames := t.calleeFrames(successors)
	if len(temps) == 0 && len(frames) == 0 {
		t.log.Debug("nothing to relocate and no participating callees",
			zap.String("routine", routine.Name))
		return nil
	}

	// The callee requirement is hoisted before threading so the actual
	// argument lists are still the original ones.
	calleeSize, err := t.calleeStackSize(routine, frames)
	if err != nil {
		return err
	}

	t.instrumentKernel(routine, temps)

	var limit, buffer ir.Expression
	if t.cfg.CheckBounds {
		limit = ir.Ident(stackLocalLimit)
	}
	if t.cfg.CrayPtrLoc {
		buffer = ir.Ident(stackBufferName)
	}
	err = t.threadCallList(routine.Name, routine.Body, frames,
		ir.Ident(stackLocalBase), limit, buffer)
	if err != nil {
		return err
	}

	own := ownSize(temps)
	total := ir.Simplify(ir.Add(ir.CloneExpr(own), calleeSize))
	if total == nil {
		total = ir.Int(0)
	}
	item.SetTrafoData(t.Key(), &RoutineFrame{
		OwnSize:     own,
		TotalSize:   total,
		Temporaries: temps,
	})
	return nil
}

// instrumentKernel performs the structural rewrite: signature, overlay
// declarations and the carve prelude.
func (t *Transformation) instrumentKernel(routine *ir.Subroutine, temps []PoolTemporary) {
	routine.Params = append(routine.Params,
		ir.Param{Name: stackArgBase, Type: int8Spec(), Intent: ir.IntentIn})
	if t.cfg.CheckBounds {
		routine.Params = append(routine.Params,
			ir.Param{Name: stackArgLimit, Type: int8Spec(), Intent: ir.IntentIn})
	}
	if t.cfg.CrayPtrLoc {
		routine.Params = append(routine.Params, ir.Param{
			Name:   stackBufferName,
			Type:   t.bufferSpec(),
			Intent: ir.IntentInOut,
			Shape:  []ir.Bound{{}},
		})
	}

	tempSet := make(map[string]bool, len(temps))
	for i := range temps {
		tempSet[strings.ToUpper(temps[i].Name)] = true
	}

	// Rebuild the specification part: relocated entities lose their
	// ordinary declaration and gain an address variable plus overlay in
	// the same spot, so declaration order is preserved.
	declEnd := specPartEnd(routine)
	var head []ir.Statement
	for _, stmt := range routine.Body[:declEnd] {
		td, ok := stmt.(*ir.TypeDecl)
		if !ok {
			head = append(head, stmt)
			continue
		}
		var kept, moved []ir.DeclEntity
		for _, e := range td.Entities {
			if tempSet[strings.ToUpper(e.Name)] {
				moved = append(moved, e)
			} else {
				kept = append(kept, e)
			}
		}
		if len(moved) == 0 {
			head = append(head, td)
			continue
		}
		if len(kept) > 0 {
			td.Entities = kept
			head = append(head, td)
		}
		for _, e := range moved {
			ptr := overlayPrefix + strings.ToUpper(e.Name)
			head = append(head,
				&ir.TypeDecl{Type: int8Spec(), Entities: []ir.DeclEntity{{Name: ptr}}},
				&ir.AddressOverlay{PtrName: ptr, Target: e.Name, Type: td.Type, Shape: e.Shape},
			)
		}
	}

	formals := []ir.DeclEntity{{Name: stackArgBase}}
	if t.cfg.CheckBounds {
		formals = append(formals, ir.DeclEntity{Name: stackArgLimit})
	}
	head = append(head, &ir.TypeDecl{
		Type:     int8Spec(),
		Intent:   ir.IntentIn,
		Entities: formals,
	})
	if t.cfg.CrayPtrLoc {
		head = append(head, &ir.TypeDecl{
			Type:     t.bufferSpec(),
			Intent:   ir.IntentInOut,
			Entities: []ir.DeclEntity{{Name: stackBufferName, Shape: []ir.Bound{{}}}},
		})
	}
	head = append(head,
		&ir.TypeDecl{Type: int8Spec(), Entities: []ir.DeclEntity{{Name: stackLocalBase}}})
	if t.cfg.CheckBounds {
		head = append(head,
			&ir.TypeDecl{Type: int8Spec(), Entities: []ir.DeclEntity{{Name: stackLocalLimit}}})
	}

	prelude := t.carvePrelude(routine.Name, temps)

	body := make([]ir.Statement, 0, len(head)+len(prelude)+len(routine.Body)-declEnd)
	body = append(body, head...)
	body = append(body, prelude...)
	body = append(body, routine.Body[declEnd:]...)
	routine.Body = body

	if !t.cfg.CrayPtrLoc && len(temps) > 0 {
		ensureUse(routine, "ISO_C_BINDING", true, "C_SIZEOF")
	}
}

// carvePrelude builds the executable prologue: copy the incoming
// window, then for each temporary fix its base address, advance the
// cursor and, when enabled, guard against overflow. The guard sits
// after the carve and before any use of the temporary.
func (t *Transformation) carvePrelude(routineName string, temps []PoolTemporary) []ir.Statement {
	out := []ir.Statement{
		&ir.Assignment{Lhs: ir.Ident(stackLocalBase), Rhs: ir.Ident(stackArgBase)},
	}
	if t.cfg.CheckBounds {
		out = append(out,
			&ir.Assignment{Lhs: ir.Ident(stackLocalLimit), Rhs: ir.Ident(stackArgLimit)})
	}
	for i := range temps {
		ptr := overlayPrefix + strings.ToUpper(temps[i].Name)
		var addr ir.Expression = ir.Ident(stackLocalBase)
		if t.cfg.CrayPtrLoc {
			addr = &ir.InlineCall{Name: "LOC", Args: []ir.Expression{
				&ir.ArrayRef{Name: stackBufferName, Subscripts: []ir.Expression{ir.Ident(stackLocalBase)}},
			}}
		}
		out = append(out,
			&ir.Assignment{Lhs: ir.Ident(ptr), Rhs: addr},
			&ir.Assignment{
				Lhs: ir.Ident(stackLocalBase),
				Rhs: ir.Add(ir.Ident(stackLocalBase), ir.CloneExpr(temps[i].Size)),
			},
		)
		if t.cfg.CheckBounds {
			out = append(out, &ir.IfStmt{
				Cond: ir.Binary(ir.OpGT, ir.Ident(stackLocalBase), ir.Ident(stackLocalLimit)),
				Then: []ir.Statement{
					&ir.StopStmt{Code: routineName + ": stack overflow carving " + temps[i].Name},
				},
			})
		}
	}
	return out
}
