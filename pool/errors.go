package pool

import (
	"fmt"
	"strings"
)

// Phase indicates where in the pass an error occurred.
type Phase string

const (
	PhaseAnalyze   Phase = "analyze"   // size modeling, symbol collection
	PhaseRewrite   Phase = "rewrite"   // frame building, call threading
	PhaseProvision Phase = "provision" // root buffer provisioning
	PhaseDirective Phase = "directive" // pragma synchronization
)

// Kind categorizes the error.
type Kind string

const (
	KindUnsupported       Kind = "unsupported"
	KindMissingFrame      Kind = "missing_frame"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindInternal          Kind = "internal"
)

// PassError is a structured transformation error carrying enough context
// (routine, call site) to be actionable. Routines already rewritten when
// the error occurs are not rolled back; the scheduler aborts the run.
type PassError struct {
	Phase    Phase
	Kind     Kind
	Routine  string
	CallSite string // rendered call, empty when not call-related
	Detail   string
	Err      error
}

func (e *PassError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pool[%s/%s]", e.Phase, e.Kind)
	if e.Routine != "" {
		fmt.Fprintf(&sb, " routine %s", e.Routine)
	}
	if e.CallSite != "" {
		fmt.Fprintf(&sb, " at %q", e.CallSite)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *PassError) Unwrap() error { return e.Err }

// Is matches on phase and kind so callers can test error categories with
// errors.Is against a prototype error.
func (e *PassError) Is(target error) bool {
	t, ok := target.(*PassError)
	if !ok {
		return false
	}
	return (t.Phase == "" || t.Phase == e.Phase) && (t.Kind == "" || t.Kind == e.Kind)
}

func signatureMismatch(routine, callSite, detail string) *PassError {
	return &PassError{
		Phase:    PhaseRewrite,
		Kind:     KindSignatureMismatch,
		Routine:  routine,
		CallSite: callSite,
		Detail:   detail,
	}
}
