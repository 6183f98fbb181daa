package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSON exchange format for routines, used by frontends to hand trees to
// the transformation tool. Every node is a tagged object whose "kind"
// field selects the variant; fields irrelevant to a kind are omitted.

type exprJSON struct {
	Kind   string      `json:"kind"`
	Name   string      `json:"name,omitempty"`
	Int    int64       `json:"int,omitempty"`
	Raw    string      `json:"raw,omitempty"`
	Bool   bool        `json:"bool,omitempty"`
	Op     string      `json:"op,omitempty"`
	Left   *exprJSON   `json:"left,omitempty"`
	Right  *exprJSON   `json:"right,omitempty"`
	Expr   *exprJSON   `json:"expr,omitempty"`
	Args   []*exprJSON `json:"args,omitempty"`
	KwArgs []kwJSON    `json:"kwargs,omitempty"`
	Subs   []*exprJSON `json:"subscripts,omitempty"`
	Start  *exprJSON   `json:"start,omitempty"`
	Stop   *exprJSON   `json:"stop,omitempty"`
	Stride *exprJSON   `json:"stride,omitempty"`
}

type kwJSON struct {
	Name  string    `json:"name"`
	Value *exprJSON `json:"value"`
}

type typeJSON struct {
	Base string    `json:"base"`
	Kind *exprJSON `json:"kind,omitempty"`
	Name string    `json:"name,omitempty"`
}

type boundJSON struct {
	Lower *exprJSON `json:"lower,omitempty"`
	Upper *exprJSON `json:"upper,omitempty"`
}

type entityJSON struct {
	Name  string      `json:"name"`
	Shape []boundJSON `json:"shape,omitempty"`
	Init  *exprJSON   `json:"init,omitempty"`
}

type stmtJSON struct {
	Kind      string      `json:"kind"`
	Module    string      `json:"module,omitempty"`
	Intrinsic bool        `json:"intrinsic,omitempty"`
	Only      []string    `json:"only,omitempty"`
	Type      *typeJSON   `json:"type,omitempty"`
	Intent    string      `json:"intent,omitempty"`
	Attrs     []string    `json:"attrs,omitempty"`
	Entities  []entityJSON `json:"entities,omitempty"`
	Ptr       string      `json:"ptr,omitempty"`
	Target    string      `json:"target,omitempty"`
	Shape     []boundJSON `json:"shape,omitempty"`
	Lhs       *exprJSON   `json:"lhs,omitempty"`
	Rhs       *exprJSON   `json:"rhs,omitempty"`
	Name      string      `json:"name,omitempty"`
	Args      []*exprJSON `json:"args,omitempty"`
	KwArgs    []kwJSON    `json:"kwargs,omitempty"`
	Var       string      `json:"var,omitempty"`
	Start     *exprJSON   `json:"start,omitempty"`
	Stop      *exprJSON   `json:"stop,omitempty"`
	Step      *exprJSON   `json:"step,omitempty"`
	Body      []stmtJSON  `json:"body,omitempty"`
	Cond      *exprJSON   `json:"cond,omitempty"`
	Then      []stmtJSON  `json:"then,omitempty"`
	Else      []stmtJSON  `json:"else,omitempty"`
	Code      string      `json:"code,omitempty"`
	Objects   []*exprJSON `json:"objects,omitempty"`
	Keyword   string      `json:"keyword,omitempty"`
	Text      string      `json:"text,omitempty"`
}

type paramJSON struct {
	Name     string      `json:"name"`
	Type     typeJSON    `json:"type"`
	Intent   string      `json:"intent,omitempty"`
	Optional bool        `json:"optional,omitempty"`
	Shape    []boundJSON `json:"shape,omitempty"`
}

type routineJSON struct {
	Name   string      `json:"name"`
	Params []paramJSON `json:"params,omitempty"`
	Body   []stmtJSON  `json:"body"`
}

// MarshalRoutine encodes a routine in the JSON exchange format.
func MarshalRoutine(s *Subroutine) ([]byte, error) {
	return json.MarshalIndent(encodeRoutine(s), "", "  ")
}

// UnmarshalRoutine decodes a routine from the JSON exchange format.
func UnmarshalRoutine(data []byte) (*Subroutine, error) {
	var rj routineJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, err
	}
	return decodeRoutine(&rj)
}

func encodeRoutine(s *Subroutine) *routineJSON {
	rj := &routineJSON{Name: s.Name}
	for _, p := range s.Params {
		rj.Params = append(rj.Params, paramJSON{
			Name:     p.Name,
			Type:     encodeType(p.Type),
			Intent:   p.Intent.String(),
			Optional: p.Optional,
			Shape:    encodeShape(p.Shape),
		})
	}
	rj.Body = encodeStmts(s.Body)
	return rj
}

func decodeRoutine(rj *routineJSON) (*Subroutine, error) {
	s := &Subroutine{Name: rj.Name}
	for _, pj := range rj.Params {
		ts, err := decodeType(&pj.Type)
		if err != nil {
			return nil, err
		}
		intent, err := parseIntent(pj.Intent)
		if err != nil {
			return nil, err
		}
		shape, err := decodeShape(pj.Shape)
		if err != nil {
			return nil, err
		}
		s.Params = append(s.Params, Param{
			Name: pj.Name, Type: ts, Intent: intent, Optional: pj.Optional, Shape: shape,
		})
	}
	body, err := decodeStmts(rj.Body)
	if err != nil {
		return nil, err
	}
	s.Body = body
	return s, nil
}

func encodeStmts(stmts []Statement) []stmtJSON {
	out := make([]stmtJSON, 0, len(stmts))
	for _, st := range stmts {
		out = append(out, encodeStmt(st))
	}
	return out
}

func encodeStmt(st Statement) stmtJSON {
	switch n := st.(type) {
	case *UseStmt:
		return stmtJSON{Kind: "use", Module: n.Module, Intrinsic: n.Intrinsic, Only: n.Only}
	case *TypeDecl:
		ts := encodeType(n.Type)
		sj := stmtJSON{Kind: "decl", Type: &ts, Intent: n.Intent.String()}
		for _, a := range n.Attrs {
			sj.Attrs = append(sj.Attrs, a.String())
		}
		for _, e := range n.Entities {
			sj.Entities = append(sj.Entities, entityJSON{
				Name: e.Name, Shape: encodeShape(e.Shape), Init: encodeExpr(e.Init),
			})
		}
		return sj
	case *AddressOverlay:
		ts := encodeType(n.Type)
		return stmtJSON{Kind: "overlay", Ptr: n.PtrName, Target: n.Target, Type: &ts, Shape: encodeShape(n.Shape)}
	case *Assignment:
		return stmtJSON{Kind: "assign", Lhs: encodeExpr(n.Lhs), Rhs: encodeExpr(n.Rhs)}
	case *CallStmt:
		return stmtJSON{Kind: "call", Name: n.Name, Args: encodeExprs(n.Args), KwArgs: encodeKwArgs(n.KwArgs)}
	case *DoLoop:
		return stmtJSON{Kind: "do", Var: n.Var,
			Start: encodeExpr(n.Start), Stop: encodeExpr(n.Stop), Step: encodeExpr(n.Step),
			Body: encodeStmts(n.Body)}
	case *IfStmt:
		return stmtJSON{Kind: "if", Cond: encodeExpr(n.Cond), Then: encodeStmts(n.Then), Else: encodeStmts(n.Else)}
	case *StopStmt:
		return stmtJSON{Kind: "stop", Code: n.Code}
	case *AllocateStmt:
		return stmtJSON{Kind: "allocate", Objects: encodeExprs(n.Objects)}
	case *DeallocateStmt:
		return stmtJSON{Kind: "deallocate", Objects: encodeExprs(n.Objects)}
	case *Pragma:
		return stmtJSON{Kind: "pragma", Keyword: n.Keyword, Text: n.Content}
	case *Comment:
		return stmtJSON{Kind: "comment", Text: n.Text}
	default:
		panic(fmt.Sprintf("ir: cannot encode statement %T", st))
	}
}

func decodeStmts(sjs []stmtJSON) ([]Statement, error) {
	out := make([]Statement, 0, len(sjs))
	for i := range sjs {
		st, err := decodeStmt(&sjs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func decodeStmt(sj *stmtJSON) (Statement, error) {
	switch sj.Kind {
	case "use":
		return &UseStmt{Module: sj.Module, Intrinsic: sj.Intrinsic, Only: sj.Only}, nil
	case "decl":
		ts, err := decodeType(sj.Type)
		if err != nil {
			return nil, err
		}
		intent, err := parseIntent(sj.Intent)
		if err != nil {
			return nil, err
		}
		td := &TypeDecl{Type: ts, Intent: intent}
		for _, a := range sj.Attrs {
			attr, err := parseAttr(a)
			if err != nil {
				return nil, err
			}
			td.Attrs = append(td.Attrs, attr)
		}
		for _, ej := range sj.Entities {
			shape, err := decodeShape(ej.Shape)
			if err != nil {
				return nil, err
			}
			init, err := decodeExpr(ej.Init)
			if err != nil {
				return nil, err
			}
			td.Entities = append(td.Entities, DeclEntity{Name: ej.Name, Shape: shape, Init: init})
		}
		return td, nil
	case "overlay":
		ts, err := decodeType(sj.Type)
		if err != nil {
			return nil, err
		}
		shape, err := decodeShape(sj.Shape)
		if err != nil {
			return nil, err
		}
		return &AddressOverlay{PtrName: sj.Ptr, Target: sj.Target, Type: ts, Shape: shape}, nil
	case "assign":
		lhs, err := decodeExpr(sj.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeExpr(sj.Rhs)
		if err != nil {
			return nil, err
		}
		return &Assignment{Lhs: lhs, Rhs: rhs}, nil
	case "call":
		args, err := decodeExprs(sj.Args)
		if err != nil {
			return nil, err
		}
		kwargs, err := decodeKwArgs(sj.KwArgs)
		if err != nil {
			return nil, err
		}
		return &CallStmt{Name: sj.Name, Args: args, KwArgs: kwargs}, nil
	case "do":
		start, err := decodeExpr(sj.Start)
		if err != nil {
			return nil, err
		}
		stop, err := decodeExpr(sj.Stop)
		if err != nil {
			return nil, err
		}
		step, err := decodeExpr(sj.Step)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(sj.Body)
		if err != nil {
			return nil, err
		}
		return &DoLoop{Var: sj.Var, Start: start, Stop: stop, Step: step, Body: body}, nil
	case "if":
		cond, err := decodeExpr(sj.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeStmts(sj.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeStmts(sj.Else)
		if err != nil {
			return nil, err
		}
		return &IfStmt{Cond: cond, Then: then, Else: els}, nil
	case "stop":
		return &StopStmt{Code: sj.Code}, nil
	case "allocate":
		objs, err := decodeExprs(sj.Objects)
		if err != nil {
			return nil, err
		}
		return &AllocateStmt{Objects: objs}, nil
	case "deallocate":
		objs, err := decodeExprs(sj.Objects)
		if err != nil {
			return nil, err
		}
		return &DeallocateStmt{Objects: objs}, nil
	case "pragma":
		return &Pragma{Keyword: sj.Keyword, Content: sj.Text}, nil
	case "comment":
		return &Comment{Text: sj.Text}, nil
	default:
		return nil, fmt.Errorf("ir: unknown statement kind %q", sj.Kind)
	}
}

func encodeExprs(es []Expression) []*exprJSON {
	out := make([]*exprJSON, 0, len(es))
	for _, e := range es {
		out = append(out, encodeExpr(e))
	}
	return out
}

func encodeKwArgs(kws []KeywordArg) []kwJSON {
	out := make([]kwJSON, 0, len(kws))
	for _, kw := range kws {
		out = append(out, kwJSON{Name: kw.Name, Value: encodeExpr(kw.Value)})
	}
	return out
}

func encodeExpr(e Expression) *exprJSON {
	switch n := e.(type) {
	case nil:
		return nil
	case *Identifier:
		return &exprJSON{Kind: "ident", Name: n.Value}
	case *IntLit:
		return &exprJSON{Kind: "int", Int: n.Value}
	case *RealLit:
		return &exprJSON{Kind: "real", Raw: n.Raw}
	case *LogicalLit:
		return &exprJSON{Kind: "logical", Bool: n.Value}
	case *BinaryExpr:
		return &exprJSON{Kind: "binary", Op: n.Op.String(), Left: encodeExpr(n.Left), Right: encodeExpr(n.Right)}
	case *UnaryExpr:
		return &exprJSON{Kind: "unary", Op: n.Op.String(), Expr: encodeExpr(n.Operand)}
	case *ParenExpr:
		return &exprJSON{Kind: "paren", Expr: encodeExpr(n.Expr)}
	case *InlineCall:
		return &exprJSON{Kind: "call", Name: n.Name, Args: encodeExprs(n.Args), KwArgs: encodeKwArgs(n.KwArgs)}
	case *ArrayRef:
		return &exprJSON{Kind: "arrayref", Name: n.Name, Subs: encodeExprs(n.Subscripts)}
	case *RangeExpr:
		return &exprJSON{Kind: "range", Start: encodeExpr(n.Start), Stop: encodeExpr(n.Stop), Stride: encodeExpr(n.Stride)}
	default:
		panic(fmt.Sprintf("ir: cannot encode expression %T", e))
	}
}

func decodeExprs(ejs []*exprJSON) ([]Expression, error) {
	out := make([]Expression, 0, len(ejs))
	for _, ej := range ejs {
		e, err := decodeExpr(ej)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeKwArgs(kjs []kwJSON) ([]KeywordArg, error) {
	out := make([]KeywordArg, 0, len(kjs))
	for _, kj := range kjs {
		v, err := decodeExpr(kj.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, KeywordArg{Name: kj.Name, Value: v})
	}
	return out, nil
}

func decodeExpr(ej *exprJSON) (Expression, error) {
	if ej == nil {
		return nil, nil
	}
	switch ej.Kind {
	case "ident":
		return Ident(ej.Name), nil
	case "int":
		return Int(ej.Int), nil
	case "real":
		return &RealLit{Raw: ej.Raw}, nil
	case "logical":
		return &LogicalLit{Value: ej.Bool}, nil
	case "binary":
		op, err := parseOp(ej.Op)
		if err != nil {
			return nil, err
		}
		left, err := decodeExpr(ej.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(ej.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	case "unary":
		op, err := parseOp(ej.Op)
		if err != nil {
			return nil, err
		}
		operand, err := decodeExpr(ej.Expr)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Operand: operand}, nil
	case "paren":
		inner, err := decodeExpr(ej.Expr)
		if err != nil {
			return nil, err
		}
		return &ParenExpr{Expr: inner}, nil
	case "call":
		args, err := decodeExprs(ej.Args)
		if err != nil {
			return nil, err
		}
		kwargs, err := decodeKwArgs(ej.KwArgs)
		if err != nil {
			return nil, err
		}
		return &InlineCall{Name: ej.Name, Args: args, KwArgs: kwargs}, nil
	case "arrayref":
		subs, err := decodeExprs(ej.Subs)
		if err != nil {
			return nil, err
		}
		return &ArrayRef{Name: ej.Name, Subscripts: subs}, nil
	case "range":
		start, err := decodeExpr(ej.Start)
		if err != nil {
			return nil, err
		}
		stop, err := decodeExpr(ej.Stop)
		if err != nil {
			return nil, err
		}
		stride, err := decodeExpr(ej.Stride)
		if err != nil {
			return nil, err
		}
		return &RangeExpr{Start: start, Stop: stop, Stride: stride}, nil
	default:
		return nil, fmt.Errorf("ir: unknown expression kind %q", ej.Kind)
	}
}

func encodeType(ts TypeSpec) typeJSON {
	return typeJSON{Base: ts.Base.String(), Kind: encodeExpr(ts.Kind), Name: ts.TypeName}
}

func encodeShape(shape []Bound) []boundJSON {
	out := make([]boundJSON, 0, len(shape))
	for _, b := range shape {
		out = append(out, boundJSON{Lower: encodeExpr(b.Lower), Upper: encodeExpr(b.Upper)})
	}
	return out
}

func decodeShape(bjs []boundJSON) ([]Bound, error) {
	out := make([]Bound, 0, len(bjs))
	for _, bj := range bjs {
		lower, err := decodeExpr(bj.Lower)
		if err != nil {
			return nil, err
		}
		upper, err := decodeExpr(bj.Upper)
		if err != nil {
			return nil, err
		}
		out = append(out, Bound{Lower: lower, Upper: upper})
	}
	return out, nil
}

func decodeType(tj *typeJSON) (TypeSpec, error) {
	if tj == nil {
		return TypeSpec{}, fmt.Errorf("ir: missing type")
	}
	kind, err := decodeExpr(tj.Kind)
	if err != nil {
		return TypeSpec{}, err
	}
	base, err := parseBase(tj.Base)
	if err != nil {
		return TypeSpec{}, err
	}
	return TypeSpec{Base: base, Kind: kind, TypeName: tj.Name}, nil
}

func parseBase(s string) (BaseType, error) {
	switch strings.ToUpper(s) {
	case "INTEGER":
		return TypeInteger, nil
	case "REAL":
		return TypeReal, nil
	case "LOGICAL":
		return TypeLogical, nil
	case "CHARACTER":
		return TypeCharacter, nil
	case "COMPLEX":
		return TypeComplex, nil
	case "TYPE":
		return TypeDerived, nil
	default:
		return TypeUnknown, fmt.Errorf("ir: unknown base type %q", s)
	}
}

func parseIntent(s string) (Intent, error) {
	switch strings.ToUpper(s) {
	case "":
		return IntentUnspecified, nil
	case "IN":
		return IntentIn, nil
	case "OUT":
		return IntentOut, nil
	case "INOUT":
		return IntentInOut, nil
	default:
		return IntentUnspecified, fmt.Errorf("ir: unknown intent %q", s)
	}
}

func parseAttr(s string) (Attr, error) {
	switch strings.ToUpper(s) {
	case "PARAMETER":
		return AttrParameter, nil
	case "ALLOCATABLE":
		return AttrAllocatable, nil
	case "POINTER":
		return AttrPointer, nil
	case "TARGET":
		return AttrTarget, nil
	case "OPTIONAL":
		return AttrOptional, nil
	case "SAVE":
		return AttrSave, nil
	case "CONTIGUOUS":
		return AttrContiguous, nil
	default:
		return 0, fmt.Errorf("ir: unknown attribute %q", s)
	}
}

func parseOp(s string) (BinaryOp, error) {
	for op := OpAdd; op <= OpNE; op++ {
		if op.String() == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("ir: unknown operator %q", s)
}
