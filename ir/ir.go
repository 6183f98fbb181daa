// Package ir defines the typed intermediate representation consumed and
// produced by the stack-pool-allocation pass.
//
// The node set is deliberately closed: every declaration, statement and
// expression kind the pass can encounter or synthesize is a tagged variant
// here, so rewriting code can switch exhaustively over node types. Nodes
// carry their own textual rendering via AppendString; the emission
// collaborator may render dialect-specific constructs (notably
// AddressOverlay) differently.
package ir

// Node is the common interface of all IR nodes.
type Node interface {
	// AppendString appends the Fortran rendering of the node to dst.
	AppendString(dst []byte) []byte
	Pos() int // position of first character belonging to the node in file.
	End() int // position of first character immediately after the node in file.
}

// Expression is a value-producing node.
type Expression interface {
	Node
	expressionNode()
}

// Statement is an executable or specification statement.
type Statement interface {
	Node
	statementNode()
}

// Intent is the declared INTENT of a dummy argument.
type Intent int

const (
	IntentUnspecified Intent = iota
	IntentIn
	IntentOut
	IntentInOut
)

func (it Intent) String() string {
	switch it {
	case IntentIn:
		return "IN"
	case IntentOut:
		return "OUT"
	case IntentInOut:
		return "INOUT"
	default:
		return ""
	}
}

// BaseType enumerates the primitive Fortran type classes plus derived types.
type BaseType int

const (
	TypeUnknown BaseType = iota
	TypeInteger
	TypeReal
	TypeLogical
	TypeCharacter
	TypeComplex
	TypeDerived
)

func (bt BaseType) String() string {
	switch bt {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeLogical:
		return "LOGICAL"
	case TypeCharacter:
		return "CHARACTER"
	case TypeComplex:
		return "COMPLEX"
	case TypeDerived:
		return "TYPE"
	default:
		return "<unknown>"
	}
}

// TypeSpec is a type with its kind parameter. For derived types the
// TypeName field holds the type name and Kind is nil.
type TypeSpec struct {
	Base     BaseType
	Kind     Expression // KIND= expression, nil for default kind
	TypeName string     // derived type name when Base == TypeDerived
}

func (ts TypeSpec) AppendString(dst []byte) []byte {
	if ts.Base == TypeDerived {
		dst = append(dst, "TYPE("...)
		dst = append(dst, ts.TypeName...)
		return append(dst, ')')
	}
	dst = append(dst, ts.Base.String()...)
	if ts.Kind != nil {
		dst = append(dst, "(KIND="...)
		dst = ts.Kind.AppendString(dst)
		dst = append(dst, ')')
	}
	return dst
}

// Attr is a declaration attribute.
type Attr int

const (
	AttrParameter Attr = iota
	AttrAllocatable
	AttrPointer
	AttrTarget
	AttrOptional
	AttrSave
	AttrContiguous
)

func (a Attr) String() string {
	switch a {
	case AttrParameter:
		return "PARAMETER"
	case AttrAllocatable:
		return "ALLOCATABLE"
	case AttrPointer:
		return "POINTER"
	case AttrTarget:
		return "TARGET"
	case AttrOptional:
		return "OPTIONAL"
	case AttrSave:
		return "SAVE"
	case AttrContiguous:
		return "CONTIGUOUS"
	default:
		return "<attr>"
	}
}

// Bound is one dimension of an array shape. Lower nil means the default
// lower bound of 1; both nil means a deferred or assumed shape dimension.
type Bound struct {
	Lower Expression
	Upper Expression
}

func (b Bound) AppendString(dst []byte) []byte {
	if b.Lower == nil && b.Upper == nil {
		return append(dst, ':')
	}
	if b.Lower != nil {
		dst = b.Lower.AppendString(dst)
		dst = append(dst, ':')
	}
	if b.Upper != nil {
		dst = b.Upper.AppendString(dst)
	}
	return dst
}

// DeclEntity is a single declared entity within a TypeDecl.
type DeclEntity struct {
	Name  string
	Shape []Bound    // nil for scalars
	Init  Expression // initializer, nil if absent
}

func (de DeclEntity) AppendString(dst []byte) []byte {
	dst = append(dst, de.Name...)
	if len(de.Shape) > 0 {
		dst = append(dst, '(')
		for i, b := range de.Shape {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = b.AppendString(dst)
		}
		dst = append(dst, ')')
	}
	if de.Init != nil {
		dst = append(dst, " = "...)
		dst = de.Init.AppendString(dst)
	}
	return dst
}

// TypeDecl is a type declaration statement.
type TypeDecl struct {
	Type     TypeSpec
	Intent   Intent
	Attrs    []Attr
	Entities []DeclEntity
	StartPos int
	EndPos   int
}

func (td *TypeDecl) statementNode() {}
func (td *TypeDecl) AppendString(dst []byte) []byte {
	dst = td.Type.AppendString(dst)
	if td.Intent != IntentUnspecified {
		dst = append(dst, ", INTENT("...)
		dst = append(dst, td.Intent.String()...)
		dst = append(dst, ')')
	}
	for _, a := range td.Attrs {
		dst = append(dst, ", "...)
		dst = append(dst, a.String()...)
	}
	dst = append(dst, " :: "...)
	for i, e := range td.Entities {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = e.AppendString(dst)
	}
	return dst
}
func (td *TypeDecl) Pos() int { return td.StartPos }
func (td *TypeDecl) End() int { return td.EndPos }

// HasAttr reports whether the declaration carries attribute a.
func (td *TypeDecl) HasAttr(a Attr) bool {
	for _, attr := range td.Attrs {
		if attr == a {
			return true
		}
	}
	return false
}

// AddressOverlay is the tagged "overlay an array name onto a raw address"
// declaration variant (the legacy Cray-pointer idiom). It carries the
// overlaid target's full declaration so existing uses of the name are
// unaffected, plus the integer variable holding the address.
type AddressOverlay struct {
	PtrName  string // address-holding integer variable, e.g. IP_TMP1
	Target   string // overlaid array name, e.g. TMP1
	Type     TypeSpec
	Shape    []Bound
	StartPos int
	EndPos   int
}

func (ao *AddressOverlay) statementNode() {}
func (ao *AddressOverlay) AppendString(dst []byte) []byte {
	dst = ao.Type.AppendString(dst)
	dst = append(dst, " :: "...)
	dst = append(dst, ao.Target...)
	if len(ao.Shape) > 0 {
		dst = append(dst, '(')
		for i, b := range ao.Shape {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = b.AppendString(dst)
		}
		dst = append(dst, ')')
	}
	dst = append(dst, '\n')
	dst = append(dst, "POINTER("...)
	dst = append(dst, ao.PtrName...)
	dst = append(dst, ", "...)
	dst = append(dst, ao.Target...)
	return append(dst, ')')
}
func (ao *AddressOverlay) Pos() int { return ao.StartPos }
func (ao *AddressOverlay) End() int { return ao.EndPos }

// UseStmt is a USE statement, optionally intrinsic, with an ONLY list.
type UseStmt struct {
	Module    string
	Intrinsic bool
	Only      []string
	StartPos  int
	EndPos    int
}

func (us *UseStmt) statementNode() {}
func (us *UseStmt) AppendString(dst []byte) []byte {
	if us.Intrinsic {
		dst = append(dst, "USE, INTRINSIC :: "...)
	} else {
		dst = append(dst, "USE "...)
	}
	dst = append(dst, us.Module...)
	if len(us.Only) > 0 {
		dst = append(dst, ", ONLY: "...)
		for i, n := range us.Only {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(dst, n...)
		}
	}
	return dst
}
func (us *UseStmt) Pos() int { return us.StartPos }
func (us *UseStmt) End() int { return us.EndPos }

// Assignment is a scalar or array assignment statement.
type Assignment struct {
	Lhs      Expression
	Rhs      Expression
	StartPos int
	EndPos   int
}

func (as *Assignment) statementNode() {}
func (as *Assignment) AppendString(dst []byte) []byte {
	dst = as.Lhs.AppendString(dst)
	dst = append(dst, " = "...)
	return as.Rhs.AppendString(dst)
}
func (as *Assignment) Pos() int { return as.StartPos }
func (as *Assignment) End() int { return as.EndPos }

// CallStmt is a CALL statement with positional and keyword arguments.
// Keyword arguments always follow positional ones.
type CallStmt struct {
	Name     string
	Args     []Expression
	KwArgs   []KeywordArg
	StartPos int
	EndPos   int
}

func (cs *CallStmt) statementNode() {}
func (cs *CallStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "CALL "...)
	dst = append(dst, cs.Name...)
	dst = append(dst, '(')
	for i, a := range cs.Args {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = a.AppendString(dst)
	}
	for i, kw := range cs.KwArgs {
		if i > 0 || len(cs.Args) > 0 {
			dst = append(dst, ", "...)
		}
		dst = kw.AppendString(dst)
	}
	return append(dst, ')')
}
func (cs *CallStmt) Pos() int { return cs.StartPos }
func (cs *CallStmt) End() int { return cs.EndPos }

// DoLoop is a counted DO loop.
type DoLoop struct {
	Var      string
	Start    Expression
	Stop     Expression
	Step     Expression // nil for unit stride
	Body     []Statement
	StartPos int
	EndPos   int
}

func (dl *DoLoop) statementNode() {}
func (dl *DoLoop) AppendString(dst []byte) []byte {
	dst = append(dst, "DO "...)
	dst = append(dst, dl.Var...)
	dst = append(dst, '=')
	dst = dl.Start.AppendString(dst)
	dst = append(dst, ',')
	dst = dl.Stop.AppendString(dst)
	if dl.Step != nil {
		dst = append(dst, ',')
		dst = dl.Step.AppendString(dst)
	}
	return dst
}
func (dl *DoLoop) Pos() int { return dl.StartPos }
func (dl *DoLoop) End() int { return dl.EndPos }

// IfStmt is a block IF construct. The pass only synthesizes the
// single-branch form used by overflow guards.
type IfStmt struct {
	Cond     Expression
	Then     []Statement
	Else     []Statement
	StartPos int
	EndPos   int
}

func (is *IfStmt) statementNode() {}
func (is *IfStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "IF ("...)
	dst = is.Cond.AppendString(dst)
	return append(dst, ") THEN"...)
}
func (is *IfStmt) Pos() int { return is.StartPos }
func (is *IfStmt) End() int { return is.EndPos }

// StopStmt terminates the program, optionally with a diagnostic code.
type StopStmt struct {
	Code     string
	StartPos int
	EndPos   int
}

func (ss *StopStmt) statementNode() {}
func (ss *StopStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "STOP"...)
	if ss.Code != "" {
		dst = append(dst, " \""...)
		dst = append(dst, ss.Code...)
		dst = append(dst, '"')
	}
	return dst
}
func (ss *StopStmt) Pos() int { return ss.StartPos }
func (ss *StopStmt) End() int { return ss.EndPos }

// AllocateStmt allocates the listed objects, each an ArrayRef whose
// subscripts are the allocation extents.
type AllocateStmt struct {
	Objects  []Expression
	StartPos int
	EndPos   int
}

func (al *AllocateStmt) statementNode() {}
func (al *AllocateStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "ALLOCATE("...)
	for i, o := range al.Objects {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = o.AppendString(dst)
	}
	return append(dst, ')')
}
func (al *AllocateStmt) Pos() int { return al.StartPos }
func (al *AllocateStmt) End() int { return al.EndPos }

// DeallocateStmt releases the listed objects.
type DeallocateStmt struct {
	Objects  []Expression
	StartPos int
	EndPos   int
}

func (dl *DeallocateStmt) statementNode() {}
func (dl *DeallocateStmt) AppendString(dst []byte) []byte {
	dst = append(dst, "DEALLOCATE("...)
	for i, o := range dl.Objects {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = o.AppendString(dst)
	}
	return append(dst, ')')
}
func (dl *DeallocateStmt) Pos() int { return dl.StartPos }
func (dl *DeallocateStmt) End() int { return dl.EndPos }

// Comment is a full-line source comment.
type Comment struct {
	Text     string
	StartPos int
	EndPos   int
}

func (c *Comment) statementNode() {}
func (c *Comment) AppendString(dst []byte) []byte {
	dst = append(dst, "! "...)
	return append(dst, c.Text...)
}
func (c *Comment) Pos() int { return c.StartPos }
func (c *Comment) End() int { return c.EndPos }

// Param is a dummy argument of a Subroutine, carrying its full
// declaration so the signature alone describes the calling convention.
type Param struct {
	Name     string
	Type     TypeSpec
	Intent   Intent
	Optional bool
	Shape    []Bound // nil for scalars
}

// Subroutine is one routine: the unit of transformation.
// By convention specification statements precede executable statements
// in Body; DeclEnd locates the boundary.
type Subroutine struct {
	Name     string
	Params   []Param
	Body     []Statement
	StartPos int
	EndPos   int
}

func (s *Subroutine) statementNode() {}
func (s *Subroutine) AppendString(dst []byte) []byte {
	dst = append(dst, "SUBROUTINE "...)
	dst = append(dst, s.Name...)
	dst = append(dst, '(')
	for i, p := range s.Params {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, p.Name...)
	}
	return append(dst, ')')
}
func (s *Subroutine) Pos() int { return s.StartPos }
func (s *Subroutine) End() int { return s.EndPos }

// HasParam reports whether the routine declares a dummy argument with
// the given name (case-insensitive).
func (s *Subroutine) HasParam(name string) bool {
	return s.FindParam(name) != nil
}

// FindParam returns the dummy argument with the given name, or nil.
func (s *Subroutine) FindParam(name string) *Param {
	for i := range s.Params {
		if equalFold(s.Params[i].Name, name) {
			return &s.Params[i]
		}
	}
	return nil
}

// DeclEnd returns the index of the first executable statement in Body.
// Everything before it is the specification part.
func (s *Subroutine) DeclEnd() int {
	for i, stmt := range s.Body {
		switch stmt.(type) {
		case *TypeDecl, *UseStmt, *AddressOverlay, *Comment, *Pragma:
			continue
		default:
			return i
		}
	}
	return len(s.Body)
}

// Render returns the full textual rendering of the routine, one
// statement per line with two-space body indentation.
func (s *Subroutine) Render() string {
	dst := s.AppendString(nil)
	dst = append(dst, '\n')
	dst = renderBody(dst, s.Body, 1)
	dst = append(dst, "END SUBROUTINE "...)
	dst = append(dst, s.Name...)
	dst = append(dst, '\n')
	return string(dst)
}

func renderBody(dst []byte, body []Statement, depth int) []byte {
	indent := func() {
		for i := 0; i < depth; i++ {
			dst = append(dst, "  "...)
		}
	}
	for _, stmt := range body {
		indent()
		dst = stmt.AppendString(dst)
		dst = append(dst, '\n')
		switch n := stmt.(type) {
		case *DoLoop:
			dst = renderBody(dst, n.Body, depth+1)
			indent()
			dst = append(dst, "END DO\n"...)
		case *IfStmt:
			dst = renderBody(dst, n.Then, depth+1)
			if len(n.Else) > 0 {
				indent()
				dst = append(dst, "ELSE\n"...)
				dst = renderBody(dst, n.Else, depth+1)
			}
			indent()
			dst = append(dst, "END IF\n"...)
		}
	}
	return dst
}

// equalFold is ASCII case-insensitive equality; Fortran names are ASCII.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
