package ir

import "strings"

// Pragma is a directive comment such as !$omp parallel do private(b).
// Keyword is the sentinel after !$ (omp, acc, loki); Content is the rest
// of the line.
type Pragma struct {
	Keyword  string
	Content  string
	StartPos int
	EndPos   int
}

func (p *Pragma) statementNode() {}
func (p *Pragma) AppendString(dst []byte) []byte {
	dst = append(dst, "!$"...)
	dst = append(dst, p.Keyword...)
	if p.Content != "" {
		dst = append(dst, ' ')
		dst = append(dst, p.Content...)
	}
	return dst
}
func (p *Pragma) Pos() int { return p.StartPos }
func (p *Pragma) End() int { return p.EndPos }

// Clause is one keyword parameter of a pragma: a bare word such as
// "parallel" or a parameterized clause such as private(a, b).
type Clause struct {
	Name string
	Args []string
}

// Clauses parses the pragma's content into its keyword parameters.
// Nesting inside parentheses is preserved verbatim as a single argument
// segment split on top-level commas.
func (p *Pragma) Clauses() []Clause {
	var out []Clause
	s := p.Content
	i := 0
	for i < len(s) {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		start := i
		for i < len(s) && s[i] != ' ' && s[i] != '(' {
			i++
		}
		if start == i {
			i++
			continue
		}
		cl := Clause{Name: s[start:i]}
		if i < len(s) && s[i] == '(' {
			depth := 1
			i++
			argStart := i
			for i < len(s) && depth > 0 {
				switch s[i] {
				case '(':
					depth++
				case ')':
					depth--
				case ',':
					if depth == 1 {
						cl.Args = append(cl.Args, strings.TrimSpace(s[argStart:i]))
						argStart = i + 1
					}
				}
				i++
			}
			last := i
			if depth == 0 {
				last = i - 1 // exclude closing paren
			}
			if arg := strings.TrimSpace(s[argStart:last]); arg != "" {
				cl.Args = append(cl.Args, arg)
			}
		}
		out = append(out, cl)
	}
	return out
}

// SetClauses rewrites the pragma content from the given clause list.
func (p *Pragma) SetClauses(clauses []Clause) {
	var sb strings.Builder
	for i, cl := range clauses {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(cl.Name)
		if cl.Args != nil {
			sb.WriteByte('(')
			sb.WriteString(strings.Join(cl.Args, ", "))
			sb.WriteByte(')')
		}
	}
	p.Content = sb.String()
}

// StartsWith reports whether the pragma's first clause is word
// (case-insensitive).
func (p *Pragma) StartsWith(word string) bool {
	trimmed := strings.TrimSpace(p.Content)
	return len(trimmed) >= len(word) && equalFold(trimmed[:len(word)], word)
}

// AddClauseArgs appends args to the named clause, creating the clause if
// absent. Arguments already present (case-insensitive) are not repeated.
func (p *Pragma) AddClauseArgs(name string, args ...string) {
	clauses := p.Clauses()
	idx := -1
	for i := range clauses {
		if equalFold(clauses[i].Name, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		clauses = append(clauses, Clause{Name: name, Args: []string{}})
		idx = len(clauses) - 1
	}
	for _, a := range args {
		present := false
		for _, have := range clauses[idx].Args {
			if equalFold(have, a) {
				present = true
				break
			}
		}
		if !present {
			clauses[idx].Args = append(clauses[idx].Args, a)
		}
	}
	p.SetClauses(clauses)
}

// RemoveClauseArgs removes args from the named clause if present; an
// emptied clause is dropped. Unrelated clauses are never touched.
func (p *Pragma) RemoveClauseArgs(name string, args ...string) {
	clauses := p.Clauses()
	changed := false
	for i := range clauses {
		if !equalFold(clauses[i].Name, name) {
			continue
		}
		kept := clauses[i].Args[:0]
		for _, have := range clauses[i].Args {
			remove := false
			for _, a := range args {
				if equalFold(have, a) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, have)
			} else {
				changed = true
			}
		}
		if changed && len(kept) == 0 {
			clauses = append(clauses[:i], clauses[i+1:]...)
		} else {
			clauses[i].Args = kept
		}
		break
	}
	if changed {
		p.SetClauses(clauses)
	}
}
