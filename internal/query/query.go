// Package query is the read-only access layer over a finished graph.
// It answers the questions callers and tests ask most: declarations by
// name, body statements by position and kind, and record member lookups.
package query

import (
	"fmt"
	"strings"

	"cpg/internal/graph"
)

// TypeMismatchError reports a body statement of a different kind than
// the caller requested.
type TypeMismatchError struct {
	Index int
	Want  string
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("statement %d is %s, not %s", e.Index, e.Got, e.Want)
}

// DeclarationsByName scans the unit for declarations matching the simple
// name. Qualified declaration names match on their last segment for
// either delimiter convention.
func DeclarationsByName(tu *graph.TranslationUnitDecl, name string) []graph.Declaration {
	var out []graph.Declaration
	graph.Walk(tu, func(n graph.Node) bool {
		if d, ok := n.(graph.Declaration); ok && simpleName(d) == name {
			out = append(out, d)
		}
		return true
	})
	return out
}

// DeclarationsOf narrows DeclarationsByName to one declaration kind.
func DeclarationsOf[T graph.Declaration](tu *graph.TranslationUnitDecl, name string) []T {
	var out []T
	for _, d := range DeclarationsByName(tu, name) {
		if t, ok := d.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func simpleName(n graph.Node) string {
	name := n.Base().Name
	for _, delim := range []string{"::", "."} {
		if i := strings.LastIndex(name, delim); i >= 0 {
			name = name[i+len(delim):]
		}
	}
	return name
}

// BodyStatementAs returns the i-th statement of the function body when it
// has the requested kind.
func BodyStatementAs[T graph.Statement](fn *graph.FunctionDecl, i int) (T, error) {
	var zero T
	if fn.Body == nil {
		return zero, fmt.Errorf("%s has no body", fn.Name)
	}
	blk, ok := fn.Body.(*graph.Block)
	if !ok {
		return zero, fmt.Errorf("%s body is %T, not a block", fn.Name, fn.Body)
	}
	if i < 0 || i >= len(blk.Statements) {
		return zero, fmt.Errorf("%s has %d body statements, index %d out of range", fn.Name, len(blk.Statements), i)
	}
	s := blk.Statements[i]
	t, ok := s.(T)
	if !ok {
		return zero, &TypeMismatchError{Index: i, Want: fmt.Sprintf("%T", zero), Got: fmt.Sprintf("%T", s)}
	}
	return t, nil
}

// RecordByName finds the record with the simple name, searching nested
// records too.
func RecordByName(tu *graph.TranslationUnitDecl, name string) *graph.RecordDecl {
	for _, r := range DeclarationsOf[*graph.RecordDecl](tu, name) {
		return r
	}
	return nil
}

// FieldOf returns the record's own field with the name, or nil.
func FieldOf(rec *graph.RecordDecl, name string) *graph.FieldDecl {
	for _, f := range rec.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// MethodsOf returns the record's own methods with the simple name.
func MethodsOf(rec *graph.RecordDecl, name string) []*graph.MethodDecl {
	var out []*graph.MethodDecl
	for _, m := range rec.Methods {
		if simpleName(m) == name {
			out = append(out, m)
		}
	}
	return out
}

// FunctionByName returns the first function definition with the simple
// name, falling back to a declaration without body.
func FunctionByName(tu *graph.TranslationUnitDecl, name string) *graph.FunctionDecl {
	var fallback *graph.FunctionDecl
	for _, fn := range DeclarationsOf[*graph.FunctionDecl](tu, name) {
		if fn.Body != nil {
			return fn
		}
		if fallback == nil {
			fallback = fn
		}
	}
	return fallback
}

// CallsTo collects the call expressions in the unit whose candidate
// callees include the target. Targets are matched by node identity, so
// a method and its embedded function base count as the same callee.
func CallsTo(tu *graph.TranslationUnitDecl, target graph.Node) []graph.Expression {
	var out []graph.Expression
	graph.Walk(tu, func(n graph.Node) bool {
		switch n.(type) {
		case *graph.CallExpr, *graph.MemberCallExpr, *graph.ConstructExpr:
			for _, e := range n.Base().Outgoing() {
				if e.Label == graph.Invokes && e.To.Base() == target.Base() {
					out = append(out, n.(graph.Expression))
					break
				}
			}
		}
		return true
	})
	return out
}
