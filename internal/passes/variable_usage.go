package passes

import (
	"context"
	"strings"

	"cpg/internal/ctype"
	"cpg/internal/graph"
)

// VariableUsageResolver links every reference expression to the value
// declaration it names: local scope first, then the enclosing record's
// members for method bodies, then namespace and global scope through the
// scope chain. Member expressions resolve through the static type of
// their base. The pass iterates because member resolution depends on
// types that reference resolution may only just have filled in.
type VariableUsageResolver struct{}

func NewVariableUsageResolver() *VariableUsageResolver { return &VariableUsageResolver{} }

func (p *VariableUsageResolver) Name() string { return "VariableUsageResolver" }

func (p *VariableUsageResolver) Run(_ context.Context, pc *Context) error {
	converged := false
	for i := 0; i < pc.FixpointCap && !converged; i++ {
		changes := 0
		for _, unit := range pc.Units {
			delim := pc.Delimiter(unit)
			for _, c := range callablesOf(unit) {
				if c.fn.Body == nil {
					continue
				}
				graph.Walk(c.fn.Body, func(n graph.Node) bool {
					changes += p.resolveIn(n, c.record, delim)
					return true
				})
			}
			// Initializers outside any function body.
			graph.Walk(unit, func(n graph.Node) bool {
				switch n.(type) {
				case *graph.FunctionDecl, *graph.MethodDecl, *graph.ConstructorDecl:
					return false
				}
				changes += p.resolveIn(n, nil, delim)
				return true
			})
		}
		converged = changes == 0
	}
	if !converged {
		pc.Logger.Warn("variable usage resolution hit the iteration cap", "cap", pc.FixpointCap)
	}
	p.markUnresolved(pc)
	return nil
}

func (p *VariableUsageResolver) resolveIn(n graph.Node, rec *graph.RecordDecl, delim string) int {
	switch v := n.(type) {
	case *graph.DeclaredReference:
		if v.Refers != nil {
			return 0
		}
		d := p.lookupReference(v, rec, delim)
		if d == nil {
			return 0
		}
		v.Refers = d
		v.Type = valueDeclType(d)
		graph.AddEdge(v, graph.RefersTo, d)
		return 1
	case *graph.MemberExpr:
		if v.Refers != nil {
			return 0
		}
		base := baseRecordOf(v.Operand, rec)
		if base == nil {
			return 0
		}
		d := findMember(base, v.Name)
		if d == nil {
			return 0
		}
		v.Refers = d
		v.Type = valueDeclType(d)
		graph.AddEdge(v, graph.RefersTo, d)
		return 1
	}
	return 0
}

func (p *VariableUsageResolver) lookupReference(ref *graph.DeclaredReference, rec *graph.RecordDecl, delim string) graph.ValueDeclaration {
	name := ref.Name
	if delim != "" && strings.Contains(name, delim) {
		return resolveQualified(ref.Scope, name, delim)
	}
	// Scopes inside the record come first, then the record's own and
	// inherited members, then namespace and global scope.
	for scope := ref.Scope; scope != nil; scope = scope.Parent {
		if rec != nil && (scope.Kind == graph.NamespaceScope || scope.Kind == graph.GlobalScope) {
			if d := findMember(rec, name); d != nil {
				return d
			}
			rec = nil
		}
		if candidates := scope.LookupLocal(name); len(candidates) > 0 {
			// Within one scope the last declaration wins.
			return candidates[len(candidates)-1]
		}
	}
	if rec != nil {
		if d := findMember(rec, name); d != nil {
			return d
		}
	}
	return nil
}

// resolveQualified splits a qualified name on the delimiter and resolves
// the qualifier to a namespace or record scope reachable from the global
// scope, then looks the local name up there.
func resolveQualified(from *graph.Scope, name, delim string) graph.ValueDeclaration {
	i := strings.LastIndex(name, delim)
	qualifier, local := name[:i], name[i+len(delim):]

	root := from
	for root != nil && root.Parent != nil {
		root = root.Parent
	}
	if root == nil {
		return nil
	}
	scope := root
	for _, part := range strings.Split(qualifier, delim) {
		scope = childScopeNamed(scope, part)
		if scope == nil {
			return nil
		}
	}
	if candidates := scope.LookupLocal(local); len(candidates) > 0 {
		return candidates[len(candidates)-1]
	}
	return nil
}

func childScopeNamed(s *graph.Scope, name string) *graph.Scope {
	for _, child := range s.Children {
		if child.Kind != graph.NamespaceScope && child.Kind != graph.RecordScope {
			continue
		}
		if child.Node != nil && child.Node.Base().Name == name {
			return child
		}
	}
	return nil
}

// baseRecordOf finds the record behind the static type of a member
// access base. Pointers and references are looked through.
func baseRecordOf(base graph.Expression, rec *graph.RecordDecl) *graph.RecordDecl {
	switch b := base.(type) {
	case nil:
		return rec
	case *graph.DeclaredReference:
		if (b.Name == "this" || b.Name == "self") && rec != nil {
			return rec
		}
	}
	t := graph.ExpressionType(base)
	if t == nil {
		return nil
	}
	if r, ok := t.Root().Record.(*graph.RecordDecl); ok {
		return r
	}
	return nil
}

func valueDeclType(d graph.ValueDeclaration) *ctype.Type {
	switch v := d.(type) {
	case *graph.VariableDecl:
		return v.Type
	case *graph.FieldDecl:
		return v.Type
	case *graph.ParameterDecl:
		return v.Type
	case *graph.EnumConstantDecl:
		return v.Type
	case *graph.FunctionDecl:
		return v.DeclaredType()
	}
	return ctype.NewUnknownType()
}

// markUnresolved flags the references no iteration could resolve.
func (p *VariableUsageResolver) markUnresolved(pc *Context) {
	for _, unit := range pc.Units {
		graph.Walk(unit, func(n graph.Node) bool {
			switch v := n.(type) {
			case *graph.DeclaredReference:
				if v.Refers == nil {
					v.Unresolved = true
				}
			case *graph.MemberExpr:
				if v.Refers == nil {
					v.Unresolved = true
				}
			}
			return true
		})
	}
}
