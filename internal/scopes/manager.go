package scopes

import (
	"fmt"
	"strings"

	"cpg/internal/graph"
)

// ImbalanceError reports a frontend that left a scope it never entered,
// or finished with scopes still open. It is raised as a panic inside
// handler code and recovered once at the translation layer, so handlers
// stay free of error plumbing for a condition that is always a frontend
// bug.
type ImbalanceError struct {
	Op   string
	Want graph.Node
	Got  graph.Node
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("scope imbalance in %s: want node %v, got %v", e.Op, nodeName(e.Want), nodeName(e.Got))
}

func nodeName(n graph.Node) string {
	if n == nil {
		return "<nil>"
	}
	b := n.Base()
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("#%d", b.ID)
}

// Manager maintains the scope tree during a single frontend run. Each
// frontend owns one manager; managers are not shared across goroutines.
type Manager struct {
	global  *graph.Scope
	current *graph.Scope
}

func NewManager() *Manager {
	g := graph.NewScope(graph.GlobalScope, nil)
	return &Manager{global: g, current: g}
}

// GlobalScope returns the root of the scope tree.
func (m *Manager) GlobalScope() *graph.Scope { return m.global }

// CurrentScope returns the scope the frontend is currently inside.
func (m *Manager) CurrentScope() *graph.Scope { return m.current }

// CurrentRecord returns the record whose scope encloses the current
// position, or nil at file or namespace level.
func (m *Manager) CurrentRecord() *graph.RecordDecl { return m.current.Record() }

// CurrentFunction returns the function declaration whose scope encloses
// the current position, or nil.
func (m *Manager) CurrentFunction() *graph.FunctionDecl {
	fs := m.current.Function()
	if fs == nil {
		return nil
	}
	switch v := fs.Node.(type) {
	case *graph.FunctionDecl:
		return v
	case *graph.MethodDecl:
		return &v.FunctionDecl
	case *graph.ConstructorDecl:
		return &v.FunctionDecl
	}
	return nil
}

// InFunction reports whether the current position is inside a function
// body. Declarator handling depends on this: a function pointer
// declarator inside a function is a variable, inside a record a field.
func (m *Manager) InFunction() bool { return m.current.Function() != nil }

// InRecord reports whether the current position is inside a record body
// without an intervening function.
func (m *Manager) InRecord() bool {
	for cur := m.current; cur != nil; cur = cur.Parent {
		switch cur.Kind {
		case graph.FunctionScope:
			return false
		case graph.RecordScope:
			return true
		}
	}
	return false
}

// EnterScope opens a new scope of the given kind owned by node and makes
// it current. The node's scope backlink is set to the scope it was
// declared in, not the one it opens.
func (m *Manager) EnterScope(kind graph.ScopeKind, node graph.Node) *graph.Scope {
	s := graph.NewScope(kind, node)
	m.current.AddChild(s)
	if node != nil {
		node.Base().Scope = m.current
	}
	m.current = s
	return s
}

// LeaveScope closes the current scope, checking that it is owned by the
// expected node. A mismatch panics with an ImbalanceError.
func (m *Manager) LeaveScope(node graph.Node) {
	if m.current == m.global {
		panic(&ImbalanceError{Op: "LeaveScope", Want: node, Got: nil})
	}
	if m.current.Node != node {
		panic(&ImbalanceError{Op: "LeaveScope", Want: node, Got: m.current.Node})
	}
	m.current = m.current.Parent
}

// Finish verifies that every entered scope was left.
func (m *Manager) Finish() error {
	if m.current != m.global {
		return &ImbalanceError{Op: "Finish", Want: nil, Got: m.current.Node}
	}
	return nil
}

// AddDeclaration records d in the current scope and stamps its scope
// backlink.
func (m *Manager) AddDeclaration(d graph.ValueDeclaration) {
	d.Base().Scope = m.current
	m.current.Declare(d)
}

// AddLabel registers a labeled statement with the enclosing function
// scope for goto resolution.
func (m *Manager) AddLabel(l *graph.LabelStmt) {
	fs := m.current.Function()
	if fs == nil {
		fs = m.global
	}
	fs.Labels[l.Label] = l
}

// LookupLabel finds a labeled statement visible from the current scope.
func (m *Manager) LookupLabel(name string) *graph.LabelStmt {
	for cur := m.current; cur != nil; cur = cur.Parent {
		if l, ok := cur.Labels[name]; ok {
			return l
		}
	}
	return nil
}

// Resolve finds the declarations a name refers to, starting at scope and
// walking outward. Qualified names ("A::f", "pkg.f") are split on the
// delimiter: the qualifier selects a record or namespace scope, the
// remainder is looked up inside it. The innermost scope defining the
// name wins; all of its same-named declarations are returned so overload
// selection can happen downstream.
func (m *Manager) Resolve(scope *graph.Scope, name, delimiter string) []graph.ValueDeclaration {
	if scope == nil {
		scope = m.current
	}
	if delimiter != "" {
		if i := strings.LastIndex(name, delimiter); i >= 0 {
			qualifier := name[:i]
			local := name[i+len(delimiter):]
			if qs := m.findQualifiedScope(qualifier, delimiter); qs != nil {
				return qs.LookupLocal(local)
			}
			return nil
		}
	}
	return scope.Lookup(name)
}

// findQualifiedScope locates the record or namespace scope named by a
// possibly nested qualifier.
func (m *Manager) findQualifiedScope(qualifier, delimiter string) *graph.Scope {
	parts := strings.Split(qualifier, delimiter)
	cur := m.global
	for _, part := range parts {
		next := findChildScope(cur, part)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func findChildScope(s *graph.Scope, name string) *graph.Scope {
	var found *graph.Scope
	var search func(*graph.Scope) bool
	search = func(cur *graph.Scope) bool {
		for _, c := range cur.Children {
			if c.Kind == graph.RecordScope || c.Kind == graph.NamespaceScope {
				if c.Node != nil && c.Node.Base().Name == name {
					found = c
					return true
				}
			}
			// Qualified scopes may be nested under namespaces only.
			if c.Kind == graph.NamespaceScope && search(c) {
				return true
			}
		}
		return false
	}
	search(s)
	return found
}

// CurrentNamePrefix renders the qualified prefix of the current position
// from the enclosing namespace and record scopes, outermost first.
func (m *Manager) CurrentNamePrefix(delimiter string) string {
	var parts []string
	for cur := m.current; cur != nil; cur = cur.Parent {
		if cur.Kind == graph.NamespaceScope || cur.Kind == graph.RecordScope {
			if cur.Node != nil && cur.Node.Base().Name != "" {
				parts = append([]string{cur.Node.Base().Name}, parts...)
			}
		}
	}
	return strings.Join(parts, delimiter)
}

// Qualify prepends the current name prefix to a simple name.
func (m *Manager) Qualify(name, delimiter string) string {
	prefix := m.CurrentNamePrefix(delimiter)
	if prefix == "" {
		return name
	}
	return prefix + delimiter + name
}
