package passes

import (
	"cpg/internal/graph"
)

// index is the name lookup structure shared by the resolver passes. It is
// rebuilt per pass run, since earlier passes may have moved declarations.
type index struct {
	// records maps simple and qualified record names to their declaration.
	// The first registration wins.
	records map[string]*graph.RecordDecl
	// functions maps simple and qualified names to free functions.
	functions map[string][]*graph.FunctionDecl
	// methods maps simple method names across all records, for the
	// unknown-base fallback.
	methods map[string][]*graph.MethodDecl

	ordered []*graph.RecordDecl
}

func buildIndex(pc *Context) *index {
	idx := &index{
		records:   make(map[string]*graph.RecordDecl),
		functions: make(map[string][]*graph.FunctionDecl),
		methods:   make(map[string][]*graph.MethodDecl),
	}
	for _, unit := range pc.Units {
		delim := pc.Delimiter(unit)
		idx.addDeclarations(unit.Declarations, "", delim)
	}
	return idx
}

func (idx *index) addDeclarations(decls []graph.Declaration, prefix, delim string) {
	for _, d := range decls {
		switch v := d.(type) {
		case *graph.NamespaceDecl:
			idx.addDeclarations(v.Declarations, prefix+v.Name+delim, delim)
		case *graph.RecordDecl:
			idx.addRecord(v, prefix, delim)
		case *graph.FunctionDecl:
			idx.addFunction(v.Name, v)
			if prefix != "" {
				idx.addFunction(prefix+v.Name, v)
			}
		}
	}
}

func (idx *index) addRecord(rec *graph.RecordDecl, prefix, delim string) {
	if _, ok := idx.records[rec.Name]; !ok {
		idx.records[rec.Name] = rec
	}
	if prefix != "" {
		if _, ok := idx.records[prefix+rec.Name]; !ok {
			idx.records[prefix+rec.Name] = rec
		}
	}
	idx.ordered = append(idx.ordered, rec)
	for _, m := range rec.Methods {
		idx.methods[m.Name] = append(idx.methods[m.Name], m)
	}
	for _, nested := range rec.Records {
		idx.addRecord(nested, prefix+rec.Name+delim, delim)
	}
}

func (idx *index) addFunction(name string, fn *graph.FunctionDecl) {
	for _, existing := range idx.functions[name] {
		if existing == fn {
			return
		}
	}
	idx.functions[name] = append(idx.functions[name], fn)
}

// callablesOf collects every function-like declaration of a unit together
// with its owning record, so body walks know their receiver context.
type callable struct {
	fn     *graph.FunctionDecl
	record *graph.RecordDecl
}

func callablesOf(unit *graph.TranslationUnitDecl) []callable {
	var out []callable
	seen := make(map[*graph.NodeBase]bool)
	add := func(fn *graph.FunctionDecl, rec *graph.RecordDecl) {
		if fn == nil || seen[fn.Base()] {
			return
		}
		seen[fn.Base()] = true
		out = append(out, callable{fn: fn, record: rec})
	}
	graph.Walk(unit, func(n graph.Node) bool {
		switch v := n.(type) {
		case *graph.ConstructorDecl:
			add(&v.FunctionDecl, v.Record)
			return false
		case *graph.MethodDecl:
			add(&v.FunctionDecl, v.Record)
			return false
		case *graph.FunctionDecl:
			add(v, nil)
			return false
		}
		return true
	})
	return out
}

// findMember looks name up in the record's fields, then breadth-first in
// its resolved super records. "this" resolves to the implicit receiver.
func findMember(rec *graph.RecordDecl, name string) graph.ValueDeclaration {
	if name == "this" || name == "self" {
		return rec.This
	}
	seen := map[*graph.RecordDecl]bool{}
	queue := []*graph.RecordDecl{rec}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		if seen[r] {
			continue
		}
		seen[r] = true
		for _, f := range r.Fields {
			if f.Name == name {
				return f
			}
		}
		for _, t := range r.SuperTypes {
			if base, ok := t.Record.(*graph.RecordDecl); ok {
				queue = append(queue, base)
			}
		}
	}
	return nil
}

// methodsNamed collects methods with the name on the record and its super
// chain, oldest base last.
func methodsNamed(rec *graph.RecordDecl, name string) []*graph.MethodDecl {
	var out []*graph.MethodDecl
	seen := map[*graph.RecordDecl]bool{}
	queue := []*graph.RecordDecl{rec}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		if seen[r] {
			continue
		}
		seen[r] = true
		for _, m := range r.Methods {
			if m.Name == name {
				out = append(out, m)
			}
		}
		for _, t := range r.SuperTypes {
			if base, ok := t.Record.(*graph.RecordDecl); ok {
				queue = append(queue, base)
			}
		}
	}
	return out
}

// derivesFromRecord reports whether rec transitively names base among its
// super records. A record does not derive from itself.
func derivesFromRecord(rec, base *graph.RecordDecl) bool {
	seen := map[*graph.RecordDecl]bool{}
	queue := append([]*graph.RecordDecl(nil), superRecordsOf(rec)...)
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		if r == base {
			return true
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		queue = append(queue, superRecordsOf(r)...)
	}
	return false
}

func superRecordsOf(rec *graph.RecordDecl) []*graph.RecordDecl {
	var out []*graph.RecordDecl
	for _, t := range rec.SuperTypes {
		if s, ok := t.Record.(*graph.RecordDecl); ok {
			out = append(out, s)
		}
	}
	return out
}
