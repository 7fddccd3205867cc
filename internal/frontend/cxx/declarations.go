package cxx

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cpg/internal/ctype"
	"cpg/internal/graph"
)

// fnPtrName extracts the declared name from a function pointer
// declarator of the shape (*name).
var fnPtrName = regexp.MustCompile(`\(\s*\*\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)`)

// handleTopLevel translates one file-level construct. A single
// declaration statement may declare several entities.
func (f *Frontend) handleTopLevel(ctx context.Context, node *sitter.Node) []graph.Declaration {
	decls := f.translateTopLevel(ctx, node)
	if doc := f.docCommentBefore(node); doc != "" {
		for _, d := range decls {
			if d != nil && d.Base().Comment == "" {
				d.Base().Comment = doc
			}
		}
	}
	return decls
}

func (f *Frontend) translateTopLevel(ctx context.Context, node *sitter.Node) []graph.Declaration {
	switch node.Type() {
	case "function_definition":
		return []graph.Declaration{f.handleFunctionDefinition(ctx, node)}
	case "declaration":
		return f.handleVariableDeclaration(ctx, node)
	case "struct_specifier", "class_specifier", "union_specifier":
		if d := f.handleRecord(ctx, node); d != nil {
			return []graph.Declaration{d}
		}
		return nil
	case "enum_specifier":
		if d := f.handleEnum(node); d != nil {
			return []graph.Declaration{d}
		}
		return nil
	case "type_definition":
		if d := f.handleTypedef(node); d != nil {
			return []graph.Declaration{d}
		}
		return nil
	case "namespace_definition":
		return []graph.Declaration{f.handleNamespace(ctx, node)}
	case "template_declaration":
		// The template parameter list carries no graph structure we
		// model; translate the wrapped declaration.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "function_definition", "declaration", "struct_specifier", "class_specifier", "union_specifier":
				return f.handleTopLevel(ctx, child)
			}
		}
		return nil
	case "linkage_specification":
		// extern "C" { ... }
		if body := node.ChildByFieldName("body"); body != nil {
			var out []graph.Declaration
			for i := 0; i < int(body.NamedChildCount()); i++ {
				out = append(out, f.handleTopLevel(ctx, body.NamedChild(i))...)
			}
			return out
		}
		return nil
	case "preproc_ifdef", "preproc_if":
		// Conditional blocks such as include guards: the first branch is
		// translated; #else and #elif branches are not.
		var out []graph.Declaration
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "preproc_include" {
				f.handleInclude(ctx, child)
				continue
			}
			out = append(out, f.handleTopLevel(ctx, child)...)
		}
		return out
	case "comment", "preproc_call", "preproc_def", "preproc_function_def",
		"using_declaration", ";":
		return nil
	case "expression_statement":
		// Stray top-level expressions appear in headers using macros the
		// parser cannot expand.
		return nil
	}
	f.logger.Debug("untranslated top-level node", "kind", node.Type(), "file", f.file)
	return nil
}

// declarator is the flattened result of descending a declarator chain.
type declarator struct {
	name      string
	nameNode  *sitter.Node
	fn        *sitter.Node // function_declarator when the entity is callable
	fnPointer bool
	value     *sitter.Node // initializer expression
	suffix    string       // pointer, reference, and array spellings
}

// analyzeDeclarator descends nested declarator nodes collecting the
// declared name, the type suffix, and whether the entity is a function
// or a function pointer.
func (f *Frontend) analyzeDeclarator(node *sitter.Node) declarator {
	var d declarator
	var arrays string
	cur := node
	for cur != nil {
		switch cur.Type() {
		case "init_declarator":
			d.value = cur.ChildByFieldName("value")
			cur = cur.ChildByFieldName("declarator")
		case "pointer_declarator":
			d.suffix += "*"
			cur = cur.ChildByFieldName("declarator")
		case "reference_declarator":
			d.suffix += "&"
			next := cur.ChildByFieldName("declarator")
			if next == nil && cur.NamedChildCount() > 0 {
				next = cur.NamedChild(0)
			}
			cur = next
		case "array_declarator":
			if size := cur.ChildByFieldName("size"); size != nil {
				arrays += "[" + f.text(size) + "]"
			} else {
				arrays += "[]"
			}
			cur = cur.ChildByFieldName("declarator")
		case "function_declarator":
			inner := cur.ChildByFieldName("declarator")
			if inner != nil && inner.Type() == "parenthesized_declarator" {
				d.fnPointer = true
			}
			d.fn = cur
			cur = inner
		case "parenthesized_declarator":
			if cur.NamedChildCount() > 0 {
				cur = cur.NamedChild(0)
			} else {
				cur = nil
			}
		case "identifier", "field_identifier", "qualified_identifier",
			"destructor_name", "operator_name", "type_identifier":
			d.name = f.text(cur)
			d.nameNode = cur
			cur = nil
		default:
			cur = nil
		}
	}
	d.suffix += arrays
	return d
}

// typeOf assembles the declared type from the type node and the
// declarator suffix, expanding registered aliases.
func (f *Frontend) typeOf(typeNode *sitter.Node, d declarator) *ctype.Type {
	return ctype.Parse(f.text(typeNode)+d.suffix, true)
}

// handleVariableDeclaration translates a declaration node into variable
// declarations, or a function prototype when the declarator is callable.
func (f *Frontend) handleVariableDeclaration(ctx context.Context, node *sitter.Node) []graph.Declaration {
	typeNode := node.ChildByFieldName("type")
	code := f.text(node)
	loc := f.location(node)

	var out []graph.Declaration
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "init_declarator", "pointer_declarator", "reference_declarator",
			"array_declarator", "function_declarator", "identifier", "qualified_identifier":
		default:
			continue
		}
		d := f.analyzeDeclarator(child)
		if d.name == "" {
			continue
		}

		if d.fn != nil && d.fnPointer {
			// A function pointer declarator declares a value, not a
			// callable. The spelled name sits inside the parentheses.
			if m := fnPtrName.FindStringSubmatch(code); m != nil {
				d.name = m[1]
			}
			v := graph.NewVariableDecl(d.name, code, loc)
			v.Type = ctype.Parse(code, true)
			if d.value != nil {
				v.Initializer = f.handleExpression(d.value)
			}
			f.scope.AddDeclaration(v)
			out = append(out, v)
			continue
		}

		if d.fn != nil {
			// A prototype: function declared without a body.
			fn := f.buildFunction(ctx, node, typeNode, d, nil)
			out = append(out, f.reparent(fn))
			continue
		}

		v := graph.NewVariableDecl(d.name, code, loc)
		v.Type = f.typeOf(typeNode, d)
		if d.value != nil {
			v.Initializer = f.handleExpression(d.value)
		}
		f.scope.AddDeclaration(v)
		out = append(out, v)
	}
	return out
}

// handleFunctionDefinition translates a function definition, attaching it
// to its record when the declared name or the lexical position says it is
// a member.
func (f *Frontend) handleFunctionDefinition(ctx context.Context, node *sitter.Node) graph.Declaration {
	typeNode := node.ChildByFieldName("type")
	d := f.analyzeDeclarator(node.ChildByFieldName("declarator"))
	body := node.ChildByFieldName("body")

	fn := f.buildFunction(ctx, node, typeNode, d, body)
	return f.reparent(fn)
}

// buildFunction constructs the function node, its parameters, and its
// body inside a fresh function scope.
func (f *Frontend) buildFunction(ctx context.Context, node, typeNode *sitter.Node, d declarator, body *sitter.Node) *graph.FunctionDecl {
	fn := graph.NewFunctionDecl(d.name, f.text(node), f.location(node))
	if typeNode != nil {
		fn.ReturnType = ctype.Parse(f.text(typeNode)+d.suffix, true)
	} else {
		// Constructors and destructors have no spelled return type.
		fn.ReturnType = ctype.NewObjectType("void")
	}
	fn.IsDefinition = body != nil

	f.scope.EnterScope(graph.FunctionScope, fn)
	if d.fn != nil {
		if params := d.fn.ChildByFieldName("parameters"); params != nil {
			f.handleParameters(params, fn)
		}
	}
	if body != nil {
		fn.Body = f.handleBlockScoped(ctx, body)
	}
	f.scope.LeaveScope(fn)
	return fn
}

// handleParameters fills the parameter list. The trailing ellipsis of a
// variadic signature becomes a synthetic parameter so calls can bind
// surplus arguments to it.
func (f *Frontend) handleParameters(list *sitter.Node, fn *graph.FunctionDecl) {
	index := 0
	for i := 0; i < int(list.ChildCount()); i++ {
		child := list.Child(i)
		switch child.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
			d := f.analyzeDeclarator(child.ChildByFieldName("declarator"))
			if d.name == "" && f.text(child.ChildByFieldName("type")) == "void" {
				// The (void) spelling of an empty parameter list.
				continue
			}
			p := graph.NewParameterDecl(d.name, f.text(child), f.location(child))
			p.Type = f.typeOf(child.ChildByFieldName("type"), d)
			p.ArgumentIndex = index
			if def := child.ChildByFieldName("default_value"); def != nil {
				p.Default = f.handleExpression(def)
			}
			f.scope.AddDeclaration(p)
			fn.Parameters = append(fn.Parameters, p)
			index++
		case "variadic_parameter", "variadic_parameter_declaration", "...":
			p := graph.NewParameterDecl("va_args", f.text(child), f.location(child))
			p.Type = ctype.NewUnknownType()
			p.ArgumentIndex = index
			p.Variadic = true
			p.Implicit = true
			f.scope.AddDeclaration(p)
			fn.Parameters = append(fn.Parameters, p)
			index++
		}
	}
}

// reparent moves a function parsed at file scope into the record its
// qualified name points at, and promotes record-name matches to
// constructors. A function translated while a record scope is current is
// attached to that record directly.
func (f *Frontend) reparent(fn *graph.FunctionDecl) graph.Declaration {
	if rec := f.scope.CurrentRecord(); rec != nil && f.scope.InRecord() {
		return f.attachToRecord(fn, rec, fn.Name)
	}

	name := fn.Name
	i := strings.LastIndex(name, "::")
	if i < 0 {
		f.scope.AddDeclaration(fn)
		return fn
	}
	recName := name[:i]
	local := name[i+2:]
	rec, ok := f.records[recName]
	if !ok {
		f.logger.Warn("qualified definition names unknown record", "name", name, "file", f.file)
		f.scope.AddDeclaration(fn)
		return fn
	}
	fn.Name = local
	return f.attachToRecord(fn, rec, local)
}

// attachToRecord promotes fn into rec as a method, or a constructor when
// the local name equals the record name. Out-of-line definitions replace
// the in-class prototype's body rather than adding a second member.
func (f *Frontend) attachToRecord(fn *graph.FunctionDecl, rec *graph.RecordDecl, local string) graph.Declaration {
	if local == rec.Name {
		if existing := findConstructor(rec, fn); existing != nil {
			adoptDefinition(&existing.FunctionDecl, fn)
			return existing
		}
		m := graph.MethodFromFunction(fn, rec)
		c := graph.ConstructorFromMethod(m)
		rec.Constructors = append(rec.Constructors, c)
		declareInRecordScope(rec, c)
		return c
	}
	if existing := findMethod(rec, local, fn); existing != nil {
		adoptDefinition(&existing.FunctionDecl, fn)
		return existing
	}
	m := graph.MethodFromFunction(fn, rec)
	rec.Methods = append(rec.Methods, m)
	declareInRecordScope(rec, m)
	return m
}

// declareInRecordScope inserts a promoted member into the record's own
// scope, so qualified lookups find it after reparenting.
func declareInRecordScope(rec *graph.RecordDecl, d graph.ValueDeclaration) {
	rs := rec.This.Base().Scope
	if rs == nil {
		return
	}
	d.Base().Scope = rs
	rs.Declare(d)
}

// findMethod locates a previously declared method matching name and
// arity, so an out-of-line body lands on the prototype.
func findMethod(rec *graph.RecordDecl, name string, fn *graph.FunctionDecl) *graph.MethodDecl {
	for _, m := range rec.Methods {
		if m.Name == name && len(m.Parameters) == len(fn.Parameters) && !m.IsDefinition {
			return m
		}
	}
	return nil
}

func findConstructor(rec *graph.RecordDecl, fn *graph.FunctionDecl) *graph.ConstructorDecl {
	for _, c := range rec.Constructors {
		if len(c.Parameters) == len(fn.Parameters) && !c.IsDefinition {
			return c
		}
	}
	return nil
}

// adoptDefinition moves body and parameters from an out-of-line
// definition onto the declared member.
func adoptDefinition(dst, src *graph.FunctionDecl) {
	dst.Body = src.Body
	dst.Parameters = src.Parameters
	dst.IsDefinition = true
	if dst.ReturnType.IsUnknown() {
		dst.ReturnType = src.ReturnType
	}
	graph.Disconnect(src)
}

// handleRecord translates a struct, class, or union with its members.
// Anonymous specifiers used purely as type references return nil.
func (f *Frontend) handleRecord(ctx context.Context, node *sitter.Node) *graph.RecordDecl {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if body == nil {
		// A bare "struct Foo x;" reference or forward declaration.
		if nameNode != nil {
			f.forwardDeclare(f.text(nameNode))
		}
		return nil
	}

	kind := strings.TrimSuffix(node.Type(), "_specifier")
	name := f.text(nameNode)
	rec := graph.NewRecordDecl(name, kind, f.text(node), f.location(node))
	f.registerRecord(rec)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "base_class_clause" {
			f.handleBases(child, rec)
		}
	}

	f.scope.EnterScope(graph.RecordScope, rec)
	f.scope.AddDeclaration(rec.This)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		f.handleMember(ctx, body.NamedChild(i), rec)
	}
	f.scope.LeaveScope(rec)

	f.synthesizeDefaultConstructor(rec)
	return rec
}

func (f *Frontend) handleBases(clause *sitter.Node, rec *graph.RecordDecl) {
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "type_identifier", "qualified_identifier", "template_type":
			rec.SuperTypes = append(rec.SuperTypes, ctype.Parse(f.text(child), true))
		}
	}
}

// handleMember translates one entry of a record body.
func (f *Frontend) handleMember(ctx context.Context, node *sitter.Node, rec *graph.RecordDecl) {
	switch node.Type() {
	case "field_declaration":
		f.handleFieldDeclaration(node, rec)
	case "function_definition":
		// Attachment happens during reparenting, which sees the record
		// scope we are inside.
		f.handleFunctionDefinition(ctx, node)
	case "declaration":
		for _, d := range f.handleVariableDeclaration(ctx, node) {
			if v, ok := d.(*graph.VariableDecl); ok {
				rec.Fields = append(rec.Fields, graph.FieldFromVariable(v))
				graph.Disconnect(v)
			}
		}
	case "struct_specifier", "class_specifier", "union_specifier":
		if inner := f.handleRecord(ctx, node); inner != nil {
			rec.Records = append(rec.Records, inner)
		}
	case "access_specifier", "comment", ";":
	default:
		f.logger.Debug("untranslated record member", "kind", node.Type(), "record", rec.Name)
	}
}

// handleFieldDeclaration translates one field_declaration, which may be a
// data member, a function pointer member, or a method prototype.
func (f *Frontend) handleFieldDeclaration(node *sitter.Node, rec *graph.RecordDecl) {
	typeNode := node.ChildByFieldName("type")
	declNode := node.ChildByFieldName("declarator")
	code := f.text(node)
	loc := f.location(node)

	// Nested record definitions spell their members inline.
	if typeNode != nil && declNode == nil {
		switch typeNode.Type() {
		case "struct_specifier", "class_specifier", "union_specifier":
			if inner := f.handleRecord(context.Background(), typeNode); inner != nil {
				rec.Records = append(rec.Records, inner)
			}
			return
		}
	}
	if declNode == nil {
		return
	}

	d := f.analyzeDeclarator(declNode)

	if d.fn != nil && d.fnPointer {
		// A member declared through a function pointer declarator is a
		// data field holding a callable value.
		name := d.name
		if m := fnPtrName.FindStringSubmatch(code); m != nil {
			name = m[1]
		}
		fd := graph.NewFieldDecl(name, code, loc)
		fd.Type = ctype.Parse(code, true)
		f.scope.AddDeclaration(fd)
		rec.Fields = append(rec.Fields, fd)
		return
	}

	if d.fn != nil {
		// Method prototype without body.
		fn := graph.NewFunctionDecl(d.name, code, loc)
		if typeNode != nil {
			fn.ReturnType = ctype.Parse(f.text(typeNode)+d.suffix, true)
		} else {
			fn.ReturnType = ctype.NewObjectType("void")
		}
		f.scope.EnterScope(graph.FunctionScope, fn)
		if params := d.fn.ChildByFieldName("parameters"); params != nil {
			f.handleParameters(params, fn)
		}
		f.scope.LeaveScope(fn)
		if d.name == rec.Name {
			m := graph.MethodFromFunction(fn, rec)
			rec.Constructors = append(rec.Constructors, graph.ConstructorFromMethod(m))
		} else {
			m := graph.MethodFromFunction(fn, rec)
			rec.Methods = append(rec.Methods, m)
			f.scope.AddDeclaration(m)
		}
		graph.Disconnect(fn)
		return
	}

	fd := graph.NewFieldDecl(d.name, code, loc)
	fd.Type = f.typeOf(typeNode, d)
	if d.value != nil {
		fd.Initializer = f.handleExpression(d.value)
	}
	f.scope.AddDeclaration(fd)
	rec.Fields = append(rec.Fields, fd)
}

// synthesizeDefaultConstructor gives a struct or class with no spelled
// constructor an implicit zero-argument one, so construct expressions
// have a candidate to bind. Unions get no synthesized constructor.
func (f *Frontend) synthesizeDefaultConstructor(rec *graph.RecordDecl) {
	if rec.Kind == "union" || len(rec.Constructors) > 0 {
		return
	}
	c := graph.NewConstructorDecl(rec.Name, "", rec.Location, rec)
	c.Record = rec
	c.Type = rec.Type()
	c.Implicit = true
	rec.Constructors = append(rec.Constructors, c)
}

// handleEnum translates an enum specifier with its constants.
func (f *Frontend) handleEnum(node *sitter.Node) *graph.EnumDecl {
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	name := f.text(node.ChildByFieldName("name"))
	e := graph.NewEnumDecl(name, f.text(node), f.location(node))
	enumType := ctype.NewObjectType(name)
	if name == "" {
		enumType = ctype.NewObjectType("int")
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "enumerator" {
			continue
		}
		c := graph.NewEnumConstantDecl(f.text(child.ChildByFieldName("name")), f.text(child), f.location(child))
		c.Type = enumType
		if v := child.ChildByFieldName("value"); v != nil {
			c.Initializer = f.handleExpression(v)
		}
		f.scope.AddDeclaration(c)
		e.Constants = append(e.Constants, c)
	}
	return e
}

// handleTypedef translates a type alias and registers it so later type
// fragments expand through it.
func (f *Frontend) handleTypedef(node *sitter.Node) *graph.TypedefDecl {
	typeNode := node.ChildByFieldName("type")
	declNode := node.ChildByFieldName("declarator")
	if typeNode == nil || declNode == nil {
		return nil
	}

	// The aliased record may be defined inline: typedef struct {...} name;
	if inner := f.innerRecordOf(typeNode); inner != nil {
		d := f.analyzeDeclarator(declNode)
		target := ctype.NewObjectType(inner.Name)
		target.Record = inner
		if inner.Name == "" {
			inner.Name = d.name
			target.Name = d.name
		}
		ctype.RegisterAlias(d.name, target)
		td := graph.NewTypedefDecl(d.name, f.text(node), f.location(node), target)
		return td
	}

	d := f.analyzeDeclarator(declNode)
	target := ctype.Parse(f.text(typeNode)+d.suffix, true)
	ctype.RegisterAlias(d.name, target)
	return graph.NewTypedefDecl(d.name, f.text(node), f.location(node), target)
}

func (f *Frontend) innerRecordOf(typeNode *sitter.Node) *graph.RecordDecl {
	switch typeNode.Type() {
	case "struct_specifier", "class_specifier", "union_specifier":
		if typeNode.ChildByFieldName("body") != nil {
			return f.handleRecord(context.Background(), typeNode)
		}
	}
	return nil
}

// handleNamespace translates a namespace with its declarations.
func (f *Frontend) handleNamespace(ctx context.Context, node *sitter.Node) *graph.NamespaceDecl {
	name := f.text(node.ChildByFieldName("name"))
	ns := graph.NewNamespaceDecl(name, f.text(node), f.location(node))

	f.scope.EnterScope(graph.NamespaceScope, ns)
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			for _, d := range f.handleTopLevel(ctx, body.NamedChild(i)) {
				ns.Declarations = append(ns.Declarations, d)
			}
		}
	}
	f.scope.LeaveScope(ns)
	return ns
}

// registerRecord indexes a record under both its simple and qualified
// names so qualified definitions can find it.
func (f *Frontend) registerRecord(rec *graph.RecordDecl) {
	if f.records == nil {
		f.records = make(map[string]*graph.RecordDecl)
	}
	f.records[rec.Name] = rec
	if q := f.scope.Qualify(rec.Name, "::"); q != rec.Name {
		f.records[q] = rec
	}
	delete(f.forwards, rec.Name)
}

func (f *Frontend) forwardDeclare(name string) {
	if _, known := f.records[name]; known {
		return
	}
	if f.forwards == nil {
		f.forwards = make(map[string]bool)
	}
	f.forwards[name] = true
}
