package graph

import "cpg/internal/ctype"

// TranslationUnitDecl is the root produced for a single input file.
type TranslationUnitDecl struct {
	NodeBase
	Declarations []Declaration
	// Includes lists the include directives of the unit in source order.
	// Quoted includes that were found and spliced keep their resolved
	// path; system includes keep the bracketed spelling.
	Includes []string
}

func NewTranslationUnit(name string) *TranslationUnitDecl {
	tu := &TranslationUnitDecl{}
	stamp(&tu.NodeBase, name, "", nil)
	return tu
}

func (d *TranslationUnitDecl) AddDeclaration(decl Declaration) {
	d.Declarations = append(d.Declarations, decl)
}

// NamespaceDecl groups declarations under a named namespace (or package,
// or module, depending on the source language).
type NamespaceDecl struct {
	NodeBase
	Declarations []Declaration
}

func NewNamespaceDecl(name, code string, loc *PhysicalLocation) *NamespaceDecl {
	d := &NamespaceDecl{}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// RecordDecl is a struct, union, or class with its owned members.
type RecordDecl struct {
	NodeBase
	Kind         string // "struct", "union", "class", "interface"
	Fields       []*FieldDecl
	Methods      []*MethodDecl
	Constructors []*ConstructorDecl
	Records      []*RecordDecl
	SuperTypes   []*ctype.Type
	// This is the implicit receiver available inside method bodies.
	This *FieldDecl
}

func NewRecordDecl(name, kind, code string, loc *PhysicalLocation) *RecordDecl {
	d := &RecordDecl{Kind: kind}
	stamp(&d.NodeBase, name, code, loc)
	this := NewFieldDecl("this", code, loc)
	this.Implicit = true
	this.Type = ctype.NewObjectType(name)
	this.Type.Record = d
	d.This = this
	return d
}

// RecordName implements ctype.RecordRef.
func (d *RecordDecl) RecordName() string { return d.Name }

// SuperRecordRefs exposes resolved base records for type compatibility.
func (d *RecordDecl) SuperRecordRefs() []ctype.RecordRef {
	var out []ctype.RecordRef
	for _, t := range d.SuperTypes {
		if t.Record != nil {
			out = append(out, t.Record)
		}
	}
	return out
}

// Type returns the object type naming this record, resolved to it.
func (d *RecordDecl) Type() *ctype.Type {
	t := ctype.NewObjectType(d.Name)
	t.Record = d
	return t
}

// FunctionDecl declares (and possibly defines) a free function.
type FunctionDecl struct {
	NodeBase
	Parameters   []*ParameterDecl
	Body         Statement
	ReturnType   *ctype.Type
	IsDefinition bool
}

func NewFunctionDecl(name, code string, loc *PhysicalLocation) *FunctionDecl {
	d := &FunctionDecl{}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// IsVariadic reports whether the parameter list ends with the synthetic
// variadic marker.
func (d *FunctionDecl) IsVariadic() bool {
	n := len(d.Parameters)
	return n > 0 && d.Parameters[n-1].Variadic
}

// FixedParameterCount is the arity excluding the variadic marker.
func (d *FunctionDecl) FixedParameterCount() int {
	if d.IsVariadic() {
		return len(d.Parameters) - 1
	}
	return len(d.Parameters)
}

// DeclaredType is the function type built from the signature.
func (d *FunctionDecl) DeclaredType() *ctype.Type {
	var params []*ctype.Type
	for _, p := range d.Parameters {
		params = append(params, p.Type)
	}
	return ctype.NewFunctionType(params, d.ReturnType)
}

// MethodDecl is a function owned by a record.
type MethodDecl struct {
	FunctionDecl
	Record *RecordDecl
}

// NewMethodDecl allocates a method. MethodFromFunction is the promotion
// path used when a parsed free function turns out to be a member.
func NewMethodDecl(name, code string, loc *PhysicalLocation, record *RecordDecl) *MethodDecl {
	d := &MethodDecl{Record: record}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// MethodFromFunction allocates a fresh method carrying the attributes of
// fn. The caller is responsible for disconnecting fn afterwards; the two
// nodes have distinct identities.
func MethodFromFunction(fn *FunctionDecl, record *RecordDecl) *MethodDecl {
	m := NewMethodDecl(fn.Name, fn.Code, fn.Location, record)
	m.Parameters = fn.Parameters
	m.Body = fn.Body
	m.ReturnType = fn.ReturnType
	m.IsDefinition = fn.IsDefinition
	m.Scope = fn.Scope
	m.Comment = fn.Comment
	return m
}

// ConstructorDecl is a method that constructs its record.
type ConstructorDecl struct {
	MethodDecl
	// Type is the object type of the record being constructed.
	Type *ctype.Type
}

func NewConstructorDecl(name, code string, loc *PhysicalLocation, record *RecordDecl) *ConstructorDecl {
	d := &ConstructorDecl{}
	stamp(&d.NodeBase, name, code, loc)
	d.Record = record
	if record != nil {
		d.Type = record.Type()
	}
	return d
}

// ConstructorFromMethod promotes a method whose name matches its record.
func ConstructorFromMethod(m *MethodDecl) *ConstructorDecl {
	c := NewConstructorDecl(m.Name, m.Code, m.Location, m.Record)
	c.Parameters = m.Parameters
	c.Body = m.Body
	c.IsDefinition = m.IsDefinition
	c.Scope = m.Scope
	c.Comment = m.Comment
	return c
}

// FieldDecl is a variable owned by a record.
type FieldDecl struct {
	NodeBase
	Type        *ctype.Type
	Initializer Expression
	Modifiers   []string
}

func NewFieldDecl(name, code string, loc *PhysicalLocation) *FieldDecl {
	d := &FieldDecl{}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// FieldFromVariable promotes a variable parsed in record scope.
func FieldFromVariable(v *VariableDecl) *FieldDecl {
	f := NewFieldDecl(v.Name, v.Code, v.Location)
	f.Type = v.Type
	f.Initializer = v.Initializer
	f.Scope = v.Scope
	f.Comment = v.Comment
	return f
}

// VariableDecl is a local or global variable.
type VariableDecl struct {
	NodeBase
	Type        *ctype.Type
	Initializer Expression
}

func NewVariableDecl(name, code string, loc *PhysicalLocation) *VariableDecl {
	d := &VariableDecl{}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// ParameterDecl is a function parameter. The synthetic trailing marker of
// a variadic signature is a ParameterDecl with Variadic set.
type ParameterDecl struct {
	NodeBase
	Type          *ctype.Type
	ArgumentIndex int
	Variadic      bool
	Default       Expression
}

func NewParameterDecl(name, code string, loc *PhysicalLocation) *ParameterDecl {
	d := &ParameterDecl{}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// EnumDecl declares an enumeration and owns its constants.
type EnumDecl struct {
	NodeBase
	Constants []*EnumConstantDecl
}

func NewEnumDecl(name, code string, loc *PhysicalLocation) *EnumDecl {
	d := &EnumDecl{}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// EnumConstantDecl is one enumerator.
type EnumConstantDecl struct {
	NodeBase
	Type        *ctype.Type
	Initializer Expression
}

func NewEnumConstantDecl(name, code string, loc *PhysicalLocation) *EnumConstantDecl {
	d := &EnumConstantDecl{}
	stamp(&d.NodeBase, name, code, loc)
	return d
}

// TypedefDecl records a type alias. The alias is also registered with the
// type registry so later parses can expand it.
type TypedefDecl struct {
	NodeBase
	Target *ctype.Type
}

func NewTypedefDecl(alias, code string, loc *PhysicalLocation, target *ctype.Type) *TypedefDecl {
	d := &TypedefDecl{Target: target}
	stamp(&d.NodeBase, alias, code, loc)
	return d
}

func (*TranslationUnitDecl) declNode() {}
func (*NamespaceDecl) declNode()       {}
func (*RecordDecl) declNode()          {}
func (*FunctionDecl) declNode()        {}
func (*FieldDecl) declNode()           {}
func (*VariableDecl) declNode()        {}
func (*ParameterDecl) declNode()       {}
func (*EnumDecl) declNode()            {}
func (*EnumConstantDecl) declNode()    {}
func (*TypedefDecl) declNode()         {}

func (*FunctionDecl) valueDeclNode()     {}
func (*FieldDecl) valueDeclNode()        {}
func (*VariableDecl) valueDeclNode()     {}
func (*ParameterDecl) valueDeclNode()    {}
func (*EnumConstantDecl) valueDeclNode() {}
