package ctype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "int", "int"},
		{"const qualified", "const char", "const char"},
		{"pointer", "char*", "char*"},
		{"pointer with space", "char *", "char*"},
		{"double pointer", "char**", "char**"},
		{"reference", "std::string&", "std::string&"},
		{"const pointer", "const char*", "const char*"},
		{"array", "int[10]", "int[10]"},
		{"unsized array", "int[]", "int[]"},
		{"elaborated struct", "struct Point", "Point"},
		{"unsigned alone", "unsigned", "unsigned"},
		{"unsigned long", "unsigned long", "unsigned long"},
		{"declared name skipped", "int count", "int"},
		{"template args dropped", "vector<int>", "vector"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in, false)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseUnknown(t *testing.T) {
	assert.True(t, Parse("", false).IsUnknown())
	assert.True(t, Parse("   ", false).IsUnknown())
}

func TestParseFunctionPointer(t *testing.T) {
	ft := Parse("int (*handler)(int, char*)", false)

	require.Equal(t, Function, ft.Kind)
	assert.True(t, ft.IsPointer())
	require.Len(t, ft.Parameters, 2)
	assert.Equal(t, "int", ft.Parameters[0].Name)
	assert.Equal(t, "char*", ft.Parameters[1].String())
	require.NotNil(t, ft.ReturnType)
	assert.Equal(t, "int", ft.ReturnType.Name)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Parse("const int*", false), Parse("const int *", false)))
	assert.False(t, Equal(Parse("int", false), Parse("const int", false)))
	assert.False(t, Equal(Parse("int*", false), Parse("int", false)))
	assert.False(t, Equal(Parse("int*", false), Parse("int[]", false)))

	a := NewFunctionType([]*Type{NewObjectType("int")}, NewObjectType("void"))
	b := NewFunctionType([]*Type{NewObjectType("int")}, NewObjectType("void"))
	c := NewFunctionType(nil, NewObjectType("void"))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestCompatible(t *testing.T) {
	t.Run("exact", func(t *testing.T) {
		assert.True(t, Compatible(Parse("int", false), Parse("int", false)))
	})

	t.Run("widening", func(t *testing.T) {
		assert.True(t, Compatible(Parse("int", false), Parse("long", false)))
		assert.True(t, Compatible(Parse("char", false), Parse("double", false)))
		assert.False(t, Compatible(Parse("double", false), Parse("int", false)))
	})

	t.Run("qualifier mismatch tolerated", func(t *testing.T) {
		assert.True(t, Compatible(Parse("char*", false), Parse("const char*", false)))
	})

	t.Run("void pointer absorbs any pointer", func(t *testing.T) {
		assert.True(t, Compatible(Parse("Point*", false), Parse("void*", false)))
		assert.False(t, Compatible(Parse("int", false), Parse("void*", false)))
	})

	t.Run("unknown never rules out", func(t *testing.T) {
		assert.True(t, Compatible(NewUnknownType(), Parse("int", false)))
		assert.True(t, Compatible(Parse("int", false), NewUnknownType()))
	})

	t.Run("nil is not compatible", func(t *testing.T) {
		assert.False(t, Compatible(nil, Parse("int", false)))
	})
}

type fakeRecord struct {
	name   string
	supers []RecordRef
}

func (r *fakeRecord) RecordName() string           { return r.name }
func (r *fakeRecord) SuperRecordRefs() []RecordRef { return r.supers }

func TestCompatibleInheritance(t *testing.T) {
	base := &fakeRecord{name: "Shape"}
	mid := &fakeRecord{name: "Polygon", supers: []RecordRef{base}}
	derived := &fakeRecord{name: "Square", supers: []RecordRef{mid}}

	from := NewObjectType("Square")
	from.Record = derived
	to := NewObjectType("Shape")
	to.Record = base

	t.Run("value conversion over two levels", func(t *testing.T) {
		assert.True(t, Compatible(from, to))
		assert.False(t, Compatible(to, from))
	})

	t.Run("pointer conversion follows", func(t *testing.T) {
		fp := *from
		fp.Wrappers = []Wrapper{{Kind: Pointer}}
		tp := *to
		tp.Wrappers = []Wrapper{{Kind: Pointer}}
		assert.True(t, Compatible(&fp, &tp))
	})

	t.Run("cycle terminates", func(t *testing.T) {
		a := &fakeRecord{name: "A"}
		b := &fakeRecord{name: "B", supers: []RecordRef{a}}
		a.supers = []RecordRef{b}

		fa := NewObjectType("A")
		fa.Record = a
		tc := NewObjectType("C")
		tc.Record = &fakeRecord{name: "C"}
		assert.False(t, Compatible(fa, tc))
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.RegisterAlias("size_t", &Type{Kind: Object, Name: "unsigned long"})

	t.Run("parse expands alias", func(t *testing.T) {
		got := r.Parse("size_t", true)
		assert.Equal(t, "unsigned long", got.Name)
	})

	t.Run("alias keeps outer wrappers", func(t *testing.T) {
		got := r.Parse("const size_t*", true)
		assert.Equal(t, "unsigned long", got.Name)
		assert.True(t, got.Qualifiers.Const)
		assert.True(t, got.IsPointer())
	})

	t.Run("refresh after late registration", func(t *testing.T) {
		stale := r.Parse("my_handle", true)
		assert.Equal(t, "my_handle", stale.Name)

		r.RegisterAlias("my_handle", Parse("void*", false))
		fresh := r.Refresh(stale)
		assert.Equal(t, "void", fresh.Name)
		assert.True(t, fresh.IsPointer())
	})

	t.Run("reset drops aliases", func(t *testing.T) {
		r.Reset()
		got := r.Parse("size_t", true)
		assert.Equal(t, "size_t", got.Name)
	})
}

func TestDereference(t *testing.T) {
	pp := Parse("int**", false)
	p := pp.Dereference()
	assert.Equal(t, "int*", p.String())
	v := p.Dereference()
	assert.Equal(t, "int", v.String())
	assert.Equal(t, "int", v.Dereference().String())
	assert.Equal(t, "int", pp.Root().String())
}
