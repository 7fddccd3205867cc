package ctype

// numericWidening lists, per source type name, the names a value may
// widen to without loss of meaning for compatibility purposes.
var numericWidening = map[string][]string{
	"bool":   {"char", "short", "int", "long", "float", "double"},
	"char":   {"short", "int", "long", "float", "double"},
	"short":  {"int", "long", "float", "double"},
	"int":    {"long", "float", "double"},
	"long":   {"float", "double"},
	"float":  {"double"},
	"double": {},
}

// Equal compares the canonicalized qualifier set, the base, and the
// wrapper stack of both types.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Qualifiers != b.Qualifiers {
		return false
	}
	if len(a.Wrappers) != len(b.Wrappers) {
		return false
	}
	for i := range a.Wrappers {
		if a.Wrappers[i] != b.Wrappers[i] {
			return false
		}
	}
	if a.Kind == Function {
		if !Equal(a.ReturnType, b.ReturnType) || len(a.Parameters) != len(b.Parameters) {
			return false
		}
		for i := range a.Parameters {
			if !Equal(a.Parameters[i], b.Parameters[i]) {
				return false
			}
		}
		return true
	}
	return a.Name == b.Name
}

// Compatible reports whether a value of type from may be used where to is
// expected: exact equality, widening among numeric builtins, conversion
// from a derived record to a resolved base record, and assignment of any
// pointer to void*.
func Compatible(from, to *Type) bool {
	if from == nil || to == nil {
		return false
	}
	if from.IsUnknown() || to.IsUnknown() {
		// Partial information never rules a candidate out.
		return true
	}
	if Equal(from, to) {
		return true
	}

	// Qualifier differences alone do not break compatibility.
	fa, ta := *from, *to
	fa.Qualifiers, ta.Qualifiers = Qualifiers{}, Qualifiers{}
	if Equal(&fa, &ta) {
		return true
	}

	if to.IsPointer() && to.Root().Name == "void" {
		return from.IsPointer()
	}

	if len(from.Wrappers) == 0 && len(to.Wrappers) == 0 {
		if widensTo(from.Name, to.Name) {
			return true
		}
		if derivesFrom(from, to) {
			return true
		}
	}

	// Pointers and references to a derived record convert to pointers and
	// references to its base.
	if len(from.Wrappers) == len(to.Wrappers) && len(from.Wrappers) > 0 {
		if derivesFrom(from.Root(), to.Root()) {
			return true
		}
	}

	return false
}

func widensTo(from, to string) bool {
	if from == to {
		return true
	}
	for _, w := range numericWidening[from] {
		if w == to {
			return true
		}
	}
	return false
}

// superProvider is implemented by record declarations whose inheritance
// pass has populated super-class links.
type superProvider interface {
	RecordRef
	SuperRecordRefs() []RecordRef
}

func derivesFrom(from, to *Type) bool {
	if from.Record == nil || to.Record == nil {
		return false
	}
	seen := map[RecordRef]bool{}
	var walk func(RecordRef) bool
	walk = func(r RecordRef) bool {
		if r == nil || seen[r] {
			return false
		}
		seen[r] = true
		if r == to.Record || r.RecordName() == to.Record.RecordName() {
			return true
		}
		sp, ok := r.(superProvider)
		if !ok {
			return false
		}
		for _, s := range sp.SuperRecordRefs() {
			if walk(s) {
				return true
			}
		}
		return false
	}
	return walk(from.Record)
}
