package ctype

import (
	"strconv"
	"strings"
	"unicode"
)

var qualifierWords = map[string]struct{}{
	"const":    {},
	"volatile": {},
	"static":   {},
	"extern":   {},
}

// ignoredWords are storage or elaboration keywords that carry no type
// information once qualifiers are collected.
var ignoredWords = map[string]struct{}{
	"struct":   {},
	"class":    {},
	"union":    {},
	"enum":     {},
	"register": {},
	"inline":   {},
	"typedef":  {},
	"unsigned": {},
	"signed":   {},
	"long":     {},
	"short":    {},
}

// Parse turns a source type fragment into a Type. The scan is purely
// syntactic: qualifiers are collected, the base identifier extracted, and
// postfix modifiers produce the wrapper stack in source order. When
// resolveAlias is set, registered typedefs are expanded.
func Parse(text string, resolveAlias bool) *Type {
	return DefaultRegistry.Parse(text, resolveAlias)
}

func (r *Registry) Parse(text string, resolveAlias bool) *Type {
	text = strings.TrimSpace(text)
	if text == "" {
		return NewUnknownType()
	}

	if t, ok := parseFunctionPointer(text); ok {
		return t
	}

	var quals Qualifiers
	var base string
	var wrappers []Wrapper
	var modifierWords []string

	rest := text
	for rest != "" {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		switch rest[0] {
		case '*':
			wrappers = append(wrappers, Wrapper{Kind: Pointer})
			rest = rest[1:]
			continue
		case '&':
			wrappers = append(wrappers, Wrapper{Kind: Reference})
			rest = rest[1:]
			continue
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return NewUnknownType()
			}
			length := -1
			if n, err := strconv.Atoi(strings.TrimSpace(rest[1:end])); err == nil {
				length = n
			}
			wrappers = append(wrappers, Wrapper{Kind: Array, Length: length})
			rest = rest[end+1:]
			continue
		case '<':
			// Template arguments carry no structure we model; skip the
			// balanced argument list and keep the base name.
			depth := 0
			i := 0
			for ; i < len(rest); i++ {
				if rest[i] == '<' {
					depth++
				} else if rest[i] == '>' {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
			}
			rest = rest[i:]
			continue
		}

		word, tail := nextWord(rest)
		if word == "" {
			return NewUnknownType()
		}
		rest = tail
		if _, ok := qualifierWords[word]; ok {
			switch word {
			case "const":
				quals.Const = true
			case "volatile":
				quals.Volatile = true
			case "static":
				quals.Static = true
			case "extern":
				quals.Extern = true
			}
			continue
		}
		if _, ok := ignoredWords[word]; ok {
			modifierWords = append(modifierWords, word)
			continue
		}
		if base != "" {
			// A second identifier is the declared name, not the type.
			continue
		}
		base = word
	}

	if base == "" {
		// "unsigned" and friends alone still name a numeric type.
		if len(modifierWords) > 0 {
			base = strings.Join(modifierWords, " ")
		} else if len(wrappers) > 0 {
			base = "void"
		} else {
			return NewUnknownType()
		}
	}

	if resolveAlias {
		if target, ok := r.lookupAlias(base); ok {
			t := *target
			t.Qualifiers = mergeQualifiers(t.Qualifiers, quals)
			t.Wrappers = append(append([]Wrapper(nil), t.Wrappers...), wrappers...)
			return &t
		}
	}

	return &Type{Kind: Object, Name: base, Qualifiers: quals, Wrappers: wrappers}
}

// parseFunctionPointer recognizes the (*name)(args) shape via a
// structural scan and produces a function type wrapped in a pointer.
func parseFunctionPointer(text string) (*Type, bool) {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return nil, false
	}
	inner := strings.TrimSpace(text[open+1:])
	if !strings.HasPrefix(inner, "*") {
		return nil, false
	}
	close1 := strings.IndexByte(text[open:], ')')
	if close1 < 0 {
		return nil, false
	}
	close1 += open
	argsStart := strings.IndexByte(text[close1:], '(')
	if argsStart < 0 {
		return nil, false
	}
	argsStart += close1
	argsEnd := strings.LastIndexByte(text, ')')
	if argsEnd <= argsStart {
		return nil, false
	}

	retText := strings.TrimSpace(text[:open])
	ret := Parse(retText, true)
	var params []*Type
	argsText := strings.TrimSpace(text[argsStart+1 : argsEnd])
	if argsText != "" {
		for _, a := range splitTopLevel(argsText, ',') {
			params = append(params, Parse(strings.TrimSpace(a), true))
		}
	}
	fn := NewFunctionType(params, ret)
	fn.Wrappers = []Wrapper{{Kind: Pointer}}
	return fn, true
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<', '[':
			depth++
		case ')', '>', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func nextWord(s string) (word, rest string) {
	i := 0
	for i < len(s) {
		c := rune(s[i])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == ':' {
			i++
			continue
		}
		break
	}
	return s[:i], s[i:]
}

func mergeQualifiers(a, b Qualifiers) Qualifiers {
	return Qualifiers{
		Const:    a.Const || b.Const,
		Volatile: a.Volatile || b.Volatile,
		Static:   a.Static || b.Static,
		Extern:   a.Extern || b.Extern,
	}
}
