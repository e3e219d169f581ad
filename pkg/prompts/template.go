// Package prompts builds chat model prompts from parameterized text.
//
// Templates use single braces for placeholders: "Explain {topic} briefly."
// A doubled brace ("{{" or "}}") is a literal brace. Placeholder names are
// made of letters, digits, and underscores.
package prompts

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"unicode"
)

// Vars maps placeholder names to the strings substituted for them.
type Vars map[string]string

// MissingVariableError is returned when a template is formatted without a
// value for one of its placeholders.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompts: missing variable %q", e.Name)
}

type segment struct {
	text     string
	variable bool
}

// Template is a single parameterized text. It is immutable and safe for
// concurrent use.
type Template struct {
	source   string
	segments []segment
	partial  Vars
}

// NewTemplate parses text into a Template.
func NewTemplate(text string) (*Template, error) {
	segs, err := parse(text)
	if err != nil {
		return nil, err
	}

	return &Template{source: text, segments: segs}, nil
}

// MustTemplate is like NewTemplate but panics on a parse error. It is meant
// for package-level templates built from constant strings.
func MustTemplate(text string) *Template {
	t, err := NewTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the unparsed template text.
func (t *Template) Source() string { return t.source }

// InputVariables returns the sorted, de-duplicated placeholder names that
// still need a value (partially bound names are excluded).
func (t *Template) InputVariables() []string {
	seen := make(map[string]struct{})
	for _, s := range t.segments {
		if !s.variable {
			continue
		}
		if _, bound := t.partial[s.text]; bound {
			continue
		}
		seen[s.text] = struct{}{}
	}

	return slices.Sorted(maps.Keys(seen))
}

// Partial returns a copy of t with the given variables pre-bound. Values
// passed to Format take precedence over partial ones.
func (t *Template) Partial(vars Vars) *Template {
	cp := *t
	cp.partial = mergeVars(t.partial, vars)
	return &cp
}

// Format substitutes vars into the template. Variables the template does
// not reference are ignored.
func (t *Template) Format(vars Vars) (string, error) {
	var b strings.Builder
	b.Grow(len(t.source))

	for _, s := range t.segments {
		if !s.variable {
			b.WriteString(s.text)
			continue
		}

		v, ok := vars[s.text]
		if !ok {
			v, ok = t.partial[s.text]
		}
		if !ok {
			return "", &MissingVariableError{Name: s.text}
		}

		b.WriteString(v)
	}

	return b.String(), nil
}

// Invoke formats the template into a single-user-message prompt.
func (t *Template) Invoke(_ context.Context, vars Vars) (Value, error) {
	s, err := t.Format(vars)
	if err != nil {
		return nil, err
	}
	return Text(s), nil
}

// Stream yields the formatted prompt once.
func (t *Template) Stream(ctx context.Context, vars Vars) iter.Seq2[Value, error] {
	return once(func() (Value, error) { return t.Invoke(ctx, vars) })
}

func parse(text string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("prompts: parse template: unclosed '{' at offset %d", i)
			}

			name := text[i+1 : i+1+end]
			if !validName(name) {
				return nil, fmt.Errorf("prompts: parse template: invalid variable name %q at offset %d", name, i)
			}

			flush()
			segs = append(segs, segment{text: name, variable: true})
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("prompts: parse template: single '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}

	flush()

	return segs, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func mergeVars(base, over Vars) Vars {
	out := make(Vars, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

func once[T any](fn func() (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		yield(fn())
	}
}
