package lang

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Str renders v the way the str builtin does: strings verbatim, everything
// else as by [Repr].
func Str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return Repr(v)
}

// Repr renders v as a literal of the expression language where one exists.
func Repr(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}

		return "False"
	case string:
		return quote(v)
	case fmt.Stringer:
		return v.String()
	case SliceValue:
		return "slice(" + Repr(v.Start) + ", " + Repr(v.End) + ", " + Repr(v.Step) + ")"
	}

	switch n, _ := number(v); n := n.(type) {
	case int:
		return strconv.Itoa(n)
	case float64:
		return formatFloat(n)
	}

	if s, ok := sequence(v); ok {
		parts := make([]string, len(s))
		for i, e := range s {
			parts[i] = Repr(e)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	}

	if m, ok := mapping(v); ok {
		parts := make([]string, 0, len(m))
		for _, k := range slices.Sorted(maps.Keys(m)) {
			parts = append(parts, quote(k)+": "+Repr(m[k]))
		}

		return "{" + strings.Join(parts, ", ") + "}"
	}

	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}

	return strconv.FormatFloat(f, 'g', -1, 64)
}

// quote renders s as a string literal, preferring single quotes.
func quote(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}

	var b strings.Builder

	b.WriteByte(q)

	for i := range len(s) {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case q:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte(q)

	return b.String()
}
