package lang

import (
	"cmp"
	"log/slog"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/ardnew/livexpr/scope"
)

// Attributer is implemented by values that expose named attributes.
type Attributer interface {
	Attr(name string) (any, bool)
}

// AttrSetter is implemented by values whose attributes can be assigned.
type AttrSetter interface {
	SetAttr(name string, v any) error
}

// number normalises Go numeric kinds to int or float64.
func number(v any) (any, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case float64:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return float64(v), true
	}

	return nil, false
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case int:
		return float64(v)
	case float64:
		return v
	}

	return math.NaN()
}

// toInt converts integral numbers to int.
func toInt(v any) (int, bool) {
	n, ok := number(v)
	if !ok {
		return 0, false
	}

	i, ok := n.(int)

	return i, ok
}

func isNegative(v any) bool {
	switch n, _ := number(v); n := n.(type) {
	case int:
		return n < 0
	case float64:
		return n < 0 || math.Signbit(n)
	}

	return false
}

// typeName names the dynamic type of v the way error messages show it.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "None"
	case bool:
		return "bool"
	case string:
		return "str"
	case []any, *scope.List:
		return "list"
	case map[string]any, *scope.Dict:
		return "dict"
	case *Function:
		return "function"
	}

	switch n, _ := number(v); n.(type) {
	case int:
		return "int"
	case float64:
		return "float"
	}

	return reflect.TypeOf(v).String()
}

func typeError(op string, vs ...any) *Error {
	attrs := []slog.Attr{slog.String("operator", op)}
	for _, v := range vs {
		attrs = append(attrs, slog.String("type", typeName(v)))
	}

	return ErrType.With(attrs...)
}

// truthy reports the truth value of v.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case *scope.List:
		return v.Len() > 0
	case *scope.Dict:
		return v.Len() > 0
	}

	if n, ok := number(v); ok {
		return toFloat(n) != 0
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}

	return true
}

// sequence returns the elements of list-like values.
func sequence(v any) ([]any, bool) {
	switch v := v.(type) {
	case []any:
		return v, true
	case *scope.List:
		return v.Items(), true
	case string, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

// mapping returns the entries of dict-like values.
func mapping(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case map[string]any:
		return v, true
	case *scope.Dict:
		return v.Items(), true
	}

	return nil, false
}

// iterate returns the items a comprehension loops over: list elements,
// the characters of a string, or the sorted keys of a dict.
func iterate(v any) ([]any, error) {
	if s, ok := sequence(v); ok {
		return s, nil
	}

	if s, ok := v.(string); ok {
		out := make([]any, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}

		return out, nil
	}

	if m, ok := mapping(v); ok {
		keys := make([]any, 0, len(m))
		for _, k := range slices.Sorted(maps.Keys(m)) {
			keys = append(keys, k)
		}

		return keys, nil
	}

	return nil, ErrType.With(
		slog.String("reason", "not iterable"),
		slog.String("type", typeName(v)),
	)
}

// equal implements ==.
func equal(a, b any) bool {
	an, aok := number(a)
	bn, bok := number(b)

	if aok && bok {
		ai, aInt := an.(int)
		bi, bInt := bn.(int)

		if aInt && bInt {
			return ai == bi
		}

		return toFloat(an) == toFloat(bn)
	}

	if as, ok := sequence(a); ok {
		bs, ok := sequence(b)

		return ok && slices.EqualFunc(as, bs, equal)
	}

	if am, ok := mapping(a); ok {
		bm, ok := mapping(b)
		if !ok || len(am) != len(bm) {
			return false
		}

		for k, av := range am {
			if bv, ok := bm[k]; !ok || !equal(av, bv) {
				return false
			}
		}

		return true
	}

	return identical(a, b)
}

// identical implements "is".
func identical(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)

	switch {
	case ta != tb:
		return false
	case ta == nil:
		return true
	case ta.Comparable():
		return a == b
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)

	switch ra.Kind() {
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	case reflect.Map, reflect.Func:
		return ra.Pointer() == rb.Pointer()
	}

	return reflect.DeepEqual(a, b)
}

// compare orders two values of compatible type.
func compare(a, b any) (int, error) {
	an, aok := number(a)
	bn, bok := number(b)

	if aok && bok {
		ai, aInt := an.(int)
		bi, bInt := bn.(int)

		if aInt && bInt {
			return cmp.Compare(ai, bi), nil
		}

		return cmp.Compare(toFloat(an), toFloat(bn)), nil
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}

	if as, ok := sequence(a); ok {
		if bs, ok := sequence(b); ok {
			for i := range min(len(as), len(bs)) {
				if c, err := compare(as[i], bs[i]); err != nil || c != 0 {
					return c, err
				}
			}

			return cmp.Compare(len(as), len(bs)), nil
		}
	}

	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return cmp.Compare(boolInt(ab), boolInt(bb)), nil
		}
	}

	return 0, typeError("<", a, b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// member implements "in".
func member(item, container any) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, typeError("in", item, container)
		}

		return strings.Contains(c, s), nil

	case *scope.Dict:
		k, ok := item.(string)
		if !ok {
			return false, nil
		}

		_, found := c.Get(k)

		return found, nil

	case map[string]any:
		k, ok := item.(string)
		if !ok {
			return false, nil
		}

		_, found := c[k]

		return found, nil
	}

	if s, ok := sequence(container); ok {
		return slices.ContainsFunc(s, func(v any) bool { return equal(item, v) }), nil
	}

	return false, typeError("in", item, container)
}

func negate(v any) (any, error) {
	switch n, _ := number(v); n := n.(type) {
	case int:
		return -n, nil
	case float64:
		return -n, nil
	}

	return nil, typeError("-", v)
}

// binary applies a binary operator other than "and" and "or".
func binary(op string, l, r any) (any, error) {
	switch op {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	case "is":
		return identical(l, r), nil
	case "is not":
		return !identical(l, r), nil
	case "in":
		return member(l, r)
	case "not in":
		ok, err := member(l, r)

		return !ok, err
	case "<", ">", "<=", ">=":
		c, err := compare(l, r)
		if err != nil {
			return nil, typeError(op, l, r)
		}

		switch op {
		case "<":
			return c < 0, nil
		case ">":
			return c > 0, nil
		case "<=":
			return c <= 0, nil
		default:
			return c >= 0, nil
		}
	}

	ln, lok := number(l)
	rn, rok := number(r)

	if lok && rok {
		return arith(op, ln, rn)
	}

	switch op {
	case "+":
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}

		if ls, ok := sequence(l); ok {
			if rs, ok := sequence(r); ok {
				return slices.Concat(ls, rs), nil
			}
		}

	case "*":
		if n, ok := toInt(r); ok {
			if v, ok := repeat(l, n); ok {
				return v, nil
			}
		}

		if n, ok := toInt(l); ok {
			if v, ok := repeat(r, n); ok {
				return v, nil
			}
		}
	}

	return nil, typeError(op, l, r)
}

func repeat(v any, n int) (any, bool) {
	n = max(n, 0)

	if s, ok := v.(string); ok {
		return strings.Repeat(s, n), true
	}

	if s, ok := sequence(v); ok {
		out := make([]any, 0, len(s)*n)
		for range n {
			out = append(out, s...)
		}

		return out, true
	}

	return nil, false
}

// arith applies an arithmetic operator to two normalised numbers.
func arith(op string, a, b any) (any, error) {
	ai, aInt := a.(int)
	bi, bInt := b.(int)

	if aInt && bInt {
		switch op {
		case "+":
			return ai + bi, nil
		case "-":
			return ai - bi, nil
		case "*":
			return ai * bi, nil
		case "/":
			if bi == 0 {
				return nil, ErrDivisionByZero
			}

			return float64(ai) / float64(bi), nil
		case "//":
			if bi == 0 {
				return nil, ErrDivisionByZero
			}

			q := ai / bi
			if ai%bi != 0 && (ai < 0) != (bi < 0) {
				q--
			}

			return q, nil
		case "%":
			if bi == 0 {
				return nil, ErrDivisionByZero
			}

			m := ai % bi
			if m != 0 && (m < 0) != (bi < 0) {
				m += bi
			}

			return m, nil
		case "**":
			if bi >= 0 {
				return ipow(ai, bi), nil
			}
		}
	}

	af, bf := toFloat(a), toFloat(b)

	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		if bf == 0 {
			return nil, ErrDivisionByZero
		}

		return af / bf, nil
	case "//":
		if bf == 0 {
			return nil, ErrDivisionByZero
		}

		return math.Floor(af / bf), nil
	case "%":
		if bf == 0 {
			return nil, ErrDivisionByZero
		}

		m := math.Mod(af, bf)
		if m != 0 && (m < 0) != (bf < 0) {
			m += bf
		}

		return m, nil
	case "**":
		return math.Pow(af, bf), nil
	}

	return nil, typeError(op, a, b)
}

func ipow(base, exp int) int {
	result := 1

	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}

		base *= base
		exp >>= 1
	}

	return result
}

// normIndex resolves a possibly negative index into a sequence of length n.
func normIndex(i any, n int) (int, error) {
	k, ok := toInt(i)
	if !ok {
		return 0, ErrIndex.With(
			slog.String("reason", "index must be an integer"),
			slog.String("type", typeName(i)),
		)
	}

	if k < 0 {
		k += n
	}

	if k < 0 || k >= n {
		return 0, ErrIndex.With(slog.Any("index", i), slog.Int("length", n))
	}

	return k, nil
}

// index implements subscription c[i], including slices.
func index(c, i any) (any, error) {
	if s, ok := i.(SliceValue); ok {
		return slice(c, s)
	}

	switch c := c.(type) {
	case string:
		runes := []rune(c)

		k, err := normIndex(i, len(runes))
		if err != nil {
			return nil, err
		}

		return string(runes[k]), nil

	case *scope.List:
		k, err := normIndex(i, c.Len())
		if err != nil {
			return nil, err
		}

		return c.At(k)
	}

	if m, ok := mapping(c); ok {
		k, ok := i.(string)
		if !ok {
			return nil, ErrIndex.With(slog.String("reason", "key must be a string"))
		}

		v, found := m[k]
		if !found {
			return nil, ErrIndex.With(slog.String("key", k))
		}

		return v, nil
	}

	if s, ok := sequence(c); ok {
		k, err := normIndex(i, len(s))
		if err != nil {
			return nil, err
		}

		return s[k], nil
	}

	return nil, typeError("[]", c)
}

// sliceIndices returns the element offsets selected by s in a sequence of
// length n.
func sliceIndices(n int, s SliceValue) ([]int, error) {
	step := 1

	if s.Step != nil {
		var ok bool
		if step, ok = toInt(s.Step); !ok || step == 0 {
			return nil, ErrIndex.With(slog.String("reason", "slice step must be a non-zero integer"))
		}
	}

	adjust := func(v any, def int) (int, error) {
		if v == nil {
			return def, nil
		}

		k, ok := toInt(v)
		if !ok {
			return 0, ErrIndex.With(slog.String("reason", "slice bounds must be integers"))
		}

		if k < 0 {
			k += n
			if k < 0 {
				k = 0
				if step < 0 {
					k = -1
				}
			}
		} else if k >= n {
			k = n
			if step < 0 {
				k = n - 1
			}
		}

		return k, nil
	}

	start, stop := 0, n
	if step < 0 {
		start, stop = n-1, -1
	}

	start, err := adjust(s.Start, start)
	if err != nil {
		return nil, err
	}

	stop, err = adjust(s.End, stop)
	if err != nil {
		return nil, err
	}

	var out []int

	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}

	return out, nil
}

func slice(c any, s SliceValue) (any, error) {
	if str, ok := c.(string); ok {
		runes := []rune(str)

		idx, err := sliceIndices(len(runes), s)
		if err != nil {
			return nil, err
		}

		out := make([]rune, len(idx))
		for j, k := range idx {
			out[j] = runes[k]
		}

		return string(out), nil
	}

	seq, ok := sequence(c)
	if !ok {
		return nil, typeError("[:]", c)
	}

	idx, err := sliceIndices(len(seq), s)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(idx))
	for j, k := range idx {
		out[j] = seq[k]
	}

	return out, nil
}

// setIndex implements c[i] = v.
func setIndex(c, i, v any) error {
	switch c := c.(type) {
	case *scope.List:
		k, err := normIndex(i, c.Len())
		if err != nil {
			return err
		}

		return c.Set(k, v)

	case []any:
		k, err := normIndex(i, len(c))
		if err != nil {
			return err
		}

		c[k] = v

		return nil

	case *scope.Dict:
		k, ok := i.(string)
		if !ok {
			return ErrIndex.With(slog.String("reason", "key must be a string"))
		}

		c.Set(k, v)

		return nil

	case map[string]any:
		k, ok := i.(string)
		if !ok {
			return ErrIndex.With(slog.String("reason", "key must be a string"))
		}

		c[k] = v

		return nil
	}

	return ErrAssign.With(slog.String("type", typeName(c)))
}

// exported returns the Go identifier a language attribute name maps to.
func exported(name string) string { return strcase.ToCamel(name) }

// attr implements o.name.
func attr(o any, name string) (any, error) {
	switch o := o.(type) {
	case *scope.Context:
		if v, ok := o.Get(name); ok {
			return v, nil
		}

	case map[string]any:
		if v, ok := o[name]; ok {
			return v, nil
		}

	case Attributer:
		if v, ok := o.Attr(name); ok {
			return v, nil
		}
	}

	if m, ok := method(o, name); ok {
		return m, nil
	}

	if v, ok := reflectAttr(o, name); ok {
		return v, nil
	}

	return nil, ErrAttribute.With(
		slog.String("name", name),
		slog.String("type", typeName(o)),
	)
}

func reflectAttr(o any, name string) (any, bool) {
	rv := reflect.ValueOf(o)
	if !rv.IsValid() {
		return nil, false
	}

	for _, n := range []string{name, exported(name)} {
		if m := rv.MethodByName(n); m.IsValid() && m.CanInterface() {
			return m.Interface(), true
		}
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}

		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	for _, n := range []string{name, exported(name)} {
		if f := rv.FieldByName(n); f.IsValid() && f.CanInterface() {
			return f.Interface(), true
		}
	}

	return nil, false
}

// structField returns the settable struct field o.name, if any.
func structField(o any, name string) (reflect.Value, bool) {
	rv := reflect.ValueOf(o)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, false
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	for _, n := range []string{name, exported(name)} {
		if f := rv.FieldByName(n); f.IsValid() && f.CanSet() {
			return f, true
		}
	}

	return reflect.Value{}, false
}

// settable reports whether setAttr(o, name, ...) can succeed.
func settable(o any, name string) bool {
	switch o.(type) {
	case *scope.Context, map[string]any, AttrSetter:
		return true
	}

	_, ok := structField(o, name)

	return ok
}

// setAttr implements o.name = v.
func setAttr(o any, name string, v any) error {
	switch o := o.(type) {
	case *scope.Context:
		return o.Set(name, v)

	case map[string]any:
		o[name] = v

		return nil

	case AttrSetter:
		return o.SetAttr(name, v)
	}

	f, ok := structField(o, name)
	if !ok {
		return ErrAttribute.With(
			slog.String("name", name),
			slog.String("type", typeName(o)),
		)
	}

	rv, err := convert(scope.Unwrap(v), f.Type())
	if err != nil {
		return err
	}

	f.Set(rv)

	return nil
}

// convert adapts v to type t for reflective assignment and calls.
func convert(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
			return reflect.Zero(t), nil
		}

		return reflect.Value{}, ErrArgument.With(slog.String("want", t.String()), slog.String("got", "None"))
	}

	rv := reflect.ValueOf(v)

	switch {
	case rv.Type().AssignableTo(t):
		return rv, nil
	case isNumberKind(rv.Kind()) && isNumberKind(t.Kind()):
		return rv.Convert(t), nil
	}

	switch v := v.(type) {
	case *scope.List, *scope.Dict:
		return convert(scope.Unwrap(v), t)
	case *Function:
		if t.Kind() == reflect.Func {
			return adapt(v, t), nil
		}
	}

	if s, ok := sequence(v); ok && t.Kind() == reflect.Slice {
		out := reflect.MakeSlice(t, len(s), len(s))
		for i, e := range s {
			ev, err := convert(e, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}

			out.Index(i).Set(ev)
		}

		return out, nil
	}

	return reflect.Value{}, ErrArgument.With(
		slog.String("want", t.String()),
		slog.String("got", typeName(v)),
	)
}

// adapt returns a Go function of type t that calls f.
func adapt(f *Function, t reflect.Type) reflect.Value {
	errType := reflect.TypeFor[error]()

	return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, a := range in {
			args[i] = a.Interface()
		}

		r, err := f.Call(args, nil)

		out := make([]reflect.Value, t.NumOut())
		for i := range out {
			out[i] = reflect.Zero(t.Out(i))
		}

		results := len(out)
		if k := results - 1; k >= 0 && t.Out(k) == errType {
			if err != nil {
				out[k] = reflect.ValueOf(&err).Elem()
			}

			results--
		}

		if results > 0 && err == nil {
			if t.Out(0).Kind() == reflect.Bool {
				out[0] = reflect.ValueOf(truthy(r)).Convert(t.Out(0))
			} else if rv, err := convert(r, t.Out(0)); err == nil {
				out[0] = rv.Convert(t.Out(0))
			}
		}

		return out
	})
}

// Truthy reports the truth value of v in a boolean context.
func Truthy(v any) bool { return truthy(v) }

func isNumberKind(k reflect.Kind) bool {
	return (reflect.Int <= k && k <= reflect.Float64) && k != reflect.Uintptr
}
