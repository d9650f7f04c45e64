package lang

import (
	"log/slog"
	"maps"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ardnew/livexpr/scope"
)

// Function is a callable value.
type Function struct {
	Name string
	Fn   func(args []any, kwargs map[string]any) (any, error)
}

// NewFunction wraps the Go function fn, called through reflection.
// Keyword arguments are rejected.
func NewFunction(name string, fn any) *Function {
	rv := reflect.ValueOf(fn)

	return &Function{
		Name: name,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			if len(kwargs) > 0 {
				return nil, ErrArgument.With(
					slog.String("function", name),
					slog.String("reason", "keyword arguments not supported"),
				)
			}

			return reflectCall(rv, args)
		},
	}
}

// Call invokes f.
func (f *Function) Call(args []any, kwargs map[string]any) (any, error) {
	return f.Fn(args, kwargs)
}

func (f *Function) String() string { return "<function " + f.Name + ">" }

var inverses = struct {
	sync.RWMutex
	m map[*Function]*Function
}{m: map[*Function]*Function{}}

// RegisterInverse records that forward and inverse undo each other, so that
// calls of either can be solved for their argument.
func RegisterInverse(forward, inverse *Function) {
	inverses.Lock()
	defer inverses.Unlock()

	inverses.m[forward] = inverse
	inverses.m[inverse] = forward
}

// Inverse returns the function registered as the inverse of f.
func Inverse(f *Function) (*Function, bool) {
	inverses.RLock()
	defer inverses.RUnlock()

	g, ok := inverses.m[f]

	return g, ok
}

// ArgsValue is the evaluated argument list of a call.
type ArgsValue struct {
	Pos []any
	Kw  map[string]any
}

// With returns a copy of a with args appended and kwargs merged over Kw.
func (a ArgsValue) With(args []any, kwargs map[string]any) ArgsValue {
	out := ArgsValue{
		Pos: append(append([]any(nil), a.Pos...), args...),
		Kw:  maps.Clone(a.Kw),
	}

	if len(kwargs) > 0 {
		if out.Kw == nil {
			out.Kw = make(map[string]any, len(kwargs))
		}

		maps.Copy(out.Kw, kwargs)
	}

	return out
}

// call invokes f with a.
func call(f any, a ArgsValue) (any, error) {
	switch f := f.(type) {
	case *Function:
		return f.Fn(a.Pos, a.Kw)
	case nil:
		return nil, ErrNotCallable.With(slog.String("type", "None"))
	}

	rv := reflect.ValueOf(f)
	if rv.Kind() != reflect.Func {
		return nil, ErrNotCallable.With(slog.String("type", typeName(f)))
	}

	if len(a.Kw) > 0 {
		return nil, ErrArgument.With(slog.String("reason", "keyword arguments not supported"))
	}

	return reflectCall(rv, a.Pos)
}

// reflectCall calls a Go function value. A trailing error result is
// returned as the error; other multiple results are returned as a list.
func reflectCall(fn reflect.Value, args []any) (any, error) {
	t := fn.Type()
	n := t.NumIn()

	if (!t.IsVariadic() && len(args) != n) || (t.IsVariadic() && len(args) < n-1) {
		return nil, ErrArgument.With(
			slog.Int("want", n),
			slog.Int("got", len(args)),
		)
	}

	in := make([]reflect.Value, len(args))

	for i, a := range args {
		var want reflect.Type

		if t.IsVariadic() && i >= n-1 {
			want = t.In(n - 1).Elem()
		} else {
			want = t.In(i)
		}

		v, err := convert(a, want)
		if err != nil {
			return nil, err
		}

		in[i] = v
	}

	out := fn.Call(in)

	errType := reflect.TypeFor[error]()
	if k := len(out); k > 0 && t.Out(k-1) == errType {
		if e := out[k-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}

		out = out[:k-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}

	vs := make([]any, len(out))
	for i, o := range out {
		vs[i] = o.Interface()
	}

	return vs, nil
}

// argc checks the number of positional arguments of a builtin.
func argc(name string, args []any, kwargs map[string]any, lo, hi int) error {
	if len(kwargs) == 0 && lo <= len(args) && len(args) <= hi {
		return nil
	}

	return ErrArgument.With(
		slog.String("function", name),
		slog.Int("got", len(args)),
	)
}

// Builtin functions bound to the reserved names str, int and len.
var (
	BuiltinStr = &Function{Name: "str", Fn: func(args []any, kwargs map[string]any) (any, error) {
		if err := argc("str", args, kwargs, 0, 1); err != nil {
			return nil, err
		}

		if len(args) == 0 {
			return "", nil
		}

		return Str(args[0]), nil
	}}

	BuiltinInt = &Function{Name: "int", Fn: func(args []any, kwargs map[string]any) (any, error) {
		if err := argc("int", args, kwargs, 0, 1); err != nil {
			return nil, err
		}

		if len(args) == 0 {
			return 0, nil
		}

		return toInteger(args[0])
	}}

	BuiltinLen = &Function{Name: "len", Fn: func(args []any, kwargs map[string]any) (any, error) {
		if err := argc("len", args, kwargs, 1, 1); err != nil {
			return nil, err
		}

		return length(args[0])
	}}
)

var builtinFuncs = map[string]*Function{
	"str": BuiltinStr,
	"int": BuiltinInt,
	"len": BuiltinLen,
}

func toInteger(v any) (any, error) {
	switch v := v.(type) {
	case bool:
		return boolInt(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, ErrArgument.Wrap(err).With(slog.String("function", "int"))
		}

		return n, nil
	}

	switch n, _ := number(v); n := n.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}

	return nil, typeError("int", v)
}

func length(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case *scope.List:
		return v.Len(), nil
	case *scope.Dict:
		return v.Len(), nil
	case map[string]any:
		return len(v), nil
	}

	if s, ok := sequence(v); ok {
		return len(s), nil
	}

	return nil, typeError("len", v)
}

// stringMethods are the methods of string values.
var stringMethods = map[string]func(s string, args []any) (any, error){
	"upper": func(s string, _ []any) (any, error) { return strings.ToUpper(s), nil },
	"lower": func(s string, _ []any) (any, error) { return strings.ToLower(s), nil },
	"strip": func(s string, args []any) (any, error) {
		return strings.Trim(s, cutset(args)), nil
	},
	"lstrip": func(s string, args []any) (any, error) {
		return strings.TrimLeft(s, cutset(args)), nil
	},
	"rstrip": func(s string, args []any) (any, error) {
		return strings.TrimRight(s, cutset(args)), nil
	},
	"startswith": func(s string, args []any) (any, error) {
		p, err := stringArg(args, 0)

		return strings.HasPrefix(s, p), err
	},
	"endswith": func(s string, args []any) (any, error) {
		p, err := stringArg(args, 0)

		return strings.HasSuffix(s, p), err
	},
	"replace": func(s string, args []any) (any, error) {
		old, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}

		repl, err := stringArg(args, 1)

		return strings.ReplaceAll(s, old, repl), err
	},
	"split": func(s string, args []any) (any, error) {
		var parts []string

		if len(args) == 0 {
			parts = strings.Fields(s)
		} else {
			sep, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}

			parts = strings.Split(s, sep)
		}

		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}

		return out, nil
	},
	"join": func(s string, args []any) (any, error) {
		if len(args) != 1 {
			return nil, ErrArgument.With(slog.String("function", "join"))
		}

		items, err := iterate(args[0])
		if err != nil {
			return nil, err
		}

		strs := make([]string, len(items))
		for i, it := range items {
			strs[i] = Str(it)
		}

		return strings.Join(strs, s), nil
	},
}

func cutset(args []any) string {
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			return s
		}
	}

	return " \t\r\n"
}

func stringArg(args []any, i int) (string, error) {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s, nil
		}
	}

	return "", ErrArgument.With(slog.Int("argument", i))
}

// method returns the bound method name of o for values whose methods are
// not Go methods.
func method(o any, name string) (*Function, bool) {
	s, ok := o.(string)
	if !ok {
		return nil, false
	}

	m, ok := stringMethods[name]
	if !ok {
		return nil, false
	}

	return &Function{
		Name: "str." + name,
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			if len(kwargs) > 0 {
				return nil, ErrArgument.With(slog.String("function", name))
			}

			return m(s, args)
		},
	}, true
}
