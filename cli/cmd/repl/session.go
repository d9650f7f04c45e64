package repl

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/livexpr/event"
	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/scope"
)

// Session is the evaluation state of a REPL: a user scope and the templates
// watched in it. It is not safe for concurrent use.
type Session struct {
	scope   *scope.Context
	watches []*watch
	next    int
}

// watch is a template bound to the session scope. dirty is set by the
// template's change channel and cleared when the update is reported.
type watch struct {
	id    int
	tmpl  *lang.Interpolated
	sub   *event.Subscription
	dirty bool
}

// NewSession returns a session evaluating in sc.
func NewSession(sc *scope.Context) *Session {
	return &Session{scope: sc, next: 1}
}

// Scope returns the session scope.
func (s *Session) Scope() *scope.Context { return s.scope }

// Eval evaluates one line of input and returns the text to print.
//
// A line of the form "target = expr" whose target parses is an assignment
// to the location target denotes: a name, an index or an attribute.
// Anything else is evaluated as an expression and printed in repr form.
func (s *Session) Eval(input string) (string, error) {
	if lhs, rhs, ok := splitAssignment(input); ok {
		if target, _, err := lang.Parse(lhs); err == nil {
			return s.assign(target, rhs)
		}
	}

	v, err := s.evalString(input)
	if err != nil {
		return "", err
	}

	return lang.Repr(v), nil
}

func (s *Session) assign(target lang.Node, src string) (string, error) {
	v, err := s.evalString(src)
	if err != nil {
		return "", err
	}

	target.Bind(s.scope)
	defer target.Unbind()

	if err := target.Assign(v); err != nil {
		return "", err
	}

	return target.String() + " = " + lang.Repr(v), nil
}

func (s *Session) evalString(src string) (any, error) {
	node, _, err := lang.Parse(src)
	if err != nil {
		return nil, err
	}

	return node.EvalIn(s.scope)
}

// splitAssignment splits input at its first "=" that is not part of a
// comparison operator.
func splitAssignment(input string) (lhs, rhs string, ok bool) {
	for i := 0; i < len(input); i++ {
		if input[i] != '=' {
			continue
		}

		if i+1 < len(input) && input[i+1] == '=' {
			i++

			continue
		}

		if i > 0 && strings.IndexByte("=<>!", input[i-1]) >= 0 {
			continue
		}

		lhs, rhs = strings.TrimSpace(input[:i]), strings.TrimSpace(input[i+1:])

		return lhs, rhs, lhs != "" && rhs != ""
	}

	return "", "", false
}

// Watch binds the template text to the session scope and returns its
// current rendering prefixed by the watch id.
func (s *Session) Watch(text string) (string, error) {
	tmpl, err := lang.NewInterpolated(text)
	if err != nil {
		return "", err
	}

	w := &watch{id: s.next, tmpl: tmpl}
	s.next++

	tmpl.Bind(s.scope)
	rendered := tmpl.Value()

	w.sub = tmpl.Events().Sub(event.ChannelChange, func(*event.Message) {
		w.dirty = true
	})

	s.watches = append(s.watches, w)

	return w.label(rendered), nil
}

// Unwatch stops the watch with the given id.
func (s *Session) Unwatch(id int) error {
	i := slices.IndexFunc(s.watches, func(w *watch) bool { return w.id == id })
	if i < 0 {
		return ErrNoWatch.With(slog.Int("id", id))
	}

	w := s.watches[i]
	w.sub.Cancel()
	w.tmpl.Unbind()
	s.watches = slices.Delete(s.watches, i, i+1)

	return nil
}

// Close stops every watch.
func (s *Session) Close() {
	for _, w := range s.watches {
		w.sub.Cancel()
		w.tmpl.Unbind()
	}

	s.watches = nil
}

// Updates returns the renderings of the watches whose inputs changed since
// the last call, in watch order.
func (s *Session) Updates() []string {
	var lines []string

	for _, w := range s.watches {
		if !w.dirty {
			continue
		}

		w.dirty = false
		lines = append(lines, w.label(w.tmpl.Value()))
	}

	return lines
}

// Watches lists every watch with its template and current rendering.
func (s *Session) Watches() []string {
	lines := make([]string, len(s.watches))

	for i, w := range s.watches {
		w.dirty = false
		lines[i] = fmt.Sprintf("[%d] %s  →  %s", w.id, w.tmpl.String(), w.tmpl.Value())
	}

	return lines
}

func (w *watch) label(rendered string) string {
	return "[" + strconv.Itoa(w.id) + "] " + rendered
}

// Vars lists the user variables as "name = repr", sorted by name.
func (s *Session) Vars() []string {
	vars := s.scope.Map()
	lines := make([]string, 0, len(vars))

	for _, name := range slices.Sorted(maps.Keys(vars)) {
		lines = append(lines, name+" = "+lang.Repr(vars[name]))
	}

	return lines
}

// Solve parses a command of the form "EXPR for TARGET = VALUE", assigns
// TARGET so that EXPR evaluates to VALUE and lists the variables that
// changed.
func (s *Session) Solve(args string) ([]string, error) {
	i := strings.LastIndex(args, " for ")
	if i < 0 {
		return nil, ErrUsage.With(slog.String("usage", usageSolve))
	}

	target, value, ok := strings.Cut(args[i+len(" for "):], "=")
	if !ok {
		return nil, ErrUsage.With(slog.String("usage", usageSolve))
	}

	expr, _, err := lang.Parse(strings.TrimSpace(args[:i]))
	if err != nil {
		return nil, err
	}

	x, _, err := lang.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, err
	}

	want, err := s.evalString(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}

	expr.Bind(s.scope)
	defer expr.Unbind()

	before := s.scope.Map()

	if err := expr.Solve(want, x); err != nil {
		return nil, err
	}

	after := s.scope.Map()

	var lines []string

	for _, name := range slices.Sorted(maps.Keys(after)) {
		if old, ok := before[name]; !ok || !reflect.DeepEqual(old, after[name]) {
			lines = append(lines, name+" = "+lang.Repr(after[name]))
		}
	}

	return lines, nil
}

// AST renders the parse tree of src as a parenthesised prefix expression.
func (s *Session) AST(src string) (string, error) {
	node, _, err := lang.Parse(src)
	if err != nil {
		return "", err
	}

	return sexpr(node), nil
}

func sexpr(n lang.Node) string {
	children := lang.Children(n)
	if len(children) == 0 {
		return n.String()
	}

	parts := make([]string, 0, len(children)+1)
	parts = append(parts, nodeLabel(n))

	for _, c := range children {
		parts = append(parts, sexpr(c))
	}

	return "(" + strings.Join(parts, " ") + ")"
}

func nodeLabel(n lang.Node) string {
	switch n := n.(type) {
	case *lang.Op:
		return n.Operator()
	case *lang.Attr:
		return "." + n.Name()
	case *lang.Compr:
		return "for " + n.Var()
	case *lang.List:
		return "list"
	case *lang.Args:
		return "args"
	case *lang.Slice:
		if n.IsSlice() {
			return "slice"
		}

		return "index"
	}

	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*lang.")
}
