package lang

import (
	"slices"
	"strings"

	"github.com/ardnew/livexpr/event"
	"github.com/ardnew/livexpr/scope"
)

// multi is a node with an ordered list of children whose latest values are
// kept in slots. A child change that carries a value replaces its slot;
// any other change marks the slots stale.
type multi struct {
	node

	items []Node
	slots []any
	stale bool
}

func (m *multi) adopt(items []Node) {
	m.items = items
	m.slots = make([]any, len(items))
	m.stale = true

	for i, c := range items {
		m.watch(c, func(msg *event.Message) { m.childChanged(i, msg) })
	}
}

func (m *multi) childChanged(i int, msg *event.Message) {
	if m.stale && m.defined {
		return
	}

	if c, ok := msg.Change(); ok && c.HasValue {
		m.slots[i] = c.Value
	} else {
		m.stale = true
	}

	m.invalidate()
}

func (m *multi) children() []Node { return m.items }

func (m *multi) rebind(ctx *scope.Context, shadow []string) {
	m.reset(ctx)
	m.stale = true
	bindAll(ctx, shadow, m.items...)
}

// values returns the child values. The returned slice must not be retained.
func (m *multi) values(e evaluator) ([]any, error) {
	if e.pure {
		out := make([]any, len(m.items))

		for i, c := range m.items {
			v, err := c.EvalIn(e.ctx)
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	}

	if m.stale || e.force {
		for i, c := range m.items {
			v, err := c.Eval(e.force)
			if err != nil {
				return nil, err
			}

			m.slots[i] = v
		}

		m.stale = false
	}

	return m.slots, nil
}

func (m *multi) allConst(assume []string) bool {
	for _, c := range m.items {
		if !c.IsConst(assume...) {
			return false
		}
	}

	return true
}

func (m *multi) equivItems(other []Node, assume [][2]string) bool {
	return slices.EqualFunc(m.items, other, func(a, b Node) bool {
		return a.Equiv(b, assume...)
	})
}

func cloneAll(ns []Node) []Node {
	out := make([]Node, len(ns))
	for i, n := range ns {
		out[i] = n.Clone()
	}

	return out
}

func simplifyAll(ns []Node, assume []string) []Node {
	out := make([]Node, len(ns))
	for i, n := range ns {
		out[i] = n.Simplify(assume...)
	}

	return out
}

func joinNodes(ns []Node) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = n.String()
	}

	return strings.Join(parts, ", ")
}

// List is a list literal.
type List struct {
	multi
}

// NewList returns a list literal node.
func NewList(items ...Node) *List { return newList(items, "", 0) }

func newList(items []Node, src string, pos int) *List {
	l := &List{}
	l.init(l, src, pos)
	l.adopt(items)

	return l
}

// Items returns the element nodes.
func (l *List) Items() []Node { return l.items }

func (l *List) bind(ctx *scope.Context, shadow []string) { l.rebind(ctx, shadow) }

func (l *List) compute(e evaluator) (any, error) {
	vs, err := l.values(e)
	if err != nil {
		return nil, err
	}

	return slices.Clone(vs), nil
}

func (l *List) Clone() Node { return newList(cloneAll(l.items), l.src, l.pos) }

func (l *List) IsConst(assume ...string) bool { return l.allConst(assume) }

func (l *List) Simplify(assume ...string) Node {
	if l.IsConst(assume...) {
		if f := fold(l); f != nil {
			return f
		}
	}

	return newList(simplifyAll(l.items, assume), l.src, l.pos)
}

func (l *List) Equiv(other Node, assume ...[2]string) bool {
	o, ok := other.(*List)

	return ok && l.equivItems(o.items, assume)
}

func (l *List) Solve(v any, x Node) error {
	vs, ok := sequence(v)
	if !ok || len(vs) != len(l.items) {
		return l.noSolution(v, x)
	}

	at := -1

	for i, c := range l.items {
		if c.Contains(x) {
			if at >= 0 {
				return l.noSolution(v, x)
			}

			at = i
		}
	}

	if at < 0 {
		return l.noSolution(v, x)
	}

	return l.items[at].Solve(vs[at], x)
}

func (l *List) String() string { return "[" + joinNodes(l.items) + "]" }

// Args is the argument list of a call: positional arguments followed by
// keyword arguments.
type Args struct {
	multi

	// names are the keywords of the trailing len(names) items.
	names []string
}

// NewArgs returns an argument list node. names and kw pair up.
func NewArgs(pos []Node, names []string, kw []Node) *Args {
	return newArgs(pos, names, kw, "", 0)
}

func newArgs(pos []Node, names []string, kw []Node, src string, at int) *Args {
	a := &Args{names: names}
	a.init(a, src, at)
	a.adopt(slices.Concat(pos, kw))

	return a
}

func (a *Args) npos() int { return len(a.items) - len(a.names) }

// Positional returns the positional argument nodes.
func (a *Args) Positional() []Node { return a.items[:a.npos()] }

// Keywords returns the keyword names and their argument nodes.
func (a *Args) Keywords() ([]string, []Node) { return a.names, a.items[a.npos():] }

func (a *Args) bind(ctx *scope.Context, shadow []string) { a.rebind(ctx, shadow) }

func (a *Args) compute(e evaluator) (any, error) {
	vs, err := a.values(e)
	if err != nil {
		return nil, err
	}

	return a.pack(vs), nil
}

func (a *Args) pack(vs []any) ArgsValue {
	n := a.npos()
	out := ArgsValue{Pos: slices.Clone(vs[:n])}

	if len(a.names) > 0 {
		out.Kw = make(map[string]any, len(a.names))
		for i, name := range a.names {
			out.Kw[name] = vs[n+i]
		}
	}

	return out
}

func (a *Args) Clone() Node {
	pos, kw := a.Positional(), a.items[a.npos():]

	return newArgs(cloneAll(pos), a.names, cloneAll(kw), a.src, a.pos)
}

func (a *Args) IsConst(assume ...string) bool { return a.allConst(assume) }

func (a *Args) Simplify(assume ...string) Node {
	if a.IsConst(assume...) {
		ctx := a.ctx
		if ctx == nil {
			ctx = scope.New(nil, nil)
		}

		if v, err := a.EvalIn(ctx); err == nil {
			return newConstArgs(v.(ArgsValue), a.names, a.src, a.pos)
		}
	}

	return newArgs(
		simplifyAll(a.Positional(), assume), a.names,
		simplifyAll(a.items[a.npos():], assume), a.src, a.pos)
}

func (a *Args) Equiv(other Node, assume ...[2]string) bool {
	o, ok := other.(*Args)

	return ok && slices.Equal(a.names, o.names) && a.equivItems(o.items, assume)
}

func (a *Args) String() string {
	parts := make([]string, 0, len(a.items))

	for i, c := range a.items {
		if k := i - a.npos(); k >= 0 {
			parts = append(parts, a.names[k]+"="+c.String())
		} else {
			parts = append(parts, c.String())
		}
	}

	return strings.Join(parts, ", ")
}

// ConstArgs is an argument list whose values are all known.
type ConstArgs struct {
	node

	val   ArgsValue
	names []string
}

func newConstArgs(v ArgsValue, names []string, src string, pos int) *ConstArgs {
	c := &ConstArgs{val: v, names: names}
	c.init(c, src, pos)
	c.static = true
	c.cached, c.dirty, c.defined = v, false, true

	return c
}

// Val returns the argument values.
func (c *ConstArgs) Val() ArgsValue { return c.val }

func (c *ConstArgs) compute(evaluator) (any, error) { return c.val, nil }
func (c *ConstArgs) bind(*scope.Context, []string)  {}
func (c *ConstArgs) children() []Node               { return nil }
func (c *ConstArgs) Clone() Node                    { return c }
func (c *ConstArgs) IsConst(...string) bool         { return true }
func (c *ConstArgs) Simplify(...string) Node        { return c }

func (c *ConstArgs) Equiv(other Node, _ ...[2]string) bool {
	o, ok := other.(*ConstArgs)

	return ok && equal(c.val.Pos, o.val.Pos) &&
		equal(map[string]any(c.val.Kw), map[string]any(o.val.Kw))
}

func (c *ConstArgs) String() string {
	parts := make([]string, 0, len(c.val.Pos)+len(c.names))

	for _, v := range c.val.Pos {
		parts = append(parts, Repr(v))
	}

	for _, name := range c.names {
		parts = append(parts, name+"="+Repr(c.val.Kw[name]))
	}

	return strings.Join(parts, ", ")
}
