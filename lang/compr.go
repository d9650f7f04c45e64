package lang

import (
	"log/slog"
	"slices"

	"github.com/ardnew/livexpr/scope"
)

// Compr is a list comprehension: [expr for name in list if cond].
// The condition is optional.
type Compr struct {
	node

	expr Node
	name string
	lst  Node
	cond Node
}

// NewCompr returns a list comprehension node. cond may be nil.
func NewCompr(expr Node, name string, lst, cond Node) *Compr {
	return newCompr(expr, name, lst, cond, "", 0)
}

func newCompr(expr Node, name string, lst, cond Node, src string, pos int) *Compr {
	c := &Compr{expr: expr, name: name, lst: lst, cond: cond}
	c.init(c, src, pos)
	c.watchAll(expr, lst, cond)

	return c
}

// Var returns the name of the loop variable.
func (c *Compr) Var() string { return c.name }

func (c *Compr) children() []Node {
	if c.cond == nil {
		return []Node{c.expr, c.lst}
	}

	return []Node{c.expr, c.lst, c.cond}
}

func (c *Compr) inner(names []string) []string {
	return append(slices.Clone(names), c.name)
}

func (c *Compr) bind(ctx *scope.Context, shadow []string) {
	c.reset(ctx)
	c.lst.bind(ctx, shadow)
	bindAll(ctx, c.inner(shadow), c.expr, c.cond)
}

// each calls fn for every item of the source list that passes the
// condition, with the loop variable shadowed in ctx.
func (c *Compr) each(ctx *scope.Context, items []any, fn func(i int, item any) error) error {
	ctx.Save(c.name)
	defer func() { _ = ctx.Restore(c.name) }()

	for i, it := range items {
		ctx.Shadow(c.name, it)

		if c.cond != nil {
			ok, err := c.cond.EvalIn(ctx)
			if err != nil {
				return err
			}

			if !truthy(ok) {
				continue
			}
		}

		if err := fn(i, it); err != nil {
			return err
		}
	}

	return nil
}

func (c *Compr) compute(e evaluator) (any, error) {
	if e.ctx == nil {
		return nil, ErrUnbound.At(c.src, c.pos).With(slog.String("expr", c.String()))
	}

	src, err := e.eval(c.lst)
	if err != nil {
		return nil, err
	}

	items, err := iterate(src)
	if err != nil {
		return nil, c.fail(err)
	}

	out := make([]any, 0, len(items))

	err = c.each(e.ctx, items, func(_ int, _ any) error {
		v, err := c.expr.EvalIn(e.ctx)
		if err != nil {
			return err
		}

		out = append(out, v)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Compr) Clone() Node {
	return newCompr(c.expr.Clone(), c.name, c.lst.Clone(), cloneOf(c.cond), c.src, c.pos)
}

func (c *Compr) IsConst(assume ...string) bool {
	inner := c.inner(assume)

	return c.lst.IsConst(assume...) && c.expr.IsConst(inner...) &&
		constOf(c.cond, inner...)
}

func (c *Compr) Simplify(assume ...string) Node {
	if c.IsConst(assume...) {
		if f := fold(c); f != nil {
			return f
		}
	}

	inner := c.inner(assume)

	return newCompr(c.expr.Simplify(inner...), c.name, c.lst.Simplify(assume...),
		simplifyOf(c.cond, inner...), c.src, c.pos)
}

func (c *Compr) Equiv(other Node, assume ...[2]string) bool {
	o, ok := other.(*Compr)
	if !ok || !c.lst.Equiv(o.lst, assume...) {
		return false
	}

	inner := append(slices.Clone(assume), [2]string{c.name, o.name})

	return c.expr.Equiv(o.expr, inner...) && equivOf(c.cond, o.cond, inner...)
}

// Contains ignores occurrences of the loop variable in the body.
func (c *Compr) Contains(x Node) bool {
	if c.Equiv(x) || c.lst.Contains(x) {
		return true
	}

	if id, ok := x.(*Ident); ok && id.name == c.name {
		return false
	}

	return c.expr.Contains(x) || containsOf(c.cond, x)
}

// Solve solves the body for the loop variable once per selected item of the
// source list, then solves the source list for the resulting items.
func (c *Compr) Solve(v any, x Node) error {
	want, ok := sequence(v)
	if !ok {
		return c.noSolution(v, x)
	}

	if c.ctx == nil {
		return ErrUnbound.At(c.src, c.pos).With(slog.String("expr", c.String()))
	}

	src, err := c.lst.Eval(false)
	if err != nil {
		return err
	}

	items, err := iterate(src)
	if err != nil {
		return c.fail(err)
	}

	next := slices.Clone(items)
	loop := newIdent(c.name, c.src, c.pos)
	pos := 0

	err = c.each(c.ctx, items, func(i int, it any) error {
		if pos >= len(want) {
			return c.noSolution(v, x)
		}

		nv, err := c.solveItem(it, want[pos], loop)
		if err != nil {
			return err
		}

		next[i] = nv
		pos++

		return nil
	})
	if err != nil {
		return err
	}

	if pos != len(want) {
		return c.noSolution(v, x)
	}

	packageLogger().Trace("solved comprehension body",
		slog.String("expr", c.String()),
		slog.Int("items", len(next)),
	)

	return c.lst.Solve(next, x)
}

// solveItem finds the loop variable value for which the body evaluates to
// want, starting from item. The body is solved on a clone bound to a scope
// layered over the context so that no write escapes.
func (c *Compr) solveItem(item, want any, loop *Ident) (any, error) {
	local := scope.New(map[string]any{c.name: item}, c.ctx)

	body := c.expr.Clone()
	body.Bind(local)

	defer body.Unbind()

	if err := body.Solve(want, loop); err != nil {
		return nil, err
	}

	v, _ := local.Get(c.name)

	return v, nil
}

func (c *Compr) String() string {
	s := "[" + c.expr.String() + " for " + c.name + " in " + c.lst.String()
	if c.cond != nil {
		s += " if " + c.cond.String()
	}

	return s + "]"
}
