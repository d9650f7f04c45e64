package scope

import (
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/livexpr/event"
)

// KeyChannel returns the channel on which a [Context] announces changes to
// the single name.
func KeyChannel(name string) string { return event.ChannelChange + ":" + name }

type binding struct {
	value     any
	immutable bool
}

type saved struct {
	binding

	ok bool
}

// Context is a variable scope: a mapping from names to values with an
// optional base context consulted for names it does not define itself.
// Writes never reach the base.
//
// Every successful write publishes an [event.Change] on
// [event.ChannelChange] and on the name's [KeyChannel].
type Context struct {
	bus   event.Bus
	vars  map[string]binding
	base  *Context
	saved map[string][]saved
}

// New returns a Context holding initial, which may be nil, and reading
// through to base, which may also be nil.
func New(initial map[string]any, base *Context) *Context {
	c := &Context{
		vars: make(map[string]binding, len(initial)),
		base: base,
	}

	c.bus.SetOwner(c)

	for name, v := range initial {
		c.vars[name] = binding{value: wrap(v)}
	}

	return c
}

// Events returns the bus on which c publishes changes.
func (c *Context) Events() *event.Bus { return &c.bus }

// Base returns the read-through parent of c.
func (c *Context) Base() *Context { return c.base }

// lookup returns the binding visible from c and the context that holds it.
func (c *Context) lookup(name string) (binding, *Context, bool) {
	for ctx := c; ctx != nil; ctx = ctx.base {
		if b, ok := ctx.vars[name]; ok {
			return b, ctx, true
		}
	}

	return binding{}, nil, false
}

// Get returns the value bound to name in c or its base chain.
func (c *Context) Get(name string) (any, bool) {
	b, _, ok := c.lookup(name)

	return b.value, ok
}

// Has reports whether name is bound in c or its base chain.
func (c *Context) Has(name string) bool {
	_, _, ok := c.lookup(name)

	return ok
}

// Own reports whether name is bound in c itself.
func (c *Context) Own(name string) bool {
	_, ok := c.vars[name]

	return ok
}

// Immutable reports whether the binding visible for name is immutable.
func (c *Context) Immutable(name string) bool {
	b, _, ok := c.lookup(name)

	return ok && b.immutable
}

// ImmutableNames returns the sorted names whose visible binding is immutable.
func (c *Context) ImmutableNames() []string {
	var names []string

	for name := range c.Names() {
		if c.Immutable(name) {
			names = append(names, name)
		}
	}

	return names
}

// Names returns the sorted names visible from c.
func (c *Context) Names() iter.Seq[string] {
	seen := make(map[string]struct{})

	for ctx := c; ctx != nil; ctx = ctx.base {
		for name := range ctx.vars {
			seen[name] = struct{}{}
		}
	}

	return slices.Values(slices.Sorted(maps.Keys(seen)))
}

// Len returns the number of names bound in c itself.
func (c *Context) Len() int { return len(c.vars) }

// Set binds name to v in c.
//
// A []any value is stored as a [*List] and a map[string]any value as a
// [*Dict] so that later in-place mutation is observable.
// Set fails with [ErrImmutable] if c's own binding of name is immutable.
// Immutable bindings of the base chain may be shadowed.
func (c *Context) Set(name string, v any) error {
	if b, ok := c.vars[name]; ok && b.immutable {
		return ErrImmutable.With(slog.String("name", name))
	}

	v = wrap(v)
	c.vars[name] = binding{value: v}
	c.publish(name, event.Change{Key: name, Value: v, Op: event.OpSet, HasValue: true})

	return nil
}

// SetImmutable binds name to v in c and marks the binding immutable.
func (c *Context) SetImmutable(name string, v any) error {
	err := c.Set(name, v)
	if err != nil {
		return err
	}

	b := c.vars[name]
	b.immutable = true
	c.vars[name] = b

	return nil
}

// Freeze marks c's own binding of name immutable.
func (c *Context) Freeze(name string) error {
	b, ok := c.vars[name]
	if !ok {
		return ErrUndefined.With(slog.String("name", name))
	}

	b.immutable = true
	c.vars[name] = b

	return nil
}

// Delete removes c's own binding of name. Names visible through the base
// chain become visible again.
func (c *Context) Delete(name string) error {
	b, ok := c.vars[name]
	if !ok {
		return ErrUndefined.With(slog.String("name", name))
	}

	if b.immutable {
		return ErrImmutable.With(slog.String("name", name))
	}

	delete(c.vars, name)

	if v, ok := c.Get(name); ok {
		c.publish(name, event.Change{Key: name, Value: v, Op: event.OpDelete, HasValue: true})
	} else {
		c.publish(name, event.Change{Key: name, Op: event.OpDelete})
	}

	return nil
}

// Update sets every entry of vars, continuing past failures.
// The returned error, if any, lists every rejected name.
func (c *Context) Update(vars map[string]any) error {
	var result *multierror.Error

	for _, name := range slices.Sorted(maps.Keys(vars)) {
		err := c.Set(name, vars[name])
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (c *Context) publish(name string, ch event.Change) {
	c.bus.Pub(event.ChannelChange, ch)
	c.bus.Pub(KeyChannel(name), ch)
}

// Save pushes c's own binding of name, or its absence, onto a per-name stack.
// It is reserved for evaluation internals that temporarily rebind a name.
func (c *Context) Save(name string) {
	if c.saved == nil {
		c.saved = make(map[string][]saved)
	}

	b, ok := c.vars[name]
	c.saved[name] = append(c.saved[name], saved{binding: b, ok: ok})
}

// Shadow binds name to v in c without publishing a change and without
// regard to immutability. It is meant to be bracketed by [Context.Save] and
// [Context.Restore].
func (c *Context) Shadow(name string, v any) {
	c.vars[name] = binding{value: wrap(v)}
}

// Restore pops the binding most recently saved for name without publishing
// a change.
func (c *Context) Restore(name string) error {
	stack := c.saved[name]
	if len(stack) == 0 {
		return ErrNotSaved.With(slog.String("name", name))
	}

	top := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(c.saved, name)
	} else {
		c.saved[name] = stack[:len(stack)-1]
	}

	if top.ok {
		c.vars[name] = top.binding
	} else {
		delete(c.vars, name)
	}

	return nil
}

// Map returns the plain values of c's own bindings, unwrapping observable
// containers recursively.
func (c *Context) Map() map[string]any {
	m := make(map[string]any, len(c.vars))

	for name, b := range c.vars {
		m[name] = Unwrap(b.value)
	}

	return m
}

// Watch calls fn for every change to name visible from c: writes to c and
// writes to the base chain that c does not shadow.
func (c *Context) Watch(name string, fn func(event.Change)) *Watch {
	w := &Watch{}

	for ctx := c; ctx != nil; ctx = ctx.base {
		owner := ctx

		w.subs = append(w.subs, ctx.bus.Sub(KeyChannel(name),
			func(m *event.Message) {
				if c.shadowed(name, owner) {
					return
				}

				ch, _ := m.Change()
				fn(ch)
			},
		))
	}

	return w
}

// shadowed reports whether a context between c (inclusive) and owner
// (exclusive) binds name.
func (c *Context) shadowed(name string, owner *Context) bool {
	for ctx := c; ctx != nil && ctx != owner; ctx = ctx.base {
		if _, ok := ctx.vars[name]; ok {
			return true
		}
	}

	return false
}

// Watch is the set of subscriptions created by [Context.Watch].
type Watch struct {
	subs []*event.Subscription
}

// Cancel detaches the watch from every context it joined.
func (w *Watch) Cancel() {
	if w == nil {
		return
	}

	for _, s := range w.subs {
		s.Cancel()
	}

	w.subs = nil
}

func wrap(v any) any {
	switch v := v.(type) {
	case []any:
		return NewList(v)
	case map[string]any:
		return NewDict(v)
	default:
		return v
	}
}

// Unwrap converts observable containers back into plain slices and maps,
// recursively.
func Unwrap(v any) any {
	switch v := v.(type) {
	case *List:
		items := v.Items()
		for i, item := range items {
			items[i] = Unwrap(item)
		}

		return items

	case *Dict:
		m := v.Items()
		for k, item := range m {
			m[k] = Unwrap(item)
		}

		return m

	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = Unwrap(item)
		}

		return items

	case map[string]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = Unwrap(item)
		}

		return m

	default:
		return v
	}
}
