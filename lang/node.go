package lang

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ardnew/livexpr/event"
	"github.com/ardnew/livexpr/scope"
)

// Node is an element of a parsed expression tree.
//
// A Node caches the value of its last successful evaluation. Once bound to a
// [scope.Context] it observes every name it reads, and every container value
// it resolved, and publishes a [event.Change] on [event.ChannelChange] the
// first time its cache goes stale. Further changes are coalesced until the
// node is evaluated again.
//
// Nodes returned by [Parse] are owned by the caller. A node is bound to at
// most one context at a time; use [Node.Clone] to bind the same expression
// to several.
type Node interface {
	fmt.Stringer

	// Eval returns the cached value unless the node is dirty or force is set,
	// in which case the node and its dirty descendants are recomputed.
	Eval(force bool) (any, error)
	// EvalIn evaluates the node against ctx without touching any cache.
	EvalIn(ctx *scope.Context) (any, error)
	// Value is Eval(false) with errors swallowed: on failure it returns the
	// last cached value.
	Value() any

	Bind(ctx *scope.Context)
	Unbind()
	Context() *scope.Context

	// Clone returns an unbound deep copy. Constants return themselves.
	Clone() Node
	// IsConst reports whether the value of the node is independent of any
	// context, treating the names in assume as constants.
	IsConst(assume ...string) bool
	// Simplify returns an unbound copy with constant subtrees folded.
	Simplify(assume ...string) Node

	// Mutable reports whether the node denotes an assignable location.
	Mutable() bool
	// Solve assigns the leaf x occurring in the node so that the node
	// evaluates to v.
	Solve(v any, x Node) error
	// Assign stores v in the location the node denotes.
	Assign(v any) error

	// Equiv reports structural equality. Each pair in assume names two
	// identifiers that are considered equal.
	Equiv(other Node, assume ...[2]string) bool
	// Contains reports whether a subtree of the node is equivalent to x.
	Contains(x Node) bool

	Dirty() bool
	Defined() bool
	Events() *event.Bus
	Pos() int

	base() *node
	children() []Node
	bind(ctx *scope.Context, shadow []string)
	compute(e evaluator) (any, error)
}

// VisitResult steers [Walk].
type VisitResult uint8

const (
	VisitContinue VisitResult = iota // descend into children
	VisitSkip                        // skip the children of this node
	VisitStop                        // abort the walk
)

// Visitor is called by [Walk] for every node, parents first.
type Visitor func(Node) VisitResult

// Walk traverses the tree rooted at n in pre-order.
// It reports false if the visitor stopped the walk.
func Walk(n Node, visit Visitor) bool {
	if n == nil {
		return true
	}

	switch visit(n) {
	case VisitStop:
		return false
	case VisitSkip:
		return true
	}

	for _, c := range n.children() {
		if !Walk(c, visit) {
			return false
		}
	}

	return true
}

// Children returns the direct subtrees of n in source order.
func Children(n Node) []Node {
	if n == nil {
		return nil
	}

	return n.children()
}

// SimplifyIn simplifies n treating the immutable names of its bound context
// as constants.
func SimplifyIn(n Node) Node {
	ctx := n.Context()
	if ctx == nil {
		return n.Simplify()
	}

	return n.Simplify(ctx.ImmutableNames()...)
}

// publisher is implemented by observable values: containers, contexts and
// nodes.
type publisher interface {
	Events() *event.Bus
}

// evaluator selects between cached evaluation ([Node.Eval]) and pure
// evaluation against an explicit context ([Node.EvalIn]).
type evaluator struct {
	ctx   *scope.Context
	force bool
	pure  bool
}

func (e evaluator) eval(n Node) (any, error) {
	if e.pure {
		return n.EvalIn(e.ctx)
	}

	return n.Eval(e.force)
}

// node holds the state shared by every concrete [Node].
type node struct {
	bus      event.Bus
	self     Node
	ctx      *scope.Context
	cached   any
	observed *event.Bus
	obsSub   *event.Subscription
	src      string
	pos      int
	dirty    bool
	defined  bool
	// notified is set once an invalidation has been published and cleared
	// by the next evaluation.
	notified bool
	// static nodes never change and are shared between trees.
	static bool
	// observes is set on nodes whose value may be a container that is
	// mutated in place.
	observes bool
}

func (n *node) init(self Node, src string, pos int) {
	n.self, n.src, n.pos = self, src, pos
	n.dirty = true
	n.bus.SetOwner(self)
}

func (n *node) base() *node { return n }

func (n *node) Events() *event.Bus      { return &n.bus }
func (n *node) Context() *scope.Context { return n.ctx }
func (n *node) Dirty() bool             { return n.dirty }
func (n *node) Defined() bool           { return n.defined }
func (n *node) Pos() int                { return n.pos }

func (n *node) Eval(force bool) (any, error) {
	if !n.dirty && !force {
		return n.cached, nil
	}

	n.defined, n.notified = false, false

	v, err := n.self.compute(evaluator{ctx: n.ctx, force: force})
	if err != nil {
		n.dirty = true

		return nil, err
	}

	n.settle(v)

	return v, nil
}

func (n *node) EvalIn(ctx *scope.Context) (any, error) {
	return n.self.compute(evaluator{ctx: ctx, pure: true})
}

func (n *node) Value() any {
	if v, err := n.self.Eval(false); err == nil {
		return v
	}

	return n.cached
}

func (n *node) Bind(ctx *scope.Context) { n.self.bind(ctx, nil) }
func (n *node) Unbind()                 { n.self.bind(nil, nil) }

func (n *node) Mutable() bool { return false }

func (n *node) Solve(v any, x Node) error { return n.noSolution(v, x) }

func (n *node) Assign(any) error {
	return ErrAssign.At(n.src, n.pos).With(slog.String("expr", n.self.String()))
}

func (n *node) Contains(x Node) bool {
	if n.self.Equiv(x) {
		return true
	}

	for _, c := range n.self.children() {
		if c.Contains(x) {
			return true
		}
	}

	return false
}

// reset detaches n from its context and the value it observes, leaving it
// dirty. Static nodes are left alone.
func (n *node) reset(ctx *scope.Context) {
	if n.static {
		return
	}

	n.unobserve()
	n.ctx = ctx
	n.cached, n.dirty, n.defined, n.notified = nil, true, false, false
}

// settle installs v as the fresh cached value.
func (n *node) settle(v any) {
	n.cached, n.dirty, n.defined, n.notified = v, false, true, false

	if n.observes {
		n.observe(v)
	}
}

// update installs a value learned from a change notification and forwards
// it to subscribers.
func (n *node) update(v any) {
	n.settle(v)
	n.bus.Pub(event.ChannelChange, event.Updated(v))
}

// invalidate marks the cache stale. Subscribers are told once between two
// evaluations, so a mutation reaching n along several paths, as in x + x,
// is published once even before n was first evaluated.
func (n *node) invalidate() {
	if n.dirty && n.notified {
		return
	}

	n.dirty, n.notified = true, true
	n.bus.Pub(event.ChannelChange, event.Invalidate())
}

// assigned finishes an assignment of v through n. The operands the write
// went through may have been invalidated by it, so they are re-evaluated
// first; a dirty operand under a clean n would swallow later changes. If the
// write reached n through a notification, n is already dirty and its
// subscribers know.
func (n *node) assigned(v any, operands ...Node) {
	for _, c := range operands {
		if c != nil && c.Dirty() {
			_, _ = c.Eval(false)
		}
	}

	if n.dirty {
		n.cached, n.dirty, n.defined, n.notified = v, false, true, false

		return
	}

	n.update(v)
}

func (n *node) observe(v any) {
	p, ok := v.(publisher)
	if !ok {
		n.unobserve()

		return
	}

	bus := p.Events()
	if bus == n.observed && n.obsSub.Active() {
		return
	}

	n.unobserve()
	n.observed = bus
	n.obsSub = bus.Sub(event.ChannelChange, func(*event.Message) {
		n.invalidate()
	})
}

func (n *node) unobserve() {
	n.obsSub.Cancel()
	n.obsSub, n.observed = nil, nil
}

// watch subscribes fn to the change channel of every non-static child.
func (n *node) watch(c Node, fn event.Handler) {
	if c == nil || c.base().static {
		return
	}

	c.Events().Sub(event.ChannelChange, fn)
}

// watchAll subscribes the generic invalidation handler to children.
func (n *node) watchAll(cs ...Node) {
	for _, c := range cs {
		n.watch(c, func(*event.Message) { n.invalidate() })
	}
}

// fail attaches the position of n to err unless it is already located.
func (n *node) fail(err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return WrapError(err).At(n.src, n.pos)
	}

	if e.pos < 0 {
		return e.At(n.src, n.pos)
	}

	return err
}

// noSolution reports that n cannot be made to evaluate to v by assigning x.
// The message names all three so that it reads well without the attributes.
func (n *node) noSolution(v any, x Node) error {
	expr := n.self.String()

	return ErrNoSolution.At(n.src, n.pos).
		Wrap(fmt.Errorf("%s = %s for %s", expr, Repr(v), x)).
		With(
			slog.String("expr", expr),
			slog.String("value", Repr(v)),
			slog.String("target", x.String()),
		)
}

// bindAll binds every non-nil node in cs.
func bindAll(ctx *scope.Context, shadow []string, cs ...Node) {
	for _, c := range cs {
		if c != nil {
			c.bind(ctx, shadow)
		}
	}
}

// cloneOf clones n, preserving nil.
func cloneOf(n Node) Node {
	if n == nil {
		return nil
	}

	return n.Clone()
}

// equivOf compares two possibly nil nodes.
func equivOf(a, b Node, assume ...[2]string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.Equiv(b, assume...)
}

// constOf reports whether a possibly nil node is constant.
func constOf(n Node, assume ...string) bool {
	return n == nil || n.IsConst(assume...)
}

// simplifyOf simplifies a possibly nil node.
func simplifyOf(n Node, assume ...string) Node {
	if n == nil {
		return nil
	}

	return n.Simplify(assume...)
}

// containsOf reports whether a possibly nil node contains x.
func containsOf(n Node, x Node) bool { return n != nil && n.Contains(x) }

// fold evaluates the constant node n and returns the result as a [Const]
// at the same position. It returns nil if the evaluation fails.
func fold(n Node) Node {
	ctx := n.Context()
	if ctx == nil {
		ctx = scope.New(nil, nil)
	}

	v, err := n.EvalIn(ctx)
	if err != nil {
		return nil
	}

	b := n.base()

	return newConst(scope.Unwrap(v), b.src, b.pos)
}
