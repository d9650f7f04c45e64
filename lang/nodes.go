package lang

import (
	"log/slog"
	"slices"

	"github.com/ardnew/livexpr/event"
	"github.com/ardnew/livexpr/scope"
)

// opNeg is the internal name of unary minus.
const opNeg = "-unary"

// priorities ranks operators; higher binds tighter.
var priorities = map[string]int{
	"(":  -2,
	"or": 0, "and": 1, "not": 2,
	"==": 3, "!=": 3, "<": 3, ">": 3, "<=": 3, ">=": 3,
	"is": 3, "is not": 3, "in": 3, "not in": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "//": 5, "%": 5,
	opNeg: 6,
	"**":  7,
	"[]":  8, "()": 8, ".": 8,
}

const atomPriority = 9

func priorityOf(n Node) int {
	switch n := n.(type) {
	case *Op:
		return priorities[n.op]
	case *Const:
		if isNegative(n.val) {
			return priorities[opNeg]
		}
	}

	return atomPriority
}

// operand renders n as an operand of an operator with priority p, adding
// parentheses when n binds looser, or equally loose and tie is set.
func operand(n Node, p int, tie bool) string {
	if q := priorityOf(n); q < p || (tie && q == p) {
		return "(" + n.String() + ")"
	}

	return n.String()
}

func assumedEqual(assume [][2]string, a, b string) bool {
	for _, p := range assume {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			return true
		}
	}

	return false
}

// Const is a literal value.
type Const struct {
	node

	val any
}

// NewConst returns a constant node holding v.
func NewConst(v any) *Const { return newConst(v, "", 0) }

func newConst(v any, src string, pos int) *Const {
	c := &Const{val: v}
	c.init(c, src, pos)
	c.static = true
	c.cached, c.dirty, c.defined = v, false, true

	return c
}

// Val returns the constant value.
func (c *Const) Val() any { return c.val }

func (c *Const) compute(evaluator) (any, error)     { return c.val, nil }
func (c *Const) bind(*scope.Context, []string)      {}
func (c *Const) children() []Node                   { return nil }
func (c *Const) Clone() Node                        { return c }
func (c *Const) IsConst(...string) bool             { return true }
func (c *Const) Simplify(...string) Node            { return c }
func (c *Const) String() string                     { return Repr(c.val) }
func (c *Const) Equiv(other Node, _ ...[2]string) bool {
	o, ok := other.(*Const)

	return ok && equal(c.val, o.val)
}

// reserved names evaluate to fixed values and cannot be rebound.
func reserved(name string) (any, bool) {
	switch name {
	case "True":
		return true, true
	case "False":
		return false, true
	case "None":
		return nil, true
	}

	f, ok := builtinFuncs[name]

	return f, ok
}

// Ident is a variable reference.
type Ident struct {
	node

	name  string
	watch *scope.Watch
}

// NewIdent returns an identifier node.
func NewIdent(name string) *Ident { return newIdent(name, "", 0) }

func newIdent(name, src string, pos int) *Ident {
	i := &Ident{name: name}
	i.init(i, src, pos)
	i.observes = true

	if v, ok := reserved(name); ok {
		i.static = true
		i.cached, i.dirty, i.defined = v, false, true
	}

	return i
}

// Name returns the identifier.
func (i *Ident) Name() string { return i.name }

func (i *Ident) children() []Node { return nil }
func (i *Ident) String() string   { return i.name }

func (i *Ident) bind(ctx *scope.Context, shadow []string) {
	if i.static {
		return
	}

	i.watch.Cancel()
	i.watch = nil
	i.reset(ctx)

	if ctx == nil || slices.Contains(shadow, i.name) {
		return
	}

	i.watch = ctx.Watch(i.name, i.changed)

	if v, ok := ctx.Get(i.name); ok {
		i.observe(v)
	}
}

func (i *Ident) changed(c event.Change) {
	if c.HasValue {
		i.update(c.Value)

		return
	}

	i.unobserve()
	i.defined = false
	i.invalidate()
}

func (i *Ident) compute(e evaluator) (any, error) {
	if i.static {
		return i.cached, nil
	}

	if e.ctx == nil {
		return nil, ErrUnbound.At(i.src, i.pos).With(slog.String("name", i.name))
	}

	v, ok := e.ctx.Get(i.name)
	if !ok {
		return nil, ErrUndefined.At(i.src, i.pos).With(slog.String("name", i.name))
	}

	return v, nil
}

func (i *Ident) Clone() Node {
	if i.static {
		return i
	}

	return newIdent(i.name, i.src, i.pos)
}

func (i *Ident) IsConst(assume ...string) bool {
	return i.static || slices.Contains(assume, i.name)
}

func (i *Ident) Simplify(assume ...string) Node {
	if i.static {
		return i
	}

	if i.IsConst(assume...) {
		if f := fold(i); f != nil {
			return f
		}
	}

	return i.Clone()
}

func (i *Ident) Mutable() bool {
	return !i.static && (i.ctx == nil || !i.ctx.Immutable(i.name))
}

func (i *Ident) Equiv(other Node, assume ...[2]string) bool {
	o, ok := other.(*Ident)

	return ok && (o.name == i.name || assumedEqual(assume, i.name, o.name))
}

func (i *Ident) Solve(v any, x Node) error {
	if i.static || !i.Equiv(x) {
		return i.noSolution(v, x)
	}

	return i.Assign(v)
}

func (i *Ident) Assign(v any) error {
	switch {
	case i.static:
		return i.node.Assign(v)
	case i.ctx == nil:
		return ErrUnbound.At(i.src, i.pos).With(slog.String("name", i.name))
	}

	if err := i.ctx.Set(i.name, v); err != nil {
		return ErrAssign.At(i.src, i.pos).Wrap(err).With(slog.String("name", i.name))
	}

	// Watched identifiers learn the new value from the context.
	if i.watch == nil {
		got, _ := i.ctx.Get(i.name)
		i.settle(got)
	}

	return nil
}

// Op is an operator application: binary, unary (left is nil), indexing
// ("[]", right is a [Slice]) or call ("()", right is an [Args] or
// [ConstArgs]).
type Op struct {
	node

	op          string
	left, right Node
}

// NewOp returns an operator node. Unary operators ("-" and "not") take a nil
// left operand.
func NewOp(op string, left, right Node) *Op {
	if op == "-" && left == nil {
		op = opNeg
	}

	return newOp(op, left, right, "", 0)
}

func newOp(op string, left, right Node, src string, pos int) *Op {
	o := &Op{op: op, left: left, right: right}
	o.init(o, src, pos)
	o.observes = op == "[]" || op == "()"
	o.watchAll(left, right)

	return o
}

// Operator returns the operator spelling.
func (o *Op) Operator() string {
	if o.op == opNeg {
		return "-"
	}

	return o.op
}

// Operands returns the operands; left is nil for unary operators.
func (o *Op) Operands() (left, right Node) { return o.left, o.right }

func (o *Op) children() []Node {
	if o.left == nil {
		return []Node{o.right}
	}

	return []Node{o.left, o.right}
}

func (o *Op) bind(ctx *scope.Context, shadow []string) {
	o.reset(ctx)
	bindAll(ctx, shadow, o.left, o.right)
}

func (o *Op) compute(e evaluator) (any, error) {
	if o.op == "and" || o.op == "or" {
		l, err := e.eval(o.left)
		if err != nil {
			return nil, err
		}

		if truthy(l) == (o.op == "or") {
			return l, nil
		}

		return e.eval(o.right)
	}

	var (
		l, r any
		err  error
	)

	if o.left != nil {
		if l, err = e.eval(o.left); err != nil {
			return nil, err
		}
	}

	if r, err = e.eval(o.right); err != nil {
		return nil, err
	}

	var v any

	switch o.op {
	case opNeg:
		v, err = negate(r)
	case "not":
		v = !truthy(r)
	case "[]":
		v, err = index(l, r)
	case "()":
		args, _ := r.(ArgsValue)
		v, err = call(l, args)
	default:
		v, err = binary(o.op, l, r)
	}

	if err != nil {
		return nil, o.fail(err)
	}

	return v, nil
}

// CallWith evaluates a call node with extra positional arguments appended
// and extra keyword arguments merged over its own.
func (o *Op) CallWith(args []any, kwargs map[string]any) (any, error) {
	if o.op != "()" {
		return nil, ErrNotCallable.At(o.src, o.pos).With(slog.String("expr", o.String()))
	}

	f, err := o.left.Eval(false)
	if err != nil {
		return nil, err
	}

	a, err := o.right.Eval(false)
	if err != nil {
		return nil, err
	}

	v, err := call(f, a.(ArgsValue).With(args, kwargs))
	if err != nil {
		return nil, o.fail(err)
	}

	return v, nil
}

func (o *Op) Clone() Node {
	return newOp(o.op, cloneOf(o.left), cloneOf(o.right), o.src, o.pos)
}

func (o *Op) IsConst(assume ...string) bool {
	return constOf(o.left, assume...) && constOf(o.right, assume...)
}

func (o *Op) Simplify(assume ...string) Node {
	if o.IsConst(assume...) {
		if f := fold(o); f != nil {
			return f
		}
	}

	return newOp(o.op,
		simplifyOf(o.left, assume...), simplifyOf(o.right, assume...),
		o.src, o.pos)
}

func (o *Op) Mutable() bool {
	if o.op != "[]" {
		return false
	}

	s, ok := o.right.(*Slice)

	return ok && !s.isSlice && o.left.Mutable()
}

func (o *Op) Equiv(other Node, assume ...[2]string) bool {
	p, ok := other.(*Op)

	return ok && p.op == o.op &&
		equivOf(o.left, p.left, assume...) &&
		equivOf(o.right, p.right, assume...)
}

func (o *Op) Assign(v any) error {
	if o.op != "[]" {
		return o.node.Assign(v)
	}

	c, err := o.left.Eval(false)
	if err != nil {
		return err
	}

	i, err := o.right.Eval(false)
	if err != nil {
		return err
	}

	if err := setIndex(c, i, v); err != nil {
		return o.fail(err)
	}

	o.assigned(v, o.left, o.right)

	return nil
}

func (o *Op) String() string {
	p := priorities[o.op]

	switch o.op {
	case opNeg:
		return "-" + operand(o.right, p, false)
	case "not":
		return "not " + operand(o.right, p, false)
	case "[]":
		return operand(o.left, p, false) + "[" + o.right.String() + "]"
	case "()":
		return operand(o.left, p, false) + "(" + o.right.String() + ")"
	}

	rightAssoc := o.op == "**"

	return operand(o.left, p, rightAssoc) + " " + o.op + " " +
		operand(o.right, p, !rightAssoc)
}

// Attr is an attribute access.
type Attr struct {
	node

	obj  Node
	name string
}

// NewAttr returns an attribute access node.
func NewAttr(obj Node, name string) *Attr { return newAttr(obj, name, "", 0) }

func newAttr(obj Node, name, src string, pos int) *Attr {
	a := &Attr{obj: obj, name: name}
	a.init(a, src, pos)
	a.observes = true
	a.watchAll(obj)

	return a
}

// Object returns the node whose attribute is accessed.
func (a *Attr) Object() Node { return a.obj }

// Name returns the attribute name.
func (a *Attr) Name() string { return a.name }

func (a *Attr) children() []Node { return []Node{a.obj} }

func (a *Attr) bind(ctx *scope.Context, shadow []string) {
	a.reset(ctx)
	a.obj.bind(ctx, shadow)
}

func (a *Attr) compute(e evaluator) (any, error) {
	o, err := e.eval(a.obj)
	if err != nil {
		return nil, err
	}

	v, err := attr(o, a.name)
	if err != nil {
		return nil, a.fail(err)
	}

	return v, nil
}

func (a *Attr) Clone() Node {
	return newAttr(a.obj.Clone(), a.name, a.src, a.pos)
}

func (a *Attr) IsConst(assume ...string) bool { return a.obj.IsConst(assume...) }

func (a *Attr) Simplify(assume ...string) Node {
	if a.IsConst(assume...) {
		if f := fold(a); f != nil {
			return f
		}
	}

	return newAttr(a.obj.Simplify(assume...), a.name, a.src, a.pos)
}

func (a *Attr) Mutable() bool {
	o, err := a.obj.Eval(false)

	return err == nil && settable(o, a.name)
}

func (a *Attr) Equiv(other Node, assume ...[2]string) bool {
	b, ok := other.(*Attr)

	return ok && b.name == a.name && a.obj.Equiv(b.obj, assume...)
}

func (a *Attr) Solve(v any, x Node) error {
	if !a.Equiv(x) {
		return a.noSolution(v, x)
	}

	return a.Assign(v)
}

func (a *Attr) Assign(v any) error {
	o, err := a.obj.Eval(false)
	if err != nil {
		return err
	}

	if err := setAttr(o, a.name, v); err != nil {
		return a.fail(err)
	}

	a.assigned(v, a.obj)

	return nil
}

func (a *Attr) String() string {
	return operand(a.obj, priorities["."], false) + "." + a.name
}

// Slice is the subscript of an indexing operation: either a single index
// expression or a start:end:step slice with optional parts.
type Slice struct {
	node

	start, end, step Node
	isSlice          bool
}

// SliceValue is the value of a slice subscript. Absent parts are nil.
type SliceValue struct {
	Start, End, Step any
}

// NewIndex returns a subscript selecting a single element.
func NewIndex(i Node) *Slice { return newSlice(i, nil, nil, false, "", 0) }

// NewSlice returns a slice subscript. Any part may be nil.
func NewSlice(start, end, step Node) *Slice {
	return newSlice(start, end, step, true, "", 0)
}

func newSlice(start, end, step Node, isSlice bool, src string, pos int) *Slice {
	s := &Slice{start: start, end: end, step: step, isSlice: isSlice}
	s.init(s, src, pos)
	s.watchAll(start, end, step)

	return s
}

// IsSlice reports whether s is a slice rather than a single index.
func (s *Slice) IsSlice() bool { return s.isSlice }

func (s *Slice) children() []Node {
	var cs []Node

	for _, c := range []Node{s.start, s.end, s.step} {
		if c != nil {
			cs = append(cs, c)
		}
	}

	return cs
}

func (s *Slice) bind(ctx *scope.Context, shadow []string) {
	s.reset(ctx)
	bindAll(ctx, shadow, s.start, s.end, s.step)
}

func (s *Slice) compute(e evaluator) (any, error) {
	if !s.isSlice {
		return e.eval(s.start)
	}

	var (
		sv  SliceValue
		err error
	)

	for _, p := range []struct {
		n   Node
		dst *any
	}{{s.start, &sv.Start}, {s.end, &sv.End}, {s.step, &sv.Step}} {
		if p.n == nil {
			continue
		}

		if *p.dst, err = e.eval(p.n); err != nil {
			return nil, err
		}
	}

	return sv, nil
}

func (s *Slice) Clone() Node {
	return newSlice(cloneOf(s.start), cloneOf(s.end), cloneOf(s.step),
		s.isSlice, s.src, s.pos)
}

func (s *Slice) IsConst(assume ...string) bool {
	return constOf(s.start, assume...) && constOf(s.end, assume...) &&
		constOf(s.step, assume...)
}

func (s *Slice) Simplify(assume ...string) Node {
	return newSlice(
		simplifyOf(s.start, assume...),
		simplifyOf(s.end, assume...),
		simplifyOf(s.step, assume...),
		s.isSlice, s.src, s.pos)
}

func (s *Slice) Equiv(other Node, assume ...[2]string) bool {
	t, ok := other.(*Slice)

	return ok && t.isSlice == s.isSlice &&
		equivOf(s.start, t.start, assume...) &&
		equivOf(s.end, t.end, assume...) &&
		equivOf(s.step, t.step, assume...)
}

func (s *Slice) String() string {
	if !s.isSlice {
		return s.start.String()
	}

	part := func(n Node) string {
		if n == nil {
			return ""
		}

		return n.String()
	}

	str := part(s.start) + ":" + part(s.end)
	if s.step != nil {
		str += ":" + s.step.String()
	}

	return str
}
