package lang

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Solve inverts the operator so that the node evaluates to v by assigning
// the occurrence of x in one of its operands.
//
// Unary minus and not invert the value and recurse. For +, - and * the
// target must occur in exactly one operand; the other operand is held at its
// current value. Indexing assigns through the index when the node itself, or
// its container, is the target; otherwise it solves the index for the
// position of v in the container, or stores v at the current index if the
// container does not hold it. Calls are solved through the inverse
// registered with [RegisterInverse].
func (o *Op) Solve(v any, x Node) error {
	switch o.op {
	case opNeg, "not":
		return o.solveUnary(v, x)
	case "+", "-", "*":
		return o.solveArith(v, x)
	case "[]":
		return o.solveIndex(v, x)
	case "()":
		return o.solveCall(v, x)
	}

	return o.noSolution(v, x)
}

func (o *Op) solveUnary(v any, x Node) error {
	if !o.right.Contains(x) {
		return o.noSolution(v, x)
	}

	if o.op == "not" {
		return o.right.Solve(!truthy(v), x)
	}

	n, ok := toNumber(v)
	if !ok {
		return o.noSolution(v, x)
	}

	neg, err := negate(n)
	if err != nil {
		return o.noSolution(v, x)
	}

	return o.right.Solve(neg, x)
}

func (o *Op) solveArith(v any, x Node) error {
	inLeft, inRight := o.left.Contains(x), o.right.Contains(x)
	if inLeft == inRight {
		return o.noSolution(v, x)
	}

	known, target := o.right, o.left
	if inRight {
		known, target = o.left, o.right
	}

	k, err := known.Eval(false)
	if err != nil {
		return err
	}

	// A string value only inverts concatenation with a string operand;
	// otherwise it is coerced to a number like any other value.
	if s, ok := v.(string); ok && o.op == "+" {
		if ks, ok := k.(string); ok {
			return o.solveConcat(s, ks, inRight, target, x)
		}
	}

	want, ok := toNumber(v)
	if !ok {
		return o.noSolution(v, x)
	}

	kn, ok := toNumber(k)
	if !ok {
		return o.noSolution(v, x)
	}

	var nv any

	switch {
	case o.op == "+":
		nv, err = arith("-", want, kn)
	case o.op == "-" && inRight:
		nv, err = arith("-", kn, want)
	case o.op == "-":
		nv, err = arith("+", want, kn)
	default:
		nv, err = quotient(want, kn)
	}

	if err != nil {
		return o.noSolution(v, x)
	}

	packageLogger().Trace("solve operand",
		slog.String("expr", o.String()),
		slog.String("value", Repr(v)),
		slog.String("operand", target.String()),
		slog.String("operand_value", Repr(nv)))

	return target.Solve(nv, x)
}

// solveConcat inverts string concatenation by removing the known operand
// from the matching end of s.
func (o *Op) solveConcat(s, k string, inRight bool, target, x Node) error {
	rest, ok := strings.CutPrefix(s, k)
	if !inRight {
		rest, ok = strings.CutSuffix(s, k)
	}

	if !ok {
		return o.noSolution(s, x)
	}

	return target.Solve(rest, x)
}

// quotient divides a by b, keeping integers when the division is exact.
func quotient(a, b any) (any, error) {
	ai, aInt := a.(int)
	bi, bInt := b.(int)

	switch {
	case toFloat(b) == 0:
		return nil, ErrDivisionByZero
	case aInt && bInt && ai%bi == 0:
		return ai / bi, nil
	}

	return arith("/", a, b)
}

func (o *Op) solveIndex(v any, x Node) error {
	s, ok := o.right.(*Slice)
	if !ok || s.isSlice {
		return o.noSolution(v, x)
	}

	if o.Equiv(x) || o.left.Equiv(x) {
		return o.Assign(v)
	}

	if o.left.Contains(x) || !s.start.Contains(x) {
		return o.noSolution(v, x)
	}

	c, err := o.left.Eval(false)
	if err != nil {
		return err
	}

	at, ok := locate(c, v)
	if !ok {
		// v is not in the container yet: store it at the current index.
		if !o.Mutable() {
			return o.noSolution(v, x)
		}

		return o.Assign(v)
	}

	packageLogger().Trace("solve index",
		slog.String("expr", o.String()),
		slog.String("value", Repr(v)),
		slog.String("index", Repr(at)))

	return s.start.Solve(at, x)
}

// locate returns the first index or key of container c holding v.
func locate(c, v any) (any, bool) {
	if m, ok := mapping(c); ok {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if equal(m[k], v) {
				return k, true
			}
		}

		return nil, false
	}

	s, ok := sequence(c)
	if !ok {
		return nil, false
	}

	i := slices.IndexFunc(s, func(e any) bool { return equal(e, v) })

	return i, i >= 0
}

func (o *Op) solveCall(v any, x Node) error {
	f, err := o.left.Eval(false)
	if err != nil {
		return err
	}

	fn, ok := f.(*Function)
	if !ok {
		return o.noSolution(v, x)
	}

	inv, ok := Inverse(fn)
	if !ok {
		return o.noSolution(v, x)
	}

	args, ok := o.right.(*Args)
	if !ok {
		return o.noSolution(v, x)
	}

	at := -1

	for i, c := range args.items {
		if c.Contains(x) {
			if at >= 0 {
				return o.noSolution(v, x)
			}

			at = i
		}
	}

	if at < 0 {
		return o.noSolution(v, x)
	}

	a, err := args.Eval(false)
	if err != nil {
		return err
	}

	av := a.(ArgsValue)
	pos, kw := slices.Clone(av.Pos), maps.Clone(av.Kw)

	if k := at - args.npos(); k >= 0 {
		kw[args.names[k]] = v
	} else {
		pos[at] = v
	}

	nv, err := inv.Call(pos, kw)
	if err != nil {
		return o.fail(err)
	}

	packageLogger().Trace("solve call",
		slog.String("expr", o.String()),
		slog.String("inverse", inv.Name),
		slog.String("value", Repr(v)),
		slog.String("argument_value", Repr(nv)))

	return args.items[at].Solve(nv, x)
}

// toNumber coerces v to a number: numbers as they are, then strings holding
// an integer, then strings holding a float.
func toNumber(v any) (any, bool) {
	if n, ok := number(v); ok {
		return n, true
	}

	s, ok := v.(string)
	if !ok {
		return nil, false
	}

	s = strings.TrimSpace(s)

	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}

	return nil, false
}
