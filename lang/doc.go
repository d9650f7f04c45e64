// Package lang implements a small Python-like expression language whose
// parsed trees re-evaluate incrementally as the variables they read change.
//
// # Syntax
//
// Expressions are built from literals, names and operators:
//
//	42  3.5  'text'  "text"  True  False  None
//	[a, b, c]  [x * 2 for x in items if x > 0]
//	a.b  a[i]  a[start:end:step]  f(x, y, key=value)
//	-x  not x  x ** y
//	x * y  x / y  x // y  x % y  x + y  x - y
//	x == y  x != y  x < y  x <= y  x > y  x >= y
//	x is y  x is not y  x in y  x not in y
//	x and y  x or y
//
// Operators are listed from tightest to loosest binding. ** is
// right-associative; the others associate to the left. Tuples, dict
// literals, chained comparisons and string prefixes are not supported.
//
// The names str, int and len are built-in functions. Strings have the
// methods upper, lower, strip, lstrip, rstrip, startswith, endswith,
// replace, split and join.
//
// # Evaluation
//
// [Parse] returns an unbound tree. [Node.Bind] attaches it to a
// [scope.Context]; from then on the tree observes every name it reads, and
// every container it resolved, and caches its value:
//
//	n, _, err := lang.Parse("price * (1 + rate)")
//	ctx := scope.New(map[string]any{"price": 10, "rate": 0.2}, nil)
//	n.Bind(ctx)
//	v, err := n.Eval(false) // 12.0
//	_ = ctx.Set("price", 20)
//	v, err = n.Eval(false)  // 24.0
//
// A change marks the cached values on the path to the root dirty. Each node
// publishes one [event.Change] per transition from clean to dirty, so a
// subscriber to the root hears about a burst of changes once.
//
// # Solving
//
// [Node.Solve] runs an expression backwards: given a desired value and a
// target name occurring once in the expression, it assigns the name so that
// the expression evaluates to that value. Sums, differences, products,
// negation, list literals, comprehensions, indexing, attributes and calls
// of functions registered with [RegisterInverse] can be solved.
//
// # Interpolation
//
// [NewInterpolated] embeds expressions in literal text between markers,
// "{{" and "}}" by default. The resulting [Interpolated] re-renders only the
// fragments whose inputs changed.
//
// # Errors
//
// Every error is an [*Error] that records the source text and byte offset
// it refers to; [Error.Snippet] renders the offending line with a caret.
package lang
