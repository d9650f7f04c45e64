package lang

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/livexpr/log"
)

// ParseOption configures [Parse].
type ParseOption func(*parseOptions)

type parseOptions struct {
	cache    *Cache
	logger   log.Logger
	trailing bool
}

// AllowTrailing lets parsing stop at the first token that cannot continue
// the expression instead of failing on it.
func AllowTrailing(allow bool) ParseOption {
	return func(o *parseOptions) { o.trailing = allow }
}

// WithCache memoizes parse results in c instead of [DefaultCache].
func WithCache(c *Cache) ParseOption {
	return func(o *parseOptions) { o.cache = c }
}

// WithoutCache disables memoization.
func WithoutCache() ParseOption {
	return func(o *parseOptions) { o.cache = nil }
}

// WithLogger sets the logger receiving cache trace output.
func WithLogger(l log.Logger) ParseOption {
	return func(o *parseOptions) { o.logger = l }
}

// Parse parses an expression. It returns the tree and the byte offset at
// which parsing stopped: len(text), or with [AllowTrailing] the start of the
// first unconsumed token.
//
// The returned tree is unbound and owned by the caller.
func Parse(text string, opts ...ParseOption) (Node, int, error) {
	o := parseOptions{cache: DefaultCache, logger: packageLogger()}

	for _, opt := range opts {
		opt(&o)
	}

	if o.cache != nil {
		return o.cache.parse(text, o.trailing, o.logger)
	}

	return parse(text, o.trailing)
}

// MustParse is like [Parse] but panics on error.
func MustParse(text string, opts ...ParseOption) Node {
	n, _, err := Parse(text, opts...)
	if err != nil {
		panic(err)
	}

	return n
}

func parse(text string, trailing bool) (Node, int, error) {
	p := &parser{ts: Tokenize(text), src: text}

	n, stop, err := p.expr(nil, trailing)
	if err != nil {
		return nil, 0, err
	}

	if n == nil {
		return nil, 0, ErrEmptyExpression.At(text, stop.Start)
	}

	return n, stop.Start, nil
}

// ParseInterpolated splits text into literal fragments and expressions
// delimited by start and end. Literal text becomes a [Const]; each
// expression e becomes str(e). Scanning stops before the first occurrence
// of any of stops outside an expression. It returns the consumed prefix of
// text and the fragments.
func ParseInterpolated(text, start, end string, stops ...string) (string, []Node, error) {
	m := NewMatcher(slices.Concat([]string{start}, stops)...)

	var frags []Node

	at := 0

	for {
		i, which := m.Find(text, at)
		if i < 0 {
			if at < len(text) {
				frags = append(frags, newConst(text[at:], text, at))
			}

			return text, frags, nil
		}

		if i > at {
			frags = append(frags, newConst(text[at:i], text, at))
		}

		if which != 0 {
			return text[:i], frags, nil
		}

		n, next, err := parseMarked(text, i, start, end)
		if err != nil {
			return "", nil, err
		}

		frags = append(frags, n)
		at = next
	}
}

// parseMarked parses the expression that follows the start marker at
// offset at of text and returns it wrapped in a str call, along with the
// offset just past its end marker.
func parseMarked(text string, at int, start, end string) (Node, int, error) {
	p := &parser{ts: TokenizeAt(text, at+len(start)), src: text}

	n, stop, err := p.expr(func(t Token) bool {
		return strings.HasPrefix(text[t.Start:], end)
	}, false)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case stop.Kind == TokenEOF:
		return nil, 0, ErrUnterminatedMarker.At(text, at).
			With(slog.String("marker", end))
	case n == nil:
		return nil, 0, ErrEmptyExpression.At(text, stop.Start)
	}

	str := newOp("()",
		newIdent("str", text, at),
		newArgs([]Node{n}, nil, nil, text, at),
		text, at)

	return str, stop.Start + len(end), nil
}

type parser struct {
	ts  *TokenStream
	src string
}

// pending is an entry of the operator stack.
type pending struct {
	op  string
	pos int
}

// frame is the operand and operator stacks of one expression.
type frame struct {
	p     *parser
	args  []Node
	ops   []pending
	depth int
	// value is set when the last item completed an operand.
	value bool
}

// expr parses one expression. It stops at the end of input, at a token
// accepted by stop outside any parenthesis, or, if trailing is set, at the
// first token that cannot continue the expression. The stop token is
// consumed and returned. A nil node means the expression was empty.
func (p *parser) expr(stop func(Token) bool, trailing bool) (Node, Token, error) {
	f := &frame{p: p}

	for {
		tok, err := p.ts.Next()
		if err != nil {
			return nil, tok, err
		}

		switch {
		case tok.Kind == TokenSpace:
			continue
		case tok.Kind == TokenEOF, f.depth == 0 && stop != nil && stop(tok):
			n, err := f.finish()

			return n, tok, err
		}

		done, err := f.step(tok, trailing)
		if err != nil {
			return nil, tok, err
		}

		if done {
			n, err := f.finish()

			return n, tok, err
		}
	}
}

// next returns the next token that is not a space.
func (p *parser) next() (Token, error) {
	for {
		tok, err := p.ts.Next()
		if err != nil || tok.Kind != TokenSpace {
			return tok, err
		}
	}
}

func (f *frame) push(n Node) {
	f.args = append(f.args, n)
	f.value = true
}

func (f *frame) pop() Node {
	n := f.args[len(f.args)-1]
	f.args = f.args[:len(f.args)-1]

	return n
}

func (f *frame) top() (pending, bool) {
	if len(f.ops) == 0 {
		return pending{}, false
	}

	return f.ops[len(f.ops)-1], true
}

// step consumes tok. It reports true when tok ends a trailing expression.
func (f *frame) step(tok Token, trailing bool) (bool, error) {
	src := f.p.src

	switch tok.Kind {
	case TokenNumber, TokenString, TokenIdent:
		if f.value {
			return f.stray(tok, trailing)
		}

		if tok.Kind == TokenIdent {
			f.push(newIdent(tok.Text, src, tok.Start))
		} else {
			f.push(newConst(tok.Value, src, tok.Start))
		}

	case TokenKeyword:
		if !tok.Is(TokenKeyword, "in") {
			return f.stray(tok, trailing)
		}

		return f.operator(tok, trailing)

	case TokenOperator:
		return f.operator(tok, trailing)

	case TokenDot:
		if !f.value {
			return false, ErrMissingOperand.At(src, tok.Start).
				With(slog.String("operator", "."))
		}

		name, err := f.p.next()
		if err != nil {
			return false, err
		}

		if name.Kind != TokenIdent {
			return false, ErrAttributeName.At(src, name.Start).
				With(slog.String("token", name.Text))
		}

		f.push(newAttr(f.pop(), name.Text, src, tok.Start))

	case TokenLBracket:
		if f.value {
			s, err := f.p.subscript(tok)
			if err != nil {
				return false, err
			}

			f.push(newOp("[]", f.pop(), s, src, tok.Start))

			break
		}

		n, err := f.p.list(tok)
		if err != nil {
			return false, err
		}

		f.push(n)

	case TokenLParen:
		if f.value {
			a, err := f.p.callArgs(tok)
			if err != nil {
				return false, err
			}

			f.push(newOp("()", f.pop(), a, src, tok.Start))

			break
		}

		f.ops = append(f.ops, pending{"(", tok.Start})
		f.depth++

	case TokenRParen:
		if f.depth == 0 {
			if trailing && f.value {
				return true, nil
			}

			return false, ErrUnbalanced.At(src, tok.Start)
		}

		return false, f.close()

	default:
		return f.stray(tok, trailing)
	}

	return false, nil
}

// stray handles a token that cannot continue the expression.
func (f *frame) stray(tok Token, trailing bool) (bool, error) {
	if trailing && f.value && f.depth == 0 {
		return true, nil
	}

	return false, ErrUnexpectedToken.At(f.p.src, tok.Start).
		With(slog.String("token", tok.Text))
}

func (f *frame) operator(tok Token, trailing bool) (bool, error) {
	op, _ := tok.Value.(string)

	if !f.value {
		switch op {
		case "-":
			f.ops = append(f.ops, pending{opNeg, tok.Start})
		case "not":
			f.ops = append(f.ops, pending{op, tok.Start})
		default:
			return false, ErrMissingOperand.At(f.p.src, tok.Start).
				With(slog.String("operator", op))
		}

		return false, nil
	}

	if op == "not" {
		return f.stray(tok, trailing)
	}

	p := priorities[op]

	for {
		top, ok := f.top()
		if !ok {
			break
		}

		// ** is right-associative.
		if q := priorities[top.op]; q < p || (op == "**" && q == p) {
			break
		}

		if err := f.reduce(); err != nil {
			return false, err
		}
	}

	f.ops = append(f.ops, pending{op, tok.Start})
	f.value = false

	return false, nil
}

// close reduces the operators down to the matching parenthesis.
func (f *frame) close() error {
	src := f.p.src

	if !f.value {
		top, _ := f.top()
		if top.op == "(" {
			return ErrEmptyExpression.At(src, top.pos)
		}

		return ErrMissingOperand.At(src, top.pos).
			With(slog.String("operator", spelling(top.op)))
	}

	for {
		top, _ := f.top()
		if top.op == "(" {
			break
		}

		if err := f.reduce(); err != nil {
			return err
		}
	}

	f.ops = f.ops[:len(f.ops)-1]
	f.depth--

	return nil
}

// finish reduces every pending operator and returns the single operand left.
func (f *frame) finish() (Node, error) {
	src := f.p.src

	if !f.value {
		top, ok := f.top()
		switch {
		case !ok:
			return nil, nil
		case top.op == "(":
			return nil, ErrUnbalanced.At(src, top.pos)
		}

		return nil, ErrMissingOperand.At(src, top.pos).
			With(slog.String("operator", spelling(top.op)))
	}

	for len(f.ops) > 0 {
		if top, _ := f.top(); top.op == "(" {
			return nil, ErrUnbalanced.At(src, top.pos)
		}

		if err := f.reduce(); err != nil {
			return nil, err
		}
	}

	if len(f.args) != 1 {
		return nil, ErrMissingOperand.At(src, f.args[len(f.args)-1].Pos())
	}

	return f.args[0], nil
}

// reduce applies the operator on top of the stack to its operands.
func (f *frame) reduce() error {
	top := f.ops[len(f.ops)-1]
	f.ops = f.ops[:len(f.ops)-1]

	unary := top.op == opNeg || top.op == "not"

	need := 2
	if unary {
		need = 1
	}

	if len(f.args) < need {
		return ErrMissingOperand.At(f.p.src, top.pos).
			With(slog.String("operator", spelling(top.op)))
	}

	right := f.pop()

	if unary {
		if c, ok := right.(*Const); ok && top.op == opNeg {
			if v, err := negate(c.val); err == nil {
				f.push(newConst(v, f.p.src, top.pos))

				return nil
			}
		}

		f.push(newOp(top.op, nil, right, f.p.src, top.pos))

		return nil
	}

	left := f.pop()
	f.push(newOp(top.op, left, right, f.p.src, top.pos))

	return nil
}

func spelling(op string) string {
	if op == opNeg {
		return "-"
	}

	return op
}

// subscript parses the inside of an index or slice after open.
func (p *parser) subscript(open Token) (*Slice, error) {
	stop := func(t Token) bool {
		return t.Is(TokenColon) || t.Is(TokenRBracket)
	}

	var parts [3]Node

	n, end, err := p.expr(stop, false)
	if err != nil {
		return nil, err
	}

	parts[0] = n
	colons := 0

	for end.Is(TokenColon) {
		if colons++; colons > 2 {
			return nil, ErrUnexpectedToken.At(p.src, end.Start).
				With(slog.String("token", end.Text))
		}

		if parts[colons], end, err = p.expr(stop, false); err != nil {
			return nil, err
		}
	}

	if !end.Is(TokenRBracket) {
		return nil, ErrUnbalanced.At(p.src, open.Start)
	}

	if colons == 0 {
		if n == nil {
			return nil, ErrEmptyExpression.At(p.src, end.Start)
		}

		return newSlice(n, nil, nil, false, p.src, open.Start), nil
	}

	return newSlice(parts[0], parts[1], parts[2], true, p.src, open.Start), nil
}

// list parses a list literal or comprehension after open.
func (p *parser) list(open Token) (Node, error) {
	stop := func(t Token) bool {
		return t.Is(TokenRBracket) || t.Is(TokenComma) || t.Is(TokenKeyword, "for")
	}

	var items []Node

	for {
		n, end, err := p.expr(stop, false)
		if err != nil {
			return nil, err
		}

		switch {
		case end.Is(TokenKeyword, "for"):
			if n == nil || len(items) > 0 {
				return nil, ErrComprehension.At(p.src, end.Start)
			}

			return p.compr(open, n)

		case end.Is(TokenComma):
			if n == nil {
				return nil, ErrUnexpectedToken.At(p.src, end.Start).
					With(slog.String("token", end.Text))
			}

			items = append(items, n)

		case end.Is(TokenRBracket):
			if n != nil {
				items = append(items, n)
			}

			return newList(items, p.src, open.Start), nil

		default:
			return nil, ErrUnbalanced.At(p.src, open.Start)
		}
	}
}

// compr parses the rest of a comprehension after "for".
func (p *parser) compr(open Token, body Node) (Node, error) {
	v, end, err := p.expr(func(t Token) bool { return t.Is(TokenKeyword, "in") }, false)
	if err != nil {
		return nil, err
	}

	id, ok := v.(*Ident)
	if !ok || id.static || !end.Is(TokenKeyword, "in") {
		at := end.Start
		if v != nil {
			at = v.Pos()
		}

		return nil, ErrComprehension.At(p.src, at).
			With(slog.String("reason", "loop variable must be a name"))
	}

	lst, end, err := p.expr(func(t Token) bool {
		return t.Is(TokenKeyword, "if") || t.Is(TokenRBracket)
	}, false)
	if err != nil {
		return nil, err
	}

	if lst == nil {
		return nil, ErrEmptyExpression.At(p.src, end.Start)
	}

	var cond Node

	if end.Is(TokenKeyword, "if") {
		if cond, end, err = p.expr(func(t Token) bool { return t.Is(TokenRBracket) }, false); err != nil {
			return nil, err
		}

		if cond == nil {
			return nil, ErrEmptyExpression.At(p.src, end.Start)
		}
	}

	if !end.Is(TokenRBracket) {
		return nil, ErrUnbalanced.At(p.src, open.Start)
	}

	return newCompr(body, id.name, lst, cond, p.src, open.Start), nil
}

// callArgs parses the argument list of a call after open.
func (p *parser) callArgs(open Token) (*Args, error) {
	stop := func(t Token) bool {
		return t.Is(TokenComma) || t.Is(TokenRParen) || t.Is(TokenEqual)
	}
	value := func(t Token) bool { return t.Is(TokenComma) || t.Is(TokenRParen) }

	var (
		pos, kw []Node
		names   []string
	)

	for {
		n, end, err := p.expr(stop, false)
		if err != nil {
			return nil, err
		}

		switch {
		case end.Is(TokenEqual):
			id, ok := n.(*Ident)
			if !ok || id.static {
				return nil, ErrKeywordName.At(p.src, end.Start)
			}

			if slices.Contains(names, id.name) {
				return nil, ErrKeywordRepeated.At(p.src, id.pos).
					With(slog.String("name", id.name))
			}

			var v Node

			if v, end, err = p.expr(value, false); err != nil {
				return nil, err
			}

			if v == nil {
				return nil, ErrEmptyExpression.At(p.src, end.Start)
			}

			names, kw = append(names, id.name), append(kw, v)

		case n == nil:
			// f() and a trailing comma before ) are allowed.
			if !end.Is(TokenRParen) {
				return nil, ErrEmptyExpression.At(p.src, end.Start)
			}

		case len(kw) > 0:
			return nil, ErrKeywordArgument.At(p.src, n.Pos())

		default:
			pos = append(pos, n)
		}

		switch {
		case end.Is(TokenRParen):
			return newArgs(pos, names, kw, p.src, open.Start), nil
		case !end.Is(TokenComma):
			return nil, ErrUnbalanced.At(p.src, open.Start)
		}
	}
}
