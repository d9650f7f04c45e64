package lang

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// TokenKind classifies a [Token].
type TokenKind uint8

const (
	TokenEOF        TokenKind = iota // end of stream
	TokenSpace                       // space
	TokenNumber                      // number
	TokenString                      // string
	TokenIdent                       // identifier
	TokenOperator                    // operator
	TokenKeyword                     // keyword
	TokenLBracket                    // [
	TokenRBracket                    // ]
	TokenLParen                      // (
	TokenRParen                      // )
	TokenLBrace                      // {
	TokenRBrace                      // }
	TokenDot                         // .
	TokenComma                       // ,
	TokenColon                       // :
	TokenEqual                       // =
	TokenUnknown                     // unknown

	// The parser re-tags opening brackets and parentheses once it knows what
	// they open. The tokenizer never produces these kinds.
	TokenLBracketIndex // index [
	TokenLBracketList  // list [
	TokenLParenCall    // call (
	TokenLParenExpr    // expression (
)

var tokenKindNames = [...]string{
	TokenEOF:           "end of stream",
	TokenSpace:         "space",
	TokenNumber:        "number",
	TokenString:        "string",
	TokenIdent:         "identifier",
	TokenOperator:      "operator",
	TokenKeyword:       "keyword",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenDot:           ".",
	TokenComma:         ",",
	TokenColon:         ":",
	TokenEqual:         "=",
	TokenUnknown:       "unknown",
	TokenLBracketIndex: "index [",
	TokenLBracketList:  "list [",
	TokenLParenCall:    "call (",
	TokenLParenExpr:    "expression (",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}

	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is one lexical element of an expression.
type Token struct {
	// Value is the decoded literal: int or float64 for numbers, the unquoted
	// text for strings, and the source text for everything else.
	Value any
	// Text is the raw source text of the token.
	Text string
	// Start is the byte offset of the token, Pos the offset just past it.
	Start, Pos int
	Kind       TokenKind
}

// Is reports whether t has kind k and, for operators and keywords, one of
// the given spellings.
func (t Token) Is(k TokenKind, spelling ...string) bool {
	if t.Kind != k {
		return false
	}

	if len(spelling) == 0 {
		return true
	}

	s, _ := t.Value.(string)
	for _, sp := range spelling {
		if s == sp {
			return true
		}
	}

	return false
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}

	return t.Kind.String() + " " + strconv.Quote(t.Text)
}

// TokenStream produces the tokens of an expression lazily, left to right.
// Tokens handed back with [TokenStream.Push] are returned again, most
// recently pushed first.
type TokenStream struct {
	src    string
	pushed []Token
	pos    int
}

// Tokenize returns a stream over the tokens of src.
func Tokenize(src string) *TokenStream { return TokenizeAt(src, 0) }

// TokenizeAt returns a stream over the tokens of src starting at byte offset
// pos. Token positions remain offsets into src.
func TokenizeAt(src string, pos int) *TokenStream {
	return &TokenStream{src: src, pos: max(0, min(pos, len(src)))}
}

// Source returns the text being tokenized.
func (s *TokenStream) Source() string { return s.src }

// Pos returns the offset at which the next unpushed token starts.
func (s *TokenStream) Pos() int { return s.pos }

// Push returns t to the stream.
func (s *TokenStream) Push(t Token) { s.pushed = append(s.pushed, t) }

// Peek returns the next token without consuming it.
func (s *TokenStream) Peek() (Token, error) {
	t, err := s.Next()
	if err == nil {
		s.Push(t)
	}

	return t, err
}

// All consumes the rest of the stream, excluding the final [TokenEOF].
func (s *TokenStream) All() ([]Token, error) {
	var toks []Token

	for {
		t, err := s.Next()
		if err != nil {
			return toks, err
		}

		if t.Kind == TokenEOF {
			return toks, nil
		}

		toks = append(toks, t)
	}
}

// Next consumes and returns the next token.
// At the end of the input it returns a [TokenEOF] token, repeatedly.
func (s *TokenStream) Next() (Token, error) {
	if n := len(s.pushed); n > 0 {
		t := s.pushed[n-1]
		s.pushed = s.pushed[:n-1]

		return t, nil
	}

	start := s.pos
	if start >= len(s.src) {
		return Token{Kind: TokenEOF, Start: start, Pos: start}, nil
	}

	kind, end := classify(s.src, start)

	tok := Token{Kind: kind, Start: start}

	switch kind {
	case TokenNumber:
		v, n, err := ParseNumber(s.src, start)
		if err != nil {
			return Token{}, err
		}

		tok.Value, end = v, n

	case TokenString:
		v, n, err := parseString(s.src, start)
		if err != nil {
			return Token{}, err
		}

		tok.Value, end = v, n
	}

	tok.Pos = end
	tok.Text = s.src[start:end]

	if tok.Value == nil {
		tok.Value = tok.Text

		if kind == TokenOperator {
			// "is  not" and "not  in" are spelled with a single space.
			tok.Value = strings.Join(strings.Fields(tok.Text), " ")
		}
	}

	s.pos = end

	return tok, nil
}

func isDigit(c byte) bool      { return '0' <= c && c <= '9' }
func isSpace(c byte) bool      { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isIdentStart(c byte) bool { return c == '_' || c == '$' || ('a' <= c|0x20 && c|0x20 <= 'z') }
func isIdentChar(c byte) bool  { return isIdentStart(c) || isDigit(c) }

var wordOperators = map[string]TokenKind{
	"and": TokenOperator,
	"or":  TokenOperator,
	"not": TokenOperator,
	"is":  TokenOperator,
	"in":  TokenKeyword,
	"for": TokenKeyword,
	"if":  TokenKeyword,
}

// classify inspects at most four bytes of src starting at i and returns the
// kind of the token found there along with the offset just past it.
// Numbers and strings are measured by their own decoders.
func classify(src string, i int) (TokenKind, int) {
	c := src[i]

	at := func(k int) byte {
		if i+k < len(src) {
			return src[i+k]
		}

		return 0
	}

	switch {
	case isSpace(c):
		j := i + 1
		for j < len(src) && isSpace(src[j]) {
			j++
		}

		return TokenSpace, j

	case isDigit(c), c == '.' && isDigit(at(1)):
		return TokenNumber, i

	case c == '"', c == '\'':
		return TokenString, i

	case isIdentStart(c):
		j := i + 1
		for j < len(src) && isIdentChar(src[j]) {
			j++
		}

		kind, ok := wordOperators[src[i:j]]
		if !ok {
			return TokenIdent, j
		}

		switch src[i:j] {
		case "is":
			if k, ok := followedByWord(src, j, "not"); ok {
				return TokenOperator, k
			}

		case "not":
			if k, ok := followedByWord(src, j, "in"); ok {
				return TokenOperator, k
			}
		}

		return kind, j
	}

	switch c {
	case '*', '/':
		if at(1) == c {
			return TokenOperator, i + 2
		}

		return TokenOperator, i + 1

	case '=', '<', '>', '!':
		if at(1) == '=' {
			return TokenOperator, i + 2
		}

		switch c {
		case '=':
			return TokenEqual, i + 1
		case '!':
			return TokenUnknown, i + 1
		}

		return TokenOperator, i + 1

	case '+', '-', '%':
		return TokenOperator, i + 1

	case '[':
		return TokenLBracket, i + 1
	case ']':
		return TokenRBracket, i + 1
	case '(':
		return TokenLParen, i + 1
	case ')':
		return TokenRParen, i + 1
	case '{':
		return TokenLBrace, i + 1
	case '}':
		return TokenRBrace, i + 1
	case '.':
		return TokenDot, i + 1
	case ',':
		return TokenComma, i + 1
	case ':':
		return TokenColon, i + 1
	}

	return TokenUnknown, i + 1
}

// followedByWord reports whether word, preceded by at least one space and
// followed by an identifier boundary, starts at or after offset i of src.
// It returns the offset just past word.
func followedByWord(src string, i int, word string) (int, bool) {
	j := i
	for j < len(src) && isSpace(src[j]) {
		j++
	}

	if j == i || !strings.HasPrefix(src[j:], word) {
		return 0, false
	}

	end := j + len(word)
	if end < len(src) && isIdentChar(src[end]) {
		return 0, false
	}

	return end, true
}

// ParseNumber decodes the number literal starting at byte offset pos of src,
// absorbing a leading '-'. It returns an int when the literal has no decimal
// point, or when it does not fit in an int a float64, and the offset just
// past the literal.
func ParseNumber(src string, pos int) (any, int, error) {
	i := pos
	if i < len(src) && src[i] == '-' {
		i++
	}

	digits, dot := 0, false

	for ; i < len(src); i++ {
		switch c := src[i]; {
		case isDigit(c):
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			goto done
		}
	}

done:
	text := src[pos:i]
	if digits == 0 {
		return nil, pos, ErrNumber.At(src, pos).With(slog.String("text", text))
	}

	if !dot {
		n, err := strconv.ParseInt(text, 10, 0)
		if err == nil {
			return int(n), i, nil
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, pos, ErrNumber.At(src, pos).Wrap(err)
	}

	return f, i, nil
}

var escapes = map[byte]byte{
	'\\': '\\',
	'"':  '"',
	'\'': '\'',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
}

// parseString decodes the quoted string starting at byte offset pos of src.
// Unknown escape sequences are kept verbatim, backslash included.
func parseString(src string, pos int) (string, int, error) {
	quote := src[pos]

	var b strings.Builder

	for i := pos + 1; i < len(src); i++ {
		c := src[i]

		switch {
		case c == quote:
			return b.String(), i + 1, nil

		case c == '\\' && i+1 < len(src):
			i++
			if r, ok := escapes[src[i]]; ok {
				b.WriteByte(r)
			} else {
				b.WriteByte('\\')
				b.WriteByte(src[i])
			}

		default:
			b.WriteByte(c)
		}
	}

	return "", len(src), ErrUnterminatedString.At(src, len(src)).
		With(slog.Int("start", pos))
}
