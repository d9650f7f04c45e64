package repl

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/scope"
)

// knownParams names the parameters of functions whose Go implementation
// does not reveal them.
var knownParams = map[string][]string{
	"str":            {"v"},
	"int":            {"v"},
	"len":            {"v"},
	"pathlist.join":  {"items"},
	"pathlist.split": {"list"},
}

// signatureHintStyle styles for parameter hints.
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	signatureSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// functionCall represents a detected function call in the input.
type functionCall struct {
	name     string // fully qualified function name (e.g., "path.cat")
	argIndex int    // current argument index (0-based)
	inCall   bool   // true if cursor is inside parameter list
}

// detectFunctionCall reports the innermost call whose argument list
// encloses cursor. Brackets nest like parentheses and commas inside string
// literals are not argument separators.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(max(cursor, 0), len(input))

	type frame struct {
		name string // "" for brackets and grouping parentheses
		args int
	}

	var stack []frame

	for i := 0; i < cursor; i++ {
		switch ch := input[i]; ch {
		case '\'', '"':
			i = skipString(input[:cursor], i)
		case '(':
			stack = append(stack, frame{name: calleeBefore(input, i)})
		case '[':
			stack = append(stack, frame{})
		case ')', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].args++
			}
		}
	}

	if len(stack) == 0 || stack[len(stack)-1].name == "" {
		return functionCall{}
	}

	top := stack[len(stack)-1]

	return functionCall{name: top.name, argIndex: top.args, inCall: true}
}

// skipString returns the index of the quote closing the string literal that
// opens at input[i], or the last index of input if it is unterminated.
func skipString(input string, i int) int {
	quote := input[i]

	for i++; i < len(input); i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}

	return len(input) - 1
}

// calleeBefore returns the dotted name ending right before the '(' at
// input[open], ignoring blanks between them.
func calleeBefore(input string, open int) string {
	end := len(strings.TrimRight(input[:open], " \t"))
	start := end

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if r != '.' && r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}

		start -= size
	}

	return strings.TrimLeft(input[start:end], ".")
}

// getSignature returns the signature of the function funcName resolves to
// in sc, and its parameter names. It returns "" if funcName is not a
// function.
func getSignature(
	sc *scope.Context,
	funcName string,
) (signature string, params []string) {
	node, _, err := lang.Parse(funcName)
	if err != nil {
		return "", nil
	}

	v, err := node.EvalIn(sc)
	if err != nil {
		return "", nil
	}

	if f, ok := v.(*lang.Function); ok {
		params, ok = knownParams[f.Name]
		if !ok {
			params = []string{"...args"}
		}

		return formatSignature(funcName, params), params
	}

	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Func {
		return "", nil
	}

	return reflectSignature(funcName, t)
}

// reflectSignature builds a signature from the parameter types of t.
func reflectSignature(funcName string, t reflect.Type) (string, []string) {
	numParams := t.NumIn()
	params := make([]string, 0, numParams)

	for i := range numParams {
		paramType := t.In(i)

		if t.IsVariadic() && i == numParams-1 {
			// Last parameter of variadic function - extract element type
			params = append(params, "..."+formatTypeName(paramType.Elem()))
		} else {
			params = append(params, formatTypeName(paramType))
		}
	}

	return formatSignature(funcName, params), params
}

// formatTypeName converts a reflect.Type to a readable parameter name.
// Examples: "string", "int", "bool", "func".
func formatTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Func:
		return "func"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "slice"
	case reflect.Map:
		return "map"
	case reflect.Ptr:
		return formatTypeName(t.Elem())
	default:
		// Fallback to the type's name if available
		if t.Name() != "" {
			return t.Name()
		}

		return "arg"
	}
}

// formatSignature formats a function signature with parameter names.
func formatSignature(name string, params []string) string {
	return name + "(" + strings.Join(params, ", ") + ")"
}

// renderSignatureHint renders signature with the parameter at currentArgIdx
// highlighted. A variadic parameter stays highlighted for every later
// argument.
func renderSignatureHint(
	signature string,
	params []string,
	currentArgIdx int,
) string {
	if signature == "" {
		return ""
	}

	name, _, ok := strings.Cut(signature, "(")
	if !ok || !strings.HasSuffix(signature, ")") {
		return signatureStyle.Render(signature)
	}

	rendered := make([]string, len(params))

	for i, param := range params {
		style := signatureStyle

		if currentArgIdx == i ||
			(currentArgIdx > i && strings.HasPrefix(param, "...")) {
			style = currentParamStyle
		}

		rendered[i] = style.Render(param)
	}

	return signatureNameStyle.Render(name) +
		signatureStyle.Render("(") +
		strings.Join(rendered, signatureSeparatorStyle.Render(", ")) +
		signatureStyle.Render(")")
}
