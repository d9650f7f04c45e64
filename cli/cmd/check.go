package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/log"
)

// Check parses expressions and reports every syntax error.
type Check struct {
	Template bool     `help:"Treat each argument as a template with embedded expressions." short:"t"`
	Start    string   `help:"Start marker of embedded expressions."                         default:"{{"`
	End      string   `help:"End marker of embedded expressions."                           default:"}}"`
	Context  int      `help:"Source lines shown above each caret."                          default:"1"`
	Expr     []string `help:"Expressions to check."                                         arg:"" name:"expr"`
}

// Run executes the check command. Each failing argument is reported with a
// caret snippet. The returned error lists them all.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	out := outputFrom(ctx)
	style := newCheckStyle(out)

	var result *multierror.Error

	for i, src := range c.Expr {
		perr := c.parse(src)
		if perr == nil {
			log.TraceContext(ctx, "checked", slog.Int("arg", i+1))

			continue
		}

		result = multierror.Append(result, perr)

		if err := c.report(out, style, i+1, perr); err != nil {
			return err
		}
	}

	if result == nil {
		return nil
	}

	result.ErrorFormat = listErrors

	return ErrSyntax.With(slog.Int("count", result.Len())).Wrap(result)
}

func (c *Check) parse(src string) error {
	if c.Template {
		_, err := lang.NewInterpolated(src, lang.WithMarkers(c.Start, c.End))

		return err
	}

	_, _, err := lang.Parse(src)

	return err
}

func (c *Check) report(w io.Writer, style checkStyle, arg int, err error) error {
	var b strings.Builder

	b.WriteString(style.header.Render("arg " + strconv.Itoa(arg) + ":"))
	b.WriteString(" ")
	b.WriteString(err.Error())
	b.WriteByte('\n')

	var lerr *lang.Error
	if errors.As(err, &lerr) && lerr.Pos() >= 0 && lerr.Source() != "" {
		snippet := lerr.Location().Context(max(1, c.Context))
		lines := strings.SplitAfter(strings.TrimSuffix(snippet, "\n"), "\n")

		for _, line := range lines[:len(lines)-1] {
			b.WriteString(style.source.Render(strings.TrimSuffix(line, "\n")))
			b.WriteByte('\n')
		}

		caret := lines[len(lines)-1]
		pad := len(caret) - len(strings.TrimLeft(caret, " "))
		b.WriteString(caret[:pad])
		b.WriteString(style.caret.Render(caret[pad:]))
		b.WriteByte('\n')
	}

	_, err = io.WriteString(w, b.String())

	return err
}

type checkStyle struct {
	header lipgloss.Style
	source lipgloss.Style
	caret  lipgloss.Style
}

// newCheckStyle returns styles rendering for w; a writer that is not a
// terminal gets plain text.
func newCheckStyle(w io.Writer) checkStyle {
	r := lipgloss.NewRenderer(w)

	return checkStyle{
		header: r.NewStyle().Bold(true),
		source: r.NewStyle().Faint(true),
		caret:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

func listErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}

	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}

	return fmt.Sprintf("%d errors: %s", len(errs), strings.Join(parts, "; "))
}
