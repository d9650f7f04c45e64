package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestCheckRun(t *testing.T) {
	t.Parallel()

	ctx, out := testContext(nil, nil)

	c := &Check{Context: 1, Expr: []string{"1 + 2", "1 +", "(x"}}

	err := c.Run(ctx)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("Check.Run = %v, want %v", err, ErrSyntax)
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("Check.Run error does not carry the individual errors: %T", err)
	}

	if merr.Len() != 2 {
		t.Errorf("reported %d errors, want 2", merr.Len())
	}

	if !strings.HasPrefix(merr.Error(), "2 errors: ") {
		t.Errorf("error list = %q, want a count prefix", merr.Error())
	}

	report := out.String()

	if strings.Contains(report, "arg 1:") {
		t.Errorf("valid argument reported:\n%s", report)
	}

	for _, want := range []string{"arg 2:", "arg 3:", "^"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestCheckRunValid(t *testing.T) {
	t.Parallel()

	ctx, out := testContext(nil, nil)

	c := &Check{Expr: []string{"x + 1", "f(a, k=2)", "[v for v in xs if v]"}}
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Check.Run: %v\n%s", err, out)
	}

	if out.Len() != 0 {
		t.Errorf("output = %q, want none", out)
	}
}

func TestCheckRunTemplate(t *testing.T) {
	t.Parallel()

	ctx, out := testContext(nil, nil)

	c := &Check{Template: true, Start: "{{", End: "}}", Expr: []string{"ok {{ x }}", "bad {{ x + }}"}}

	if err := c.Run(ctx); !errors.Is(err, ErrSyntax) {
		t.Fatalf("Check.Run = %v, want %v", err, ErrSyntax)
	}

	if !strings.Contains(out.String(), "arg 2:") || strings.Contains(out.String(), "arg 1:") {
		t.Errorf("report:\n%s", out)
	}
}

func TestListErrors(t *testing.T) {
	t.Parallel()

	one := listErrors([]error{errors.New("a")})
	if one != "a" {
		t.Errorf("listErrors(one) = %q, want %q", one, "a")
	}

	two := listErrors([]error{errors.New("a"), errors.New("b")})
	if two != "2 errors: a; b" {
		t.Errorf("listErrors(two) = %q, want %q", two, "2 errors: a; b")
	}
}
