package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/livexpr/log"
	"github.com/ardnew/livexpr/scope"
)

const defaultEditor = "vi"

// editVarsCommand implements [tea.ExecCommand] for the edit-decode-retry
// loop over the user variables. It writes the variables as YAML to a temp
// file, opens the user's editor, and decodes the result. On a decode error
// the user is prompted to re-edit; declining exits the program.
type editVarsCommand struct {
	scope   *scope.Context
	ctxFunc func() context.Context
	logger  log.Logger
	vars    map[string]any
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editVarsCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editVarsCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editVarsCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the edit-decode-retry loop. On success the decoded variables
// are left in c.vars; an emptied file leaves c.vars nil. If the user declines
// to re-edit, it returns [ErrEditDeclined].
func (c *editVarsCommand) Run() error {
	ctx := c.ctxFunc()

	content, err := yaml.Marshal(c.scope.Map())
	if err != nil {
		return fmt.Errorf("encode vars: %w", err)
	}

	f, err := os.CreateTemp(os.TempDir(), "livexpr-vars-*.yaml")
	if err != nil {
		return err
	}

	tmpPath := f.Name()

	defer os.Remove(tmpPath)

	if err := f.Chmod(0o600); err != nil {
		f.Close()

		return err
	}

	f.Close()

	for {
		if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
			return err
		}

		if err := runEditor(ctx, c.stdin, c.stdout, c.stderr, tmpPath); err != nil {
			return err
		}

		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}

		if strings.TrimSpace(string(data)) == "" {
			return nil
		}

		var vars map[string]any

		decodeErr := yaml.Unmarshal(data, &vars)
		c.logger.TraceContext(ctx, "editor decode attempt",
			slog.Int("content_length", len(data)),
			slog.Bool("success", decodeErr == nil),
		)

		if decodeErr == nil {
			c.vars = vars

			return nil
		}

		fmt.Fprintf(c.stderr, "\n%s\n", yaml.FormatError(decodeErr, false, true))
		fmt.Fprintf(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if response == "n" || response == "no" {
			return ErrEditDeclined
		}

		content = data
	}
}

// runEditor launches the user's editor on the given file path.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	path string,
) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
