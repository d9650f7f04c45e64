package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/log"
	"github.com/ardnew/livexpr/scope"
)

// editVarsMsg is sent when the variables were edited successfully.
type editVarsMsg struct{ vars map[string]any }

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a decode
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process fails for any other reason.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"

	// ctrlPrefix selects a command from eval mode.
	ctrlPrefix = ":"

	usageSolve   = ":solve EXPR for TARGET = VALUE"
	usageWatch   = ":watch TEMPLATE"
	usageUnwatch = ":unwatch ID"
	usageAST     = ":ast EXPR"
)

const helpMessage = `
: Commands (press Esc to toggle mode, or prefix with ':' in eval mode):

  help              Print this cruft
  vars              List user variables
  watch TEMPLATE    Render TEMPLATE now and again whenever its inputs change
  unwatch ID        Stop a watch
  watches           List watches with their current rendering
  solve EXPR for TARGET = VALUE
                    Assign TARGET so that EXPR evaluates to VALUE
  ast EXPR          Print the parse tree of EXPR
  edit              Edit user variables as YAML in external $EDITOR
  clear             Clear screen
  quit              Exit REPL

Usage:
  Type an expression to evaluate it
  Type NAME = EXPR (or xs[i] = EXPR, obj.attr = EXPR) to assign
  Watched templates are re-rendered below any input that changes them
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to navigate command history
  Press Ctrl+C on empty line or Ctrl+D to exit
`

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	watchStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

func echo(mode inputMode, input string) tea.Cmd {
	if mode == modeCtrl {
		return tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))
	}

	return tea.Println(promptStyle.Render(evalPrompt) + inputStyle.Render(input))
}

func printLines(style lipgloss.Style, lines []string) tea.Cmd {
	if len(lines) == 0 {
		return nil
	}

	return tea.Println(style.Render(strings.Join(lines, "\n")))
}

func printError(err error) tea.Cmd {
	var lerr *lang.Error
	if errors.As(err, &lerr) && lerr.Pos() >= 0 && lerr.Source() != "" {
		return tea.Println(errorStyle.Render("error: " + err.Error() + "\n" + lerr.Snippet()))
	}

	return tea.Println(errorStyle.Render("error: " + err.Error()))
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc    func() context.Context
	input      textinput.Model
	session    *Session
	logger     log.Logger
	history    *History
	historyIdx int
	matches    fuzzy.Matches // current fuzzy match results
	candidates []string
	wordStart  int
	wordEnd    int
	suggIdx    int  // selected candidate index
	tabActive  bool // whether user is tab-cycling
	preTab     savedInput
	altNav     bool // whether user is in Alt+Up/Down navigation
	altOrig    savedInput
	altMode    inputMode
	width      int
	quitting   bool
	mode       inputMode
	saved      [2]savedInput // per-mode input
}

type savedInput struct {
	text   string
	cursor int
}

// Run starts an interactive session evaluating in sc. Input history is kept
// under cacheDir; an empty cacheDir keeps it in memory.
func Run(
	ctx context.Context,
	sc *scope.Context,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	path := ""
	if cacheDir != "" {
		path = filepath.Join(cacheDir, baseHistory)
	}

	history := NewHistory(path)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}

	logger.TraceContext(ctx, "repl start",
		slog.String("history", path),
		slog.Int("history_len", history.Len()),
	)

	session := NewSession(sc)
	defer session.Close()

	p := tea.NewProgram(newModel(ctx, session, history, logger), tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	session *Session,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		session:    session,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editVarsMsg:
		if err := m.session.Scope().Update(msg.vars); err != nil {
			return m, tea.Sequence(printError(err), m.updates())
		}

		m.logger.TraceContext(m.ctxFunc(), "repl vars edited",
			slog.Int("count", len(msg.vars)),
		)

		return m, tea.Sequence(
			tea.Println(resultStyle.Render("vars updated")),
			m.updates(),
		)

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, printError(msg.err)
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	cursor := m.input.Position()
	call := detectFunctionCall(input, cursor)
	sc := m.session.Scope()

	bar := func() string {
		if len(m.matches) == 0 {
			return ""
		}

		return renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width,
			func(s string) bool { return isFunction(sc, s) })
	}

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		hint := "Type an expression, NAME = EXPR, or press Esc for commands"
		if m.mode == modeCtrl {
			hint = "Type: help, vars, watch, solve, ast, edit, quit (press Esc to return)"
		}

		b.WriteString(hintStyle.Render(hint))

	case call.inCall && m.mode == modeEval && !strings.HasPrefix(input, ctrlPrefix):
		if signature, params := getSignature(sc, call.name); signature != "" {
			b.WriteString(renderSignatureHint(signature, params, call.argIndex))
		} else {
			b.WriteString(bar())
		}

	default:
		b.WriteString(bar())
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.altNav = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNav = false

		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}

		// Lock in the current tab candidate without executing.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyCtrl(-1), nil
		}

		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyCtrl(1), nil
		}

		return m.historyStep(1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.restore(m.preTab)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNav = false

		if m.mode == modeEval {
			return m.switchToMode(modeCtrl), nil
		}

		return m.switchToMode(modeEval), nil

	case tea.KeyRunes:
		// Space accepts the candidate being cycled.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	var cmd tea.Cmd

	m.tabActive = false
	m.altNav = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the tab selection by step, wrapping at either end. A single
// candidate is completed and confirmed immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	switch {
	case m.tabActive:
		m.suggIdx = (m.suggIdx + step + n) % n
	case step > 0:
		m.tabActive = true
		m.preTab = m.current()
		m.suggIdx = 0
	default:
		m.tabActive = true
		m.preTab = m.current()
		m.suggIdx = n - 1
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word in the input and moves the
// cursor past the replacement.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
// With autoConfirm, a word that already equals its sole candidate is
// confirmed. Deletions and cursor movement pass false so editing never
// completes unexpectedly.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	candidate := m.matches[0].Str
	if m.input.Value()[m.wordStart:m.wordEnd] == candidate {
		replaceCurrentWord(m, candidate)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.saved = [2]savedInput{}
	m.input.SetValue("")
	refreshMatches(&m, false)

	mode := m.mode
	if cmd, ok := strings.CutPrefix(input, ctrlPrefix); ok && mode == modeEval {
		mode, input = modeCtrl, strings.TrimSpace(cmd)
	}

	if err := m.history.Add(input, mode); err != nil {
		m.logger.WarnContext(m.ctxFunc(), "could not save history",
			slog.Any("error", err),
		)
	}

	m.historyIdx = m.history.Len()

	if mode == modeCtrl {
		return m.executeCommand(input)
	}

	m.logger.TraceContext(m.ctxFunc(), "repl eval", slog.String("input", input))

	out, err := m.session.Eval(input)
	if err != nil {
		m.logger.TraceContext(m.ctxFunc(), "repl eval failed", slog.Any("error", err))

		return m, tea.Sequence(echo(modeEval, input), printError(err))
	}

	return m, tea.Sequence(
		echo(modeEval, input),
		tea.Println(resultStyle.Render(out)),
		m.updates(),
	)
}

// updates prints the watches re-rendered by the last input.
func (m model) updates() tea.Cmd {
	return printLines(watchStyle, m.session.Updates())
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	name, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	echoCmd := echo(modeCtrl, input)

	m.logger.TraceContext(m.ctxFunc(), "repl command",
		slog.String("command", name),
		slog.String("args", args),
	)

	switch name {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echoCmd, tea.Println(helpMessage))

	case "v", "vars":
		lines := m.session.Vars()
		if len(lines) == 0 {
			lines = []string{"(no variables)"}
		}

		return m, tea.Sequence(echoCmd, printLines(hintStyle, lines))

	case "w", "watch":
		if args == "" {
			return m, tea.Sequence(echoCmd, printError(ErrUsage.With(slog.String("usage", usageWatch))))
		}

		out, err := m.session.Watch(args)
		if err != nil {
			return m, tea.Sequence(echoCmd, printError(err))
		}

		return m, tea.Sequence(echoCmd, tea.Println(watchStyle.Render(out)))

	case "unwatch":
		id, err := strconv.Atoi(args)
		if err != nil {
			return m, tea.Sequence(echoCmd, printError(ErrUsage.With(slog.String("usage", usageUnwatch))))
		}

		if err := m.session.Unwatch(id); err != nil {
			return m, tea.Sequence(echoCmd, printError(err))
		}

		return m, echoCmd

	case "watches":
		lines := m.session.Watches()
		if len(lines) == 0 {
			lines = []string{"(no watches)"}
		}

		return m, tea.Sequence(echoCmd, printLines(watchStyle, lines))

	case "s", "solve":
		lines, err := m.session.Solve(args)
		if err != nil {
			return m, tea.Sequence(echoCmd, printError(err))
		}

		return m, tea.Sequence(echoCmd, printLines(resultStyle, lines), m.updates())

	case "ast":
		if args == "" {
			return m, tea.Sequence(echoCmd, printError(ErrUsage.With(slog.String("usage", usageAST))))
		}

		out, err := m.session.AST(args)
		if err != nil {
			return m, tea.Sequence(echoCmd, printError(err))
		}

		return m, tea.Sequence(echoCmd, tea.Println(hintStyle.Render(out)))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echoCmd, m.edit())

	default:
		return m, tea.Sequence(echoCmd,
			printError(ErrUnknownCommand.With(slog.String("command", name))))
	}
}

func (m model) edit() tea.Cmd {
	cmd := &editVarsCommand{
		scope:   m.session.Scope(),
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case cmd.vars == nil:
			return editCancelledMsg{}
		}

		return editVarsMsg{vars: cmd.vars}
	})
}

// historyStep moves through history by dir (-1 older, +1 newer). With
// sameMode only entries of the current mode are visited; otherwise the
// mode follows the entry. Stepping past the newest entry clears the input.
func (m model) historyStep(dir int, sameMode bool) model {
	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		entry, err := m.history.Entry(i)
		if err != nil || (sameMode && entry.Mode != m.mode) {
			continue
		}

		if entry.Mode != m.mode {
			m = m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.show(entry.Line)

		return m
	}

	if dir > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.show("")
	}

	return m
}

// historyCtrl navigates command history only. The mode and input in effect
// when navigation began are restored on running off either end.
func (m model) historyCtrl(dir int) model {
	if !m.altNav {
		m.altNav = true
		m.altMode = m.mode
		m.altOrig = m.current()

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		if entry, err := m.history.Entry(i); err == nil && entry.Mode == modeCtrl {
			m.historyIdx = i
			m.show(entry.Line)

			return m
		}
	}

	m.altNav = false
	if m.altMode != m.mode {
		m = m.switchToMode(m.altMode)
	}

	m.restore(m.altOrig)
	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	return m
}

func (m *model) show(line string) {
	m.input.SetValue(line)
	m.input.SetCursor(len(line))
	refreshMatches(m, false)
}

func (m model) current() savedInput {
	return savedInput{text: m.input.Value(), cursor: m.input.Position()}
}

func (m *model) restore(s savedInput) {
	m.input.SetValue(s.text)
	m.input.SetCursor(s.cursor)
}

// switchToMode switches to mode, keeping each mode's pending input.
func (m model) switchToMode(mode inputMode) model {
	m.saved[m.mode] = m.current()
	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
	}

	m.restore(m.saved[mode])
	refreshMatches(&m, false)

	return m
}
