package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scripthost/script-engine/region"
	"github.com/scripthost/script-engine/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type replModel struct {
	sess      *session.Session
	entryName string
	input     textinput.Model
	history   []string
}

type builtMsg struct {
	err    error
	output string
}

func newReplModel(sess *session.Session, entryName string) *replModel {
	ti := textinput.New()
	ti.Placeholder = "fragment.wasm [args...]   (:c for reclaimable, :name <mod> <file>, q to quit)"
	ti.Focus()
	return &replModel{
		sess:      sess,
		entryName: entryName,
		input:     ti,
	}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "q" || line == ":q" {
				return m, tea.Quit
			}
			return m, func() tea.Msg { return m.exec(line) }
		}

	case builtMsg:
		if msg.err != nil {
			m.history = append(m.history, errorStyle.Render(msg.err.Error()))
		} else {
			m.history = append(m.history, resultStyle.Render(msg.output))
		}
		if len(m.history) > 20 {
			m.history = m.history[len(m.history)-20:]
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// exec parses one REPL line: an optional directive, a fragment file, and
// numeric arguments for the entry point.
func (m *replModel) exec(line string) tea.Msg {
	ctx := context.Background()
	fields := strings.Fields(line)

	policy := session.PolicyPersistent
	moduleName := ""

	switch fields[0] {
	case ":c":
		policy = session.PolicyReclaimable
		fields = fields[1:]
	case ":name":
		if len(fields) < 3 {
			return builtMsg{err: fmt.Errorf("usage: :name <module> <file> [args...]")}
		}
		moduleName = fields[1]
		fields = fields[2:]
	case ":diag":
		var b strings.Builder
		for _, d := range m.sess.Diagnostics().All() {
			fmt.Fprintf(&b, "%s %s: %s\n", d.Severity, d.Code, d.Message)
		}
		if b.Len() == 0 {
			b.WriteString("no diagnostics")
		}
		return builtMsg{output: strings.TrimSuffix(b.String(), "\n")}
	}
	if len(fields) == 0 {
		return builtMsg{err: fmt.Errorf("no fragment file given")}
	}

	payload, err := os.ReadFile(fields[0])
	if err != nil {
		return builtMsg{err: err}
	}

	sub := m.sess.NewSubmission(payload, policy)
	sub.ModuleName = moduleName
	sub.EntryName = m.entryName

	callable, err := m.sess.Build(ctx, sub)
	if err != nil {
		return builtMsg{err: err}
	}
	if callable == nil {
		var b strings.Builder
		for _, d := range m.sess.Diagnostics().All() {
			fmt.Fprintf(&b, "%s %s: %s\n", d.Severity, d.Code, d.Message)
		}
		return builtMsg{err: fmt.Errorf("nothing runnable:\n%s", b.String())}
	}

	var args []uint64
	for _, a := range fields[1:] {
		n, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return builtMsg{err: fmt.Errorf("argument %q: %w", a, err)}
		}
		args = append(args, n)
	}

	results, err := callable(ctx, args)
	if err != nil {
		return builtMsg{err: err}
	}

	out := fmt.Sprintf("%s =>", sub.AssemblyName)
	for _, r := range results {
		out += " " + strconv.FormatUint(r, 10)
	}
	return builtMsg{output: out}
}

func (m *replModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("script-engine repl"))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render(m.sess.Prefix()))
	b.WriteString("\n\n")

	for _, line := range m.history {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(promptStyle.Render("> "))
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: build+run · :diag diagnostics · ctrl+c quit"))
	return b.String()
}

func runInteractive(entryName string) error {
	ctx := context.Background()
	sess, err := session.New(ctx, session.Options{Mode: region.ModePersist})
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	p := tea.NewProgram(newReplModel(sess, entryName))
	_, err = p.Run()
	return err
}
