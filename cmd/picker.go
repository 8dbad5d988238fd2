package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"fileconvert/converter/format"
)

var errNoTarget = errors.New("no target format selected")

// picker lets the user choose one of the candidate target formats
type picker struct {
	source  format.Extension
	choices []format.Extension
	cursor  int
	chosen  format.Extension
	done    bool
}

func newPicker(source format.Extension, choices []format.Extension) picker {
	return picker{source: source, choices: choices}
}

func (m picker) Init() tea.Cmd {
	return nil
}

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.chosen = m.choices[m.cursor]
		m.done = true
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m picker) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Convert .%s to:", m.source)))
	b.WriteString("\n")
	for i, choice := range m.choices {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + string(choice)))
		} else {
			b.WriteString("  " + string(choice))
		}
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("\n↑/↓ move • enter select • q cancel"))
	b.WriteString("\n")
	return b.String()
}

// pickTarget runs the picker on the given terminal streams
func pickTarget(source format.Extension, choices []format.Extension, in io.Reader, out io.Writer) (format.Extension, error) {
	p := tea.NewProgram(newPicker(source, choices), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("target picker failed: %w", err)
	}

	m := final.(picker)
	if m.chosen == "" {
		return "", errNoTarget
	}
	return m.chosen, nil
}
