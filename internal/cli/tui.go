package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/modfetch/pkg/core/choice"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ChoiceModel - Interactive registry selection
// =============================================================================

// ChoiceModel is the bubbletea model asking which registry to take a
// project from.
type ChoiceModel struct {
	Prompt  string
	Options []choice.Option
	Cursor  int
	// Chosen is the selected option index, or -1 when the prompt was
	// dismissed.
	Chosen int
}

// NewChoiceModel creates a choice model with nothing chosen yet.
func NewChoiceModel(prompt string, options []choice.Option) ChoiceModel {
	return ChoiceModel{Prompt: prompt, Options: options, Chosen: -1}
}

func (m ChoiceModel) Init() tea.Cmd {
	return nil
}

func (m ChoiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch s := key.String(); s {
	case "q", "ctrl+c", "esc":
		m.Chosen = -1
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
	case "enter":
		m.Chosen = m.Cursor
		return m, tea.Quit
	default:
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(m.Options) {
				m.Cursor = i
				m.Chosen = i
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m ChoiceModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Prompt))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  1-9 pick  q skip"))
	b.WriteString("\n\n")

	for i, o := range m.Options {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%d. %-12s %s", cursor, i+1, o.Source.Display(), o.Label)
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		if o.URL != "" {
			b.WriteString("  " + StyleLink.Render(o.URL))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// terminalChooser answers choice requests with an interactive prompt on
// stderr. A prompt left open longer than timeout is closed and counts as
// declined.
func terminalChooser(timeout time.Duration) choice.Chooser {
	return func(ctx context.Context, prompt string, options []choice.Option) (int, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		p := tea.NewProgram(NewChoiceModel(prompt, options), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
		final, err := p.Run()
		if err != nil {
			return -1, err
		}
		m, ok := final.(ChoiceModel)
		if !ok || m.Chosen < 0 {
			return -1, choice.ErrDeclined
		}
		return m.Chosen, nil
	}
}
