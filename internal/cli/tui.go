package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/emergo/pkg/errors"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// CategoryListModel is the bubbletea model for choosing the category of an
// ambiguous short package name.
type CategoryListModel struct {
	Name       string
	Categories []string
	Cursor     int
	Selected   string
}

// NewCategoryListModel creates a new category list model.
func NewCategoryListModel(name string, categories []string) CategoryListModel {
	return CategoryListModel{Name: name, Categories: categories}
}

func (m CategoryListModel) Init() tea.Cmd {
	return nil
}

func (m CategoryListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Categories)-1 {
				m.Cursor++
			}
		case "enter":
			if len(m.Categories) > 0 {
				m.Selected = m.Categories[m.Cursor]
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m CategoryListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Which %q?", m.Name)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i, cat := range m.Categories {
		line := "  " + cat + "/" + m.Name
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render("> " + cat + "/" + m.Name))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// categoryPrompt asks on the terminal which category an ambiguous short name
// refers to.
type categoryPrompt struct{}

func (categoryPrompt) ChooseCategory(ctx context.Context, name string, categories []string) (string, error) {
	p := tea.NewProgram(NewCategoryListModel(name, categories),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
	)
	final, err := p.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", errors.Wrap(errors.ErrCodeInternal, err, "category prompt")
	}
	if m, ok := final.(CategoryListModel); ok && m.Selected != "" {
		return m.Selected, nil
	}
	return "", errors.New(errors.ErrCodeAmbiguousName,
		"no category chosen for %q; specify one of: %s", name, qualify(name, categories))
}

func qualify(name string, categories []string) string {
	full := make([]string, len(categories))
	for i, cat := range categories {
		full[i] = cat + "/" + name
	}
	return strings.Join(full, ", ")
}
