package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Abdallah-Tah/phpBuilder/pkg/library"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// FeatureModel - Interactive database feature selection
// =============================================================================

// Feature is one optional database feature.
type Feature struct {
	Name     string
	Detail   string
	Selected bool
}

// FeatureModel is the bubbletea model for picking the optional features of a
// build.
type FeatureModel struct {
	Features  []Feature
	Cursor    int
	Confirmed bool
	Cancelled bool
}

// NewFeatureModel creates a picker preselecting the features set in f.
func NewFeatureModel(f library.Flags) FeatureModel {
	return FeatureModel{Features: []Feature{
		{Name: "MySQL", Detail: "pdo_mysql, mysqli, mysqlnd", Selected: f.MySQL},
		{Name: "SQL Server", Detail: "sqlsrv, pdo_sqlsrv (unixODBC)", Selected: f.SQLServer},
		{Name: "PostgreSQL", Detail: "pgsql, pdo_pgsql (libpq)", Selected: f.Postgres},
	}}
}

// Flags returns the selection as feature flags.
func (m FeatureModel) Flags() library.Flags {
	return library.Flags{
		MySQL:     m.Features[0].Selected,
		SQLServer: m.Features[1].Selected,
		Postgres:  m.Features[2].Selected,
	}
}

func (m FeatureModel) Init() tea.Cmd {
	return nil
}

func (m FeatureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.Cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Features)-1 {
			m.Cursor++
		}
	case " ", "x":
		m.Features = append([]Feature(nil), m.Features...)
		m.Features[m.Cursor].Selected = !m.Features[m.Cursor].Selected
	case "enter":
		m.Confirmed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m FeatureModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Database Support"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  ⏎ build  q quit"))
	b.WriteString("\n\n")

	for i, f := range m.Features {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		box := "[ ]"
		if f.Selected {
			box = StyleSuccess.Render("[x]")
		}
		line := fmt.Sprintf("%s%s %-12s %s", cursor, box, f.Name, listDimStyle.Render(f.Detail))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("The default extension set is always built."))
	b.WriteString("\n")
	return b.String()
}

// pickFeatures runs the picker. Quitting without confirming cancels the
// build.
func pickFeatures(ctx context.Context, initial library.Flags) (library.Flags, error) {
	final, err := tea.NewProgram(NewFeatureModel(initial), tea.WithContext(ctx)).Run()
	if err != nil {
		return initial, fmt.Errorf("feature picker: %w", err)
	}
	m := final.(FeatureModel)
	if !m.Confirmed {
		return initial, fmt.Errorf("feature selection: %w", context.Canceled)
	}
	return m.Flags(), nil
}
