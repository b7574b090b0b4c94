package createuser

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/util"
)

var (
	Style = lipgloss.NewStyle().Height(25).Width(80).
		Align(lipgloss.Center, lipgloss.Center).
		BorderStyle(lipgloss.ThickBorder()).
		Margin(0, 3)
)

type Model struct {
	TextInput  textinput.Model
	FullName   textinput.Model
	Department textinput.Model
	Step       int // 0=username, 1=full name, 2=department
	Err        util.ErrMsg
}

func InitialModel() Model {
	ti := textinput.New()
	ti.Placeholder = "filmfan42"
	ti.Focus()
	ti.CharLimit = 15
	ti.Width = 20

	fullName := textinput.New()
	fullName.Placeholder = "Jane Doe"
	fullName.CharLimit = 50
	fullName.Width = 50

	department := textinput.New()
	department.Placeholder = "Film & Media"
	department.CharLimit = 50
	department.Width = 50

	return Model{
		TextInput:  ti,
		FullName:   fullName,
		Department: department,
		Step:       0,
		Err:        nil,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case util.ErrMsg:
		m.Err = msg
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if m.Step == 0 {
				m.Step = 1
				m.FullName.Focus()
				m.TextInput.Blur()
				return m, nil
			} else if m.Step == 1 {
				m.Step = 2
				m.Department.Focus()
				m.FullName.Blur()
				return m, nil
			}
			// Step 2 submission handled by the root model
		}
	}

	switch m.Step {
	case 0:
		m.TextInput, cmd = m.TextInput.Update(msg)
	case 1:
		m.FullName, cmd = m.FullName.Update(msg)
	case 2:
		m.Department, cmd = m.Department.Update(msg)
	}

	return m, cmd
}

func (m Model) View() string {
	var prompt string
	var input string
	var help string

	switch m.Step {
	case 0:
		prompt = "You don't have a username yet, please choose wisely!"
		input = m.TextInput.View()
		help = "(enter to continue, ctrl-c to quit)"
	case 1:
		prompt = fmt.Sprintf("Username: %s\n\nYour full name (optional):", m.TextInput.Value())
		input = m.FullName.View()
		help = "(enter to continue, leave empty to skip)"
	case 2:
		prompt = fmt.Sprintf("Username: %s\nFull name: %s\n\nYour department (optional):",
			m.TextInput.Value(),
			m.FullName.Value())
		input = m.Department.View()
		help = "(enter to join the club, ctrl-c to quit)"
	}

	return fmt.Sprintf(
		"Joining CLUBSPACE v%s\n\n%s\n\n%s\n\n%s",
		util.GetVersion(),
		prompt,
		input,
		help,
	) + "\n"
}
