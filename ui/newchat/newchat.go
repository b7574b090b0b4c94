package newchat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/messaging"
	"github.com/deemkeen/clubspace/ui/common"
	"log"
)

var emptyStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color(common.COLOR_GREY)).
	Italic(true)

type Model struct {
	Client    *messaging.Client
	TextInput textinput.Model
	Err       string
}

func InitialModel(client *messaging.Client) Model {
	ti := textinput.New()
	ti.Placeholder = "username"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 30

	return Model{Client: client, TextInput: ti}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case startChatFailedMsg:
		m.Err = string(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			username := strings.TrimSpace(m.TextInput.Value())
			if username == "" {
				m.Err = "enter a username first"
				return m, nil
			}
			m.TextInput.SetValue("")
			m.Err = ""
			return m, startChat(m.Client, username)
		}
	}

	m.TextInput, cmd = m.TextInput.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(common.CaptionStyle.Render("start a chat"))
	s.WriteString("\n\n")
	s.WriteString(m.TextInput.View())
	s.WriteString("\n\n")
	if m.Err != "" {
		s.WriteString(common.ErrorStyle.Render(m.Err))
	} else {
		s.WriteString(emptyStyle.Render("type a username and press enter"))
	}
	return s.String()
}

type startChatFailedMsg string

func startChat(client *messaging.Client, username string) tea.Cmd {
	return func() tea.Msg {
		err, target := db.GetDB().ReadAccByUsername(username)
		if err != nil {
			return startChatFailedMsg(fmt.Sprintf("no user named %s", username))
		}

		convo, err2 := client.StartChat(target.Id)
		if err2 != nil {
			log.Printf("Failed to start chat with %s: %v", username, err2)
			return startChatFailedMsg("could not start the chat, try again")
		}

		return common.OpenChatMsg{ConversationId: convo.Id, OtherName: target.DisplayName()}
	}
}
