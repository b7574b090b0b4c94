package inbox

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/messaging"
	"github.com/deemkeen/clubspace/ui/common"
	"github.com/deemkeen/clubspace/util"
	"log"
)

var (
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(0)

	selectedStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
			Bold(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Italic(true)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
			Bold(true).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(common.COLOR_GREY)).
				Padding(0, 2)
)

type Model struct {
	Client        *messaging.Client
	Status        domain.ConversationStatus
	Conversations []messaging.ConversationView
	Cursor        int
	Width         int
	Height        int
}

func InitialModel(client *messaging.Client, width, height int) Model {
	return Model{
		Client: client,
		Status: domain.ConversationActive,
		Width:  width,
		Height: height,
	}
}

func (m Model) Init() tea.Cmd {
	return loadInbox(m.Client, m.Status)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case inboxLoadedMsg:
		if msg.status != m.Status {
			return m, nil
		}
		m.Conversations = msg.conversations
		if m.Cursor >= len(m.Conversations) {
			m.Cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Conversations)-1 {
				m.Cursor++
			}
		case "t":
			// Flip between the primary inbox and the request queue
			if m.Status == domain.ConversationActive {
				m.Status = domain.ConversationRequest
			} else {
				m.Status = domain.ConversationActive
			}
			m.Cursor = 0
			return m, loadInbox(m.Client, m.Status)
		case "enter":
			if m.Cursor < len(m.Conversations) {
				view := m.Conversations[m.Cursor]
				name := "unknown"
				if view.Other != nil {
					name = view.Other.DisplayName()
				}
				return m, func() tea.Msg {
					return common.OpenChatMsg{ConversationId: view.Conversation.Id, OtherName: name}
				}
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	primary := inactiveTabStyle.Render("primary")
	requests := inactiveTabStyle.Render("requests")
	if m.Status == domain.ConversationActive {
		primary = activeTabStyle.Render("primary")
	} else {
		requests = activeTabStyle.Render("requests")
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, primary, "|", requests))
	s.WriteString("\n\n")

	if len(m.Conversations) == 0 {
		if m.Status == domain.ConversationActive {
			s.WriteString(emptyStyle.Render("No conversations yet. Start one with ctrl+n!"))
		} else {
			s.WriteString(emptyStyle.Render("No message requests."))
		}
		return s.String()
	}

	for i, view := range m.Conversations {
		name := "unknown"
		if view.Other != nil {
			name = view.Other.DisplayName()
		}

		preview := util.Truncate(view.Conversation.LastMessage, 40)

		line := fmt.Sprintf("%s  %s  %s",
			name,
			view.Conversation.LastMessageAt.Format(util.DateTimeFormat()),
			preview)
		if view.Unread > 0 {
			line += common.UnreadStyle.Render(fmt.Sprintf("  (%d new)", view.Unread))
		}

		if i == m.Cursor {
			s.WriteString(selectedStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	return s.String()
}

// inboxLoadedMsg is sent when one tab of the conversation list is loaded
type inboxLoadedMsg struct {
	status        domain.ConversationStatus
	conversations []messaging.ConversationView
}

func loadInbox(client *messaging.Client, status domain.ConversationStatus) tea.Cmd {
	return func() tea.Msg {
		views, err := client.Inbox(status)
		if err != nil {
			log.Printf("Failed to load inbox: %v", err)
			return inboxLoadedMsg{status: status}
		}
		return inboxLoadedMsg{status: status, conversations: views}
	}
}
