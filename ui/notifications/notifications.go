package notifications

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/messaging"
	"github.com/deemkeen/clubspace/ui/common"
	"github.com/deemkeen/clubspace/util"
	"github.com/google/uuid"
	"log"
)

var (
	unreadStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Bold(true)

	readStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color(common.COLOR_GREY))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Italic(true)
)

type Model struct {
	Client        *messaging.Client
	Notifications []domain.Notification
	Offset        int
	Height        int
}

func InitialModel(client *messaging.Client, height int) Model {
	return Model{Client: client, Height: height}
}

func (m Model) Init() tea.Cmd {
	return loadNotifications(m.Client)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case notificationsLoadedMsg:
		m.Notifications = msg.notifications
		m.Offset = 0
		return m, nil

	case common.RealtimeMsg:
		if msg.Update.Kind == messaging.UpdateNotification {
			return m, loadNotifications(m.Client)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if len(m.Notifications) > 0 && m.Offset < len(m.Notifications)-1 {
				m.Offset++
			}
		case "enter":
			if m.Offset < len(m.Notifications) {
				return m, markOneRead(m.Client, m.Notifications[m.Offset].Id)
			}
		case "m":
			return m, markAllRead(m.Client)
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("notifications (%d unread)", m.Client.Badge())))
	s.WriteString("\n\n")

	if len(m.Notifications) == 0 {
		s.WriteString(emptyStyle.Render("Nothing here yet."))
		return s.String()
	}

	itemsPerPage := 10
	start := m.Offset
	end := start + itemsPerPage
	if end > len(m.Notifications) {
		end = len(m.Notifications)
	}

	for i := start; i < end; i++ {
		n := m.Notifications[i]
		marker := "•"
		if i == m.Offset {
			marker = "›"
		}
		line := fmt.Sprintf("%s %s  %s", marker, n.Title, n.CreatedAt.Format(util.DateTimeFormat()))
		if n.IsRead {
			s.WriteString(readStyle.Render(line))
		} else {
			s.WriteString(unreadStyle.Render(line))
		}
		s.WriteString("\n")
	}

	return s.String()
}

// notificationsLoadedMsg is sent when the feed is loaded
type notificationsLoadedMsg struct {
	notifications []domain.Notification
}

func loadNotifications(client *messaging.Client) tea.Cmd {
	return func() tea.Msg {
		notifications, err := client.Notifications()
		if err != nil {
			log.Printf("Failed to load notifications: %v", err)
			return notificationsLoadedMsg{}
		}
		return notificationsLoadedMsg{notifications: notifications}
	}
}

func markOneRead(client *messaging.Client, id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		if err := client.MarkNotificationRead(id); err != nil {
			log.Printf("Failed to mark notification read: %v", err)
		}
		return loadNotifications(client)()
	}
}

func markAllRead(client *messaging.Client) tea.Cmd {
	return func() tea.Msg {
		if err := client.MarkAllNotificationsRead(); err != nil {
			log.Printf("Failed to mark notifications read: %v", err)
		}
		return loadNotifications(client)()
	}
}
