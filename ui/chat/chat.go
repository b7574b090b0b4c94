package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/messaging"
	"github.com/deemkeen/clubspace/ui/common"
	"github.com/deemkeen/clubspace/util"
	"github.com/google/uuid"
	"log"
)

const MaxLetters = 500

var (
	ownStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color(common.COLOR_LIGHTBLUE))

	otherStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	readMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY))

	requestStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
			Italic(true).
			PaddingLeft(2)
)

type Model struct {
	Client         *messaging.Client
	Textarea       textarea.Model
	ConversationId uuid.UUID
	OtherName      string
	Status         domain.ConversationStatus
	Messages       []domain.Message
	Banner         string
	BannerIsError  bool
	account        domain.Account
	width          int
	height         int
}

func InitialModel(client *messaging.Client, acc domain.Account, width, height int) Model {
	ti := textarea.New()
	ti.Placeholder = "write a message"
	ti.CharLimit = MaxLetters
	ti.ShowLineNumbers = false
	ti.SetWidth(common.DefaultListWidth(width) - 10)
	ti.SetHeight(3)

	return Model{
		Client:   client,
		Textarea: ti,
		account:  acc,
		width:    width,
		height:   height,
	}
}

// Open points the view at a conversation and kicks off the history fetch.
func (m Model) Open(conversationId uuid.UUID, otherName string) (Model, tea.Cmd) {
	m.ConversationId = conversationId
	m.OtherName = otherName
	m.Messages = nil
	m.Banner = ""
	m.Textarea.SetValue("")
	return m, tea.Batch(loadChat(m.Client, conversationId), textarea.Blink)
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case chatLoadedMsg:
		if msg.conversationId != m.ConversationId {
			// A fetch for a conversation the user already left
			return m, nil
		}
		m.Messages = msg.messages
		m.Status = msg.status
		return m, nil

	case common.RealtimeMsg:
		if msg.Update.Kind == messaging.UpdateMessage && msg.Update.ConversationId == m.ConversationId {
			m.Messages = m.Client.Messages(m.ConversationId)
		}
		return m, nil

	case common.BannerMsg:
		m.Banner = msg.Text
		m.BannerIsError = msg.IsError
		return m, nil

	case util.ErrMsg:
		m.Banner = msg.Error()
		m.BannerIsError = true
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			m.Client.CloseConversation()
			return m, func() tea.Msg { return common.ChatClosedMsg{} }
		case tea.KeyCtrlS:
			value := util.NormalizeInput(m.Textarea.Value())
			m.Textarea.SetValue("")
			return m, sendCmd(m.Client, m.ConversationId, value)
		case tea.KeyCtrlY:
			if m.Status == domain.ConversationRequest {
				return m, acceptCmd(m.Client, m.ConversationId)
			}
		case tea.KeyCtrlD:
			return m, deleteCmd(m.Client, m.ConversationId)
		case tea.KeyCtrlB:
			return m, blockCmd(m.Client, m.account.Id, m.ConversationId)
		case tea.KeyCtrlC:
			return m, tea.Quit
		default:
			if !m.Textarea.Focused() {
				cmd = m.Textarea.Focus()
				cmds = append(cmds, cmd)
			}
		}

	case chatReloadMsg:
		return m, loadChat(m.Client, m.ConversationId)
	}

	m.Textarea, cmd = m.Textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("chat with %s", m.OtherName)))
	s.WriteString("\n")

	if m.Status == domain.ConversationRequest {
		s.WriteString(requestStyle.Render("message request: accept with ctrl+y before replying"))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	visible := m.Messages
	maxLines := m.height - 16
	if maxLines > 0 && len(visible) > maxLines {
		visible = visible[len(visible)-maxLines:]
	}

	for _, message := range visible {
		line := renderMessage(message, m.account.Id, m.OtherName)
		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.Textarea.View())
	s.WriteString("\n")

	if m.Banner != "" {
		if m.BannerIsError {
			s.WriteString(common.ErrorStyle.Render(m.Banner))
		} else {
			s.WriteString(common.NoticeStyle.Render(m.Banner))
		}
		s.WriteString("\n")
	}

	return s.String()
}

func renderMessage(message domain.Message, selfId uuid.UUID, otherName string) string {
	body := message.Content
	if message.Type != domain.MessageText {
		body = fmt.Sprintf("[%s] %s", message.Type, message.MediaURL)
	}
	if message.ReplyTo != nil {
		quoted := util.Truncate(message.ReplyTo.Content, 30)
		body = fmt.Sprintf("↪ %s\n  %s", quoted, body)
	}

	if message.SenderId == selfId {
		mark := ""
		if message.IsRead {
			mark = readMarkStyle.Render(" ✓✓")
		}
		return ownStyle.Render(fmt.Sprintf("me: %s%s", body, mark))
	}
	return otherStyle.Render(fmt.Sprintf("%s: %s", otherName, body))
}

// chatLoadedMsg is sent when the conversation history is loaded
type chatLoadedMsg struct {
	conversationId uuid.UUID
	status         domain.ConversationStatus
	messages       []domain.Message
}

// chatReloadMsg asks the model to refetch its history
type chatReloadMsg struct{}

func loadChat(client *messaging.Client, conversationId uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		messages, err := client.OpenConversation(conversationId)
		if err != nil {
			log.Printf("Failed to load conversation %s: %v", conversationId, err)
			return common.BannerMsg{Text: "could not load this conversation", IsError: true}
		}
		status := domain.ConversationActive
		if convo, err := db.GetDB().ReadConversation(conversationId); err == nil {
			status = convo.Status
		}
		return chatLoadedMsg{conversationId: conversationId, status: status, messages: messages}
	}
}

func sendCmd(client *messaging.Client, conversationId uuid.UUID, content string) tea.Cmd {
	return func() tea.Msg {
		_, err := client.Send(domain.SendMessage{ConversationId: conversationId, Content: content})
		if err != nil {
			return common.BannerMsg{Text: "message not sent: " + err.Error(), IsError: true}
		}
		return chatReloadMsg{}
	}
}

func acceptCmd(client *messaging.Client, conversationId uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		if err := client.AcceptRequest(conversationId); err != nil {
			return common.BannerMsg{Text: "could not accept request: " + err.Error(), IsError: true}
		}
		return chatReloadMsg{}
	}
}

func deleteCmd(client *messaging.Client, conversationId uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		if err := client.DeleteConversation(conversationId); err != nil {
			return common.BannerMsg{Text: "could not delete conversation: " + err.Error(), IsError: true}
		}
		return common.ChatClosedMsg{}
	}
}

func blockCmd(client *messaging.Client, selfId uuid.UUID, conversationId uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		database := db.GetDB()
		convo, err := database.ReadConversation(conversationId)
		if err != nil {
			return common.BannerMsg{Text: "could not block: " + err.Error(), IsError: true}
		}
		if err := database.BlockAccount(selfId, convo.Other(selfId)); err != nil {
			return common.BannerMsg{Text: "could not block: " + err.Error(), IsError: true}
		}
		if err := client.DeleteConversation(conversationId); err != nil {
			log.Printf("Failed to hide conversation after block: %v", err)
		}
		return common.ChatClosedMsg{}
	}
}
