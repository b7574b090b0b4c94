package ui

import (
	"fmt"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/messaging"
	"github.com/deemkeen/clubspace/ui/chat"
	"github.com/deemkeen/clubspace/ui/common"
	"github.com/deemkeen/clubspace/ui/createuser"
	"github.com/deemkeen/clubspace/ui/diagnostics"
	"github.com/deemkeen/clubspace/ui/header"
	"github.com/deemkeen/clubspace/ui/inbox"
	"github.com/deemkeen/clubspace/ui/leaderboard"
	"github.com/deemkeen/clubspace/ui/newchat"
	"github.com/deemkeen/clubspace/ui/notifications"
	"log"
)

var (
	viewStyle = lipgloss.NewStyle().
		Align(lipgloss.Top, lipgloss.Top).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).MarginLeft(1)
)

type MainModel struct {
	width              int
	height             int
	account            domain.Account
	client             *messaging.Client
	state              common.SessionState
	headerModel        header.Model
	newUserModel       createuser.Model
	inboxModel         inbox.Model
	chatModel          chat.Model
	newChatModel       newchat.Model
	notificationsModel notifications.Model
	leaderboardModel   leaderboard.Model
	diagnosticsModel   diagnostics.Model
}

func NewModel(acc domain.Account, client *messaging.Client, width int, height int) MainModel {
	width = common.DefaultWindowWidth(width)
	height = common.DefaultWindowHeight(height)

	m := MainModel{state: common.InboxView}
	m.account = acc
	m.client = client
	m.width = width
	m.height = height
	m.headerModel = header.Model{Width: width, Acc: &acc}
	m.newUserModel = createuser.InitialModel()
	m.inboxModel = inbox.InitialModel(client, width, height)
	m.chatModel = chat.InitialModel(client, acc, width, height)
	m.newChatModel = newchat.InitialModel(client)
	m.notificationsModel = notifications.InitialModel(client, height)
	m.leaderboardModel = leaderboard.InitialModel()
	m.diagnosticsModel = diagnostics.InitialModel(client)

	if acc.FirstTimeLogin == domain.TRUE {
		m.state = common.CreateUserView
	}
	return m
}

func updateUserModelCmd(acc *domain.Account, fullName, department string) tea.Cmd {
	return func() tea.Msg {
		acc.FirstTimeLogin = domain.FALSE
		database := db.GetDB()
		if err := database.UpdateLoginById(acc.Username, acc.Id); err != nil {
			log.Println(fmt.Sprintf("User %s could not be updated!", acc.Username))
			return nil
		}
		if fullName != "" || department != "" {
			if err := database.UpdateProfile(acc.Id, fullName, department, acc.Bio, acc.AvatarURL, acc.IsPrivate); err != nil {
				log.Printf("Profile for %s could not be updated: %v", acc.Username, err)
			}
		}
		return common.RefreshInbox
	}
}

// waitForUpdate blocks on the messaging client's update channel and feeds the
// next change into the tea loop. Re-armed after every delivery.
func waitForUpdate(client *messaging.Client) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-client.Updates()
		if !ok {
			return nil
		}
		return common.RealtimeMsg{Update: update}
	}
}

func (m MainModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForUpdate(m.client)}
	if m.state != common.CreateUserView {
		cmds = append(cmds, m.inboxModel.Init())
	}
	return tea.Batch(cmds...)
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.headerModel.Width = msg.Width
		return m, nil

	case common.SessionState:
		switch msg {
		case common.RefreshInbox:
			return m, m.inboxModel.Init()
		default:
			m.state = msg
		}
		return m, nil

	case common.OpenChatMsg:
		m.state = common.ChatView
		m.chatModel, cmd = m.chatModel.Open(msg.ConversationId, msg.OtherName)
		return m, cmd

	case common.ChatClosedMsg:
		m.state = common.InboxView
		m.client.CloseConversation()
		return m, m.inboxModel.Init()

	case common.RealtimeMsg:
		// Refresh the badge, hand the event to the data views and re-arm
		m.headerModel.Badge = m.client.Badge()
		m.chatModel, cmd = m.chatModel.Update(msg)
		cmds = append(cmds, cmd)
		m.notificationsModel, cmd = m.notificationsModel.Update(msg)
		cmds = append(cmds, cmd)
		if msg.Update.Kind == messaging.UpdateMessage && m.state == common.InboxView {
			cmds = append(cmds, m.inboxModel.Init())
		}
		cmds = append(cmds, waitForUpdate(m.client))
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.client.SignOut()
			return m, tea.Quit
		case "tab":
			if m.state == common.CreateUserView || m.state == common.ChatView {
				break
			}
			switch m.state {
			case common.InboxView:
				m.state = common.NotificationsView
				cmds = append(cmds, m.notificationsModel.Init())
			case common.NotificationsView:
				m.state = common.LeaderboardView
				cmds = append(cmds, m.leaderboardModel.Init())
			case common.LeaderboardView:
				m.state = common.DiagnosticsView
				cmds = append(cmds, m.diagnosticsModel.Init())
			case common.DiagnosticsView, common.NewChatView:
				m.state = common.InboxView
				cmds = append(cmds, m.inboxModel.Init())
			}
			return m, tea.Batch(cmds...)
		case "ctrl+n":
			if m.state != common.CreateUserView && m.state != common.ChatView {
				m.state = common.NewChatView
				return m, m.newChatModel.Init()
			}
		case "esc":
			if m.state == common.NewChatView || m.state == common.NotificationsView ||
				m.state == common.LeaderboardView || m.state == common.DiagnosticsView {
				m.state = common.InboxView
				return m, m.inboxModel.Init()
			}
		case "enter":
			if m.state == common.CreateUserView && m.newUserModel.Step == 2 {
				m.state = common.InboxView
				m.account.Username = m.newUserModel.TextInput.Value()
				m.account.FullName = m.newUserModel.FullName.Value()
				m.account.Department = m.newUserModel.Department.Value()
				m.headerModel = header.Model{Width: m.width, Acc: &m.account, Badge: m.client.Badge()}
				return m, updateUserModelCmd(&m.account, m.account.FullName, m.account.Department)
			}
		}
	}

	// Route non-keyboard messages to all data-loading sub-models so their
	// loaded messages always reach them; keyboard input only goes to the
	// focused view.
	if _, isKeyMsg := msg.(tea.KeyMsg); !isKeyMsg {
		m.inboxModel, cmd = m.inboxModel.Update(msg)
		cmds = append(cmds, cmd)
		m.chatModel, cmd = m.chatModel.Update(msg)
		cmds = append(cmds, cmd)
		m.newChatModel, cmd = m.newChatModel.Update(msg)
		cmds = append(cmds, cmd)
		m.notificationsModel, cmd = m.notificationsModel.Update(msg)
		cmds = append(cmds, cmd)
		m.leaderboardModel, cmd = m.leaderboardModel.Update(msg)
		cmds = append(cmds, cmd)
		m.diagnosticsModel, cmd = m.diagnosticsModel.Update(msg)
		cmds = append(cmds, cmd)
	}

	if _, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case common.CreateUserView:
			m.newUserModel, cmd = m.newUserModel.Update(msg)
		case common.InboxView:
			m.inboxModel, cmd = m.inboxModel.Update(msg)
		case common.ChatView:
			m.chatModel, cmd = m.chatModel.Update(msg)
		case common.NewChatView:
			m.newChatModel, cmd = m.newChatModel.Update(msg)
		case common.NotificationsView:
			m.notificationsModel, cmd = m.notificationsModel.Update(msg)
		case common.LeaderboardView:
			m.leaderboardModel, cmd = m.leaderboardModel.Update(msg)
		case common.DiagnosticsView:
			m.diagnosticsModel, cmd = m.diagnosticsModel.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m MainModel) View() string {
	if m.state == common.CreateUserView {
		return createuser.Style.Width(m.width).Render(m.newUserModel.View())
	}

	m.headerModel.Badge = m.client.Badge()
	s := lipgloss.NewStyle().Render(m.headerModel.View()) + "\n"

	availableHeight := m.height - 10
	contentWidth := m.width - 6

	var body string
	switch m.state {
	case common.InboxView:
		body = m.inboxModel.View()
	case common.ChatView:
		body = m.chatModel.View()
	case common.NewChatView:
		body = m.newChatModel.View()
	case common.NotificationsView:
		body = m.notificationsModel.View()
	case common.LeaderboardView:
		body = m.leaderboardModel.View()
	case common.DiagnosticsView:
		body = m.diagnosticsModel.View()
	}

	s += viewStyle.Render(lipgloss.NewStyle().
		MaxHeight(availableHeight).
		Height(availableHeight).
		Width(contentWidth).
		MaxWidth(contentWidth).
		Margin(1).
		Render(body))

	var viewCommands string
	switch m.state {
	case common.InboxView:
		viewCommands = "↑/↓: select • enter: open • t: primary/requests • ctrl+n: new chat"
	case common.ChatView:
		viewCommands = "ctrl+s: send • ctrl+y: accept • ctrl+d: delete • ctrl+b: block • esc: back"
	case common.NewChatView:
		viewCommands = "enter: start chat • esc: back"
	case common.NotificationsView:
		viewCommands = "↑/↓: select • enter: mark read • m: mark all read • esc: back"
	case common.LeaderboardView:
		viewCommands = "←/→: change month • esc: back"
	case common.DiagnosticsView:
		viewCommands = "r: refresh • esc: back"
	default:
		viewCommands = " "
	}

	s += "\n" + common.HelpStyle.Render(fmt.Sprintf(
		"%s\t\tkeys > tab: next view • %s • ctrl-c: exit",
		m.currentFocusedModel(), viewCommands))
	return lipgloss.NewStyle().Render(s)
}

func (m MainModel) currentFocusedModel() string {
	switch m.state {
	case common.InboxView:
		return "inbox"
	case common.ChatView:
		return "chat"
	case common.NewChatView:
		return "new chat"
	case common.NotificationsView:
		return "notifications"
	case common.LeaderboardView:
		return "leaderboard"
	case common.DiagnosticsView:
		return "diagnostics"
	default:
		return "create user"
	}
}
