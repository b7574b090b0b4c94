package diagnostics

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/messaging"
	"github.com/deemkeen/clubspace/ui/common"
	"github.com/google/uuid"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(common.COLOR_GREEN))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(common.COLOR_RED))
	rowStyle  = lipgloss.NewStyle().PaddingLeft(2)
)

type Model struct {
	Client *messaging.Client
	Report messaging.DiagnosticsReport
}

func InitialModel(client *messaging.Client) Model {
	return Model{Client: client}
}

func (m Model) Init() tea.Cmd {
	return probe(m.Client)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportMsg:
		m.Report = messaging.DiagnosticsReport(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, probe(m.Client)
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("diagnostics"))
	s.WriteString("\n\n")

	s.WriteString(rowStyle.Render("user id:            " + renderId(m.Report.UserId)))
	s.WriteString("\n")
	s.WriteString(rowStyle.Render("open conversation:  " + renderId(m.Report.OpenConversation)))
	s.WriteString("\n")

	participants := "-"
	if len(m.Report.Participants) == 2 {
		participants = fmt.Sprintf("%s, %s", m.Report.Participants[0], m.Report.Participants[1])
	}
	s.WriteString(rowStyle.Render("participants:       " + participants))
	s.WriteString("\n")

	s.WriteString(rowStyle.Render("database:           " + renderProbe(m.Report.DatabaseReachable)))
	s.WriteString("\n")
	s.WriteString(rowStyle.Render("read probe:         " + renderProbe(m.Report.ReadProbeOK)))
	s.WriteString("\n")
	s.WriteString(rowStyle.Render(fmt.Sprintf("subscriptions open: %d", m.Report.OpenSubscriptions)))
	s.WriteString("\n")
	s.WriteString(rowStyle.Render(fmt.Sprintf("pending writes:     %d", m.Report.PendingWrites)))
	s.WriteString("\n")

	return s.String()
}

func renderId(id uuid.UUID) string {
	if id == uuid.Nil {
		return "-"
	}
	return id.String()
}

func renderProbe(ok bool) string {
	if ok {
		return okStyle.Render("reachable")
	}
	return failStyle.Render("unreachable")
}

type reportMsg messaging.DiagnosticsReport

func probe(client *messaging.Client) tea.Cmd {
	return func() tea.Msg {
		return reportMsg(client.Diagnostics())
	}
}
