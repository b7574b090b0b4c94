package leaderboard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/ui/common"
	"log"
)

var (
	rowStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	topStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
			Bold(true)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY)).
			Italic(true)
)

type Model struct {
	Entries []domain.LeaderboardEntry
	Year    int
	Month   time.Month
}

func InitialModel() Model {
	now := time.Now()
	return Model{Year: now.Year(), Month: now.Month()}
}

func (m Model) Init() tea.Cmd {
	return loadLeaderboard(m.Year, m.Month)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case leaderboardLoadedMsg:
		m.Entries = msg.entries
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			// Previous month
			m.Month--
			if m.Month < time.January {
				m.Month = time.December
				m.Year--
			}
			return m, loadLeaderboard(m.Year, m.Month)
		case "right", "l":
			m.Month++
			if m.Month > time.December {
				m.Month = time.January
				m.Year++
			}
			return m, loadLeaderboard(m.Year, m.Month)
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("leaderboard %s %d", m.Month, m.Year)))
	s.WriteString("\n\n")

	if len(m.Entries) == 0 {
		s.WriteString(emptyStyle.Render("No activity this month."))
		return s.String()
	}

	for _, e := range m.Entries {
		line := fmt.Sprintf("%2d. %-24s %-14s uploads: %d  reactions: %d  score: %d",
			e.Rank, e.FullName, e.Department, e.UploadCount, e.ReactionCount, e.TotalScore)
		if e.Rank <= 3 {
			s.WriteString(topStyle.Render(line))
		} else {
			s.WriteString(rowStyle.Render(line))
		}
		s.WriteString("\n")
	}

	return s.String()
}

// leaderboardLoadedMsg is sent when the monthly scores are loaded
type leaderboardLoadedMsg struct {
	entries []domain.LeaderboardEntry
}

func loadLeaderboard(year int, month time.Month) tea.Cmd {
	return func() tea.Msg {
		entries, err := db.GetDB().Leaderboard(year, month)
		if err != nil {
			log.Printf("Failed to load leaderboard: %v", err)
			return leaderboardLoadedMsg{}
		}
		return leaderboardLoadedMsg{entries: entries}
	}
}
