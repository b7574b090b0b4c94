package header

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/ui/common"
	"github.com/deemkeen/clubspace/util"
)

type Model struct {
	Width int
	Acc   *domain.Account
	Badge int
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	return GetHeaderStyle(m.Acc, m.Width, m.Badge)
}

func GetHeaderStyle(acc *domain.Account, width int, badge int) string {
	// Username, role, version and badge boxes each add 4 chars of border and
	// padding overhead.
	overhead := 16
	availableWidth := width - overhead

	if availableWidth < 40 {
		availableWidth = 40
	}

	usernameWidth := availableWidth / 4
	roleWidth := availableWidth / 6
	badgeWidth := availableWidth / 6
	versionWidth := availableWidth - usernameWidth - roleWidth - badgeWidth

	username := lipgloss.
		NewStyle().
		SetString("@" + acc.Username).
		Align(lipgloss.Left).
		Background(lipgloss.Color(common.COLOR_PURPLE)).
		Padding(1).
		Height(2).
		Width(usernameWidth).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	role := lipgloss.
		NewStyle().
		SetString(acc.Role).
		Background(lipgloss.NoColor{}).
		Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
		Padding(1).
		Height(2).
		Width(roleWidth).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	version := lipgloss.
		NewStyle().
		SetString(util.GetNameAndVersion()).
		Width(versionWidth).
		Height(2).
		Background(lipgloss.Color(common.COLOR_GREY)).
		Padding(1).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	badgeText := "no news"
	if badge > 0 {
		badgeText = lipgloss.NewStyle().Bold(true).Render("news: " + strconv.Itoa(badge))
	}
	badgeBox := lipgloss.
		NewStyle().
		SetString(badgeText).
		Background(lipgloss.Color(common.COLOR_MAGENTA)).
		Padding(1).
		Align(lipgloss.Left).
		Height(2).
		Width(badgeWidth).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		username,
		role,
		version,
		badgeBox,
	)
}
