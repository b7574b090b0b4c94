package middleware

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/messaging"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/deemkeen/clubspace/ui"
	"github.com/muesli/termenv"
	"log"
)

// MainTui builds the per-session TUI. Every SSH session gets its own
// messaging client bound to the session's account; the broker is shared
// across sessions so realtime events cross session boundaries.
func MainTui(broker *realtime.Broker) wish.Middleware {
	teaHandler := func(s ssh.Session) *tea.Program {

		pty, _, active := s.Pty()
		if !active {
			wish.Println(s, "no active terminal, skipping")
			return nil
		}

		database := db.GetDB()
		err, acc := database.ReadAccBySession(s)
		if err != nil {
			log.Println("Could not retrieve the user:", err)
			return nil
		}

		client := messaging.NewClient(database, broker)
		client.SignIn(acc.Id)

		// Dropped connections never reach the ctrl+c path, so teardown has
		// to hang off the session itself or the subscriptions leak.
		go func() {
			<-s.Context().Done()
			client.SignOut()
		}()

		m := ui.NewModel(*acc, client, pty.Window.Width, pty.Window.Height)
		return tea.NewProgram(m, tea.WithInput(s), tea.WithOutput(s), tea.WithAltScreen())
	}
	return bm.MiddlewareWithProgramHandler(teaHandler, termenv.ANSI256)
}
