package middleware

import (
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/util"
	"log"
)

// AuthMiddleware resolves the session's public key to an account. Unknown
// keys get a fresh account unless the instance runs closed, in which case
// the session is refused.
func AuthMiddleware(conf *util.AppConfig) wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			database := db.GetDB()
			_, found := database.ReadAccBySession(s)

			switch {
			case found != nil:
				util.LogPublicKey(s)
			case conf.Conf.Closed:
				log.Printf("Rejected unknown key from %s, instance is closed", s.RemoteAddr())
				wish.Println(s, "This instance is closed. Ask an admin to register your key.")
				return
			default:
				err, created := database.CreateAccount(s, util.RandomString(10))
				if err != nil {
					log.Fatalln("Could not create a user: ", err)
				}

				if created {
					util.LogPublicKey(s)
				} else {
					log.Fatalln("The user is still empty!")
				}
			}
			h(s)
		}
	}
}
