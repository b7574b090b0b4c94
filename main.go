package main

import (
	"context"
	"fmt"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish/logging"
	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/media"
	"github.com/deemkeen/clubspace/middleware"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/deemkeen/clubspace/util"
	"github.com/deemkeen/clubspace/web"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/wish"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	database := db.GetDB()

	broker := realtime.NewBroker()
	go broker.Run()
	database.SetBroker(broker)

	s, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.SshPort)),
		wish.WithHostKeyPath(".ssh/hostkey"),
		wish.WithPublicKeyAuth(publicKeyHandler),
		wish.WithMiddleware(
			middleware.MainTui(broker),
			middleware.AuthMiddleware(conf),
			logging.Middleware(), // last middleware executed first
		),
	)
	if err != nil {
		log.Fatalln(err)
	}

	startServing(err, s, conf, broker)

}

func startServing(err error, s *ssh.Server, conf *util.AppConfig, broker *realtime.Broker) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("Starting SSH server on %s:%d", conf.Conf.Host, conf.Conf.SshPort)
	go func() {
		if err = s.ListenAndServe(); err != nil {
			log.Fatalln(err)
		}
	}()

	go func() {
		uploader := media.NewDiskUploader(conf.Conf.MediaDir)
		if err = web.Router(conf, broker, uploader); err != nil {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping SSH server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer func() { cancel() }()
	if err := s.Shutdown(ctx); err != nil {
		log.Println(err)
	}
	broker.Stop()
}

func publicKeyHandler(ssh.Context, ssh.PublicKey) bool {
	return true
}
