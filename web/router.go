package web

import (
	"fmt"
	"log"

	"github.com/deemkeen/clubspace/media"
	"github.com/deemkeen/clubspace/realtime"
	"github.com/deemkeen/clubspace/util"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"
)

func Router(conf *util.AppConfig, broker *realtime.Broker, uploader media.Uploader) error {
	log.Printf("Starting web server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws"})))

	// Browser clients for the read API live on other origins of the campus net
	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AllowHeaders = append(corsConf.AllowHeaders, "X-User-Id")
	g.Use(cors.New(corsConf))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	g.GET("/healthz", HandleHealth)

	// RSS Feed
	g.GET("/feed", func(c *gin.Context) {

		c.Header("Content-Type", "application/xml; charset=utf-8")

		rss, err := GetRSS(conf)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	// Uploaded works are served straight off disk
	g.Static("/media", util.ResolveFilePathWithSubdir(conf.Conf.MediaDir, ""))

	// Uploads are capped at 50MB, everything else stays small
	uploadLimiter := NewRateLimiter(rate.Limit(1), 5)
	maxBodySize := MaxBytesMiddleware(50 * 1024 * 1024)

	api := g.Group("/api")
	{
		api.GET("/posts", HandleListPosts)
		api.POST("/posts", RateLimitMiddleware(uploadLimiter), maxBodySize, HandleCreatePost(uploader))
		api.DELETE("/posts/:id", HandleDeletePost)
		api.POST("/posts/:id/reactions", HandleReact)
		api.DELETE("/posts/:id/reactions", HandleUnreact)
		api.GET("/leaderboard", HandleLeaderboard)
		api.GET("/accounts/:username", HandleProfile)
	}

	// Realtime event stream for browser clients
	g.GET("/ws", HandleEvents(broker))

	err := g.Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
	if err != nil {
		return err
	}
	return nil
}
