package web

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/util"
	"github.com/gorilla/feeds"
)

const feedLimit = 50

// GetRSS renders the recent uploads as an RSS feed.
func GetRSS(conf *util.AppConfig) (string, error) {
	posts, err := db.GetDB().ReadRecentPosts(feedLimit)
	if err != nil {
		log.Println("Could not get posts!", err)
		return "", errors.New("error retrieving posts")
	}
	return buildFeed(posts, conf)
}

func buildFeed(posts []domain.Post, conf *util.AppConfig) (string, error) {
	link := fmt.Sprintf("http://%s:%d/feed", conf.Conf.Host, conf.Conf.HttpPort)

	feed := &feeds.Feed{
		Title:       "ClubSpace Uploads",
		Link:        &feeds.Link{Href: link},
		Description: "recent works uploaded to the club",
		Author:      &feeds.Author{Name: "everyone", Email: "everyone@clubspace"},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, post := range posts {
		title := post.Description
		if title == "" {
			title = fmt.Sprintf("%s upload (%s)", post.MediaType, post.Category)
		}
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      post.Id.String(),
				Title:   title,
				Link:    &feeds.Link{Href: fmt.Sprintf("http://%s:%d%s", conf.Conf.Host, conf.Conf.HttpPort, post.MediaURL)},
				Content: post.Description,
				// gorilla/feeds emits only Author.Name for RSS items, so the
			// name carries the conventional "email (name)" author string.
			Author:  &feeds.Author{Name: fmt.Sprintf("%s@clubspace (%s)", post.CreatedBy, post.CreatedBy)},
				Created: post.CreatedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
