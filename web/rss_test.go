package web

import (
	"strings"
	"testing"
	"time"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/util"
	"github.com/google/uuid"
)

func feedConf() *util.AppConfig {
	conf := &util.AppConfig{}
	conf.Conf.Host = "example.com"
	conf.Conf.HttpPort = 8080
	return conf
}

func TestBuildFeedStructure(t *testing.T) {
	posts := []domain.Post{
		{
			Id:          uuid.New(),
			CreatedBy:   "alice",
			MediaURL:    "/media/abc.png",
			MediaType:   domain.MediaImage,
			Category:    "photography",
			Description: "sunset over the library",
			CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Id:        uuid.New(),
			CreatedBy: "bob",
			MediaURL:  "/media/def.mp3",
			MediaType: domain.MediaAudio,
			Category:  "music",
			CreatedAt: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
		},
	}

	rss, err := buildFeed(posts, feedConf())
	if err != nil {
		t.Fatalf("buildFeed failed: %v", err)
	}

	if !strings.Contains(rss, "<rss") {
		t.Error("Expected RSS envelope in output")
	}
	if !strings.Contains(rss, "ClubSpace Uploads") {
		t.Error("Expected feed title in output")
	}
	if !strings.Contains(rss, "http://example.com:8080/feed") {
		t.Error("Expected feed link built from config")
	}
	if !strings.Contains(rss, "sunset over the library") {
		t.Error("Expected post description as item title")
	}
	if !strings.Contains(rss, "http://example.com:8080/media/abc.png") {
		t.Error("Expected media URL as item link")
	}
	if !strings.Contains(rss, "alice@clubspace (alice)") {
		t.Error("Expected the item author rendered as email (name)")
	}
}

func TestBuildFeedFallbackTitle(t *testing.T) {
	posts := []domain.Post{
		{
			Id:        uuid.New(),
			CreatedBy: "carol",
			MediaURL:  "/media/xyz.mp4",
			MediaType: domain.MediaVideo,
			Category:  "film",
			CreatedAt: time.Now(),
		},
	}

	rss, err := buildFeed(posts, feedConf())
	if err != nil {
		t.Fatalf("buildFeed failed: %v", err)
	}

	// Description is empty, so the title falls back to type and category
	if !strings.Contains(rss, "video upload (film)") {
		t.Errorf("Expected fallback title, got: %s", rss)
	}
}

func TestBuildFeedEmpty(t *testing.T) {
	rss, err := buildFeed(nil, feedConf())
	if err != nil {
		t.Fatalf("buildFeed failed on empty input: %v", err)
	}
	if !strings.Contains(rss, "<rss") {
		t.Error("Empty feed should still render an RSS envelope")
	}
}
