package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deemkeen/clubspace/db"
	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/errs"
	"github.com/deemkeen/clubspace/media"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"log"
)

// The HTTP API is the read-mostly companion surface next to the SSH TUI.
// Write endpoints identify the caller through the X-User-Id header; session
// issuance itself lives with the SSH layer, not here.

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader("X-User-Id")
	userId, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-Id header"})
		return uuid.Nil, false
	}
	if err, _ := db.GetDB().ReadAccById(userId); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return uuid.Nil, false
	}
	return userId, true
}

func statusForError(err error) int {
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errs.IsUnauthorized(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// HandleListPosts returns the recent uploads.
func HandleListPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	posts, err := db.GetDB().ReadRecentPosts(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

// HandleCreatePost stores an uploaded work and its post row.
func HandleCreatePost(uploader media.Uploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := requireUser(c)
		if !ok {
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
			return
		}
		defer file.Close()

		mediaType, err := media.TypeForFilename(header.Filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		url, err := uploader.Upload(header.Filename, mediaType, file)
		if err != nil {
			log.Printf("Upload failed: %v", err)
			c.JSON(statusForError(err), gin.H{"error": "upload failed"})
			return
		}

		post, err := db.GetDB().CreatePost(userId, url, mediaType,
			c.PostForm("category"), c.PostForm("description"))
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": "could not create post"})
			return
		}
		c.JSON(http.StatusCreated, post)
	}
}

// HandleDeletePost removes a post, owner only.
func HandleDeletePost(c *gin.Context) {
	userId, ok := requireUser(c)
	if !ok {
		return
	}
	postId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	if err := db.GetDB().DeletePost(postId, userId); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not delete post"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleReact replaces the caller's reaction on a post.
func HandleReact(c *gin.Context) {
	userId, ok := requireUser(c)
	if !ok {
		return
	}
	postId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	var body struct {
		ReactionType domain.ReactionType `json:"reaction_type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ReactionType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reaction_type is required"})
		return
	}

	reaction, err := db.GetDB().UpsertReaction(postId, userId, body.ReactionType)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not react"})
		return
	}
	c.JSON(http.StatusOK, reaction)
}

// HandleUnreact withdraws the caller's reaction.
func HandleUnreact(c *gin.Context) {
	userId, ok := requireUser(c)
	if !ok {
		return
	}
	postId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}
	if err := db.GetDB().RemoveReaction(postId, userId); err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not remove reaction"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleLeaderboard scores the given month, defaulting to the current one.
func HandleLeaderboard(c *gin.Context) {
	now := time.Now()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	entries, err := db.GetDB().Leaderboard(year, time.Month(month))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute leaderboard"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleProfile returns a member's public profile.
func HandleProfile(c *gin.Context) {
	err, acc := db.GetDB().ReadAccByUsername(c.Param("username"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         acc.Id,
		"username":   acc.Username,
		"full_name":  acc.FullName,
		"department": acc.Department,
		"role":       acc.Role,
		"bio":        acc.Bio,
		"avatar_url": acc.AvatarURL,
		"is_private": acc.IsPrivate,
	})
}

// HandleHealth probes database reachability.
func HandleHealth(c *gin.Context) {
	if err := db.GetDB().Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
