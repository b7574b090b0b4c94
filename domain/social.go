package domain

import (
	"time"

	"github.com/google/uuid"
)

type FollowStatus string

const (
	FollowPending  FollowStatus = "pending"
	FollowAccepted FollowStatus = "accepted"
	FollowNone     FollowStatus = "none"
)

// Follow is a directed edge follower -> following. At most one edge exists per
// ordered pair; unfollow removes the row entirely.
type Follow struct {
	Id          uuid.UUID
	FollowerId  uuid.UUID
	FollowingId uuid.UUID
	Status      FollowStatus
	CreatedAt   time.Time
}

type NotificationType string

const (
	NotificationFollow  NotificationType = "follow"
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationSystem  NotificationType = "system"
)

type Notification struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	ActorId    uuid.UUID
	Type       NotificationType
	Title      string
	Message    string
	ResourceId uuid.UUID
	IsRead     bool
	CreatedAt  time.Time
}

type ReactionType string

const (
	ReactionCreativeIdea      ReactionType = "creative_idea"
	ReactionStrongComposition ReactionType = "strong_composition"
	ReactionEditingQuality    ReactionType = "editing_quality"
	ReactionEmotionalImpact   ReactionType = "emotional_impact"
	ReactionNeedsImprovement  ReactionType = "needs_improvement"
)

// Reaction is unique per (post, user); a new reaction replaces the old one.
type Reaction struct {
	Id        uuid.UUID
	PostId    uuid.UUID
	UserId    uuid.UUID
	Type      ReactionType
	CreatedAt time.Time
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

type Post struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	CreatedBy   string
	MediaURL    string
	MediaType   MediaType
	Category    string
	Description string
	CreatedAt   time.Time
}

type Block struct {
	Id        uuid.UUID
	BlockerId uuid.UUID
	BlockedId uuid.UUID
	CreatedAt time.Time
}

// LeaderboardEntry scores a member for one month: uploads are worth two
// points, every reaction received one, mentors get a flat bonus of five.
type LeaderboardEntry struct {
	UserId        uuid.UUID
	FullName      string
	Department    string
	UploadCount   int
	ReactionCount int
	MentorBonus   int
	TotalScore    int
	Rank          int
}
