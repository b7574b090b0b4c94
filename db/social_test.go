package db

import (
	"testing"
	"time"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/errs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

func TestFollowPublicAccount(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	follow, err := db.FollowAccount(alice, bob)
	if err != nil {
		t.Fatalf("FollowAccount failed: %v", err)
	}
	if follow.Status != domain.FollowAccepted {
		t.Errorf("Expected accepted follow for public target, got %s", follow.Status)
	}

	// Target gets notified
	notifications, err := db.ReadNotifications(bob)
	if err != nil {
		t.Fatalf("ReadNotifications failed: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Type != domain.NotificationFollow {
		t.Errorf("Expected follow notification, got %s", notifications[0].Type)
	}
	if notifications[0].ActorId != alice {
		t.Error("Expected alice as notification actor")
	}
}

func TestFollowPrivateAccountIsPending(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")
	db.UpdateProfile(bob, "Bob", "film", "", "", true)

	follow, err := db.FollowAccount(alice, bob)
	if err != nil {
		t.Fatalf("FollowAccount failed: %v", err)
	}
	if follow.Status != domain.FollowPending {
		t.Errorf("Expected pending follow for private target, got %s", follow.Status)
	}

	// Pending edges do not show in followers yet
	err2, followers := db.ReadFollowers(bob)
	if err2 != nil {
		t.Fatalf("ReadFollowers failed: %v", err2)
	}
	if len(*followers) != 0 {
		t.Errorf("Expected 0 accepted followers, got %d", len(*followers))
	}

	if err := db.AcceptFollowRequest(alice, bob); err != nil {
		t.Fatalf("AcceptFollowRequest failed: %v", err)
	}

	err2, followers = db.ReadFollowers(bob)
	if err2 != nil {
		t.Fatalf("ReadFollowers failed: %v", err2)
	}
	if len(*followers) != 1 {
		t.Errorf("Expected 1 follower after accept, got %d", len(*followers))
	}
}

func TestFollowYourself(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	createTestAccount(t, db, alice, "alice")

	_, err := db.FollowAccount(alice, alice)
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestFollowTwice(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	if _, err := db.FollowAccount(alice, bob); err != nil {
		t.Fatalf("FollowAccount failed: %v", err)
	}
	_, err := db.FollowAccount(alice, bob)
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error on duplicate follow, got %v", err)
	}
}

func TestRejectFollowRequest(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	db.FollowAccount(alice, bob)

	if err := db.RejectFollowRequest(alice, bob); err != nil {
		t.Fatalf("RejectFollowRequest failed: %v", err)
	}

	status, err := db.ReadFollowStatus(alice, bob)
	if err != nil {
		t.Fatalf("ReadFollowStatus failed: %v", err)
	}
	if status != domain.FollowNone {
		t.Errorf("Expected no edge after reject, got %s", status)
	}
}

func TestUpsertReactionReplacesPrevious(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	post, err := db.CreatePost(bob, "/media/film.mp4", domain.MediaVideo, "short_film", "my film")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if _, err := db.UpsertReaction(post.Id, alice, domain.ReactionCreativeIdea); err != nil {
		t.Fatalf("UpsertReaction failed: %v", err)
	}
	if _, err := db.UpsertReaction(post.Id, alice, domain.ReactionEditingQuality); err != nil {
		t.Fatalf("second UpsertReaction failed: %v", err)
	}

	reactions, err := db.ReadReactions(post.Id)
	if err != nil {
		t.Fatalf("ReadReactions failed: %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("Expected a single reaction per user, got %d", len(reactions))
	}
	if reactions[0].Type != domain.ReactionEditingQuality {
		t.Errorf("Expected the newer reaction to win, got %s", reactions[0].Type)
	}
}

func TestReactionNotifiesPostOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	post, _ := db.CreatePost(bob, "/media/pic.png", domain.MediaImage, "photography", "")

	db.UpsertReaction(post.Id, alice, domain.ReactionEmotionalImpact)

	notifications, _ := db.ReadNotifications(bob)
	if len(notifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Type != domain.NotificationLike {
		t.Errorf("Expected like notification, got %s", notifications[0].Type)
	}
	if notifications[0].ResourceId != post.Id {
		t.Error("Expected notification to reference the post")
	}

	// Reacting to your own post stays silent
	db.UpsertReaction(post.Id, bob, domain.ReactionCreativeIdea)
	notifications, _ = db.ReadNotifications(bob)
	if len(notifications) != 1 {
		t.Errorf("Expected no self-reaction notification, got %d total", len(notifications))
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	db.FollowAccount(alice, bob)

	count, err := db.CountUnreadNotifications(bob)
	if err != nil {
		t.Fatalf("CountUnreadNotifications failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 unread notification, got %d", count)
	}

	if err := db.MarkAllNotificationsRead(bob); err != nil {
		t.Fatalf("MarkAllNotificationsRead failed: %v", err)
	}

	count, _ = db.CountUnreadNotifications(bob)
	if count != 0 {
		t.Errorf("Expected 0 unread after marking, got %d", count)
	}

	// Idempotent
	if err := db.MarkAllNotificationsRead(bob); err != nil {
		t.Fatalf("second MarkAllNotificationsRead failed: %v", err)
	}
}

func TestMarkSingleNotificationRead(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")
	createTestAccount(t, db, carol, "carol")

	db.FollowAccount(alice, bob)
	db.FollowAccount(carol, bob)

	notifications, err := db.ReadNotifications(bob)
	if err != nil {
		t.Fatalf("ReadNotifications failed: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(notifications))
	}

	if err := db.MarkNotificationRead(notifications[0].Id); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}

	count, _ := db.CountUnreadNotifications(bob)
	if count != 1 {
		t.Errorf("Expected 1 unread after consuming one, got %d", count)
	}

	if err := db.MarkNotificationRead(uuid.New()); !errs.IsNotFound(err) {
		t.Errorf("Expected not found for an unknown notification, got %v", err)
	}
}

func TestBlockSeversFollowEdges(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	db.FollowAccount(alice, bob)
	db.FollowAccount(bob, alice)

	if err := db.BlockAccount(alice, bob); err != nil {
		t.Fatalf("BlockAccount failed: %v", err)
	}

	blocked, err := db.IsBlocked(alice, bob)
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if !blocked {
		t.Error("Expected block to exist")
	}
	// Either direction counts
	blocked, _ = db.IsBlocked(bob, alice)
	if !blocked {
		t.Error("Expected block visible from both sides")
	}

	status, _ := db.ReadFollowStatus(alice, bob)
	if status != domain.FollowNone {
		t.Errorf("Expected follow edge removed, got %s", status)
	}
	status, _ = db.ReadFollowStatus(bob, alice)
	if status != domain.FollowNone {
		t.Errorf("Expected reverse edge removed, got %s", status)
	}
}

func TestUnblockAccount(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	db.BlockAccount(alice, bob)
	if err := db.UnblockAccount(alice, bob); err != nil {
		t.Fatalf("UnblockAccount failed: %v", err)
	}

	blocked, _ := db.IsBlocked(alice, bob)
	if blocked {
		t.Error("Expected block removed")
	}
}

func TestDeletePostOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")

	post, _ := db.CreatePost(bob, "/media/clip.mp4", domain.MediaVideo, "editing", "")

	if err := db.DeletePost(post.Id, alice); !errs.IsNotFound(err) {
		t.Errorf("Expected not-found for non-owner delete, got %v", err)
	}
	if err := db.DeletePost(post.Id, bob); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
}

func TestLeaderboardScoring(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	bob := uuid.New()
	mentor := uuid.New()
	createTestAccount(t, db, alice, "alice")
	createTestAccount(t, db, bob, "bob")
	createTestAccount(t, db, mentor, "mentor")

	// ReadAllAccounts filters first-time logins
	db.UpdateLoginById("alice", alice)
	db.UpdateLoginById("bob", bob)
	db.UpdateLoginById("mentor", mentor)
	db.UpdateRole(mentor, domain.RoleMentor)

	// alice: 2 uploads (4 points) + 1 reaction received = 5
	p1, _ := db.CreatePost(alice, "/media/a1.png", domain.MediaImage, "photography", "")
	db.CreatePost(alice, "/media/a2.png", domain.MediaImage, "photography", "")
	db.UpsertReaction(p1.Id, bob, domain.ReactionCreativeIdea)

	// mentor: 1 upload (2 points) + bonus 5 = 7
	db.CreatePost(mentor, "/media/m1.mp4", domain.MediaVideo, "short_film", "")

	now := time.Now()
	entries, err := db.Leaderboard(now.Year(), now.Month())
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 scored entries, got %d", len(entries))
	}

	if entries[0].UserId != mentor {
		t.Errorf("Expected mentor ranked first")
	}
	if entries[0].TotalScore != 7 {
		t.Errorf("Expected mentor score 7, got %d", entries[0].TotalScore)
	}
	if entries[0].Rank != 1 {
		t.Errorf("Expected rank 1, got %d", entries[0].Rank)
	}

	if entries[1].UserId != alice {
		t.Errorf("Expected alice ranked second")
	}
	if entries[1].TotalScore != 5 {
		t.Errorf("Expected alice score 5, got %d", entries[1].TotalScore)
	}

	// bob has no uploads and no reactions received, so no entry
	for _, e := range entries {
		if e.UserId == bob {
			t.Error("Expected bob excluded with zero score")
		}
	}
}

func TestLeaderboardMonthBucketing(t *testing.T) {
	db := setupTestDB(t)
	defer db.db.Close()

	alice := uuid.New()
	createTestAccount(t, db, alice, "alice")
	db.UpdateLoginById("alice", alice)

	// The stored created_at text carries fractional seconds; the month filter
	// has to match it anyway.
	if _, err := db.CreatePost(alice, "/media/a1.png", domain.MediaImage, "photography", ""); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	now := time.Now()
	entries, err := db.Leaderboard(now.Year(), now.Month())
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected the fresh upload to score in the current month, got %d entries", len(entries))
	}
	if entries[0].UploadCount != 1 {
		t.Errorf("Expected upload count 1, got %d", entries[0].UploadCount)
	}

	// A different month stays empty
	prevYear, prevMonth := now.Year(), now.Month()-1
	if now.Month() == time.January {
		prevYear, prevMonth = now.Year()-1, time.December
	}
	entries, err = db.Leaderboard(prevYear, prevMonth)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries for the previous month, got %d", len(entries))
	}
}
