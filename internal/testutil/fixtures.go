package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/kromio/kromio-server/internal/model"
)

// TestUser creates a verified free-plan user.
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:      fmt.Sprintf("testuser_%d", time.Now().UnixNano()%100000),
		Email:         &email,
		PasswordHash:  &passwordHash,
		Plan:          "free",
		EmailVerified: true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername sets the username.
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail sets the email.
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithPlan sets the plan tier.
func WithPlan(plan string) func(*model.User) {
	return func(u *model.User) {
		u.Plan = plan
	}
}

// WithAdmin grants the admin flag.
func WithAdmin() func(*model.User) {
	return func(u *model.User) {
		u.IsAdmin = true
	}
}

// WithUnverified clears the email verification flag.
func WithUnverified() func(*model.User) {
	return func(u *model.User) {
		u.EmailVerified = false
	}
}

// TestSubscription creates an active subscription covering the current period.
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, plan string, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now().UTC()
	sub := &model.Subscription{
		UserID:             userID,
		Plan:               plan,
		Status:             model.SubStatusActive,
		CurrentPeriodStart: now.AddDate(0, 0, -1),
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithPeriodEnd overrides the period end.
func WithPeriodEnd(end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CurrentPeriodEnd = end
	}
}

// WithCancelAtPeriodEnd marks the subscription as canceling.
func WithCancelAtPeriodEnd() func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CancelAtPeriodEnd = true
	}
}

// WithStatus overrides the subscription status.
func WithStatus(status string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// TestSupportMessage creates an open support message.
func TestSupportMessage(t *testing.T, db *gorm.DB, userID int64) *model.SupportMessage {
	t.Helper()

	msg := &model.SupportMessage{
		UserID:  userID,
		Subject: "Test subject",
		Body:    "Test body",
		Status:  model.SupportStatusOpen,
	}

	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("Failed to create test support message: %v", err)
	}

	return msg
}
