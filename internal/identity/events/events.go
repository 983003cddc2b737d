// Package events carries the domain events this service emits and the
// publish sink they flow through. Publishing is fire-and-forget: it happens
// strictly after the owning transaction commits, so a crash between commit
// and publish drops the event (at-most-once delivery).
package events

import (
	"context"
	"time"
)

// Topics, keyed by the subject identity when the sink supports keys.
const (
	TopicUserCreated   = "user-created"
	TopicAdminGrant    = "admin-grant"
	TopicPasswordReset = "password-reset"
)

// UserCreated announces a new account.
type UserCreated struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Email     string    `json:"email"`
}

// AdminGranted announces an admin-role elevation.
type AdminGranted struct {
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// PasswordResetRequested carries a freshly issued reset token to the
// mail pipeline.
type PasswordResetRequested struct {
	Token          string    `json:"token"`
	ExpirationTime time.Time `json:"expirationTime"`
	Username       string    `json:"username"`
}

// Publisher is the outbound sink. key identifies the event subject so sinks
// with partitioning can keep per-subject ordering.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	return nil
}
