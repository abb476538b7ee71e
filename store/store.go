// Package store persists per-session conversation history.
package store

import (
	"context"

	"github.com/effective-security/xlog"

	"github.com/tutorstack/tutor/pkg/llms"
)

var logger = xlog.NewPackageLogger("github.com/tutorstack/tutor", "store")

// MaxMessagesPerSession caps the stored history per session.
const MaxMessagesPerSession = 50

// MessageStore keeps chat messages for the session carried in the context.
type MessageStore interface {
	// Messages returns the stored messages for the session in the context.
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the session history, trimming to the cap.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes the session history.
	Reset(ctx context.Context) error
}
