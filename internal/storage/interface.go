package storage

import (
	"context"

	"github.com/hoopstat/scorekeeper/internal/model"
)

// SessionCache holds the latest local snapshot of each open game session.
// It is a write-through mirror; the backend remains the system of record.
type SessionCache interface {
	SaveSnapshot(ctx context.Context, snapshot *model.SessionSnapshot) error

	// GetSnapshot returns model.ErrCacheMiss if no live entry exists
	GetSnapshot(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.SessionSnapshot, error)
	DeleteSnapshot(ctx context.Context, gameID model.GameID, userID model.UserID) error

	// ListSnapshots returns the live snapshots of a user's sessions
	ListSnapshots(ctx context.Context, userID model.UserID) ([]*model.SessionSnapshot, error)
}
