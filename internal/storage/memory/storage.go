package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hoopstat/scorekeeper/internal/dependencies/clock"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/storage"
)

// Storage is an in-memory implementation of the session cache
type Storage struct {
	mu sync.RWMutex

	snapshots map[snapshotKey]entry
	clock     clock.Clock
	ttl       time.Duration
}

type snapshotKey struct {
	gameID model.GameID
	userID model.UserID
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New creates a new in-memory session cache. A zero ttl keeps entries forever.
func New(clk clock.Clock, ttl time.Duration) *Storage {
	return &Storage{
		snapshots: make(map[snapshotKey]entry),
		clock:     clk,
		ttl:       ttl,
	}
}

// Ensure Storage implements the interface
var _ storage.SessionCache = (*Storage)(nil)

func (s *Storage) SaveSnapshot(ctx context.Context, snapshot *model.SessionSnapshot) error {
	data, err := storage.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	e := entry{data: data}
	if s.ttl > 0 {
		e.expiresAt = s.clock.Now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{snapshot.GameID, snapshot.UserID}] = e
	return nil
}

func (s *Storage) GetSnapshot(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.SessionSnapshot, error) {
	s.mu.RLock()
	e, ok := s.snapshots[snapshotKey{gameID, userID}]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, model.ErrCacheMiss
	}
	return storage.DecodeSnapshot(e.data)
}

func (s *Storage) DeleteSnapshot(ctx context.Context, gameID model.GameID, userID model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, snapshotKey{gameID, userID})
	return nil
}

func (s *Storage) ListSnapshots(ctx context.Context, userID model.UserID) ([]*model.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.SessionSnapshot
	for key, e := range s.snapshots {
		if key.userID != userID || s.expired(e) {
			continue
		}
		snap, err := storage.DecodeSnapshot(e.data)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

func (s *Storage) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt)
}
