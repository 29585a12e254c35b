package redis

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/storage"
)

// Storage is a Redis-backed implementation of the session cache
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New connects to Redis and verifies the connection with a ping
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, oops.In("redis").
			Code("INVALID_REDIS_URL").
			Wrapf(err, "parsing redis url")
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.In("redis").
			Code("REDIS_UNAVAILABLE").
			With("addr", opts.Addr).
			Wrapf(err, "pinging redis")
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.SessionCache = (*Storage)(nil)

func (s *Storage) SaveSnapshot(ctx context.Context, snapshot *model.SessionSnapshot) error {
	data, err := storage.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	indexKey := sessionsForUserIndexKey(snapshot.UserID)

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(snapshot.GameID, snapshot.UserID), data, s.cfg.SessionTTL)
	pipe.SAdd(ctx, indexKey, string(snapshot.GameID))
	if s.cfg.SessionTTL > 0 {
		pipe.Expire(ctx, indexKey, s.cfg.SessionTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSnapshot(ctx context.Context, gameID model.GameID, userID model.UserID) (*model.SessionSnapshot, error) {
	data, err := s.client.Get(ctx, sessionKey(gameID, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrCacheMiss
		}
		return nil, err
	}
	return storage.DecodeSnapshot(data)
}

func (s *Storage) DeleteSnapshot(ctx context.Context, gameID model.GameID, userID model.UserID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(gameID, userID))
	pipe.SRem(ctx, sessionsForUserIndexKey(userID), string(gameID))
	_, err := pipe.Exec(ctx)
	return err
}

// ListSnapshots reads every snapshot in the user's index, pruning index
// entries whose snapshot has expired
func (s *Storage) ListSnapshots(ctx context.Context, userID model.UserID) ([]*model.SessionSnapshot, error) {
	indexKey := sessionsForUserIndexKey(userID)
	gameIDs, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(gameIDs) == 0 {
		return nil, nil
	}
	sort.Strings(gameIDs)

	keys := make([]string, len(gameIDs))
	for i, id := range gameIDs {
		keys[i] = sessionKey(model.GameID(id), userID)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var out []*model.SessionSnapshot
	var stale []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, gameIDs[i])
			continue
		}
		snap, err := storage.DecodeSnapshot([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
