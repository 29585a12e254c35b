package redis

import (
	"fmt"

	"github.com/hoopstat/scorekeeper/internal/model"
)

// Key prefix for all scorekeeper data
const keyPrefix = "hoopstat"

// sessionKey returns the Redis key for one user's snapshot of a game
func sessionKey(gameID model.GameID, userID model.UserID) string {
	return fmt.Sprintf("%s:session:%s:%s", keyPrefix, gameID, userID)
}

// sessionsForUserIndexKey returns the Redis key for the SET of games a user has cached
func sessionsForUserIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:sessions_for_user:%s", keyPrefix, userID)
}
