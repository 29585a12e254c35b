package redis

import "time"

// Config holds the Redis connection settings for the session cache
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	PoolSize     int
	MinIdleConns int

	// ConnectTimeout bounds the startup ping
	ConnectTimeout time.Duration

	// SessionTTL bounds how long an abandoned session snapshot survives.
	// Every save refreshes it.
	SessionTTL time.Duration
}

// DefaultConfig returns the cache settings used when only a URL is configured
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		ConnectTimeout: 5 * time.Second,
		SessionTTL:     12 * time.Hour,
	}
}
