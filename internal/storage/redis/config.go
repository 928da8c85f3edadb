package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// GameTTL is refreshed on every write, so idle games expire
	GameTTL time.Duration

	// MaxTxRetries bounds optimistic transaction retries on contended games
	MaxTxRetries int

	// FailFast makes New return an error when the first ping fails.
	// Otherwise the client is returned and reconnects lazily.
	FailFast bool
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		GameTTL:      7 * 24 * time.Hour,
		MaxTxRetries: 20,
		FailFast:     true,
	}
}
