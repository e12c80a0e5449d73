package config

import "time"

const (
	// DefaultRedirectURI is the loopback callback the CLI listens on.
	DefaultRedirectURI = "http://127.0.0.1:8765/callback"

	// DefaultHTTPTimeout bounds token and identity requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultAgentListenAddress is where the agent serves its token API.
	DefaultAgentListenAddress = "127.0.0.1:8766"

	// DefaultRedisKeyPrefix namespaces shared records in redis.
	DefaultRedisKeyPrefix = "sessionkeeper"

	// HandoffTTL is the redis expiry applied when none is configured. Records
	// older than the handoff freshness window are discarded anyway.
	HandoffTTL = 5 * time.Minute
)

// GetDefaultConfig returns the default configuration. stateDir is filled in
// by LoadConfig relative to the configuration directory.
func GetDefaultConfig() Config {
	return Config{
		RedirectURI: DefaultRedirectURI,
		HTTPTimeout: DefaultHTTPTimeout,
		Storage: StorageConfig{
			Shared: SharedBackendFile,
			Redis: RedisConfig{
				KeyPrefix: DefaultRedisKeyPrefix,
				TTL:       HandoffTTL,
			},
		},
		Agent: AgentConfig{
			ListenAddress: DefaultAgentListenAddress,
		},
	}
}
