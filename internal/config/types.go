package config

import "time"

// Config is the top-level configuration structure for sessionkeeper.
type Config struct {
	ClientID              string        `yaml:"clientID,omitempty"`
	RedirectURI           string        `yaml:"redirectURI,omitempty"`
	AuthorizationEndpoint string        `yaml:"authorizationEndpoint,omitempty"`
	TokenEndpoint         string        `yaml:"tokenEndpoint,omitempty"`
	IdentityEndpoint      string        `yaml:"identityEndpoint,omitempty"`
	Scopes                []string      `yaml:"scopes,omitempty"`
	HTTPTimeout           time.Duration `yaml:"httpTimeout,omitempty"` // Timeout of token and identity requests (default: 30s)

	Storage StorageConfig `yaml:"storage"`
	Agent   AgentConfig   `yaml:"agent"`
}

// SharedBackend selects where origin-shared records live.
type SharedBackend string

const (
	SharedBackendFile   SharedBackend = "file"
	SharedBackendRedis  SharedBackend = "redis"
	SharedBackendMemory SharedBackend = "memory"
)

// StorageConfig defines where session state is kept.
type StorageConfig struct {
	StateDir string        `yaml:"stateDir,omitempty"` // Root of the file backend (default: <config dir>/state)
	Shared   SharedBackend `yaml:"shared,omitempty"`   // Backend of the handoff mailbox (default: file)
	Redis    RedisConfig   `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis shared backend.
type RedisConfig struct {
	Address   string        `yaml:"address,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db,omitempty"`
	TLS       bool          `yaml:"tls,omitempty"`
	KeyPrefix string        `yaml:"keyPrefix,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"` // Expiry of shared records; 0 keeps them until read
}

// AgentConfig configures `sessionkeeper agent`.
type AgentConfig struct {
	ListenAddress string `yaml:"listenAddress,omitempty"` // Loopback address of the token API (default: 127.0.0.1:8766)
}
