package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := GetDefaultConfig()
	cfg.AuthorizationEndpoint = "https://accounts.example.com/authorize"
	cfg.TokenEndpoint = "https://accounts.example.com/api/token"
	cfg.IdentityEndpoint = "https://api.example.com/v1/me"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing token endpoint", func(c *Config) { c.TokenEndpoint = "" }, "tokenEndpoint"},
		{"relative identity endpoint", func(c *Config) { c.IdentityEndpoint = "/v1/me" }, "identityEndpoint"},
		{"plain http endpoint", func(c *Config) { c.AuthorizationEndpoint = "http://accounts.example.com/authorize" }, "authorizationEndpoint"},
		{"loopback http endpoint", func(c *Config) { c.TokenEndpoint = "http://127.0.0.1:9000/token" }, ""},
		{"redis without address", func(c *Config) { c.Storage.Shared = SharedBackendRedis }, "storage.redis.address"},
		{"unknown backend", func(c *Config) { c.Storage.Shared = "etcd" }, "storage.shared"},
		{"public agent address", func(c *Config) { c.Agent.ListenAddress = "0.0.0.0:8766" }, "agent.listenAddress"},
		{"agent address without port", func(c *Config) { c.Agent.ListenAddress = "127.0.0.1" }, "agent.listenAddress"},
		{"relative redirect", func(c *Config) { c.RedirectURI = "/callback" }, "redirectURI"},
		{"missing client id is allowed", func(c *Config) { c.ClientID = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var errs ValidationErrors
			if assert.True(t, errors.As(err, &errs), "got %v", err) {
				assert.Equal(t, tt.field, errs[0].Field)
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("tokenEndpoint", "is required")
	assert.Equal(t, "field 'tokenEndpoint': is required", errs.Error())

	errs.Add("identityEndpoint", "is required")
	assert.Equal(t, "validation failed: field 'tokenEndpoint': is required; field 'identityEndpoint': is required", errs.Error())
}

func TestValidateTabName(t *testing.T) {
	for _, ok := range []string{"default", "work-1", "A_b"} {
		assert.NoError(t, ValidateTabName(ok), ok)
	}
	for _, bad := range []string{"", "../x", "a/b", ".hidden", "-lead", "with space"} {
		assert.Error(t, ValidateTabName(bad), bad)
	}
}
