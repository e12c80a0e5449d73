package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the endpoints and storage settings. It does not require
// clientID or redirectURI; see the package documentation.
func (c Config) Validate() error {
	var errs ValidationErrors

	validateEndpoint(&errs, "authorizationEndpoint", c.AuthorizationEndpoint)
	validateEndpoint(&errs, "tokenEndpoint", c.TokenEndpoint)
	validateEndpoint(&errs, "identityEndpoint", c.IdentityEndpoint)

	if c.RedirectURI != "" {
		if u, err := url.Parse(c.RedirectURI); err != nil || u.Scheme == "" || u.Host == "" {
			errs.Add("redirectURI", "must be an absolute URL", c.RedirectURI)
		}
	}
	if c.HTTPTimeout < 0 {
		errs.Add("httpTimeout", "must not be negative", c.HTTPTimeout)
	}

	switch c.Storage.Shared {
	case SharedBackendFile, SharedBackendMemory:
	case SharedBackendRedis:
		if c.Storage.Redis.Address == "" {
			errs.Add("storage.redis.address", "is required when storage.shared is redis")
		}
		if c.Storage.Redis.DB < 0 {
			errs.Add("storage.redis.db", "must not be negative", c.Storage.Redis.DB)
		}
	default:
		errs.Add("storage.shared", "must be one of file, redis, memory", c.Storage.Shared)
	}

	if addr := c.Agent.ListenAddress; addr != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			errs.Add("agent.listenAddress", "must be host:port", addr)
		} else if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
			errs.Add("agent.listenAddress", "must be a loopback address", addr)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateEndpoint(errs *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "is required")
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		errs.Add(field, "must be an absolute URL", value)
		return
	}
	if u.Scheme != "https" && !isLoopbackHost(u.Hostname()) {
		errs.Add(field, "must use https", value)
	}
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
