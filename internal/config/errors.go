package config

import (
	"fmt"
	"strings"
)

// LoadError is returned when config.yaml exists but cannot be used.
type LoadError struct {
	FilePath    string
	Message     string
	Err         error
	Suggestions []string
}

// Error implements the error interface
func (le *LoadError) Error() string {
	return fmt.Sprintf("error loading config from %s: %s: %v", le.FilePath, le.Message, le.Err)
}

func (le *LoadError) Unwrap() error { return le.Err }

// DetailedError returns a detailed error message with all context
func (le *LoadError) DetailedError() string {
	parts := []string{
		fmt.Sprintf("Configuration Error: %s", le.Message),
		fmt.Sprintf("  File: %s", le.FilePath),
		fmt.Sprintf("  Error: %v", le.Err),
	}

	if len(le.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range le.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}
