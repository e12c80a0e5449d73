package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sessionkeeper/pkg/logging"
)

const (
	userConfigDir  = ".config/sessionkeeper"
	configFileName = "config.yaml"
	stateDirName   = "state"
)

// Environment overrides.
const (
	EnvClientID    = "SESSIONKEEPER_CLIENT_ID"
	EnvRedirectURI = "SESSIONKEEPER_REDIRECT_URI"
	EnvRedisAddr   = "SESSIONKEEPER_REDIS_ADDR"
)

var lookupEnv = os.LookupEnv

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath over the defaults and applies
// environment overrides.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, &LoadError{FilePath: configFilePath, Message: "cannot read file", Err: err}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, &LoadError{
				FilePath:    configFilePath,
				Message:     "malformed YAML",
				Err:         err,
				Suggestions: []string{"Check indentation and that keys use camelCase, e.g. clientID, tokenEndpoint"},
			}
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	applyEnv(&config)

	if config.Storage.StateDir == "" {
		config.Storage.StateDir = filepath.Join(configPath, stateDirName)
	}
	return config, nil
}

func applyEnv(config *Config) {
	if v, ok := lookupEnv(EnvClientID); ok && v != "" {
		config.ClientID = v
	}
	if v, ok := lookupEnv(EnvRedirectURI); ok && v != "" {
		config.RedirectURI = v
	}
	if v, ok := lookupEnv(EnvRedisAddr); ok && v != "" {
		config.Storage.Redis.Address = v
		config.Storage.Shared = SharedBackendRedis
	}
}
