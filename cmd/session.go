package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"sessionkeeper/internal/browser"
	"sessionkeeper/internal/config"
	"sessionkeeper/internal/session"
	"sessionkeeper/pkg/logging"
)

// tabSession is everything a command needs to act on one tab.
type tabSession struct {
	cfg      config.Config
	manager  *session.Manager
	location *session.TabLocation
	stores   *config.Stores
}

func (s *tabSession) Close() {
	s.manager.Teardown()
	if err := s.stores.Close(); err != nil {
		logging.Warn("CLI", "Failed to close storage: %v", err)
	}
}

// newNavigator is replaced in tests to stand in for the browser.
var newNavigator = func(out io.Writer, disabled bool) session.Navigator {
	return browser.NewNavigator(out, disabled)
}

// loadConfig loads and validates the configuration directory.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openTab builds the session manager of the --tab tab. The tab's address bar
// starts at the redirect URI without parameters.
func openTab(ctx context.Context, out io.Writer, noBrowser bool) (*tabSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.ValidateTabName(tabName); err != nil {
		return nil, err
	}

	stores, err := cfg.OpenStores(ctx, tabName)
	if err != nil {
		return nil, err
	}

	home, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	home.RawQuery = ""
	location := session.NewTabLocation(home, newNavigator(out, noBrowser))

	manager, err := session.New(session.Options{
		Tab:         tabName,
		Config:      cfg.Session(),
		TabStore:    stores.Tab,
		SharedStore: stores.Shared,
		Location:    location,
		HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout},
	})
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	return &tabSession{cfg: cfg, manager: manager, location: location, stores: stores}, nil
}
