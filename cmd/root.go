package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sessionkeeper/internal/config"
	"sessionkeeper/internal/session"
	"sessionkeeper/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates the tab holds no valid session.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the login flow failed.
	ExitCodeAuthFailed = 3
	// ExitCodeConfigError indicates missing or invalid configuration.
	ExitCodeConfigError = 4
)

var (
	configPath string
	tabName    string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command for the sessionkeeper application.
var rootCmd = &cobra.Command{
	Use:   "sessionkeeper",
	Short: "Log in with OAuth and keep the session alive",
	Long: `sessionkeeper performs an OAuth 2.0 authorization code login with PKCE,
stores the resulting access token per tab, warns before the session expires
and starts a new login when it does. Sessions can be handed off to a newly
opened tab without logging in again.`,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sessionkeeper version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var cfgErr *session.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfigError
	}
	var validation config.ValidationErrors
	if errors.As(err, &validation) {
		return ExitCodeConfigError
	}
	var loadErr *config.LoadError
	if errors.As(err, &loadErr) {
		return ExitCodeConfigError
	}

	var authRequired *AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}
	if errors.Is(err, &session.AuthorizationError{}) ||
		errors.Is(err, &session.IntegrityError{}) ||
		errors.Is(err, &session.ExchangeError{}) ||
		errors.Is(err, &session.IdentityCheckError{}) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func initLogging(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())
	return nil
}

// printf prints progress output unless --quiet is set.
func printf(cmd *cobra.Command, format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().StringVar(&tabName, "tab", session.DefaultTab, "Name of the tab (browsing context) to act on")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newHandoffCmd())
	rootCmd.AddCommand(newAgentCmd())
}
