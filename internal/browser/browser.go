// Package browser navigates the user's browser to a URL.
package browser

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"sessionkeeper/pkg/logging"
)

// Command returns the command that opens target with the platform's default
// browser.
func Command(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", target), nil
	case "darwin":
		return exec.Command("open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// Navigator opens URLs in the system browser. The URL is always printed to
// Out so the user can open it by hand when no browser is available.
type Navigator struct {
	Out io.Writer

	// Disabled only prints the URL.
	Disabled bool

	// start runs the command; replaced in tests.
	start func(cmd *exec.Cmd) error
}

// NewNavigator returns a Navigator printing to out.
func NewNavigator(out io.Writer, disabled bool) *Navigator {
	return &Navigator{Out: out, Disabled: disabled}
}

// Navigate opens target. Failure to launch a browser is not an error as long
// as the URL was printed.
func (n *Navigator) Navigate(ctx context.Context, target string) error {
	if !strings.HasPrefix(target, "https://") && !strings.HasPrefix(target, "http://") {
		return fmt.Errorf("refusing to open non-http URL %q", target)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if n.Out != nil {
		fmt.Fprintf(n.Out, "Open this URL to sign in:\n\n  %s\n\n", target)
	}
	if n.Disabled {
		return nil
	}

	cmd, err := Command(runtime.GOOS, target)
	if err != nil {
		logging.Warn("Browser", "Cannot open browser: %v", err)
		return nil
	}

	start := n.start
	if start == nil {
		start = func(c *exec.Cmd) error { return c.Start() }
	}
	if err := start(cmd); err != nil {
		logging.Warn("Browser", "Failed to open browser: %v", err)
	}
	return nil
}
