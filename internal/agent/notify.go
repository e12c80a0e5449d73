package agent

import (
	"github.com/coreos/go-systemd/v22/daemon"

	"sessionkeeper/pkg/logging"
)

// Notifier reports service state to a supervisor.
type Notifier interface {
	Notify(state string) error
}

// SystemdNotifier reports to systemd via $NOTIFY_SOCKET. Outside systemd it
// does nothing.
type SystemdNotifier struct{}

func (SystemdNotifier) Notify(state string) error {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		return err
	}
	if !sent {
		logging.Debug("Agent", "sd_notify not available, skipped %q", state)
	}
	return nil
}

func statusLine(msg string) string {
	return "STATUS=" + msg
}
