// Package systemd reports run progress to the service manager with
// sd_notify when ffrun runs as a systemd unit.
package systemd

import (
	"fmt"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/ffrun/internal/events"
	"github.com/smazurov/ffrun/internal/logging"
)

// Notifier sends READY, STATUS and STOPPING messages. Send errors are
// logged once and then ignored; a run never fails because systemd is gone.
type Notifier struct {
	logger logging.Logger
	failed bool
}

// Available reports whether the process was started with a notify socket.
func Available() bool {
	return os.Getenv("NOTIFY_SOCKET") != ""
}

// NewNotifier creates a notifier. logger may be nil.
func NewNotifier(logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Notifier{logger: logger}
}

// Handle maps run events to notify messages. Subscribe it to an events.Bus;
// the bus delivers events for one subscriber sequentially.
func (n *Notifier) Handle(ev events.RunEvent) {
	switch ev.Kind {
	case events.KindStarted:
		n.send(daemon.SdNotifyReady, "STATUS=ffmpeg running")
	case events.KindProgress:
		if ev.Progress != nil {
			n.send("STATUS=" + StatusLine(ev))
		}
	case events.KindFinished:
		n.send(daemon.SdNotifyStopping, "STATUS=finished: "+ev.Outcome)
	}
}

// StatusLine formats a progress event as a one-line status.
func StatusLine(ev events.RunEvent) string {
	p := ev.Progress
	if p == nil {
		return string(ev.Kind)
	}
	var parts []string
	if p.Completion != nil {
		parts = append(parts, fmt.Sprintf("%.1f%%", *p.Completion*100))
	}
	if p.Frame != nil {
		parts = append(parts, fmt.Sprintf("frame=%d", *p.Frame))
	}
	if p.FPS != nil {
		parts = append(parts, fmt.Sprintf("fps=%.1f", *p.FPS))
	}
	if p.Speed != nil {
		parts = append(parts, fmt.Sprintf("speed=%.2fx", *p.Speed))
	}
	if len(parts) == 0 {
		return "ffmpeg running"
	}
	return strings.Join(parts, " ")
}

func (n *Notifier) send(states ...string) {
	if n.failed {
		return
	}
	if _, err := daemon.SdNotify(false, strings.Join(states, "\n")); err != nil {
		n.failed = true
		n.logger.Warn("sd_notify failed, disabling status updates", "error", err)
	}
}
