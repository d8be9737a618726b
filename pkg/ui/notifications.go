package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"igfollowers/pkg/collector"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, appleScriptSafe(message), appleScriptSafe(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleScriptSafe(s string) string {
	return strings.NewReplacer(`\`, "", `"`, "'").Replace(s)
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName("text")
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("igfollowers").Show($toast)
	`, strings.ReplaceAll(title, "'", "''"), strings.ReplaceAll(message, "'", "''"))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier prints a line when a run ends and, when enabled, raises a desktop notification.
// It implements collector.Observer.
type Notifier struct {
	sender NotificationSender
	out    io.Writer
}

// NewNotifier creates a Notifier. desktop selects the sender for the current platform.
func NewNotifier(desktop bool) *Notifier {
	n := &Notifier{out: os.Stdout}
	if !desktop {
		return n
	}

	switch runtime.GOOS {
	case "linux":
		n.sender = &LinuxNotificationSender{}
	case "darwin":
		n.sender = &MacOSNotificationSender{}
	case "windows":
		n.sender = &WindowsNotificationSender{}
	}
	return n
}

// NewNotifierWithSender is used by tests and by callers with their own sender
func NewNotifierWithSender(sender NotificationSender, out io.Writer) *Notifier {
	return &Notifier{sender: sender, out: out}
}

func (n *Notifier) OnProgress(collector.Progress) {}

func (n *Notifier) OnBackoff(collector.Backoff) {}

// OnFinish announces the outcome of the run
func (n *Notifier) OnFinish(res *collector.Result) {
	title, message := RunMessage(res)
	color := StateColor(res.State)
	fmt.Fprintf(n.out, "\n%s: %s\n", color(title), Yellow(message))

	if n.sender != nil {
		// notifications are best effort
		_ = n.sender.Send(title, message)
	}
}

// RunMessage builds the notification title and body for a finished run
func RunMessage(res *collector.Result) (string, string) {
	var title string
	switch res.State {
	case collector.StateDone:
		title = "Followers collected"
	case collector.StateLimitReached:
		title = "Follower limit reached"
	case collector.StateIdleTimeout:
		title = "Collection went idle"
	case collector.StateAborted:
		title = "Collection aborted"
	default:
		title = "Collection finished"
	}

	message := fmt.Sprintf("%d followers of %s in %d pages", len(res.Records), res.UserID, res.Pages)
	if res.Mode == collector.ModePassive {
		message = fmt.Sprintf("%d followers of %s from %d events", len(res.Records), res.UserID, res.Events)
	}
	if res.Reason != "" && res.State != collector.StateDone {
		message += " (" + res.Reason + ")"
	}
	return title, message
}
