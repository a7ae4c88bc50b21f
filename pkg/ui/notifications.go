package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=xhstoolbox", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleQuote(message), appleQuote(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Notifier prints a message and mirrors it to the desktop when enabled
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform. With desktop false,
// or on platforms without a sender, messages are only printed.
func NewNotifier(desktop bool) *Notifier {
	if !desktop {
		return &Notifier{}
	}
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: &LinuxNotificationSender{}}
	case "darwin":
		return &Notifier{sender: &MacOSNotificationSender{}}
	}
	return &Notifier{}
}

// NewNotifierWithSender uses the given sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// best effort
		_ = n.sender.Send(title, message)
	}
}

// SendNotification prints and sends a neutral notification
func (n *Notifier) SendNotification(title, message string) {
	Printf("%s: %s\n", Cyan(title), Yellow(message))
	n.send(title, message)
}

// SendError prints and sends a failure notification
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(writer(true), "%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess prints and sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	Printf("%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}
