// Package transport delivers outgoing messages through Messages.app.
// Delivery tries the iMessage service first and falls back to SMS exactly
// once; there is never a third attempt.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/chatbridge/chatbridge/internal/fault"
)

// Channel identifies which delivery channel carried a message.
type Channel string

const (
	ChannelIMessage Channel = "imessage"
	ChannelSMS      Channel = "sms"
)

// Transport sends one message and reports the channel that delivered it.
type Transport interface {
	Send(ctx context.Context, recipient, body string) (Channel, error)
}

// runFunc executes an AppleScript source. Split out so tests can fake the
// osascript binary.
type runFunc func(ctx context.Context, script string) error

// OSAScript implements Transport by driving Messages.app with osascript.
type OSAScript struct {
	run    runFunc
	logger *slog.Logger
}

// NewOSAScript creates the production transport.
func NewOSAScript() *OSAScript {
	return &OSAScript{run: runOSAScript, logger: slog.Default()}
}

// WithLogger sets the logger for delivery attempts.
func (t *OSAScript) WithLogger(logger *slog.Logger) *OSAScript {
	t.logger = logger
	return t
}

func runOSAScript(ctx context.Context, script string) error {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return err
		}
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

// escapeAppleScript escapes a value for an AppleScript double-quoted
// string literal. Recipient and body are untrusted.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func sendScript(service, recipient, body string) string {
	return fmt.Sprintf(`tell application "Messages"
	set targetService to 1st account whose service type = %s
	set targetBuddy to participant "%s" of targetService
	send "%s" to targetBuddy
end tell`, service, escapeAppleScript(recipient), escapeAppleScript(body))
}

// Send attempts iMessage, then SMS on failure. Both failing yields
// fault.ErrTransportFailure carrying both causes.
func (t *OSAScript) Send(ctx context.Context, recipient, body string) (Channel, error) {
	primaryErr := t.run(ctx, sendScript("iMessage", recipient, body))
	if primaryErr == nil {
		t.logger.Debug("delivered", "channel", ChannelIMessage, "recipient", recipient)
		return ChannelIMessage, nil
	}
	t.logger.Debug("imessage delivery failed, trying sms", "recipient", recipient, "error", primaryErr)

	secondaryErr := t.run(ctx, sendScript("SMS", recipient, body))
	if secondaryErr == nil {
		t.logger.Debug("delivered", "channel", ChannelSMS, "recipient", recipient)
		return ChannelSMS, nil
	}

	return "", fmt.Errorf("%w: imessage: %v; sms: %v", fault.ErrTransportFailure, primaryErr, secondaryErr)
}
