package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/chatbridge/chatbridge/internal/fault"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records scripts and fails according to the per-call plan.
type fakeRunner struct {
	scripts []string
	errs    []error
}

func (f *fakeRunner) run(_ context.Context, script string) error {
	i := len(f.scripts)
	f.scripts = append(f.scripts, script)
	if i < len(f.errs) {
		return f.errs[i]
	}
	return nil
}

func newTestTransport(errs ...error) (*OSAScript, *fakeRunner) {
	f := &fakeRunner{errs: errs}
	return &OSAScript{run: f.run, logger: testLogger()}, f
}

func TestSendPrimarySucceeds(t *testing.T) {
	tr, f := newTestTransport(nil)

	ch, err := tr.Send(context.Background(), "+11234567890", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if ch != ChannelIMessage {
		t.Fatalf("channel = %q", ch)
	}
	if len(f.scripts) != 1 {
		t.Fatalf("%d attempts, want 1", len(f.scripts))
	}
	if !strings.Contains(f.scripts[0], "iMessage") {
		t.Fatal("first attempt did not target iMessage")
	}
}

func TestSendFallsBackToSMS(t *testing.T) {
	tr, f := newTestTransport(errors.New("no imessage account"), nil)

	ch, err := tr.Send(context.Background(), "+11234567890", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if ch != ChannelSMS {
		t.Fatalf("channel = %q", ch)
	}
	if len(f.scripts) != 2 {
		t.Fatalf("%d attempts, want 2", len(f.scripts))
	}
	if !strings.Contains(f.scripts[1], "SMS") {
		t.Fatal("second attempt did not target SMS")
	}
}

func TestSendBothChannelsFail(t *testing.T) {
	tr, f := newTestTransport(errors.New("imessage down"), errors.New("sms down"))

	_, err := tr.Send(context.Background(), "+11234567890", "hello")
	if !errors.Is(err, fault.ErrTransportFailure) {
		t.Fatalf("err = %v, want ErrTransportFailure", err)
	}
	// Exactly one fallback; never a third attempt.
	if len(f.scripts) != 2 {
		t.Fatalf("%d attempts, want 2", len(f.scripts))
	}
	for _, cause := range []string{"imessage down", "sms down"} {
		if !strings.Contains(err.Error(), cause) {
			t.Errorf("error %q does not mention %q", err, cause)
		}
	}
}

func TestSendEscapesBody(t *testing.T) {
	tr, f := newTestTransport(nil)

	body := `she said "hi" and left a \ behind`
	if _, err := tr.Send(context.Background(), "+11234567890", body); err != nil {
		t.Fatal(err)
	}
	script := f.scripts[0]
	if !strings.Contains(script, `\"hi\"`) {
		t.Errorf("quotes not escaped in script:\n%s", script)
	}
	if !strings.Contains(script, `\\`) {
		t.Errorf("backslash not escaped in script:\n%s", script)
	}
}
