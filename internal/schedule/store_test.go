package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chatbridge/chatbridge/internal/fault"
	"github.com/chatbridge/chatbridge/internal/transport"
)

type fakeTransport struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeTransport) Send(ctx context.Context, recipient, body string) (transport.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recipient)
	if err := f.fail[recipient]; err != nil {
		return "", err
	}
	return transport.ChannelIMessage, nil
}

func testStore(t *testing.T) (*Store, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{fail: map[string]error{}}
	s := NewStore(filepath.Join(t.TempDir(), "scheduled.json"), tr)
	s.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s, tr
}

func TestScheduleValidation(t *testing.T) {
	s, _ := testStore(t)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		recipient string
		body      string
		when      time.Time
	}{
		{"bad recipient", "12345", "hi", future},
		{"empty body", "+15551234567", "  ", future},
		{"past time", "+15551234567", "hi", time.Now().Add(-time.Minute)},
		{"zero time", "+15551234567", "hi", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Schedule(tt.recipient, tt.body, tt.when)
			if !errors.Is(err, fault.ErrValidation) {
				t.Fatalf("Schedule() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestScheduleAssignsIDAndNormalizes(t *testing.T) {
	s, _ := testStore(t)

	d, err := s.Schedule("5551234567", "see you then", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if !strings.HasPrefix(d.ID, "sched-") {
		t.Errorf("ID = %q, want sched- prefix", d.ID)
	}
	if d.Recipient != "+15551234567" {
		t.Errorf("Recipient = %q, want normalized +15551234567", d.Recipient)
	}
	if d.Status != StatusPending {
		t.Errorf("Status = %q, want pending", d.Status)
	}
}

func TestScheduleDurableAcrossRestart(t *testing.T) {
	tr := &fakeTransport{fail: map[string]error{}}
	path := filepath.Join(t.TempDir(), "scheduled.json")

	first := NewStore(path, tr)
	d, err := first.Schedule("user@example.com", "reminder", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	// A fresh store over the same path sees the entry.
	second := NewStore(path, tr)
	entries := second.List()
	if len(entries) != 1 || entries[0].ID != d.ID {
		t.Fatalf("List() after restart = %+v, want the scheduled entry", entries)
	}
}

func TestLoadToleratesMissingAndMalformedLog(t *testing.T) {
	s, _ := testStore(t)
	if got := s.List(); len(got) != 0 {
		t.Fatalf("List() on absent file = %+v, want empty", got)
	}

	if err := os.WriteFile(s.path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := s.List(); len(got) != 0 {
		t.Fatalf("List() on malformed file = %+v, want empty", got)
	}

	// The next write recreates a valid log.
	if _, err := s.Schedule("+15551234567", "hi", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule() after malformed log error = %v", err)
	}
	if got := s.List(); len(got) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(got))
	}
}

func TestCancel(t *testing.T) {
	s, _ := testStore(t)
	d, err := s.Schedule("+15551234567", "hi", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	if err := s.Cancel("sched-0-missing"); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("Cancel(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Cancel(d.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := s.List()[0].Status; got != StatusCancelled {
		t.Errorf("Status after cancel = %q, want cancelled", got)
	}

	// Terminal states cannot transition again.
	if err := s.Cancel(d.ID); !errors.Is(err, fault.ErrInvalidState) {
		t.Errorf("Cancel(cancelled) error = %v, want ErrInvalidState", err)
	}
}

func TestSweepDue(t *testing.T) {
	s, tr := testStore(t)
	ctx := context.Background()

	due, err := s.Schedule("+15551234567", "on time", time.Now().Add(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	failing, err := s.Schedule("+15559999999", "doomed", time.Now().Add(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	later, err := s.Schedule("+15550000000", "not yet", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	cancelled, err := s.Schedule("+15551111111", "never", time.Now().Add(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Cancel(cancelled.ID); err != nil {
		t.Fatal(err)
	}
	tr.fail["+15559999999"] = errors.New("no route")

	attempted, err := s.SweepDue(ctx, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("SweepDue() error = %v", err)
	}
	if attempted != 2 {
		t.Errorf("attempted = %d, want 2", attempted)
	}

	byID := map[string]Delivery{}
	for _, d := range s.List() {
		byID[d.ID] = d
	}
	if got := byID[due.ID].Status; got != StatusSent {
		t.Errorf("due entry = %q, want sent", got)
	}
	if got := byID[failing.ID]; got.Status != StatusFailed || got.Error != "no route" {
		t.Errorf("failing entry = %q/%q, want failed/no route", got.Status, got.Error)
	}
	if got := byID[later.ID].Status; got != StatusPending {
		t.Errorf("future entry = %q, want pending", got)
	}
	if got := byID[cancelled.ID].Status; got != StatusCancelled {
		t.Errorf("cancelled entry = %q, want cancelled", got)
	}

	// A second sweep attempts nothing: terminal entries are never retried.
	attempted, err = s.SweepDue(ctx, time.Now().Add(time.Second))
	if err != nil || attempted != 0 {
		t.Errorf("second SweepDue() = %d, %v, want 0, nil", attempted, err)
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.calls) != 2 {
		t.Errorf("transport calls = %d, want 2", len(tr.calls))
	}
}

func TestSweepDueEmptyLogNoWrite(t *testing.T) {
	s, _ := testStore(t)
	if attempted, err := s.SweepDue(context.Background(), time.Now()); err != nil || attempted != 0 {
		t.Fatalf("SweepDue() = %d, %v, want 0, nil", attempted, err)
	}
	if _, err := os.Stat(s.path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("sweep of empty log created %s", s.path)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("ValidateCronExpr(valid) = %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("ValidateCronExpr(invalid) = nil, want error")
	}
}

func TestSweeperTrigger(t *testing.T) {
	s, tr := testStore(t)
	if _, err := s.Schedule("+15551234567", "hi", time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	sw, err := NewSweeper(s, "* * * * *")
	if err != nil {
		t.Fatalf("NewSweeper() error = %v", err)
	}
	sw.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := sw.Trigger(); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	stopCtx := sw.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not drain")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.calls) != 1 {
		t.Errorf("transport calls = %d, want 1", len(tr.calls))
	}

	if err := sw.Trigger(); err == nil {
		t.Error("Trigger() after Stop() = nil, want error")
	}
}
