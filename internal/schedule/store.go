// Package schedule persists deferred deliveries and fires them when due.
//
// The log is a single JSON file rewritten whole on every mutation; the file
// is the sole source of truth and no in-memory state survives a restart.
// All mutating operations run under one mutex, so concurrent callers within
// the process cannot interleave read-modify-write cycles.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatbridge/chatbridge/internal/contacts"
	"github.com/chatbridge/chatbridge/internal/fault"
	"github.com/chatbridge/chatbridge/internal/transport"
)

// Status is a delivery's position in its state machine. pending is the only
// non-terminal state; there is no transition out of a terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Delivery is one deferred send request.
type Delivery struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Body        string    `json:"body"`
	ScheduledAt time.Time `json:"scheduled_time"`
	CreatedAt   time.Time `json:"created"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// Store owns the persisted delivery log.
type Store struct {
	path      string
	transport transport.Transport
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
}

// NewStore creates a Store over the log file at path. The file need not
// exist; the first schedule call creates it.
func NewStore(path string, tr transport.Transport) *Store {
	return &Store{
		path:      path,
		transport: tr,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// WithLogger sets the logger for sweep activity.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	s.logger = logger
	return s
}

// load reads the full log. An absent file is an empty log; malformed
// content is treated as empty rather than crashing, and the next mutating
// write recreates a valid file.
func (s *Store) load() []Delivery {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cannot read schedule log, treating as empty", "path", s.path, "error", err)
		}
		return nil
	}
	var entries []Delivery
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("schedule log malformed, treating as empty", "path", s.path, "error", err)
		return nil
	}
	return entries
}

// persist rewrites the whole log as one unit.
func (s *Store) persist(entries []Delivery) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal schedule log: %v", fault.ErrPersistence, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write schedule log: %v", fault.ErrPersistence, err)
	}
	return nil
}

// Schedule validates and appends a new pending delivery. The recipient must
// be a valid phone or email and the time strictly in the future.
func (s *Store) Schedule(recipient, body string, when time.Time) (*Delivery, error) {
	if err := contacts.ValidRecipient(recipient); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, fault.Invalid("body", "must not be empty")
	}

	created := s.now()
	if !when.After(created) {
		return nil, fault.Invalid("scheduled_time", "must be in the future")
	}

	d := Delivery{
		// Time-based prefix plus random suffix; collisions are negligible
		// but not formally impossible.
		ID:          fmt.Sprintf("sched-%d-%s", created.UnixMilli(), uuid.NewString()[:8]),
		Recipient:   contacts.Normalize(recipient),
		Body:        body,
		ScheduledAt: when.UTC(),
		CreatedAt:   created.UTC(),
		Status:      StatusPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append(s.load(), d)
	if err := s.persist(entries); err != nil {
		return nil, err
	}
	return &d, nil
}

// Cancel transitions a pending delivery to cancelled.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		if entries[i].Status != StatusPending {
			return fmt.Errorf("delivery %s is %s: %w", id, entries[i].Status, fault.ErrInvalidState)
		}
		entries[i].Status = StatusCancelled
		return s.persist(entries)
	}
	return fmt.Errorf("delivery %s: %w", id, fault.ErrNotFound)
}

// List returns all entries, any state, in storage order.
func (s *Store) List() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// SweepDue fires every pending delivery whose time is at or before now and
// records the terminal state. The log is persisted once at the end of the
// sweep, not per entry: a crash mid-sweep can re-deliver entries whose
// transport call succeeded but whose state was not yet durable. That
// at-least-once behavior is accepted; deployments wanting stronger
// guarantees must serialize sweeps and tolerate duplicates downstream.
// Returns the number of entries attempted.
func (s *Store) SweepDue(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	attempted := 0
	for i := range entries {
		if entries[i].Status != StatusPending || entries[i].ScheduledAt.After(now) {
			continue
		}
		attempted++

		channel, err := s.transport.Send(ctx, entries[i].Recipient, entries[i].Body)
		if err != nil {
			entries[i].Status = StatusFailed
			entries[i].Error = err.Error()
			s.logger.Warn("scheduled delivery failed",
				"id", entries[i].ID,
				"recipient", entries[i].Recipient,
				"error", err)
			continue
		}
		entries[i].Status = StatusSent
		s.logger.Info("scheduled delivery sent",
			"id", entries[i].ID,
			"recipient", entries[i].Recipient,
			"channel", channel)
	}

	if attempted == 0 {
		return 0, nil
	}
	if err := s.persist(entries); err != nil {
		return attempted, err
	}
	return attempted, nil
}
