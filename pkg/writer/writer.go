// Package writer commits mutated reaction records with bounded retry.
// Retries are driven by an explicit policy, not by exception-style
// control flow; on exhaustion callers get a structured failure instead
// of a raw transport error.
package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"reactdb/pkg/logger"
	"reactdb/pkg/models"
	"reactdb/pkg/telemetry"
)

// ErrStoreUnavailable wraps a persistence failure that survived every
// retry attempt.
var ErrStoreUnavailable = errors.New("writer: store unavailable")

// Store is the persistence surface the writer needs. The pebble store
// satisfies it; tests inject flaky fakes.
type Store interface {
	SaveRecord(rec models.ReactionRecord) error
}

// StoreFunc adapts a plain function to the Store interface.
type StoreFunc func(rec models.ReactionRecord) error

func (f StoreFunc) SaveRecord(rec models.ReactionRecord) error { return f(rec) }

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy retries up to three attempts with a short exponential
// backoff between them.
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     500 * time.Millisecond,
}

type Writer struct {
	store  Store
	policy Policy
}

// New returns a Writer committing through store under the given
// policy. Zero policy fields fall back to DefaultPolicy values.
func New(store Store, policy Policy) *Writer {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultPolicy.InitialInterval
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = DefaultPolicy.MaxInterval
	}
	return &Writer{store: store, policy: policy}
}

// Commit replaces the whole document for rec's message key, retrying
// transient failures per the policy. The retry loop holds no locks;
// each attempt simply re-issues the same replace.
func (w *Writer) Commit(ctx context.Context, rec models.ReactionRecord) error {
	// a record that cannot marshal will never succeed; fail without
	// retrying
	if _, err := json.Marshal(rec); err != nil {
		return fmt.Errorf("record %s does not marshal: %w", rec.MessageKey, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.policy.InitialInterval
	bo.MaxInterval = w.policy.MaxInterval

	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		if err := w.store.SaveRecord(rec); err != nil {
			if attempt < w.policy.MaxAttempts {
				telemetry.StoreRetries.Inc()
				logger.Warn("record_commit_retry", "message_key", rec.MessageKey, "attempt", attempt, "error", err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(w.policy.MaxAttempts)),
	)
	if err != nil {
		logger.Error("record_commit_failed", "message_key", rec.MessageKey, "attempts", attempt, "error", err)
		return fmt.Errorf("%w: %d attempts: %v", ErrStoreUnavailable, attempt, err)
	}
	return nil
}
