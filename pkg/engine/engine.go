// Package engine wires the reaction flow: dedup guard, load plus
// normalize, pure mutation, retried persistence, ack and keyboard
// rendering. No failure here is fatal to the host process and every
// path yields an acknowledgement for the pending interaction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reactdb/pkg/dedup"
	"reactdb/pkg/keyboard"
	"reactdb/pkg/logger"
	"reactdb/pkg/models"
	"reactdb/pkg/react"
	"reactdb/pkg/schema"
	"reactdb/pkg/store"
	"reactdb/pkg/telemetry"
	"reactdb/pkg/validation"
)

// Storage is the read side plus the audit-event append the engine
// needs. The pebble store satisfies it; tests inject fakes.
type Storage interface {
	GetRecordRaw(messageKey string) ([]byte, error)
	AppendEvent(ev models.LegacyEvent) (string, error)
}

// ErrNotFound must be returned by Storage when no record exists yet.
var ErrNotFound = store.ErrNotFound

// storeStorage adapts the package-level pebble store functions.
type storeStorage struct{}

func (storeStorage) GetRecordRaw(messageKey string) ([]byte, error) {
	return store.GetRecordRaw(messageKey)
}

func (storeStorage) AppendEvent(ev models.LegacyEvent) (string, error) {
	return store.AppendEvent(ev)
}

// PebbleStorage returns a Storage backed by the opened pebble store.
func PebbleStorage() Storage { return storeStorage{} }

// Committer is the writer surface the engine depends on.
type Committer interface {
	Commit(ctx context.Context, rec models.ReactionRecord) error
}

// Result is what the transport needs to answer the interaction:
// always an ack, plus the refreshed keyboard when a record is known.
type Result struct {
	Ack        string                `json:"ack"`
	Action     models.Action         `json:"action"`
	MessageKey string                `json:"message_key,omitempty"`
	Record     models.ReactionRecord `json:"record,omitempty"`
	Keyboard   keyboard.Keyboard     `json:"keyboard,omitempty"`
	// Applied is true when a mutation was persisted.
	Applied bool `json:"applied"`
}

type Engine struct {
	guard    *dedup.Guard
	storage  Storage
	writer   Committer
	renderer *keyboard.Renderer

	now func() time.Time
}

// New builds an engine. All collaborators are injected so tests can
// substitute fakes; none are package-level singletons.
func New(guard *dedup.Guard, storage Storage, w Committer, renderer *keyboard.Renderer) *Engine {
	return &Engine{guard: guard, storage: storage, writer: w, renderer: renderer, now: time.Now}
}

// ParseToken splits a callback token of the form
// react:<type>[:<message_key>]. The message key part is optional; the
// caller derives it from the chat envelope when absent.
func ParseToken(payload string) (kind, messageKey string, err error) {
	parts := strings.SplitN(strings.TrimSpace(payload), ":", 3)
	if len(parts) < 2 || parts[0] != keyboard.CallbackPrefix || parts[1] == "" {
		return "", "", fmt.Errorf("%w: bad token %q", validation.ErrMalformed, payload)
	}
	kind = parts[1]
	if len(parts) == 3 {
		messageKey = parts[2]
	}
	return kind, messageKey, nil
}

// DeriveMessageKey resolves the aggregate key for an interaction whose
// token carries none, from the surrounding chat identifiers. The
// derivation is deterministic so every surface lands on the same
// aggregate.
func DeriveMessageKey(ev models.Interaction) string {
	if ev.ChannelID == "" || ev.ChatMessageID == "" {
		return ""
	}
	return ev.ChannelID + ":" + ev.ChatMessageID
}

// HandleInteraction runs the full flow for one inbound button press.
// The returned Result always carries an ack; err is diagnostic and
// must not suppress answering the transport.
func (e *Engine) HandleInteraction(ctx context.Context, ev models.Interaction) (Result, error) {
	started := e.now()
	defer func() {
		telemetry.InteractionDuration.Observe(e.now().Sub(started).Seconds())
	}()

	failure := Result{Ack: e.renderer.Ack(models.ActionNone, ""), Action: models.ActionNone}

	if err := validation.ValidateInteraction(ev); err != nil {
		telemetry.InteractionsDropped.WithLabelValues("malformed").Inc()
		logger.Warn("interaction_malformed", "actor", ev.ActorID, "error", err)
		return failure, err
	}

	kind, messageKey, err := ParseToken(ev.RawPayload)
	if err != nil {
		telemetry.InteractionsDropped.WithLabelValues("malformed").Inc()
		logger.Warn("interaction_bad_token", "actor", ev.ActorID, "payload", ev.RawPayload, "error", err)
		return failure, err
	}
	if messageKey == "" {
		messageKey = DeriveMessageKey(ev)
	}
	if messageKey == "" {
		telemetry.InteractionsDropped.WithLabelValues("malformed").Inc()
		logger.Warn("interaction_no_message_key", "actor", ev.ActorID, "payload", ev.RawPayload)
		return failure, fmt.Errorf("%w: no message key", validation.ErrMalformed)
	}
	if err := validation.ValidateReactionType(kind); err != nil {
		telemetry.InteractionsDropped.WithLabelValues("malformed").Inc()
		logger.Warn("interaction_unknown_type", "actor", ev.ActorID, "type", kind)
		return failure, err
	}

	// One marker per physical press: actor plus token plus target.
	signature := ev.RawPayload + "\x00" + messageKey
	if !e.guard.Begin(ev.ActorID, signature) {
		telemetry.InteractionsDropped.WithLabelValues("duplicate").Inc()
		logger.Debug("interaction_duplicate", "actor", ev.ActorID, "message_key", messageKey)
		return Result{
			Ack:        "Still processing your last tap",
			Action:     models.ActionNone,
			MessageKey: messageKey,
		}, nil
	}

	now := e.now().UTC().UnixNano()
	rec, shape, err := e.loadRecord(messageKey, now)
	if err != nil {
		// read-side transient failure; free the marker so a re-click
		// is not blocked
		e.guard.Clear(ev.ActorID, signature)
		telemetry.InteractionsDropped.WithLabelValues("store_failure").Inc()
		logger.Error("record_load_failed", "message_key", messageKey, "error", err)
		return failure, err
	}
	if shape != schema.ShapeCanonical && shape != schema.ShapeUnknown {
		logger.Info("record_normalized", "message_key", messageKey, "shape", shape.String())
	}

	next, action := react.Apply(rec, ev.ActorID, kind, now)

	if err := e.writer.Commit(ctx, next); err != nil {
		e.guard.Clear(ev.ActorID, signature)
		telemetry.InteractionsDropped.WithLabelValues("store_failure").Inc()
		return failure, err
	}

	// audit row into the legacy event store; best-effort, the
	// reconciler collapses duplicates later
	if action == models.ActionAdded || action == models.ActionChanged {
		if _, err := e.storage.AppendEvent(models.LegacyEvent{
			MessageKey:   messageKey,
			UserID:       ev.ActorID,
			ReactionType: kind,
			TS:           now,
		}); err != nil {
			logger.Warn("event_append_failed", "message_key", messageKey, "error", err)
		}
	}

	telemetry.ReactionsApplied.WithLabelValues(string(action)).Inc()
	logger.Info("reaction_applied", "message_key", messageKey, "actor", ev.ActorID, "type", kind, "action", string(action), "total", next.TotalCount)

	return Result{
		Ack:        e.renderer.Ack(action, kind),
		Action:     action,
		MessageKey: messageKey,
		Record:     next,
		Keyboard:   e.renderer.Render(next),
		Applied:    true,
	}, nil
}

// loadRecord reads and normalizes the stored document for messageKey.
// A missing record initializes lazily; an unknown shape degrades to an
// empty canonical record so historical corruption never blocks a live
// action.
func (e *Engine) loadRecord(messageKey string, now int64) (models.ReactionRecord, schema.Shape, error) {
	raw, err := e.storage.GetRecordRaw(messageKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewReactionRecord(messageKey, now), schema.ShapeCanonical, nil
		}
		return models.ReactionRecord{}, schema.ShapeUnknown, err
	}
	rec, shape, nerr := schema.Normalize(raw, messageKey, now)
	if nerr != nil {
		logger.Warn("record_shape_unknown", "message_key", messageKey)
	}
	return rec, shape, nil
}

// Load returns the current canonical record and keyboard for a message
// key without mutating anything. Used by the read endpoints.
func (e *Engine) Load(messageKey string) (models.ReactionRecord, keyboard.Keyboard, error) {
	now := e.now().UTC().UnixNano()
	rec, _, err := e.loadRecord(messageKey, now)
	if err != nil {
		return models.ReactionRecord{}, keyboard.Keyboard{}, err
	}
	return rec, e.renderer.Render(rec), nil
}
