package models

// LegacyEvent is a flat historical row in the secondary event store.
// The engine appends one per applied mutation; the reconciler prunes
// duplicates, keeping the most recently timestamped row per
// (message_key, user_id, reaction_type) triple.
type LegacyEvent struct {
	MessageKey   string `json:"message_key"`
	UserID       string `json:"user_id"`
	ReactionType string `json:"reaction_type"`
	TS           int64  `json:"ts"`
}
