package models

import "sort"

// SchemaVersionCanonical tags records that have passed through the
// normalizer. Anything below it is a legacy shape.
const SchemaVersionCanonical = 2

// ReactionRecord is the canonical aggregate document, one per message key.
type ReactionRecord struct {
	MessageKey string `json:"message_key"`
	// Reactions is a map of reaction type -> count. Counts are always
	// recomputed from UserReactions, never adjusted in place.
	Reactions map[string]int `json:"reactions"`
	// UserReactions is a map of reaction type -> sorted user ids.
	UserReactions map[string][]string `json:"user_reactions"`
	TotalCount    int                 `json:"total_count"`
	SchemaVersion int                 `json:"schema_version"`
	// Timestamps in ns since epoch (UTC).
	CreatedTS   int64 `json:"created_ts"`
	LastUpdated int64 `json:"last_updated"`
}

// NewReactionRecord returns an empty canonical record for a message key.
func NewReactionRecord(messageKey string, ts int64) ReactionRecord {
	return ReactionRecord{
		MessageKey:    messageKey,
		Reactions:     map[string]int{},
		UserReactions: map[string][]string{},
		SchemaVersion: SchemaVersionCanonical,
		CreatedTS:     ts,
		LastUpdated:   ts,
	}
}

// UserReaction returns the reaction type currently held by the user on
// this record, or "" when the user holds none.
func (r ReactionRecord) UserReaction(userID string) string {
	for kind, users := range r.UserReactions {
		for _, u := range users {
			if u == userID {
				return kind
			}
		}
	}
	return ""
}

// Recount rebuilds Reactions and TotalCount from the user sets and
// sorts each set so the document marshals deterministically. Empty
// sets are dropped.
func (r *ReactionRecord) Recount() {
	counts := make(map[string]int, len(r.UserReactions))
	total := 0
	for kind, users := range r.UserReactions {
		if len(users) == 0 {
			delete(r.UserReactions, kind)
			continue
		}
		sort.Strings(users)
		counts[kind] = len(users)
		total += len(users)
	}
	r.Reactions = counts
	r.TotalCount = total
}
