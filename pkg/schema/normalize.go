// Package schema classifies stored reaction documents against the set
// of known legacy shapes and converts them to the canonical form.
package schema

import (
	"encoding/json"
	"errors"
	"sort"

	"reactdb/pkg/models"
)

// Shape identifies which on-disk representation a raw document uses.
type Shape int

const (
	// ShapeCanonical is the current schema; normalizing it is a no-op.
	ShapeCanonical Shape = iota
	// ShapeFlatMap is the oldest layout: {"user_reactions": {"<user>": "<type>"}}.
	ShapeFlatMap
	// ShapeArrayOfPairs stores [{"type":"<type>","user_id":"<user>"}, ...].
	ShapeArrayOfPairs
	// ShapeNestedUserMap stores {"<type>": {"<user>": true, ...}, ...}.
	ShapeNestedUserMap
	// ShapeUnknown matches none of the above.
	ShapeUnknown
)

func (s Shape) String() string {
	switch s {
	case ShapeCanonical:
		return "canonical"
	case ShapeFlatMap:
		return "flat_map"
	case ShapeArrayOfPairs:
		return "array_of_pairs"
	case ShapeNestedUserMap:
		return "nested_user_map"
	default:
		return "unknown"
	}
}

// ErrUnknownShape is returned when a document matches no known shape.
// Callers degrade to an empty canonical record rather than failing the
// interaction.
var ErrUnknownShape = errors.New("schema: unknown reaction document shape")

type pair struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// canonicalDoc mirrors models.ReactionRecord for structural probing.
type canonicalDoc struct {
	MessageKey    string              `json:"message_key"`
	UserReactions map[string][]string `json:"user_reactions"`
	SchemaVersion int                 `json:"schema_version"`
	CreatedTS     int64               `json:"created_ts"`
}

// Detect classifies a raw stored document. Predicates are tested in a
// fixed priority order so classification is deterministic.
func Detect(raw []byte) Shape {
	if len(raw) == 0 {
		return ShapeUnknown
	}

	// canonical: schema_version tag at the current value
	var c canonicalDoc
	if err := json.Unmarshal(raw, &c); err == nil && c.SchemaVersion == models.SchemaVersionCanonical {
		return ShapeCanonical
	}

	// array of {type, user_id} pair records
	var arr []pair
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, p := range arr {
			if p.Type != "" && p.UserID != "" {
				return ShapeArrayOfPairs
			}
		}
		if len(arr) == 0 && raw[0] == '[' {
			return ShapeArrayOfPairs
		}
	}

	// flat map wrapped in a "user_reactions" object: user -> type
	var flat struct {
		UserReactions map[string]string `json:"user_reactions"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.UserReactions != nil {
		return ShapeFlatMap
	}

	// bare flat map: user -> type
	var bare map[string]string
	if err := json.Unmarshal(raw, &bare); err == nil && len(bare) > 0 {
		return ShapeFlatMap
	}

	// nested: type -> {user: bool membership flag}. Inner values must
	// all be booleans; an object-of-objects carrying anything else is
	// not a reaction document.
	var nested map[string]map[string]interface{}
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		flags := true
		for _, users := range nested {
			for _, v := range users {
				if _, ok := v.(bool); !ok {
					flags = false
					break
				}
			}
			if !flags {
				break
			}
		}
		if flags {
			return ShapeNestedUserMap
		}
	}

	return ShapeUnknown
}

// Normalize converts a raw stored document into the canonical record
// for messageKey. It is idempotent and lossless up to deduplication:
// every (user, type) pair present anywhere in the source appears
// exactly once in the result's user sets. Unknown shapes yield an
// empty canonical record together with ErrUnknownShape; the record is
// still usable.
func Normalize(raw []byte, messageKey string, ts int64) (models.ReactionRecord, Shape, error) {
	shape := Detect(raw)

	switch shape {
	case ShapeCanonical:
		var rec models.ReactionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return models.NewReactionRecord(messageKey, ts), ShapeUnknown, ErrUnknownShape
		}
		if rec.MessageKey == "" {
			rec.MessageKey = messageKey
		}
		if rec.UserReactions == nil {
			rec.UserReactions = map[string][]string{}
		}
		if rec.CreatedTS == 0 {
			rec.CreatedTS = ts
		}
		// counts are authoritative only when they agree with the sets
		rec.Recount()
		return rec, shape, nil

	case ShapeFlatMap:
		var flat struct {
			UserReactions map[string]string `json:"user_reactions"`
		}
		pairs := map[string]string{}
		if err := json.Unmarshal(raw, &flat); err == nil && flat.UserReactions != nil {
			pairs = flat.UserReactions
		} else {
			var bare map[string]string
			if err := json.Unmarshal(raw, &bare); err == nil {
				pairs = bare
			}
		}
		rec := models.NewReactionRecord(messageKey, ts)
		for user, kind := range pairs {
			if user == "" || kind == "" {
				continue
			}
			addMembership(&rec, kind, user)
		}
		rec.Recount()
		return rec, shape, nil

	case ShapeArrayOfPairs:
		var arr []pair
		if err := json.Unmarshal(raw, &arr); err != nil {
			return models.NewReactionRecord(messageKey, ts), ShapeUnknown, ErrUnknownShape
		}
		rec := models.NewReactionRecord(messageKey, ts)
		for _, p := range arr {
			if p.Type == "" || p.UserID == "" {
				continue
			}
			addMembership(&rec, p.Type, p.UserID)
		}
		rec.Recount()
		return rec, shape, nil

	case ShapeNestedUserMap:
		var nested map[string]map[string]bool
		if err := json.Unmarshal(raw, &nested); err != nil {
			return models.NewReactionRecord(messageKey, ts), ShapeUnknown, ErrUnknownShape
		}
		rec := models.NewReactionRecord(messageKey, ts)
		kinds := make([]string, 0, len(nested))
		for kind := range nested {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			users := make([]string, 0, len(nested[kind]))
			for user := range nested[kind] {
				users = append(users, user)
			}
			sort.Strings(users)
			for _, user := range users {
				if user == "" || kind == "" || !nested[kind][user] {
					continue
				}
				addMembership(&rec, kind, user)
			}
		}
		rec.Recount()
		return rec, shape, nil

	default:
		return models.NewReactionRecord(messageKey, ts), ShapeUnknown, ErrUnknownShape
	}
}

// addMembership inserts user into the set for kind, preserving
// exclusivity: a user already holding any type keeps it, so duplicate
// and conflicting legacy entries collapse to the first seen.
func addMembership(rec *models.ReactionRecord, kind, user string) {
	if rec.UserReaction(user) != "" {
		return
	}
	rec.UserReactions[kind] = append(rec.UserReactions[kind], user)
}
