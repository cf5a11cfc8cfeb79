// Package react holds the pure reaction state transition. It has no
// side effects and no dependencies beyond the models so it can be
// tested in isolation.
package react

import "reactdb/pkg/models"

// Apply computes the next canonical record after userID requests kind.
//
//   - no current reaction        -> add to kind (Added)
//   - current reaction == kind   -> remove it (Removed, toggle-off)
//   - current reaction != kind   -> move membership to kind (Changed)
//
// Counts and total are recomputed from the user sets, which self-heals
// any prior count corruption instead of compounding it. The input
// record is not modified.
func Apply(rec models.ReactionRecord, userID, kind string, ts int64) (models.ReactionRecord, models.Action) {
	next := clone(rec)

	current := next.UserReaction(userID)
	var action models.Action
	switch {
	case current == "":
		next.UserReactions[kind] = append(next.UserReactions[kind], userID)
		action = models.ActionAdded
	case current == kind:
		next.UserReactions[kind] = remove(next.UserReactions[kind], userID)
		action = models.ActionRemoved
	default:
		next.UserReactions[current] = remove(next.UserReactions[current], userID)
		next.UserReactions[kind] = append(next.UserReactions[kind], userID)
		action = models.ActionChanged
	}

	next.Recount()
	next.LastUpdated = ts
	if next.CreatedTS == 0 {
		next.CreatedTS = ts
	}
	return next, action
}

func clone(rec models.ReactionRecord) models.ReactionRecord {
	out := rec
	out.Reactions = make(map[string]int, len(rec.Reactions))
	for k, v := range rec.Reactions {
		out.Reactions[k] = v
	}
	out.UserReactions = make(map[string][]string, len(rec.UserReactions))
	for k, v := range rec.UserReactions {
		out.UserReactions[k] = append([]string(nil), v...)
	}
	return out
}

func remove(users []string, userID string) []string {
	out := users[:0]
	for _, u := range users {
		if u != userID {
			out = append(out, u)
		}
	}
	return out
}
