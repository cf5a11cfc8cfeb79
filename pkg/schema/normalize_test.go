package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"reactdb/pkg/models"
)

func pairsOf(rec models.ReactionRecord) map[[2]string]bool {
	out := map[[2]string]bool{}
	for kind, users := range rec.UserReactions {
		for _, u := range users {
			out[[2]string{u, kind}] = true
		}
	}
	return out
}

func TestDetectShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Shape
	}{
		{"canonical", `{"message_key":"m1","user_reactions":{"like":["u1"]},"schema_version":2}`, ShapeCanonical},
		{"flat_wrapped", `{"user_reactions":{"111":"love"}}`, ShapeFlatMap},
		{"flat_bare", `{"111":"love","222":"like"}`, ShapeFlatMap},
		{"array", `[{"type":"fire","user_id":"u1"},{"type":"like","user_id":"u2"}]`, ShapeArrayOfPairs},
		{"nested", `{"love":{"111":true},"fire":{"222":true,"333":true}}`, ShapeNestedUserMap},
		{"nested_non_flag_values", `{"retry_policy":{"backoff":2,"max":5},"metadata":{"color":"red"}}`, ShapeUnknown},
		{"nested_mixed_values", `{"love":{"111":true,"extra":{"deep":1}}}`, ShapeUnknown},
		{"unknown", `{"count":3,"what":"ever"}`, ShapeUnknown},
		{"garbage", `not json at all`, ShapeUnknown},
		{"empty", ``, ShapeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect([]byte(tc.raw)); got != tc.want {
				t.Fatalf("Detect(%s) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}

// Legacy nested document from the oldest deployments, per the flat
// wrapped layout: {"user_reactions": {"111": "love"}}.
func TestNormalizeFlatWrapped(t *testing.T) {
	raw := []byte(`{"user_reactions":{"111":"love"}}`)
	rec, shape, err := Normalize(raw, "m1", 10)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if shape != ShapeFlatMap {
		t.Fatalf("shape = %s, want flat_map", shape)
	}
	if got := rec.UserReactions["love"]; len(got) != 1 || got[0] != "111" {
		t.Fatalf("love set = %v", got)
	}
	if rec.Reactions["love"] != 1 || rec.TotalCount != 1 {
		t.Fatalf("counts = %+v total=%d", rec.Reactions, rec.TotalCount)
	}
	if rec.SchemaVersion != models.SchemaVersionCanonical {
		t.Fatalf("schema_version = %d", rec.SchemaVersion)
	}
}

func TestNormalizeRoundTripsEachShape(t *testing.T) {
	want := map[[2]string]bool{
		{"u1", "like"}: true,
		{"u2", "like"}: true,
		{"u3", "fire"}: true,
	}
	cases := []struct {
		name string
		raw  string
	}{
		{"flat_bare", `{"u1":"like","u2":"like","u3":"fire"}`},
		{"array", `[{"type":"like","user_id":"u1"},{"type":"like","user_id":"u2"},{"type":"fire","user_id":"u3"}]`},
		{"nested", `{"like":{"u1":true,"u2":true},"fire":{"u3":true}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _, err := Normalize([]byte(tc.raw), "m1", 1)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			got := pairsOf(rec)
			if len(got) != len(want) {
				t.Fatalf("pairs = %v, want %v", got, want)
			}
			for p := range want {
				if !got[p] {
					t.Fatalf("missing pair %v in %v", p, got)
				}
			}
		})
	}
}

func TestNormalizeCollapsesDuplicates(t *testing.T) {
	raw := []byte(`[{"type":"fire","user_id":"u1"},{"type":"fire","user_id":"u1"},{"type":"fire","user_id":"u1"}]`)
	rec, _, err := Normalize(raw, "m1", 1)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Reactions["fire"] != 1 || rec.TotalCount != 1 {
		t.Fatalf("duplicates not collapsed: %+v total=%d", rec.Reactions, rec.TotalCount)
	}
}

// A legacy row listing one user under two types keeps exactly one
// membership; for the nested shape the lexicographically first type
// wins so repeated runs agree.
func TestNormalizeEnforcesExclusivity(t *testing.T) {
	raw := []byte(`{"love":{"u1":true},"fire":{"u1":true}}`)
	rec, _, err := Normalize(raw, "m1", 1)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.TotalCount != 1 {
		t.Fatalf("total = %d, want 1: %+v", rec.TotalCount, rec.UserReactions)
	}
	if got := rec.UserReaction("u1"); got != "fire" {
		t.Fatalf("u1 holds %q, want fire", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := []byte(`{"like":{"u1":true,"u2":true},"fire":{"u3":true}}`)
	once, _, err := Normalize(raw, "m1", 5)
	if err != nil {
		t.Fatalf("first Normalize: %v", err)
	}
	b, _ := json.Marshal(once)
	twice, shape, err := Normalize(b, "m1", 99)
	if err != nil {
		t.Fatalf("second Normalize: %v", err)
	}
	if shape != ShapeCanonical {
		t.Fatalf("second pass shape = %s, want canonical", shape)
	}
	b2, _ := json.Marshal(twice)
	if string(b) != string(b2) {
		t.Fatalf("normalize not idempotent:\n first=%s\nsecond=%s", b, b2)
	}
}

func TestNormalizeUnknownDegradesToEmpty(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"flat_unknown", `{"count":3}`},
		// object-of-objects whose inner values are not membership
		// flags; its keys must not become phantom users
		{"config_blob", `{"retry_policy":{"backoff":2,"max":5},"metadata":{"color":"red"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, shape, err := Normalize([]byte(tc.raw), "m1", 7)
			if !errors.Is(err, ErrUnknownShape) {
				t.Fatalf("expected ErrUnknownShape, got %v", err)
			}
			if shape != ShapeUnknown {
				t.Fatalf("shape = %s", shape)
			}
			if rec.MessageKey != "m1" || rec.TotalCount != 0 || len(rec.UserReactions) != 0 {
				t.Fatalf("expected empty canonical record, got %+v", rec)
			}
			if rec.SchemaVersion != models.SchemaVersionCanonical {
				t.Fatalf("schema_version = %d", rec.SchemaVersion)
			}
		})
	}
}

// false membership flags count as the nested shape but contribute no
// membership.
func TestNormalizeNestedSkipsFalseFlags(t *testing.T) {
	rec, shape, err := Normalize([]byte(`{"love":{"u1":true,"u2":false}}`), "m1", 1)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if shape != ShapeNestedUserMap {
		t.Fatalf("shape = %s", shape)
	}
	if rec.TotalCount != 1 || rec.UserReaction("u1") != "love" || rec.UserReaction("u2") != "" {
		t.Fatalf("false flag treated as membership: %+v", rec.UserReactions)
	}
}
