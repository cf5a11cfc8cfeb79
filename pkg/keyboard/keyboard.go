// Package keyboard turns an aggregate record into the button layout
// and acknowledgement strings returned to the chat transport.
package keyboard

import (
	"fmt"

	"reactdb/pkg/config"
	"reactdb/pkg/models"
)

// CallbackPrefix starts every reaction callback token.
const CallbackPrefix = "react"

// DefaultAckMaxLen bounds acknowledgement strings; chat transports cap
// callback-answer text around this size.
const DefaultAckMaxLen = 200

// Button is one tappable affordance: a label pairing the glyph with
// the current count, and a callback token encoding (type, message key).
type Button struct {
	Text     string `json:"text"`
	Callback string `json:"callback"`
}

// Keyboard is rendered as rows of buttons.
type Keyboard struct {
	Rows [][]Button `json:"rows"`
}

// Renderer renders keyboards for a fixed reaction set.
type Renderer struct {
	types     []config.ReactionType
	perRow    int
	ackMaxLen int
}

// NewRenderer returns a renderer for the given reaction set. Zero
// ackMaxLen means DefaultAckMaxLen.
func NewRenderer(types []config.ReactionType, ackMaxLen int) *Renderer {
	if len(types) == 0 {
		types = config.DefaultReactionTypes
	}
	if ackMaxLen <= 0 {
		ackMaxLen = DefaultAckMaxLen
	}
	return &Renderer{types: types, perRow: 5, ackMaxLen: ackMaxLen}
}

// Token builds the callback token for a reaction type on a message.
func Token(kind, messageKey string) string {
	return fmt.Sprintf("%s:%s:%s", CallbackPrefix, kind, messageKey)
}

// Render returns the keyboard for the record's current counts. Every
// configured type gets a button even at count zero so the layout is
// stable across updates.
func (r *Renderer) Render(rec models.ReactionRecord) Keyboard {
	var kb Keyboard
	row := make([]Button, 0, r.perRow)
	for _, t := range r.types {
		count := rec.Reactions[t.Name]
		text := t.Glyph
		if count > 0 {
			text = fmt.Sprintf("%s %d", t.Glyph, count)
		}
		row = append(row, Button{Text: text, Callback: Token(t.Name, rec.MessageKey)})
		if len(row) == r.perRow {
			kb.Rows = append(kb.Rows, row)
			row = make([]Button, 0, r.perRow)
		}
	}
	if len(row) > 0 {
		kb.Rows = append(kb.Rows, row)
	}
	return kb
}

// Glyph returns the configured glyph for a type name, or the name
// itself when unknown.
func (r *Renderer) Glyph(kind string) string {
	for _, t := range r.types {
		if t.Name == kind {
			return t.Glyph
		}
	}
	return kind
}

// Known reports whether kind is part of the configured reaction set.
func (r *Renderer) Known(kind string) bool {
	for _, t := range r.types {
		if t.Name == kind {
			return true
		}
	}
	return false
}

// Ack builds the bounded acknowledgement string for an applied action.
// The transport's interaction has a bounded lifetime, so some ack is
// produced for every action including ActionNone.
func (r *Renderer) Ack(action models.Action, kind string) string {
	var s string
	switch action {
	case models.ActionAdded:
		s = fmt.Sprintf("Added %s %s", r.Glyph(kind), kind)
	case models.ActionRemoved:
		s = fmt.Sprintf("Removed %s %s", r.Glyph(kind), kind)
	case models.ActionChanged:
		s = fmt.Sprintf("Changed to %s %s", r.Glyph(kind), kind)
	default:
		s = "Could not record your reaction, please try again"
	}
	return r.truncate(s)
}

func (r *Renderer) truncate(s string) string {
	if len(s) <= r.ackMaxLen {
		return s
	}
	runes := []rune(s)
	for len(string(runes)) > r.ackMaxLen && len(runes) > 0 {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
