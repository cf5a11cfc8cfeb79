package validation

import (
	"errors"
	"fmt"
	"strings"

	"reactdb/pkg/models"
)

// Rules describe what inbound interactions must satisfy. Installed
// once at startup from the effective config.
type Rules struct {
	// AllowedTypes is the fixed reaction set; empty disables the check.
	AllowedTypes []string
	// MaxPayloadLen bounds RawPayload; zero means the default.
	MaxPayloadLen int
}

const defaultMaxPayloadLen = 256

var rules Rules

func SetRules(r Rules) { rules = r }

// ErrMalformed marks payloads that match no known action/type encoding.
var ErrMalformed = errors.New("validation: malformed interaction payload")

// ValidateInteraction checks the inbound envelope before any parsing
// work happens.
func ValidateInteraction(ev models.Interaction) error {
	if ev.ActorID == "" {
		return fmt.Errorf("%w: missing actor id", ErrMalformed)
	}
	if strings.TrimSpace(ev.RawPayload) == "" {
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	max := rules.MaxPayloadLen
	if max <= 0 {
		max = defaultMaxPayloadLen
	}
	if len(ev.RawPayload) > max {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrMalformed, max)
	}
	return nil
}

// ValidateReactionType checks a parsed reaction type against the
// allowed set.
func ValidateReactionType(kind string) error {
	if kind == "" {
		return fmt.Errorf("%w: empty reaction type", ErrMalformed)
	}
	if len(rules.AllowedTypes) == 0 {
		return nil
	}
	for _, t := range rules.AllowedTypes {
		if t == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown reaction type %q", ErrMalformed, kind)
}
