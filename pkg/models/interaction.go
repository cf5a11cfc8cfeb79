package models

// Action describes the state transition the mutator performed.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
	ActionChanged Action = "changed"
	// ActionNone is reported when nothing was applied (duplicate press,
	// malformed payload, terminal store failure).
	ActionNone Action = "none"
)

// Interaction is one inbound button press as delivered by the chat
// transport. RawPayload carries the callback token; when it has no
// embedded message key the key is derived from ChannelID and
// ChatMessageID.
type Interaction struct {
	ActorID       string `json:"actor_id"`
	DisplayName   string `json:"display_name,omitempty"`
	RawPayload    string `json:"raw_payload"`
	ChannelID     string `json:"channel_id,omitempty"`
	ChatMessageID string `json:"chat_message_id,omitempty"`
}
