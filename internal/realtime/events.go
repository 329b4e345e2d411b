package realtime

import "encoding/json"

// Event names emitted by clients.
const (
	EventNewComment   = "newComment"
	EventTyping       = "typing"
	EventReactComment = "reactComment"
)

// Server-relayed counterparts.
const (
	EventReceiveComment = "receiveComment"
	EventSomeoneTyping  = "someoneTyping"
	EventUpdateReaction = "updateReaction"
)

// relayedName maps a client event to the name it is rebroadcast under.
var relayedName = map[string]string{
	EventNewComment:   EventReceiveComment,
	EventTyping:       EventSomeoneTyping,
	EventReactComment: EventUpdateReaction,
}

// Envelope is the wire format for every realtime event. PostID scopes
// the event to a single room; the payload shape depends on the event.
type Envelope struct {
	Event   string          `json:"event"`
	PostID  string          `json:"postId"`
	Payload json.RawMessage `json:"payload"`
}

// TypingPayload carries the display name of whoever is typing.
type TypingPayload struct {
	Author string `json:"author"`
}

// ReactionPayload carries one emoji reaction on one comment. EventID
// makes application idempotent: a viewer that already applied the
// reaction optimistically ignores the echo.
type ReactionPayload struct {
	EventID   string `json:"eventId"`
	CommentID string `json:"commentId"`
	Emoji     string `json:"emoji"`
}
