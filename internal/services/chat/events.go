// File: internal/services/chat/events.go
package chat

// StreamEventType identifies a frame on a message stream.
type StreamEventType string

const (
	EventConnected    StreamEventType = "connected"
	EventContentDelta StreamEventType = "content_delta"
	EventCompletion   StreamEventType = "completion"
	EventTimeout      StreamEventType = "timeout"
)

// MessagePayload is a message snapshot carried on connected frames so clients
// can render the exchange before any delta arrives.
type MessagePayload struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

// StreamFrame is one event delivered to a streaming client. Delta carries only
// the content appended since the previous frame, TotalContent the full content
// so far so a client that dropped a delta can resynchronize. Restarted marks a
// frame whose delta begins from offset zero because a new attempt replaced the
// content. Content on completion frames is the final text.
type StreamFrame struct {
	Type             StreamEventType `json:"type"`
	MessageID        string          `json:"message_id"`
	Status           string          `json:"status,omitempty"`
	Queued           *bool           `json:"queued,omitempty"`
	UserMessage      *MessagePayload `json:"user_message,omitempty"`
	AssistantMessage *MessagePayload `json:"assistant_message,omitempty"`
	Delta            string          `json:"delta,omitempty"`
	TotalContent     string          `json:"total_content,omitempty"`
	Content          string          `json:"content,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	TotalTokens      int             `json:"total_tokens,omitempty"`
	Restarted        bool            `json:"restarted,omitempty"`
}

// EmitFunc delivers one frame to the client. Returning an error aborts the
// stream.
type EmitFunc func(StreamFrame) error
