// File: internal/services/chat/types.go
package chat

// Logger defines the logging interface used by chat services.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// DispatchOutcome is what a message-producing operation returns to its caller.
// Queued is false when no background generation was started, either because
// the AI provider is unconfigured or because the dispatcher is saturated.
type DispatchOutcome struct {
	UserMessage      string
	AssistantMessage string
	Queued           bool
}
