// File: internal/services/chat/errors.go
package chat

import "fmt"

type ErrorType string

const (
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrTypeConflict     ErrorType = "CONFLICT"
	ErrTypeDatabase     ErrorType = "DATABASE"
	ErrTypeInternal     ErrorType = "INTERNAL"
)

type ChatError struct {
	Type      ErrorType
	Operation string
	Message   string
	ChatID    string
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewNotFoundError(operation, chatID string) *ChatError {
	return &ChatError{Type: ErrTypeNotFound, Operation: operation, ChatID: chatID, Message: "resource not found"}
}

func NewUnauthorizedError(operation, chatID string) *ChatError {
	return &ChatError{Type: ErrTypeUnauthorized, Operation: operation, ChatID: chatID, Message: "access denied"}
}

func NewConflictError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeConflict, Operation: operation, Message: msg}
}

func NewDatabaseError(operation string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeDatabase, Operation: operation, Message: "database operation failed", Cause: cause}
}
