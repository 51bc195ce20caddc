// File: internal/services/memory/errors.go
package memory

import "fmt"

type MemoryError struct {
	Type    string
	Message string
	Err     error
}

func (e *MemoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("memory %s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("memory %s error: %s", e.Type, e.Message)
}

func (e *MemoryError) Unwrap() error {
	return e.Err
}

func NewNetworkError(message string, err error) *MemoryError {
	return &MemoryError{Type: "network", Message: message, Err: err}
}

func NewAPIError(message string, err error) *MemoryError {
	return &MemoryError{Type: "api", Message: message, Err: err}
}

func NewConfigError(message string) *MemoryError {
	return &MemoryError{Type: "config", Message: message}
}

func NewRetryError(message string, err error) *MemoryError {
	return &MemoryError{Type: "retry", Message: message, Err: err}
}
