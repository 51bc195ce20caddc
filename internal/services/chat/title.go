// File: internal/services/chat/title.go
package chat

import "strings"

// deriveTitle builds a chat title from the first line of the first user
// message, truncated to maxLength runes.
func deriveTitle(content string, maxLength int) string {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if firstLine == "" {
		return "Chat"
	}

	runes := []rune(firstLine)
	if len(runes) > maxLength {
		return string(runes[:maxLength])
	}
	return firstLine
}
