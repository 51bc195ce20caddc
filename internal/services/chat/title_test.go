// File: internal/services/chat/title_test.go
package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitleFirstLine(t *testing.T) {
	assert.Equal(t, "How do tides work?", deriveTitle("How do tides work?\nAnd why twice a day?", 80))
}

func TestDeriveTitleTruncates(t *testing.T) {
	long := strings.Repeat("x", 120)
	title := deriveTitle(long, 80)
	assert.Len(t, []rune(title), 80)
}

func TestDeriveTitleFallback(t *testing.T) {
	assert.Equal(t, "Chat", deriveTitle("   \nactual content on second line", 80))
	assert.Equal(t, "Chat", deriveTitle("", 80))
}

func TestDeriveTitleCountsRunes(t *testing.T) {
	title := deriveTitle(strings.Repeat("é", 100), 80)
	assert.Equal(t, strings.Repeat("é", 80), title)
}
