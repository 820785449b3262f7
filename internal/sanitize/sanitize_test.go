package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextStripsHTML(t *testing.T) {
	assert.Equal(t, "hello", Text("<script>alert(1)</script>hello"))
	assert.Equal(t, "No teaming", Text("<b>No teaming</b>"))
	assert.Equal(t, "trimmed", Text("  trimmed  "))
	assert.Equal(t, "", Text("<img src=x onerror=alert(1)>"))
}

func TestTextKeepsPlainPunctuation(t *testing.T) {
	assert.Equal(t, "Solo / Duo - room #42", Text("Solo / Duo - room #42"))
}

func TestUsernameLengthBounds(t *testing.T) {
	_, ok := Username("ab")
	assert.False(t, ok)

	_, ok = Username("abc")
	assert.True(t, ok)

	_, ok = Username("12345678901234567890")
	assert.True(t, ok)

	_, ok = Username("123456789012345678901")
	assert.False(t, ok)
}

func TestUsernameCountsRunesNotBytes(t *testing.T) {
	// 11 Cyrillic letters is 22 bytes but well within the 20-character cap.
	name, ok := Username("СнайперКинг")
	assert.True(t, ok)
	assert.Equal(t, "СнайперКинг", name)

	_, ok = Username("аб")
	assert.False(t, ok)

	_, ok = Username(strings.Repeat("ж", 21))
	assert.False(t, ok)
}

func TestUsernameTrimsBeforeMeasuring(t *testing.T) {
	name, ok := Username("   abc   ")
	assert.True(t, ok)
	assert.Equal(t, "abc", name)

	// HTML is stripped before the length check, so tag padding can't
	// smuggle a too-short name through.
	_, ok = Username("<b>ab</b>")
	assert.False(t, ok)
}
