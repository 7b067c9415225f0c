package repositories

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestLogPreview_ShortMessagePassesThrough(t *testing.T) {
	assert.Equal(t, "profiling started", logPreview("profiling started"))
	assert.Equal(t, "", logPreview(""))
}

func TestLogPreview_TruncatesAtCharacterCount(t *testing.T) {
	long := strings.Repeat("x", latestLogPreviewLen+50)
	preview := logPreview(long)
	assert.Len(t, preview, latestLogPreviewLen)
}

func TestLogPreview_NeverSplitsMultiByteRunes(t *testing.T) {
	// Each heading rune below is multi-byte; a byte-index cut would leave
	// the stored preview invalid UTF-8.
	long := strings.Repeat("📊", latestLogPreviewLen+10)
	preview := logPreview(long)

	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, latestLogPreviewLen, utf8.RuneCountInString(preview))
}
