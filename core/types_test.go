package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlobKey(t *testing.T) {
	assert.Equal(t, "e1_inst-1.mp3", BlobKey("e1", "inst-1", "mp3"))
	assert.Equal(t, "e1_inst-1", BlobKey("e1", "inst-1", ""))
}

func TestBlobKey_SanitizesInstanceID(t *testing.T) {
	// caller supplied ids may carry path separators or spaces
	assert.Equal(t, "e1_a_b_c.png", BlobKey("e1", "a/b c", "png"))
	assert.Equal(t, "e1_model_v2.1.png", BlobKey("e1", "model:v2.1", "png"))
}

func TestSanitizeKeyPart(t *testing.T) {
	cases := map[string]string{
		"plain":        "plain",
		"UPPER.09_-":   "UPPER.09_-",
		"a/b\\c":       "a_b_c",
		"tts voice #1": "tts_voice__1",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeKeyPart(in), "input %q", in)
	}
}

func TestEntryPrefix_Isolation(t *testing.T) {
	// "e1" must never prefix-match keys of entry "e10"
	key := BlobKey("e10", "x", "png")
	assert.False(t, len(EntryPrefix("e1")) <= len(key) && key[:len(EntryPrefix("e1"))] == EntryPrefix("e1"))
}

func TestOutcomeStatus_Terminal(t *testing.T) {
	assert.False(t, StatusLoading.Terminal())
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusError.Terminal())
}

func TestNewHistoryEntry(t *testing.T) {
	e := NewHistoryEntry(map[string]any{"voice": "alloy"}, []EntryResult{{InstanceID: "i1"}})
	assert.NotEmpty(t, e.ID)
	assert.NotZero(t, e.CreatedAt)
	assert.Len(t, e.Results, 1)

	e2 := NewHistoryEntry(nil, nil)
	assert.NotEqual(t, e.ID, e2.ID)
}
