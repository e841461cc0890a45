package conversation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const welcome = "Welcome, wanderer.\nLet's find some hidden art,\nWhat will we see now?"

func TestNewConversationSeeded(t *testing.T) {
	c := New(welcome)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, AuthorAI, c.Messages[0].Author)
	assert.Equal(t, welcome, c.Messages[0].Text)
	assert.Equal(t, DefaultTitle, c.Title)
	assert.Nil(t, c.CurrentArtwork)
}

func TestMessageKind(t *testing.T) {
	share := NewArtworkMessage("data:image/jpeg;base64,AAAA", "The Vase", ArtworkDetails{Artist: "Unknown Artist"})
	assert.Equal(t, KindArtworkShare, share.Kind())

	text := NewUserText("it reminds me of rain")
	assert.Equal(t, KindUserText, text.Kind())

	haiku := NewAIText("line\nline\nline")
	assert.Equal(t, KindAIText, haiku.Kind())
}

func TestTitleFromHaiku(t *testing.T) {
	assert.Equal(t, "A question?", TitleFromHaiku("Line one\nLine two\nLine three\n\nA question?"))
	assert.Equal(t, "Line three", TitleFromHaiku("Line one\nLine two\nLine three\n\n  \n"))
	assert.Equal(t, "Untitled Haiku", TitleFromHaiku("\n  \n"))
	assert.Equal(t, "Untitled Haiku", TitleFromHaiku(""))
}

func TestHistoryBound(t *testing.T) {
	h := NewHistory(20)
	var firstID string
	for i := 0; i < 25; i++ {
		c := h.StartNew(welcome, false)
		if i == 0 {
			firstID = c.ID
		}
	}
	assert.Equal(t, 20, h.Len())
	// самый старый вытеснен первым
	assert.Nil(t, h.Get(firstID))
	assert.Equal(t, h.All()[len(h.All())-1].ID, h.CurrentID())
}

func TestHistoryStartNewInitialReplacesAll(t *testing.T) {
	h := NewHistory(20)
	h.StartNew(welcome, false)
	h.StartNew(welcome, false)
	c := h.StartNew(welcome, true)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, c.ID, h.CurrentID())
}

func TestHistorySelect(t *testing.T) {
	h := NewHistory(20)
	first := h.StartNew(welcome, false)
	h.StartNew(welcome, false)

	require.True(t, h.Select(first.ID))
	assert.Equal(t, first.ID, h.CurrentID())
	assert.False(t, h.Select("no-such-id"))
	assert.Equal(t, first.ID, h.CurrentID())
}

func TestRestore(t *testing.T) {
	h := NewHistory(20)
	for i := 0; i < 3; i++ {
		c := h.StartNew(welcome, false)
		c.Append(NewUserText(fmt.Sprintf("note %d", i)))
	}
	target := h.All()[1]

	restored := Restore(20, h.All(), target.ID)
	require.Equal(t, 3, restored.Len())
	assert.Equal(t, target.ID, restored.CurrentID())

	// неизвестный текущий id — берём последний диалог
	restored = Restore(20, h.All(), "gone")
	assert.Equal(t, h.All()[2].ID, restored.CurrentID())

	// лишние диалоги сверх ёмкости отбрасываются с начала
	restored = Restore(2, h.All(), target.ID)
	require.Equal(t, 2, restored.Len())
	assert.Equal(t, h.All()[1].ID, restored.All()[0].ID)
}

func TestConversationJSONRoundTrip(t *testing.T) {
	c := New(welcome)
	c.Append(
		NewArtworkMessage("data:image/png;base64,BBBB", "Teapot", ArtworkDetails{
			Artist: "Unknown Artist", Date: "1780", Place: "Staffordshire", ObjectType: "Teapot", SystemNumber: "O123",
		}),
		NewAIText("Steam curls and is gone,\nClay remembers every hand,\nWhat warmth do you hold?"),
	)
	c.SetArtwork("data:image/png;base64,BBBB", "image/png")

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back Conversation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c.ID, back.ID)
	require.Len(t, back.Messages, 3)
	for i := range c.Messages {
		assert.Equal(t, c.Messages[i].ID, back.Messages[i].ID)
		assert.Equal(t, c.Messages[i].Text, back.Messages[i].Text)
	}
	require.NotNil(t, back.CurrentArtwork)
	assert.Equal(t, "image/png", back.CurrentArtwork.MimeType)
	require.NotNil(t, back.Messages[1].ArtworkDetails)
	assert.Equal(t, "O123", back.Messages[1].ArtworkDetails.SystemNumber)
}
