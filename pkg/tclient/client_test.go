package tclient

import (
	"context"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceIter(t *testing.T) {
	ctx := context.Background()
	msgs := []*Message{{ID: 1}, {ID: 2}, {ID: 3}}
	it := NewSliceIter(msgs, nil)

	var got []int
	for it.Next(ctx) {
		got = append(got, it.Value().ID)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.NoError(t, it.Err())
}

func TestSliceIterErrAfterExhaustion(t *testing.T) {
	ctx := context.Background()
	sentinel := assert.AnError
	it := NewSliceIter([]*Message{{ID: 1}, {ID: 2}}, sentinel)

	require.True(t, it.Next(ctx))
	assert.NoError(t, it.Err(), "error surfaces only once the sequence ends")
	require.True(t, it.Next(ctx))
	require.False(t, it.Next(ctx))
	assert.ErrorIs(t, it.Err(), sentinel)
}

func TestSliceIterHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it := NewSliceIter([]*Message{{ID: 1}}, nil)
	assert.False(t, it.Next(ctx))
}

func TestFromTGDocument(t *testing.T) {
	doc := &tg.Document{
		ID:         10,
		AccessHash: 20,
		Size:       4096,
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeFilename{FileName: "report.pdf"},
		},
	}
	raw := &tg.Message{ID: 7, Message: "caption"}
	raw.SetMedia(&tg.MessageMediaDocument{Document: doc})

	m := fromTG(raw)
	require.True(t, m.HasFile())
	assert.Equal(t, 7, m.ID)
	assert.Equal(t, "caption", m.Text)
	assert.Equal(t, "report.pdf", m.File.Name)
	assert.Equal(t, int64(4096), m.File.Size)
	assert.NotNil(t, m.raw.loc)
}

func TestFromTGTextOnly(t *testing.T) {
	m := fromTG(&tg.Message{ID: 3, Message: "plain"})
	assert.False(t, m.HasFile())
	assert.Nil(t, m.raw.loc)
}

func TestFromTGPhotoPicksLargestSize(t *testing.T) {
	photo := &tg.Photo{ID: 5, AccessHash: 6}
	photo.Sizes = []tg.PhotoSizeClass{
		&tg.PhotoSize{Type: "m", Size: 100},
		&tg.PhotoSize{Type: "y", Size: 9000},
		&tg.PhotoSize{Type: "x", Size: 800},
	}
	raw := &tg.Message{ID: 8}
	raw.SetMedia(&tg.MessageMediaPhoto{})
	media := raw.Media.(*tg.MessageMediaPhoto)
	media.SetPhoto(photo)

	m := fromTG(raw)
	require.True(t, m.HasFile())
	assert.Equal(t, int64(9000), m.File.Size)
	loc, ok := m.raw.loc.(*tg.InputPhotoFileLocation)
	require.True(t, ok)
	assert.Equal(t, "y", loc.ThumbSize)
}

func TestInputFromChat(t *testing.T) {
	in, err := inputFromChat(&tg.Chat{ID: 11})
	require.NoError(t, err)
	chat, ok := in.(*tg.InputPeerChat)
	require.True(t, ok)
	assert.Equal(t, int64(11), chat.ChatID)

	in, err = inputFromChat(&tg.Channel{ID: 22, AccessHash: 33})
	require.NoError(t, err)
	ch, ok := in.(*tg.InputPeerChannel)
	require.True(t, ok)
	assert.Equal(t, int64(22), ch.ChannelID)
	assert.Equal(t, int64(33), ch.AccessHash)

	_, err = inputFromChat(&tg.ChatForbidden{ID: 44})
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "file", sanitizeName(""))
	assert.Equal(t, "a_b_c", sanitizeName("a/b\\c"))
	assert.Equal(t, "plain.txt", sanitizeName("plain.txt"))
}

func TestWriteAtReportsProgress(t *testing.T) {
	var (
		lastCur, lastTotal int64
		buf                = make([]byte, 16)
	)
	w := newWriteAt(sliceWriterAt(buf), 16, func(cur, total int64) {
		lastCur, lastTotal = cur, total
	})

	n, err := w.WriteAt([]byte("abcd"), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), lastCur)

	_, err = w.WriteAt([]byte("efgh"), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(8), lastCur)
	assert.Equal(t, int64(16), lastTotal)
	assert.Equal(t, "abcdefgh", string(buf[:8]))
}

func TestSentMessageID(t *testing.T) {
	assert.Equal(t, 42, sentMessageID(&tg.UpdateShortSentMessage{ID: 42}))
	assert.Equal(t, 7, sentMessageID(&tg.Updates{
		Updates: []tg.UpdateClass{&tg.UpdateMessageID{ID: 7}},
	}))
	assert.Equal(t, 0, sentMessageID(&tg.UpdatesTooLong{}))
}

type sliceWriterAt []byte

func (s sliceWriterAt) WriteAt(p []byte, off int64) (int, error) {
	return copy(s[off:], p), nil
}
