package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayvex/tgscrap/pkg/tlink"
)

func TestTrackerConsumeOnce(t *testing.T) {
	tr := NewTracker()
	link := tlink.Link{Kind: tlink.Public, Name: "chan", MsgID: 5}

	tr.AwaitCount(42, link)
	got, hasTarget, ok := tr.Take(42)
	require.True(t, ok)
	assert.True(t, hasTarget)
	assert.Equal(t, link, got)

	_, _, ok = tr.Take(42)
	assert.False(t, ok, "entry must be consumed exactly once")
}

func TestTrackerNoEntry(t *testing.T) {
	tr := NewTracker()
	_, _, ok := tr.Take(42)
	assert.False(t, ok)
}

func TestTrackerAwaitLinkHasNoTarget(t *testing.T) {
	tr := NewTracker()
	tr.AwaitLink(42)

	_, hasTarget, ok := tr.Take(42)
	require.True(t, ok)
	assert.False(t, hasTarget)
}

func TestTrackerLastRequestWins(t *testing.T) {
	tr := NewTracker()
	tr.AwaitCount(42, tlink.Link{Kind: tlink.Public, Name: "old", MsgID: 1})
	tr.AwaitCount(42, tlink.Link{Kind: tlink.Public, Name: "new", MsgID: 2})

	got, _, ok := tr.Take(42)
	require.True(t, ok)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerPerIdentity(t *testing.T) {
	tr := NewTracker()
	tr.AwaitCount(1, tlink.Link{Name: "a"})
	tr.AwaitCount(2, tlink.Link{Name: "b"})

	got, _, ok := tr.Take(1)
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, 1, tr.Len())
}
