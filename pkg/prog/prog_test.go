package prog_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayvex/tgscrap/pkg/prog"
	"github.com/ayvex/tgscrap/pkg/tclient"
	"github.com/ayvex/tgscrap/pkg/tlink"
)

func TestRenderPercentAndBar(t *testing.T) {
	now := time.Now()
	out := prog.Render(50, 200, "📥 Downloading", now.Add(-2*time.Second), now)
	assert.Contains(t, out, " 25% [██░░░░░░░░]")
	assert.Contains(t, out, "📥 Downloading")
}

func TestRenderSpeed(t *testing.T) {
	now := time.Now()
	// 4 MiB over 2 seconds.
	out := prog.Render(4*1024*1024, 8*1024*1024, "dl", now.Add(-2*time.Second), now)
	assert.Contains(t, out, "  2.00 MB/s")
}

func TestRenderZeroTotalIsComplete(t *testing.T) {
	now := time.Now()
	out := prog.Render(123, 0, "dl", now.Add(-time.Second), now)
	assert.Contains(t, out, "100% [██████████]")
}

func TestRenderClampsAndZeroElapsed(t *testing.T) {
	now := time.Now()
	out := prog.Render(300, 200, "dl", now, now)
	assert.Contains(t, out, "100%")
	// Non-positive elapsed reports zero throughput.
	assert.Contains(t, out, "  0.00 MB/s")

	out = prog.Render(-5, 200, "dl", now.Add(time.Minute), now)
	assert.Contains(t, out, "  0% [░░░░░░░░░░]")
}

func TestEditorThrottlesAndSwallowsErrors(t *testing.T) {
	fc := &editFake{err: fmt.Errorf("message deleted")}
	to := peer(9)

	e := prog.NewEditor(fc, to, 42, "📤 Uploading", "").WithInterval(time.Hour)
	ctx := context.Background()

	// First update always edits, even when editing fails.
	e.Update(ctx, 10, 100)
	// Throttled away.
	e.Update(ctx, 20, 100)
	e.Update(ctx, 30, 100)
	// Final state bypasses the throttle.
	e.Update(ctx, 100, 100)

	require.Len(t, fc.edits(), 2)
	assert.Contains(t, fc.edits()[0], " 10%")
	assert.Contains(t, fc.edits()[1], "100%")
}

func TestEditorFooter(t *testing.T) {
	fc := &editFake{}
	e := prog.NewEditor(fc, peer(9), 42, "dl", "Bot created by: @someone").WithInterval(0)
	e.Update(context.Background(), 1, 2)

	require.Len(t, fc.edits(), 1)
	assert.Contains(t, fc.edits()[0], "Bot created by: @someone")
}

type peer int64

func (p peer) ID() int64 { return int64(p) }

// editFake implements tclient.Client; only EditText records anything.
type editFake struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *editFake) edits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.texts...)
}

func (f *editFake) EditText(_ context.Context, _ tclient.Peer, _ int, text string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.err
}

func (f *editFake) Resolve(context.Context, tlink.Link) (tclient.Entity, error) {
	return nil, nil
}
func (f *editFake) JoinInvite(context.Context, string) error { return nil }
func (f *editFake) GetMessage(context.Context, tclient.Entity, int) (*tclient.Message, error) {
	return nil, tclient.ErrMessageNotFound
}
func (f *editFake) Messages(context.Context, tclient.Entity, int, int) tclient.Iter {
	return tclient.NewSliceIter(nil, nil)
}
func (f *editFake) Download(context.Context, *tclient.Message, string, tclient.ProgressFunc) (string, error) {
	return "", tclient.ErrNoFile
}
func (f *editFake) SendFile(context.Context, tclient.Peer, string, string, tclient.ProgressFunc) error {
	return nil
}
func (f *editFake) SendText(context.Context, tclient.Peer, string) (int, error) {
	return 0, nil
}
