package prog

import (
	"context"
	"sync"
	"time"

	"github.com/ayvex/tgscrap/pkg/tclient"
)

// DefaultEditInterval spaces out status-message edits so a fast
// transfer doesn't flood the edit channel.
const DefaultEditInterval = 1500 * time.Millisecond

// Editor drives one live status message for one transfer. Update is
// called synchronously from the transfer path, throttled, and edit
// failures are swallowed: progress display must never abort the
// transfer it describes.
type Editor struct {
	client   tclient.Client
	to       tclient.Peer
	msgID    int
	label    string
	footer   string
	interval time.Duration
	start    time.Time
	now      func() time.Time

	mu       sync.Mutex
	lastEdit time.Time
}

// NewEditor binds an editor to the status message msgID at peer to.
// footer is appended verbatim below the bar when non-empty.
func NewEditor(client tclient.Client, to tclient.Peer, msgID int, label, footer string) *Editor {
	e := &Editor{
		client:   client,
		to:       to,
		msgID:    msgID,
		label:    label,
		footer:   footer,
		interval: DefaultEditInterval,
		now:      time.Now,
	}
	e.start = e.now()
	return e
}

// WithInterval overrides the edit throttle, mainly for tests.
func (e *Editor) WithInterval(d time.Duration) *Editor {
	e.interval = d
	return e
}

// Progress adapts the editor to the client's transfer callback.
func (e *Editor) Progress(ctx context.Context) tclient.ProgressFunc {
	return func(current, total int64) {
		e.Update(ctx, current, total)
	}
}

// Update renders and pushes the current state, unless the previous
// edit was too recent. A final state (current == total with a known
// total) always goes through.
func (e *Editor) Update(ctx context.Context, current, total int64) {
	now := e.now()
	final := total > 0 && current >= total

	e.mu.Lock()
	if !final && !e.lastEdit.IsZero() && now.Sub(e.lastEdit) < e.interval {
		e.mu.Unlock()
		return
	}
	e.lastEdit = now
	e.mu.Unlock()

	text := Render(current, total, e.label, e.start, now)
	if e.footer != "" {
		text += "\n" + e.footer
	}
	// Best effort: the status message may have been deleted.
	_ = e.client.EditText(ctx, e.to, e.msgID, text)
}
