// Package relay implements the bulk fetch/transform/relay engine:
// given a resolved locator and a count, it collects the anchor message
// plus the next count-1 in forward order, then relays each one to the
// requester, re-uploading binary payloads and tolerating per-message
// failures without aborting the batch.
package relay

import (
	"context"
	"fmt"
	"os"
	"time"

	pw "github.com/jedib0t/go-pretty/v6/progress"
	"go.uber.org/zap"

	"github.com/ayvex/tgscrap/pkg/prog"
	"github.com/ayvex/tgscrap/pkg/tclient"
	"github.com/ayvex/tgscrap/pkg/tlink"
)

const defaultDelay = 700 * time.Millisecond

// Options configures an Engine.
type Options struct {
	Client      tclient.Client
	DownloadDir string
	// Creator is appended below relayed content and notices.
	Creator string
	// Delay between consecutive message relays. Zero means the
	// default courtesy delay.
	Delay time.Duration
	// Console receives operator-side transfer trackers. Optional.
	Console pw.Writer
	Logger  *zap.Logger
}

// Engine relays message batches.
type Engine struct {
	opts Options
	log  *zap.Logger
}

// New builds an Engine, applying defaults.
func New(opts Options) *Engine {
	if opts.Delay == 0 {
		opts.Delay = defaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{opts: opts, log: opts.Logger.Named("relay")}
}

// Request is one relay order: everything the engine needs to fetch the
// window and address the requester.
type Request struct {
	To    tclient.Peer
	Link  tlink.Link
	Count int
}

// Result reports the batch outcome.
type Result struct {
	Sent   int
	Failed int
}

// Run executes one relay batch. Every failure mode is reported to the
// requester; the returned error only signals that nothing could be
// relayed at all.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	var res Result
	c := e.opts.Client

	ent, err := c.Resolve(ctx, req.Link)
	if err != nil {
		e.notify(ctx, req.To, fmt.Sprintf(
			"❌ Could not access that chat: %v\nMake sure the logged-in account can view it.", err))
		return res, err
	}

	anchor, err := c.GetMessage(ctx, ent, req.Link.MsgID)
	if err != nil {
		e.notify(ctx, req.To, fmt.Sprintf("❌ Starting message not found or not accessible: %v", err))
		return res, err
	}

	msgs := []*tclient.Message{anchor}
	if req.Count > 1 {
		it := c.Messages(ctx, ent, req.Link.MsgID, req.Count-1)
		for it.Next(ctx) && len(msgs) < req.Count {
			msgs = append(msgs, it.Value())
		}
		if err := it.Err(); err != nil {
			// Non-fatal: relay whatever was collected.
			e.log.Warn("supplemental fetch failed", zap.Error(err))
			e.notify(ctx, req.To, fmt.Sprintf(
				"⚠️ Warning while fetching additional messages: %v\nProceeding with available messages.", err))
		}
	}

	e.notify(ctx, req.To, fmt.Sprintf("Found %d messages. Beginning download/upload...", len(msgs)))

	for i, m := range msgs {
		if err := e.relayOne(ctx, req.To, m); err != nil {
			res.Failed++
			e.log.Warn("message relay failed",
				zap.Int("msg_id", m.ID), zap.Error(err))
			e.notify(ctx, req.To, fmt.Sprintf("Failed to process message %d: %v", m.ID, err))
		} else {
			res.Sent++
		}
		if i < len(msgs)-1 {
			select {
			case <-time.After(e.opts.Delay):
			case <-ctx.Done():
				e.summary(ctx, req.To, res)
				return res, ctx.Err()
			}
		}
	}

	e.summary(ctx, req.To, res)
	return res, nil
}

// relayOne processes a single message. Media goes through a scoped
// download-then-reupload with live progress on a dedicated status
// message; text is forwarded directly.
func (e *Engine) relayOne(ctx context.Context, to tclient.Peer, m *tclient.Message) error {
	c := e.opts.Client

	if !m.HasFile() {
		text := m.Text
		if text == "" {
			text = "<no text>"
		}
		_, err := c.SendText(ctx, to, e.withFooter(text))
		return err
	}

	statusID, err := c.SendText(ctx, to, e.withFooter(fmt.Sprintf("📥 Preparing to download `%d`...", m.ID)))
	if err != nil {
		return err
	}

	var tracker *pw.Tracker
	if e.opts.Console != nil {
		tracker = prog.AppendTracker(e.opts.Console,
			fmt.Sprintf("msg %d: %s", m.ID, m.File.Name), m.File.Size)
	}

	down := prog.NewEditor(c, to, statusID, "📥 Downloading", e.footerLine()).Progress(ctx)
	path, err := c.Download(ctx, m, e.opts.DownloadDir, func(cur, total int64) {
		down(cur, total)
		if tracker != nil {
			tracker.SetValue(cur)
		}
	})
	if err != nil {
		if tracker != nil {
			prog.Fail(e.opts.Console, tracker, "msg %d download: %s", m.ID, err)
		}
		return err
	}
	// The local copy is scoped to this message: drop it regardless of
	// how the upload turns out.
	defer os.Remove(path)

	_ = c.EditText(ctx, to, statusID, e.withFooter("📤 Uploading to you now..."))

	up := prog.NewEditor(c, to, statusID, "📤 Uploading", e.footerLine())
	if err := c.SendFile(ctx, to, path, e.withFooter(m.Text), up.Progress(ctx)); err != nil {
		if tracker != nil {
			prog.Fail(e.opts.Console, tracker, "msg %d upload: %s", m.ID, err)
		}
		return err
	}
	if tracker != nil {
		tracker.MarkAsDone()
	}

	_ = c.EditText(ctx, to, statusID, e.withFooter(fmt.Sprintf("✅ Done `%d`", m.ID)))
	return nil
}

func (e *Engine) summary(ctx context.Context, to tclient.Peer, res Result) {
	e.notify(ctx, to, fmt.Sprintf("✅ Finished. Sent: %d. Failed: %d.", res.Sent, res.Failed))
}

func (e *Engine) withFooter(text string) string {
	if line := e.footerLine(); line != "" {
		return text + "\n\n" + line
	}
	return text
}

func (e *Engine) footerLine() string {
	if e.opts.Creator == "" {
		return ""
	}
	return "Bot created by: " + e.opts.Creator
}

// notify is best effort: a requester who blocked the account mid-batch
// must not abort the batch.
func (e *Engine) notify(ctx context.Context, to tclient.Peer, text string) {
	if _, err := e.opts.Client.SendText(ctx, to, e.withFooter(text)); err != nil {
		e.log.Warn("notify failed", zap.Int64("to", to.ID()), zap.Error(err))
	}
}
