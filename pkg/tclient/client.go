// Package tclient wraps the MTProto transport behind a small client
// interface so the relay engine and the bot handlers can be exercised
// against fakes. The real implementation lives in telegram.go.
package tclient

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/ayvex/tgscrap/pkg/tlink"
)

var (
	// ErrMessageNotFound reports an absent or inaccessible message.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNoFile reports a download attempt on a message without a
	// binary payload.
	ErrNoFile = errors.New("message carries no file")
)

// ProgressFunc receives transferred and total byte counts during a
// download or upload. Total may be zero when unknown.
type ProgressFunc func(current, total int64)

// Entity is a resolved container handle.
type Entity interface {
	ID() int64
	Title() string
}

// Peer addresses an outbound destination, usually the requester.
type Peer interface {
	ID() int64
}

// FileInfo describes a message's binary payload.
type FileInfo struct {
	Name string
	Size int64
}

// Message is the transport-independent view of one remote message.
type Message struct {
	ID   int
	Text string
	File *FileInfo // nil for text-only messages

	raw rawMessage
}

// HasFile reports whether the message carries a binary payload.
func (m *Message) HasFile() bool { return m.File != nil }

// Iter walks a finite, non-restartable sequence of messages.
type Iter interface {
	Next(ctx context.Context) bool
	Value() *Message
	Err() error
}

// Client is the protocol collaborator consumed by the bot core.
type Client interface {
	// Resolve turns a parsed locator into an addressable handle.
	Resolve(ctx context.Context, link tlink.Link) (Entity, error)
	// JoinInvite joins an invite-gated container. Already being a
	// member is success, not an error.
	JoinInvite(ctx context.Context, invite string) error
	// GetMessage fetches a single message by id, ErrMessageNotFound
	// when absent.
	GetMessage(ctx context.Context, ent Entity, id int) (*Message, error)
	// Messages returns up to limit messages with id strictly greater
	// than minID, in ascending id order.
	Messages(ctx context.Context, ent Entity, minID, limit int) Iter
	// Download fetches the message's payload into dir and returns the
	// local path.
	Download(ctx context.Context, msg *Message, dir string, onProgress ProgressFunc) (string, error)
	// SendFile uploads a local file to the peer with a caption.
	SendFile(ctx context.Context, to Peer, path, caption string, onProgress ProgressFunc) error
	// SendText sends a text message and returns its id for later edits.
	SendText(ctx context.Context, to Peer, text string) (int, error)
	// EditText replaces the text of a previously sent message.
	EditText(ctx context.Context, to Peer, msgID int, text string) error
}

// SliceIter adapts an in-memory slice to Iter. The real client uses it
// for fetched history windows; tests use it directly.
type SliceIter struct {
	msgs []*Message
	cur  *Message
	err  error
}

// NewSliceIter returns an Iter over msgs that reports err after the
// slice is exhausted (or immediately if msgs is empty).
func NewSliceIter(msgs []*Message, err error) *SliceIter {
	return &SliceIter{msgs: msgs, err: err}
}

func (it *SliceIter) Next(ctx context.Context) bool {
	if ctx.Err() != nil || len(it.msgs) == 0 {
		return false
	}
	it.cur, it.msgs = it.msgs[0], it.msgs[1:]
	return true
}

func (it *SliceIter) Value() *Message { return it.cur }

func (it *SliceIter) Err() error {
	if len(it.msgs) == 0 {
		return it.err
	}
	return nil
}
