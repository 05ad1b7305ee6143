package tclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"

	"github.com/ayvex/tgscrap/pkg/tlink"
)

const (
	downloadPartSize = 512 * 1024
	downloadThreads  = 4
)

// Telegram implements Client over a gotd MTProto connection.
type Telegram struct {
	api     *tg.Client
	sender  *message.Sender
	manager *peers.Manager
	log     *zap.Logger
}

// NewTelegram wraps the raw API client and peers manager.
func NewTelegram(api *tg.Client, manager *peers.Manager, lg *zap.Logger) *Telegram {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Telegram{
		api:     api,
		sender:  message.NewSender(api),
		manager: manager,
		log:     lg.Named("tclient"),
	}
}

type entity struct {
	peer peers.Peer
}

func (e entity) ID() int64     { return e.peer.ID() }
func (e entity) Title() string { return e.peer.VisibleName() }

// UserPeer builds a destination for a user seen in an update. The
// access hash comes from the update's entity map.
func UserPeer(id, accessHash int64) Peer {
	return peerRef{
		id:    id,
		input: &tg.InputPeerUser{UserID: id, AccessHash: accessHash},
	}
}

type peerRef struct {
	id    int64
	input tg.InputPeerClass
}

func (p peerRef) ID() int64 { return p.id }

func inputOf(p Peer) (tg.InputPeerClass, error) {
	pr, ok := p.(peerRef)
	if !ok {
		return nil, errors.Errorf("peer %d is not addressable by this client", p.ID())
	}
	return pr.input, nil
}

// Resolve maps the three locator shapes onto peer resolution: public
// names go through username resolution, private ids through the peers
// manager, and invite links through the invite preview.
func (t *Telegram) Resolve(ctx context.Context, link tlink.Link) (Entity, error) {
	switch link.Kind {
	case tlink.Public:
		if id, err := strconv.ParseInt(link.Name, 10, 64); err == nil {
			return t.fromInput(ctx, &tg.InputPeerChannel{ChannelID: id})
		}
		p, err := t.manager.ResolveDomain(ctx, link.Name)
		if err != nil {
			return nil, errors.Wrap(err, "resolve username")
		}
		return entity{peer: p}, nil
	case tlink.Private:
		// Strip the -100 marker back off to get the bare channel id.
		s := strings.TrimPrefix(strconv.FormatInt(-link.ChatID, 10), "100")
		raw, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "private channel id")
		}
		return t.fromInput(ctx, &tg.InputPeerChannel{ChannelID: raw})
	case tlink.Invite:
		return t.resolveInvite(ctx, link.Invite)
	default:
		return nil, errors.Errorf("unknown link kind %d", link.Kind)
	}
}

func (t *Telegram) fromInput(ctx context.Context, input tg.InputPeerClass) (Entity, error) {
	p, err := t.manager.FromInputPeer(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "resolve peer")
	}
	return entity{peer: p}, nil
}

func (t *Telegram) resolveInvite(ctx context.Context, invite string) (Entity, error) {
	hash := strings.TrimPrefix(invite, "+")
	res, err := t.api.MessagesCheckChatInvite(ctx, hash)
	if err != nil {
		return nil, errors.Wrap(err, "check invite")
	}
	var chat tg.ChatClass
	switch v := res.(type) {
	case *tg.ChatInviteAlready:
		chat = v.Chat
	case *tg.ChatInvitePeek:
		chat = v.Chat
	default:
		return nil, errors.New("invite not joined yet")
	}
	input, err := inputFromChat(chat)
	if err != nil {
		return nil, err
	}
	return t.fromInput(ctx, input)
}

// JoinInvite imports the invite. USER_ALREADY_PARTICIPANT means the
// account already has access and is treated as success.
func (t *Telegram) JoinInvite(ctx context.Context, invite string) error {
	hash := strings.TrimPrefix(invite, "+")
	if _, err := t.api.MessagesImportChatInvite(ctx, hash); err != nil {
		if tgerr.Is(err, "USER_ALREADY_PARTICIPANT") {
			return nil
		}
		return errors.Wrap(err, "import invite")
	}
	return nil
}

func (t *Telegram) GetMessage(ctx context.Context, ent Entity, id int) (*Message, error) {
	e, ok := ent.(entity)
	if !ok {
		return nil, errors.New("entity was not resolved by this client")
	}
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: id}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if ch, okCh := e.peer.InputPeer().(*tg.InputPeerChannel); okCh {
		res, err = t.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = t.api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get message")
	}
	for _, m := range extractMessages(res) {
		if m.ID == id {
			return fromTG(m), nil
		}
	}
	return nil, ErrMessageNotFound
}

// Messages fetches one history window after minID and yields it in
// ascending id order. Request errors surface through Iter.Err.
func (t *Telegram) Messages(ctx context.Context, ent Entity, minID, limit int) Iter {
	e, ok := ent.(entity)
	if !ok {
		return NewSliceIter(nil, errors.New("entity was not resolved by this client"))
	}
	res, err := t.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:      e.peer.InputPeer(),
		OffsetID:  minID,
		AddOffset: -(limit + 1),
		Limit:     limit + 1,
		MinID:     minID,
	})
	if err != nil {
		return NewSliceIter(nil, errors.Wrap(err, "get history"))
	}

	var msgs []*Message
	for _, m := range extractMessages(res) {
		if m.ID > minID {
			msgs = append(msgs, fromTG(m))
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return NewSliceIter(msgs, nil)
}

// Download pulls the message payload into dir via the parallel part
// downloader, reporting progress through a counting WriterAt. The
// destination is named <msgid>_<sanitized original name>.
func (t *Telegram) Download(ctx context.Context, msg *Message, dir string, onProgress ProgressFunc) (string, error) {
	if msg.File == nil || msg.raw.loc == nil {
		return "", ErrNoFile
	}
	dest := filepath.Join(dir, fmt.Sprintf("%d_%s", msg.ID, sanitizeName(msg.File.Name)))
	f, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrap(err, "create file")
	}

	_, err = downloader.NewDownloader().
		WithPartSize(downloadPartSize).
		Download(t.api, msg.raw.loc).
		WithThreads(downloadThreads).
		Parallel(ctx, newWriteAt(f, msg.File.Size, onProgress))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", errors.Wrap(err, "download")
	}
	return dest, nil
}

// SendFile re-uploads a local file as a document, preserving the
// original filename and sniffing the MIME type from content.
func (t *Telegram) SendFile(ctx context.Context, to Peer, path, caption string, onProgress ProgressFunc) error {
	input, err := inputOf(to)
	if err != nil {
		return err
	}
	up := uploader.NewUploader(t.api).WithProgress(chunkProgress{fn: onProgress})
	f, err := up.FromPath(ctx, path)
	if err != nil {
		return errors.Wrap(err, "upload")
	}

	doc := message.UploadedDocument(f, styling.Plain(caption)).
		Filename(filepath.Base(path))
	if mime, err := mimetype.DetectFile(path); err == nil {
		doc = doc.MIME(mime.String())
	}
	if _, err := t.sender.To(input).Media(ctx, doc); err != nil {
		return errors.Wrap(err, "send file")
	}
	return nil
}

func (t *Telegram) SendText(ctx context.Context, to Peer, text string) (int, error) {
	input, err := inputOf(to)
	if err != nil {
		return 0, err
	}
	upd, err := t.sender.To(input).Text(ctx, text)
	if err != nil {
		return 0, errors.Wrap(err, "send text")
	}
	return sentMessageID(upd), nil
}

func (t *Telegram) EditText(ctx context.Context, to Peer, msgID int, text string) error {
	input, err := inputOf(to)
	if err != nil {
		return err
	}
	req := &tg.MessagesEditMessageRequest{Peer: input, ID: msgID}
	req.SetMessage(text)
	if _, err := t.api.MessagesEditMessage(ctx, req); err != nil {
		return errors.Wrap(err, "edit message")
	}
	return nil
}

// inputFromChat maps the invite preview's chat object onto the input
// peer the rest of the resolution path expects.
func inputFromChat(chat tg.ChatClass) (tg.InputPeerClass, error) {
	switch c := chat.(type) {
	case *tg.Chat:
		return &tg.InputPeerChat{ChatID: c.ID}, nil
	case *tg.Channel:
		return &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}, nil
	default:
		return nil, errors.Errorf("unexpected chat type %T", chat)
	}
}

// chunkProgress adapts the uploader's chunk hook to ProgressFunc.
type chunkProgress struct {
	fn ProgressFunc
}

func (p chunkProgress) Chunk(_ context.Context, state uploader.ProgressState) error {
	if p.fn != nil {
		p.fn(state.Uploaded, state.Total)
	}
	return nil
}

func sanitizeName(name string) string {
	if name == "" {
		return "file"
	}
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

func sentMessageID(updates tg.UpdatesClass) int {
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID
	case *tg.Updates:
		for _, upd := range u.Updates {
			switch v := upd.(type) {
			case *tg.UpdateMessageID:
				return v.ID
			case *tg.UpdateNewMessage:
				if m, ok := v.Message.(*tg.Message); ok {
					return m.ID
				}
			}
		}
	}
	return 0
}
