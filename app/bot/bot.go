// Package bot wires inbound Telegram updates to the command handlers:
// one dispatcher, a closed command grammar, per-sender pending state,
// and the relay engine behind it.
package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/ayvex/tgscrap/pkg/acl"
	"github.com/ayvex/tgscrap/pkg/actionlog"
	"github.com/ayvex/tgscrap/pkg/relay"
	"github.com/ayvex/tgscrap/pkg/tclient"
)

// Sender identifies the author of an inbound message and how to reach
// them with replies.
type Sender struct {
	ID   int64
	Name string
	Peer tclient.Peer
}

// Bot owns the handler state. All fields are injected; there is no
// package-level mutable state.
type Bot struct {
	client  tclient.Client
	acl     *acl.Controller
	pending *Tracker
	engine  *relay.Engine
	actions *actionlog.Log
	log     *zap.Logger
}

// New assembles a Bot.
func New(client tclient.Client, ctrl *acl.Controller, engine *relay.Engine, actions *actionlog.Log, lg *zap.Logger) *Bot {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Bot{
		client:  client,
		acl:     ctrl,
		pending: NewTracker(),
		engine:  engine,
		actions: actions,
		log:     lg.Named("bot"),
	}
}

// Attach registers the bot on the update dispatcher. Each inbound
// private message is handled on its own goroutine so a long relay
// never blocks the dispatcher from accepting further updates.
func (b *Bot) Attach(d tg.UpdateDispatcher) {
	d.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		m, ok := u.Message.(*tg.Message)
		if !ok || m.Out {
			return nil
		}
		peer, ok := m.PeerID.(*tg.PeerUser)
		if !ok {
			// Group and channel traffic is not command input.
			return nil
		}
		user, ok := e.Users[peer.UserID]
		if !ok {
			return nil
		}

		from := Sender{
			ID:   user.ID,
			Name: displayName(user),
			Peer: tclient.UserPeer(user.ID, user.AccessHash),
		}
		go b.Handle(ctx, from, m.Message)
		return nil
	})
}

// reply sends text to the sender, logging (not propagating) failures
// so one broken reply cannot crash a handler.
func (b *Bot) reply(ctx context.Context, to Sender, text string) {
	if _, err := b.client.SendText(ctx, to.Peer, text); err != nil {
		b.log.Warn("reply failed", zap.Int64("to", to.ID), zap.Error(err))
	}
}

func (b *Bot) replyErr(ctx context.Context, to Sender, err error) {
	b.log.Warn("handler error", zap.Int64("from", to.ID), zap.Error(err))
	b.reply(ctx, to, "Something went wrong: "+err.Error())
}

func displayName(u *tg.User) string {
	if u.Username != "" {
		return u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return name
}
