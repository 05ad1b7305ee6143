package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ayvex/tgscrap/pkg/acl"
	"github.com/ayvex/tgscrap/pkg/relay"
	"github.com/ayvex/tgscrap/pkg/tlink"
)

const helpText = "Available commands (prefix is a dot `.`):\n\n" +
	"owner/admin:\n" +
	" .claim_owner               - claim ownership if none set (one-time)\n" +
	" .add_admin <id>            - owner only\n" +
	" .remove_admin <id>         - owner only\n" +
	" .adminlist                 - show admins (owner/admin only)\n\n" +
	"whitelist:\n" +
	" .add_whitelist <id>        - admins only\n" +
	" .remove_whitelist <id>     - admins only\n" +
	" .whitelist                 - show whitelist (admins only)\n\n" +
	"usage & info:\n" +
	" .help                      - show this help\n" +
	" .stats                     - owner only; show users & usage stats\n" +
	" .scrap <t.me link>         - fetch messages the logged-in account can access"

// Handle routes one inbound text from one sender. Dispatch is
// unconditional; authorization happens inside each branch. Any error
// is reported to the sender, never allowed to take down the
// dispatcher.
func (b *Bot) Handle(ctx context.Context, from Sender, text string) {
	// Every observed sender gets a user record, command or not.
	if err := b.acl.RecordUser(from.ID, from.Name); err != nil {
		b.log.Warn("record user", zap.Int64("id", from.ID), zap.Error(err))
	}

	cmd := ParseCommand(text)
	if cmd.Kind == KindUnrecognized {
		return
	}
	if cmd.Kind != KindBareNumber {
		b.actions.Record(from.Name, from.ID, cmd.Raw)
	}

	switch cmd.Kind {
	case KindHelp:
		b.reply(ctx, from, helpText)
	case KindClaimOwner:
		b.handleClaimOwner(ctx, from)
	case KindAddAdmin:
		b.handleAddAdmin(ctx, from, cmd)
	case KindRemoveAdmin:
		b.handleRemoveAdmin(ctx, from, cmd)
	case KindAdminList:
		b.handleAdminList(ctx, from)
	case KindAddWhitelist:
		b.handleAddWhitelist(ctx, from, cmd)
	case KindRemoveWhitelist:
		b.handleRemoveWhitelist(ctx, from, cmd)
	case KindWhitelist:
		b.handleWhitelistList(ctx, from)
	case KindStats:
		b.handleStats(ctx, from)
	case KindScrap:
		b.handleScrap(ctx, from, cmd.Arg)
	case KindBareNumber:
		b.handleCount(ctx, from, cmd.N)
	}
}

func (b *Bot) handleClaimOwner(ctx context.Context, from Sender) {
	err := b.acl.ClaimOwner(from.ID)
	switch {
	case errors.Is(err, acl.ErrOwnerSet):
		b.reply(ctx, from, fmt.Sprintf("Owner already set to %s.", b.acl.FormatID(b.acl.Stats().OwnerID)))
	case err != nil:
		b.replyErr(ctx, from, err)
	default:
		b.reply(ctx, from, fmt.Sprintf("You (%s) are now the owner.", b.acl.FormatID(from.ID)))
	}
}

func (b *Bot) handleAddAdmin(ctx context.Context, from Sender, cmd Command) {
	if cmd.Err != nil {
		b.reply(ctx, from, "Send a numeric user id, like: .add_admin 123456789")
		return
	}
	err := b.acl.AddAdmin(from.ID, cmd.ID)
	switch {
	case errors.Is(err, acl.ErrNotOwner):
		b.reply(ctx, from, "Only the owner can add admins.")
	case errors.Is(err, acl.ErrOwnerRedundant):
		b.reply(ctx, from, "Owner is already admin.")
	case errors.Is(err, acl.ErrAlreadyAdmin):
		b.reply(ctx, from, "This user is already an admin.")
	case err != nil:
		b.replyErr(ctx, from, err)
	default:
		b.reply(ctx, from, "Added admin: "+b.acl.FormatID(cmd.ID))
	}
}

func (b *Bot) handleRemoveAdmin(ctx context.Context, from Sender, cmd Command) {
	if cmd.Err != nil {
		b.reply(ctx, from, "Send a numeric user id, like: .remove_admin 123456789")
		return
	}
	err := b.acl.RemoveAdmin(from.ID, cmd.ID)
	switch {
	case errors.Is(err, acl.ErrNotOwner):
		b.reply(ctx, from, "Only the owner can remove admins.")
	case errors.Is(err, acl.ErrNotFound):
		b.reply(ctx, from, "That user was not an admin.")
	case err != nil:
		b.replyErr(ctx, from, err)
	default:
		b.reply(ctx, from, "Removed admin: "+b.acl.FormatID(cmd.ID))
	}
}

func (b *Bot) handleAdminList(ctx context.Context, from Sender) {
	if !b.acl.IsAdmin(from.ID) {
		b.reply(ctx, from, "Admins only.")
		return
	}
	b.reply(ctx, from, "Admins:\n"+b.formatIDList(b.acl.Admins(), "No admins set."))
}

func (b *Bot) handleAddWhitelist(ctx context.Context, from Sender, cmd Command) {
	if cmd.Err != nil {
		b.reply(ctx, from, "Send a numeric user id, like: .add_whitelist 123456789")
		return
	}
	err := b.acl.AddWhitelist(from.ID, cmd.ID)
	switch {
	case errors.Is(err, acl.ErrNotAdmin):
		b.reply(ctx, from, "Only admins can add to whitelist.")
	case errors.Is(err, acl.ErrAlreadyWhitelisted):
		b.reply(ctx, from, "Already whitelisted.")
	case err != nil:
		b.replyErr(ctx, from, err)
	default:
		b.reply(ctx, from, "Whitelisted "+b.acl.FormatID(cmd.ID))
	}
}

func (b *Bot) handleRemoveWhitelist(ctx context.Context, from Sender, cmd Command) {
	if cmd.Err != nil {
		b.reply(ctx, from, "Send a numeric user id, like: .remove_whitelist 123456789")
		return
	}
	err := b.acl.RemoveWhitelist(from.ID, cmd.ID)
	switch {
	case errors.Is(err, acl.ErrNotAdmin):
		b.reply(ctx, from, "Only admins can remove from whitelist.")
	case errors.Is(err, acl.ErrNotFound):
		b.reply(ctx, from, "That user is not whitelisted.")
	case err != nil:
		b.replyErr(ctx, from, err)
	default:
		b.reply(ctx, from, "Removed from whitelist: "+b.acl.FormatID(cmd.ID))
	}
}

func (b *Bot) handleWhitelistList(ctx context.Context, from Sender) {
	if !b.acl.IsAdmin(from.ID) {
		b.reply(ctx, from, "Admins only.")
		return
	}
	b.reply(ctx, from, "Whitelist:\n"+b.formatIDList(b.acl.Whitelist(), "Whitelist is empty."))
}

func (b *Bot) handleStats(ctx context.Context, from Sender) {
	if !b.acl.IsOwner(from.ID) {
		b.reply(ctx, from, "Only the owner can view stats.")
		return
	}
	snap := b.acl.Stats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Bot Stats\n\nOwner: %s\n", b.acl.FormatID(snap.OwnerID))
	fmt.Fprintf(&sb, "Total users recorded: %d\n\nTop users by usage:\n", snap.TotalUsers)
	if len(snap.Top) == 0 {
		sb.WriteString("None\n")
	}
	for _, u := range snap.Top {
		name := u.Name
		if name == "" {
			name = "<no name>"
		}
		fmt.Fprintf(&sb, "- %s (`%d`): %d\n", name, u.ID, u.Usage)
	}
	fmt.Fprintf(&sb, "\nAdmins:\n%s\n\nWhitelist:\n%s",
		b.formatIDList(snap.Admins, "No admins set."),
		b.formatIDList(snap.Whitelist, "Whitelist is empty."))
	b.reply(ctx, from, sb.String())
}

// handleScrap starts or resumes the two-phase relay flow: authorize,
// consume quota, then either store the target and ask for a count or
// ask for a link.
func (b *Bot) handleScrap(ctx context.Context, from Sender, arg string) {
	if !b.acl.IsWhitelisted(from.ID) {
		b.reply(ctx, from, "You are not whitelisted. Contact an admin to get access.")
		return
	}
	if err := b.acl.CheckAndConsumeQuota(from.ID); err != nil {
		if errors.Is(err, acl.ErrQuota) {
			b.reply(ctx, from, fmt.Sprintf("Usage limit reached (%d). Contact an admin.", b.acl.Limit()))
		} else {
			b.replyErr(ctx, from, err)
		}
		return
	}

	if arg == "" {
		b.pending.AwaitLink(from.ID)
		b.reply(ctx, from, "Send the t.me message link (like `https://t.me/channel/123`) you want to fetch from.")
		return
	}

	link, err := tlink.Parse(arg)
	if err != nil {
		b.reply(ctx, from, "Couldn't parse t.me link. Send like: https://t.me/channelname/123 or https://t.me/c/1234567/123")
		return
	}
	if link.Kind == tlink.Invite {
		if err := b.client.JoinInvite(ctx, link.Invite); err != nil {
			// Non-fatal: the account may already have access.
			b.reply(ctx, from, fmt.Sprintf("Warning: could not auto-join: %v\nPlease join manually if needed.", err))
		}
	}

	b.pending.AwaitCount(from.ID, link)
	b.reply(ctx, from, "How many messages (including this one) should I fetch? Reply with a number (e.g. 10).")
}

// handleCount completes the flow when a pending requester replies with
// a bare number. A number from anyone without a pending entry is
// silently ignored; it simply isn't part of this protocol for them.
func (b *Bot) handleCount(ctx context.Context, from Sender, n int) {
	link, hasTarget, ok := b.pending.Take(from.ID)
	if !ok {
		return
	}
	if !hasTarget {
		b.reply(ctx, from, "No link pending. Start again with `.scrap <link>`.")
		return
	}
	b.actions.Record(from.Name, from.ID, fmt.Sprintf(".scrap count=%d %s/%d", n, link.String(), link.MsgID))
	b.reply(ctx, from, fmt.Sprintf("Starting fetch: %d messages from %s starting at %d ...", n, link.String(), link.MsgID))

	res, err := b.engine.Run(ctx, relay.Request{To: from.Peer, Link: link, Count: n})
	if err != nil {
		b.log.Warn("relay aborted",
			zap.Int64("requester", from.ID), zap.Error(err))
		return
	}
	b.log.Info("relay finished",
		zap.Int64("requester", from.ID),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
}

func (b *Bot) formatIDList(ids []int64, empty string) string {
	if len(ids) == 0 {
		return empty
	}
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, "- "+b.acl.FormatID(id))
	}
	return strings.Join(lines, "\n")
}
