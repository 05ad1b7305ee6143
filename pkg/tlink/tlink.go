// Package tlink parses t.me message locators out of free text.
//
// Three shapes are recognized:
//
//	t.me/channelname/123   public or named container
//	t.me/c/1234567/123     private channel, addressed by -100 id
//	t.me/+AbCdEf/123       invite link, requires a join before access
package tlink

import (
	"regexp"
	"strconv"

	"github.com/go-faster/errors"
)

// ErrNotLink is returned when the text contains no recognizable
// t.me message locator.
var ErrNotLink = errors.New("no t.me message link found")

// Kind discriminates the three locator shapes.
type Kind int

const (
	// Public is a named (or bare numeric) container addressed as-is.
	Public Kind = iota
	// Private is a t.me/c/ channel addressed by its -100 prefixed id.
	Private
	// Invite is an opaque invite credential; the container must be
	// joined before it can be addressed.
	Invite
)

// Link is a resolved locator: where to fetch from and which message
// anchors the window.
type Link struct {
	Kind   Kind
	Name   string // Public: container username or numeric token
	ChatID int64  // Private: internal -100 prefixed channel id
	Invite string // Invite: credential including the leading +
	MsgID  int
}

var linkRe = regexp.MustCompile(`(?i)(?:https?://)?t\.me/(c/|\+)?([\w-]+|\d+)/(\d+)`)

// Parse scans text for the first t.me message locator and returns it.
func Parse(text string) (Link, error) {
	m := linkRe.FindStringSubmatch(text)
	if m == nil {
		return Link{}, ErrNotLink
	}
	kind, chat := m[1], m[2]
	msgID, err := strconv.Atoi(m[3])
	if err != nil {
		return Link{}, ErrNotLink
	}

	switch kind {
	case "c/":
		raw, err := strconv.ParseInt("-100"+chat, 10, 64)
		if err != nil {
			return Link{}, ErrNotLink
		}
		return Link{Kind: Private, ChatID: raw, MsgID: msgID}, nil
	case "+":
		return Link{Kind: Invite, Invite: "+" + chat, MsgID: msgID}, nil
	default:
		return Link{Kind: Public, Name: chat, MsgID: msgID}, nil
	}
}

// String renders the container part of the link for user messages.
func (l Link) String() string {
	switch l.Kind {
	case Private:
		return strconv.FormatInt(l.ChatID, 10)
	case Invite:
		return l.Invite
	default:
		return l.Name
	}
}
