package bot

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// Kind enumerates the closed set of inbound commands. Every inbound
// text parses to exactly one Kind, so routing is a total function
// instead of a pile of overlapping regexps.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindHelp
	KindClaimOwner
	KindAddAdmin
	KindRemoveAdmin
	KindAdminList
	KindAddWhitelist
	KindRemoveWhitelist
	KindWhitelist
	KindStats
	KindScrap
	KindBareNumber
)

// Command is one parsed inbound line.
type Command struct {
	Kind Kind
	ID   int64  // AddAdmin, RemoveAdmin, AddWhitelist, RemoveWhitelist
	N    int    // BareNumber
	Arg  string // Scrap: everything after the command word
	Err  error  // argument parse failure, reported by the handler
	Raw  string
}

var errBadID = errors.New("argument must be a numeric user id")

// ParseCommand classifies one inbound message in a single pass.
func ParseCommand(text string) Command {
	raw := strings.TrimSpace(text)
	cmd := Command{Kind: KindUnrecognized, Raw: raw}
	if raw == "" {
		return cmd
	}

	if isDigits(raw) {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return cmd
		}
		cmd.Kind = KindBareNumber
		cmd.N = n
		return cmd
	}

	if !strings.HasPrefix(raw, ".") {
		return cmd
	}
	word, rest, _ := strings.Cut(raw, " ")
	rest = strings.TrimSpace(rest)

	switch word {
	case ".help":
		cmd.Kind = KindHelp
	case ".claim_owner":
		cmd.Kind = KindClaimOwner
	case ".add_admin":
		cmd.Kind = KindAddAdmin
		cmd.ID, cmd.Err = parseID(rest)
	case ".remove_admin":
		cmd.Kind = KindRemoveAdmin
		cmd.ID, cmd.Err = parseID(rest)
	case ".adminlist":
		cmd.Kind = KindAdminList
	case ".add_whitelist":
		cmd.Kind = KindAddWhitelist
		cmd.ID, cmd.Err = parseID(rest)
	case ".remove_whitelist":
		cmd.Kind = KindRemoveWhitelist
		cmd.ID, cmd.Err = parseID(rest)
	case ".whitelist":
		cmd.Kind = KindWhitelist
	case ".stats":
		cmd.Kind = KindStats
	case ".scrap":
		cmd.Kind = KindScrap
		cmd.Arg = rest
	}
	return cmd
}

func parseID(s string) (int64, error) {
	if s == "" || !isDigits(s) {
		return 0, errBadID
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errBadID
	}
	return id, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
