// Package acl implements the authorization model: a single owner, an
// admin set, a whitelist, and a per-user usage quota for everyone
// below admin. Decisions are pure functions of the persisted state;
// every mutation goes through the storage update boundary.
package acl

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-faster/errors"

	"github.com/ayvex/tgscrap/pkg/storage"
)

var (
	ErrNotOwner           = errors.New("owner only")
	ErrNotAdmin           = errors.New("admin only")
	ErrNotWhitelisted     = errors.New("not whitelisted")
	ErrOwnerSet           = errors.New("owner already set")
	ErrOwnerRedundant     = errors.New("owner is already admin")
	ErrAlreadyAdmin       = errors.New("already an admin")
	ErrAlreadyWhitelisted = errors.New("already whitelisted")
	ErrNotFound           = errors.New("not in list")
	ErrQuota              = errors.New("usage limit reached")
)

// Controller evaluates roles and quotas against the store.
type Controller struct {
	store *storage.Store
	limit int
	now   func() time.Time
}

// New returns a Controller enforcing the given non-admin usage limit.
func New(store *storage.Store, limit int) *Controller {
	return &Controller{store: store, limit: limit, now: time.Now}
}

func (c *Controller) IsOwner(id int64) bool {
	var ok bool
	c.store.View(func(st *storage.State) {
		ok = st.OwnerID != 0 && st.OwnerID == id
	})
	return ok
}

// IsAdmin reports admin rights. The owner is always an admin.
func (c *Controller) IsAdmin(id int64) bool {
	var ok bool
	c.store.View(func(st *storage.State) {
		ok = contains(st.Admins, id)
	})
	return ok || c.IsOwner(id)
}

// IsWhitelisted reports relay access. Admins and the owner are always
// whitelisted.
func (c *Controller) IsWhitelisted(id int64) bool {
	var ok bool
	c.store.View(func(st *storage.State) {
		ok = contains(st.Whitelist, id)
	})
	return ok || c.IsAdmin(id)
}

// ClaimOwner sets id as the owner if none is set. A second claim is
// rejected with ErrOwnerSet regardless of who makes it.
func (c *Controller) ClaimOwner(id int64) error {
	return c.store.Update(func(st *storage.State) error {
		if st.OwnerID != 0 {
			return ErrOwnerSet
		}
		st.OwnerID = id
		return nil
	})
}

// AddAdmin grants admin to id. Caller must be the owner.
func (c *Controller) AddAdmin(caller, id int64) error {
	if !c.IsOwner(caller) {
		return ErrNotOwner
	}
	return c.store.Update(func(st *storage.State) error {
		if id == st.OwnerID {
			return ErrOwnerRedundant
		}
		if contains(st.Admins, id) {
			return ErrAlreadyAdmin
		}
		st.Admins = append(st.Admins, id)
		return nil
	})
}

// RemoveAdmin revokes admin from id. Caller must be the owner.
func (c *Controller) RemoveAdmin(caller, id int64) error {
	if !c.IsOwner(caller) {
		return ErrNotOwner
	}
	return c.store.Update(func(st *storage.State) error {
		if !contains(st.Admins, id) {
			return ErrNotFound
		}
		st.Admins = remove(st.Admins, id)
		return nil
	})
}

// AddWhitelist grants relay access to id. Caller must be admin or owner.
func (c *Controller) AddWhitelist(caller, id int64) error {
	if !c.IsAdmin(caller) {
		return ErrNotAdmin
	}
	return c.store.Update(func(st *storage.State) error {
		if contains(st.Whitelist, id) {
			return ErrAlreadyWhitelisted
		}
		st.Whitelist = append(st.Whitelist, id)
		return nil
	})
}

// RemoveWhitelist revokes relay access from id. Caller must be admin
// or owner.
func (c *Controller) RemoveWhitelist(caller, id int64) error {
	if !c.IsAdmin(caller) {
		return ErrNotAdmin
	}
	return c.store.Update(func(st *storage.State) error {
		if !contains(st.Whitelist, id) {
			return ErrNotFound
		}
		st.Whitelist = remove(st.Whitelist, id)
		return nil
	})
}

// CheckAndConsumeQuota authorizes one relay attempt. Admins and the
// owner pass without counting. Anyone else must be whitelisted, and
// their usage counter advances on every attempt, including the ones
// rejected for exceeding the limit: the count records attempts, not
// successes, so hammering the boundary never gains a free slot.
func (c *Controller) CheckAndConsumeQuota(id int64) error {
	if c.IsAdmin(id) {
		return nil
	}
	if !c.IsWhitelisted(id) {
		return ErrNotWhitelisted
	}
	var after int
	err := c.store.Update(func(st *storage.State) error {
		u := ensureUser(st, id, "", c.now().Unix())
		u.UsageCount++
		after = u.UsageCount
		return nil
	})
	if err != nil {
		return err
	}
	if after > c.limit {
		return ErrQuota
	}
	return nil
}

// Limit returns the configured non-admin usage limit.
func (c *Controller) Limit() int { return c.limit }

// RecordUser creates or refreshes the user record for id. FirstSeen is
// immutable after creation; Name and LastSeen are last-write-wins.
func (c *Controller) RecordUser(id int64, name string) error {
	return c.store.Update(func(st *storage.State) error {
		now := c.now().Unix()
		u := ensureUser(st, id, name, now)
		if name != "" {
			u.Name = name
		}
		u.LastSeen = now
		return nil
	})
}

// FormatID renders an identifier with its recorded display name when
// one is known, matching the reply formatting used everywhere.
func (c *Controller) FormatID(id int64) string {
	if id == 0 {
		return "None"
	}
	var name string
	c.store.View(func(st *storage.State) {
		if u := st.Users[strconv.FormatInt(id, 10)]; u != nil {
			name = u.Name
		}
	})
	if name != "" {
		return fmt.Sprintf("%s (`%d`)", name, id)
	}
	return fmt.Sprintf("`%d`", id)
}

// Snapshot is the .stats payload.
type Snapshot struct {
	OwnerID    int64
	TotalUsers int
	Top        []TopUser
	Admins     []int64
	Whitelist  []int64
}

// TopUser is one row of the usage leaderboard.
type TopUser struct {
	ID    int64
	Name  string
	Usage int
}

// Stats returns the owner, the user count, the top ten users by usage,
// and both role lists.
func (c *Controller) Stats() Snapshot {
	var snap Snapshot
	c.store.View(func(st *storage.State) {
		snap.OwnerID = st.OwnerID
		snap.TotalUsers = len(st.Users)
		snap.Admins = append([]int64{}, st.Admins...)
		snap.Whitelist = append([]int64{}, st.Whitelist...)
		for key, u := range st.Users {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			snap.Top = append(snap.Top, TopUser{ID: id, Name: u.Name, Usage: u.UsageCount})
		}
	})
	sort.Slice(snap.Top, func(i, j int) bool {
		if snap.Top[i].Usage != snap.Top[j].Usage {
			return snap.Top[i].Usage > snap.Top[j].Usage
		}
		return snap.Top[i].ID < snap.Top[j].ID
	})
	if len(snap.Top) > 10 {
		snap.Top = snap.Top[:10]
	}
	return snap
}

// Admins returns the current admin list.
func (c *Controller) Admins() []int64 {
	var out []int64
	c.store.View(func(st *storage.State) {
		out = append([]int64{}, st.Admins...)
	})
	return out
}

// Whitelist returns the current whitelist.
func (c *Controller) Whitelist() []int64 {
	var out []int64
	c.store.View(func(st *storage.State) {
		out = append([]int64{}, st.Whitelist...)
	})
	return out
}

func ensureUser(st *storage.State, id int64, name string, now int64) *storage.User {
	key := strconv.FormatInt(id, 10)
	u, ok := st.Users[key]
	if !ok {
		u = &storage.User{Name: name, FirstSeen: now, LastSeen: now}
		st.Users[key] = u
	}
	return u
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
