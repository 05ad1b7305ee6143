// Package storage persists the role registry and per-user usage
// records as a single JSON document. Saves are atomic (temp file plus
// rename) and loads self-heal: a missing or corrupt file is replaced
// with a fresh empty state instead of failing the caller.
package storage

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// User is one observed account. FirstSeen is set on creation and never
// changed; Name and LastSeen follow the most recent message.
type User struct {
	Name       string `json:"name"`
	FirstSeen  int64  `json:"first_seen"`
	LastSeen   int64  `json:"last_seen"`
	UsageCount int    `json:"usage_count"`
}

// State is the full persisted document. Unknown fields in the file are
// ignored and missing fields keep their zero values, so old files stay
// readable as the schema grows.
type State struct {
	OwnerID   int64            `json:"owner_id"`
	Admins    []int64          `json:"admins"`
	Whitelist []int64          `json:"whitelist"`
	Users     map[string]*User `json:"users"`
}

func newState() *State {
	return &State{
		Admins:    []int64{},
		Whitelist: []int64{},
		Users:     map[string]*User{},
	}
}

func (s *State) normalize() {
	if s.Admins == nil {
		s.Admins = []int64{}
	}
	if s.Whitelist == nil {
		s.Whitelist = []int64{}
	}
	if s.Users == nil {
		s.Users = map[string]*User{}
	}
}

// Store owns the state behind a mutex. All access goes through View or
// Update so concurrent handlers never interleave read-modify-write.
type Store struct {
	mu    sync.Mutex
	path  string
	state *State
	log   *zap.Logger
}

// Open loads the state file at path. A missing or unreadable file is
// replaced by an empty state which is persisted immediately; this is
// logged but never returned as an error.
func Open(path string, lg *zap.Logger) (*Store, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Store{path: path, log: lg.Named("storage")}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("state file unreadable, reinitializing", zap.Error(err))
		}
		s.state = newState()
		return s, s.save()
	}

	st := newState()
	if err := json.Unmarshal(b, st); err != nil {
		s.log.Warn("state file corrupt, reinitializing; previous data is lost",
			zap.String("path", path), zap.Error(err))
		s.state = newState()
		return s, s.save()
	}
	st.normalize()
	s.state = st
	return s, nil
}

// View runs fn with the state under the lock. fn must not retain the
// pointer or mutate through it.
func (s *Store) View(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Update runs fn with the state under the lock and persists the result
// when fn returns nil. An error from fn aborts without saving, leaving
// any in-memory mutation visible; mutating and then failing is a
// caller bug.
func (s *Store) Update(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.state); err != nil {
		return err
	}
	return s.save()
}

// save writes the state atomically: marshal to path+".tmp", then
// rename over the canonical file. A crash mid-write leaves the
// previously committed file intact. Caller holds the mutex.
func (s *Store) save() error {
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "write temp state")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "replace state")
	}
	return nil
}
