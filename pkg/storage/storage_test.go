package storage_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayvex/tgscrap/pkg/storage"
)

func open(t *testing.T, path string) *storage.Store {
	t.Helper()
	s, err := storage.Open(path, nil)
	require.NoError(t, err)
	return s
}

func TestOpenMissingFileCreatesEmptyState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := open(t, path)

	s.View(func(st *storage.State) {
		assert.Zero(t, st.OwnerID)
		assert.Empty(t, st.Admins)
		assert.Empty(t, st.Whitelist)
		assert.Empty(t, st.Users)
	})
	// Self-healing persists immediately.
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestOpenCorruptFileReinitializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := open(t, path)
	s.View(func(st *storage.State) {
		assert.Zero(t, st.OwnerID)
		assert.Empty(t, st.Users)
	})
}

func TestRoundTrip(t *testing.T) {
	for name, mutate := range map[string]func(*storage.State){
		"empty": func(*storage.State) {},
		"populated": func(st *storage.State) {
			st.OwnerID = 7941244038
			st.Admins = []int64{1, 2}
			st.Whitelist = []int64{3}
			st.Users["42"] = &storage.User{Name: "alice", FirstSeen: 100, LastSeen: 200, UsageCount: 5}
		},
		"thousand users": func(st *storage.State) {
			for i := 0; i < 1000; i++ {
				st.Users[fmt.Sprint(i)] = &storage.User{
					Name:       fmt.Sprintf("user%d", i),
					FirstSeen:  int64(i),
					LastSeen:   int64(i + 1),
					UsageCount: i % 11,
				}
			}
		},
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			s := open(t, path)
			require.NoError(t, s.Update(func(st *storage.State) error {
				mutate(st)
				return nil
			}))

			var want storage.State
			s.View(func(st *storage.State) { want = snapshot(st) })

			reloaded := open(t, path)
			reloaded.View(func(st *storage.State) {
				assert.Equal(t, want.OwnerID, st.OwnerID)
				assert.Equal(t, want.Admins, st.Admins)
				assert.Equal(t, want.Whitelist, st.Whitelist)
				assert.Equal(t, want.Users, st.Users)
			})
		})
	}
}

// An interrupted save leaves a temp file behind but must never touch
// the canonical file until the atomic rename.
func TestCrashBeforeRenameKeepsPriorState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := open(t, path)
	require.NoError(t, s.Update(func(st *storage.State) error {
		st.OwnerID = 7
		return nil
	}))

	// Simulate a crash mid-save: a half-written temp file exists.
	require.NoError(t, os.WriteFile(path+".tmp", []byte(`{"owner_id": 99, "adm`), 0o644))

	reloaded := open(t, path)
	reloaded.View(func(st *storage.State) {
		assert.Equal(t, int64(7), st.OwnerID)
	})
}

func TestUpdateErrorDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := open(t, path)
	require.NoError(t, s.Update(func(st *storage.State) error {
		st.OwnerID = 1
		return nil
	}))

	sentinel := fmt.Errorf("no")
	err := s.Update(func(st *storage.State) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	reloaded := open(t, path)
	reloaded.View(func(st *storage.State) {
		assert.Equal(t, int64(1), st.OwnerID)
	})
}

// Forward readability: unknown fields are ignored, missing fields
// default instead of failing the load.
func TestLoadToleratesUnknownAndMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	doc := `{"owner_id": 5, "future_field": {"x": 1}, "users": {"9": {"name": "bob"}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s := open(t, path)
	s.View(func(st *storage.State) {
		assert.Equal(t, int64(5), st.OwnerID)
		assert.NotNil(t, st.Admins)
		assert.NotNil(t, st.Whitelist)
		require.Contains(t, st.Users, "9")
		assert.Equal(t, "bob", st.Users["9"].Name)
		assert.Zero(t, st.Users["9"].UsageCount)
	})
}

func snapshot(st *storage.State) storage.State {
	out := storage.State{
		OwnerID:   st.OwnerID,
		Admins:    append([]int64{}, st.Admins...),
		Whitelist: append([]int64{}, st.Whitelist...),
		Users:     map[string]*storage.User{},
	}
	for k, v := range st.Users {
		u := *v
		out.Users[k] = &u
	}
	return out
}
