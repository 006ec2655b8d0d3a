// Package store persists personas, the tombstone set, and settings in an
// encrypted zstore vault.
//
// The persona collection is written as a single record so a reader never
// observes a partially written collection.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/zfill/internal/persona"
)

const (
	stateCollection  = "state"
	configCollection = "config"

	keyPersonas     = "personas"
	keyTombstones   = "deletedAliasIds"
	keySyncToRemote = "syncPersonasToRemote"
	keySimpleLogin  = "simplelogin"
)

// ErrNotFound is returned when a persona does not exist.
var ErrNotFound = errors.New("persona not found")

// ErrWrongPassword is returned when the vault cannot be unlocked.
var ErrWrongPassword = errors.New("wrong password")

// record wraps a JSON value with its key so a whole collection can be read
// in one List call.
type record struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Snapshot is a consistent read of everything a reconciliation run needs.
type Snapshot struct {
	Personas     []persona.Saved
	Tombstones   persona.Tombstones
	SyncToRemote bool
}

// Settings holds provider credentials kept in the vault.
type Settings struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
}

// Configured reports whether an API key is present.
func (s Settings) Configured() bool {
	return s.APIKey != ""
}

// Store is the vault-backed repository.
type Store struct {
	mu     sync.Mutex
	vault  *zstore.Store
	state  *zstore.Collection[record]
	config *zstore.Collection[record]
}

// Open unlocks or initializes the vault on fsys. The password bytes are
// wiped before Open returns.
func Open(fsys zfilesystem.ReadWriteFileFS, password []byte) (*Store, error) {
	defer zcrypto.Erase(password)

	v, err := zstore.Open(fsys, password)
	if err != nil {
		if errors.Is(err, zstore.ErrWrongPassword) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("open store: %w", err)
	}

	state, err := zstore.NewCollection[record](v, stateCollection)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("open store: %s collection: %w", stateCollection, err)
	}

	config, err := zstore.NewCollection[record](v, configCollection)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("open store: %s collection: %w", configCollection, err)
	}

	return &Store{vault: v, state: state, config: config}, nil
}

// Close locks the vault.
func (s *Store) Close() {
	s.vault.Close()
}

// Snapshot reads personas, tombstones, and the push flag together.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() (Snapshot, error) {
	recs, err := s.state.List()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	snap := Snapshot{Tombstones: persona.Tombstones{}}
	for _, r := range recs {
		switch r.Key {
		case keyPersonas:
			if err := json.Unmarshal(r.Data, &snap.Personas); err != nil {
				return Snapshot{}, fmt.Errorf("snapshot: decode personas: %w", err)
			}
		case keyTombstones:
			var ids []int64
			if err := json.Unmarshal(r.Data, &ids); err != nil {
				return Snapshot{}, fmt.Errorf("snapshot: decode tombstones: %w", err)
			}
			snap.Tombstones = persona.NewTombstones(ids)
		case keySyncToRemote:
			if err := json.Unmarshal(r.Data, &snap.SyncToRemote); err != nil {
				return Snapshot{}, fmt.Errorf("snapshot: decode sync flag: %w", err)
			}
		}
	}

	return snap, nil
}

// Personas returns the saved persona collection in stored order.
func (s *Store) Personas() ([]persona.Saved, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Personas, nil
}

// Tombstones returns the tombstone set.
func (s *Store) Tombstones() (persona.Tombstones, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Tombstones, nil
}

// SavePersonas replaces the whole persona collection in one write.
func (s *Store) SavePersonas(ps []persona.Saved) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(s.state, keyPersonas, ps)
}

// Update runs fn against a fresh snapshot and writes the persona collection
// it returns, holding the store lock throughout. When fn reports false
// nothing is written.
func (s *Store) Update(fn func(Snapshot) ([]persona.Saved, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	next, write := fn(snap)
	if !write {
		return nil
	}
	if err := s.put(s.state, keyPersonas, next); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// AddPersona appends a persona. IDs must be unique.
func (s *Store) AddPersona(p persona.Saved) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return fmt.Errorf("add persona: %w", err)
	}

	for _, existing := range snap.Personas {
		if existing.ID == p.ID {
			return fmt.Errorf("add persona: duplicate id %s", p.ID)
		}
	}

	if err := s.put(s.state, keyPersonas, append(snap.Personas, p)); err != nil {
		return fmt.Errorf("add persona: %w", err)
	}
	return nil
}

// Get returns one persona by ID.
func (s *Store) Get(id string) (persona.Saved, error) {
	ps, err := s.Personas()
	if err != nil {
		return persona.Saved{}, err
	}
	for _, p := range ps {
		if p.ID == id {
			return p, nil
		}
	}
	return persona.Saved{}, ErrNotFound
}

// Forget deletes a persona. A linked persona's alias id is tombstoned first,
// so an interrupted delete can leave the persona behind but never lets the
// alias come back.
func (s *Store) Forget(id string) (persona.Saved, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return persona.Saved{}, fmt.Errorf("forget %s: %w", id, err)
	}

	idx := slices.IndexFunc(snap.Personas, func(p persona.Saved) bool { return p.ID == id })
	if idx < 0 {
		return persona.Saved{}, ErrNotFound
	}
	gone := snap.Personas[idx]

	if aliasID, ok := gone.AliasID(); ok && !snap.Tombstones.Has(aliasID) {
		snap.Tombstones[aliasID] = struct{}{}
		if err := s.put(s.state, keyTombstones, snap.Tombstones.IDs()); err != nil {
			return persona.Saved{}, fmt.Errorf("forget %s: tombstone: %w", id, err)
		}
	}

	rest := slices.Delete(slices.Clone(snap.Personas), idx, idx+1)
	if err := s.put(s.state, keyPersonas, rest); err != nil {
		return persona.Saved{}, fmt.Errorf("forget %s: %w", id, err)
	}

	return gone, nil
}

// Restore removes an alias id from the tombstone set so the next sync may
// create a persona for it again. It reports whether the id was present.
func (s *Store) Restore(aliasID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return false, fmt.Errorf("restore %d: %w", aliasID, err)
	}
	if !snap.Tombstones.Has(aliasID) {
		return false, nil
	}

	delete(snap.Tombstones, aliasID)
	if err := s.put(s.state, keyTombstones, snap.Tombstones.IDs()); err != nil {
		return false, fmt.Errorf("restore %d: %w", aliasID, err)
	}
	return true, nil
}

// SetSyncToRemote stores the flag gating the one-way note push.
func (s *Store) SetSyncToRemote(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(s.state, keySyncToRemote, on)
}

// Settings loads provider settings. Missing settings are the zero value.
func (s *Store) Settings() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.config.List()
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	var st Settings
	for _, r := range recs {
		if r.Key != keySimpleLogin {
			continue
		}
		if err := json.Unmarshal(r.Data, &st); err != nil {
			return Settings{}, fmt.Errorf("load settings: %w", err)
		}
	}
	return st, nil
}

// SaveSettings persists provider settings.
func (s *Store) SaveSettings(st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(s.config, keySimpleLogin, st)
}

func (s *Store) put(col *zstore.Collection[record], key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := col.Put(key, record{Key: key, Data: data}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
