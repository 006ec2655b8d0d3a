// Package engine runs reconciliation against the vault and the alias
// provider. Every failure is recovered into a Report; nothing here is fatal.
package engine

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/reconcile"
	"github.com/zarlcorp/zfill/internal/simplelogin"
	"github.com/zarlcorp/zfill/internal/store"
)

// ErrNoAliases is reported when the provider returns an empty account.
// An empty listing usually means a wrong key or account, so it is not
// merged as a no-op.
var ErrNoAliases = errors.New("provider returned no aliases")

// ErrPushDisabled is reported when a push runs with the push flag off.
var ErrPushDisabled = errors.New("push to alias notes is turned off")

// Provider is the alias service.
type Provider interface {
	ListAliases(ctx context.Context, apiKey string) ([]simplelogin.Alias, error)
	UpdateAliasNote(ctx context.Context, apiKey string, aliasID int64, note string) (simplelogin.Alias, error)
	CreateRandomAlias(ctx context.Context, apiKey, hostname, note string) (simplelogin.Alias, error)
}

// Repository is the persistent store.
type Repository interface {
	Snapshot() (store.Snapshot, error)
	Update(fn func(store.Snapshot) ([]persona.Saved, bool)) error
	AddPersona(p persona.Saved) error
	Forget(id string) (persona.Saved, error)
	Restore(aliasID int64) (bool, error)
	SetSyncToRemote(on bool) error
}

// Status classifies how a run ended.
type Status int

const (
	StatusOK Status = iota
	StatusMissingCredential
	StatusProviderError
	StatusEmpty
	StatusStoreError
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMissingCredential:
		return "missing credential"
	case StatusProviderError:
		return "provider error"
	case StatusEmpty:
		return "empty"
	case StatusStoreError:
		return "store error"
	case StatusDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Report is the outcome of a sync run.
type Report struct {
	Status  Status
	Stats   reconcile.Stats
	Aliases int // aliases returned by the provider
	Total   int // personas after the run
	Err     error
}

// OK reports whether the run completed.
func (r Report) OK() bool {
	return r.Status == StatusOK
}

// Summary returns a one-line human-readable description of the run.
func (r Report) Summary() string {
	switch r.Status {
	case StatusOK:
		if r.Stats.Created == 0 && r.Stats.Updated == 0 {
			return fmt.Sprintf("synced %d aliases, already up to date", r.Aliases)
		}
		return fmt.Sprintf("synced %d aliases: %d created, %d updated", r.Aliases, r.Stats.Created, r.Stats.Updated)
	case StatusMissingCredential:
		return "no SimpleLogin API key configured"
	case StatusEmpty:
		return "SimpleLogin returned no aliases, check the API key"
	default:
		return fmt.Sprintf("sync failed: %v", r.Err)
	}
}

// Engine coordinates the store, the provider, and the generator.
type Engine struct {
	provider  Provider
	repo      Repository
	gen       reconcile.Generator
	newID     func() string
	now       func() time.Time
	log       *slog.Logger
	pushLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithGenerator sets the persona generator used for new aliases.
func WithGenerator(g reconcile.Generator) Option {
	return func(e *Engine) { e.gen = g }
}

// WithIDs sets the persona id source.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithClock sets the clock used for personas saved locally.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPushLimit bounds concurrent note updates during a push.
func WithPushLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pushLimit = n
		}
	}
}

// New creates an engine.
func New(p Provider, repo Repository, opts ...Option) *Engine {
	e := &Engine{
		provider:  p,
		repo:      repo,
		gen:       persona.New(),
		newID:     NewULIDSource(rand.Reader),
		now:       time.Now,
		log:       slog.Default(),
		pushLimit: 4,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NewULIDSource returns a goroutine-safe source of monotonic ULID strings.
func NewULIDSource(entropy io.Reader) func() string {
	var mu sync.Mutex
	mono := ulid.Monotonic(entropy, 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), mono).String()
	}
}

// Sync lists remote aliases and reconciles them into the vault. The local
// collection is written only when the run completes and changed something.
func (e *Engine) Sync(ctx context.Context, apiKey string) Report {
	log := e.log.With("op", "sync")

	if strings.TrimSpace(apiKey) == "" {
		log.Warn("sync skipped", "reason", "missing api key")
		return Report{Status: StatusMissingCredential, Err: simplelogin.ErrMissingCredential}
	}

	aliases, err := e.provider.ListAliases(ctx, apiKey)
	if err != nil {
		if errors.Is(err, simplelogin.ErrMissingCredential) {
			return Report{Status: StatusMissingCredential, Err: err}
		}
		log.Error("list aliases", "err", err)
		return Report{Status: StatusProviderError, Err: fmt.Errorf("sync: %w", err)}
	}

	if len(aliases) == 0 {
		log.Warn("sync found no aliases")
		return Report{Status: StatusEmpty, Err: ErrNoAliases}
	}

	var res reconcile.Result
	err = e.repo.Update(func(snap store.Snapshot) ([]persona.Saved, bool) {
		res = reconcile.Reconcile(snap.Personas, snap.Tombstones, aliases, e.gen, e.newID)
		return res.Personas, res.Changed()
	})
	if err != nil {
		log.Error("write personas", "err", err)
		return Report{Status: StatusStoreError, Err: fmt.Errorf("sync: %w", err)}
	}

	log.Info("sync complete",
		"aliases", len(aliases),
		"created", res.Stats.Created,
		"updated", res.Stats.Updated,
		"personas", len(res.Personas),
	)

	return Report{
		Status:  StatusOK,
		Stats:   res.Stats,
		Aliases: len(aliases),
		Total:   len(res.Personas),
	}
}

// Save persists a draft as an unlinked persona.
func (e *Engine) Save(d persona.Draft) (persona.Saved, error) {
	s := d.Save(e.newID(), e.now().UTC())
	if err := e.repo.AddPersona(s); err != nil {
		return persona.Saved{}, fmt.Errorf("save persona: %w", err)
	}
	return s, nil
}

// CreateLinked creates a random alias for the draft's domain and saves the
// draft linked to it, with the alias address as its email. When the push
// flag is on the alias note carries the persona; otherwise just the domain.
func (e *Engine) CreateLinked(ctx context.Context, apiKey string, d persona.Draft) (persona.Saved, error) {
	if strings.TrimSpace(apiKey) == "" {
		return persona.Saved{}, simplelogin.ErrMissingCredential
	}

	snap, err := e.repo.Snapshot()
	if err != nil {
		return persona.Saved{}, fmt.Errorf("create linked persona: %w", err)
	}

	s := d.Save(e.newID(), e.now().UTC())

	note := d.Domain
	if snap.SyncToRemote {
		if note, err = Note(s); err != nil {
			return persona.Saved{}, fmt.Errorf("create linked persona: %w", err)
		}
	}

	a, err := e.provider.CreateRandomAlias(ctx, apiKey, d.Domain, note)
	if err != nil {
		return persona.Saved{}, fmt.Errorf("create linked persona: %w", err)
	}

	s.Email = a.Email
	s.Alias = &persona.Link{AliasID: a.ID, Email: a.Email, Enabled: a.Enabled}

	if err := e.repo.AddPersona(s); err != nil {
		return persona.Saved{}, fmt.Errorf("create linked persona: alias %d created but not saved: %w", a.ID, err)
	}

	e.log.Info("linked persona created", "id", s.ID, "alias_id", a.ID, "domain", d.Domain)
	return s, nil
}

// Forget deletes a persona. A linked persona's alias is tombstoned so no
// later sync recreates it.
func (e *Engine) Forget(id string) (persona.Saved, error) {
	p, err := e.repo.Forget(id)
	if err != nil {
		return persona.Saved{}, fmt.Errorf("forget %s: %w", id, err)
	}
	if aliasID, ok := p.AliasID(); ok {
		e.log.Info("persona forgotten", "id", id, "alias_id", aliasID, "tombstoned", true)
	}
	return p, nil
}

// Restore lets a tombstoned alias be matched again on the next sync.
func (e *Engine) Restore(aliasID int64) (bool, error) {
	ok, err := e.repo.Restore(aliasID)
	if err != nil {
		return false, fmt.Errorf("restore alias %d: %w", aliasID, err)
	}
	return ok, nil
}

// SetPushEnabled stores the push flag. Turning it on pushes every linked
// persona immediately; the returned report is nil otherwise.
func (e *Engine) SetPushEnabled(ctx context.Context, apiKey string, on bool) (*PushReport, error) {
	if err := e.repo.SetSyncToRemote(on); err != nil {
		return nil, fmt.Errorf("set push flag: %w", err)
	}
	if !on {
		return nil, nil
	}
	r := e.Push(ctx, apiKey)
	return &r, nil
}
