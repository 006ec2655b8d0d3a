package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/simplelogin"
)

// PushStep records the outcome of one note update.
type PushStep struct {
	PersonaID string
	AliasID   int64
	Err       error
}

// PushReport summarizes a one-way push.
type PushReport struct {
	Status  Status
	Skipped int // linked personas whose alias no longer exists
	Steps   []PushStep
	Err     error
}

// Succeeded counts the notes that were written.
func (r PushReport) Succeeded() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the steps that did not complete.
func (r PushReport) Failed() []PushStep {
	var out []PushStep
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// HasErrors returns true if any step failed or the push could not start.
func (r PushReport) HasErrors() bool {
	return r.Err != nil || len(r.Failed()) > 0
}

// Summary returns a human-readable summary of the push.
func (r PushReport) Summary() string {
	switch r.Status {
	case StatusMissingCredential:
		return "no SimpleLogin API key configured"
	case StatusDisabled:
		return "push is turned off, enable it with zfill config push on"
	case StatusOK:
	default:
		return fmt.Sprintf("push failed: %v", r.Err)
	}

	var b strings.Builder
	failed := r.Failed()
	fmt.Fprintf(&b, "pushed %d of %d personas", r.Succeeded(), len(r.Steps))
	if r.Skipped > 0 {
		fmt.Fprintf(&b, " (%d skipped, alias deleted)", r.Skipped)
	}
	for _, s := range failed {
		fmt.Fprintf(&b, "\n- alias %d: %v", s.AliasID, s.Err)
	}
	return b.String()
}

// noteData is the persona subset written to alias notes. Linkage metadata
// is excluded so a pushed note never feeds back into drift.
type noteData struct {
	FullName    string    `json:"fullName"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Username    string    `json:"username"`
	Phone       string    `json:"phone"`
	DateOfBirth string    `json:"dateOfBirth"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	ZipCode     string    `json:"zipCode"`
	Country     string    `json:"country"`
	Domain      string    `json:"domain"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Note renders the alias note for a saved persona.
func Note(p persona.Saved) (string, error) {
	data, err := json.MarshalIndent(noteData{
		FullName:    p.FullName,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Username:    p.Username,
		Phone:       p.Phone,
		DateOfBirth: p.DateOfBirth,
		Address:     p.Address.Street,
		City:        p.Address.City,
		State:       p.Address.State,
		ZipCode:     p.Address.ZipCode,
		Country:     p.Address.Country,
		Domain:      p.Domain,
		CreatedAt:   p.CreatedAt.UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render note: %w", err)
	}
	return string(data), nil
}

// Push writes each linked persona to its alias note. Nothing is sent while
// the push flag is off. One failure never stops the batch; every outcome is
// recorded in the report. Local state is not modified.
func (e *Engine) Push(ctx context.Context, apiKey string) PushReport {
	log := e.log.With("op", "push")

	if strings.TrimSpace(apiKey) == "" {
		return PushReport{Status: StatusMissingCredential, Err: simplelogin.ErrMissingCredential}
	}

	snap, err := e.repo.Snapshot()
	if err != nil {
		return PushReport{Status: StatusStoreError, Err: fmt.Errorf("push: %w", err)}
	}
	if !snap.SyncToRemote {
		log.Info("push skipped", "reason", "push disabled")
		return PushReport{Status: StatusDisabled, Err: ErrPushDisabled}
	}

	var report PushReport
	var targets []persona.Saved
	for _, p := range snap.Personas {
		if p.Alias == nil {
			continue
		}
		if p.Alias.DeletedRemotely {
			report.Skipped++
			continue
		}
		targets = append(targets, p)
	}

	report.Steps = make([]PushStep, len(targets))

	var g errgroup.Group
	g.SetLimit(e.pushLimit)

	for i, p := range targets {
		report.Steps[i] = PushStep{PersonaID: p.ID, AliasID: p.Alias.AliasID}

		g.Go(func() error {
			report.Steps[i].Err = e.pushOne(ctx, apiKey, p)
			if report.Steps[i].Err != nil {
				log.Warn("push note", "alias_id", p.Alias.AliasID, "err", report.Steps[i].Err)
			}
			return nil
		})
	}

	// per-step errors are collected, never returned to the group
	_ = g.Wait()

	if ctx.Err() != nil {
		report.Status = StatusProviderError
		report.Err = fmt.Errorf("push: %w", ctx.Err())
		return report
	}

	log.Info("push complete", "succeeded", report.Succeeded(), "failed", len(report.Failed()), "skipped", report.Skipped)
	return report
}

func (e *Engine) pushOne(ctx context.Context, apiKey string, p persona.Saved) error {
	note, err := Note(p)
	if err != nil {
		return err
	}
	if _, err := e.provider.UpdateAliasNote(ctx, apiKey, p.Alias.AliasID, note); err != nil {
		return err
	}
	return nil
}
