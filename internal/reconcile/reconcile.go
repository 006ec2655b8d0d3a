// Package reconcile merges locally saved personas with a snapshot of remote
// aliases.
//
// Remote owns alias status (existence and the enabled flag). Local owns every
// generated identity field once a persona exists. Reconcile never rewrites an
// identity field and never creates a persona for a tombstoned alias.
package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/simplelogin"
)

// DefaultDomain is used for new personas whose alias carries no note.
const DefaultDomain = "simplelogin.io"

// Generator produces identity fields for newly discovered aliases.
type Generator interface {
	Generate(domain string) persona.Draft
}

// Stats counts what a run changed.
type Stats struct {
	Created int // personas synthesized for new aliases
	Updated int // existing personas whose linkage flags changed
}

// Result is the next persona collection plus what changed.
type Result struct {
	Personas []persona.Saved
	Stats    Stats
}

// Changed reports whether the run produced any difference.
func (r Result) Changed() bool {
	return r.Stats.Created > 0 || r.Stats.Updated > 0
}

// Reconcile computes the next persona collection from local personas, the
// tombstone set, and the full remote alias list. newID supplies identifiers
// for created personas. Inputs are not modified.
func Reconcile(local []persona.Saved, tombstones persona.Tombstones, aliases []simplelogin.Alias, gen Generator, newID func() string) Result {
	remote := make(map[int64]simplelogin.Alias, len(aliases))
	for _, a := range aliases {
		if _, dup := remote[a.ID]; !dup {
			remote[a.ID] = a
		}
	}

	var res Result
	res.Personas = make([]persona.Saved, 0, len(local)+len(aliases))
	linked := make(map[int64]bool, len(local))

	// drift pass: runs before matching so flags are current for this run
	for _, p := range local {
		p = p.Clone()
		if p.Alias != nil && detach(p, tombstones, linked) {
			p.Alias = nil
			res.Stats.Updated++
		}
		if p.Alias != nil {
			linked[p.Alias.AliasID] = true
			if applyDrift(p.Alias, remote) {
				res.Stats.Updated++
			}
		}
		res.Personas = append(res.Personas, p)
	}

	// matching pass, in received order
	for _, a := range aliases {
		if tombstones.Has(a.ID) || linked[a.ID] {
			continue
		}

		res.Personas = append(res.Personas, fromAlias(a, gen, newID))
		linked[a.ID] = true
		res.Stats.Created++
	}

	return res
}

// detach reports whether a persona's linkage must be dropped: its alias is
// tombstoned, or an earlier persona already claims the same alias.
func detach(p persona.Saved, tombstones persona.Tombstones, linked map[int64]bool) bool {
	id := p.Alias.AliasID
	return tombstones.Has(id) || linked[id]
}

// applyDrift copies remote status onto a link and reports whether it changed.
func applyDrift(l *persona.Link, remote map[int64]simplelogin.Alias) bool {
	a, ok := remote[l.AliasID]
	if !ok {
		if l.DeletedRemotely {
			return false
		}
		l.DeletedRemotely = true
		return true
	}

	changed := false
	if l.DeletedRemotely {
		l.DeletedRemotely = false
		changed = true
	}
	if l.Enabled != a.Enabled {
		l.Enabled = a.Enabled
		changed = true
	}
	return changed
}

func fromAlias(a simplelogin.Alias, gen Generator, newID func() string) persona.Saved {
	domain := DomainFromNote(a.Note)

	d := gen.Generate(domain)
	d.Email = a.Email

	s := d.Save(newID(), a.CreatedAt)
	s.Alias = &persona.Link{
		AliasID: a.ID,
		Email:   a.Email,
		Enabled: a.Enabled,
	}
	return s
}

// DomainFromNote derives the originating domain from an alias note. Notes
// written by a push are JSON objects carrying a domain field; any other
// non-blank note is taken as the domain itself.
func DomainFromNote(note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return DefaultDomain
	}

	if strings.HasPrefix(note, "{") {
		var n struct {
			Domain string `json:"domain"`
		}
		if err := json.Unmarshal([]byte(note), &n); err == nil {
			if d := strings.TrimSpace(n.Domain); d != "" {
				return d
			}
			return DefaultDomain
		}
	}

	return note
}
