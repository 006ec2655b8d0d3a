package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/simplelogin"
)

// Facets is a set of alias status facets. Facets are ORed together; an
// empty set lets every alias through.
type Facets uint8

const (
	FacetActive Facets = 1 << iota
	FacetDisabled
	FacetLinked
	FacetUnlinked
	FacetWontSync
)

type facetName struct {
	name string
	f    Facets
}

var facetNames = []facetName{
	{"active", FacetActive},
	{"disabled", FacetDisabled},
	{"linked", FacetLinked},
	{"unlinked", FacetUnlinked},
	{"wontsync", FacetWontSync},
}

// ParseFacets parses a comma separated list such as "active,linked".
func ParseFacets(s string) (Facets, error) {
	var out Facets
	for part := range strings.SplitSeq(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		part = strings.NewReplacer("-", "", "_", "", "'", "").Replace(part)
		if part == "" {
			continue
		}
		i := slices.IndexFunc(facetNames, func(n facetName) bool { return n.name == part })
		if i < 0 {
			return 0, fmt.Errorf("unknown filter %q", part)
		}
		out |= facetNames[i].f
	}
	return out, nil
}

func (f Facets) Has(x Facets) bool {
	return f&x != 0
}

// Toggle flips x in the set.
func (f Facets) Toggle(x Facets) Facets {
	return f ^ x
}

func (f Facets) String() string {
	var names []string
	for _, n := range facetNames {
		if f.Has(n.f) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// AliasView is an alias annotated with its local state.
type AliasView struct {
	simplelogin.Alias
	Persona    *persona.Saved // linked persona, nil when unlinked
	Tombstoned bool
}

// Linked reports whether a local persona claims the alias.
func (v AliasView) Linked() bool {
	return v.Persona != nil
}

// Annotate joins aliases with the personas that claim them and the
// tombstone set, preserving alias order.
func Annotate(aliases []simplelogin.Alias, ps []persona.Saved, tombstones persona.Tombstones) []AliasView {
	byAlias := make(map[int64]int, len(ps))
	for i, p := range ps {
		if id, ok := p.AliasID(); ok {
			if _, dup := byAlias[id]; !dup {
				byAlias[id] = i
			}
		}
	}

	out := make([]AliasView, len(aliases))
	for i, a := range aliases {
		out[i] = AliasView{Alias: a, Tombstoned: tombstones.Has(a.ID)}
		if j, ok := byAlias[a.ID]; ok {
			p := ps[j]
			out[i].Persona = &p
		}
	}
	return out
}

// MatchAlias reports whether v passes the text query and the facet set. The
// query matches the alias email, its note, or the linked persona's name.
func MatchAlias(v AliasView, query string, facets Facets) bool {
	return matchAliasText(v, query) && matchFacets(v, facets)
}

// Aliases returns the views passing MatchAlias, preserving order.
func Aliases(vs []AliasView, query string, facets Facets) []AliasView {
	var out []AliasView
	for _, v := range vs {
		if MatchAlias(v, query, facets) {
			out = append(out, v)
		}
	}
	return out
}

func matchAliasText(v AliasView, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if contains(v.Email, q) || contains(v.Note, q) {
		return true
	}
	return v.Persona != nil && contains(v.Persona.FullName, q)
}

func matchFacets(v AliasView, facets Facets) bool {
	if facets == 0 {
		return true
	}
	switch {
	case facets.Has(FacetActive) && v.Enabled:
	case facets.Has(FacetDisabled) && !v.Enabled:
	case facets.Has(FacetLinked) && v.Linked():
	case facets.Has(FacetUnlinked) && !v.Linked():
	case facets.Has(FacetWontSync) && v.Tombstoned:
	default:
		return false
	}
	return true
}
