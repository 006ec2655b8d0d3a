// Package filter selects and orders personas and aliases for display. Every
// function is pure.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zarlcorp/zfill/internal/persona"
)

// Fields is a set of persona fields a text query is matched against.
type Fields uint8

const (
	FieldName Fields = 1 << iota
	FieldEmail
	FieldUsername
	FieldDomain
	FieldPhone
	FieldAddress

	AllFields = FieldName | FieldEmail | FieldUsername | FieldDomain | FieldPhone | FieldAddress
)

type fieldName struct {
	name string
	f    Fields
}

var fieldNames = []fieldName{
	{"name", FieldName},
	{"email", FieldEmail},
	{"username", FieldUsername},
	{"domain", FieldDomain},
	{"phone", FieldPhone},
	{"address", FieldAddress},
}

// ParseFields parses a comma separated list such as "name,email".
// An empty string selects every field.
func ParseFields(s string) (Fields, error) {
	if strings.TrimSpace(s) == "" {
		return AllFields, nil
	}

	var out Fields
	for part := range strings.SplitSeq(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		i := slices.IndexFunc(fieldNames, func(n fieldName) bool { return n.name == part })
		if i < 0 {
			return 0, fmt.Errorf("unknown field %q", part)
		}
		out |= fieldNames[i].f
	}
	return out, nil
}

func (f Fields) Has(x Fields) bool {
	return f&x != 0
}

func (f Fields) String() string {
	var names []string
	for _, n := range fieldNames {
		if f.Has(n.f) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// MatchPersona reports whether p matches query on at least one selected
// field. An empty query matches everything.
func MatchPersona(p persona.Saved, query string, fields Fields) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	if fields.Has(FieldName) && contains(p.FullName, q) {
		return true
	}
	if fields.Has(FieldEmail) && contains(p.Email, q) {
		return true
	}
	if fields.Has(FieldUsername) && contains(p.Username, q) {
		return true
	}
	if fields.Has(FieldDomain) && contains(p.Domain, q) {
		return true
	}
	if fields.Has(FieldPhone) && matchPhone(p.Phone, q) {
		return true
	}
	if fields.Has(FieldAddress) && contains(p.Address.Full, q) {
		return true
	}
	return false
}

// Personas returns the personas matching query, preserving order.
func Personas(ps []persona.Saved, query string, fields Fields) []persona.Saved {
	var out []persona.Saved
	for _, p := range ps {
		if MatchPersona(p, query, fields) {
			out = append(out, p)
		}
	}
	return out
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

// matchPhone matches the formatted number, or its digits when the query is
// a number typed with or without punctuation.
func matchPhone(phone, q string) bool {
	if strings.Contains(phone, q) {
		return true
	}
	qd, ok := phoneDigits(q)
	if !ok || qd == "" {
		return false
	}
	pd, _ := phoneDigits(phone)
	return strings.Contains(pd, qd)
}

// phoneDigits strips phone punctuation. ok is false when s holds anything
// other than digits and punctuation.
func phoneDigits(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(" ()-.+", r):
		default:
			return "", false
		}
	}
	return b.String(), true
}
