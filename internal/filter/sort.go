package filter

import (
	"slices"
	"strings"

	"github.com/zarlcorp/zfill/internal/persona"
)

// Sort returns a copy of ps ordered for display: personas created for
// currentDomain first, then newest first. Domains compare case-insensitively.
// The input is not modified and equal elements keep their relative order.
func Sort(ps []persona.Saved, currentDomain string) []persona.Saved {
	out := slices.Clone(ps)
	current := strings.TrimSpace(currentDomain)

	slices.SortStableFunc(out, func(a, b persona.Saved) int {
		if current != "" {
			am, bm := strings.EqualFold(a.Domain, current), strings.EqualFold(b.Domain, current)
			if am != bm {
				if am {
					return -1
				}
				return 1
			}
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
