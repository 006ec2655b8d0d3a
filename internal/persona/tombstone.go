package persona

import "slices"

// Tombstones is the set of alias ids that must never produce a persona again.
type Tombstones map[int64]struct{}

// NewTombstones builds a set from stored ids. Duplicates collapse.
func NewTombstones(ids []int64) Tombstones {
	t := make(Tombstones, len(ids))
	for _, id := range ids {
		t[id] = struct{}{}
	}
	return t
}

// Has reports whether id is tombstoned.
func (t Tombstones) Has(id int64) bool {
	_, ok := t[id]
	return ok
}

// IDs returns the members in ascending order.
func (t Tombstones) IDs() []int64 {
	ids := make([]int64, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
