// Package accumulator merges follower records into one ordered, duplicate-free set.
package accumulator

import "igfollowers/pkg/models"

// Accumulator keeps records in arrival order, keyed by PK. It is owned by a
// single run and is not safe for concurrent use.
type Accumulator struct {
	seen    map[string]struct{}
	records []models.FollowerRecord
}

// New returns an empty accumulator
func New() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Merge appends every record whose PK has not been seen and returns how many
// were added. Records with an empty PK are ignored.
func (a *Accumulator) Merge(records []models.FollowerRecord) int {
	added := 0
	for _, r := range records {
		if r.PK == "" {
			continue
		}
		if _, ok := a.seen[r.PK]; ok {
			continue
		}
		a.seen[r.PK] = struct{}{}
		a.records = append(a.records, r)
		added++
	}
	return added
}

// Seed loads records restored from a checkpoint
func (a *Accumulator) Seed(records []models.FollowerRecord) int {
	return a.Merge(records)
}

// Len is the number of unique records held
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Seen reports whether pk has been merged
func (a *Accumulator) Seen(pk string) bool {
	_, ok := a.seen[pk]
	return ok
}

// Records returns a copy of the merged records in arrival order
func (a *Accumulator) Records() []models.FollowerRecord {
	out := make([]models.FollowerRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Last returns a copy of the n most recently merged records
func (a *Accumulator) Last(n int) []models.FollowerRecord {
	if n > len(a.records) {
		n = len(a.records)
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.FollowerRecord, n)
	copy(out, a.records[len(a.records)-n:])
	return out
}

// Truncate drops everything after the first limit records. A limit <= 0 is a no-op.
func (a *Accumulator) Truncate(limit int) {
	if limit <= 0 || limit >= len(a.records) {
		return
	}
	for _, r := range a.records[limit:] {
		delete(a.seen, r.PK)
	}
	a.records = a.records[:limit:limit]
}
