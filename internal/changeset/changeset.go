// Package changeset computes field-level differences between two versions of
// an opportunity payload and rebuilds edit history from stored snapshots.
package changeset

import (
	"reflect"
	"sort"
	"time"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// Change is the before and after value of a single field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeSet maps field names to their change. It only holds fields that differ.
type ChangeSet map[string]Change

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c) == 0
}

// Fields returns the changed field names in sorted order.
func (c ChangeSet) Fields() []string {
	fields := make([]string, 0, len(c))
	for field := range c {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Has reports whether the field changed.
func (c ChangeSet) Has(field string) bool {
	_, ok := c[field]
	return ok
}

// setFields compare as unordered sets.
var setFields = map[string]struct{}{
	models.FieldSellerEmailList: {},
}

// Diff returns the fields whose value differs between before and after. A
// field missing on one side is compared as empty. Invited seller maps are
// compared by membership only.
func Diff(before, after models.Payload) ChangeSet {
	changes := ChangeSet{}

	keys := map[string]struct{}{}
	for key := range before {
		keys[key] = struct{}{}
	}
	for key := range after {
		keys[key] = struct{}{}
	}

	for key := range keys {
		oldValue := models.Normalize(before[key])
		newValue := models.Normalize(after[key])
		if equal(key, oldValue, newValue) {
			continue
		}
		changes[key] = Change{Old: oldValue, New: newValue}
	}

	return changes
}

func equal(field string, a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if isEmpty(a) && isEmpty(b) {
		return true
	}

	switch {
	case field == models.FieldSellers:
		return sameKeys(a, b)
	default:
		if _, ok := setFields[field]; ok {
			return sameMembers(a, b)
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case []any:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	}
	return false
}

func sameKeys(a, b any) bool {
	left, _ := a.(map[string]any)
	right, _ := b.(map[string]any)
	if len(left) != len(right) {
		return false
	}
	for key := range left {
		if _, ok := right[key]; !ok {
			return false
		}
	}
	return true
}

func sameMembers(a, b any) bool {
	left, _ := a.([]any)
	right, _ := b.([]any)
	counts := map[any]int{}
	for _, item := range left {
		if !hashable(item) {
			return false
		}
		counts[item]++
	}
	for _, item := range right {
		if !hashable(item) {
			return false
		}
		counts[item]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

func hashable(v any) bool {
	switch v.(type) {
	case string, float64, bool, nil:
		return true
	}
	return false
}

// Entry is one reconstructed step of an opportunity's edit history.
type Entry struct {
	RecordID uint      `json:"record_id"`
	ActorID  uint      `json:"actor_id"`
	EditedAt time.Time `json:"edited_at"`
	Changes  ChangeSet `json:"changes"`
}

// History diffs each edit record's snapshot against its successor, and the
// most recent one against the current payload. Records are ordered by edit
// time, then by id.
func History(records []models.EditRecord, current models.Payload) []Entry {
	ordered := append([]models.EditRecord(nil), records...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].EditedAt.Equal(ordered[j].EditedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].EditedAt.Before(ordered[j].EditedAt)
	})

	entries := make([]Entry, 0, len(ordered))
	for i, record := range ordered {
		next := current
		if i+1 < len(ordered) {
			next = ordered[i+1].Snapshot
		}
		entries = append(entries, Entry{
			RecordID: record.ID,
			ActorID:  record.ActorID,
			EditedAt: record.EditedAt,
			Changes:  Diff(record.Snapshot, next),
		})
	}
	return entries
}
