package service

import (
	"strings"
	"unicode/utf8"
)

// MaxSlotLabelLen is the width of booking_slots.slot_label.
const MaxSlotLabelLen = 50

// ParseSlots splits a comma-separated slot list, trimming each label and
// dropping empty ones.  Order and repeats are kept.
func ParseSlots(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DuplicateSlots returns each label that occurs more than once in labels,
// once, in order of first occurrence.
func DuplicateSlots(labels []string) []string {
	seen := make(map[string]int, len(labels))
	var dups []string
	for _, l := range labels {
		seen[l]++
		if seen[l] == 2 {
			dups = append(dups, l)
		}
	}
	return sortByFirstSeen(labels, dups)
}

// ConflictingSlots returns the requested labels that are already claimed,
// once each, in request order.
func ConflictingSlots(requested, claimed []string) []string {
	taken := make(map[string]struct{}, len(claimed))
	for _, c := range claimed {
		taken[strings.TrimSpace(c)] = struct{}{}
	}
	reported := make(map[string]struct{})
	var out []string
	for _, r := range requested {
		if _, ok := taken[r]; !ok {
			continue
		}
		if _, ok := reported[r]; ok {
			continue
		}
		reported[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// LongSlots returns the labels longer than MaxSlotLabelLen characters.
func LongSlots(labels []string) []string {
	var out []string
	for _, l := range labels {
		if utf8.RuneCountInString(l) > MaxSlotLabelLen {
			out = append(out, l)
		}
	}
	return out
}

// SameSlots reports whether a and b hold the same set of labels.
func SameSlots(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, l := range a {
		set[l] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, l := range b {
		if _, ok := set[l]; !ok {
			return false
		}
		other[l] = struct{}{}
	}
	return len(other) == len(set)
}

// sortByFirstSeen orders subset by the position each label first appears
// in labels.
func sortByFirstSeen(labels, subset []string) []string {
	if len(subset) < 2 {
		return subset
	}
	want := make(map[string]struct{}, len(subset))
	for _, s := range subset {
		want[s] = struct{}{}
	}
	out := make([]string, 0, len(subset))
	for _, l := range labels {
		if _, ok := want[l]; ok {
			out = append(out, l)
			delete(want, l)
		}
	}
	return out
}
