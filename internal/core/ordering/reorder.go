// Package ordering implements drag-and-drop style reordering of ordered lists.
package ordering

import "slices"

// MoveIndex returns a copy of seq with the element at from removed and
// reinserted at to. Elements between the two positions shift by one.
// Out-of-range or equal indices return an unchanged copy.
func MoveIndex[T any](seq []T, from, to int) []T {
	out := slices.Clone(seq)
	if from == to || from < 0 || to < 0 || from >= len(out) || to >= len(out) {
		return out
	}

	moved := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, moved)
}

// Reorder moves the element identified by sourceID into the position
// currently held by targetID. When either id is missing, or both are equal,
// the result is an unchanged copy. The input is never modified.
func Reorder[T any, K comparable](seq []T, key func(T) K, sourceID, targetID K) []T {
	if sourceID == targetID {
		return slices.Clone(seq)
	}

	from := slices.IndexFunc(seq, func(v T) bool { return key(v) == sourceID })
	to := slices.IndexFunc(seq, func(v T) bool { return key(v) == targetID })
	if from < 0 || to < 0 {
		return slices.Clone(seq)
	}

	return MoveIndex(seq, from, to)
}

// ReorderIDs is Reorder over a list of identifiers.
func ReorderIDs(ids []string, sourceID, targetID string) []string {
	return Reorder(ids, func(id string) string { return id }, sourceID, targetID)
}

// Changed reports whether two sequences differ in order or content.
func Changed[T comparable](before, after []T) bool {
	return !slices.Equal(before, after)
}
