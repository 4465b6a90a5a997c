// Package collection keeps the locally displayed copy of a server list in
// step with successful mutations, so screens never refetch after a write.
package collection

import "github.com/google/uuid"

// Keyed is any entity identified by a UUID.
type Keyed interface {
	Key() uuid.UUID
}

// Index returns the position of id in items, or -1.
func Index[T Keyed](items []T, id uuid.UUID) int {
	for i, it := range items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

// Find returns the item with id.
func Find[T Keyed](items []T, id uuid.UUID) (T, bool) {
	if i := Index(items, id); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}

// Prepend adds a newly created item at the top, unless it is already present
// (in which case it is replaced in place).
func Prepend[T Keyed](items []T, item T) []T {
	if i := Index(items, item.Key()); i >= 0 {
		out := append([]T(nil), items...)
		out[i] = item
		return out
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// Append adds a newly created item at the bottom, unless it is already present.
func Append[T Keyed](items []T, item T) []T {
	if i := Index(items, item.Key()); i >= 0 {
		out := append([]T(nil), items...)
		out[i] = item
		return out
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

// Replace swaps in an updated item. Items not present are left out.
func Replace[T Keyed](items []T, item T) []T {
	i := Index(items, item.Key())
	if i < 0 {
		return items
	}
	out := append([]T(nil), items...)
	out[i] = item
	return out
}

// Remove drops the item with id. The input slice is not modified.
func Remove[T Keyed](items []T, id uuid.UUID) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.Key() != id {
			out = append(out, it)
		}
	}
	return out
}

// Clamp keeps a cursor within [0, n).
func Clamp(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

// Upsert inserts item at the bottom or replaces the existing entry with its key.
func Upsert[T Keyed](items []T, item T) []T {
	return Append(items, item)
}

// Count returns how many entries carry id.
func Count[T Keyed](items []T, id uuid.UUID) int {
	n := 0
	for _, it := range items {
		if it.Key() == id {
			n++
		}
	}
	return n
}
