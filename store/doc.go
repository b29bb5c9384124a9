// Package store implements the task store: the canonical set of tasks
// plus the next-ID counter, backed by a single JSON file.
//
// The store is loaded once at startup and flushed after every mutating
// operation. Flushes are atomic (temp file + rename) and a failed flush
// rolls the in-memory mutation back, so memory and disk never disagree
// after an operation returns. A missing or corrupt backing file degrades
// to an empty store instead of failing startup.
//
// # IDs
//
// Task IDs are assigned from a monotonic counter persisted alongside the
// tasks. IDs are never reused, even after deletion; the counter is
// repaired on load if the file ever disagrees with its own contents.
//
// # Ordering
//
// List returns tasks sorted by priority (high, medium, low) and then by
// creation time, oldest first. The order is deterministic for any given
// state, so repeated listings are stable.
package store
