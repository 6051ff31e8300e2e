// Package store implements the keyed hierarchical data capability the rest of
// the system is built against: read/write/merge/append/delete primitives over
// slash-separated paths, range queries, and watch subscriptions delivering
// full-value snapshots. Adapters: an in-memory tree and a postgres node table.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type QueryOpts struct {
	// OrderBy names the child field used for ordering, ascending.
	OrderBy string
	// EndAt keeps only entries whose order field is <= the given value.
	EndAt *float64
	// LimitToLast keeps the last N entries of the ordered result.
	LimitToLast int
}

type Entry struct {
	Key   string
	Value any
}

type Store interface {
	// Read returns the value at path, nil when absent.
	Read(ctx context.Context, path string) (any, error)
	// Write replaces the entire subtree at path.
	Write(ctx context.Context, path string, value any) error
	// Merge overlays the partial value onto the record at path, replacing
	// only the named top-level fields.
	Merge(ctx context.Context, path string, partial map[string]any) error
	// Append stores value under a generated, time-ordered key and returns it.
	Append(ctx context.Context, path string, value any) (string, error)
	// Delete removes the subtree at path. Removing an absent path is a no-op.
	Delete(ctx context.Context, path string) error
	// Query lists the children of path filtered and ordered per opts.
	Query(ctx context.Context, path string, opts QueryOpts) ([]Entry, error)
	// Watch opens a subscription on the subtree at path.
	Watch(path string) (*Subscription, error)
}

var (
	pushMu      sync.Mutex
	pushLastMs  int64
	pushCounter int
)

// NewPushKey generates a time-prefixed key so appended children keep their
// arrival order under lexicographic sorting. A per-process sequence breaks
// same-millisecond ties.
func NewPushKey() string {
	pushMu.Lock()
	now := time.Now().UnixMilli()
	if now <= pushLastMs {
		now = pushLastMs
		pushCounter++
	} else {
		pushLastMs = now
		pushCounter = 0
	}
	seq := pushCounter
	pushMu.Unlock()
	return fmt.Sprintf("%013d%04d-%s", now, seq, uuid.NewString()[:8])
}

// orderValueOf extracts the sortable representation of an entry for the given
// order-by field. Numbers compare numerically, everything else as strings.
func orderValueOf(value any, field string) (float64, string, bool) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return 0, "", false
	}
	child, ok := mapping[field]
	if !ok {
		return 0, "", false
	}
	switch v := child.(type) {
	case float64:
		return v, "", true
	case int64:
		return float64(v), "", true
	case int:
		return float64(v), "", true
	case string:
		return 0, v, true
	default:
		return 0, "", false
	}
}

// applyQuery orders entries ascending by the order-by child, applies the
// end-at bound and keeps the last N. Entries missing the order field sort
// first, matching the remote store's behavior.
func applyQuery(entries []Entry, opts QueryOpts) []Entry {
	if len(opts.OrderBy) > 0 {
		if opts.EndAt != nil {
			kept := entries[:0]
			for _, entry := range entries {
				num, _, ok := orderValueOf(entry.Value, opts.OrderBy)
				if !ok || num <= *opts.EndAt {
					kept = append(kept, entry)
				}
			}
			entries = kept
		}

		sort.SliceStable(entries, func(i, j int) bool {
			ni, si, oki := orderValueOf(entries[i].Value, opts.OrderBy)
			nj, sj, okj := orderValueOf(entries[j].Value, opts.OrderBy)
			if oki != okj {
				return !oki
			}
			if len(si) > 0 || len(sj) > 0 {
				if si != sj {
					return si < sj
				}
				return entries[i].Key < entries[j].Key
			}
			if ni != nj {
				return ni < nj
			}
			return entries[i].Key < entries[j].Key
		})
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Key < entries[j].Key
		})
	}

	if opts.LimitToLast > 0 && len(entries) > opts.LimitToLast {
		entries = entries[len(entries)-opts.LimitToLast:]
	}

	return entries
}

// cloneValue deep-copies a snapshot so callers can never alias live tree
// state. Values are plain JSON shapes: maps, slices and scalars.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for idx, child := range v {
			out[idx] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}
