// Package ledger records the items a run could not resolve or fetch.
//
// A [Ledger] is owned by one run. Components append to it from any
// goroutine; the run reads it back at the end with [Ledger.Report], which
// collapses duplicate (origin, reason) pairs.
package ledger

import (
	"fmt"
	"sync"

	"github.com/matzehuels/modfetch/pkg/errors"
)

// Item is one missed project or artifact.
type Item struct {
	Name   string      `json:"name"`
	Origin string      `json:"origin"`
	Reason string      `json:"reason"`
	Kind   errors.Code `json:"kind"`
}

// Ledger is an append-only, mutex-guarded list of missed items.
// The zero value is ready to use.
type Ledger struct {
	mu    sync.Mutex
	items []Item
}

// New returns an empty ledger.
func New() *Ledger { return &Ledger{} }

// Add appends an item.
func (l *Ledger) Add(it Item) {
	l.mu.Lock()
	l.items = append(l.items, it)
	l.mu.Unlock()
}

// Addf appends an item with a formatted reason.
func (l *Ledger) Addf(kind errors.Code, name, origin, format string, args ...any) {
	l.Add(Item{Name: name, Origin: origin, Reason: fmt.Sprintf(format, args...), Kind: kind})
}

// AddError appends an item whose kind and reason come from err. Errors
// without a code are recorded as internal.
func (l *Ledger) AddError(name, origin string, err error) {
	kind := errors.GetCode(err)
	if kind == "" {
		kind = errors.ErrCodeInternal
	}
	l.Add(Item{Name: name, Origin: origin, Reason: errors.UserMessage(err), Kind: kind})
}

// Items returns a copy of every item in append order.
func (l *Ledger) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item(nil), l.items...)
}

// Len returns the number of recorded items, duplicates included.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Reset drops every item.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

// Report returns the items deduplicated by (origin, reason), keeping the
// first occurrence of each pair in append order. It never returns nil.
func (l *Ledger) Report() []Item {
	items := l.Items()
	type key struct{ origin, reason string }
	seen := make(map[key]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := key{it.Origin, it.Reason}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}
