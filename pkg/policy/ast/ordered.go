package ast

import (
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/newtron-network/routepolicy/pkg/util"
)

// ConfigNodeId names one config-delta-addressable item and carries the
// "position-after" link that establishes its place relative to siblings.
// An empty After means "insert at the head".
type ConfigNodeId struct {
	ID    string
	After string
}

// NewConfigNodeId mints a fresh id positioned after the given predecessor
// (empty string for head).
func NewConfigNodeId(after string) ConfigNodeId {
	return ConfigNodeId{ID: uuid.NewString(), After: after}
}

type pendingEntry[V any] struct {
	id ConfigNodeId
	v  V
}

// OrderedContainer holds a ConfigNodeId-ordered sequence of values, tolerant
// of out-of-order delivery: an insert naming a not-yet-seen predecessor is
// buffered until that predecessor arrives.
type OrderedContainer[V any] struct {
	om      *orderedmap.OrderedMap[string, V]
	pending map[string][]pendingEntry[V] // keyed by the "after" id being waited on
}

func NewOrderedContainer[V any]() *OrderedContainer[V] {
	return &OrderedContainer[V]{
		om:      orderedmap.New[string, V](),
		pending: make(map[string][]pendingEntry[V]),
	}
}

// Insert adds or replaces the value at id. If id.After names an id already
// present, it is placed immediately after it (or at head if After is
// empty); otherwise the insert is buffered until After arrives.
func (c *OrderedContainer[V]) Insert(id ConfigNodeId, v V) {
	if _, exists := c.om.Get(id.ID); exists {
		// Replace in place: update_term_block replaces a statement without
		// moving it.
		c.om.Set(id.ID, v)
		return
	}

	if id.After == "" {
		if first := c.om.Oldest(); first != nil {
			c.om.Set(id.ID, v, orderedmap.WithPosition(orderedmap.Before, first.Key))
		} else {
			c.om.Set(id.ID, v)
		}
		c.resolvePending(id.ID)
		return
	}

	if _, ok := c.om.Get(id.After); ok {
		c.om.Set(id.ID, v, orderedmap.WithPosition(orderedmap.After, id.After))
		c.resolvePending(id.ID)
		return
	}

	c.pending[id.After] = append(c.pending[id.After], pendingEntry[V]{id: id, v: v})
}

func (c *OrderedContainer[V]) resolvePending(resolvedID string) {
	waiters := c.pending[resolvedID]
	delete(c.pending, resolvedID)
	for _, w := range waiters {
		c.om.Set(w.id.ID, w.v, orderedmap.WithPosition(orderedmap.After, w.id.After))
		c.resolvePending(w.id.ID)
	}
}

// Delete removes the value at id. Deleting an id that does not exist is a
// silent success, matching the source's delete_block semantics.
func (c *OrderedContainer[V]) Delete(id string) {
	c.om.Delete(id)
}

// Get returns the value at id, if present.
func (c *OrderedContainer[V]) Get(id string) (V, bool) {
	return c.om.Get(id)
}

// Finalize flushes any still-buffered out-of-order entries to the tail, in
// arrival order, logging a warning for each — called at end-of-policy.
func (c *OrderedContainer[V]) Finalize() {
	if len(c.pending) == 0 {
		return
	}
	for after, waiters := range c.pending {
		for _, w := range waiters {
			util.Warnf("ast: flushing out-of-order item %s (waited for missing predecessor %s) to tail", w.id.ID, after)
			c.om.Set(w.id.ID, w.v)
		}
	}
	c.pending = make(map[string][]pendingEntry[V])
}

// InOrder returns the values in their current deterministic order.
func (c *OrderedContainer[V]) InOrder() []V {
	out := make([]V, 0, c.om.Len())
	for pair := c.om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Len returns the number of resolved (non-pending) entries.
func (c *OrderedContainer[V]) Len() int {
	return c.om.Len()
}

// PendingCount returns the number of entries still buffered awaiting a
// predecessor.
func (c *OrderedContainer[V]) PendingCount() int {
	n := 0
	for _, w := range c.pending {
		n += len(w)
	}
	return n
}
