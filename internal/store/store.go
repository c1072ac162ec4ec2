// Package store provides identity-keyed collections that publish their
// changes on a pubsub broker. A Store holds the authoritative contents of a
// catalog cache; a View projects a filtered, selectable slice of a store for
// a single pane.
//
// Stores and views are not safe for concurrent use. Like bubbletea models
// they are owned by the UI goroutine: background work publishes into the
// broker, and mutations happen in Update.
package store

import (
	"reflect"

	"github.com/easel-dev/easel/internal/pubsub"
)

// Keyed is implemented by anything a Store can hold. Identity returns a
// stable key that is unique within one store.
type Keyed interface {
	Identity() string
}

// ChangeType classifies a single store mutation.
type ChangeType int

const (
	ChangeAdded ChangeType = iota
	ChangeUpdated
	ChangeRemoved
)

// String returns a short label for logs.
func (t ChangeType) String() string {
	switch t {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change describes one mutation of a store entry. For removals Item carries
// the last value the store held.
type Change[T Keyed] struct {
	Type     ChangeType
	Identity string
	Item     T
}

// Store is an identity-keyed collection with a change stream. Iteration
// order follows the order entries were first added; Reset adopts the order
// of its argument.
type Store[T Keyed] struct {
	items  map[string]T
	order  []string
	broker *pubsub.Broker[Change[T]]
}

// New returns an empty store.
func New[T Keyed]() *Store[T] {
	return &Store[T]{
		items:  make(map[string]T),
		broker: pubsub.NewBroker[Change[T]](),
	}
}

// Changes returns the broker carrying this store's change stream.
func (s *Store[T]) Changes() *pubsub.Broker[Change[T]] {
	return s.broker
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	return len(s.items)
}

// Get returns the entry with the given identity.
func (s *Store[T]) Get(identity string) (T, bool) {
	item, ok := s.items[identity]
	return item, ok
}

// Items returns all entries in store order.
func (s *Store[T]) Items() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Upsert adds or replaces one entry. It reports the change it made, or
// ok=false when the stored value already deep-equals item and nothing was
// published.
func (s *Store[T]) Upsert(item T) (Change[T], bool) {
	id := item.Identity()
	existing, found := s.items[id]
	if found && reflect.DeepEqual(existing, item) {
		return Change[T]{}, false
	}

	s.items[id] = item
	change := Change[T]{Identity: id, Item: item}
	if found {
		change.Type = ChangeUpdated
	} else {
		change.Type = ChangeAdded
		s.order = append(s.order, id)
	}
	s.broker.Publish(change)
	return change, true
}

// Remove deletes the entry with the given identity, reporting ok=false when
// it was not present.
func (s *Store[T]) Remove(identity string) (Change[T], bool) {
	item, found := s.items[identity]
	if !found {
		return Change[T]{}, false
	}
	delete(s.items, identity)
	for i, id := range s.order {
		if id == identity {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	change := Change[T]{Type: ChangeRemoved, Identity: identity, Item: item}
	s.broker.Publish(change)
	return change, true
}

// Reset replaces the store contents with items, applied as a diff against
// the current entries: stale identities are removed, new ones added, and
// changed values updated in place. Entries whose value is unchanged produce
// no event, so subscribers (and any per-entry state layered on top, such as
// view selection) are untouched by a refresh that brings no news. The store
// adopts the order of items; duplicate identities keep the last value.
//
// Every change is published on the broker and the full list is returned so
// the caller can apply it synchronously in the same Update step.
func (s *Store[T]) Reset(items []T) []Change[T] {
	incoming := make(map[string]T, len(items))
	incomingOrder := make([]string, 0, len(items))
	for _, item := range items {
		id := item.Identity()
		if _, seen := incoming[id]; !seen {
			incomingOrder = append(incomingOrder, id)
		}
		incoming[id] = item
	}

	var changes []Change[T]
	for _, id := range s.order {
		if _, keep := incoming[id]; !keep {
			changes = append(changes, Change[T]{Type: ChangeRemoved, Identity: id, Item: s.items[id]})
			delete(s.items, id)
		}
	}
	for _, id := range incomingOrder {
		item := incoming[id]
		existing, found := s.items[id]
		switch {
		case !found:
			changes = append(changes, Change[T]{Type: ChangeAdded, Identity: id, Item: item})
			s.items[id] = item
		case !reflect.DeepEqual(existing, item):
			changes = append(changes, Change[T]{Type: ChangeUpdated, Identity: id, Item: item})
			s.items[id] = item
		}
	}
	s.order = incomingOrder

	for _, c := range changes {
		s.broker.Publish(c)
	}
	return changes
}
