// Package notify provides change notification for configuration stores.
//
// Observers subscribe globally or to a dotted path and receive a
// callback for every committed mutation. Delivery is strictly
// synchronous on the mutating goroutine: a Set has notified every
// matching observer before it returns. Observer ordering within a single
// change is unspecified.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeReload indicates the entire document was replaced.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a single configuration change event.
type Change struct {
	// Path is the dotted path of the changed entry. Empty for reloads.
	Path string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value (nil for new entries and reloads).
	OldValue any

	// NewValue is the committed value (nil for reloads).
	NewValue any

	// Source identifies where the change came from, e.g. "set",
	// "import", or the reloaded file path.
	Source string
}

// Observer is called synchronously when a change is delivered.
type Observer func(change Change)

// Subscription is a handle to an active observer registration.
type Subscription struct {
	id       string
	notifier *Notifier
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Unsubscribe removes the observer. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages change subscriptions and delivers changes.
type Notifier struct {
	mu     sync.RWMutex
	global map[string]Observer
	byPath map[string]map[string]Observer
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{
		global: make(map[string]Observer),
		byPath: make(map[string]map[string]Observer),
	}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.NewString()
	n.global[id] = observer
	return &Subscription{id: id, notifier: n}
}

// SubscribePath registers an observer for changes at or below a dotted
// path: subscribing to "player" also receives "player.stats.strength".
// Reload events are delivered to every path observer.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.NewString()
	if n.byPath[path] == nil {
		n.byPath[path] = make(map[string]Observer)
	}
	n.byPath[path][id] = observer
	return &Subscription{id: id, notifier: n}
}

// Notify delivers a change to all matching observers. Observers are
// invoked outside the notifier's lock, on the calling goroutine.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	var observers []Observer

	for _, obs := range n.global {
		observers = append(observers, obs)
	}

	if change.Path != "" {
		if exact, ok := n.byPath[change.Path]; ok {
			for _, obs := range exact {
				observers = append(observers, obs)
			}
		}
		for path, pathObs := range n.byPath {
			if isParentPath(path, change.Path) {
				for _, obs := range pathObs {
					observers = append(observers, obs)
				}
			}
		}
	} else {
		for _, pathObs := range n.byPath {
			for _, obs := range pathObs {
				observers = append(observers, obs)
			}
		}
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

// NotifySet is a convenience method for set changes.
func (n *Notifier) NotifySet(path string, oldValue, newValue any, source string) {
	n.Notify(Change{
		Path:     path,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(source string) {
	n.Notify(Change{Type: ChangeReload, Source: source})
}

func (n *Notifier) unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.global, id)
	for path, observers := range n.byPath {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.byPath, path)
		}
	}
}

// isParentPath reports whether parent is a strict dotted-path prefix of
// child, e.g. "player" is a parent of "player.stats".
func isParentPath(parent, child string) bool {
	if len(parent) >= len(child) {
		return false
	}
	return child[:len(parent)] == parent && child[len(parent)] == '.'
}
