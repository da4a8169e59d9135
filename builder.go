package confscript

// Entry is the chainable handle returned by Set, bound to the key that
// was just written. It attaches metadata to that key; each call acquires
// the store lock independently.
type Entry struct {
	store *Store
	key   string
}

// Key returns the key this entry is bound to.
func (e *Entry) Key() string { return e.key }

// WithComment attaches a comment to the key, written above the entry on
// Save. An empty comment is a no-op.
func (e *Entry) WithComment(text string) *Entry {
	e.store.SetComment(e.key, text)
	return e
}

// WithValidation registers a validation rule for the key, enforced on
// subsequent Set calls. See Store.SetValidation for the name-scoping
// rule.
func (e *Entry) WithValidation(pred func(any) bool, msg string) *Entry {
	e.store.SetValidation(e.key, pred, msg)
	return e
}
