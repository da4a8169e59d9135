package value

import "sort"

// Block is a nested mapping of entry names to values that preserves
// insertion order. Iteration order equals the order in which keys were
// first set; replacing an existing key keeps its original position.
// Block is not safe for concurrent use; the owning store provides the
// locking.
type Block struct {
	keys  []string
	items map[string]any
}

// NewBlock creates an empty block.
func NewBlock() *Block {
	return &Block{items: make(map[string]any)}
}

// Set stores a value under key, appending the key if it is new.
func (b *Block) Set(key string, v any) {
	if _, ok := b.items[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.items[key] = v
}

// Get returns the value stored under key.
func (b *Block) Get(key string) (any, bool) {
	v, ok := b.items[key]
	return v, ok
}

// Delete removes key and its value. Deleting a missing key is a no-op.
func (b *Block) Delete(key string) {
	if _, ok := b.items[key]; !ok {
		return
	}
	delete(b.items, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (b *Block) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Len returns the number of entries.
func (b *Block) Len() int {
	return len(b.items)
}

// ToMap converts the block and all nested blocks into plain nested maps.
func (b *Block) ToMap() map[string]any {
	out := make(map[string]any, len(b.items))
	for k, v := range b.items {
		if nb, ok := v.(*Block); ok {
			out[k] = nb.ToMap()
			continue
		}
		out[k] = v
	}
	return out
}

// blockFromMap builds a block from a plain nested map. Map iteration
// order is unspecified in Go, so keys are sorted to keep the result
// deterministic.
func blockFromMap(m map[string]any) *Block {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewBlock()
	for _, k := range keys {
		b.Set(k, Normalize(m[k]))
	}
	return b
}
