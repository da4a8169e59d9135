// Package confscript reads and writes the script configuration dialect:
// a hierarchical, typed, human-readable file format with typed scalar
// entries, named blocks, string arrays, and line comments, optionally
// persisted under password-based encryption.
//
// A Store holds one loaded document and is safe for concurrent use.
// Values are read with default-returning typed getters, navigated by
// dotted path, and mutated through Set, which returns a builder for
// attaching a comment or a validation rule to the key it just wrote:
//
//	store := confscript.New()
//	if err := store.Load("game.conf"); err != nil {
//		// handle
//	}
//	hp := store.GetInt("maxHealth", 100)
//	str := store.GetIntPath("player.stats.strength", 0)
//
//	entry, err := store.Set("maxHealth", 250)
//	if err == nil {
//		entry.WithComment("raised for the expansion").
//			WithValidation(func(v any) bool {
//				n, ok := v.(int64)
//				return ok && n > 0
//			}, "maxHealth must be positive")
//	}
//
// Loading is lenient by design: unrecognized lines are dropped and bad
// literals fall back to zero values, so a damaged file still yields a
// usable partial document. Only environment-level problems (missing
// file, failed decryption, I/O errors) fail a Load or Save.
package confscript
