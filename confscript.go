package confscript

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dshills/confscript/crypt"
	"github.com/dshills/confscript/loader"
	"github.com/dshills/confscript/notify"
	"github.com/dshills/confscript/script"
	"github.com/dshills/confscript/value"
	"github.com/dshills/confscript/watcher"
)

// rule is a registered validation rule for a key.
type rule struct {
	pred func(any) bool
	msg  string
}

// Store is a concurrent, file-backed configuration document. A single
// reader/writer lock guards the tree, the comment map, and the
// validation rules as one unit, so a Load is atomic with respect to
// concurrent reads: no caller ever observes a half-populated tree.
type Store struct {
	mu sync.RWMutex

	root     *value.Block
	comments map[string]string
	rules    map[string]rule

	notifier *notify.Notifier

	fsys   loader.FileSystem
	cipher crypt.Cipher
	log    *slog.Logger

	// Encryption key state: set by LoadWithPassword, reused by Save,
	// cleared by a plain Load.
	password    string
	hasPassword bool

	// Live reload
	watchEnabled bool
	w            *watcher.Watcher
	watchedPath  string
}

// Option configures a Store.
type Option func(*Store)

// WithFileSystem sets the file system used for Load and Save.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(s *Store) {
		if fsys != nil {
			s.fsys = fsys
		}
	}
}

// WithCipher sets the cipher used for encrypted files.
func WithCipher(c crypt.Cipher) Option {
	return func(s *Store) {
		if c != nil {
			s.cipher = c
		}
	}
}

// WithLogger sets the logger used for reload diagnostics. The data path
// never logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWatcher enables live reload: after a successful Load the store
// watches the file and re-runs the load pipeline when it changes.
func WithWatcher(enable bool) Option {
	return func(s *Store) {
		s.watchEnabled = enable
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		root:     value.NewBlock(),
		comments: make(map[string]string),
		rules:    make(map[string]rule),
		notifier: notify.New(),
		fsys:     loader.DefaultFS(),
		cipher:   crypt.NewAES(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the file watcher, if any. The store remains readable.
func (s *Store) Close() error {
	s.mu.Lock()
	w := s.w
	s.w = nil
	s.mu.Unlock()

	if w != nil {
		return w.Close()
	}
	return nil
}

// Load reads and parses a plaintext configuration file, replacing the
// entire document, comment map, and validation rules. Any held password
// is cleared. The previous state is kept intact if the load fails.
func (s *Store) Load(path string) error {
	return s.load(path, "", false)
}

// LoadWithPassword reads, decrypts, and parses an encrypted
// configuration file. The password is retained and reused by Save. The
// previous state is kept intact if decryption fails.
func (s *Store) LoadWithPassword(path, password string) error {
	return s.load(path, password, true)
}

// load runs the full pipeline (read, decrypt, parse) before taking the
// write lock, then commits the new state in one swap.
func (s *Store) load(path, password string, encrypted bool) error {
	data, err := s.fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	text := string(data)
	if encrypted {
		plain, err := s.cipher.Decrypt(text, password)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDecrypt, path, err)
		}
		text = string(plain)
	}

	root, comments := script.Parse(text)

	s.mu.Lock()
	s.root = root
	s.comments = comments
	s.rules = make(map[string]rule)
	s.password = password
	s.hasPassword = encrypted
	s.mu.Unlock()

	if s.watchEnabled {
		if err := s.startWatch(path); err != nil {
			s.log.Warn("config watch failed", "path", path, "error", err)
		}
	}
	return nil
}

// Save serializes the document and writes it to path, encrypting when a
// password is active.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	text, err := script.Write(s.root, s.comments)
	password, encrypted := s.password, s.hasPassword
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	out := []byte(text)
	if encrypted {
		blob, err := s.cipher.Encrypt(out, password)
		if err != nil {
			return fmt.Errorf("%w: encrypting %s: %v", ErrIO, path, err)
		}
		out = []byte(blob)
	}

	if err := s.fsys.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
	}
	return nil
}

// GetValue returns the raw value stored under an exact top-level key.
func (s *Store) GetValue(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Get(key)
}

// GetValuePath returns the raw value at a dotted path, walking nested
// blocks segment by segment. A single-segment path is equivalent to
// GetValue.
func (s *Store) GetValuePath(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupPath(path)
}

// lookupPath walks the tree by dotted path. Callers hold the lock.
func (s *Store) lookupPath(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")

	b := s.root
	for i, part := range parts {
		v, ok := b.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		nb, ok := v.(*value.Block)
		if !ok {
			return nil, false
		}
		b = nb
	}
	return nil, false
}

// GetInt returns the int stored under key, or def if the key is missing
// or cannot be coerced.
func (s *Store) GetInt(key string, def int) int {
	if v, ok := s.GetValue(key); ok {
		if n, ok := value.AsInt64(v); ok {
			return int(n)
		}
	}
	return def
}

// GetInt64 returns the int64 stored under key, or def.
func (s *Store) GetInt64(key string, def int64) int64 {
	if v, ok := s.GetValue(key); ok {
		if n, ok := value.AsInt64(v); ok {
			return n
		}
	}
	return def
}

// GetFloat32 returns the float32 stored under key, or def.
func (s *Store) GetFloat32(key string, def float32) float32 {
	if v, ok := s.GetValue(key); ok {
		if f, ok := value.AsFloat32(v); ok {
			return f
		}
	}
	return def
}

// GetFloat64 returns the float64 stored under key, or def.
func (s *Store) GetFloat64(key string, def float64) float64 {
	if v, ok := s.GetValue(key); ok {
		if f, ok := value.AsFloat64(v); ok {
			return f
		}
	}
	return def
}

// GetBool returns the bool stored under key, or def.
func (s *Store) GetBool(key string, def bool) bool {
	if v, ok := s.GetValue(key); ok {
		if b, ok := value.AsBool(v); ok {
			return b
		}
	}
	return def
}

// GetString returns the string stored under key, or def.
func (s *Store) GetString(key string, def string) string {
	if v, ok := s.GetValue(key); ok {
		if str, ok := value.AsString(v); ok {
			return str
		}
	}
	return def
}

// GetTime returns the timestamp stored under key, or def.
func (s *Store) GetTime(key string, def time.Time) time.Time {
	if v, ok := s.GetValue(key); ok {
		if t, ok := value.AsTime(v); ok {
			return t
		}
	}
	return def
}

// GetIntPath returns the int at a dotted path, or def. Any missing
// intermediate segment or type mismatch yields def.
func (s *Store) GetIntPath(path string, def int) int {
	if v, ok := s.GetValuePath(path); ok {
		if n, ok := value.AsInt64(v); ok {
			return int(n)
		}
	}
	return def
}

// GetInt64Path returns the int64 at a dotted path, or def.
func (s *Store) GetInt64Path(path string, def int64) int64 {
	if v, ok := s.GetValuePath(path); ok {
		if n, ok := value.AsInt64(v); ok {
			return n
		}
	}
	return def
}

// GetFloat32Path returns the float32 at a dotted path, or def.
func (s *Store) GetFloat32Path(path string, def float32) float32 {
	if v, ok := s.GetValuePath(path); ok {
		if f, ok := value.AsFloat32(v); ok {
			return f
		}
	}
	return def
}

// GetFloat64Path returns the float64 at a dotted path, or def.
func (s *Store) GetFloat64Path(path string, def float64) float64 {
	if v, ok := s.GetValuePath(path); ok {
		if f, ok := value.AsFloat64(v); ok {
			return f
		}
	}
	return def
}

// GetBoolPath returns the bool at a dotted path, or def.
func (s *Store) GetBoolPath(path string, def bool) bool {
	if v, ok := s.GetValuePath(path); ok {
		if b, ok := value.AsBool(v); ok {
			return b
		}
	}
	return def
}

// GetStringPath returns the string at a dotted path, or def.
func (s *Store) GetStringPath(path string, def string) string {
	if v, ok := s.GetValuePath(path); ok {
		if str, ok := value.AsString(v); ok {
			return str
		}
	}
	return def
}

// GetTimePath returns the timestamp at a dotted path, or def.
func (s *Store) GetTimePath(path string, def time.Time) time.Time {
	if v, ok := s.GetValuePath(path); ok {
		if t, ok := value.AsTime(v); ok {
			return t
		}
	}
	return def
}

// GetStringList returns the array stored under key. Missing keys and
// non-array values yield nil.
func (s *Store) GetStringList(key string) []string {
	v, ok := s.GetValue(key)
	if !ok {
		return nil
	}
	arr, ok := v.([]string)
	if !ok {
		return nil
	}
	out := make([]string, len(arr))
	copy(out, arr)
	return out
}

// GetIntList returns the array under key with every element coerced to
// int. A coercion failure anywhere yields nil, never a partial list.
func (s *Store) GetIntList(key string) []int {
	arr := s.GetStringList(key)
	if arr == nil {
		return nil
	}
	out := make([]int, len(arr))
	for i, item := range arr {
		n, ok := value.AsInt64(item)
		if !ok {
			return nil
		}
		out[i] = int(n)
	}
	return out
}

// GetFloat64List returns the array under key coerced to float64. A
// coercion failure anywhere yields nil.
func (s *Store) GetFloat64List(key string) []float64 {
	arr := s.GetStringList(key)
	if arr == nil {
		return nil
	}
	out := make([]float64, len(arr))
	for i, item := range arr {
		f, ok := value.AsFloat64(item)
		if !ok {
			return nil
		}
		out[i] = f
	}
	return out
}

// GetBoolList returns the array under key coerced to bool. A coercion
// failure anywhere yields nil.
func (s *Store) GetBoolList(key string) []bool {
	arr := s.GetStringList(key)
	if arr == nil {
		return nil
	}
	out := make([]bool, len(arr))
	for i, item := range arr {
		b, ok := value.AsBool(item)
		if !ok {
			return nil
		}
		out[i] = b
	}
	return out
}

// Set stores a value under key, which may be a dotted path; missing
// intermediate blocks are created. If a validation rule is registered
// for the key's simple name the value is checked first, and a rejected
// value returns a *ValidationError without mutating the store. On
// success every subscriber is notified synchronously before Set returns,
// and the returned Entry can chain a comment or validation rule onto the
// key.
func (s *Store) Set(key string, v any) (*Entry, error) {
	norm := value.Normalize(v)
	name := simpleName(key)

	s.mu.Lock()
	if r, ok := s.rules[name]; ok && r.pred != nil && !r.pred(norm) {
		s.mu.Unlock()
		return nil, &ValidationError{Key: key, Message: r.msg, Value: norm}
	}

	old, err := s.setPath(key, norm)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.notifier.NotifySet(key, old, norm, "set")
	return &Entry{store: s, key: key}, nil
}

// setPath writes a value at a dotted path, creating intermediate blocks
// as needed, and returns the prior value. Callers hold the write lock.
func (s *Store) setPath(path string, v any) (any, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	parts := strings.Split(path, ".")

	b := s.root
	for _, part := range parts[:len(parts)-1] {
		next, ok := b.Get(part)
		if !ok {
			nb := value.NewBlock()
			b.Set(part, nb)
			b = nb
			continue
		}
		nb, ok := next.(*value.Block)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a block", ErrInvalidPath, part)
		}
		b = nb
	}

	last := parts[len(parts)-1]
	old, _ := b.Get(last)
	b.Set(last, v)
	return old, nil
}

// SetPassword arms encryption for subsequent Saves without a reload,
// which is how a brand-new encrypted file gets created. An empty
// password disarms it. Load and LoadWithPassword both override this.
func (s *Store) SetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
	s.hasPassword = password != ""
}

// SetComment registers a comment for a key's dotted path, emitted on the
// line before the entry when the document is saved. An empty comment is
// a no-op.
func (s *Store) SetComment(key, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[key] = text
}

// SetValidation registers a validation rule for a key. Rules are keyed
// by the key's simple name, not its full path: two differently-nested
// keys sharing a local name share one rule. This scoping is a documented
// limitation carried over from the format's original semantics. A nil
// predicate is a no-op.
func (s *Store) SetValidation(key string, pred func(any) bool, msg string) {
	if pred == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[simpleName(key)] = rule{pred: pred, msg: msg}
}

// Subscribe registers an observer for all changes.
func (s *Store) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes at or below a dotted
// path.
func (s *Store) SubscribePath(path string, observer notify.Observer) *notify.Subscription {
	return s.notifier.SubscribePath(path, observer)
}

// Keys returns the top-level keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Keys()
}

// Len returns the number of top-level entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Len()
}

// ImportMap merges a nested plain map into the document, normalizing
// scalars into the closed variant. Keys are merged at the top level
// (nested maps become blocks, replacing any existing entry). A single
// reload notification is fired rather than per-key events.
func (s *Store) ImportMap(m map[string]any) error {
	norm := value.Normalize(m)
	b, ok := norm.(*value.Block)
	if !ok {
		return ErrInvalidPath
	}

	s.mu.Lock()
	for _, k := range b.Keys() {
		v, _ := b.Get(k)
		s.root.Set(k, v)
	}
	s.mu.Unlock()

	s.notifier.NotifyReload("import")
	return nil
}

// startWatch begins (or retargets) live reload for path.
func (s *Store) startWatch(path string) error {
	s.mu.Lock()
	if s.w == nil {
		w, err := watcher.New()
		if err != nil {
			s.mu.Unlock()
			return err
		}
		w.OnChange(s.handleFileChange)
		s.w = w
	}
	w := s.w
	prev := s.watchedPath
	s.watchedPath = path
	s.mu.Unlock()

	if prev != "" && prev != path {
		_ = w.Unwatch(prev)
	}
	return w.Watch(path)
}

// handleFileChange re-runs the load pipeline when the watched file
// changes. A failed reload logs and leaves current state untouched.
func (s *Store) handleFileChange(ev watcher.Event) {
	s.mu.RLock()
	path := s.watchedPath
	password, encrypted := s.password, s.hasPassword
	s.mu.RUnlock()

	if path == "" {
		return
	}
	if err := s.load(path, password, encrypted); err != nil {
		s.log.Warn("config reload failed", "path", path, "error", err)
		return
	}
	s.notifier.NotifyReload(path)
}

// simpleName returns the last segment of a dotted key path.
func simpleName(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return key
}
