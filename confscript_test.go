package confscript

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/confscript/loader"
	"github.com/dshills/confscript/notify"
)

const gameConf = `int maxHealth = 100;
player {
    string name = "Hero";
    stats {
        int strength = 15;
    };
};
items[] = [1, 2, 3];
`

func newMemStore(t *testing.T, files map[string]string) (*Store, *loader.MemFS) {
	t.Helper()
	fsys := loader.NewMemFS()
	for name, content := range files {
		if err := fsys.WriteFile(name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New(WithFileSystem(fsys)), fsys
}

func TestLoad_Scenario(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"game.conf": gameConf})

	if err := s.Load("game.conf"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := s.GetInt("maxHealth", 0); got != 100 {
		t.Errorf("GetInt(maxHealth) = %d, want 100", got)
	}
	if got := s.GetIntPath("player.stats.strength", 0); got != 15 {
		t.Errorf("GetIntPath(player.stats.strength) = %d, want 15", got)
	}
	if got := s.GetStringPath("player.name", ""); got != "Hero" {
		t.Errorf("GetStringPath(player.name) = %q, want Hero", got)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s, _ := newMemStore(t, nil)

	err := s.Load("missing.conf")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLoad_ReplacesState(t *testing.T) {
	s, fsys := newMemStore(t, map[string]string{"a.conf": "int a = 1;"})

	if err := s.Load("a.conf"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Set("extra", 5); err != nil {
		t.Fatal(err)
	}

	if err := fsys.WriteFile("b.conf", []byte("int b = 2;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Load("b.conf"); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.GetValue("a"); ok {
		t.Error("old key survived reload")
	}
	if _, ok := s.GetValue("extra"); ok {
		t.Error("set key survived reload")
	}
	if got := s.GetInt("b", 0); got != 2 {
		t.Errorf("b = %d, want 2", got)
	}
}

func TestGet_Defaults(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"game.conf": gameConf})
	if err := s.Load("game.conf"); err != nil {
		t.Fatal(err)
	}

	if got := s.GetInt("missing", -1); got != -1 {
		t.Errorf("GetInt(missing) = %d, want -1", got)
	}
	if got := s.GetIntPath("player.stats.missing", -1); got != -1 {
		t.Errorf("GetIntPath(missing leaf) = %d, want -1", got)
	}
	if got := s.GetIntPath("player.nosuch.strength", -1); got != -1 {
		t.Errorf("GetIntPath(missing intermediate) = %d, want -1", got)
	}
	// Intermediate segment that is a scalar, not a block.
	if got := s.GetIntPath("maxHealth.x", -1); got != -1 {
		t.Errorf("GetIntPath(through scalar) = %d, want -1", got)
	}
	// Type mismatch falls back when coercion fails.
	if got := s.GetBool("maxHealth", true); got != true {
		t.Errorf("GetBool(maxHealth) = %v, want default", got)
	}
}

func TestGet_Coercion(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"c.conf": `string port = "8080";
int count = 7;
string flag = "true";
string when = "2024-03-15T10:30:00Z";
`})
	if err := s.Load("c.conf"); err != nil {
		t.Fatal(err)
	}

	if got := s.GetInt("port", 0); got != 8080 {
		t.Errorf("int-from-string = %d, want 8080", got)
	}
	if got := s.GetString("count", ""); got != "7" {
		t.Errorf("string-from-int = %q, want 7", got)
	}
	if got := s.GetBool("flag", false); !got {
		t.Error("bool-from-string failed")
	}
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	if got := s.GetTime("when", time.Time{}); !got.Equal(want) {
		t.Errorf("time-from-string = %v, want %v", got, want)
	}
	if got := s.GetFloat64("count", 0); got != 7 {
		t.Errorf("float-from-int = %v, want 7", got)
	}
}

func TestGet_SingleSegmentPathEqualsGet(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"game.conf": gameConf})
	if err := s.Load("game.conf"); err != nil {
		t.Fatal(err)
	}

	if s.GetInt("maxHealth", -1) != s.GetIntPath("maxHealth", -1) {
		t.Error("single-segment path disagrees with plain getter")
	}
}

func TestGetLists(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"l.conf": `ints[] = [1, 2, 3];
floats[] = [1.5, 2.5];
bools[] = [true, false];
words[] = [alpha, beta];
mixed[] = [1, two, 3];
`})
	if err := s.Load("l.conf"); err != nil {
		t.Fatal(err)
	}

	ints := s.GetIntList("ints")
	if len(ints) != 3 || ints[0] != 1 || ints[2] != 3 {
		t.Errorf("GetIntList = %v, want [1 2 3]", ints)
	}
	floats := s.GetFloat64List("floats")
	if len(floats) != 2 || floats[0] != 1.5 {
		t.Errorf("GetFloat64List = %v", floats)
	}
	bools := s.GetBoolList("bools")
	if len(bools) != 2 || !bools[0] || bools[1] {
		t.Errorf("GetBoolList = %v", bools)
	}
	words := s.GetStringList("words")
	if len(words) != 2 || words[0] != "alpha" {
		t.Errorf("GetStringList = %v", words)
	}

	// Whole-list failure, never a partial list.
	if got := s.GetIntList("mixed"); got != nil {
		t.Errorf("GetIntList(mixed) = %v, want nil", got)
	}
	if got := s.GetIntList("missing"); got != nil {
		t.Errorf("GetIntList(missing) = %v, want nil", got)
	}
}

func TestSet_AndNotify(t *testing.T) {
	s, _ := newMemStore(t, nil)

	var changes []notify.Change
	s.Subscribe(func(c notify.Change) { changes = append(changes, c) })

	if _, err := s.Set("health", 50); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := s.Set("health", 75); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if len(changes) != 2 {
		t.Fatalf("received %d changes, want 2", len(changes))
	}
	if changes[0].OldValue != nil || changes[0].NewValue != int64(50) {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[1].OldValue != int64(50) || changes[1].NewValue != int64(75) {
		t.Errorf("second change = %+v", changes[1])
	}
}

func TestSet_NestedPath(t *testing.T) {
	s, _ := newMemStore(t, nil)

	if _, err := s.Set("player.stats.strength", 15); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := s.GetIntPath("player.stats.strength", 0); got != 15 {
		t.Errorf("nested set not readable: %d", got)
	}

	// An intermediate scalar blocks the path.
	if _, err := s.Set("player.stats", 1); err != nil {
		t.Fatal(err)
	}
	// "player.stats" is now a scalar; writing below it must fail.
	if _, err := s.Set("player.stats.agility", 9); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Set through scalar error = %v, want ErrInvalidPath", err)
	}
}

func TestValidation_Gate(t *testing.T) {
	s, _ := newMemStore(t, nil)

	entry, err := s.Set("health", 10)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	entry.WithValidation(func(v any) bool {
		n, ok := v.(int64)
		return ok && n > 0
	}, "health must be positive")

	if _, err := s.Set("health", -5); !errors.Is(err, ErrValidation) {
		t.Fatalf("Set(-5) error = %v, want ErrValidation", err)
	}

	var verr *ValidationError
	_, err = s.Set("health", -5)
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if verr.Message != "health must be positive" {
		t.Errorf("Message = %q", verr.Message)
	}

	// Rejected Set leaves the stored value unchanged.
	if got := s.GetInt("health", 0); got != 10 {
		t.Errorf("health = %d after rejected Set, want 10", got)
	}

	// A passing value still goes through.
	if _, err := s.Set("health", 25); err != nil {
		t.Errorf("Set(25) error = %v", err)
	}
}

func TestValidation_ByNameNotPath(t *testing.T) {
	// Rules are keyed by simple name: a rule for "health" also guards
	// "player.health". Documented limitation.
	s, _ := newMemStore(t, nil)

	s.SetValidation("health", func(v any) bool {
		n, ok := v.(int64)
		return ok && n > 0
	}, "must be positive")

	if _, err := s.Set("player.health", -1); !errors.Is(err, ErrValidation) {
		t.Errorf("nested key sharing the name escaped the rule: %v", err)
	}
}

func TestValidation_RejectedSetEmitsNoEvent(t *testing.T) {
	s, _ := newMemStore(t, nil)
	s.SetValidation("health", func(v any) bool { return false }, "never")

	var fired int
	s.Subscribe(func(notify.Change) { fired++ })

	if _, err := s.Set("health", 1); err == nil {
		t.Fatal("Set() passed a rule that always fails")
	}
	if fired != 0 {
		t.Errorf("rejected Set fired %d events, want 0", fired)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"game.conf": gameConf})
	if err := s.Load("game.conf"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("out.conf"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Load("out.conf"); err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got := s.GetInt("maxHealth", 0); got != 100 {
		t.Errorf("maxHealth = %d after round trip, want 100", got)
	}
	if got := s.GetIntPath("player.stats.strength", 0); got != 15 {
		t.Errorf("strength = %d after round trip, want 15", got)
	}
	ints := s.GetIntList("items")
	if len(ints) != 3 || ints[0] != 1 || ints[2] != 3 {
		t.Errorf("items = %v after round trip", ints)
	}
}

func TestSave_CommentSurvives(t *testing.T) {
	s, fsys := newMemStore(t, nil)

	entry, err := s.Set("player.name", "Hero")
	if err != nil {
		t.Fatal(err)
	}
	entry.WithComment("display name")

	if err := s.Save("out.conf"); err != nil {
		t.Fatal(err)
	}

	data, err := fsys.ReadFile("out.conf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "// display name") {
		t.Errorf("comment missing from output:\n%s", data)
	}
}

func TestSave_UnknownValueFailsLoudly(t *testing.T) {
	s, _ := newMemStore(t, nil)

	if _, err := s.Set("weird", struct{ X int }{1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("out.conf"); err == nil {
		t.Error("Save() accepted a value outside the closed variant")
	}
}

func TestEncryption_RoundTrip(t *testing.T) {
	s, fsys := newMemStore(t, nil)

	if _, err := s.Set("maxHealth", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Set("player.name", "Hero"); err != nil {
		t.Fatal(err)
	}

	s.SetPassword("hunter2")
	if err := s.Save("enc.conf"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := fsys.ReadFile("enc.conf")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "maxHealth") {
		t.Error("encrypted file leaks plaintext")
	}

	other := New(WithFileSystem(fsys))
	if err := other.LoadWithPassword("enc.conf", "hunter2"); err != nil {
		t.Fatalf("LoadWithPassword() error = %v", err)
	}
	if got := other.GetInt("maxHealth", 0); got != 100 {
		t.Errorf("maxHealth = %d after encrypted round trip, want 100", got)
	}
	if got := other.GetStringPath("player.name", ""); got != "Hero" {
		t.Errorf("player.name = %q after encrypted round trip", got)
	}
}

func TestEncryption_WrongPasswordPreservesState(t *testing.T) {
	s, fsys := newMemStore(t, nil)
	if _, err := s.Set("maxHealth", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Set("title", "The Longest Adventure Of The Brave Hero"); err != nil {
		t.Fatal(err)
	}
	s.SetPassword("correct")
	if err := s.Save("enc.conf"); err != nil {
		t.Fatal(err)
	}

	other := New(WithFileSystem(fsys))
	if _, err := other.Set("existing", 7); err != nil {
		t.Fatal(err)
	}

	err := other.LoadWithPassword("enc.conf", "wrong")
	if !errors.Is(err, ErrDecrypt) {
		t.Fatalf("LoadWithPassword(wrong) error = %v, want ErrDecrypt", err)
	}
	// Snapshot semantics: the failed load left prior state intact.
	if got := other.GetInt("existing", 0); got != 7 {
		t.Errorf("existing = %d after failed load, want 7", got)
	}
}

func TestEncryption_PasswordRetainedAcrossSave(t *testing.T) {
	s, fsys := newMemStore(t, nil)
	if _, err := s.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	s.SetPassword("pw")
	if err := s.Save("enc.conf"); err != nil {
		t.Fatal(err)
	}

	// Reload with the password, mutate, save again: still encrypted.
	if err := s.LoadWithPassword("enc.conf", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Set("b", 2); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("enc2.conf"); err != nil {
		t.Fatal(err)
	}
	raw, err := fsys.ReadFile("enc2.conf")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "int a") {
		t.Error("second Save was not encrypted")
	}

	// A plain Load clears the password; the next Save is plaintext.
	if err := fsys.WriteFile("plain.conf", []byte("int c = 3;"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Load("plain.conf"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("out.conf"); err != nil {
		t.Fatal(err)
	}
	raw, err = fsys.ReadFile("out.conf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "int c = 3;") {
		t.Errorf("Save after plain Load should be plaintext, got %q", raw)
	}
}

func TestKeys_InsertionOrder(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"k.conf": "int z = 1;\nint a = 2;\nint m = 3;"})
	if err := s.Load("k.conf"); err != nil {
		t.Fatal(err)
	}

	want := []string{"z", "a", "m"}
	got := s.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestImportMap_FromTOML(t *testing.T) {
	fsys := loader.NewMemFS()
	tomlContent := `
maxHealth = 100

[player]
name = "Hero"
`
	if err := fsys.WriteFile("settings.toml", []byte(tomlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := loader.NewTOMLWithFS(fsys, "settings.toml").Load()
	if err != nil {
		t.Fatal(err)
	}

	s := New(WithFileSystem(fsys))
	if err := s.ImportMap(data); err != nil {
		t.Fatalf("ImportMap() error = %v", err)
	}

	if got := s.GetInt("maxHealth", 0); got != 100 {
		t.Errorf("maxHealth = %d, want 100", got)
	}
	if got := s.GetStringPath("player.name", ""); got != "Hero" {
		t.Errorf("player.name = %q, want Hero", got)
	}

	// The imported tree persists in the script dialect.
	if err := s.Save("out.conf"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	raw, err := fsys.ReadFile("out.conf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "int maxHealth = 100;") {
		t.Errorf("imported value not saved as script:\n%s", raw)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s, _ := newMemStore(t, map[string]string{"game.conf": gameConf})
	if err := s.Load("game.conf"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.GetInt("maxHealth", 0)
				_ = s.GetIntPath("player.stats.strength", 0)
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := s.Set("counter", j); err != nil {
					t.Errorf("Set() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestLiveReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.conf")
	if err := os.WriteFile(path, []byte("int a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(WithWatcher(true))
	defer func() { _ = s.Close() }()

	reloaded := make(chan struct{}, 4)
	s.Subscribe(func(c notify.Change) {
		if c.Type == notify.ChangeReload {
			reloaded <- struct{}{}
		}
	})

	if err := s.Load(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("int a = 2;"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if got := s.GetInt("a", 0); got != 2 {
		t.Errorf("a = %d after live reload, want 2", got)
	}
}
