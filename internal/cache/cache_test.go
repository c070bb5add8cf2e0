package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tagex/pkg/model"
)

func TestKey(t *testing.T) {
	a := Key("fp1", "MEL - KUL")
	if !strings.HasPrefix(a, "tagex:v1:") {
		t.Fatalf("Key() = %q, want tagex:v1: prefix", a)
	}
	if a != Key("fp1", "MEL - KUL") {
		t.Error("Key() is not deterministic")
	}
	if a == Key("fp2", "MEL - KUL") {
		t.Error("Key() ignores the fingerprint")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key() does not separate fingerprint from text")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte(`[1]`)
	if err := c.Set("k", value, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'x'

	got, ok := c.Get("k")
	if !ok || string(got) != "[1]" {
		t.Fatalf("Get() = %q, %v; want [1], true", got, ok)
	}
	got[0] = 'y'
	if again, _ := c.Get("k"); string(again) != "[1]" {
		t.Errorf("stored value was mutated through Get(): %q", again)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Get() after Delete() found the key")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear() = %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(0, time.Minute)

	_ = c.Set("short", []byte("1"), time.Nanosecond)
	_ = c.Set("forever", []byte("2"), 0)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expired entry returned")
	}
	if _, ok := c.Get("forever"); !ok {
		t.Error("entry without ttl expired")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("fp", "text")

	if err := c.Set(key, []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := c.Get(key)
	if !ok || string(got) != `{"a":1}` {
		t.Fatalf("Get() = %q, %v", got, ok)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(files) != 1 || strings.Contains(filepath.Base(files[0]), ":") {
		t.Errorf("cache files = %v, want one file without colons", files)
	}

	if err := c.Set("bad", []byte("not json"), 0); err == nil {
		t.Error("Set() accepted a non-JSON value")
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete() of a missing key error = %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), 0)

	_ = c.Set("old", []byte("1"), time.Nanosecond)
	_ = c.Set("kept", []byte("2"), 0)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("old"); ok {
		t.Error("expired entry returned")
	}
	if _, ok := c.Get("kept"); !ok {
		t.Error("entry without ttl expired")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, 0)

	path := c.path("k")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("corrupt entry returned")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry was not removed")
	}
}

func TestDiskCache_ClearKeepsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, 0)
	other := filepath.Join(dir, "notes.txt")
	_ = os.WriteFile(other, []byte("keep"), 0644)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("entry survived Clear()")
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("Clear() removed an unrelated file: %v", err)
	}

	if err := NewDiskCache(filepath.Join(dir, "missing"), 0).Clear(); err != nil {
		t.Errorf("Clear() of a missing dir error = %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, 0)
	_ = disk.Set("k", []byte(`"v"`), 0)

	memory := NewMemoryCache(0, time.Minute)
	c := NewLayeredCache(memory, disk, 0)

	got, ok := c.Get("k")
	if !ok || string(got) != `"v"` {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
	if _, ok := memory.Get("k"); !ok {
		t.Error("disk hit was not promoted to memory")
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Get() after Delete() found the key")
	}
}

func TestLayeredCache_PromotionUsesTTL(t *testing.T) {
	disk := NewDiskCache(t.TempDir(), 0)
	_ = disk.Set("k", []byte(`"v"`), 0)

	memory := NewMemoryCache(0, time.Minute)
	c := NewLayeredCache(memory, disk, 10*time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("Get() missed the disk entry")
	}
	if _, ok := memory.Get("k"); !ok {
		t.Fatal("disk hit was not promoted to memory")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := memory.Get("k"); ok {
		t.Error("promoted entry outlived the promotion ttl")
	}
	if _, ok := c.Get("k"); !ok {
		t.Error("disk entry lost after the memory copy expired")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		dir     string
		want    string
		wantErr bool
	}{
		{kind: "", want: "<nil>"},
		{kind: KindNone, want: "<nil>"},
		{kind: KindMemory, want: "*cache.MemoryCache"},
		{kind: KindDisk, dir: "d", want: "*cache.DiskCache"},
		{kind: KindLayered, dir: "d", want: "*cache.LayeredCache"},
		{kind: KindDisk, wantErr: true},
		{kind: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			c, err := New(tt.kind, tt.dir, time.Minute)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := "<nil>"
			if c != nil {
				got = reflect.TypeOf(c).String()
			}
			if got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTokenStore_RoundTrip(t *testing.T) {
	s := NewTokenStore(NewDiskCache(t.TempDir(), 0), 0)
	tokens := []model.Token{
		{Text: "MEL", Tags: []string{"IATA", "ALPHA"}, Values: map[string]string{"IATA": "MEL"}, Score: 3.8},
		{Text: "–", Pre: " ", Post: " ", Tags: []string{"PUNCT"}, Pos: 4},
	}

	if err := s.Store("k", tokens); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, ok := s.Load("k")
	if !ok {
		t.Fatal("Load() missed")
	}
	if !reflect.DeepEqual(got, tokens) {
		t.Errorf("Load() = %+v, want %+v", got, tokens)
	}
}

func TestTokenStore_Nil(t *testing.T) {
	s := NewTokenStore(nil, 0)
	if err := s.Store("k", []model.Token{{Text: "a"}}); err != nil {
		t.Errorf("Store() error = %v", err)
	}
	if _, ok := s.Load("k"); ok {
		t.Error("Load() hit on a nil cache")
	}
}

func TestTokenStore_DropsUndecodable(t *testing.T) {
	mem := NewMemoryCache(0, time.Minute)
	_ = mem.Set("k", []byte(`{"not":"tokens"}`), 0)
	s := NewTokenStore(mem, 0)

	if _, ok := s.Load("k"); ok {
		t.Fatal("Load() decoded an object as tokens")
	}
	if _, ok := mem.Get("k"); ok {
		t.Error("undecodable entry was kept")
	}
}
