package fsstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestGet_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), "storage.json"))
	got, err := store.Get(context.Background(), "runOnClose", "whitelist")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for missing file, got %v", got)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), "storage.json"))
	ctx := context.Background()

	err := store.Set(ctx, map[string]json.RawMessage{
		"runOnClose": json.RawMessage("true"),
		"whitelist":  json.RawMessage(`[{"domain":"a.com","keepCookies":1,"keepCache":0}]`),
	})
	if err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := store.Get(ctx, "runOnClose", "whitelist", "absent")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got["runOnClose"]) != "true" {
		t.Errorf("runOnClose = %s, want true", got["runOnClose"])
	}
	if _, ok := got["absent"]; ok {
		t.Error("absent key present in result")
	}
}

func TestSet_MergesWithExistingKeys(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), "storage.json"))
	ctx := context.Background()

	if err := store.Set(ctx, map[string]json.RawMessage{"a": json.RawMessage("1")}); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := store.Set(ctx, map[string]json.RawMessage{"b": json.RawMessage("2")}); err != nil {
		t.Fatalf("second Set: %v", err)
	}

	got, err := store.Get(ctx, "a", "b")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Fatalf("merge lost keys: %v", got)
	}
}

func TestSet_LeavesNoTempFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(filepath.Join(dir, "storage.json"))

	if err := store.Set(context.Background(), map[string]json.RawMessage{"a": json.RawMessage("1")}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "storage.json.tmp")); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after Set")
	}
}

func TestGet_CorruptFileFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := New(path).Get(context.Background(), "a"); err == nil {
		t.Fatal("expected decode error for corrupt storage file")
	}
}
