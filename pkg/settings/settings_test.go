package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aeroviz-dev/fatigueviz/pkg/roster"
)

func TestLoadMissingFile(t *testing.T) {
	store, err := NewStore(nil, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if got.PilotID != "" || got.CrewOverrides != nil {
		t.Errorf("expected zero settings, got %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(nil, filepath.Join(t.TempDir(), "nested"))
	if err != nil {
		t.Fatal(err)
	}

	want := Settings{
		PilotID:       "P123",
		HomeBase:      "LHR",
		HomeTimezone:  "Europe/London",
		ConfigPreset:  "easa-default",
		CrewOverrides: roster.CrewOverrides{"D2": "augmented"},
		ServiceURL:    "https://fatigue.example.com",
	}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.PilotID != want.PilotID || got.HomeTimezone != want.HomeTimezone {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.CrewOverrides["D2"] != "augmented" {
		t.Errorf("crew overrides not persisted: %+v", got.CrewOverrides)
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(nil, dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save(Settings{PilotID: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(Settings{PilotID: "new"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.PilotID != "new" {
		t.Errorf("pilot id = %q, want new", got.PilotID)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestLoadCorruptFileDiscarded(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(nil, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt file should not error: %v", err)
	}
	if got.PilotID != "" || got.HomeBase != "" {
		t.Errorf("expected zero settings, got %+v", got)
	}
}
