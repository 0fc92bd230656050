package tracker

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
}

func TestLoadSeeds(t *testing.T) {
	dir := t.TempDir()

	writeSeedFile(t, dir, "channel-a.yml", `
channel_id: UCdQw4w9WgXcQdQw4w9WgXcQ
name: Channel A
telegram_chat_id: "123456"
check_interval: 1800
`)
	writeSeedFile(t, dir, "channel-b.yaml", `
channel_id: UCabcdefghijabcdefghijxx
telegram_chat_id: "-100987654"
`)
	writeSeedFile(t, dir, "notes.txt", "not a seed")
	writeSeedFile(t, dir, "broken.yml", "channel_id: [unclosed")
	writeSeedFile(t, dir, "incomplete.yml", "name: missing ids")

	seeds, err := LoadSeeds(dir)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(seeds) != 2 {
		t.Fatalf("Expected 2 valid seeds, got %d", len(seeds))
	}

	byID := make(map[string]Seed)
	for _, s := range seeds {
		byID[s.ChannelID] = s
	}

	a, ok := byID["UCdQw4w9WgXcQdQw4w9WgXcQ"]
	if !ok {
		t.Fatal("Expected seed for channel A")
	}
	if a.Name != "Channel A" || a.CheckInterval != 1800 || a.TelegramChatID != "123456" {
		t.Errorf("Unexpected channel A seed: %+v", a)
	}

	b, ok := byID["UCabcdefghijabcdefghijxx"]
	if !ok {
		t.Fatal("Expected seed for channel B")
	}
	if b.CheckInterval != DefaultCheckInterval {
		t.Errorf("Expected default interval for channel B, got %d", b.CheckInterval)
	}
}

func TestLoadSeedsMissingDir(t *testing.T) {
	seeds, err := LoadSeeds(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Expected no error for missing directory, got: %v", err)
	}
	if len(seeds) != 0 {
		t.Errorf("Expected no seeds, got %d", len(seeds))
	}
}
