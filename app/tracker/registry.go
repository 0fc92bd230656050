package tracker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Seed is a declarative channel registration loaded from the channels
// directory at startup. Database state wins over seeds for the watermark;
// seeds win for configuration (name, chat, interval).
type Seed struct {
	ChannelID      string `yaml:"channel_id"`
	Name           string `yaml:"name"`
	TelegramChatID string `yaml:"telegram_chat_id"`
	CheckInterval  int    `yaml:"check_interval"`
}

// LoadSeeds reads all .yml/.yaml files from dir. A missing directory yields
// no seeds; an unparseable file is skipped with a warning so one bad file
// does not block startup.
func LoadSeeds(dir string) ([]Seed, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read channels directory: %w", err)
	}

	var seeds []Seed
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to read channel seed file", "file", path, "error", err)
			continue
		}

		var seed Seed
		if err := yaml.Unmarshal(data, &seed); err != nil {
			slog.Warn("Failed to parse channel seed file", "file", path, "error", err)
			continue
		}

		if seed.ChannelID == "" || seed.TelegramChatID == "" {
			slog.Warn("Channel seed file is missing channel_id or telegram_chat_id", "file", path)
			continue
		}

		if seed.CheckInterval == 0 {
			seed.CheckInterval = DefaultCheckInterval
		}

		seeds = append(seeds, seed)
	}

	return seeds, nil
}
