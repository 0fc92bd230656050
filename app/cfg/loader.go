package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/tubewatch.db" description:"SQLite database file path"`

	// External API configuration
	TelegramBotToken string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token (required)" required:"true"`
	SummarizerURL    string `long:"summarizer-url" env:"SUMMARIZER_URL" default:"https://api.openai.com/v1/chat/completions" description:"OpenAI-compatible chat completions endpoint"`
	SummarizerKey    string `long:"summarizer-key" env:"SUMMARIZER_KEY" description:"API key for the summarization endpoint"`
	SummarizerModel  string `long:"summarizer-model" env:"SUMMARIZER_MODEL" default:"gpt-4o-mini" description:"Model used for video summarization"`

	// Application configuration
	ChannelsDir       string `long:"channels-dir" env:"CHANNELS_DIR" default:"./channels" description:"Directory containing channel definition files"`
	DataDir           string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for process state files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for channel processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler tick interval in seconds"`
	RetryInterval     int    `long:"retry-interval" env:"RETRY_INTERVAL" default:"300" description:"Retry queue drain interval in seconds"`
	MaxVideosPerCheck int    `long:"max-videos-per-check" env:"MAX_VIDEOS_PER_CHECK" default:"5" description:"Maximum number of videos fetched per channel check"`
	MaxRetryAttempts  int    `long:"max-retry-attempts" env:"MAX_RETRY_ATTEMPTS" default:"5" description:"Maximum delivery attempts before a notification is dropped"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Tubewatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		TelegramBotToken:  raw.TelegramBotToken,
		SummarizerURL:     raw.SummarizerURL,
		SummarizerKey:     raw.SummarizerKey,
		SummarizerModel:   raw.SummarizerModel,
		ChannelsDir:       raw.ChannelsDir,
		DataDir:           raw.DataDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		RetryInterval:     raw.RetryInterval,
		MaxVideosPerCheck: raw.MaxVideosPerCheck,
		MaxRetryAttempts:  raw.MaxRetryAttempts,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
