package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// External API configuration
	TelegramBotToken string
	SummarizerURL    string
	SummarizerKey    string
	SummarizerModel  string

	// Application configuration
	ChannelsDir       string
	DataDir           string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	RetryInterval     int
	MaxVideosPerCheck int
	MaxRetryAttempts  int
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
