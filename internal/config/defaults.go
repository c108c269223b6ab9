package config

const (
	defaultUploadDir          = "~/.local/share/lifeingest/uploads"
	defaultExtractDir         = "~/.local/share/lifeingest/unzipped_takeout"
	defaultOutputDir          = "~/.local/share/lifeingest/structured_output"
	defaultLogDir             = "~/.local/share/lifeingest/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMinFreeMiB         = 512
	defaultRetentionHours     = 24 * 14
	defaultHistoryEnabled     = true
	defaultHistoryFileName    = "history.db"
	defaultMetricsFileName    = "lifeingest.prom"
	defaultMetricsEnabled     = false
	defaultLockFileName       = "lifeingest.lock"
	defaultLogFileName        = "lifeingest.log"
	defaultCalendarOutputName = "calendar_events.json"
	defaultEmailOutputName    = "emails.json"
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:  defaultUploadDir,
			ExtractDir: defaultExtractDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Staging: Staging{
			MinFreeMiB:     defaultMinFreeMiB,
			RetentionHours: defaultRetentionHours,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Metrics: Metrics{
			Enabled: defaultMetricsEnabled,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			NotifySuccess:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
