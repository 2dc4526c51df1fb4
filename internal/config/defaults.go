package config

const (
	defaultBaseURL             = "http://localhost:8000"
	defaultTimeoutSeconds      = 30
	defaultRetryAttempts       = 3
	defaultPollIntervalSeconds = 2
	defaultErrorBackoffSeconds = 5
	defaultMaxPollAttempts     = 900
	defaultTextTTLMinutes      = 0
	defaultNotifyTimeout       = 10
	defaultStateDir            = "~/.local/share/techxfer"
	defaultLogDir              = "~/.local/share/techxfer/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogMaxSizeMB        = 10
	defaultLogMaxBackups       = 5
	defaultLogMaxAgeDays       = 30

	tokenEnvVar   = "TECHXFER_API_TOKEN"
	baseURLEnvVar = "TECHXFER_API_URL"
	projectEnvVar = "TECHXFER_PROJECT_ID"
	ntfyEnvVar    = "TECHXFER_NTFY_TOPIC"
)

// DefaultTargetColumns are the BOM columns requested from the agent when none are configured.
var DefaultTargetColumns = []string{"Part Number", "Description", "Quantity", "Manufacturer", "Price"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
			RetryAttempts:  defaultRetryAttempts,
		},
		Workflow: Workflow{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			ErrorBackoffSeconds: defaultErrorBackoffSeconds,
			MaxPollAttempts:     defaultMaxPollAttempts,
			TargetColumns:       append([]string(nil), DefaultTargetColumns...),
		},
		Cache: Cache{
			TextTTLMinutes: defaultTextTTLMinutes,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Journal: Journal{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
