package config

const (
	defaultConfigPath         = "~/.config/gamereporter/config.toml"
	defaultDataDir            = "~/.local/share/gamereporter"
	defaultLogDir             = "~/.local/share/gamereporter/logs"
	defaultUserJSON           = "~/.config/SlippiOnline/user.json"
	defaultGraphQLURL         = "https://internal.slippi.gg/graphql"
	defaultAPITimeoutSeconds  = 5
	defaultClientVersion      = "dev"
	defaultBuild              = "mainline"
	defaultMaxAttempts        = 5
	defaultBackoffStepMS      = 100
	defaultUploadMaxBytes     = 10000000
	defaultStatusQueueSize    = 64
	defaultUploadTimeout      = 30
	defaultContentRangeHeader = "X-Goog-Content-Length-Range"
	defaultMetricsBind        = "127.0.0.1:9477"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UserJSON: defaultUserJSON,
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			GraphQLURL:     defaultGraphQLURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
			ClientVersion:  defaultClientVersion,
			Build:          defaultBuild,
			IPv4Only:       true,
		},
		Reporter: Reporter{
			MaxAttempts:     defaultMaxAttempts,
			BackoffStepMS:   defaultBackoffStepMS,
			UploadMaxBytes:  defaultUploadMaxBytes,
			StatusQueueSize: defaultStatusQueueSize,
			UploadTimeout:   defaultUploadTimeout,
			ContentRangeHdr: defaultContentRangeHeader,
		},
		Journal: Journal{
			Enabled: true,
		},
		Metrics: Metrics{
			Enabled: false,
			Bind:    defaultMetricsBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
