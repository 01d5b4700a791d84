package config

const (
	defaultDataDir = "~/.local/share/fieldsync"
	defaultLogDir  = "~/.local/share/fieldsync/logs"

	defaultUploadTimeout = 120

	defaultProbeInterval = 15
	defaultProbeTimeout  = 5

	defaultWorkerCount       = 3
	defaultMaxAttempts       = 5
	defaultStaleClaimTimeout = 300
	defaultSyncInterval      = 300
	defaultHeartbeatInterval = 15

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			UploadTimeout: defaultUploadTimeout,
		},
		Network: Network{
			ProbeInterval: defaultProbeInterval,
			ProbeTimeout:  defaultProbeTimeout,
		},
		Sync: Sync{
			WorkerCount:       defaultWorkerCount,
			MaxAttempts:       defaultMaxAttempts,
			StaleClaimTimeout: defaultStaleClaimTimeout,
			SyncInterval:      defaultSyncInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			SyncStarted:    true,
			SyncCompleted:  true,
			ItemFailed:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
