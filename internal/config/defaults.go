package config

const (
	defaultDataDir              = "~/.local/share/redline"
	defaultStagingDir           = "~/.local/share/redline/staging"
	defaultDocumentsDir         = "~/.local/share/redline/documents"
	defaultLogDir               = "~/.local/share/redline/logs"
	defaultDownloadDir          = "~/Downloads"
	defaultServerBind           = "127.0.0.1:7488"
	defaultMaxUploadMiB         = 64
	defaultStagingTTLMinutes    = 60
	defaultSweepIntervalSeconds = 300
	defaultClientTimeout        = 60
	defaultMailPort             = 587
	defaultMailTLSPolicy        = "opportunistic"
	defaultMailTimeout          = 30
	defaultNotifyTimeout        = 10
	defaultBaseStrokeWidth      = 2.0
	defaultStrokeColor          = "#d32f2f"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			StagingDir:   defaultStagingDir,
			DocumentsDir: defaultDocumentsDir,
			LogDir:       defaultLogDir,
			DownloadDir:  defaultDownloadDir,
		},
		Server: Server{
			Bind:                 defaultServerBind,
			MaxUploadMiB:         defaultMaxUploadMiB,
			StagingTTLMinutes:    defaultStagingTTLMinutes,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
		},
		Client: Client{
			RequestTimeout: defaultClientTimeout,
		},
		Mail: Mail{
			Port:      defaultMailPort,
			TLSPolicy: defaultMailTLSPolicy,
			Timeout:   defaultMailTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Delivered:      true,
			RecordFailed:   true,
			Errors:         true,
		},
		Annotation: Annotation{
			BaseStrokeWidth: defaultBaseStrokeWidth,
			StrokeColor:     defaultStrokeColor,
			WarnOnOverwrite: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
