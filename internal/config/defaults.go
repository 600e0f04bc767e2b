package config

const (
	defaultDataDir           = "~/.local/share/revoice"
	defaultLogDir            = "~/.local/share/revoice/logs"
	defaultAPIBind           = "127.0.0.1:7820"
	defaultProcessingBaseURL = "http://127.0.0.1:5000"
	defaultUploadMaxMB       = 256
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Processing: Processing{
			BaseURL:     defaultProcessingBaseURL,
			UploadMaxMB: defaultUploadMaxMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
