package config

const (
	defaultDataDir          = "~/.local/share/clientbook"
	defaultDatabaseName     = "clients.db"
	defaultExportDirName    = "exports"
	defaultServerBind       = "127.0.0.1:8087"
	defaultReadTimeout      = 15
	defaultWriteTimeout     = 60
	defaultSubmitter        = "unknown"
	defaultMaxBatchSize     = 500
	defaultExportFormat     = "xlsx"
	defaultExportFilePrefix = "clients"
	defaultImportMaxBytes   = 20 << 20
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
// Database and export paths are derived from the data directory during
// normalization when left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Server: Server{
			Bind:                defaultServerBind,
			ReadTimeoutSeconds:  defaultReadTimeout,
			WriteTimeoutSeconds: defaultWriteTimeout,
		},
		Ingest: Ingest{
			DefaultSubmitter: defaultSubmitter,
			MaxBatchSize:     defaultMaxBatchSize,
		},
		Export: Export{
			Format:     defaultExportFormat,
			FilePrefix: defaultExportFilePrefix,
		},
		Import: Import{
			MaxFileBytes: defaultImportMaxBytes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
