package testsupport

import (
	"path/filepath"
	"testing"

	"clientbook/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "data", "clients.db")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithAPIToken sets the gateway bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithMaxBatchSize overrides the batch size limit on the test config.
func WithMaxBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.MaxBatchSize = size
	}
}

// WithExportFormat overrides the default export format on the test config.
func WithExportFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.Format = format
	}
}

// WithMaxImportBytes overrides the import size limit on the test config.
func WithMaxImportBytes(limit int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.MaxFileBytes = limit
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ExportDir)
}
