package testsupport

import (
	"path/filepath"
	"testing"

	"fieldsync/internal/config"
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
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.BaseURL = "http://127.0.0.1:0"
	cfgVal.Server.APIToken = "test-token"
	cfgVal.Network.ProbeURL = "http://127.0.0.1:0/healthz"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServer points the test config at a live upload endpoint, typically an
// httptest server URL.
func WithServer(baseURL, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.BaseURL = baseURL
		b.cfg.Server.APIToken = token
		b.cfg.Network.ProbeURL = baseURL + "/healthz"
	}
}

// WithWorkerCount overrides the sync worker pool size on the test config.
func WithWorkerCount(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.WorkerCount = n
	}
}

// WithMaxAttempts overrides the upload attempt ceiling on the test config.
func WithMaxAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.MaxAttempts = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
