package vecindex

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ProviderConfig selects and configures the index backend. A non-empty
// Endpoint picks the remote server; otherwise the local SQLite store is
// used.
type ProviderConfig struct {
	// Endpoint is the remote vector server base URL. Empty means local.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as a Bearer token to the remote server.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Timeout per remote HTTP request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// DB backs the local store. Required when Endpoint is empty.
	DB *sql.DB `json:"-" yaml:"-"`

	// Model is recorded with locally stored vectors.
	Model string `json:"model" yaml:"model"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

// Provider hands out the process-wide Index. The backend is constructed
// exactly once; concurrent callers share the same instance, and a failed
// construction (unreachable remote server) is sticky so every caller sees
// the same error.
type Provider struct {
	cfg  ProviderConfig
	once sync.Once
	idx  Index
	err  error
}

// NewProvider creates a lazy provider. No connection is made until Get.
func NewProvider(cfg ProviderConfig) *Provider {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Provider{cfg: cfg}
}

// Get returns the shared Index, constructing it on first call.
func (p *Provider) Get(ctx context.Context) (Index, error) {
	p.once.Do(func() {
		if p.cfg.Endpoint != "" {
			p.cfg.Logger.Info("connecting to remote vector server", "endpoint", p.cfg.Endpoint)
			p.idx, p.err = NewRemote(ctx, p.cfg.Endpoint, p.cfg.APIKey, p.cfg.Timeout)
			return
		}
		if p.cfg.DB == nil {
			p.err = errNoBackend
			return
		}
		if p.err = InitSchema(p.cfg.DB); p.err != nil {
			return
		}
		p.cfg.Logger.Info("using local vector store")
		p.idx = NewSQLite(p.cfg.DB, p.cfg.Model, p.cfg.Logger)
	})
	return p.idx, p.err
}

var errNoBackend = errors.New("vecindex: no endpoint and no database configured")
