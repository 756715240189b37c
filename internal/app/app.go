// Package app wires the adapters to the core services and owns process
// configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/rostersync/internal/adapters/jsonfile"
	"github.com/atvirokodosprendimai/rostersync/internal/adapters/notify"
	"github.com/atvirokodosprendimai/rostersync/internal/adapters/remote"
	sqliteadapter "github.com/atvirokodosprendimai/rostersync/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/rostersync/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
	"github.com/atvirokodosprendimai/rostersync/internal/core/usecase"
	"github.com/atvirokodosprendimai/rostersync/migrations"
)

type Config struct {
	Addr          string        `envconfig:"ADDR" default:":8080"`
	DataDir       string        `envconfig:"DATA_DIR" default:"./data"`
	SettingsDB    string        `envconfig:"SETTINGS_DB"`
	RemoteURL     string        `envconfig:"REMOTE_URL"`
	RemoteKey     string        `envconfig:"REMOTE_KEY"`
	RemoteTimeout time.Duration `envconfig:"REMOTE_TIMEOUT" default:"30s"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads ROSTERSYNC_* environment variables over the defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("rostersync", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.SettingsDB == "" {
		cfg.SettingsDB = filepath.Join(cfg.DataDir, "settings.sqlite")
	}
	return cfg, nil
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// App is the assembled application: every core service plus the HTTP
// boundary, sharing one settings database and one data directory.
type App struct {
	Entities *usecase.EntityService
	Audit    *usecase.AuditService
	Registry *usecase.RegistryService
	Syncer   *usecase.SyncService
	Alerts   *usecase.AlertService
	Intel    *usecase.IntelligenceService
	Seeder   *usecase.SeedService
	Handler  *httpapi.Handler

	cfg    Config
	closer io.Closer
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func New(ctx context.Context, cfg Config, log zerolog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := gormsqlite.Open(cfg.SettingsDB)
	if err != nil {
		return nil, fmt.Errorf("open settings sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, err
	}

	guard, err := usecase.NewSchemaGuard()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	settings := sqliteadapter.NewSettingsRepository(db)
	registry := usecase.NewRegistryService(settings)
	store := jsonfile.New(cfg.DataDir, log)
	audit := usecase.NewAuditService(store, registry, guard, log)
	entities := usecase.NewEntityService(store, store, guard, audit, log)
	dialer := &remoteDialer{cfg: cfg, registry: registry, log: log}
	syncer := usecase.NewSyncService(entities, registry, dialer, log)
	alerts := usecase.NewAlertService(entities, notify.NewLogNotifier(log), log)
	intel := usecase.NewIntelligenceService(entities, log)
	seeder := usecase.NewSeedService(entities, audit, registry, log)
	handler := httpapi.NewHandler(entities, audit, registry, syncer, alerts, intel, seeder, dialer, log)

	return &App{
		Entities: entities,
		Audit:    audit,
		Registry: registry,
		Syncer:   syncer,
		Alerts:   alerts,
		Intel:    intel,
		Seeder:   seeder,
		Handler:  handler,
		cfg:      cfg,
		closer:   resourceCloser{closers: []io.Closer{db}},
	}, nil
}

func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) Close() error {
	return a.closer.Close()
}

// remoteDialer resolves remote credentials, environment first, then the
// settings store. Dialing is cheap; credentials changed through the settings
// surface take effect on the next sync without a restart.
type remoteDialer struct {
	cfg      Config
	registry *usecase.RegistryService
	log      zerolog.Logger
}

func (d *remoteDialer) Dial(ctx context.Context) (ports.RemoteStore, error) {
	url, key := d.cfg.RemoteURL, d.cfg.RemoteKey
	if url == "" || key == "" {
		storedURL, storedKey, err := d.registry.RemoteConfig(ctx)
		if err != nil {
			return nil, err
		}
		url, key = storedURL, storedKey
	}
	if url == "" || key == "" {
		return nil, domain.ErrRemoteNotConfigured
	}
	return remote.New(remote.Config{BaseURL: url, APIKey: key, Timeout: d.cfg.RemoteTimeout}, d.log), nil
}

var _ ports.RemoteDialer = (*remoteDialer)(nil)
