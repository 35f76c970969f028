package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinoosan/tesouraria/internal/config"
	"github.com/tinoosan/tesouraria/internal/dictionary"
	"github.com/tinoosan/tesouraria/internal/httpapi"
	"github.com/tinoosan/tesouraria/internal/service/auth"
	"github.com/tinoosan/tesouraria/internal/service/contributor"
	"github.com/tinoosan/tesouraria/internal/service/entry"
	"github.com/tinoosan/tesouraria/internal/service/report"
	"github.com/tinoosan/tesouraria/internal/storage/memory"
	pgstore "github.com/tinoosan/tesouraria/internal/storage/postgres"
	sqlitestore "github.com/tinoosan/tesouraria/internal/storage/sqlite"
)

// store is everything the services need from a backend.
type store interface {
	contributor.Repo
	contributor.Writer
	entry.Repo
	entry.Writer
	report.Repo
	report.Writer
	auth.Repo
	auth.Writer
	httpapi.ReadyChecker
}

var (
	_ store = (*memory.Store)(nil)
	_ store = (*pgstore.Store)(nil)
	_ store = (*sqlitestore.Store)(nil)
)

type backend struct {
	store
	name    string
	closeFn func()
}

// openBackend connects to the configured store. Postgres migrations run only when migrate is set;
// sqlite always migrates on open.
func openBackend(ctx context.Context, cfg config.Config, migrate bool, logger *slog.Logger) (*backend, error) {
	switch name := cfg.ResolvedBackend(); name {
	case config.BackendPostgres:
		dsn := cfg.PostgresDSN()
		if migrate {
			if err := pgstore.Migrate(dsn); err != nil {
				return nil, err
			}
			logger.Info("migrations applied", "backend", name)
		}
		pg, err := pgstore.Open(ctx, dsn, int32(cfg.Storage.MaxConns))
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return &backend{store: pg, name: name, closeFn: pg.Close}, nil
	case config.BackendSQLite:
		db, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath, cfg.Storage.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &backend{store: db, name: name, closeFn: func() { _ = db.Close() }}, nil
	case config.BackendMemory:
		m := memory.New()
		return &backend{store: m, name: name, closeFn: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
}

// jwtSecret returns the configured secret. The memory backend gets a random one per process.
func jwtSecret(cfg config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Auth.JWTSecret != "" {
		return []byte(cfg.Auth.JWTSecret), nil
	}
	if cfg.ResolvedBackend() != config.BackendMemory {
		return nil, fmt.Errorf("JWT_SECRET is required for the %s backend", cfg.ResolvedBackend())
	}
	logger.Warn("JWT_SECRET not set; using a random secret, tokens will not survive a restart")
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func buildServices(b *backend, cfg config.Config, secret []byte, logger *slog.Logger) httpapi.Services {
	cats := dictionary.New(cfg.Report.Categories)
	return httpapi.Services{
		Contributors: contributor.New(b, b),
		Entries:      entry.New(b, b),
		Reports:      report.New(b, b, cats.ReportCategories(), logger),
		Auth:         auth.New(b, b, secret, auth.WithTTL(cfg.TokenTTL())),
		Categories:   cats,
		Ready:        b,
	}
}

// seedDevUser creates an operator on the memory backend so a fresh process can log in.
func seedDevUser(ctx context.Context, svc auth.Service) (username, password string, err error) {
	raw := make([]byte, 9)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	username, password = "admin", hex.EncodeToString(raw)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := svc.CreateUser(ctx, username, password, auth.DefaultRole); err != nil {
		return "", "", err
	}
	return username, password, nil
}
