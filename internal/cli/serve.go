package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/tesouraria/internal/config"
	"github.com/tinoosan/tesouraria/internal/httpapi"
)

var flagServeMigrate bool

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (default command)",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&flagServeMigrate, "migrate", false, "Apply postgres migrations before serving")
	return cmd
}

// loadConfig loads and validates configuration and builds the logger from it.
// Maintenance commands pass serving=false and may run without a JWT secret.
func loadConfig(w io.Writer, serving bool) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	validate := cfg.ValidateMaintenance
	if serving {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return cfg, nil, err
	}
	logger := buildLogger(w, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(os.Stdout, true)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, flagServeMigrate, logger)
	if err != nil {
		logger.Error("failed to open storage", "err", err)
		return err
	}
	defer b.closeFn()
	logger.Info("storage backend: " + b.name)

	secret, err := jwtSecret(cfg, logger)
	if err != nil {
		return err
	}
	svc := buildServices(b, cfg, secret, logger)

	if b.name == config.BackendMemory {
		user, pass, err := seedDevUser(ctx, svc.Auth)
		if err != nil {
			logger.Error("dev seed failed", "err", err)
		} else {
			logger.Info("DEV seed (memory)", "nome_usuario", user)
			printDevSeedBanner(cmd.OutOrStdout(), user, pass)
		}
	}

	handler := httpapi.New(svc, httpapi.Options{
		ProtectAll:  cfg.Auth.ProtectAll,
		StaticDir:   cfg.Server.StaticDir,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, logger).Handler()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tesouraria listening", "addr", srv.Addr, "protect_all", cfg.Auth.ProtectAll)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		logger.Error("server error", "err", err)
		return err
	}
}

// printDevSeedBanner prints the generated credentials for easy copy/paste.
func printDevSeedBanner(w io.Writer, user, password string) {
	fmt.Fprintln(w, "==================== DEV SEED ====================")
	fmt.Fprintf(w, "nome_usuario: %s\n", user)
	fmt.Fprintf(w, "senha: %s\n", password)
	fmt.Fprintln(w, "==================================================")
}
