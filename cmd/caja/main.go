package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"caja/internal/auth"
	"caja/internal/backend"
	"caja/internal/cli"
	"caja/internal/config"
	"caja/internal/core"
	apphttp "caja/internal/http"
	"caja/internal/legacy"
	clog "caja/internal/log"
	"caja/internal/seed"
	"caja/internal/services"
)

func main() {
	var (
		importLegacy = flag.String("import-legacy", "", "JSON file of legacy records to place in the legacy cache before startup (requires LEGACY_DB_PATH)")
		hashPassword = flag.Bool("hash-password", false, "read a password from stdin, print its bcrypt hash for AUTH_USERS and exit")
	)
	flag.Parse()

	if *hashPassword {
		if err := printPasswordHash(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting caja", clog.FieldOperation, clog.OpStartup, "port", cfg.Port, "backend", cfg.DataBackend)

	tax, err := loadTaxonomy(cfg)
	if err != nil {
		logger.Error("Failed to load taxonomy", clog.FieldError, err, "path", cfg.TaxonomyFile)
		os.Exit(1)
	}

	authn, err := auth.NewStaticAuthenticator(cfg.AuthUsers)
	if err != nil {
		logger.Error("Invalid AUTH_USERS", clog.FieldError, err)
		os.Exit(1)
	}
	if authn.Users() == 0 {
		logger.Error("AUTH_USERS is empty: nobody could log in")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", clog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", clog.FieldError, err)
		os.Exit(1)
	}

	if *importLegacy != "" {
		if err := importLegacyFile(res.Legacy, *importLegacy); err != nil {
			logger.Error("Legacy import failed", clog.FieldError, err, "file", *importLegacy)
			_ = res.Cleanup()
			os.Exit(1)
		}
		logger.Info("Legacy records placed in cache", clog.FieldOperation, clog.OpImport, "file", *importLegacy)
	}

	rec := services.NewReconciler(res.Store, res.Legacy, func() []core.Entry {
		return seed.Generate(seed.DefaultHistory(), tax, cfg.SeedYear)
	}).WithPublisher(res.Publisher)

	feed := services.NewFeed(res.Store, rec, tax)
	feed.Start()

	ledger := services.NewLedgerService(res.Store, res.Store, tax, res.Publisher)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Feed:          feed,
		Ledger:        ledger,
		Authenticator: authn,
		Sessions:      auth.NewSessions(1000, cfg.SessionTTL),
		Logger:        logger,
		CookieSecure:  cfg.SessionCookieSecure,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", clog.FieldError, err)
		feed.Stop()
		_ = res.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", clog.FieldError, err)
		}
		feed.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", clog.FieldError, err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr, "users", authn.Users())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", clog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", clog.FieldOperation, clog.OpShutdown)
}

func loadTaxonomy(cfg *config.Config) (core.Taxonomy, error) {
	if cfg.TaxonomyFile == "" {
		return core.DefaultTaxonomy(), nil
	}
	return core.LoadTaxonomy(cfg.TaxonomyFile)
}

func importLegacyFile(cache legacy.Cache, path string) error {
	bc, ok := cache.(*legacy.BoltCache)
	if !ok {
		return errors.New("legacy cache disabled: set LEGACY_DB_PATH")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read legacy file: %w", err)
	}
	return bc.Put(raw)
}

func printPasswordHash() error {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
