package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"libraryd/internal/auth"
	"libraryd/internal/config"
	"libraryd/internal/handlers"
	"libraryd/internal/repositories"
	"libraryd/internal/services"
	"libraryd/internal/storage"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:          "libraryd",
		Short:        "Library loans, inventory, reviews and messages over HTTP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func openStore(cfg config.Config, logger *slog.Logger) (*gorm.DB, error) {
	return storage.Open(storage.Options{
		Driver:          cfg.DatabaseDriver,
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		Logger:          logger,
	})
}

func migrate(cfg config.Config) error {
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	logger := cfg.NewLogger()
	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	if err := storage.Migrate(db); err != nil {
		return err
	}
	logger.Info("schema migrated", "db_driver", cfg.DatabaseDriver)
	return nil
}

func serve(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	authCfg := auth.Config{
		HMACSecret: []byte(cfg.JWTHMACSecret),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		EmailClaim: cfg.JWTEmailClaim,
		RoleClaim:  cfg.JWTRoleClaim,
		Leeway:     30 * time.Second,
	}
	if cfg.JWTPublicKeyFile != "" {
		if err := authCfg.LoadPublicKey(cfg.JWTPublicKeyFile); err != nil {
			return err
		}
	}
	verifier, err := auth.NewVerifier(authCfg)
	if err != nil {
		return err
	}

	bookRepo := repositories.NewBookRepository(db)
	checkoutRepo := repositories.NewCheckoutRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)
	messageRepo := repositories.NewMessageRepository(db)

	withLogger := services.WithLogger(logger)
	libraryService := services.NewLibraryService(db, bookRepo, checkoutRepo, historyRepo, reviewRepo, withLogger)
	reviewService := services.NewReviewService(db, bookRepo, reviewRepo, withLogger)
	messageService := services.NewMessageService(db, messageRepo, withLogger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(logger))

	handlers.RegisterRoutes(router, handlers.Dependencies{
		Library:      libraryService,
		Reviews:      reviewService,
		Messages:     messageService,
		Verifier:     verifier,
		Logger:       logger,
		LegacyErrors: cfg.LegacyErrors,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr, "db_driver", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
