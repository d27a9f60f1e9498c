// Package main is the storymap API entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/emilythestrangee/storymap/backend/internal/config"
	"github.com/emilythestrangee/storymap/backend/internal/database"
	"github.com/emilythestrangee/storymap/backend/internal/logger"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/server"
	"github.com/emilythestrangee/storymap/backend/internal/services"
	"github.com/emilythestrangee/storymap/backend/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storymap",
		Short:         "Geotagged story sharing API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	})

	root.AddCommand(grantRoleCmd())

	return root
}

func grantRoleCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "grant-role EMAIL",
		Short: "Set an account's role directly in the database",
		Long:  "Set an account's role directly in the database. This is the only way to create a SuperAdmin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return grantRole(cmd.Context(), args[0], models.Role(role))
		},
	}
	cmd.Flags().StringVar(&role, "role", string(models.RoleSuperAdmin), "User, Admin or SuperAdmin")
	return cmd
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func serve(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	srv, cleanup, err := server.NewServer(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr(srv)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DSN(), gormlogger.Default.LogMode(gormlogger.Warn))
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Info("database migrations completed", zap.String("database", cfg.DBName))

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func grantRole(ctx context.Context, email string, role models.Role) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DSN(), gormlogger.Default.LogMode(gormlogger.Warn))
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	user, err := services.NewUserService(db, storage.Unavailable{}).SetRole(ctx, email, role)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", user.Email, user.Role)
	return nil
}
