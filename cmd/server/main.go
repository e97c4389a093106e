package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/config"
	"liyu1981.xyz/speaker-energy-service/pkg/db"
	energyHttp "liyu1981.xyz/speaker-energy-service/pkg/http"
)

func main() {
	// .env is optional; containers pass real environment variables
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "Speaker energy telemetry service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./energy.yaml if present)")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if _, found := os.LookupEnv(common.EnvKeyLogDir); !found && cfg.Logging.Dir != "" {
			_ = os.Setenv(common.EnvKeyLogDir, cfg.Logging.Dir)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(
		newServeCmd(loadConfig),
		newMigrateCmd(loadConfig),
		newTokenCmd(loadConfig),
	)

	return rootCmd
}

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app := fx.New(newAppOptions(cfg))

			startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer startCancel()
			if err := app.Start(startCtx); err != nil {
				return fmt.Errorf("start application: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			<-ctx.Done()

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			return app.Stop(stopCtx)
		},
	}
}

func newMigrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dialector, err := dialectorFor(cfg)
			if err != nil {
				return err
			}
			conn, err := db.Open(dialector)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if err := db.Migrate(conn); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			common.GetLogger().Info("Database migration completed", zap.String("type", cfg.Database.Type))
			return nil
		},
	}
}

func newTokenCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the maintenance routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.AdminGuardEnabled() {
				return fmt.Errorf("auth.jwt_secret is not set, the maintenance routes are open")
			}

			token, err := energyHttp.NewAdminAuth(cfg.Auth.JWTSecret, cfg.Auth.AdminRole).
				GenerateToken(subject, cfg.Auth.AdminRole, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	return cmd
}
