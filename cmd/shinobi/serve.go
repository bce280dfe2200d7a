package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"shinobi/internal/app"
	"shinobi/internal/db"
	"shinobi/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				cfg.Server.BasePath = basePath
			}
			if secret := viper.GetString("jwt-secret"); secret != "" {
				cfg.Server.JWTSecret = secret
			}
			if cfg.Server.RequireAuth && cfg.Server.JWTSecret == "" {
				log.Warn("auth required without a JWT secret; only API keys will be accepted")
			}

			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			e, conn, err := app.OpenEngine(workspace, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			opts, err := app.FormatterOptions(cfg)
			if err != nil {
				return err
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: cfg.Server.BasePath,
				Auth:     server.AuthConfig{Required: cfg.Server.RequireAuth, JWTSecret: cfg.Server.JWTSecret},
				Export:   opts,
				Logger:   log,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			server.StartWebhooks(ctx, e.Repo, cfg.Webhooks, log)

			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Info("serving shinobi api",
				zap.String("addr", cfg.Server.Addr),
				zap.String("base_path", cfg.Server.BasePath),
				zap.Int("webhooks", len(cfg.Webhooks)),
			)
			fmt.Printf("Serving Shinobi API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":5000", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer tokens")
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}
