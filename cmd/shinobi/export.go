package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"shinobi/internal/app"
	"shinobi/internal/config"
	"shinobi/internal/delivery"
	"shinobi/internal/engine"
	"shinobi/internal/export"
	"shinobi/internal/server"
	"shinobi/internal/source"
)

// errExportFailed is returned after the failure line was already printed.
var errExportFailed = errors.New("export failed")

func exportCmd() *cobra.Command {
	var format, out string
	var noPreview, local bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every ninja and mission as text, JSON or XML",
		Long: `Fetches ninjas and missions from the API, renders them in the chosen format,
prints a preview and saves reporte_ninjas.<ext> in the output directory.
Formats: txt (texto), json, xml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Export.OutputDir = out
			}
			var preview io.Writer = os.Stdout
			if noPreview || viper.GetBool("json") {
				preview = nil
			}
			dst := &delivery.File{
				Dir:          cfg.Export.OutputDir,
				Preview:      preview,
				PreviewLines: cfg.Export.PreviewLines,
				Logger:       log,
			}
			if local {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					return runExport(ctx, cfg, source.Store{Lister: e}, dst, format)
				})
			}
			return runExport(cmd.Context(), cfg, source.NewHTTP(app.APIClient(cfg)), dst, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "txt", "output format: txt, json or xml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&noPreview, "no-preview", false, "do not print the document")
	cmd.Flags().BoolVar(&local, "local", false, "read from the workspace database instead of the API")
	return cmd
}

func runExport(ctx context.Context, cfg *config.Config, src export.Source, dst *delivery.File, format string) error {
	opts, err := app.FormatterOptions(cfg)
	if err != nil {
		return err
	}
	exp := export.New(src, dst, log, opts)
	doc, err := exp.Export(ctx, format)
	if err != nil {
		log.Debug("export failed", zap.String("format", format), zap.Error(err))
		if viper.GetBool("json") {
			_ = printJSON(map[string]any{"ok": false, "error": export.Describe(err)})
		} else {
			fmt.Fprintln(os.Stderr, export.Describe(err))
		}
		return errExportFailed
	}
	if viper.GetBool("json") {
		return printJSON(map[string]any{
			"ok":        true,
			"export_id": doc.ExportID,
			"formato":   doc.Format.String(),
			"path":      dst.LastPath(),
			"ninjas":    doc.Ninjas,
			"misiones":  doc.Missions,
		})
	}
	fmt.Printf("%s -> %s\n", export.SuccessMessage(doc), dst.LastPath())
	return nil
}

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage API keys for the server"}
	var actor, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key; the secret is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, secret, err := e.CreateAPIKey(ctx, actor, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "actor_id": key.ActorID, "name": key.Name, "key": secret})
				}
				fmt.Printf("API key for %s (id %s):\n%s\n", key.ActorID, key.ID, secret)
				return nil
			})
		},
	}
	create.Flags().StringVar(&actor, "actor", "", "actor the key authenticates as")
	create.Flags().StringVar(&name, "name", "", "label")
	_ = create.MarkFlagRequired("actor")
	ak.AddCommand(create)
	return ak
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token with the server's JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				secret = cfg.Server.JWTSecret
			}
			if strings.TrimSpace(secret) == "" {
				return errors.New("no JWT secret: set server.jwt_secret or SHINOBI_JWT_SECRET")
			}
			token, err := server.IssueToken(secret, subject, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "actor id carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
