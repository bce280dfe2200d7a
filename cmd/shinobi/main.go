package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"shinobi/internal/app"
	"shinobi/internal/config"
	"shinobi/internal/db"
	"shinobi/internal/engine"
	"shinobi/internal/logger"
)

var log = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "shinobi",
	Short: "Shinobi CLI",
	Long: `Shinobi keeps the village registry: ninjas, missions and who was sent where.
- Workspace: the .shinobi directory holding the SQLite database.
- Ranks: ninjas are Genin, Chūnin or Jōnin; missions go from D to S. A ninja only takes missions their rank allows.
- Reports: per-ninja and per-mission summaries of assignments.
- Export: fetch every ninja and mission from the API and write a text, JSON or XML report.
- Event log: every change is recorded and can be pushed to webhooks by 'shinobi serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.New(logger.Options{
			JSON:    viper.GetBool("log-json"),
			Verbose: viper.GetBool("verbose"),
		})
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	err := rootCmd.Execute()
	_ = log.Sync()
	if err != nil {
		if !errors.Is(err, errExportFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SHINOBI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.String("config", "", "config file (default <workspace>/shinobi.yml)")
	flags.Bool("json", false, "output JSON")
	flags.String("api-url", "", "API base URL (overrides config)")
	flags.String("api-key", "", "API key sent as X-Api-Key (overrides config)")
	flags.String("actor-id", "local-user", "actor recorded in the event log")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.Bool("log-json", false, "log as JSON lines")
	for _, name := range []string{"workspace", "config", "json", "api-url", "api-key", "actor-id", "verbose", "log-json"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ninjaCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect the CLI and server config",
		Long:  "Config lives in shinobi.yml inside the workspace: API endpoint and credentials, export output, server settings and webhooks.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default shinobi.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return errors.Wrapf(err, "write %s", path)
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the newest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.LatestEvents(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor"})
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + "/" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	lg.AddCommand(tail)
	return lg
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	return app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"), app.Overrides{
		APIURL: viper.GetString("api-url"),
		APIKey: viper.GetString("api-key"),
	})
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return err
	}
	e, conn, err := app.OpenEngine(workspace, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func actorID() string {
	return viper.GetString("actor-id")
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf("invalid id %q", arg)
	}
	return id, nil
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func optionalString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func optionalInt(cmd *cobra.Command, name string, value int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
