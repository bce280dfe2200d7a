// Package app wires configuration, storage and clients for the CLI commands.
package app

import (
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"shinobi/internal/config"
	"shinobi/internal/db"
	"shinobi/internal/engine"
	"shinobi/internal/export"
	"shinobi/internal/migrate"
	shinobisdk "shinobi/sdk/go"
)

// Overrides are command-line values that win over the config file.
type Overrides struct {
	APIURL string
	APIKey string
}

// ResolveConfig loads the config at path when given, otherwise the
// workspace's shinobi.yml, falling back to defaults when neither exists.
func ResolveConfig(workspace, path string, o Overrides) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if strings.TrimSpace(path) != "" {
		cfg, err = config.FromFile(path)
	} else {
		cfg, err = config.LoadOptional(workspace)
	}
	if err != nil {
		return nil, err
	}
	if o.APIURL != "" {
		cfg.API.BaseURL = strings.TrimRight(o.APIURL, "/")
	}
	if o.APIKey != "" {
		cfg.API.APIKey = o.APIKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenEngine opens the workspace database, applies pending migrations and
// returns an engine over it. The caller closes the returned connection.
func OpenEngine(workspace string, log *zap.Logger) (engine.Engine, *sql.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	pending, err := migrate.Pending(conn)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, errors.Wrap(err, "inspect migrations")
	}
	if pending > 0 {
		log.Info("applying migrations", zap.Int("pending", pending), zap.String("db", db.Path(workspace)))
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, errors.Wrap(err, "migrate")
	}
	return engine.New(conn), conn, nil
}

// APIClient builds an API client from the api section of cfg.
func APIClient(cfg *config.Config) *shinobisdk.Client {
	c := shinobisdk.New(cfg.API.BaseURL)
	c.APIKey = cfg.API.APIKey
	c.BearerToken = cfg.API.BearerToken
	if t := cfg.API.Timeout(); t > 0 {
		c.Timeout = t
	}
	return c
}

// FormatterOptions maps the export section of cfg onto formatter settings.
func FormatterOptions(cfg *config.Config) (export.FormatterOptions, error) {
	loc, err := cfg.Export.Location()
	if err != nil {
		return export.FormatterOptions{}, err
	}
	return export.FormatterOptions{Locale: cfg.Export.Tag(), Location: loc}, nil
}
