package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// on returns tx when set, the pooled handle otherwise.
func (r Repo) on(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func joinJutsus(jutsus []string) string {
	clean := make([]string, 0, len(jutsus))
	for _, j := range jutsus {
		if j = strings.TrimSpace(j); j != "" {
			clean = append(clean, j)
		}
	}
	return strings.Join(clean, ",")
}

func splitJutsus(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, what)
	}
	return err
}

func affectedOne(res sql.Result, what string) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(ErrNotFound, what)
	}
	return nil
}
