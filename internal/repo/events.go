package repo

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"shinobi/internal/domain"
)

const eventColumns = `id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json`

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns up to limit events with id greater than afterID, oldest first.
func (r Repo) EventsAfter(ctx context.Context, afterID int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE id>? ORDER BY id LIMIT ?`, afterID, limit)
}

// LatestEvents returns the newest events, newest first.
func (r Repo) LatestEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id DESC LIMIT ?`, limit)
}

// LatestEventID returns the highest event id, or 0 for an empty log.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "latest event id")
	}
	return id.Int64, nil
}
