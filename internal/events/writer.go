package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	NinjaCreated        = "ninja.created"
	NinjaUpdated        = "ninja.updated"
	NinjaDeleted        = "ninja.deleted"
	MissionCreated      = "mision.created"
	MissionDeleted      = "mision.deleted"
	AssignmentCreated   = "asignacion.created"
	AssignmentCompleted = "asignacion.completed"
	ExportGenerated     = "export.generated"
)

// Types lists every event type the writer emits.
var Types = []string{
	NinjaCreated, NinjaUpdated, NinjaDeleted,
	MissionCreated, MissionDeleted,
	AssignmentCreated, AssignmentCompleted,
	ExportGenerated,
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records one event. With a nil tx the event is written outside any
// transaction.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal event payload")
	}
	var exec execer
	switch {
	case tx != nil:
		exec = tx
	case w.DB != nil:
		exec = w.DB
	default:
		return errors.New("events: no database")
	}
	_, err = exec.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), actorID, string(data))
	return errors.Wrapf(err, "append %s", evtType)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
