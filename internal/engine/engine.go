package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"shinobi/internal/domain"
	"shinobi/internal/events"
	"shinobi/internal/repo"
)

// ErrInvalid marks input the engine refuses to store.
var ErrInvalid = errors.New("invalid input")

// ErrRankTooLow marks an assignment the ninja's rank does not allow.
var ErrRankTooLow = errors.New("rank too low for mission")

const (
	DefaultAtaque  = 50
	DefaultDefensa = 50
	DefaultChakra  = 100
	DefaultAldea   = "Konohagakure"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().Format(domain.TimestampLayout)
}

func invalidf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalid)
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

// inTx runs fn inside a transaction, rolling back on error.
func (e Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// eventWriter shares the engine clock with the events it appends.
func (e Engine) eventWriter() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

// NinjaCreateOptions are parameters for registering a ninja. Nil fields take
// the village defaults.
type NinjaCreateOptions struct {
	Nombre  string
	Rango   string
	Ataque  *int
	Defensa *int
	Chakra  *int
	Aldea   *string
	Jutsus  []string
	ActorID string
}

func (e Engine) CreateNinja(ctx context.Context, opts NinjaCreateOptions) (domain.Ninja, error) {
	if strings.TrimSpace(opts.Nombre) == "" {
		return domain.Ninja{}, invalidf("nombre is required")
	}
	if !domain.ValidNinjaRank(opts.Rango) {
		return domain.Ninja{}, invalidf("Rango inválido. Debe ser uno de: %s", strings.Join(domain.NinjaRanks, ", "))
	}
	n := domain.Ninja{
		Nombre:        strings.TrimSpace(opts.Nombre),
		Rango:         opts.Rango,
		Ataque:        intOr(opts.Ataque, DefaultAtaque),
		Defensa:       intOr(opts.Defensa, DefaultDefensa),
		Chakra:        intOr(opts.Chakra, DefaultChakra),
		Aldea:         DefaultAldea,
		Jutsus:        cleanJutsus(opts.Jutsus),
		FechaRegistro: e.stamp(),
	}
	if opts.Aldea != nil {
		n.Aldea = *opts.Aldea
	}
	if err := validateStats(n); err != nil {
		return domain.Ninja{}, err
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		id, err := e.Repo.InsertNinja(ctx, tx, n)
		if err != nil {
			return err
		}
		n.ID = id
		return e.eventWriter().Append(ctx, tx, events.NinjaCreated, "ninja", idString(id), opts.ActorID,
			events.EventPayload{"nombre": n.Nombre, "rango": n.Rango})
	})
	if err != nil {
		return domain.Ninja{}, err
	}
	return n, nil
}

// NinjaUpdateOptions carries a partial update; nil fields are left as they are.
type NinjaUpdateOptions struct {
	ID      int64
	Nombre  *string
	Rango   *string
	Ataque  *int
	Defensa *int
	Chakra  *int
	Aldea   *string
	Jutsus  *[]string
	ActorID string
}

func (e Engine) UpdateNinja(ctx context.Context, opts NinjaUpdateOptions) (domain.Ninja, error) {
	var out domain.Ninja
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.GetNinja(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		changed := []string{}
		if opts.Nombre != nil {
			if strings.TrimSpace(*opts.Nombre) == "" {
				return invalidf("nombre cannot be empty")
			}
			n.Nombre = strings.TrimSpace(*opts.Nombre)
			changed = append(changed, "nombre")
		}
		if opts.Rango != nil {
			if !domain.ValidNinjaRank(*opts.Rango) {
				return invalidf("Rango inválido. Debe ser uno de: %s", strings.Join(domain.NinjaRanks, ", "))
			}
			n.Rango = *opts.Rango
			changed = append(changed, "rango")
		}
		if opts.Ataque != nil {
			n.Ataque = *opts.Ataque
			changed = append(changed, "ataque")
		}
		if opts.Defensa != nil {
			n.Defensa = *opts.Defensa
			changed = append(changed, "defensa")
		}
		if opts.Chakra != nil {
			n.Chakra = *opts.Chakra
			changed = append(changed, "chakra")
		}
		if opts.Aldea != nil {
			n.Aldea = *opts.Aldea
			changed = append(changed, "aldea")
		}
		if opts.Jutsus != nil {
			n.Jutsus = cleanJutsus(*opts.Jutsus)
			changed = append(changed, "jutsus")
		}
		if err := validateStats(n); err != nil {
			return err
		}
		if len(changed) == 0 {
			out = n
			return nil
		}
		if err := e.Repo.UpdateNinja(ctx, tx, n); err != nil {
			return err
		}
		out = n
		return e.eventWriter().Append(ctx, tx, events.NinjaUpdated, "ninja", idString(n.ID), opts.ActorID,
			events.EventPayload{"fields": changed})
	})
	return out, err
}

func (e Engine) DeleteNinja(ctx context.Context, id int64, actorID string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.GetNinja(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := e.Repo.DeleteNinja(ctx, tx, id); err != nil {
			return err
		}
		return e.eventWriter().Append(ctx, tx, events.NinjaDeleted, "ninja", idString(id), actorID,
			events.EventPayload{"nombre": n.Nombre})
	})
}

func (e Engine) GetNinja(ctx context.Context, id int64) (domain.Ninja, error) {
	return e.Repo.GetNinja(ctx, nil, id)
}

func (e Engine) ListNinjas(ctx context.Context) ([]domain.Ninja, error) {
	return e.Repo.ListNinjas(ctx)
}

type MissionCreateOptions struct {
	Nombre      string
	Rango       string
	Recompensa  *int
	Descripcion *string
	ActorID     string
}

func (e Engine) CreateMission(ctx context.Context, opts MissionCreateOptions) (domain.Mission, error) {
	if strings.TrimSpace(opts.Nombre) == "" {
		return domain.Mission{}, invalidf("nombre is required")
	}
	if !domain.ValidMissionRank(opts.Rango) {
		return domain.Mission{}, invalidf("Rango inválido. Debe ser uno de: %s", strings.Join(domain.MissionRanks, ", "))
	}
	m := domain.Mission{
		Nombre:        strings.TrimSpace(opts.Nombre),
		Rango:         opts.Rango,
		Recompensa:    intOr(opts.Recompensa, 0),
		FechaCreacion: e.stamp(),
	}
	if opts.Descripcion != nil {
		m.Descripcion = *opts.Descripcion
	}
	if m.Recompensa < 0 {
		return domain.Mission{}, invalidf("recompensa must be >= 0")
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		id, err := e.Repo.InsertMission(ctx, tx, m)
		if err != nil {
			return err
		}
		m.ID = id
		return e.eventWriter().Append(ctx, tx, events.MissionCreated, "mision", idString(id), opts.ActorID,
			events.EventPayload{"nombre": m.Nombre, "rango": m.Rango})
	})
	if err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

func (e Engine) DeleteMission(ctx context.Context, id int64, actorID string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		m, err := e.Repo.GetMission(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := e.Repo.DeleteMission(ctx, tx, id); err != nil {
			return err
		}
		return e.eventWriter().Append(ctx, tx, events.MissionDeleted, "mision", idString(id), actorID,
			events.EventPayload{"nombre": m.Nombre})
	})
}

func (e Engine) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	return e.Repo.GetMission(ctx, nil, id)
}

func (e Engine) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	return e.Repo.ListMissions(ctx)
}

// Assign sends a ninja on a mission. The ninja's rank tier must reach the
// mission's tier.
func (e Engine) Assign(ctx context.Context, ninjaID, missionID int64, actorID string) (domain.Assignment, error) {
	var out domain.Assignment
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.GetNinja(ctx, tx, ninjaID)
		if err != nil {
			return err
		}
		m, err := e.Repo.GetMission(ctx, tx, missionID)
		if err != nil {
			return err
		}
		if !domain.CanUndertake(n.Rango, m.Rango) {
			return errors.Mark(
				errors.Newf("%s (rango %s) no tiene el rango suficiente para la misión %s", n.Nombre, n.Rango, m.Rango),
				ErrRankTooLow)
		}
		a := domain.Assignment{
			NinjaID:         n.ID,
			NinjaNombre:     n.Nombre,
			MisionID:        m.ID,
			MisionNombre:    m.Nombre,
			FechaAsignacion: e.stamp(),
		}
		id, err := e.Repo.InsertAssignment(ctx, tx, a)
		if err != nil {
			return err
		}
		a.ID = id
		out = a
		return e.eventWriter().Append(ctx, tx, events.AssignmentCreated, "asignacion", idString(id), actorID,
			events.EventPayload{"ninja_id": n.ID, "mision_id": m.ID})
	})
	return out, err
}

func (e Engine) CompleteAssignment(ctx context.Context, id int64, actorID string) (domain.Assignment, error) {
	var out domain.Assignment
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.CompleteAssignment(ctx, tx, id, e.stamp()); err != nil {
			return err
		}
		a, err := e.Repo.GetAssignment(ctx, tx, id)
		if err != nil {
			return err
		}
		out = a
		return e.eventWriter().Append(ctx, tx, events.AssignmentCompleted, "asignacion", idString(id), actorID,
			events.EventPayload{"ninja_id": a.NinjaID, "mision_id": a.MisionID})
	})
	return out, err
}

func (e Engine) ListAssignments(ctx context.Context) ([]domain.Assignment, error) {
	return e.Repo.ListAssignments(ctx)
}

func (e Engine) NinjaReport(ctx context.Context) ([]domain.NinjaReportRow, error) {
	return e.Repo.NinjaReport(ctx)
}

func (e Engine) MissionReport(ctx context.Context) ([]domain.MissionReportRow, error) {
	return e.Repo.MissionReport(ctx)
}

// ExportRecord describes a generated report for the audit log.
type ExportRecord struct {
	ExportID string
	Format   string
	Filename string
	Ninjas   int
	Missions int
	Bytes    int
}

func (e Engine) RecordExport(ctx context.Context, rec ExportRecord, actorID string) error {
	return e.eventWriter().Append(ctx, nil, events.ExportGenerated, "export", rec.ExportID, actorID, events.EventPayload{
		"formato":  rec.Format,
		"filename": rec.Filename,
		"ninjas":   rec.Ninjas,
		"misiones": rec.Missions,
		"bytes":    rec.Bytes,
	})
}

// CreateAPIKey issues a new key for actorID. The plaintext key is returned
// once; only its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if strings.TrimSpace(actorID) == "" {
		return domain.APIKey{}, "", invalidf("actor is required")
	}
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return domain.APIKey{}, "", errors.Wrap(err, "generate key")
	}
	secret := "sk_" + hex.EncodeToString(raw)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", errors.Wrap(err, "store api key")
	}
	return key, secret, nil
}

func validateStats(n domain.Ninja) error {
	if n.Ataque < 0 || n.Defensa < 0 || n.Chakra < 0 {
		return invalidf("ataque, defensa and chakra must be >= 0")
	}
	return nil
}

// cleanJutsus trims names and splits any comma-joined entries, since the
// store keeps the list comma-separated.
func cleanJutsus(in []string) []string {
	out := make([]string, 0, len(in))
	for _, j := range in {
		for _, part := range strings.Split(j, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
