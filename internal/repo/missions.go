package repo

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"shinobi/internal/domain"
)

const missionColumns = `id,nombre,rango,recompensa,descripcion,fecha_creacion`

func scanMission(row rowScanner) (domain.Mission, error) {
	var m domain.Mission
	err := row.Scan(&m.ID, &m.Nombre, &m.Rango, &m.Recompensa, &m.Descripcion, &m.FechaCreacion)
	return m, err
}

// ListMissions returns every mission in id order.
func (r Repo) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+missionColumns+` FROM misiones ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list misiones")
	}
	defer rows.Close()
	res := []domain.Mission{}
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) GetMission(ctx context.Context, tx *sql.Tx, id int64) (domain.Mission, error) {
	m, err := scanMission(r.on(tx).QueryRowContext(ctx, `SELECT `+missionColumns+` FROM misiones WHERE id=?`, id))
	if err != nil {
		return domain.Mission{}, notFound(err, "mision")
	}
	return m, nil
}

func (r Repo) InsertMission(ctx context.Context, tx *sql.Tx, m domain.Mission) (int64, error) {
	res, err := r.on(tx).ExecContext(ctx, `INSERT INTO misiones(nombre,rango,recompensa,descripcion,fecha_creacion) VALUES (?,?,?,?,?)`,
		m.Nombre, m.Rango, m.Recompensa, m.Descripcion, m.FechaCreacion)
	if err != nil {
		return 0, errors.Wrap(err, "insert mision")
	}
	return res.LastInsertId()
}

func (r Repo) DeleteMission(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM misiones WHERE id=?`, id)
	if err != nil {
		return errors.Wrap(err, "delete mision")
	}
	return affectedOne(res, "mision")
}
