package repo

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"shinobi/internal/domain"
)

const assignmentSelect = `SELECT a.id,a.ninja_id,COALESCE(n.nombre,''),a.mision_id,COALESCE(m.nombre,''),a.fecha_asignacion,a.fecha_completado,a.completada
FROM asignaciones_misiones a
LEFT JOIN ninjas n ON n.id=a.ninja_id
LEFT JOIN misiones m ON m.id=a.mision_id`

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var a domain.Assignment
	var done sql.NullString
	if err := row.Scan(&a.ID, &a.NinjaID, &a.NinjaNombre, &a.MisionID, &a.MisionNombre, &a.FechaAsignacion, &done, &a.Completada); err != nil {
		return domain.Assignment{}, err
	}
	if done.Valid {
		v := done.String
		a.FechaCompletado = &v
	}
	return a, nil
}

func (r Repo) ListAssignments(ctx context.Context) ([]domain.Assignment, error) {
	rows, err := r.DB.QueryContext(ctx, assignmentSelect+` ORDER BY a.id`)
	if err != nil {
		return nil, errors.Wrap(err, "list asignaciones")
	}
	defer rows.Close()
	res := []domain.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) GetAssignment(ctx context.Context, tx *sql.Tx, id int64) (domain.Assignment, error) {
	a, err := scanAssignment(r.on(tx).QueryRowContext(ctx, assignmentSelect+` WHERE a.id=?`, id))
	if err != nil {
		return domain.Assignment{}, notFound(err, "asignacion")
	}
	return a, nil
}

func (r Repo) InsertAssignment(ctx context.Context, tx *sql.Tx, a domain.Assignment) (int64, error) {
	res, err := r.on(tx).ExecContext(ctx, `INSERT INTO asignaciones_misiones(ninja_id,mision_id,fecha_asignacion,completada) VALUES (?,?,?,?)`,
		a.NinjaID, a.MisionID, a.FechaAsignacion, a.Completada)
	if err != nil {
		return 0, errors.Wrap(err, "insert asignacion")
	}
	return res.LastInsertId()
}

// CompleteAssignment marks an assignment done at ts. Completing twice moves
// the completion time forward.
func (r Repo) CompleteAssignment(ctx context.Context, tx *sql.Tx, id int64, ts string) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE asignaciones_misiones SET completada=1, fecha_completado=? WHERE id=?`, ts, id)
	if err != nil {
		return errors.Wrap(err, "complete asignacion")
	}
	return affectedOne(res, "asignacion")
}
