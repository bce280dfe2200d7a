package repo

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"shinobi/internal/domain"
)

const ninjaColumns = `id,nombre,rango,ataque,defensa,chakra,aldea,jutsus,fecha_registro`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNinja(row rowScanner) (domain.Ninja, error) {
	var n domain.Ninja
	var jutsus string
	if err := row.Scan(&n.ID, &n.Nombre, &n.Rango, &n.Ataque, &n.Defensa, &n.Chakra, &n.Aldea, &jutsus, &n.FechaRegistro); err != nil {
		return domain.Ninja{}, err
	}
	n.Jutsus = splitJutsus(jutsus)
	return n, nil
}

// ListNinjas returns every ninja in id order.
func (r Repo) ListNinjas(ctx context.Context) ([]domain.Ninja, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+ninjaColumns+` FROM ninjas ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list ninjas")
	}
	defer rows.Close()
	res := []domain.Ninja{}
	for rows.Next() {
		n, err := scanNinja(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) GetNinja(ctx context.Context, tx *sql.Tx, id int64) (domain.Ninja, error) {
	n, err := scanNinja(r.on(tx).QueryRowContext(ctx, `SELECT `+ninjaColumns+` FROM ninjas WHERE id=?`, id))
	if err != nil {
		return domain.Ninja{}, notFound(err, "ninja")
	}
	return n, nil
}

// InsertNinja stores n and returns its new id. n.ID is ignored.
func (r Repo) InsertNinja(ctx context.Context, tx *sql.Tx, n domain.Ninja) (int64, error) {
	res, err := r.on(tx).ExecContext(ctx, `INSERT INTO ninjas(nombre,rango,ataque,defensa,chakra,aldea,jutsus,fecha_registro) VALUES (?,?,?,?,?,?,?,?)`,
		n.Nombre, n.Rango, n.Ataque, n.Defensa, n.Chakra, n.Aldea, joinJutsus(n.Jutsus), n.FechaRegistro)
	if err != nil {
		return 0, errors.Wrap(err, "insert ninja")
	}
	return res.LastInsertId()
}

func (r Repo) UpdateNinja(ctx context.Context, tx *sql.Tx, n domain.Ninja) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE ninjas SET nombre=?,rango=?,ataque=?,defensa=?,chakra=?,aldea=?,jutsus=? WHERE id=?`,
		n.Nombre, n.Rango, n.Ataque, n.Defensa, n.Chakra, n.Aldea, joinJutsus(n.Jutsus), n.ID)
	if err != nil {
		return errors.Wrap(err, "update ninja")
	}
	return affectedOne(res, "ninja")
}

// DeleteNinja removes a ninja; its assignments go with it.
func (r Repo) DeleteNinja(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM ninjas WHERE id=?`, id)
	if err != nil {
		return errors.Wrap(err, "delete ninja")
	}
	return affectedOne(res, "ninja")
}
