package repo

import (
	"context"

	"github.com/cockroachdb/errors"

	"shinobi/internal/domain"
)

// NinjaReport returns every ninja with its assigned and completed mission counts.
func (r Repo) NinjaReport(ctx context.Context) ([]domain.NinjaReportRow, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT n.id,n.nombre,n.rango,n.ataque,n.defensa,n.chakra,n.aldea,n.jutsus,n.fecha_registro,
  COUNT(a.id),
  COALESCE(SUM(CASE WHEN a.completada THEN 1 ELSE 0 END),0)
FROM ninjas n
LEFT JOIN asignaciones_misiones a ON a.ninja_id=n.id
GROUP BY n.id
ORDER BY n.id`)
	if err != nil {
		return nil, errors.Wrap(err, "ninja report")
	}
	defer rows.Close()
	res := []domain.NinjaReportRow{}
	for rows.Next() {
		var row domain.NinjaReportRow
		var jutsus string
		n := &row.Ninja
		if err := rows.Scan(&n.ID, &n.Nombre, &n.Rango, &n.Ataque, &n.Defensa, &n.Chakra, &n.Aldea, &jutsus, &n.FechaRegistro,
			&row.MisionesAsignadas, &row.MisionesCompletadas); err != nil {
			return nil, err
		}
		n.Jutsus = splitJutsus(jutsus)
		res = append(res, row)
	}
	return res, rows.Err()
}

// MissionReport returns every mission with the names of the ninjas sent on
// it. A mission counts as completed once any of its assignments is.
func (r Repo) MissionReport(ctx context.Context) ([]domain.MissionReportRow, error) {
	missions, err := r.ListMissions(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]domain.MissionReportRow, len(missions))
	index := make(map[int64]int, len(missions))
	for i, m := range missions {
		res[i] = domain.MissionReportRow{Mision: m, NinjasAsignados: []string{}}
		index[m.ID] = i
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT a.mision_id,n.nombre,a.completada
FROM asignaciones_misiones a
JOIN ninjas n ON n.id=a.ninja_id
ORDER BY a.id`)
	if err != nil {
		return nil, errors.Wrap(err, "mission report")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			missionID int64
			name      string
			done      bool
		)
		if err := rows.Scan(&missionID, &name, &done); err != nil {
			return nil, err
		}
		i, ok := index[missionID]
		if !ok {
			continue
		}
		res[i].NinjasAsignados = append(res[i].NinjasAsignados, name)
		res[i].Completada = res[i].Completada || done
	}
	return res, rows.Err()
}
