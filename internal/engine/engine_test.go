package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"shinobi/internal/db"
	"shinobi/internal/domain"
	"shinobi/internal/engine"
	"shinobi/internal/migrate"
	"shinobi/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func ptr[T any](v T) *T { return &v }

func (env testEnv) ninja(t *testing.T, name, rank string) domain.Ninja {
	t.Helper()
	n, err := env.Engine.CreateNinja(env.Ctx, engine.NinjaCreateOptions{Nombre: name, Rango: rank, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create ninja %s: %v", name, err)
	}
	return n
}

func (env testEnv) mission(t *testing.T, name, rank string) domain.Mission {
	t.Helper()
	m, err := env.Engine.CreateMission(env.Ctx, engine.MissionCreateOptions{Nombre: name, Rango: rank, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create mission %s: %v", name, err)
	}
	return m
}

func TestCreateNinjaDefaults(t *testing.T) {
	env := newTestEnv(t)
	n := env.ninja(t, "Rock Lee", domain.RankGenin)
	if n.ID == 0 {
		t.Fatalf("expected id")
	}
	if n.Ataque != 50 || n.Defensa != 50 || n.Chakra != 100 || n.Aldea != "Konohagakure" {
		t.Fatalf("defaults not applied: %+v", n)
	}
	if n.FechaRegistro != "2024-01-01T09:30:00" {
		t.Fatalf("unexpected fecha_registro %q", n.FechaRegistro)
	}
	got, err := env.Engine.GetNinja(env.Ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Jutsus == nil || len(got.Jutsus) != 0 {
		t.Fatalf("expected empty jutsus, got %#v", got.Jutsus)
	}
}

func TestCreateNinjaRejectsUnknownRank(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateNinja(env.Ctx, engine.NinjaCreateOptions{Nombre: "Madara", Rango: "Hokage"})
	if !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected invalid rank error, got %v", err)
	}
	_, err = env.Engine.CreateNinja(env.Ctx, engine.NinjaCreateOptions{Nombre: " ", Rango: domain.RankGenin})
	if !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected missing name error, got %v", err)
	}
}

func TestJutsusRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	n, err := env.Engine.CreateNinja(env.Ctx, engine.NinjaCreateOptions{
		Nombre: "Naruto",
		Rango:  domain.RankGenin,
		Jutsus: []string{"Rasengan", " Kage Bunshin no Jutsu ", "Sexy, Oiroke"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.GetNinja(env.Ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Rasengan", "Kage Bunshin no Jutsu", "Sexy", "Oiroke"}
	if len(got.Jutsus) != len(want) {
		t.Fatalf("jutsus = %#v", got.Jutsus)
	}
	for i := range want {
		if got.Jutsus[i] != want[i] {
			t.Fatalf("jutsus[%d] = %q, want %q", i, got.Jutsus[i], want[i])
		}
	}
}

func TestUpdateNinjaPartial(t *testing.T) {
	env := newTestEnv(t)
	n := env.ninja(t, "Sakura", domain.RankGenin)
	updated, err := env.Engine.UpdateNinja(env.Ctx, engine.NinjaUpdateOptions{
		ID:     n.ID,
		Rango:  ptr(domain.RankChunin),
		Chakra: ptr(180),
		Jutsus: ptr([]string{"Byakugō"}),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Rango != domain.RankChunin || updated.Chakra != 180 || updated.Nombre != "Sakura" || updated.Ataque != 50 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if _, err := env.Engine.UpdateNinja(env.Ctx, engine.NinjaUpdateOptions{ID: n.ID, Rango: ptr("Kage")}); !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected invalid rank, got %v", err)
	}
	if _, err := env.Engine.UpdateNinja(env.Ctx, engine.NinjaUpdateOptions{ID: 999, Nombre: ptr("x")}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssignRequiresSufficientRank(t *testing.T) {
	env := newTestEnv(t)
	genin := env.ninja(t, "Konohamaru", domain.RankGenin)
	jonin := env.ninja(t, "Kakashi", domain.RankJonin)
	easy := env.mission(t, "Buscar al gato Tora", "D")
	hard := env.mission(t, "Rescatar al Kazekage", "S")

	if _, err := env.Engine.Assign(env.Ctx, genin.ID, easy.ID, "tester"); err != nil {
		t.Fatalf("genin on D: %v", err)
	}
	_, err := env.Engine.Assign(env.Ctx, genin.ID, hard.ID, "tester")
	if !errors.Is(err, engine.ErrRankTooLow) {
		t.Fatalf("expected rank error, got %v", err)
	}
	a, err := env.Engine.Assign(env.Ctx, jonin.ID, hard.ID, "tester")
	if err != nil {
		t.Fatalf("jonin on S: %v", err)
	}
	if a.NinjaNombre != "Kakashi" || a.MisionNombre != "Rescatar al Kazekage" || a.Completada {
		t.Fatalf("unexpected assignment %+v", a)
	}
	if _, err := env.Engine.Assign(env.Ctx, 404, easy.ID, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected missing ninja, got %v", err)
	}
}

func TestCompleteAssignmentAndReports(t *testing.T) {
	env := newTestEnv(t)
	naruto := env.ninja(t, "Naruto", domain.RankGenin)
	sasuke := env.ninja(t, "Sasuke", domain.RankGenin)
	idle := env.ninja(t, "Shikamaru", domain.RankChunin)
	m := env.mission(t, "Escoltar al constructor", "C")
	other := env.mission(t, "Sin asignar", "D")

	a1, err := env.Engine.Assign(env.Ctx, naruto.ID, m.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Assign(env.Ctx, sasuke.ID, m.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	done, err := env.Engine.CompleteAssignment(env.Ctx, a1.ID, "tester")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completada || done.FechaCompletado == nil {
		t.Fatalf("expected completion, got %+v", done)
	}
	if _, err := env.Engine.CompleteAssignment(env.Ctx, 999, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	ninjaRows, err := env.Engine.NinjaReport(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string][2]int{}
	for _, r := range ninjaRows {
		counts[r.Ninja.Nombre] = [2]int{r.MisionesAsignadas, r.MisionesCompletadas}
	}
	if counts["Naruto"] != [2]int{1, 1} || counts["Sasuke"] != [2]int{1, 0} || counts[idle.Nombre] != [2]int{0, 0} {
		t.Fatalf("unexpected ninja report %v", counts)
	}

	missionRows, err := env.Engine.MissionReport(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(missionRows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(missionRows))
	}
	if got := missionRows[0]; !got.Completada || len(got.NinjasAsignados) != 2 || got.NinjasAsignados[0] != "Naruto" {
		t.Fatalf("unexpected mission row %+v", got)
	}
	if got := missionRows[1]; got.Mision.ID != other.ID || got.Completada || len(got.NinjasAsignados) != 0 {
		t.Fatalf("unexpected idle mission row %+v", got)
	}
}

func TestDeleteCascadesAssignments(t *testing.T) {
	env := newTestEnv(t)
	n := env.ninja(t, "Neji", domain.RankChunin)
	m := env.mission(t, "Recuperar a Sasuke", "B")
	if _, err := env.Engine.Assign(env.Ctx, n.ID, m.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteNinja(env.Ctx, n.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	as, err := env.Engine.ListAssignments(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(as) != 0 {
		t.Fatalf("expected assignments to cascade, got %d", len(as))
	}
	if err := env.Engine.DeleteNinja(env.Ctx, n.ID, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := env.Engine.DeleteMission(env.Ctx, m.ID, "tester"); err != nil {
		t.Fatalf("delete mission: %v", err)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	n := env.ninja(t, "Hinata", domain.RankGenin)
	m := env.mission(t, "Patrulla", "D")
	a, err := env.Engine.Assign(env.Ctx, n.ID, m.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CompleteAssignment(env.Ctx, a.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.RecordExport(env.Ctx, engine.ExportRecord{ExportID: "exp-1", Format: "xml"}, "tester"); err != nil {
		t.Fatal(err)
	}
	evts, err := env.Engine.Repo.EventsAfter(env.Ctx, 0, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	want := []string{"ninja.created", "mision.created", "asignacion.created", "asignacion.completed", "export.generated"}
	if len(evts) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(evts))
	}
	for i, w := range want {
		if evts[i].Type != w {
			t.Fatalf("event %d = %s, want %s", i, evts[i].Type, w)
		}
		if evts[i].ActorID != "tester" {
			t.Fatalf("event %d actor = %q", i, evts[i].ActorID)
		}
	}
	latest, err := env.Engine.Repo.LatestEventID(env.Ctx)
	if err != nil || latest != evts[len(evts)-1].ID {
		t.Fatalf("latest id = %d (%v)", latest, err)
	}
}

func TestCreateAPIKeyStoresHashOnly(t *testing.T) {
	env := newTestEnv(t)
	key, secret, err := env.Engine.CreateAPIKey(env.Ctx, "hokage", "ci")
	if err != nil {
		t.Fatal(err)
	}
	if secret == "" || key.KeyHash == secret {
		t.Fatalf("expected hashed key")
	}
	got, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(secret))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ActorID != "hokage" || got.ID != key.ID {
		t.Fatalf("unexpected key %+v", got)
	}
}
