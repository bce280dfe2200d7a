package server

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"shinobi/internal/db"
	"shinobi/internal/delivery"
	"shinobi/internal/domain"
	"shinobi/internal/engine"
	"shinobi/internal/export"
	"shinobi/internal/migrate"
	"shinobi/internal/source"
	shinobisdk "shinobi/sdk/go"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

const testSecret = "test-secret"

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/api",
		Auth:     auth,
		Export:   export.FormatterOptions{Location: time.UTC},
		Logger:   zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return out
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope %s: %v", string(data), err)
	}
	return env.Error.Code
}

func TestNinjaLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/api"

	res, data := doJSON(t, client, http.MethodPost, base+"/ninjas", map[string]any{
		"nombre": "Rock Lee",
		"rango":  "Genin",
		"jutsus": []string{"Konoha Senpū"},
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	created := decode[domain.Ninja](t, data)
	if created.Ataque != 50 || created.Aldea != "Konohagakure" || len(created.Jutsus) != 1 {
		t.Fatalf("unexpected ninja %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPut, base+"/ninjas/"+itoa(created.ID), map[string]any{"rango": "Chūnin"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", res.StatusCode, string(data))
	}
	if got := decode[domain.Ninja](t, data); got.Rango != "Chūnin" || got.Nombre != "Rock Lee" {
		t.Fatalf("unexpected update %+v", got)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/ninjas", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", res.StatusCode)
	}
	if list := decode[[]domain.Ninja](t, data); len(list) != 1 {
		t.Fatalf("expected one ninja, got %d", len(list))
	}

	res, data = doJSON(t, client, http.MethodDelete, base+"/ninjas/"+itoa(created.ID), nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	if msg := decode[MessageResponse](t, data); msg.Mensaje != "Ninja eliminado correctamente" {
		t.Fatalf("unexpected message %q", msg.Mensaje)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/ninjas/"+itoa(created.ID), nil, nil)
	if res.StatusCode != http.StatusNotFound || errorCode(t, data) != "not_found" {
		t.Fatalf("expected 404 envelope, got %d: %s", res.StatusCode, string(data))
	}
}

func TestEmptyListsAreArrays(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	for _, p := range []string{"/ninjas", "/misiones", "/asignaciones", "/reportes/ninjas", "/reportes/misiones"} {
		res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api"+p, nil, nil)
		if res.StatusCode != http.StatusOK || strings.TrimSpace(string(data)) != "[]" {
			t.Fatalf("%s: status %d body %s", p, res.StatusCode, string(data))
		}
	}
}

func TestCreateRejectsInvalidRank(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/ninjas", map[string]any{"nombre": "Pain", "rango": "Kage"}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/misiones", map[string]any{"nombre": "Imposible", "rango": "Z"}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
}

func TestAssignmentRankCheckAndCompletion(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	ctx := context.Background()
	genin, err := srv.Engine.CreateNinja(ctx, engine.NinjaCreateOptions{Nombre: "Konohamaru", Rango: domain.RankGenin})
	require.NoError(t, err)
	hard, err := srv.Engine.CreateMission(ctx, engine.MissionCreateOptions{Nombre: "Rescatar al Kazekage", Rango: "S"})
	require.NoError(t, err)
	easy, err := srv.Engine.CreateMission(ctx, engine.MissionCreateOptions{Nombre: "Buscar a Tora", Rango: "D"})
	require.NoError(t, err)

	base := srv.URL + "/api"
	res, data := doJSON(t, srv.Client(), http.MethodPost, base+"/asignaciones", AssignRequest{NinjaID: genin.ID, MisionID: hard.ID}, nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
	assert.Equal(t, "rank_too_low", errorCode(t, data))
	assert.Contains(t, string(data), "no tiene el rango suficiente")

	res, data = doJSON(t, srv.Client(), http.MethodPost, base+"/asignaciones", AssignRequest{NinjaID: genin.ID, MisionID: 999}, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(data))

	res, data = doJSON(t, srv.Client(), http.MethodPost, base+"/asignaciones", AssignRequest{NinjaID: genin.ID, MisionID: easy.ID}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	a := decode[domain.Assignment](t, data)

	res, data = doJSON(t, srv.Client(), http.MethodPut, base+"/asignaciones/"+itoa(a.ID)+"/completar", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	done := decode[domain.Assignment](t, data)
	assert.True(t, done.Completada)
	assert.NotNil(t, done.FechaCompletado)

	res, data = doJSON(t, srv.Client(), http.MethodGet, base+"/reportes/misiones", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	rows := decode[[]domain.MissionReportRow](t, data)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].Completada)
	assert.True(t, rows[1].Completada)
	assert.Equal(t, []string{"Konohamaru"}, rows[1].NinjasAsignados)
}

func TestExportEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	ctx := context.Background()
	_, err := srv.Engine.CreateNinja(ctx, engine.NinjaCreateOptions{Nombre: "Kakashi", Rango: domain.RankJonin, Jutsus: []string{"Chidori"}})
	require.NoError(t, err)
	_, err = srv.Engine.CreateMission(ctx, engine.MissionCreateOptions{Nombre: "Escolta <VIP>", Rango: "A"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/exportar/xml", nil)
	require.NoError(t, err)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.True(t, strings.HasPrefix(res.Header.Get("Content-Type"), "application/xml"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), `filename="reporte_ninjas.xml"`)
	assert.NotEmpty(t, res.Header.Get("X-Export-Id"))

	var doc struct {
		Ninjas   []struct{ Nombre string `xml:"nombre"` } `xml:"ninjas>ninja"`
		Misiones []struct{ Nombre string `xml:"nombre"` } `xml:"misiones>mision"`
	}
	require.NoError(t, xml.Unmarshal(body, &doc))
	require.Len(t, doc.Ninjas, 1)
	require.Len(t, doc.Misiones, 1)
	assert.Equal(t, "Escolta <VIP>", doc.Misiones[0].Nombre)

	evts, err := srv.Engine.Repo.LatestEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "export.generated", evts[0].Type)

	resp, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/exportar/csv", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_format", errorCode(t, data))
}

func TestExportOverHTTPSource(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	ctx := context.Background()
	for _, name := range []string{"Naruto", "Sasuke"} {
		_, err := srv.Engine.CreateNinja(ctx, engine.NinjaCreateOptions{Nombre: name, Rango: domain.RankGenin})
		require.NoError(t, err)
	}
	_, err := srv.Engine.CreateMission(ctx, engine.MissionCreateOptions{Nombre: "Patrulla", Rango: "D"})
	require.NoError(t, err)

	buf := &delivery.Buffer{}
	exp := export.New(source.NewHTTP(shinobisdk.New(srv.URL+"/api")), buf, zaptest.NewLogger(t), export.FormatterOptions{Location: time.UTC})
	doc, err := exp.Export(ctx, "json")
	require.NoError(t, err)

	var report export.JSONReport
	require.NoError(t, json.Unmarshal([]byte(doc.Body), &report))
	assert.Equal(t, 2, report.TotalNinjas)
	assert.Equal(t, 1, report.TotalMisiones)
	assert.Equal(t, "Naruto", report.Ninjas[0].Nombre)
	assert.Equal(t, 1, buf.Len())
}

func TestInternalErrorsAreLoggedNotReturned(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))
	core, logs := observer.New(zap.ErrorLevel)
	handler, err := New(Config{Engine: engine.New(conn), Logger: zap.New(core)})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	require.NoError(t, conn.Close())
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/ninjas", nil, nil)
	require.Equal(t, http.StatusInternalServerError, res.StatusCode, string(data))

	var env struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "internal_error", env.Error.Code)
	assert.Equal(t, "internal error", env.Error.Message)
	assert.Empty(t, env.Error.Details)
	assert.NotContains(t, string(data), "sql")

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "closed")
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{Required: true, JWTSecret: testSecret})
	defer cleanup()
	base := srv.URL + "/api"

	res, data := doJSON(t, srv.Client(), http.MethodGet, base+"/health", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, srv.Client(), http.MethodGet, base+"/ninjas", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, data))

	res, _ = doJSON(t, srv.Client(), http.MethodGet, base+"/ninjas", nil, map[string]string{"X-Api-Key": "nope"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	_, secret, err := srv.Engine.CreateAPIKey(context.Background(), "tsunade", "test")
	require.NoError(t, err)
	res, data = doJSON(t, srv.Client(), http.MethodPost, base+"/misiones", map[string]any{"nombre": "Patrulla", "rango": "D"}, map[string]string{"X-Api-Key": secret})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))

	token, err := IssueToken(testSecret, "jiraiya", time.Hour, time.Now())
	require.NoError(t, err)
	res, data = doJSON(t, srv.Client(), http.MethodGet, base+"/misiones", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	expired, err := IssueToken(testSecret, "jiraiya", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	res, _ = doJSON(t, srv.Client(), http.MethodGet, base+"/misiones", nil, map[string]string{"Authorization": "Bearer " + expired})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	evts, err := srv.Engine.Repo.LatestEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "tsunade", evts[0].ActorID)
}

func TestAnonymousActorWhenAuthOptional(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/misiones", map[string]any{"nombre": "Patrulla", "rango": "D"}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	evts, err := srv.Engine.Repo.LatestEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, AnonymousActor, evts[0].ActorID)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/eventos?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	list := decode[[]EventResponse](t, data)
	require.Len(t, list, 1)
	assert.Equal(t, "Patrulla", list[0].Payload["nombre"])
}

func TestOpenAPIAndDocs(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{Required: true, JWTSecret: testSecret})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var oas map[string]any
	require.NoError(t, json.Unmarshal(data, &oas))
	paths, ok := oas["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/exportar/{formato}")
	assert.Contains(t, paths, "/api/asignaciones/{id}/completar")

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/docs", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), "/api/openapi.json")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
