package shinobisdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNinjasSendsHeaders(t *testing.T) {
	var gotKey, gotID, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotID = r.Header.Get("X-Request-Id")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":1,"nombre":"Kakashi","rango":"Jōnin","jutsus":["Chidori"]}]`)
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/")
	c.APIKey = "k-123"
	ninjas, err := c.ListNinjas(context.Background())
	require.NoError(t, err)
	require.Len(t, ninjas, 1)
	assert.Equal(t, "Kakashi", ninjas[0].Nombre)
	assert.Equal(t, []string{"Chidori"}, ninjas[0].Jutsus)
	assert.Equal(t, "/api/ninjas", gotPath)
	assert.Equal(t, "k-123", gotKey)
	_, err = uuid.Parse(gotID)
	assert.NoError(t, err)
}

func TestBearerTokenWinsOverAPIKey(t *testing.T) {
	var auth, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		key = r.Header.Get("X-Api-Key")
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "k"
	c.BearerToken = "tok"
	_, err := c.ListMissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
	assert.Empty(t, key)
}

func TestNon2xxIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"code":"internal_error"}}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListMissions(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "internal_error")
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestUndecodableBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>not json</html>`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListNinjas(context.Background())
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "ninjas", decErr.Endpoint)
}

func TestAssignAndComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/asignaciones":
			var body map[string]int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			json.NewEncoder(w).Encode(Assignment{ID: 7, NinjaID: body["ninja_id"], MisionID: body["mision_id"]})
		case r.Method == http.MethodPut && r.URL.Path == "/asignaciones/7/completar":
			done := "2024-01-01T00:00:00Z"
			json.NewEncoder(w).Encode(Assignment{ID: 7, Completada: true, FechaCompletado: &done})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	a, err := c.Assign(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, a.NinjaID)
	assert.EqualValues(t, 10, a.MisionID)

	a, err = c.CompleteAssignment(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, a.Completada)
	require.NotNil(t, a.FechaCompletado)
}

func TestExportReadsAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exportar/xml", r.URL.Path)
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Disposition", `attachment; filename="reporte_ninjas.xml"`)
		io.WriteString(w, "<sistema_ninjas/>")
	}))
	defer srv.Close()

	f, err := New(srv.URL).Export(context.Background(), "xml")
	require.NoError(t, err)
	assert.Equal(t, "reporte_ninjas.xml", f.Filename)
	assert.Equal(t, "application/xml", f.ContentType)
	assert.Equal(t, "<sistema_ninjas/>", string(f.Body))
}

func TestConcurrentCallsShareClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "[]")
	}))
	defer srv.Close()

	c := New(srv.URL)
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = c.ListNinjas(context.Background())
			} else {
				_, errs[i] = c.ListMissions(context.Background())
			}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Nil(t, c.HTTPClient, "calls must not mutate the shared client")
}
