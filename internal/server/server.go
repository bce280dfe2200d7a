package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"shinobi/internal/delivery"
	"shinobi/internal/engine"
	"shinobi/internal/export"
	"shinobi/internal/repo"
	"shinobi/internal/source"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	// Export carries locale and timezone for the export endpoint.
	Export export.FormatterOptions
	Logger *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"ninja: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}
type loggerKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Shinobi API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimRight(basePath, "/")
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are plain bad requests.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	log := cfg.logger()
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			ctx = context.WithValue(ctx, loggerKey{}, log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo, log))
	hcfg := huma.DefaultConfig("Shinobi API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerNinjas(group, cfg.Engine)
	registerMissions(group, cfg.Engine)
	registerAssignments(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerExport(group, cfg.Engine, cfg.Export, log)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(ctx context.Context, err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrRankTooLow):
		return newAPIError(http.StatusBadRequest, "rank_too_low", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalid):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, export.ErrUnsupportedFormat):
		return newAPIError(http.StatusBadRequest, "unsupported_format", export.Describe(err), nil)
	default:
		requestLog(ctx).Error("request failed", zap.Error(err))
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func requestLog(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// requestLogger logs one line per request, tagged with the caller's
// X-Request-Id when present.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", r.Header.Get("X-Request-Id")),
			)
		})
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="es">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Shinobi API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerNinjas(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-ninjas",
		Method:      http.MethodGet,
		Path:        "/ninjas",
		Summary:     "List ninjas",
	}, func(ctx context.Context, _ *struct{}) (*ninjaListOutput, error) {
		items, err := e.ListNinjas(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &ninjaListOutput{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ninja",
		Method:      http.MethodGet,
		Path:        "/ninjas/{id}",
		Summary:     "Get ninja",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*ninjaOutput, error) {
		n, err := e.GetNinja(ctx, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &ninjaOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-ninja",
		Method:        http.MethodPost,
		Path:          "/ninjas",
		Summary:       "Register ninja",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateNinjaRequest `json:"body"`
	}) (*ninjaOutput, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b := input.Body
		n, err := e.CreateNinja(ctx, engine.NinjaCreateOptions{
			Nombre:  b.Nombre,
			Rango:   b.Rango,
			Ataque:  b.Ataque,
			Defensa: b.Defensa,
			Chakra:  b.Chakra,
			Aldea:   b.Aldea,
			Jutsus:  b.Jutsus,
			ActorID: actorID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &ninjaOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-ninja",
		Method:      http.MethodPut,
		Path:        "/ninjas/{id}",
		Summary:     "Update ninja",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64              `path:"id"`
		Body UpdateNinjaRequest `json:"body"`
	}) (*ninjaOutput, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b := input.Body
		n, err := e.UpdateNinja(ctx, engine.NinjaUpdateOptions{
			ID:      input.ID,
			Nombre:  b.Nombre,
			Rango:   b.Rango,
			Ataque:  b.Ataque,
			Defensa: b.Defensa,
			Chakra:  b.Chakra,
			Aldea:   b.Aldea,
			Jutsus:  b.Jutsus,
			ActorID: actorID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &ninjaOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-ninja",
		Method:      http.MethodDelete,
		Path:        "/ninjas/{id}",
		Summary:     "Delete ninja",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*messageOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteNinja(ctx, input.ID, actorID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &messageOutput{Body: MessageResponse{Mensaje: "Ninja eliminado correctamente"}}, nil
	})
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/misiones",
		Summary:     "List missions",
	}, func(ctx context.Context, _ *struct{}) (*missionListOutput, error) {
		items, err := e.ListMissions(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &missionListOutput{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/misiones/{id}",
		Summary:     "Get mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*missionOutput, error) {
		m, err := e.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &missionOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/misiones",
		Summary:       "Register mission",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*missionOutput, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CreateMission(ctx, engine.MissionCreateOptions{
			Nombre:      input.Body.Nombre,
			Rango:       input.Body.Rango,
			Recompensa:  input.Body.Recompensa,
			Descripcion: input.Body.Descripcion,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &missionOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-mission",
		Method:      http.MethodDelete,
		Path:        "/misiones/{id}",
		Summary:     "Delete mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*messageOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMission(ctx, input.ID, actorID); err != nil {
			return nil, handleError(ctx, err)
		}
		return &messageOutput{Body: MessageResponse{Mensaje: "Misión eliminada correctamente"}}, nil
	})
}

func registerAssignments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-assignments",
		Method:      http.MethodGet,
		Path:        "/asignaciones",
		Summary:     "List mission assignments",
	}, func(ctx context.Context, _ *struct{}) (*assignmentListOutput, error) {
		items, err := e.ListAssignments(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &assignmentListOutput{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-assignment",
		Method:        http.MethodPost,
		Path:          "/asignaciones",
		Summary:       "Assign a mission to a ninja",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body AssignRequest `json:"body"`
	}) (*assignmentOutput, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.Assign(ctx, input.Body.NinjaID, input.Body.MisionID, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &assignmentOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-assignment",
		Method:      http.MethodPut,
		Path:        "/asignaciones/{id}/completar",
		Summary:     "Mark an assignment completed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*assignmentOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CompleteAssignment(ctx, input.ID, actorID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &assignmentOutput{Body: a}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "ninja-report",
		Method:      http.MethodGet,
		Path:        "/reportes/ninjas",
		Summary:     "Mission counts per ninja",
	}, func(ctx context.Context, _ *struct{}) (*ninjaReportOutput, error) {
		rows, err := e.NinjaReport(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &ninjaReportOutput{Body: rows}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mission-report",
		Method:      http.MethodGet,
		Path:        "/reportes/misiones",
		Summary:     "Assigned ninjas per mission",
	}, func(ctx context.Context, _ *struct{}) (*missionReportOutput, error) {
		rows, err := e.MissionReport(ctx)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return &missionReportOutput{Body: rows}, nil
	})
}

func registerExport(api huma.API, e engine.Engine, opts export.FormatterOptions, log *zap.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "export",
		Method:      http.MethodGet,
		Path:        "/exportar/{formato}",
		Summary:     "Export ninjas and missions as text, JSON or XML",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Formato string `path:"formato" example:"xml"`
	}) (*exportOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		buf := &delivery.Buffer{}
		exp := export.New(source.Store{Lister: e}, buf, log, opts)
		doc, err := exp.Export(ctx, input.Formato)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		rec := engine.ExportRecord{
			ExportID: doc.ExportID,
			Format:   doc.Format.String(),
			Filename: doc.Filename,
			Ninjas:   doc.Ninjas,
			Missions: doc.Missions,
			Bytes:    len(doc.Body),
		}
		if err := e.RecordExport(ctx, rec, actorID); err != nil {
			log.Warn("record export event", zap.Error(err))
		}
		return &exportOutput{
			ContentType:        doc.ContentType + "; charset=utf-8",
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", doc.Filename),
			ExportID:           doc.ExportID,
			Body:               []byte(doc.Body),
		}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/eventos",
		Summary:     "List recent audit events",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*eventListOutput, error) {
		items, err := e.Repo.LatestEvents(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(ctx, err)
		}
		out := make([]EventResponse, 0, len(items))
		for _, evt := range items {
			out = append(out, eventResponse(evt))
		}
		return &eventListOutput{Body: out}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
