package shinobisdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a minimal Shinobi HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Ninja mirrors the API ninja model.
type Ninja struct {
	ID            int64    `json:"id"`
	Nombre        string   `json:"nombre"`
	Rango         string   `json:"rango"`
	Ataque        int      `json:"ataque"`
	Defensa       int      `json:"defensa"`
	Chakra        int      `json:"chakra"`
	Aldea         string   `json:"aldea"`
	Jutsus        []string `json:"jutsus"`
	FechaRegistro string   `json:"fecha_registro"`
}

// NinjaInput is the body for creating or updating a ninja. Nil fields take
// server defaults on create and are left untouched on update.
type NinjaInput struct {
	Nombre  *string   `json:"nombre,omitempty"`
	Rango   *string   `json:"rango,omitempty"`
	Ataque  *int      `json:"ataque,omitempty"`
	Defensa *int      `json:"defensa,omitempty"`
	Chakra  *int      `json:"chakra,omitempty"`
	Aldea   *string   `json:"aldea,omitempty"`
	Jutsus  *[]string `json:"jutsus,omitempty"`
}

// Mission mirrors the API mission model.
type Mission struct {
	ID            int64  `json:"id"`
	Nombre        string `json:"nombre"`
	Rango         string `json:"rango"`
	Recompensa    int    `json:"recompensa"`
	Descripcion   string `json:"descripcion"`
	FechaCreacion string `json:"fecha_creacion"`
}

type MissionInput struct {
	Nombre      string `json:"nombre"`
	Rango       string `json:"rango"`
	Recompensa  int    `json:"recompensa,omitempty"`
	Descripcion string `json:"descripcion,omitempty"`
}

// Assignment links a ninja to a mission.
type Assignment struct {
	ID              int64   `json:"id"`
	NinjaID         int64   `json:"ninja_id"`
	NinjaNombre     string  `json:"ninja_nombre,omitempty"`
	MisionID        int64   `json:"mision_id"`
	MisionNombre    string  `json:"mision_nombre,omitempty"`
	FechaAsignacion string  `json:"fecha_asignacion"`
	FechaCompletado *string `json:"fecha_completado"`
	Completada      bool    `json:"completada"`
}

type NinjaReportRow struct {
	Ninja               Ninja `json:"ninja"`
	MisionesAsignadas   int   `json:"misiones_asignadas"`
	MisionesCompletadas int   `json:"misiones_completadas"`
}

type MissionReportRow struct {
	Mision          Mission  `json:"mision"`
	NinjasAsignados []string `json:"ninjas_asignados"`
	Completada      bool     `json:"completada"`
}

// ExportFile is a rendered report downloaded from the server.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// DecodeError reports a 2xx response whose body could not be decoded.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ListNinjas returns every ninja.
func (c *Client) ListNinjas(ctx context.Context) ([]Ninja, error) {
	var resp []Ninja
	err := c.do(ctx, http.MethodGet, "ninjas", nil, &resp)
	return resp, err
}

func (c *Client) GetNinja(ctx context.Context, id int64) (Ninja, error) {
	var resp Ninja
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("ninjas/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) CreateNinja(ctx context.Context, in NinjaInput) (Ninja, error) {
	var resp Ninja
	err := c.do(ctx, http.MethodPost, "ninjas", in, &resp)
	return resp, err
}

func (c *Client) UpdateNinja(ctx context.Context, id int64, in NinjaInput) (Ninja, error) {
	var resp Ninja
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("ninjas/%d", id), in, &resp)
	return resp, err
}

func (c *Client) DeleteNinja(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("ninjas/%d", id), nil, nil)
}

// ListMissions returns every mission.
func (c *Client) ListMissions(ctx context.Context) ([]Mission, error) {
	var resp []Mission
	err := c.do(ctx, http.MethodGet, "misiones", nil, &resp)
	return resp, err
}

func (c *Client) GetMission(ctx context.Context, id int64) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("misiones/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) CreateMission(ctx context.Context, in MissionInput) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, "misiones", in, &resp)
	return resp, err
}

func (c *Client) DeleteMission(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("misiones/%d", id), nil, nil)
}

func (c *Client) ListAssignments(ctx context.Context) ([]Assignment, error) {
	var resp []Assignment
	err := c.do(ctx, http.MethodGet, "asignaciones", nil, &resp)
	return resp, err
}

// Assign sends a ninja on a mission.
func (c *Client) Assign(ctx context.Context, ninjaID, missionID int64) (Assignment, error) {
	body := map[string]any{
		"ninja_id":  ninjaID,
		"mision_id": missionID,
	}
	var resp Assignment
	err := c.do(ctx, http.MethodPost, "asignaciones", body, &resp)
	return resp, err
}

func (c *Client) CompleteAssignment(ctx context.Context, id int64) (Assignment, error) {
	var resp Assignment
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("asignaciones/%d/completar", id), nil, &resp)
	return resp, err
}

func (c *Client) NinjaReport(ctx context.Context) ([]NinjaReportRow, error) {
	var resp []NinjaReportRow
	err := c.do(ctx, http.MethodGet, "reportes/ninjas", nil, &resp)
	return resp, err
}

func (c *Client) MissionReport(ctx context.Context) ([]MissionReportRow, error) {
	var resp []MissionReportRow
	err := c.do(ctx, http.MethodGet, "reportes/misiones", nil, &resp)
	return resp, err
}

// Export asks the server to render a report in the given format.
func (c *Client) Export(ctx context.Context, format string) (ExportFile, error) {
	resp, err := c.send(ctx, http.MethodGet, "exportar/"+url.PathEscape(format), nil)
	if err != nil {
		return ExportFile{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ExportFile{}, err
	}
	out := ExportFile{ContentType: resp.Header.Get("Content-Type"), Body: body}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		out.Filename = params["filename"]
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b), RequestID: requestID}
	}
	return resp, nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
