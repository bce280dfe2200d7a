package server

import (
	"encoding/json"

	"shinobi/internal/domain"
)

// Request payloads

type CreateNinjaRequest struct {
	Nombre  string   `json:"nombre" minLength:"1"`
	Rango   string   `json:"rango" example:"Genin"`
	Ataque  *int     `json:"ataque,omitempty" minimum:"0"`
	Defensa *int     `json:"defensa,omitempty" minimum:"0"`
	Chakra  *int     `json:"chakra,omitempty" minimum:"0"`
	Aldea   *string  `json:"aldea,omitempty"`
	Jutsus  []string `json:"jutsus,omitempty"`
}

type UpdateNinjaRequest struct {
	Nombre  *string   `json:"nombre,omitempty"`
	Rango   *string   `json:"rango,omitempty"`
	Ataque  *int      `json:"ataque,omitempty" minimum:"0"`
	Defensa *int      `json:"defensa,omitempty" minimum:"0"`
	Chakra  *int      `json:"chakra,omitempty" minimum:"0"`
	Aldea   *string   `json:"aldea,omitempty"`
	Jutsus  *[]string `json:"jutsus,omitempty"`
}

type CreateMissionRequest struct {
	Nombre      string  `json:"nombre" minLength:"1"`
	Rango       string  `json:"rango" example:"C"`
	Recompensa  *int    `json:"recompensa,omitempty" minimum:"0"`
	Descripcion *string `json:"descripcion,omitempty"`
}

type AssignRequest struct {
	NinjaID  int64 `json:"ninja_id"`
	MisionID int64 `json:"mision_id"`
}

// Response payloads

type MessageResponse struct {
	Mensaje string `json:"mensaje"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func eventResponse(evt domain.Event) EventResponse {
	resp := EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
	}
	if evt.Payload != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(evt.Payload), &payload); err == nil {
			resp.Payload = payload
		}
	}
	return resp
}

// Operation inputs and outputs

type idPath struct {
	ID int64 `path:"id"`
}

type ninjaOutput struct {
	Body domain.Ninja `json:"body"`
}

type ninjaListOutput struct {
	Body []domain.Ninja `json:"body"`
}

type missionOutput struct {
	Body domain.Mission `json:"body"`
}

type missionListOutput struct {
	Body []domain.Mission `json:"body"`
}

type assignmentOutput struct {
	Body domain.Assignment `json:"body"`
}

type assignmentListOutput struct {
	Body []domain.Assignment `json:"body"`
}

type ninjaReportOutput struct {
	Body []domain.NinjaReportRow `json:"body"`
}

type missionReportOutput struct {
	Body []domain.MissionReportRow `json:"body"`
}

type messageOutput struct {
	Body MessageResponse `json:"body"`
}

type eventListOutput struct {
	Body []EventResponse `json:"body"`
}

type exportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	ExportID           string `header:"X-Export-Id"`
	Body               []byte
}
