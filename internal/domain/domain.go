package domain

type Ninja struct {
	ID            int64    `json:"id"`
	Nombre        string   `json:"nombre"`
	Rango         string   `json:"rango" enum:"Genin,Chūnin,Jōnin"`
	Ataque        int      `json:"ataque" minimum:"0"`
	Defensa       int      `json:"defensa" minimum:"0"`
	Chakra        int      `json:"chakra" minimum:"0"`
	Aldea         string   `json:"aldea"`
	Jutsus        []string `json:"jutsus"`
	FechaRegistro string   `json:"fecha_registro"`
}

type Mission struct {
	ID            int64  `json:"id"`
	Nombre        string `json:"nombre"`
	Rango         string `json:"rango" enum:"D,C,B,A,S"`
	Recompensa    int    `json:"recompensa" minimum:"0"`
	Descripcion   string `json:"descripcion"`
	FechaCreacion string `json:"fecha_creacion"`
}

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

// NinjaReportRow summarises the assignment load of one ninja.
type NinjaReportRow struct {
	Ninja               Ninja `json:"ninja"`
	MisionesAsignadas   int   `json:"misiones_asignadas"`
	MisionesCompletadas int   `json:"misiones_completadas"`
}

// MissionReportRow lists who was sent on a mission and whether anyone finished it.
type MissionReportRow struct {
	Mision          Mission  `json:"mision"`
	NinjasAsignados []string `json:"ninjas_asignados"`
	Completada      bool     `json:"completada"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
