package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"shinobi/internal/domain"
)

// JSONFormatter buffers the raw records and encodes them in one document.
type JSONFormatter struct {
	ninjas   []domain.Ninja
	missions []domain.Mission
	now      func() time.Time
}

// JSONReport is the JSON report layout. Field order is part of the format.
type JSONReport struct {
	FechaExportacion string           `json:"fecha_exportacion"`
	TotalNinjas      int              `json:"total_ninjas"`
	TotalMisiones    int              `json:"total_misiones"`
	Ninjas           []domain.Ninja   `json:"ninjas"`
	Misiones         []domain.Mission `json:"misiones"`
}

func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{
		ninjas:   []domain.Ninja{},
		missions: []domain.Mission{},
		now:      opts.now,
	}
}

func (f *JSONFormatter) VisitNinja(it NinjaItem) {
	f.ninjas = append(f.ninjas, it.Record)
}

func (f *JSONFormatter) VisitMission(it MissionItem) {
	f.missions = append(f.missions, it.Record)
}

// Result stamps the document with the current instant on every call.
func (f *JSONFormatter) Result() (string, error) {
	doc := JSONReport{
		FechaExportacion: stamp(f.now()),
		TotalNinjas:      len(f.ninjas),
		TotalMisiones:    len(f.missions),
		Ninjas:           f.ninjas,
		Misiones:         f.missions,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", errors.Wrap(err, "encode json report")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
