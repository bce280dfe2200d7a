package export

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	banner         = "========================================"
	noJutsus       = "Ninguno"
	currencySuffix = "Ryō"
)

// TextFormatter renders a human-readable sectioned report.
type TextFormatter struct {
	buf    strings.Builder
	layout string
	loc    *time.Location
}

func NewTextFormatter(opts FormatterOptions) *TextFormatter {
	return &TextFormatter{
		layout: dateLayout(opts.locale()),
		loc:    opts.location(),
	}
}

func (f *TextFormatter) VisitNinja(it NinjaItem) {
	n := it.Record
	jutsus := strings.Join(n.Jutsus, ", ")
	if jutsus == "" {
		jutsus = noJutsus
	}
	fmt.Fprintf(&f.buf, "%s\nNINJA: %s\n%s\n", banner, n.Nombre, banner)
	fmt.Fprintf(&f.buf, "Rango: %s\n", n.Rango)
	fmt.Fprintf(&f.buf, "Aldea: %s\n", n.Aldea)
	f.buf.WriteString("Estadísticas:\n")
	fmt.Fprintf(&f.buf, "  - Ataque: %d\n", n.Ataque)
	fmt.Fprintf(&f.buf, "  - Defensa: %d\n", n.Defensa)
	fmt.Fprintf(&f.buf, "  - Chakra: %d\n", n.Chakra)
	fmt.Fprintf(&f.buf, "Jutsus: %s\n", jutsus)
	fmt.Fprintf(&f.buf, "Fecha de Registro: %s\n\n", f.date(n.FechaRegistro))
}

func (f *TextFormatter) VisitMission(it MissionItem) {
	m := it.Record
	fmt.Fprintf(&f.buf, "%s\nMISIÓN: %s\n%s\n", banner, m.Nombre, banner)
	fmt.Fprintf(&f.buf, "Rango: %s\n", m.Rango)
	fmt.Fprintf(&f.buf, "Recompensa: %d %s\n", m.Recompensa, currencySuffix)
	fmt.Fprintf(&f.buf, "Descripción: %s\n", m.Descripcion)
	fmt.Fprintf(&f.buf, "Fecha de Creación: %s\n\n", f.date(m.FechaCreacion))
}

func (f *TextFormatter) Result() (string, error) {
	return f.buf.String(), nil
}

func (f *TextFormatter) date(raw string) string {
	t, ok := parseTimestamp(raw, f.loc)
	if !ok {
		return raw
	}
	return t.In(f.loc).Format(f.layout)
}

// dateLayout picks a calendar-date layout (no time of day) for a locale.
func dateLayout(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "es", "fr", "it", "pt", "ca", "nl":
		return "2/1/2006"
	case "de", "ru", "pl", "fi", "nb":
		return "2.1.2006"
	case "ja", "zh", "ko":
		return "2006/1/2"
	default:
		return "1/2/2006"
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 instants and zone-less ISO-8601 values,
// the latter read as wall-clock time in loc.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
