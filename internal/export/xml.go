package export

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type xmlState int

const (
	buildingNinjas xmlState = iota
	buildingMissions
	finalized
)

func (s xmlState) String() string {
	switch s {
	case buildingNinjas:
		return "building-ninjas"
	case buildingMissions:
		return "building-missions"
	default:
		return "finalized"
	}
}

// XMLFormatter streams tags into a single buffer. The ninjas section stays
// open until the first mission arrives or the document is finalized.
type XMLFormatter struct {
	buf   strings.Builder
	state xmlState
	doc   string
}

func NewXMLFormatter(opts FormatterOptions) *XMLFormatter {
	f := &XMLFormatter{}
	f.buf.WriteString(xml.Header)
	f.buf.WriteString("<sistema_ninjas>\n")
	fmt.Fprintf(&f.buf, "  <fecha_exportacion>%s</fecha_exportacion>\n", stamp(opts.now()))
	f.buf.WriteString("  <ninjas>\n")
	return f
}

func (f *XMLFormatter) VisitNinja(it NinjaItem) {
	if f.state != buildingNinjas {
		panic(fmt.Sprintf("export: ninja %d visited while %s", it.Record.ID, f.state))
	}
	n := it.Record
	f.buf.WriteString("    <ninja>\n")
	fmt.Fprintf(&f.buf, "      <id>%d</id>\n", n.ID)
	fmt.Fprintf(&f.buf, "      <nombre>%s</nombre>\n", cdata(n.Nombre))
	fmt.Fprintf(&f.buf, "      <rango>%s</rango>\n", escape(n.Rango))
	fmt.Fprintf(&f.buf, "      <aldea>%s</aldea>\n", cdata(n.Aldea))
	f.buf.WriteString("      <estadisticas>\n")
	fmt.Fprintf(&f.buf, "        <ataque>%d</ataque>\n", n.Ataque)
	fmt.Fprintf(&f.buf, "        <defensa>%d</defensa>\n", n.Defensa)
	fmt.Fprintf(&f.buf, "        <chakra>%d</chakra>\n", n.Chakra)
	f.buf.WriteString("      </estadisticas>\n")
	f.buf.WriteString("      <jutsus>\n")
	for _, j := range n.Jutsus {
		fmt.Fprintf(&f.buf, "        <jutsu>%s</jutsu>\n", cdata(j))
	}
	f.buf.WriteString("      </jutsus>\n")
	fmt.Fprintf(&f.buf, "      <fecha_registro>%s</fecha_registro>\n", escape(n.FechaRegistro))
	f.buf.WriteString("    </ninja>\n")
}

func (f *XMLFormatter) VisitMission(it MissionItem) {
	f.advance(buildingMissions)
	if f.state != buildingMissions {
		panic(fmt.Sprintf("export: mission %d visited while %s", it.Record.ID, f.state))
	}
	m := it.Record
	f.buf.WriteString("    <mision>\n")
	fmt.Fprintf(&f.buf, "      <id>%d</id>\n", m.ID)
	fmt.Fprintf(&f.buf, "      <nombre>%s</nombre>\n", cdata(m.Nombre))
	fmt.Fprintf(&f.buf, "      <rango>%s</rango>\n", escape(m.Rango))
	fmt.Fprintf(&f.buf, "      <recompensa>%d</recompensa>\n", m.Recompensa)
	fmt.Fprintf(&f.buf, "      <descripcion>%s</descripcion>\n", cdata(m.Descripcion))
	fmt.Fprintf(&f.buf, "      <fecha_creacion>%s</fecha_creacion>\n", escape(m.FechaCreacion))
	f.buf.WriteString("    </mision>\n")
}

// Result finalizes the document. Calling it before the traversal ends yields
// a well-formed document holding only what was visited; later calls return
// the same document and further visits panic.
func (f *XMLFormatter) Result() (string, error) {
	f.advance(finalized)
	return f.doc, nil
}

// advance moves the state machine forward to target, emitting the section
// boundaries of every transition on the way. It never moves backwards.
func (f *XMLFormatter) advance(target xmlState) {
	for f.state < target {
		switch f.state {
		case buildingNinjas:
			f.buf.WriteString("  </ninjas>\n")
			f.buf.WriteString("  <misiones>\n")
			f.state = buildingMissions
		case buildingMissions:
			f.buf.WriteString("  </misiones>\n")
			f.buf.WriteString("</sistema_ninjas>")
			f.doc = f.buf.String()
			f.state = finalized
		}
	}
}

// cdata wraps s in a CDATA section, splitting any embedded terminator.
func cdata(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
