package export

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type Format int

const (
	FormatText Format = iota + 1
	FormatJSON
	FormatXML
)

// Formats lists the built-in formats in display order.
var Formats = []Format{FormatText, FormatJSON, FormatXML}

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "texto", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	default:
		return 0, errors.Mark(errors.Newf("unsupported export format %q (want text, json or xml)", name), ErrUnsupportedFormat)
	}
}

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

func (f Format) Filename() string {
	switch f {
	case FormatText:
		return "reporte_ninjas.txt"
	case FormatJSON:
		return "reporte_ninjas.json"
	case FormatXML:
		return "reporte_ninjas.xml"
	default:
		return ""
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain"
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	default:
		return ""
	}
}

// NewFormatter builds a fresh formatter for f.
func (f Format) NewFormatter(opts FormatterOptions) (Formatter, error) {
	switch f {
	case FormatText:
		return NewTextFormatter(opts), nil
	case FormatJSON:
		return NewJSONFormatter(opts), nil
	case FormatXML:
		return NewXMLFormatter(opts), nil
	default:
		return nil, errors.Mark(errors.Newf("unsupported export format %d", int(f)), ErrUnsupportedFormat)
	}
}
