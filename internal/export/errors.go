package export

import "github.com/cockroachdb/errors"

var (
	// ErrNetwork marks a fetch that failed in transit or returned a non-2xx status.
	ErrNetwork = errors.New("record source unreachable")
	// ErrDecode marks a response body that is not the expected JSON array.
	ErrDecode = errors.New("record source returned undecodable data")
	// ErrUnsupportedFormat marks a format name no formatter handles.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrDelivery marks a failure handing the finished document over.
	ErrDelivery = errors.New("document delivery failed")
)

// Describe turns an export failure into the single message shown to users.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "Formato de exportación no soportado"
	case errors.Is(err, ErrDecode):
		return "Error al exportar datos: respuesta inválida del servidor"
	case errors.Is(err, ErrNetwork):
		return "Error al exportar datos: no se pudo contactar al servidor"
	case errors.Is(err, ErrDelivery):
		return "Error al exportar datos: no se pudo guardar el archivo"
	default:
		return "Error al exportar datos"
	}
}
