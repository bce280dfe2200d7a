package export

import (
	"time"

	"golang.org/x/text/language"
)

// Formatter accumulates one document. Implementations are single-use and not
// safe for concurrent use; each export builds a fresh one.
type Formatter interface {
	VisitNinja(NinjaItem)
	VisitMission(MissionItem)
	// Result returns the document built so far.
	Result() (string, error)
}

// FormatterOptions carries the presentation settings shared by the formatters.
type FormatterOptions struct {
	Locale   language.Tag
	Location *time.Location
	Now      func() time.Time
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o FormatterOptions) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

func (o FormatterOptions) locale() language.Tag {
	if o.Locale == language.Und {
		return language.Spanish
	}
	return o.Locale
}

// isoMillis matches the instant format used in export stamps.
const isoMillis = "2006-01-02T15:04:05.000Z"

func stamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
