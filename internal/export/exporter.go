package export

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shinobi/internal/domain"
)

// Source supplies the two record collections of a report.
type Source interface {
	ListNinjas(ctx context.Context) ([]domain.Ninja, error)
	ListMissions(ctx context.Context) ([]domain.Mission, error)
}

// Delivery receives a finished document.
type Delivery interface {
	Deliver(ctx context.Context, doc Document) error
}

// Document is a finished report ready for delivery.
type Document struct {
	ExportID    string
	Format      Format
	Filename    string
	ContentType string
	Body        string
	Ninjas      int
	Missions    int
	CreatedAt   time.Time
}

// Exporter fetches records, renders them in the requested format and hands
// the result to its Delivery.
type Exporter struct {
	Source   Source
	Delivery Delivery
	Logger   *zap.Logger
	Options  FormatterOptions
}

// New builds an Exporter. A nil logger discards log output.
func New(src Source, dst Delivery, logger *zap.Logger, opts FormatterOptions) Exporter {
	return Exporter{Source: src, Delivery: dst, Logger: logger, Options: opts}
}

func (e Exporter) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// Export runs one export end to end. Either a document is delivered and
// returned, or nothing is delivered and the error says why.
func (e Exporter) Export(ctx context.Context, format string) (Document, error) {
	f, err := ParseFormat(format)
	if err != nil {
		e.logger().Warn("export rejected", zap.String("format", format), zap.Error(err))
		return Document{}, err
	}
	id := uuid.NewString()
	log := e.logger().With(zap.String("export_id", id), zap.Stringer("format", f))
	start := e.Options.now()

	ninjas, missions, err := e.fetch(ctx)
	if err != nil {
		log.Error("export fetch failed", zap.Error(err))
		return Document{}, errors.Wrap(err, "export")
	}

	formatter, err := f.NewFormatter(e.Options)
	if err != nil {
		return Document{}, err
	}
	Traverse(formatter, ninjas, missions)
	body, err := formatter.Result()
	if err != nil {
		log.Error("export render failed", zap.Error(err))
		return Document{}, errors.Wrap(err, "export")
	}

	doc := Document{
		ExportID:    id,
		Format:      f,
		Filename:    f.Filename(),
		ContentType: f.ContentType(),
		Body:        body,
		Ninjas:      len(ninjas),
		Missions:    len(missions),
		CreatedAt:   start.UTC(),
	}
	if e.Delivery == nil {
		return Document{}, errors.Mark(errors.New("export: no delivery configured"), ErrDelivery)
	}
	if err := e.Delivery.Deliver(ctx, doc); err != nil {
		log.Error("export delivery failed", zap.Error(err))
		return Document{}, errors.Mark(errors.Wrap(err, "export: deliver"), ErrDelivery)
	}
	log.Info("export delivered",
		zap.String("filename", doc.Filename),
		zap.Int("ninjas", doc.Ninjas),
		zap.Int("misiones", doc.Missions),
		zap.Int("bytes", len(body)),
		zap.Duration("took", e.Options.now().Sub(start)),
	)
	return doc, nil
}

// fetch retrieves both collections concurrently; both must succeed.
func (e Exporter) fetch(ctx context.Context) ([]domain.Ninja, []domain.Mission, error) {
	if e.Source == nil {
		return nil, nil, errors.Mark(errors.New("no record source configured"), ErrNetwork)
	}
	var (
		ninjas   []domain.Ninja
		missions []domain.Mission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ninjas, err = e.Source.ListNinjas(gctx)
		return errors.Wrap(err, "fetch ninjas")
	})
	g.Go(func() error {
		var err error
		missions, err = e.Source.ListMissions(gctx)
		return errors.Wrap(err, "fetch misiones")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ninjas, missions, nil
}

// SuccessMessage is the status line shown after a delivered export.
func SuccessMessage(doc Document) string {
	return "Reporte exportado exitosamente en formato " + strings.ToUpper(doc.Format.String())
}
