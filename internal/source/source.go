// Package source provides the record sources an export reads from.
package source

import (
	"context"

	"github.com/cockroachdb/errors"

	"shinobi/internal/domain"
	"shinobi/internal/export"
	shinobisdk "shinobi/sdk/go"
)

// HTTP reads records from a running Shinobi API.
type HTTP struct {
	Client *shinobisdk.Client
}

var _ export.Source = HTTP{}

func NewHTTP(c *shinobisdk.Client) HTTP {
	return HTTP{Client: c}
}

func (h HTTP) ListNinjas(ctx context.Context) ([]domain.Ninja, error) {
	in, err := h.Client.ListNinjas(ctx)
	if err != nil {
		return nil, classify(err, "GET ninjas")
	}
	out := make([]domain.Ninja, len(in))
	for i, n := range in {
		out[i] = domain.Ninja{
			ID:            n.ID,
			Nombre:        n.Nombre,
			Rango:         n.Rango,
			Ataque:        n.Ataque,
			Defensa:       n.Defensa,
			Chakra:        n.Chakra,
			Aldea:         n.Aldea,
			Jutsus:        n.Jutsus,
			FechaRegistro: n.FechaRegistro,
		}
		if out[i].Jutsus == nil {
			out[i].Jutsus = []string{}
		}
	}
	return out, nil
}

func (h HTTP) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	in, err := h.Client.ListMissions(ctx)
	if err != nil {
		return nil, classify(err, "GET misiones")
	}
	out := make([]domain.Mission, len(in))
	for i, m := range in {
		out[i] = domain.Mission{
			ID:            m.ID,
			Nombre:        m.Nombre,
			Rango:         m.Rango,
			Recompensa:    m.Recompensa,
			Descripcion:   m.Descripcion,
			FechaCreacion: m.FechaCreacion,
		}
	}
	return out, nil
}

// classify marks undecodable bodies as ErrDecode and every other client
// failure as ErrNetwork.
func classify(err error, op string) error {
	var decErr *shinobisdk.DecodeError
	if errors.As(err, &decErr) {
		return errors.Mark(errors.Wrap(err, op), export.ErrDecode)
	}
	return errors.Mark(errors.Wrap(err, op), export.ErrNetwork)
}

// Lister is the read side of the local store.
type Lister interface {
	ListNinjas(ctx context.Context) ([]domain.Ninja, error)
	ListMissions(ctx context.Context) ([]domain.Mission, error)
}

// Store reads records straight from the local database.
type Store struct {
	Lister Lister
}

var _ export.Source = Store{}

func (s Store) ListNinjas(ctx context.Context) ([]domain.Ninja, error) {
	n, err := s.Lister.ListNinjas(ctx)
	if err != nil {
		return nil, errors.Mark(err, export.ErrNetwork)
	}
	return n, nil
}

func (s Store) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	m, err := s.Lister.ListMissions(ctx)
	if err != nil {
		return nil, errors.Mark(err, export.ErrNetwork)
	}
	return m, nil
}
