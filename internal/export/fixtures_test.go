package export

import (
	"time"

	"shinobi/internal/domain"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC)

func testOptions() FormatterOptions {
	return FormatterOptions{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}
}

func kakashi() domain.Ninja {
	return domain.Ninja{
		ID:            1,
		Nombre:        "Kakashi",
		Rango:         "S",
		Aldea:         "Konoha",
		Ataque:        90,
		Defensa:       85,
		Chakra:        95,
		Jutsus:        []string{"Chidori"},
		FechaRegistro: "2020-01-01T00:00:00Z",
	}
}

func sampleNinjas() []domain.Ninja {
	return []domain.Ninja{
		kakashi(),
		{
			ID:            2,
			Nombre:        "Naruto Uzumaki",
			Rango:         domain.RankGenin,
			Aldea:         "Konohagakure",
			Ataque:        70,
			Defensa:       60,
			Chakra:        150,
			Jutsus:        []string{"Rasengan", "Kage Bunshin no Jutsu"},
			FechaRegistro: "2023-10-10T12:30:00",
		},
		{
			ID:            3,
			Nombre:        "Tenten",
			Rango:         domain.RankChunin,
			Aldea:         "Konohagakure",
			Ataque:        55,
			Defensa:       50,
			Chakra:        60,
			Jutsus:        []string{},
			FechaRegistro: "2022-03-04T08:00:00.123456",
		},
	}
}

func sampleMissions() []domain.Mission {
	return []domain.Mission{
		{
			ID:            10,
			Nombre:        "Escoltar al constructor",
			Rango:         "C",
			Recompensa:    5000,
			Descripcion:   "Proteger a Tazuna hasta el País de las Olas",
			FechaCreacion: "2023-01-15T09:00:00",
		},
		{
			ID:            11,
			Nombre:        "Rescatar al Kazekage",
			Rango:         "S",
			Recompensa:    100000,
			Descripcion:   "Recuperar a Gaara <urgente> & sin demora",
			FechaCreacion: "2023-02-20T18:45:00Z",
		},
	}
}
