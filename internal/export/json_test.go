package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shinobi/internal/domain"
)

func TestJSONSingleNinjaNoMissions(t *testing.T) {
	f := NewJSONFormatter(testOptions())
	Traverse(f, []domain.Ninja{kakashi()}, nil)
	out, err := f.Result()
	require.NoError(t, err)

	want := `{
  "fecha_exportacion": "2024-05-06T07:08:09.010Z",
  "total_ninjas": 1,
  "total_misiones": 0,
  "ninjas": [
    {
      "id": 1,
      "nombre": "Kakashi",
      "rango": "S",
      "ataque": 90,
      "defensa": 85,
      "chakra": 95,
      "aldea": "Konoha",
      "jutsus": [
        "Chidori"
      ],
      "fecha_registro": "2020-01-01T00:00:00Z"
    }
  ],
  "misiones": []
}`
	assert.Equal(t, want, out)
}

func TestJSONRoundTrip(t *testing.T) {
	ninjas, missions := sampleNinjas(), sampleMissions()
	f := NewJSONFormatter(testOptions())
	Traverse(f, ninjas, missions)
	out, err := f.Result()
	require.NoError(t, err)

	var got JSONReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, len(ninjas), got.TotalNinjas)
	assert.Equal(t, len(missions), got.TotalMisiones)
	if diff := cmp.Diff(ninjas, got.Ninjas); diff != "" {
		t.Fatalf("ninjas mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(missions, got.Misiones); diff != "" {
		t.Fatalf("misiones mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONKeepsMarkupUnescaped(t *testing.T) {
	f := NewJSONFormatter(testOptions())
	f.VisitMission(MissionItem{Record: sampleMissions()[1]})
	out, _ := f.Result()
	assert.Contains(t, out, "Recuperar a Gaara <urgente> & sin demora")
}

func TestJSONStampsEveryResult(t *testing.T) {
	calls := 0
	opts := testOptions()
	opts.Now = func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Second)
	}
	f := NewJSONFormatter(opts)
	f.VisitNinja(NinjaItem{Record: kakashi()})
	first, _ := f.Result()
	second, _ := f.Result()
	assert.NotEqual(t, first, second)

	var a, b JSONReport
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	assert.Equal(t, a.Ninjas, b.Ninjas)
	assert.NotEqual(t, a.FechaExportacion, b.FechaExportacion)
}
