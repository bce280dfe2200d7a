// Package export renders ninja and mission records into report documents.
//
// One traversal (all ninjas, then all missions) drives every format: each
// record is wrapped in an Item and dispatched into the active Formatter,
// which owns its own accumulation and closing rules.
package export

import "shinobi/internal/domain"

// Kind tags the record held by an Item.
type Kind int

const (
	KindNinja Kind = iota + 1
	KindMission
)

func (k Kind) String() string {
	switch k {
	case KindNinja:
		return "ninja"
	case KindMission:
		return "mision"
	default:
		return "unknown"
	}
}

// Item is a record that knows which Formatter method consumes it.
// The set of implementations is closed to this package.
type Item interface {
	Kind() Kind
	Dispatch(f Formatter)
	sealed()
}

type NinjaItem struct {
	Record domain.Ninja
}

func (NinjaItem) Kind() Kind             { return KindNinja }
func (it NinjaItem) Dispatch(f Formatter) { f.VisitNinja(it) }
func (NinjaItem) sealed()                {}

type MissionItem struct {
	Record domain.Mission
}

func (MissionItem) Kind() Kind             { return KindMission }
func (it MissionItem) Dispatch(f Formatter) { f.VisitMission(it) }
func (MissionItem) sealed()                {}

// Items wraps both collections in traversal order.
func Items(ninjas []domain.Ninja, missions []domain.Mission) []Item {
	items := make([]Item, 0, len(ninjas)+len(missions))
	for _, n := range ninjas {
		items = append(items, NinjaItem{Record: n})
	}
	for _, m := range missions {
		items = append(items, MissionItem{Record: m})
	}
	return items
}

// Traverse feeds every ninja and then every mission into f.
func Traverse(f Formatter, ninjas []domain.Ninja, missions []domain.Mission) {
	for _, it := range Items(ninjas, missions) {
		it.Dispatch(f)
	}
}
