package domain

import "slices"

const (
	RankGenin  = "Genin"
	RankChunin = "Chūnin"
	RankJonin  = "Jōnin"
)

// NinjaRanks lists the valid ninja ranks, lowest first.
var NinjaRanks = []string{RankGenin, RankChunin, RankJonin}

// MissionRanks lists the valid mission ranks, easiest first.
var MissionRanks = []string{"D", "C", "B", "A", "S"}

var ninjaTier = map[string]int{
	RankGenin:  1,
	RankChunin: 2,
	RankJonin:  3,
}

var missionTier = map[string]int{
	"D": 1,
	"C": 1,
	"B": 2,
	"A": 3,
	"S": 3,
}

func ValidNinjaRank(rank string) bool {
	return slices.Contains(NinjaRanks, rank)
}

func ValidMissionRank(rank string) bool {
	return slices.Contains(MissionRanks, rank)
}

// CanUndertake reports whether a ninja of the given rank may be sent on a
// mission of the given rank. Unknown ranks rank as tier 0.
func CanUndertake(ninjaRank, missionRank string) bool {
	return ninjaTier[ninjaRank] >= missionTier[missionRank]
}

// TimestampLayout is how record timestamps are stored and served: naive
// local ISO-8601 with up to microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.999999"
