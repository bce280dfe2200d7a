package domain

import "testing"

func TestCanUndertake(t *testing.T) {
	cases := []struct {
		ninja, mission string
		want           bool
	}{
		{RankGenin, "D", true},
		{RankGenin, "C", true},
		{RankGenin, "B", false},
		{RankGenin, "S", false},
		{RankChunin, "B", true},
		{RankChunin, "A", false},
		{RankJonin, "A", true},
		{RankJonin, "S", true},
		{"Hokage", "D", false},
		{RankGenin, "Z", true},
	}
	for _, c := range cases {
		if got := CanUndertake(c.ninja, c.mission); got != c.want {
			t.Errorf("CanUndertake(%q, %q) = %v, want %v", c.ninja, c.mission, got, c.want)
		}
	}
}

func TestValidRanks(t *testing.T) {
	for _, r := range NinjaRanks {
		if !ValidNinjaRank(r) {
			t.Errorf("%q should be a valid ninja rank", r)
		}
	}
	if ValidNinjaRank("Chunin") {
		t.Errorf("ranks are matched exactly")
	}
	for _, r := range MissionRanks {
		if !ValidMissionRank(r) {
			t.Errorf("%q should be a valid mission rank", r)
		}
	}
	if ValidMissionRank("s") {
		t.Errorf("mission ranks are upper case")
	}
}
