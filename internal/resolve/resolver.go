package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"faceit-tracker/internal/api"
	"faceit-tracker/internal/domain"
)

const (
	UnknownMap   = "Unknown"
	UnknownScore = "N/A"
)

// Winner reports whether handle's team won the match. The handle is located
// case-insensitively in the team rosters, trying the "players" shape before
// the older "roster" shape. The declared winner field is authoritative; when
// it is absent the score comparison decides. Fails closed: an unlocatable
// handle is a loss, never an error.
func Winner(detail *api.MatchDetail, handle string) bool {
	team := playerTeam(detail, handle)
	if team == "" {
		return false
	}

	if detail.Results.Winner != "" {
		return detail.Results.Winner == team
	}

	own, ok := detail.Results.Score[team]
	if !ok {
		return false
	}
	for key, score := range detail.Results.Score {
		if key == team {
			continue
		}
		return own > score
	}
	return false
}

// MapAndScore reads the picked map and formats the faction score line.
// Incomplete structures fall back to documented defaults rather than erroring.
func MapAndScore(detail *api.MatchDetail) (string, string) {
	mapName := UnknownMap
	if picks := detail.Voting.Map.Pick; len(picks) > 0 && picks[0] != "" {
		mapName = picks[0]
	}

	a, okA := detail.Results.Score["faction1"]
	b, okB := detail.Results.Score["faction2"]
	if !okA || !okB {
		return mapName, UnknownScore
	}
	return mapName, fmt.Sprintf("%d-%d", a, b)
}

// BoxScore extracts handle's kill/death line from the raw stats record. It
// searches the flat per-round player list first, then the nested per-team
// rosters. A nil result means the provider has not published the box score
// yet, which is the stats-pending signal, not an error.
func BoxScore(stats *api.MatchStats, handle string) *domain.BoxScore {
	if stats == nil {
		return nil
	}
	for _, round := range stats.Rounds {
		if bs := findPlayer(round.Players, handle); bs != nil {
			return bs
		}
		for _, team := range round.Teams {
			if bs := findPlayer(team.Players, handle); bs != nil {
				return bs
			}
		}
	}
	return nil
}

// Outcome bundles the win/map/score derivations for one player.
func Outcome(detail *api.MatchDetail, handle string) domain.Outcome {
	mapName, score := MapAndScore(detail)
	return domain.Outcome{
		Won:     Winner(detail, handle),
		MapName: mapName,
		Score:   score,
	}
}

func playerTeam(detail *api.MatchDetail, handle string) string {
	for _, key := range []string{"faction1", "faction2"} {
		team, ok := detail.Teams[key]
		if !ok {
			continue
		}
		members := team.Players
		if len(members) == 0 {
			members = team.Roster
		}
		for _, m := range members {
			if strings.EqualFold(m.Nickname, handle) {
				return key
			}
		}
	}
	return ""
}

func findPlayer(players []api.StatsPlayer, handle string) *domain.BoxScore {
	for _, p := range players {
		if !strings.EqualFold(p.Nickname, handle) {
			continue
		}
		kills, okK := statInt(p.Stats, "Kills")
		deaths, okD := statInt(p.Stats, "Deaths")
		if !okK || !okD {
			return nil
		}
		return &domain.BoxScore{Kills: kills, Deaths: deaths}
	}
	return nil
}

func statInt(stats map[string]string, key string) (int, bool) {
	v, ok := stats[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
