package tracker

import (
	"fmt"

	"faceit-tracker/internal/domain"
	"faceit-tracker/internal/notify"
)

const statsPlaceholder = "Stats unavailable"

// statsFieldName names the K/D field inside a match message, rewritten in
// place by the deferred recheck.
const statsFieldName = "Stats"

func matchMessage(handle string, outcome domain.Outcome, box *domain.BoxScore, prevElo, currentElo, eloDelta, streak int) notify.Message {
	result := "Loss ❌"
	color := notify.ColorLoss
	if outcome.Won {
		result = "Win ✅"
		color = notify.ColorWin
	}

	return notify.Message{
		Title: fmt.Sprintf("🏁 Match finished – %s", handle),
		Color: color,
		Fields: []notify.Field{
			{Name: "Result", Value: result, Inline: true},
			{Name: "Score", Value: outcome.Score, Inline: true},
			{Name: "Map", Value: outcome.MapName, Inline: true},
			{Name: statsFieldName, Value: statsLine(box)},
			{Name: "ELO", Value: fmt.Sprintf("%d → %d (%+d)", prevElo, currentElo, eloDelta)},
			{Name: "Streak", Value: fmt.Sprintf("%d", streak)},
		},
	}
}

func statsLine(box *domain.BoxScore) string {
	if box == nil {
		return statsPlaceholder
	}
	deaths := box.Deaths
	if deaths < 1 {
		deaths = 1
	}
	ratio := float64(box.Kills) / float64(deaths)
	return fmt.Sprintf("🔫 K/D: %d/%d (%.2f)", box.Kills, box.Deaths, ratio)
}

func recapMessage(stats []domain.WeeklyStats) notify.Message {
	msg := notify.Message{
		Title: "📊 Weekly Faceit Recap",
		Color: notify.ColorGold,
	}
	for _, s := range stats {
		if s.Games == 0 {
			continue
		}
		msg.Fields = append(msg.Fields, notify.Field{
			Name:  s.Handle,
			Value: fmt.Sprintf("Games: %d\nW/L: %d / %d\nELO: %+d", s.Games, s.Wins, s.Losses, s.EloDelta),
		})
	}
	return msg
}
