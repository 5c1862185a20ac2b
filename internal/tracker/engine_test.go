package tracker

import (
	"context"
	"strconv"
	"testing"
	"time"

	"faceit-tracker/internal/api"
	"faceit-tracker/internal/config"
	"faceit-tracker/internal/domain"
	"faceit-tracker/internal/fetch"
	"faceit-tracker/internal/notify"

	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	return &config.Config{
		RecheckDelay: 50 * time.Millisecond,
		RecapWeekday: time.Sunday,
		RecapHour:    22,
		Timezone:     "UTC",
	}
}

func newTestEngine(t *testing.T, provider *mockProvider, st *mockStore, sink *mockSink) *Engine {
	t.Helper()
	cfg := testConfig()
	recap, err := NewRecapScheduler(st, sink, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to build recap scheduler: %v", err)
	}
	// Consume the current recap window so match tests only observe match
	// notifications.
	st.lastWindow = recap.currentWindow(time.Now())
	return NewEngine(provider, st, sink, recap, cfg, zerolog.Nop())
}

func register(t *testing.T, st *mockStore, handle string) {
	t.Helper()
	if err := st.UpsertPlayer(context.Background(), &domain.Player{Handle: handle}); err != nil {
		t.Fatalf("failed to register %s: %v", handle, err)
	}
}

func winDetail(handle, mapName string, scoreA, scoreB int) *api.MatchDetail {
	return &api.MatchDetail{
		Teams: map[string]api.Team{
			"faction1": {Players: []api.TeamMember{{Nickname: handle}}},
			"faction2": {Players: []api.TeamMember{{Nickname: "opponent"}}},
		},
		Voting:  api.Voting{Map: api.MapVote{Pick: []string{mapName}}},
		Results: api.Results{Winner: "faction1", Score: map[string]int{"faction1": scoreA, "faction2": scoreB}},
	}
}

func lossDetail(handle, mapName string, scoreA, scoreB int) *api.MatchDetail {
	d := winDetail(handle, mapName, scoreA, scoreB)
	d.Results.Winner = "faction2"
	return d
}

func boxStats(handle string, kills, deaths int) *api.MatchStats {
	return &api.MatchStats{Rounds: []api.StatsRound{{
		Players: []api.StatsPlayer{{
			Nickname: handle,
			Stats:    map[string]string{"Kills": strconv.Itoa(kills), "Deaths": strconv.Itoa(deaths)},
		}},
	}}}
}

func fieldValue(t *testing.T, msg notify.Message, name string) string {
	t.Helper()
	for _, f := range msg.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("message has no field %q", name)
	return ""
}

func TestBaselineSuppression(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	register(t, st, "Alpha")
	provider.ids["alpha"] = "id-alpha"
	provider.elo["id-alpha"] = 1500
	// Latest match predates the tracker start.
	provider.matches["id-alpha"] = []domain.MatchRef{{MatchID: "m-old", FinishedAt: e.startTime.Add(-time.Hour)}}

	e.Tick(context.Background(), time.Now())

	if sink.sendCount() != 0 {
		t.Fatalf("baseline must not notify, got %d sends", sink.sendCount())
	}
	p, err := st.GetPlayer(context.Background(), "Alpha")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Seen || p.LastMatch != "m-old" || p.LastElo != 1500 || p.Streak != 0 {
		t.Errorf("unexpected baseline state: %+v", p)
	}
}

func TestBaselineOnFreshMatchForUnseenPlayer(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	register(t, st, "Alpha")
	provider.ids["alpha"] = "id-alpha"
	provider.elo["id-alpha"] = 1500
	// The match finished after tracker start, but the player has never been
	// observed: still a baseline, never a retroactive notification.
	provider.matches["id-alpha"] = []domain.MatchRef{{MatchID: "m-new", FinishedAt: time.Now().Add(time.Hour)}}

	e.Tick(context.Background(), time.Now())

	if sink.sendCount() != 0 {
		t.Fatalf("first observation must not notify, got %d sends", sink.sendCount())
	}
}

func TestNewMatchNotifiesOnceAcrossTicks(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	register(t, st, "Beta")
	provider.ids["beta"] = "id-beta"
	provider.elo["id-beta"] = 2000
	provider.matches["id-beta"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}

	// Baseline tick.
	e.Tick(context.Background(), time.Now())

	// A new match appears.
	provider.elo["id-beta"] = 2025
	provider.matches["id-beta"] = []domain.MatchRef{{MatchID: "m1", FinishedAt: time.Now().Add(time.Minute)}}
	provider.details["m1"] = winDetail("Beta", "Inferno", 13, 9)
	provider.stats["m1"] = boxStats("Beta", 17, 12)

	e.Tick(context.Background(), time.Now())
	e.Tick(context.Background(), time.Now())
	e.Tick(context.Background(), time.Now())

	if sink.sendCount() != 1 {
		t.Fatalf("expected exactly one notification, got %d", sink.sendCount())
	}
	if len(st.history) != 1 {
		t.Fatalf("expected exactly one history record, got %d", len(st.history))
	}

	msg := sink.sends[0]
	if got := fieldValue(t, msg, "Result"); got != "Win ✅" {
		t.Errorf("Result = %q", got)
	}
	if got := fieldValue(t, msg, "Score"); got != "13-9" {
		t.Errorf("Score = %q", got)
	}
	if got := fieldValue(t, msg, "Map"); got != "Inferno" {
		t.Errorf("Map = %q", got)
	}
	if got := fieldValue(t, msg, "ELO"); got != "2000 → 2025 (+25)" {
		t.Errorf("ELO = %q", got)
	}
	if got := fieldValue(t, msg, "Stats"); got != "🔫 K/D: 17/12 (1.42)" {
		t.Errorf("Stats = %q", got)
	}
	if got := fieldValue(t, msg, "Streak"); got != "1" {
		t.Errorf("Streak = %q", got)
	}

	p, _ := st.GetPlayer(context.Background(), "Beta")
	if p.LastMatch != "m1" || p.LastElo != 2025 || p.Streak != 1 {
		t.Errorf("unexpected state after processing: %+v", p)
	}
}

func TestStreakLaw(t *testing.T) {
	// W,W,L,L,L ends at -3: the signed run length of the trailing outcomes.
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	register(t, st, "Gamma")
	provider.ids["gamma"] = "id-g"
	provider.elo["id-g"] = 1000
	provider.matches["id-g"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}
	e.Tick(context.Background(), time.Now())

	outcomes := []bool{true, true, false, false, false}
	for i, won := range outcomes {
		matchID := "m" + strconv.Itoa(i)
		if won {
			provider.details[matchID] = winDetail("Gamma", "Nuke", 13, 7)
			provider.elo["id-g"] += 25
		} else {
			provider.details[matchID] = lossDetail("Gamma", "Nuke", 7, 13)
			provider.elo["id-g"] -= 20
		}
		provider.stats[matchID] = boxStats("Gamma", 15, 15)
		provider.matches["id-g"] = []domain.MatchRef{{MatchID: matchID, FinishedAt: time.Now().Add(time.Minute)}}
		e.Tick(context.Background(), time.Now())
	}

	p, _ := st.GetPlayer(context.Background(), "Gamma")
	if p.Streak != -3 {
		t.Errorf("streak = %d, want -3", p.Streak)
	}

	w := st.weekly["gamma"]
	if w.Games != 5 || w.Wins != 2 || w.Losses != 3 {
		t.Errorf("weekly = %+v, want 5 games, 2 wins, 3 losses", w)
	}
	if w.Games != w.Wins+w.Losses {
		t.Errorf("aggregate invariant broken: %d != %d + %d", w.Games, w.Wins, w.Losses)
	}
	if w.EloDelta != 2*25-3*20 {
		t.Errorf("elo delta = %d, want %d", w.EloDelta, 2*25-3*20)
	}
}

func TestNextStreak(t *testing.T) {
	tests := []struct {
		streak int
		won    bool
		want   int
	}{
		{0, true, 1},
		{0, false, -1},
		{3, true, 4},
		{3, false, -1},
		{-2, false, -3},
		{-2, true, 1},
	}
	for _, tt := range tests {
		if got := nextStreak(tt.streak, tt.won); got != tt.want {
			t.Errorf("nextStreak(%d, %v) = %d, want %d", tt.streak, tt.won, got, tt.want)
		}
	}
}

func TestDetailUnavailableLeavesStateUntouched(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	register(t, st, "Delta")
	provider.ids["delta"] = "id-d"
	provider.elo["id-d"] = 1800
	provider.matches["id-d"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}
	e.Tick(context.Background(), time.Now())

	provider.elo["id-d"] = 1825
	provider.matches["id-d"] = []domain.MatchRef{{MatchID: "m1", FinishedAt: time.Now().Add(time.Minute)}}
	provider.detailErr = fetch.ErrUnavailable

	e.Tick(context.Background(), time.Now())

	if sink.sendCount() != 0 {
		t.Fatal("no notification may be sent while detail is unavailable")
	}
	p, _ := st.GetPlayer(context.Background(), "Delta")
	if p.LastMatch != "m-base" {
		t.Errorf("state must be unchanged, lastMatch = %q", p.LastMatch)
	}

	// The match is re-detected once the provider recovers.
	provider.detailErr = nil
	provider.details["m1"] = winDetail("Delta", "Mirage", 13, 11)
	provider.stats["m1"] = boxStats("Delta", 20, 15)

	e.Tick(context.Background(), time.Now())

	if sink.sendCount() != 1 {
		t.Fatalf("expected the delayed notification, got %d sends", sink.sendCount())
	}
	p, _ = st.GetPlayer(context.Background(), "Delta")
	if p.LastMatch != "m1" {
		t.Errorf("lastMatch = %q, want m1", p.LastMatch)
	}
}

func TestPlayerFailureDoesNotAbortRosterPass(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	// First roster entry cannot be resolved; second is fine.
	register(t, st, "Ghost")
	register(t, st, "Echo")
	provider.ids["echo"] = "id-e"
	provider.elo["id-e"] = 1200
	provider.matches["id-e"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}

	e.Tick(context.Background(), time.Now())

	p, err := st.GetPlayer(context.Background(), "Echo")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Seen {
		t.Error("second player must still be processed when the first fails")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPendingStatsResolvedByRecheck(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	register(t, st, "Foxtrot")
	provider.ids["foxtrot"] = "id-f"
	provider.elo["id-f"] = 1600
	provider.matches["id-f"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}
	e.Tick(context.Background(), time.Now())

	provider.elo["id-f"] = 1621
	provider.matches["id-f"] = []domain.MatchRef{{MatchID: "m1", FinishedAt: time.Now().Add(time.Minute)}}
	provider.details["m1"] = winDetail("Foxtrot", "Ancient", 13, 10)
	// Box score not published yet.

	e.Tick(context.Background(), time.Now())

	if sink.sendCount() != 1 {
		t.Fatalf("expected one notification, got %d", sink.sendCount())
	}
	if got := fieldValue(t, sink.sends[0], "Stats"); got != statsPlaceholder {
		t.Errorf("Stats = %q, want placeholder", got)
	}
	p, _ := st.GetPlayer(context.Background(), "Foxtrot")
	if p.PendingMatch != "m1" {
		t.Errorf("pendingMatch = %q, want m1", p.PendingMatch)
	}

	// The provider publishes the box score before the recheck fires.
	provider.setStats("m1", boxStats("Foxtrot", 24, 18))

	waitFor(t, time.Second, func() bool { return sink.editCount() == 1 })

	if got := fieldValue(t, sink.edits[0], "Stats"); got != "🔫 K/D: 24/18 (1.33)" {
		t.Errorf("edited Stats = %q", got)
	}
	if sink.editIDs[0] != "msg-1" {
		t.Errorf("edited wrong message: %q", sink.editIDs[0])
	}

	waitFor(t, time.Second, func() bool {
		p, _ := st.GetPlayer(context.Background(), "Foxtrot")
		return p.PendingMatch == ""
	})
	if sink.editCount() != 1 {
		t.Errorf("stats must be edited exactly once, got %d", sink.editCount())
	}
}

func TestPendingStatsForTeammatesInOneMatch(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	// Two tracked players queue together and finish the same match.
	register(t, st, "India")
	register(t, st, "Juliet")
	provider.ids["india"] = "id-i"
	provider.ids["juliet"] = "id-j"
	provider.elo["id-i"] = 1500
	provider.elo["id-j"] = 1700
	provider.matches["id-i"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}
	provider.matches["id-j"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}
	e.Tick(context.Background(), time.Now())

	provider.elo["id-i"] = 1520
	provider.elo["id-j"] = 1720
	shared := []domain.MatchRef{{MatchID: "m1", FinishedAt: time.Now().Add(time.Minute)}}
	provider.matches["id-i"] = shared
	provider.matches["id-j"] = shared
	provider.details["m1"] = &api.MatchDetail{
		Teams: map[string]api.Team{
			"faction1": {Players: []api.TeamMember{{Nickname: "India"}, {Nickname: "Juliet"}}},
			"faction2": {Players: []api.TeamMember{{Nickname: "opponent"}}},
		},
		Voting:  api.Voting{Map: api.MapVote{Pick: []string{"Dust2"}}},
		Results: api.Results{Winner: "faction1", Score: map[string]int{"faction1": 13, "faction2": 6}},
	}
	// Box score not published yet: both players go pending on the same match.

	e.Tick(context.Background(), time.Now())

	if sink.sendCount() != 2 {
		t.Fatalf("expected one notification per player, got %d", sink.sendCount())
	}
	for _, handle := range []string{"India", "Juliet"} {
		p, _ := st.GetPlayer(context.Background(), handle)
		if p.PendingMatch != "m1" {
			t.Errorf("%s pendingMatch = %q, want m1", handle, p.PendingMatch)
		}
	}

	provider.setStats("m1", &api.MatchStats{Rounds: []api.StatsRound{{
		Players: []api.StatsPlayer{
			{Nickname: "India", Stats: map[string]string{"Kills": "20", "Deaths": "10"}},
			{Nickname: "Juliet", Stats: map[string]string{"Kills": "15", "Deaths": "12"}},
		},
	}}})

	// Each player's notification gets its own edit with their own line.
	waitFor(t, time.Second, func() bool { return sink.editCount() == 2 })

	edited := map[string]string{}
	for i, msg := range sink.edits {
		edited[sink.editIDs[i]] = fieldValue(t, msg, "Stats")
	}
	if got := edited["msg-1"]; got != "🔫 K/D: 20/10 (2.00)" {
		t.Errorf("msg-1 Stats = %q", got)
	}
	if got := edited["msg-2"]; got != "🔫 K/D: 15/12 (1.25)" {
		t.Errorf("msg-2 Stats = %q", got)
	}

	for _, handle := range []string{"India", "Juliet"} {
		waitFor(t, time.Second, func() bool {
			p, _ := st.GetPlayer(context.Background(), handle)
			return p.PendingMatch == ""
		})
	}
}

func TestPendingStatsAbandonedSilently(t *testing.T) {
	provider := newMockProvider()
	st := newMockStore()
	sink := &mockSink{}
	e := newTestEngine(t, provider, st, sink)

	register(t, st, "Hotel")
	provider.ids["hotel"] = "id-h"
	provider.elo["id-h"] = 1400
	provider.matches["id-h"] = []domain.MatchRef{{MatchID: "m-base", FinishedAt: e.startTime.Add(-time.Hour)}}
	e.Tick(context.Background(), time.Now())

	provider.elo["id-h"] = 1388
	provider.matches["id-h"] = []domain.MatchRef{{MatchID: "m1", FinishedAt: time.Now().Add(time.Minute)}}
	provider.details["m1"] = lossDetail("Hotel", "Vertigo", 8, 13)

	e.Tick(context.Background(), time.Now())

	// Stats never arrive; the single recheck abandons and clears pending.
	waitFor(t, time.Second, func() bool {
		p, _ := st.GetPlayer(context.Background(), "Hotel")
		return p.PendingMatch == ""
	})
	if sink.editCount() != 0 {
		t.Errorf("no edit may happen when stats never arrive, got %d", sink.editCount())
	}
}
