package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"faceit-tracker/internal/api"
	"faceit-tracker/internal/domain"
	"faceit-tracker/internal/notify"
)

// mockProvider implements StatsProvider over fixed fixtures. mu guards the
// stats fixtures, which the deferred recheck reads concurrently.
type mockProvider struct {
	mu      sync.Mutex
	ids     map[string]string
	elo     map[string]int
	matches map[string][]domain.MatchRef
	details map[string]*api.MatchDetail
	stats   map[string]*api.MatchStats

	detailErr error
	statsErr  error
	eloErr    error

	statsCalls int
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		ids:     make(map[string]string),
		elo:     make(map[string]int),
		matches: make(map[string][]domain.MatchRef),
		details: make(map[string]*api.MatchDetail),
		stats:   make(map[string]*api.MatchStats),
	}
}

func (m *mockProvider) ResolvePlayer(ctx context.Context, handle string) (string, error) {
	id, ok := m.ids[strings.ToLower(handle)]
	if !ok {
		return "", api.ErrNotFound
	}
	return id, nil
}

func (m *mockProvider) Elo(ctx context.Context, playerID string) (int, error) {
	if m.eloErr != nil {
		return 0, m.eloErr
	}
	return m.elo[playerID], nil
}

func (m *mockProvider) RecentMatches(ctx context.Context, playerID string, limit int) ([]domain.MatchRef, error) {
	refs := m.matches[playerID]
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (m *mockProvider) MatchDetail(ctx context.Context, matchID string) (*api.MatchDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	d, ok := m.details[matchID]
	if !ok {
		return nil, api.ErrNotFound
	}
	return d, nil
}

func (m *mockProvider) MatchStats(ctx context.Context, matchID string) (*api.MatchStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsCalls++
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	s, ok := m.stats[matchID]
	if !ok {
		return nil, api.ErrNotFound
	}
	return s, nil
}

func (m *mockProvider) setStats(matchID string, stats *api.MatchStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[matchID] = stats
}

// mockStore implements Store in memory.
type mockStore struct {
	mu         sync.Mutex
	players    map[string]*domain.Player
	order      []string
	weekly     map[string]*domain.WeeklyStats
	lastWindow string
	history    []domain.EloHistory
	resets     int
}

func newMockStore() *mockStore {
	return &mockStore{
		players: make(map[string]*domain.Player),
		weekly:  make(map[string]*domain.WeeklyStats),
	}
}

func (s *mockStore) Roster(ctx context.Context) ([]domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := make([]domain.Player, 0, len(s.order))
	for _, key := range s.order {
		roster = append(roster, *s.players[key])
	}
	return roster, nil
}

func (s *mockStore) GetPlayer(ctx context.Context, handle string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[strings.ToLower(handle)]
	if !ok {
		return nil, fmt.Errorf("player not found")
	}
	cp := *p
	return &cp, nil
}

func (s *mockStore) UpsertPlayer(ctx context.Context, p *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(p.Handle)
	if _, ok := s.players[key]; !ok {
		s.order = append(s.order, key)
	}
	cp := *p
	s.players[key] = &cp
	return nil
}

func (s *mockStore) Weekly(ctx context.Context) ([]domain.WeeklyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats []domain.WeeklyStats
	for _, w := range s.weekly {
		stats = append(stats, *w)
	}
	return stats, nil
}

func (s *mockStore) AddResult(ctx context.Context, handle string, won bool, eloDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(handle)
	w, ok := s.weekly[key]
	if !ok {
		w = &domain.WeeklyStats{Handle: handle}
		s.weekly[key] = w
	}
	w.Games++
	if won {
		w.Wins++
	} else {
		w.Losses++
	}
	w.EloDelta += eloDelta
	return nil
}

func (s *mockStore) ResetWeekly(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weekly = make(map[string]*domain.WeeklyStats)
	s.resets++
	return nil
}

func (s *mockStore) LastWindow(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWindow, nil
}

func (s *mockStore) SetLastWindow(ctx context.Context, window string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWindow = window
	return nil
}

func (s *mockStore) AddEloHistory(ctx context.Context, record *domain.EloHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *record)
	return nil
}

// mockSink records sends and edits.
type mockSink struct {
	mu      sync.Mutex
	sends   []notify.Message
	edits   []notify.Message
	editIDs []string
	sendErr error
	editErr error
}

func (s *mockSink) Send(ctx context.Context, msg notify.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sends = append(s.sends, msg)
	return fmt.Sprintf("msg-%d", len(s.sends)), nil
}

func (s *mockSink) Edit(ctx context.Context, handle string, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editErr != nil {
		return s.editErr
	}
	s.editIDs = append(s.editIDs, handle)
	s.edits = append(s.edits, msg)
	return nil
}

func (s *mockSink) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func (s *mockSink) editCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edits)
}
