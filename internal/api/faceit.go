package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"faceit-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

const baseURL = "https://open.faceit.com/data/v4"

// ErrNotFound marks a terminal provider response (unknown handle, deleted
// match). It is never retried.
var ErrNotFound = errors.New("not found")

type FaceitClient struct {
	apiKey string
	game   string
	client *fasthttp.Client
}

func NewFaceitClient(cfg *config.Config) *FaceitClient {
	return &FaceitClient{
		apiKey: cfg.FaceitAPIKey,
		game:   cfg.Game,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *FaceitClient) ResolvePlayer(ctx context.Context, handle string) (string, error) {
	u := fmt.Sprintf("%s/players?nickname=%s&game=%s", baseURL, url.QueryEscape(handle), c.game)
	resp, err := doRequest[playerResponse](ctx, c, u)
	if err != nil {
		return "", err
	}
	if resp.PlayerID == "" {
		return "", ErrNotFound
	}
	return resp.PlayerID, nil
}

func (c *FaceitClient) Elo(ctx context.Context, playerID string) (int, error) {
	u := fmt.Sprintf("%s/players/%s", baseURL, playerID)
	resp, err := doRequest[playerResponse](ctx, c, u)
	if err != nil {
		return 0, err
	}
	game, ok := resp.Games[c.game]
	if !ok {
		return 0, ErrNotFound
	}
	return game.FaceitElo, nil
}

func (c *FaceitClient) RecentMatches(ctx context.Context, playerID string, limit int) ([]HistoryItem, error) {
	u := fmt.Sprintf("%s/players/%s/history?game=%s&limit=%d", baseURL, playerID, c.game, limit)
	resp, err := doRequest[historyResponse](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *FaceitClient) MatchDetail(ctx context.Context, matchID string) (*MatchDetail, error) {
	u := fmt.Sprintf("%s/matches/%s", baseURL, matchID)
	return doRequest[MatchDetail](ctx, c, u)
}

func (c *FaceitClient) MatchStats(ctx context.Context, matchID string) (*MatchStats, error) {
	u := fmt.Sprintf("%s/matches/%s/stats", baseURL, matchID)
	return doRequest[MatchStats](ctx, c, u)
}

func doRequest[T any](ctx context.Context, client *FaceitClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+client.apiKey)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() == fasthttp.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type playerResponse struct {
	PlayerID string              `json:"player_id"`
	Nickname string              `json:"nickname"`
	Games    map[string]gameInfo `json:"games"`
}

type gameInfo struct {
	FaceitElo  int    `json:"faceit_elo"`
	SkillLevel int    `json:"skill_level"`
	Region     string `json:"region"`
}

type historyResponse struct {
	Items []HistoryItem `json:"items"`
}

type HistoryItem struct {
	MatchID    string `json:"match_id"`
	FinishedAt int64  `json:"finished_at"`
	Status     string `json:"status"`
}

// MatchDetail is the raw match record. The provider has shipped at least two
// shapes for team membership ("players" and "roster"), both are decoded.
type MatchDetail struct {
	MatchID string          `json:"match_id"`
	Teams   map[string]Team `json:"teams"`
	Voting  Voting          `json:"voting"`
	Results Results         `json:"results"`
}

type Team struct {
	Players []TeamMember `json:"players"`
	Roster  []TeamMember `json:"roster"`
}

type TeamMember struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
}

type Voting struct {
	Map MapVote `json:"map"`
}

type MapVote struct {
	Pick []string `json:"pick"`
}

type Results struct {
	Winner string         `json:"winner"`
	Score  map[string]int `json:"score"`
}

// MatchStats is the raw box-score record. Per-player stats appear either in
// a flat player list on the round or nested under the round's teams.
type MatchStats struct {
	Rounds []StatsRound `json:"rounds"`
}

type StatsRound struct {
	Players []StatsPlayer `json:"players"`
	Teams   []StatsTeam   `json:"teams"`
}

type StatsTeam struct {
	Players []StatsPlayer `json:"players"`
}

type StatsPlayer struct {
	PlayerID string            `json:"player_id"`
	Nickname string            `json:"nickname"`
	Stats    map[string]string `json:"player_stats"`
}
