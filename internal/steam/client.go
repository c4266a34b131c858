// Package steam wraps the Steam Web API endpoints the portal proxies: owned
// games, player summaries, achievements and friend lists. Every method runs
// one classified fetch and reshapes the raw payload into the derived record
// types callers cache and serve.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gamezone/internal/upstream"
)

const DefaultBaseURL = "https://api.steampowered.com"

// Cache TTLs per resource. Games, profile and friends data changes often;
// achievement counts are slower-moving.
const (
	GamesTTL        = 5 * time.Minute
	ProfileTTL      = 5 * time.Minute
	FriendsTTL      = 5 * time.Minute
	AchievementsTTL = 10 * time.Minute
)

// SteamIDs are 17-digit numeric strings wherever accepted from untrusted input.
var idPattern = regexp.MustCompile(`^[0-9]{17}$`)

// ValidID reports whether s is a well-formed 64-bit SteamID string.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

var (
	gamesDesc = upstream.Descriptor{
		Resource:          "owned-games",
		Field:             []string{"response", "games"},
		ForbiddenStatuses: []int{401, 403},
	}
	summariesDesc = upstream.Descriptor{
		Resource:          "player-summaries",
		Field:             []string{"response", "players"},
		ForbiddenStatuses: []int{401, 403},
	}
	// The achievements endpoint answers 400 for games without stats; that is
	// a documented quirk of this endpoint only, not a pattern to generalize.
	achievementsDesc = upstream.Descriptor{
		Resource:          "achievements",
		Field:             []string{"playerstats", "achievements"},
		EmptyStatuses:     []int{400},
		ForbiddenStatuses: []int{401, 403},
	}
	friendsDesc = upstream.Descriptor{
		Resource:          "friends",
		Field:             []string{"friendslist", "friends"},
		ForbiddenStatuses: []int{401, 403},
	}
)

// Client calls the Steam Web API.
type Client struct {
	apiKey  string
	baseURL string
	http    *resty.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different API host, used in tests.
func WithBaseURL(raw string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(raw, "/") }
}

// WithHTTPClient swaps the underlying resty client.
func WithHTTPClient(rc *resty.Client) Option {
	return func(c *Client) { c.http = rc }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    resty.New().SetTimeout(15 * time.Second),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether an API key is present. Endpoints answer a
// configuration error when it is not.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) endpoint(path string, params url.Values) string {
	params.Set("key", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}

// OwnedGames fetches and derives the subject's game library, sorted by
// descending total playtime.
func (c *Client) OwnedGames(ctx context.Context, steamID string) ([]Game, upstream.Kind, error) {
	params := url.Values{}
	params.Set("steamid", steamID)
	params.Set("include_appinfo", "1")
	params.Set("include_played_free_games", "1")
	u := c.endpoint("/IPlayerService/GetOwnedGames/v1/", params)

	res := upstream.Fetch(ctx, c.http, u, gamesDesc)
	if res.Kind != upstream.Success {
		return nil, res.Kind, res.Err
	}

	var raw ownedGamesResponse
	if err := json.Unmarshal(res.Body, &raw); err != nil {
		return nil, upstream.Error, fmt.Errorf("owned-games: decode: %w", err)
	}

	games := make([]Game, 0, len(raw.Response.Games))
	for _, g := range raw.Response.Games {
		games = append(games, deriveGame(g))
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].PlaytimeForever > games[j].PlaytimeForever
	})
	return games, upstream.Success, nil
}

// PlayerSummary fetches the subject's public profile. An empty players array
// comes back as Empty, which handlers report as not-found.
func (c *Client) PlayerSummary(ctx context.Context, steamID string) (*Profile, upstream.Kind, error) {
	params := url.Values{}
	params.Set("steamids", steamID)
	u := c.endpoint("/ISteamUser/GetPlayerSummaries/v2/", params)

	res := upstream.Fetch(ctx, c.http, u, summariesDesc)
	if res.Kind != upstream.Success {
		return nil, res.Kind, res.Err
	}

	var raw playerSummariesResponse
	if err := json.Unmarshal(res.Body, &raw); err != nil {
		return nil, upstream.Error, fmt.Errorf("player-summaries: decode: %w", err)
	}
	if len(raw.Response.Players) == 0 {
		return nil, upstream.Empty, nil
	}

	p := deriveProfile(raw.Response.Players[0])
	return &p, upstream.Success, nil
}

// Achievements fetches the subject's achievement progress for one game. The
// returned summary is zeroed on Empty and flagged Private on Forbidden.
func (c *Client) Achievements(ctx context.Context, steamID string, appID int) (AchievementSummary, upstream.Kind, error) {
	params := url.Values{}
	params.Set("steamid", steamID)
	params.Set("appid", strconv.Itoa(appID))
	u := c.endpoint("/ISteamUserStats/GetPlayerAchievements/v1/", params)

	summary := AchievementSummary{AppID: appID}

	res := upstream.Fetch(ctx, c.http, u, achievementsDesc)
	switch res.Kind {
	case upstream.Success:
	case upstream.Forbidden:
		summary.Private = true
		return summary, res.Kind, nil
	default:
		return summary, res.Kind, res.Err
	}

	var raw playerAchievementsResponse
	if err := json.Unmarshal(res.Body, &raw); err != nil {
		return summary, upstream.Error, fmt.Errorf("achievements: decode: %w", err)
	}

	summary.GameName = raw.PlayerStats.GameName
	summary.Total = len(raw.PlayerStats.Achievements)
	for _, a := range raw.PlayerStats.Achievements {
		if a.Achieved == 1 {
			summary.Unlocked++
		}
	}
	summary.HasAchievements = summary.Total > 0
	summary.Percentage = percentage(summary.Unlocked, summary.Total)
	return summary, upstream.Success, nil
}

// Friends fetches the subject's friend list and enriches it with persona
// names and online states via a batched summaries call. Results sort online
// friends first, then by case-insensitive name.
func (c *Client) Friends(ctx context.Context, steamID string) ([]Friend, upstream.Kind, error) {
	params := url.Values{}
	params.Set("steamid", steamID)
	params.Set("relationship", "friend")
	u := c.endpoint("/ISteamUser/GetFriendList/v1/", params)

	res := upstream.Fetch(ctx, c.http, u, friendsDesc)
	if res.Kind != upstream.Success {
		return nil, res.Kind, res.Err
	}

	var raw friendListResponse
	if err := json.Unmarshal(res.Body, &raw); err != nil {
		return nil, upstream.Error, fmt.Errorf("friends: decode: %w", err)
	}
	if len(raw.FriendsList.Friends) == 0 {
		return []Friend{}, upstream.Success, nil
	}

	since := make(map[string]int64, len(raw.FriendsList.Friends))
	ids := make([]string, 0, len(raw.FriendsList.Friends))
	for _, f := range raw.FriendsList.Friends {
		since[f.SteamID] = f.FriendSince
		ids = append(ids, f.SteamID)
	}

	sumParams := url.Values{}
	sumParams.Set("steamids", strings.Join(ids, ","))
	su := c.endpoint("/ISteamUser/GetPlayerSummaries/v2/", sumParams)

	sumRes := upstream.Fetch(ctx, c.http, su, summariesDesc)
	if sumRes.Kind != upstream.Success {
		return nil, sumRes.Kind, sumRes.Err
	}

	var sumRaw playerSummariesResponse
	if err := json.Unmarshal(sumRes.Body, &sumRaw); err != nil {
		return nil, upstream.Error, fmt.Errorf("friends: decode summaries: %w", err)
	}

	friends := make([]Friend, 0, len(sumRaw.Response.Players))
	for _, p := range sumRaw.Response.Players {
		friends = append(friends, deriveFriend(p, since[p.SteamID]))
	}
	sortFriends(friends)
	return friends, upstream.Success, nil
}

func sortFriends(friends []Friend) {
	sort.SliceStable(friends, func(i, j int) bool {
		if friends[i].Online != friends[j].Online {
			return friends[i].Online
		}
		return strings.ToLower(friends[i].Name) < strings.ToLower(friends[j].Name)
	})
}
