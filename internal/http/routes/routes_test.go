package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"

	scs "github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gamezone/internal/cache"
	"gamezone/internal/config"
	"gamezone/internal/db"
	"gamezone/internal/ggdeals"
	"gamezone/internal/steam"
)

const testSteamID = "76561197960287930"

// fakeUserStore is an in-memory UserStore for handler tests.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]db.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]db.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == arg.Username {
			return db.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := db.User{
		ID:           uuid.New(),
		Username:     arg.Username,
		PasswordHash: arg.PasswordHash,
		SteamID:      arg.SteamID,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetUserBySteamID(_ context.Context, steamID pgtype.Text) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.SteamID.Valid && u.SteamID.String == steamID.String {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (f *fakeUserStore) LinkSteamID(_ context.Context, arg db.LinkSteamIDParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[arg.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.SteamID = arg.SteamID
	f.users[arg.ID] = u
	return nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeUserStore) link(t *testing.T, username, steamID string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Username == username {
			u.SteamID = pgtype.Text{String: steamID, Valid: true}
			f.users[id] = u
			return
		}
	}
	t.Fatalf("no such user %s", username)
}

// countingServer wraps an httptest upstream and counts hits per path.
type countingServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newCountingServer(t *testing.T, handler http.HandlerFunc) *countingServer {
	cs := &countingServer{hits: make(map[string]int)}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.hits[r.URL.Path]++
		cs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *countingServer) count(path string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits[path]
}

func (cs *countingServer) total() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	n := 0
	for _, c := range cs.hits {
		n += c
	}
	return n
}

type testEnv struct {
	ts     *httptest.Server
	client *http.Client
	users  *fakeUserStore
	srv    *Server
}

func newTestEnv(t *testing.T, upstreamURL string, steamKey string) *testEnv {
	t.Helper()

	sess := scs.New()
	users := newFakeUserStore()
	cfg := config.Config{
		BaseURL:            "http://example.test",
		StateSecret:        "test-secret",
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}
	srv := New(ServerOptions{
		Sess:  sess,
		Users: users,
		Cache: cache.New(),
		Steam: steam.New(steamKey, steam.WithBaseURL(upstreamURL)),
		Deals: ggdeals.New(steamKey, ggdeals.WithBaseURL(upstreamURL)),
		Cfg:   cfg,
		Log:   zerolog.Nop(),
	})

	ts := httptest.NewServer(sess.LoadAndSave(srv.Router))
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		ts:     ts,
		client: &http.Client{Jar: jar},
		users:  users,
		srv:    srv,
	}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := e.client.Post(e.ts.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

// registerLinked registers a user and links a SteamID to it directly in the
// fake store.
func (e *testEnv) registerLinked(t *testing.T) {
	t.Helper()
	resp, body := e.postJSON(t, "/api/register", map[string]string{
		"username": "player_one",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "register: %v", body)
	e.users.link(t, "player_one", testSteamID)
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")

	resp, body := env.postJSON(t, "/api/register", map[string]string{
		"username": "player_one",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	// the register response also logs the user in
	resp, body = env.get(t, "/api/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	require.Equal(t, "player_one", user["username"])
	require.Equal(t, false, user["steamLinked"])

	resp, _ = env.postJSON(t, "/api/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.get(t, "/api/me")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.postJSON(t, "/api/login", map[string]string{
		"username": "player_one",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.get(t, "/api/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")

	tests := []struct {
		name     string
		username string
		password string
		want     int
	}{
		{"short username", "ab", "hunter2hunter2", http.StatusBadRequest},
		{"bad characters", "no spaces!", "hunter2hunter2", http.StatusBadRequest},
		{"short password", "player_two", "short", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.postJSON(t, "/api/register", map[string]string{
				"username": tt.username,
				"password": tt.password,
			})
			require.Equal(t, tt.want, resp.StatusCode)
			require.Equal(t, false, body["success"])
		})
	}

	// duplicate username
	resp, _ := env.postJSON(t, "/api/register", map[string]string{
		"username": "player_one", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := env.postJSON(t, "/api/register", map[string]string{
		"username": "player_one", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "username already taken", body["message"])
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")

	resp, body := env.postJSON(t, "/api/login", map[string]string{
		"username": "ghost", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	env.registerLinked(t)
	resp, body2 := env.postJSON(t, "/api/login", map[string]string{
		"username": "player_one", "password": "wrong password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	// unknown user and wrong password answer the same message
	require.Equal(t, body["message"], body2["message"])
}

func TestGamesEndToEnd(t *testing.T) {
	upstream := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"game_count":2,"games":[`+
			`{"appid":440,"name":"TF2","playtime_forever":100},`+
			`{"appid":570,"name":"Dota 2","playtime_forever":900}]}}`)
	})
	env := newTestEnv(t, upstream.URL, "key")
	env.registerLinked(t)

	resp, body := env.get(t, "/api/games")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, false, body["fromCache"])
	games := body["games"].([]any)
	require.Len(t, games, 2)
	first := games[0].(map[string]any)
	require.Equal(t, float64(570), first["appId"], "games should sort by descending playtime")

	// second immediate request is served from the cache
	resp, body = env.get(t, "/api/games")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["fromCache"])
	require.Len(t, body["games"].([]any), 2)
	require.Equal(t, 1, upstream.total(), "cached request must not refetch")
}

func TestGamesRequiresLinkedSteam(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")
	resp, body := env.postJSON(t, "/api/register", map[string]string{
		"username": "player_one", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.get(t, "/api/games")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "steam account not linked", body["message"])
}

func TestGamesUnauthenticated(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")
	resp, body := env.get(t, "/api/games")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, false, body["success"])
}

func TestGamesSteamNotConfigured(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "")
	env.registerLinked(t)

	resp, body := env.get(t, "/api/games")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "steam api is not configured", body["message"])
}

func TestAchievementsNoStatsIsSuccess(t *testing.T) {
	upstream := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"playerstats":{"error":"Requested app has no stats","success":false}}`)
	})
	env := newTestEnv(t, upstream.URL, "key")
	env.registerLinked(t)

	resp, body := env.get(t, "/api/achievements?appid=730")
	require.Equal(t, http.StatusOK, resp.StatusCode, "upstream 400 must not become a 500")
	require.Equal(t, true, body["success"])
	ach := body["achievements"].(map[string]any)
	require.Equal(t, false, ach["hasAchievements"])
	require.Equal(t, float64(0), ach["total"])
	require.Equal(t, float64(0), ach["unlocked"])
	require.Equal(t, float64(0), ach["percentage"])

	// empty outcomes are never cached: a second request fetches again
	_, _ = env.get(t, "/api/achievements?appid=730")
	require.Equal(t, 2, upstream.total())
}

func TestAchievementsInvalidAppID(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")
	env.registerLinked(t)

	for _, q := range []string{"", "abc", "-1", "0"} {
		resp, _ := env.get(t, "/api/achievements?appid="+q)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "appid=%q", q)
	}
}

func TestForbiddenNotCached(t *testing.T) {
	upstream := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{}`)
	})
	env := newTestEnv(t, upstream.URL, "key")
	env.registerLinked(t)

	for i := 0; i < 2; i++ {
		resp, body := env.get(t, "/api/games")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, true, body["success"])
		require.Equal(t, "profile is private", body["message"])
	}
	require.Equal(t, 2, upstream.total(), "forbidden outcomes must not be cached")
}

func TestPricesSetKeyOrderIndependent(t *testing.T) {
	upstream := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{`+
			`"440":{"prices":{"currentRetail":"5.00","regularRetail":"10.00"},"url":"https://gg.deals/game/tf2/"},`+
			`"570":{"prices":{"currentKeyshops":"2.00"},"url":"https://gg.deals/game/dota2/"},`+
			`"730":{"prices":{"currentRetail":"0.00"},"url":"https://gg.deals/game/cs2/"}}}`)
	})
	env := newTestEnv(t, upstream.URL, "key")
	env.registerLinked(t)

	resp, body := env.get(t, "/api/prices?ids=730,440,570")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["fromCache"])

	// a permutation of the same set hits the same entry
	resp, body = env.get(t, "/api/prices?ids=440,570,730")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["fromCache"])
	require.Equal(t, 1, upstream.total())

	prices := body["prices"].(map[string]any)
	tf2 := prices["440"].(map[string]any)
	require.Equal(t, float64(50), tf2["discount"])
	dota := prices["570"].(map[string]any)
	require.Equal(t, "keyshop", dota["source"])
}

func TestPricesInvalidIDs(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")
	env.registerLinked(t)

	for _, q := range []string{"", "abc", "1,abc", "1,,2", "-5"} {
		resp, _ := env.get(t, "/api/prices?ids="+q)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "ids=%q", q)
	}
}

func TestProfileInvalidSteamID(t *testing.T) {
	env := newTestEnv(t, "http://unused.test", "key")
	env.registerLinked(t)

	resp, body := env.get(t, "/api/profile?steamid=not-a-steamid")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid steam id", body["message"])
}

func TestProfileNotFound(t *testing.T) {
	upstream := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"players":[]}}`)
	})
	env := newTestEnv(t, upstream.URL, "key")
	env.registerLinked(t)

	resp, body := env.get(t, "/api/profile")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "profile not found", body["message"])
}

func TestUpstreamErrorIsGeneric500(t *testing.T) {
	upstream := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"secret":"internal upstream detail"}`)
	})
	env := newTestEnv(t, upstream.URL, "key")
	env.registerLinked(t)

	resp, body := env.get(t, "/api/games")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "failed to fetch games", body["message"])
	require.NotContains(t, fmt.Sprint(body), "internal upstream detail")
}
