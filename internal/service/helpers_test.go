package service

import (
	"aliasgame/internal/cache"
	"aliasgame/internal/model"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type published struct {
	Channel string
	Event   string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(channel, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{Channel: channel, Event: event, Payload: payload})
}

func (n *recordingNotifier) last(channel, event string) (interface{}, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		e := n.events[i]
		if e.Channel == channel && e.Event == event {
			return e.Payload, true
		}
	}
	return nil, false
}

func (n *recordingNotifier) count(channel, event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Channel == channel && e.Event == event {
			c++
		}
	}
	return c
}

// statusCount counts game states published on the channel with the status
func (n *recordingNotifier) statusCount(channel string, status model.GameStatus) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Channel != channel || e.Event != model.EventGameState {
			continue
		}
		if state, ok := e.Payload.(*model.GameState); ok && state.Status == status {
			c++
		}
	}
	return c
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results []*model.GameResult
}

func (r *fakeResultRepo) Save(_ context.Context, result *model.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *fakeResultRepo) GetByGameID(_ context.Context, gameID string) (*model.GameResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.GameID == gameID {
			return res, nil
		}
	}
	return nil, nil
}

func (r *fakeResultRepo) ListByRoom(_ context.Context, roomID string, _ int64) ([]*model.GameResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.GameResult
	for _, res := range r.results {
		if res.RoomID == roomID {
			out = append(out, res)
		}
	}
	return out, nil
}

type testEnv struct {
	mr       *miniredis.Miniredis
	client   *redis.Client
	games    *GameService
	rooms    *RoomService
	results  *ResultService
	repo     *fakeResultRepo
	notifier *recordingNotifier
	gameC    cache.GameCache
	teamC    cache.TeamCache
	wordC    cache.WordCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	roomC := cache.NewRoomCache(client, 0)
	playerC := cache.NewPlayerCache(client, 0)
	gameC := cache.NewGameCache(client, 0)
	teamC := cache.NewTeamCache(client, 0)
	roundC := cache.NewRoundCache(client, 0)
	wordC := cache.NewWordCache(client, 0)
	leaderboard := cache.NewLeaderboardCache(client)

	repo := &fakeResultRepo{}
	results := NewResultService(repo, leaderboard)
	words := NewWordService(wordC, "test")
	games := NewGameService(roomC, playerC, gameC, teamC, roundC, words, results)
	auth := NewAuthService("test-secret", time.Hour)
	rooms := NewRoomService(roomC, playerC, games, auth)

	notifier := &recordingNotifier{}
	games.SetNotifier(notifier)
	rooms.SetNotifier(notifier)
	t.Cleanup(games.Timers().Stop)

	require.NoError(t, wordC.SetPack(context.Background(), "test", []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}))

	return &testEnv{
		mr:       mr,
		client:   client,
		games:    games,
		rooms:    rooms,
		results:  results,
		repo:     repo,
		notifier: notifier,
		gameC:    gameC,
		teamC:    teamC,
		wordC:    wordC,
	}
}

// table is a room with a created game and players seated in two teams
type table struct {
	roomID  string
	gameID  string
	teamA   string
	teamB   string
	players map[string]string // nickname -> player id
}

func (e *testEnv) newRoom(t *testing.T, nicknames ...string) (string, map[string]string) {
	t.Helper()
	ctx := context.Background()
	room, err := e.rooms.CreateRoom(ctx)
	require.NoError(t, err)

	ids := make(map[string]string, len(nicknames))
	for _, nick := range nicknames {
		resp, err := e.rooms.JoinRoom(ctx, room.ID, nick)
		require.NoError(t, err)
		ids[nick] = resp.Player.ID
	}
	return room.ID, ids
}

// newTable seats teamA and teamB players in order. The first player of
// teamA is the admin.
func (e *testEnv) newTable(t *testing.T, settings model.GameSettings, teamA, teamB []string) *table {
	t.Helper()
	ctx := context.Background()
	all := append(append([]string{}, teamA...), teamB...)
	roomID, ids := e.newRoom(t, all...)
	admin := ids[teamA[0]]

	gameID, err := e.games.CreateGame(ctx, roomID, admin, settings)
	require.NoError(t, err)
	order, err := e.gameC.GetTeamOrder(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, order, 2)

	for _, nick := range teamA {
		require.NoError(t, e.games.JoinTeam(ctx, roomID, order[0], ids[nick]))
	}
	for _, nick := range teamB {
		require.NoError(t, e.games.JoinTeam(ctx, roomID, order[1], ids[nick]))
	}
	return &table{roomID: roomID, gameID: gameID, teamA: order[0], teamB: order[1], players: ids}
}

func (e *testEnv) game(t *testing.T, gameID string) *model.Game {
	t.Helper()
	g, err := e.gameC.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func (e *testEnv) activeNickname(t *testing.T, gameID string) string {
	t.Helper()
	state, err := e.games.GetGameState(context.Background(), gameID)
	require.NoError(t, err)
	return state.CurrentPlayer
}

// snapshot dumps every key in redis for before/after comparisons
func (e *testEnv) snapshot() string {
	return e.mr.Dump()
}

// playTurn runs a whole turn for the active player. The last guess is the
// one submitted after the timer expired.
func (e *testEnv) playTurn(t *testing.T, tb *table, nick string, guesses ...bool) {
	t.Helper()
	require.NotEmpty(t, guesses)
	ctx := context.Background()
	pid := tb.players[nick]
	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, pid))
	for _, g := range guesses[:len(guesses)-1] {
		_, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, pid, g)
		require.NoError(t, err)
	}
	e.games.expireRound(tb.gameID, e.game(t, tb.gameID).TurnSeq)
	_, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, pid, guesses[len(guesses)-1])
	require.NoError(t, err)
	require.NoError(t, e.games.FinishRound(ctx, tb.roomID, tb.gameID, pid))
}
