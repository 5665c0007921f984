package service

import (
	"aliasgame/internal/apperr"
	"aliasgame/internal/model"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultSettings = model.GameSettings{WinningScore: 5, RoundTime: 60}

func startedTable(t *testing.T, e *testEnv, settings model.GameSettings, teamA, teamB []string) *table {
	t.Helper()
	tb := e.newTable(t, settings, teamA, teamB)
	require.NoError(t, e.games.StartGame(context.Background(), tb.roomID, tb.gameID, tb.players[teamA[0]]))
	return tb
}

func TestFullRoundCycle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := e.newTable(t, defaultSettings, []string{"P1", "P2"}, []string{"P3", "P4"})
	p1 := tb.players["P1"]

	require.NoError(t, e.games.StartGame(ctx, tb.roomID, tb.gameID, p1))
	assert.Equal(t, model.GameOngoing, e.game(t, tb.gameID).Status)

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	assert.Equal(t, model.GameOngoingRound, e.game(t, tb.gameID).Status)
	assert.True(t, e.games.Timers().Armed(tb.gameID))

	for _, g := range []bool{true, true, true, false} {
		next, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, g)
		require.NoError(t, err)
		assert.NotEmpty(t, next)
	}
	scores, err := e.games.GetScore(ctx, tb.gameID, []string{tb.teamA})
	require.NoError(t, err)
	assert.Equal(t, 2, scores[tb.teamA])

	e.games.expireRound(tb.gameID, e.game(t, tb.gameID).TurnSeq)
	assert.Equal(t, model.GameLastWord, e.game(t, tb.gameID).Status)

	next, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, model.GameGuessesCorrection, e.game(t, tb.gameID).Status)

	scores, err = e.games.GetScore(ctx, tb.gameID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, scores[tb.teamA])
	assert.Equal(t, 0, scores[tb.teamB])

	_, err = e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	require.NoError(t, e.games.FinishRound(ctx, tb.roomID, tb.gameID, p1))
	game := e.game(t, tb.gameID)
	assert.Equal(t, model.GameOngoing, game.Status)
	assert.Equal(t, "P2", e.activeNickname(t, tb.gameID))

	order, err := e.gameC.GetTeamOrder(ctx, tb.gameID)
	require.NoError(t, err)
	assert.Equal(t, []string{tb.teamA, tb.teamB}, order)

	round, err := e.gameC.GetRoundNumber(ctx, tb.gameID)
	require.NoError(t, err)
	assert.Equal(t, 1, round)
	assert.False(t, e.games.Timers().Armed(tb.gameID))
}

func TestLapCompletionAndRoundIncrement(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3", "P4"})

	roundOf := func() int {
		n, err := e.gameC.GetRoundNumber(ctx, tb.gameID)
		require.NoError(t, err)
		return n
	}

	e.playTurn(t, tb, "P1", false)
	assert.Equal(t, "P2", e.activeNickname(t, tb.gameID))
	assert.Equal(t, 1, roundOf())

	e.playTurn(t, tb, "P2", false)
	assert.Equal(t, "P3", e.activeNickname(t, tb.gameID))
	assert.Equal(t, 1, roundOf())
	order, err := e.gameC.GetTeamOrder(ctx, tb.gameID)
	require.NoError(t, err)
	assert.Equal(t, []string{tb.teamB, tb.teamA}, order)

	e.playTurn(t, tb, "P3", false)
	assert.Equal(t, "P4", e.activeNickname(t, tb.gameID))
	assert.Equal(t, 1, roundOf())

	e.playTurn(t, tb, "P4", false)
	assert.Equal(t, 2, roundOf())
	assert.Equal(t, "P1", e.activeNickname(t, tb.gameID))
	assert.Equal(t, model.GameOngoing, e.game(t, tb.gameID).Status)

	finished, err := e.gameC.IsLapFinisher(ctx, tb.gameID, tb.teamA)
	require.NoError(t, err)
	assert.False(t, finished)

	// Scores carry over rounds
	scores, err := e.games.GetScore(ctx, tb.gameID, nil)
	require.NoError(t, err)
	assert.Equal(t, -2, scores[tb.teamA])
	assert.Equal(t, -2, scores[tb.teamB])

	guesses, err := e.games.GetGuesses(ctx, tb.gameID, 1, "")
	require.NoError(t, err)
	assert.Len(t, guesses[1][tb.teamA], 2)
	assert.Len(t, guesses[1][tb.teamB], 2)
}

func TestWinnerCompletesGame(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, model.GameSettings{WinningScore: 3, RoundTime: 60}, []string{"P1", "P2"}, []string{"P3", "P4"})

	e.playTurn(t, tb, "P1", true, true)
	e.playTurn(t, tb, "P2", true)
	e.playTurn(t, tb, "P3", false)
	e.playTurn(t, tb, "P4", false)

	game := e.game(t, tb.gameID)
	assert.Equal(t, model.GameCompleted, game.Status)
	assert.Equal(t, tb.teamA, game.WinnerTeamID)
	assert.NotNil(t, game.CompletedAt)

	room, err := e.rooms.GetRoom(ctx, tb.roomID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomOpen, room.Status)

	active, err := e.gameC.ActiveGames(ctx)
	require.NoError(t, err)
	assert.NotContains(t, active, tb.gameID)

	require.Len(t, e.repo.results, 1)
	result := e.repo.results[0]
	assert.Equal(t, tb.teamA, result.WinnerTeamID)
	assert.Equal(t, 1, result.Rounds)

	top, err := e.results.Leaderboard(ctx, tb.roomID, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	nicks := []string{top[0].Nickname, top[1].Nickname}
	assert.ElementsMatch(t, []string{"P1", "P2"}, nicks)
	assert.Equal(t, 1, top[0].Wins)

	err = e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players["P1"])
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
	err = e.games.StartGame(ctx, tb.roomID, tb.gameID, tb.players["P1"])
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	// The room can host a new game once the previous one completed
	_, err = e.games.CreateGame(ctx, tb.roomID, tb.players["P1"], defaultSettings)
	assert.NoError(t, err)
}

func TestTieAtThresholdContinuesPlay(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, model.GameSettings{WinningScore: 1, RoundTime: 60}, []string{"P1"}, []string{"P3"})

	e.playTurn(t, tb, "P1", true)
	assert.Equal(t, "P3", e.activeNickname(t, tb.gameID))
	e.playTurn(t, tb, "P3", true)

	game := e.game(t, tb.gameID)
	assert.Equal(t, model.GameOngoing, game.Status)
	assert.Empty(t, game.WinnerTeamID)

	round, err := e.gameC.GetRoundNumber(ctx, tb.gameID)
	require.NoError(t, err)
	assert.Equal(t, 2, round)
	assert.Equal(t, "P1", e.activeNickname(t, tb.gameID))
}

func TestTurnActionsRejectOtherPlayersWithoutMutation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3", "P4"})
	p1 := tb.players["P1"]

	for _, nick := range []string{"P2", "P3", "P4"} {
		before := e.snapshot()
		err := e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players[nick])
		assert.ErrorIs(t, err, apperr.ErrAccessDenied, nick)
		assert.Equal(t, before, e.snapshot())
	}

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	for _, nick := range []string{"P2", "P3"} {
		before := e.snapshot()
		_, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, tb.players[nick], true)
		assert.ErrorIs(t, err, apperr.ErrAccessDenied)
		_, err = e.games.GetWord(ctx, tb.gameID, tb.players[nick])
		assert.ErrorIs(t, err, apperr.ErrAccessDenied)
		assert.Equal(t, before, e.snapshot())
	}

	e.games.expireRound(tb.gameID, e.game(t, tb.gameID).TurnSeq)
	_, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
	require.NoError(t, err)

	for _, nick := range []string{"P2", "P3"} {
		before := e.snapshot()
		err := e.games.FinishRound(ctx, tb.roomID, tb.gameID, tb.players[nick])
		assert.ErrorIs(t, err, apperr.ErrAccessDenied)
		assert.Equal(t, before, e.snapshot())
	}
}

func TestFinishRoundIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3", "P4"})

	e.playTurn(t, tb, "P1", true)
	before := e.snapshot()

	require.NoError(t, e.games.FinishRound(ctx, tb.roomID, tb.gameID, tb.players["P1"]))
	assert.Equal(t, before, e.snapshot())
	assert.Equal(t, "P2", e.activeNickname(t, tb.gameID))
}

func TestFinishRoundBeforeCorrectionIsRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1"}, []string{"P3"})
	p1 := tb.players["P1"]

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	err := e.games.FinishRound(ctx, tb.roomID, tb.gameID, p1)
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
	assert.Equal(t, model.GameOngoingRound, e.game(t, tb.gameID).Status)
}

func TestFinishRoundRetryAfterCompletionIsNoop(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, model.GameSettings{WinningScore: 1, RoundTime: 60}, []string{"P1"}, []string{"P3"})

	e.playTurn(t, tb, "P1", true)
	e.playTurn(t, tb, "P3", false)
	game := e.game(t, tb.gameID)
	require.Equal(t, model.GameCompleted, game.Status)
	require.Equal(t, tb.teamA, game.WinnerTeamID)

	before := e.snapshot()
	require.NoError(t, e.games.FinishRound(ctx, tb.roomID, tb.gameID, tb.players["P3"]))
	require.NoError(t, e.games.FinishRound(ctx, tb.roomID, tb.gameID, tb.players["P1"]))
	assert.Equal(t, before, e.snapshot())
	assert.Len(t, e.repo.results, 1)
}

func TestStaleFinishRoundDuringNextTurnIsDenied(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3"})

	e.playTurn(t, tb, "P1", true)
	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players["P2"]))

	before := e.snapshot()
	err := e.games.FinishRound(ctx, tb.roomID, tb.gameID, tb.players["P1"])
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
	err = e.games.FinishRound(ctx, tb.roomID, tb.gameID, tb.players["P2"])
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
	assert.Equal(t, before, e.snapshot())
}

func TestStartRoundRequiresTwoPopulatedTeams(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, nil)

	before := e.snapshot()
	err := e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players["P1"])
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
	assert.Equal(t, before, e.snapshot())
}

func TestStartRoundTwiceIsNoop(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1"}, []string{"P3"})
	p1 := tb.players["P1"]

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	seq := e.game(t, tb.gameID).TurnSeq

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	assert.Equal(t, seq, e.game(t, tb.gameID).TurnSeq)

	err := e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players["P3"])
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
}

func TestStartRoundBeforeGameStartIsRejected(t *testing.T) {
	e := newTestEnv(t)
	tb := e.newTable(t, defaultSettings, []string{"P1"}, []string{"P3"})

	err := e.games.StartRound(context.Background(), tb.roomID, tb.gameID, tb.players["P1"])
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
}

func TestRoundTimerMovesToLastWord(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, model.GameSettings{WinningScore: 5, RoundTime: 1}, []string{"P1"}, []string{"P3"})

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players["P1"]))

	assert.Eventually(t, func() bool {
		g, err := e.gameC.GetGame(ctx, tb.gameID)
		return err == nil && g.Status == model.GameLastWord
	}, 3*time.Second, 20*time.Millisecond)
	assert.False(t, e.games.Timers().Armed(tb.gameID))
	assert.GreaterOrEqual(t, e.notifier.count(tb.roomID, model.EventCountdown), 1)
}

func TestStaleExpiryIsIgnored(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1"}, []string{"P3"})
	p1 := tb.players["P1"]

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	seq := e.game(t, tb.gameID).TurnSeq

	e.games.expireRound(tb.gameID, seq-1)
	assert.Equal(t, model.GameOngoingRound, e.game(t, tb.gameID).Status)

	e.games.expireRound(tb.gameID, seq)
	_, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
	require.NoError(t, err)

	// A late timer for the same turn must not reopen anything
	e.games.expireRound(tb.gameID, seq)
	assert.Equal(t, model.GameGuessesCorrection, e.game(t, tb.gameID).Status)
}

func TestWordsFollowGuesses(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1"}, []string{"P3"})
	p1 := tb.players["P1"]

	_, err := e.games.GetWord(ctx, tb.gameID, p1)
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	word, err := e.games.GetWord(ctx, tb.gameID, p1)
	require.NoError(t, err)
	require.NotEmpty(t, word)

	next, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
	require.NoError(t, err)

	current, err := e.games.GetWord(ctx, tb.gameID, p1)
	require.NoError(t, err)
	assert.Equal(t, next, current)

	guesses, err := e.games.GetGuesses(ctx, tb.gameID, 1, tb.teamA)
	require.NoError(t, err)
	require.Len(t, guesses[1][tb.teamA], 1)
	assert.Equal(t, word, guesses[1][tb.teamA][0].Word)
	assert.True(t, guesses[1][tb.teamA][0].Guessed)
}

func TestUpdateGuessDuringCorrection(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3", "P4"})
	p1, p2 := tb.players["P1"], tb.players["P2"]

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	_, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
	require.NoError(t, err)

	guesses, err := e.games.GetGuesses(ctx, tb.gameID, 1, tb.teamA)
	require.NoError(t, err)
	guessID := guesses[1][tb.teamA][0].ID

	off := false
	_, err = e.games.UpdateGuess(ctx, tb.roomID, tb.gameID, p2, guessID, model.GuessPatch{Guessed: &off})
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	e.games.expireRound(tb.gameID, e.game(t, tb.gameID).TurnSeq)
	_, err = e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
	require.NoError(t, err)

	before, err := e.games.GetScore(ctx, tb.gameID, []string{tb.teamA})
	require.NoError(t, err)
	assert.Equal(t, 2, before[tb.teamA])

	_, err = e.games.UpdateGuess(ctx, tb.roomID, tb.gameID, tb.players["P3"], guessID, model.GuessPatch{Guessed: &off})
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = e.games.UpdateGuess(ctx, tb.roomID, tb.gameID, p2, "missing", model.GuessPatch{Guessed: &off})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := e.games.UpdateGuess(ctx, tb.roomID, tb.gameID, p2, guessID, model.GuessPatch{Guessed: &off})
	require.NoError(t, err)
	assert.False(t, updated.Guessed)

	after, err := e.games.GetScore(ctx, tb.gameID, []string{tb.teamA})
	require.NoError(t, err)
	assert.Equal(t, before[tb.teamA]-2, after[tb.teamA])

	word := "renamed"
	updated, err = e.games.UpdateGuess(ctx, tb.roomID, tb.gameID, p1, guessID, model.GuessPatch{Word: &word})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Word)

	_, ok := e.notifier.last(tb.roomID, model.EventScore)
	assert.True(t, ok)
}

func TestJoinTeamKeepsSingleMembership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := e.newTable(t, defaultSettings, []string{"P1", "P2"}, []string{"P3"})

	require.NoError(t, e.games.JoinTeam(ctx, tb.roomID, tb.teamB, tb.players["P2"]))
	a, err := e.teamC.GetPlayerQueue(ctx, tb.gameID, tb.teamA)
	require.NoError(t, err)
	b, err := e.teamC.GetPlayerQueue(ctx, tb.gameID, tb.teamB)
	require.NoError(t, err)
	assert.Equal(t, []string{tb.players["P1"]}, a)
	assert.Equal(t, []string{tb.players["P3"], tb.players["P2"]}, b)

	before := e.snapshot()
	require.NoError(t, e.games.JoinTeam(ctx, tb.roomID, tb.teamB, tb.players["P2"]))
	assert.Equal(t, before, e.snapshot())

	err = e.games.JoinTeam(ctx, tb.roomID, "unknown", tb.players["P2"])
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, e.games.StartGame(ctx, tb.roomID, tb.gameID, tb.players["P1"]))
	err = e.games.JoinTeam(ctx, tb.roomID, tb.teamA, tb.players["P2"])
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
}

func TestCreateGameRules(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	roomID, ids := e.newRoom(t, "admin", "guest")

	_, err := e.games.CreateGame(ctx, "", ids["admin"], defaultSettings)
	assert.ErrorIs(t, err, apperr.ErrIncomplete)

	_, err = e.games.CreateGame(ctx, "nope", ids["admin"], defaultSettings)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.games.CreateGame(ctx, roomID, ids["guest"], defaultSettings)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = e.games.CreateGame(ctx, roomID, ids["admin"], model.GameSettings{WinningScore: 0, RoundTime: 60})
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
	_, err = e.games.CreateGame(ctx, roomID, ids["admin"], model.GameSettings{WinningScore: 5, RoundTime: -1})
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	gameID, err := e.games.CreateGame(ctx, roomID, ids["admin"], defaultSettings)
	require.NoError(t, err)

	state, err := e.games.GetGameState(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, model.GameWaiting, state.Status)
	assert.Equal(t, 1, state.CurrentRoundNumber)
	require.Len(t, state.Teams, 2)
	assert.Equal(t, "Team A", state.Teams[0].Name)
	assert.Equal(t, "Team B", state.Teams[1].Name)
	assert.Empty(t, state.CurrentPlayer)

	room, err := e.rooms.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomInGame, room.Status)
	assert.Equal(t, gameID, room.CurrentGameID)

	_, err = e.games.CreateGame(ctx, roomID, ids["admin"], defaultSettings)
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
}

func TestStartGameRules(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := e.newTable(t, defaultSettings, []string{"P1"}, []string{"P3"})

	err := e.games.StartGame(ctx, tb.roomID, tb.gameID, tb.players["P3"])
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	require.NoError(t, e.games.StartGame(ctx, tb.roomID, tb.gameID, tb.players["P1"]))
	require.NoError(t, e.games.StartGame(ctx, tb.roomID, tb.gameID, tb.players["P1"]))
	assert.Equal(t, model.GameOngoing, e.game(t, tb.gameID).Status)

	err = e.games.StartGame(ctx, "other-room", tb.gameID, tb.players["P1"])
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStateBroadcasts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3"})

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players["P1"]))

	payload, ok := e.notifier.last(tb.roomID, model.EventGameState)
	require.True(t, ok)
	state := payload.(*model.GameState)
	assert.Equal(t, model.GameOngoingRound, state.Status)
	assert.Equal(t, "P1", state.CurrentPlayer)
	assert.Equal(t, tb.teamA, state.CurrentTeam)
	assert.Equal(t, []string{"P1", "P2"}, state.Teams[0].Players)
	assert.NotNil(t, state.RoundStartedAt)
	assert.InDelta(t, 60, state.RemainingTime, 1)

	for nick, want := range map[string]bool{"P1": true, "P2": false, "P3": false} {
		payload, ok := e.notifier.last(tb.players[nick], model.EventIsActivePlayer)
		require.True(t, ok, nick)
		assert.Equal(t, want, payload.(model.ActivePlayerEvent).IsActivePlayer, nick)
	}
}

func TestKickActivePlayerMidRound(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3", "P4"})
	p1, p2 := tb.players["P1"], tb.players["P2"]

	e.playTurn(t, tb, "P1", true)
	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p2))
	_, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p2, true)
	require.NoError(t, err)

	require.NoError(t, e.rooms.KickPlayer(ctx, tb.roomID, p1, p2))

	game := e.game(t, tb.gameID)
	assert.Equal(t, model.GameOngoing, game.Status)
	assert.False(t, e.games.Timers().Armed(tb.gameID))
	assert.Equal(t, "P1", e.activeNickname(t, tb.gameID))

	scores, err := e.games.GetScore(ctx, tb.gameID, []string{tb.teamA})
	require.NoError(t, err)
	assert.Equal(t, 2, scores[tb.teamA])

	_, ok := e.notifier.last(p2, model.EventKicked)
	assert.True(t, ok)
	_, err = e.rooms.GetPlayer(ctx, tb.roomID, p2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
}

func TestKickPassesTurnInRotationOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2", "P5"}, []string{"P3"})

	e.playTurn(t, tb, "P1", true)
	require.Equal(t, "P5", e.activeNickname(t, tb.gameID))
	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, tb.players["P5"]))

	require.NoError(t, e.rooms.KickPlayer(ctx, tb.roomID, tb.players["P1"], tb.players["P5"]))

	// P1 already played this lap, so P2 takes over
	assert.Equal(t, "P2", e.activeNickname(t, tb.gameID))
	assert.Equal(t, model.GameOngoing, e.game(t, tb.gameID).Status)
}

func TestEmptiedTeamCanBeRefilledBetweenTurns(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3"})
	p1 := tb.players["P1"]

	require.NoError(t, e.rooms.KickPlayer(ctx, tb.roomID, p1, tb.players["P3"]))
	err := e.games.StartRound(ctx, tb.roomID, tb.gameID, p1)
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	// seated players cannot switch to fill the gap
	err = e.games.JoinTeam(ctx, tb.roomID, tb.teamB, tb.players["P2"])
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	late, err := e.rooms.JoinRoom(ctx, tb.roomID, "P9")
	require.NoError(t, err)
	require.NoError(t, e.games.JoinTeam(ctx, tb.roomID, tb.teamB, late.Player.ID))

	state, err := e.games.GetGameState(ctx, tb.gameID)
	require.NoError(t, err)
	assert.Equal(t, model.GameOngoing, state.Status)
	assert.Equal(t, []string{"P9"}, state.Teams[1].Players)

	// only empty teams take newcomers
	later, err := e.rooms.JoinRoom(ctx, tb.roomID, "P10")
	require.NoError(t, err)
	err = e.games.JoinTeam(ctx, tb.roomID, tb.teamB, later.Player.ID)
	assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)

	e.playTurn(t, tb, "P1", true)
	e.playTurn(t, tb, "P2", true)
	assert.Equal(t, "P9", e.activeNickname(t, tb.gameID))
	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, late.Player.ID))
}

func TestConcurrentTurnActionsAreSerialized(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tb := startedTable(t, e, defaultSettings, []string{"P1", "P2"}, []string{"P3"})
	p1, p2 := tb.players["P1"], tb.players["P2"]

	require.NoError(t, e.games.StartRound(ctx, tb.roomID, tb.gameID, p1))
	seq := e.game(t, tb.gameID).TurnSeq
	e.games.Timers().Cancel(tb.gameID)

	const guessers, finishers = 8, 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		closing int // guesses that closed the window
		drawn   int // guesses answered with a next word
	)
	start := make(chan struct{})

	for i := 0; i < guessers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			next, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if next == "" {
				closing++
			} else {
				drawn++
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		e.games.expireRound(tb.gameID, seq)
	}()
	for i := 0; i < finishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := e.games.FinishRound(ctx, tb.roomID, tb.gameID, p1); err != nil {
				assert.ErrorIs(t, err, apperr.ErrActionNotPermitted)
			}
		}()
	}
	close(start)
	wg.Wait()

	if closing == 0 {
		// every guess landed before the deadline
		require.Equal(t, model.GameLastWord, e.game(t, tb.gameID).Status)
		next, err := e.games.RegisterGuess(ctx, tb.roomID, tb.gameID, p1, true)
		require.NoError(t, err)
		require.Empty(t, next)
		closing++
	}
	require.NoError(t, e.games.FinishRound(ctx, tb.roomID, tb.gameID, p1))

	assert.Equal(t, 1, closing)
	guesses, err := e.games.GetGuesses(ctx, tb.gameID, 1, tb.teamA)
	require.NoError(t, err)
	assert.Len(t, guesses[1][tb.teamA], drawn+closing)
	assert.Equal(t, 1, e.notifier.statusCount(tb.roomID, model.GameGuessesCorrection))

	queue, err := e.teamC.GetPlayerQueue(ctx, tb.gameID, tb.teamA)
	require.NoError(t, err)
	assert.Equal(t, []string{p2, p1}, queue)
	assert.Equal(t, model.GameOngoing, e.game(t, tb.gameID).Status)
	assert.Equal(t, "P2", e.activeNickname(t, tb.gameID))
}

func TestRecoverRounds(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	expired := startedTable(t, e, defaultSettings, []string{"P1"}, []string{"P3"})
	live := startedTable(t, e, defaultSettings, []string{"Q1"}, []string{"Q3"})

	require.NoError(t, e.games.StartRound(ctx, expired.roomID, expired.gameID, expired.players["P1"]))
	require.NoError(t, e.games.StartRound(ctx, live.roomID, live.gameID, live.players["Q1"]))
	e.games.Timers().Stop()

	game := e.game(t, expired.gameID)
	past := time.Now().Add(-2 * time.Minute)
	game.RoundStartedAt = &past
	require.NoError(t, e.gameC.SaveGame(ctx, game))

	n, err := e.games.RecoverRounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, model.GameLastWord, e.game(t, expired.gameID).Status)
	assert.False(t, e.games.Timers().Armed(expired.gameID))
	assert.Equal(t, model.GameOngoingRound, e.game(t, live.gameID).Status)
	assert.True(t, e.games.Timers().Armed(live.gameID))
}
