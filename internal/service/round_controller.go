package service

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RoundController owns the in-process deadline timer of every open
// guessing window. A timer fires at most once and is identified by the
// game's turn sequence so a stale timer can never close a later round.
type RoundController struct {
	mu     sync.Mutex
	timers map[string]*roundTimer
	tick   time.Duration

	onExpire func(gameID string, seq int64)
	onTick   func(gameID, roomID string, remaining int)
}

type roundTimer struct {
	seq   int64
	timer *time.Timer
	done  chan struct{}
}

// NewRoundController creates a controller. onExpire runs on the timer
// goroutine; onTick runs once per tick until the deadline or cancellation.
func NewRoundController(onExpire func(gameID string, seq int64), onTick func(gameID, roomID string, remaining int)) *RoundController {
	return &RoundController{
		timers:   make(map[string]*roundTimer),
		tick:     time.Second,
		onExpire: onExpire,
		onTick:   onTick,
	}
}

// Arm schedules expiry of turn seq at deadline, replacing any timer the
// game already had.
func (rc *RoundController) Arm(gameID, roomID string, seq int64, deadline time.Time) {
	rt := &roundTimer{seq: seq, done: make(chan struct{})}

	rc.mu.Lock()
	if old, ok := rc.timers[gameID]; ok {
		old.timer.Stop()
		close(old.done)
	}
	rc.timers[gameID] = rt
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	// Created under mu so fire cannot observe the map before rt is stored.
	rt.timer = time.AfterFunc(d, func() { rc.fire(gameID, rt) })
	rc.mu.Unlock()

	log.Debug().Str("game_id", gameID).Int64("turn", seq).Dur("in", d).Msg("round timer armed")

	if rc.onTick != nil {
		go rc.countdown(gameID, roomID, deadline, rt.done)
	}
}

// Cancel stops the game's timer if one is pending
func (rc *RoundController) Cancel(gameID string) {
	rc.mu.Lock()
	rt, ok := rc.timers[gameID]
	if ok {
		rt.timer.Stop()
		close(rt.done)
		delete(rc.timers, gameID)
	}
	rc.mu.Unlock()

	if ok {
		log.Debug().Str("game_id", gameID).Int64("turn", rt.seq).Msg("round timer cancelled")
	}
}

// Armed reports whether a timer is pending for the game
func (rc *RoundController) Armed(gameID string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	_, ok := rc.timers[gameID]
	return ok
}

// Stop cancels every pending timer
func (rc *RoundController) Stop() {
	rc.mu.Lock()
	for id, rt := range rc.timers {
		rt.timer.Stop()
		close(rt.done)
		delete(rc.timers, id)
	}
	rc.mu.Unlock()
}

func (rc *RoundController) fire(gameID string, rt *roundTimer) {
	rc.mu.Lock()
	if rc.timers[gameID] != rt {
		rc.mu.Unlock()
		return
	}
	delete(rc.timers, gameID)
	close(rt.done)
	rc.mu.Unlock()

	log.Debug().Str("game_id", gameID).Int64("turn", rt.seq).Msg("round timer fired")
	if rc.onExpire != nil {
		rc.onExpire(gameID, rt.seq)
	}
}

func (rc *RoundController) countdown(gameID, roomID string, deadline time.Time, done <-chan struct{}) {
	ticker := time.NewTicker(rc.tick)
	defer ticker.Stop()

	rc.onTick(gameID, roomID, remainingSeconds(deadline, time.Now()))
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			remaining := remainingSeconds(deadline, time.Now())
			rc.onTick(gameID, roomID, remaining)
			if remaining == 0 {
				return
			}
		}
	}
}

// remainingSeconds rounds up so a window never reports 0 before it closes
func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now).Seconds()
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left))
}
