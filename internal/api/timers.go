package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nuredin-kurtovic/Outvoted/internal/engine"
)

// TurnTimers enforces the per-game turn clock. Each active game holds one
// timer; expiry fires the engine's TimeUp path and re-arms for the next turn
// until the game completes.
type TurnTimers struct {
	eng *engine.Engine
	log *slog.Logger

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

// NewTurnTimers builds an empty timer set over the engine.
func NewTurnTimers(eng *engine.Engine, log *slog.Logger) *TurnTimers {
	if log == nil {
		log = slog.Default()
	}
	return &TurnTimers{eng: eng, log: log, timers: make(map[int64]*time.Timer)}
}

// Arm schedules, or reschedules, the turn clock for a game.
func (t *TurnTimers) Arm(gameID int64, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[gameID]; ok {
		old.Stop()
	}
	t.timers[gameID] = time.AfterFunc(d, func() { t.expire(gameID, d) })
}

// Stop cancels a game's turn clock.
func (t *TurnTimers) Stop(gameID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[gameID]; ok {
		old.Stop()
		delete(t.timers, gameID)
	}
}

// StopAll cancels every clock. Called at shutdown.
func (t *TurnTimers) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *TurnTimers) expire(gameID int64, d time.Duration) {
	out, err := t.eng.TimeUp(gameID)
	if err != nil {
		t.log.Error("turn timer expiry failed", "game", gameID, "error", err)
		t.Stop(gameID)
		return
	}
	if out == nil || out.GameComplete {
		t.Stop(gameID)
		return
	}
	t.log.Info("turn timer expired", "game", gameID, "new_turn", out.NewTurn)
	t.Arm(gameID, d)
}
