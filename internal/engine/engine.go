// Package engine implements the campaign simulation rules: demographic
// support, action resolution, fatigue, passive drift, turn rollover and the
// final election. All state lives in the persistence layer; the engine holds
// only its configuration and entropy source, so one Engine serves every
// concurrent game.
package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nuredin-kurtovic/Outvoted/internal/config"
	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/persistence"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// Balance constants. These are rules of the simulation, not operator knobs,
// so they live here rather than in config.
const (
	// maxSupport caps any player's support in any region.
	maxSupport = 0.95

	// fullRegionEpsilon treats a region whose summed support reaches
	// 1-epsilon as saturated, absorbing float drift.
	fullRegionEpsilon = 1e-4

	// decayFactor shrinks every player's support in a saturated region at
	// turn end.
	decayFactor = 0.95

	// decayFloor is the hard minimum decay can reach.
	decayFloor = 0.02

	// defaultNationalSupport stands in when a player has no support rows.
	defaultNationalSupport = 0.20

	// conflictPenalty halves a local campaign's gain when a rival already
	// worked the same region this turn.
	conflictPenalty = 0.5

	// campaignJitter and fundraisingJitter bound the random factor applied
	// to campaign gains and fundraising income.
	campaignJitter    = 0.01
	fundraisingJitter = 0.10
)

// AIMover plays a turn for a computer-controlled player. The concrete
// implementation lives outside the engine and is injected at startup.
type AIMover interface {
	TakeTurn(g *game.Game, p *game.Player) error
}

// Engine evaluates game rules against the store.
type Engine struct {
	db  *persistence.DB
	rng entropy.Source
	cfg config.Game
	log *slog.Logger
	ai  AIMover
}

// New builds an engine over the store. rng supplies every random draw the
// simulation makes; tests pass a seeded or fixed source.
func New(db *persistence.DB, rng entropy.Source, cfg config.Game, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{db: db, rng: rng, cfg: cfg, log: log}
}

// SetAIMover installs the computer opponent used to back-fill AI turns.
func (e *Engine) SetAIMover(m AIMover) { e.ai = m }

// minSupport is the floor support can decay or shift down to. More players
// means a lower floor, down to 0.02.
func minSupport(playerCount int) float64 {
	f := 0.05 - float64(playerCount-2)*0.005
	if f < 0.02 {
		return 0.02
	}
	return f
}

// CreateGame opens a new match in the waiting state and returns it.
func (e *Engine) CreateGame(gt game.Type, maxPlayers int) (*game.Game, error) {
	if maxPlayers < 2 || maxPlayers > e.cfg.MaxPlayers {
		maxPlayers = e.cfg.MaxPlayers
	}
	g := &game.Game{
		Status:          game.StatusWaiting,
		GameType:        gt,
		JoinCode:        newJoinCode(),
		CurrentTurn:     1,
		MaxTurns:        e.cfg.MaxTurns,
		MaxPlayers:      maxPlayers,
		TurnDurationSec: e.cfg.TurnDurationSec,
	}
	if err := e.db.CreateGame(g); err != nil {
		return nil, err
	}
	e.log.Info("game created", "game", g.ID, "type", gt, "join_code", g.JoinCode)
	return g, nil
}

func newJoinCode() string {
	return strings.ToUpper(uuid.New().String()[:6])
}

// JoinGame adds a player to a waiting game as the given candidate. Starting
// budget scales with the candidate's nationwide ethnic share, and initial
// regional support comes from the candidate's appeal coefficients.
func (e *Engine) JoinGame(gameID, candidateID int64, isAI bool) (*game.Player, error) {
	g, err := e.db.GameByID(gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errNotFound("game %d", gameID)
	}
	if g.Status != game.StatusWaiting {
		return nil, errRule("game %d is not open for joining", gameID)
	}

	count, err := e.db.PlayerCount(gameID)
	if err != nil {
		return nil, err
	}
	if count >= g.MaxPlayers {
		return nil, errRule("game %d is full", gameID)
	}

	cand, err := e.db.CandidateByID(candidateID)
	if err != nil {
		return nil, err
	}
	if cand == nil {
		return nil, errNotFound("candidate %d", candidateID)
	}
	taken, err := e.db.CandidateTaken(gameID, candidateID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errRule("candidate %q is already taken in game %d", cand.Name, gameID)
	}

	budget, err := e.startingBudget(cand.Ethnicity)
	if err != nil {
		return nil, err
	}
	p := &game.Player{
		GameID:        gameID,
		CandidateID:   cand.ID,
		CandidateName: cand.Name,
		Ethnicity:     cand.Ethnicity,
		Ideology:      cand.Ideology,
		HomeRegionID:  cand.HomeRegionID,
		Budget:        budget,
		TurnOrder:     count + 1,
		IsAI:          isAI,
		IsActive:      true,
	}
	if err := e.db.CreatePlayer(p); err != nil {
		return nil, err
	}

	if err := e.initializeSupport(g, p); err != nil {
		return nil, fmt.Errorf("initialize support: %w", err)
	}
	// Late joiners can push a region past 100%; squeeze everyone back.
	if err := e.capRegionalSupport(gameID); err != nil {
		return nil, err
	}

	e.log.Info("player joined", "game", gameID, "player", p.ID,
		"candidate", cand.Name, "budget", budget, "ai", isAI)
	return p, nil
}

// AddAIPlayer joins a computer opponent on a random unclaimed candidate,
// preferring an ethnicity not yet represented so matches stay contested
// across the whole map.
func (e *Engine) AddAIPlayer(gameID int64) (*game.Player, error) {
	candidates, err := e.db.Candidates()
	if err != nil {
		return nil, err
	}
	taken, err := e.db.TakenCandidateIDs(gameID)
	if err != nil {
		return nil, err
	}
	used := make(map[int64]bool, len(taken))
	usedEth := make(map[refdata.Ethnicity]bool)
	for _, id := range taken {
		used[id] = true
	}
	for _, c := range candidates {
		if used[c.ID] {
			usedEth[c.Ethnicity] = true
		}
	}

	var free, fresh []int64
	for _, c := range candidates {
		if used[c.ID] {
			continue
		}
		free = append(free, c.ID)
		if !usedEth[c.Ethnicity] {
			fresh = append(fresh, c.ID)
		}
	}
	if len(free) == 0 {
		return nil, errRule("no unclaimed candidates left in game %d", gameID)
	}
	pool := free
	if len(fresh) > 0 {
		pool = fresh
	}
	pick := pool[int(e.rng.Float()*float64(len(pool)))%len(pool)]
	return e.JoinGame(gameID, pick, true)
}

// StartGame moves a waiting game with at least two players into play.
func (e *Engine) StartGame(gameID int64) error {
	g, err := e.db.GameByID(gameID)
	if err != nil {
		return err
	}
	if g == nil {
		return errNotFound("game %d", gameID)
	}
	if g.Status != game.StatusWaiting {
		return errRule("game %d already started", gameID)
	}
	count, err := e.db.ActivePlayerCount(gameID)
	if err != nil {
		return err
	}
	if count < 2 {
		return errRule("game %d needs at least 2 players to start", gameID)
	}

	if err := e.capRegionalSupport(gameID); err != nil {
		return err
	}
	if err := e.db.SnapshotSupport(gameID, 0); err != nil {
		return err
	}
	if err := e.db.SetGameStatus(gameID, game.StatusActive); err != nil {
		return err
	}
	e.log.Info("game started", "game", gameID, "players", count)
	return nil
}

// Game returns one game or a typed not-found error.
func (e *Engine) Game(gameID int64) (*game.Game, error) {
	g, err := e.db.GameByID(gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errNotFound("game %d", gameID)
	}
	return g, nil
}

// Player returns one player or a typed not-found error.
func (e *Engine) Player(playerID int64) (*game.Player, error) {
	p, err := e.db.PlayerByID(playerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errNotFound("player %d", playerID)
	}
	return p, nil
}

// Store exposes the underlying persistence layer for read-only callers
// (API handlers, archive export).
func (e *Engine) Store() *persistence.DB { return e.db }
