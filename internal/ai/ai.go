// Package ai implements the computer opponent. It reads game state through
// the engine's store, plans a move with simple phase- and personality-driven
// heuristics, and executes it through the engine's action dispatch. Planning
// failures surface as errors; the engine degrades a failed AI turn to a
// skipped move.
package ai

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/nuredin-kurtovic/Outvoted/internal/engine"
	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
)

// Opponent plays turns for AI-controlled players.
type Opponent struct {
	eng *engine.Engine
	rng entropy.Source
	log *slog.Logger
}

var _ engine.AIMover = (*Opponent)(nil)

// New builds an opponent over the engine. rng feeds the tie-spreading
// randomness in action and region choice.
func New(eng *engine.Engine, rng entropy.Source, log *slog.Logger) *Opponent {
	if log == nil {
		log = slog.Default()
	}
	return &Opponent{eng: eng, rng: rng, log: log}
}

// TakeTurn plans and executes one move for the player.
func (o *Opponent) TakeTurn(g *game.Game, p *game.Player) error {
	ctx, err := o.loadContext(g, p)
	if err != nil {
		return fmt.Errorf("load context: %w", err)
	}
	move, err := o.planMove(ctx)
	if err != nil {
		return fmt.Errorf("plan move: %w", err)
	}
	if move == nil {
		return fmt.Errorf("player %d has no playable move", p.ID)
	}

	o.log.Info("ai move", "game", g.ID, "player", p.ID,
		"action", move.action.Name, "regions", move.regionIDs, "reason", move.reason)
	if _, err := o.eng.ExecuteAction(g, p, move.action, move.regionIDs); err != nil {
		return fmt.Errorf("execute %q: %w", move.action.Name, err)
	}
	return nil
}

// regionView is one region as the planner sees it for the acting player.
type regionView struct {
	id            int64
	name          string
	population    int64
	mySupport     float64
	leaderSupport float64
	margin        float64
	leading       bool
	full          bool
	swing         bool
	weak          bool
	score         float64
}

// turnContext is the full strategic picture for one player's move.
type turnContext struct {
	g           *game.Game
	p           *game.Player
	pers        Personality
	regions     []regionView
	myNational  float64
	nationalGap float64
	leader      bool
	turnsLeft   int
}

// loadContext assembles the planner's view: per-region standings with swing
// and weak flags, the national race, and how much game is left.
func (o *Opponent) loadContext(g *game.Game, p *game.Player) (*turnContext, error) {
	db := o.eng.Store()

	regions, err := db.Regions()
	if err != nil {
		return nil, err
	}
	rows, err := db.AllSupportRows(g.ID)
	if err != nil {
		return nil, err
	}
	players, err := db.ActivePlayers(g.ID)
	if err != nil {
		return nil, err
	}

	byRegion := make(map[int64][]game.SupportRow)
	byPlayer := make(map[int64][]float64)
	for _, r := range rows {
		byRegion[r.RegionID] = append(byRegion[r.RegionID], r)
		byPlayer[r.PlayerID] = append(byPlayer[r.PlayerID], r.Support)
	}

	// Biggest regions first so the deterministic region bias below is stable.
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Population > regions[j].Population
	})

	views := make([]regionView, 0, len(regions))
	for _, reg := range regions {
		sup := byRegion[reg.ID]
		var sum, mine, top float64
		var leaderID int64
		for _, s := range sup {
			sum += s.Support
			if s.PlayerID == p.ID {
				mine = s.Support
			}
			if s.Support > top {
				top, leaderID = s.Support, s.PlayerID
			}
		}
		leading := len(sup) > 0 && leaderID == p.ID
		margin := top - mine
		views = append(views, regionView{
			id:            reg.ID,
			name:          reg.Name,
			population:    reg.Population,
			mySupport:     mine,
			leaderSupport: top,
			margin:        margin,
			leading:       leading,
			full:          sum >= 0.9999,
			swing:         !leading && margin < 0.20 && margin > 0.02,
			weak:          !leading && mine < 0.25,
		})
	}

	national := make(map[int64]float64, len(players))
	var topNational float64
	var leaderID int64
	for i, pl := range players {
		national[pl.ID] = meanOrDefault(byPlayer[pl.ID])
		if i == 0 || national[pl.ID] > topNational {
			topNational, leaderID = national[pl.ID], pl.ID
		}
	}
	mine := national[p.ID]

	turnsLeft := g.MaxTurns - g.CurrentTurn
	if turnsLeft < 0 {
		turnsLeft = 0
	}
	return &turnContext{
		g:           g,
		p:           p,
		pers:        personalityFor(p.ID),
		regions:     views,
		myNational:  mine,
		nationalGap: topNational - mine,
		leader:      leaderID == p.ID,
		turnsLeft:   turnsLeft,
	}, nil
}

func meanOrDefault(vals []float64) float64 {
	if len(vals) == 0 {
		return 0.20
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
