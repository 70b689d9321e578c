package engine

import (
	"encoding/json"

	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// FundraisingResult is the outcome of one fundraising action.
type FundraisingResult struct {
	BudgetGain float64 `json:"budget_gain"`
}

// executeFundraising resolves a fundraising action: base income scaled by
// fatigue, any foreign-aid skill, and a ±10% draw.
func (e *Engine) executeFundraising(g *game.Game, p *game.Player, action *refdata.Action) (*FundraisingResult, error) {
	rules := action.Rules()
	if rules.OncePerGame {
		used, err := e.db.ActionWasUsed(g.ID, p.ID, action.ID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, errRule("%q can only be used once per game", action.Name)
		}
	}

	gain := action.BaseBudgetGain

	skills, err := e.db.ActiveSkills(g.ID, p.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range skills {
		if sr := s.Rules(); sr.Effect == refdata.EffectForeignAid {
			gain *= 1 + sr.Bonus
		}
	}

	fatigue, err := e.actionFatigue(g.ID, p.ID, action.ID)
	if err != nil {
		return nil, err
	}
	gain *= fatigue
	gain *= 1 + entropy.Uniform(e.rng, -fundraisingJitter, fundraisingJitter)

	if err := e.db.AdjustBudget(p.ID, gain); err != nil {
		return nil, err
	}
	if err := e.db.AppendSpend(&game.SpendRecord{
		GameID:      g.ID,
		PlayerID:    p.ID,
		TurnNumber:  g.CurrentTurn,
		ActionID:    action.ID,
		Amount:      gain,
		Kind:        game.SpendEarned,
		Description: action.Name,
	}); err != nil {
		return nil, err
	}

	if rules.OncePerGame {
		if err := e.db.MarkActionUsed(g.ID, p.ID, action.ID); err != nil {
			return nil, err
		}
	}

	effect, _ := json.Marshal(FundraisingResult{BudgetGain: gain})
	if err := e.db.AppendAction(&game.ActionRecord{
		GameID: g.ID, PlayerID: p.ID, TurnNumber: g.CurrentTurn,
		ActionID: action.ID, EffectJSON: string(effect),
	}); err != nil {
		return nil, err
	}

	return &FundraisingResult{BudgetGain: gain}, nil
}
