package engine

import (
	"encoding/json"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// defaultSkillDuration applies when a skill's rules omit one.
const defaultSkillDuration = 3

// SkillResult is the outcome of activating a skill.
type SkillResult struct {
	Activated    bool `json:"skill_activated"`
	Duration     int  `json:"duration"`
	CharismaCost int  `json:"charisma_cost"`
}

// executeSkill activates a timed skill effect, paid in charisma.
func (e *Engine) executeSkill(g *game.Game, p *game.Player, action *refdata.Action) (*SkillResult, error) {
	if action.CharismaCost > 0 && p.CharismaPoints < action.CharismaCost {
		return nil, errCharisma(action.CharismaCost, p.CharismaPoints)
	}

	rules := action.Rules()
	duration := rules.Duration
	if duration <= 0 {
		duration = defaultSkillDuration
	}

	if action.CharismaCost > 0 {
		if err := e.db.AdjustCharisma(p.ID, -action.CharismaCost); err != nil {
			return nil, err
		}
	}

	if err := e.db.AddSkill(&game.ActiveSkill{
		GameID:         g.ID,
		PlayerID:       p.ID,
		ActionID:       action.ID,
		TurnsRemaining: duration,
		EffectData:     refdata.MarshalRules(rules),
	}); err != nil {
		return nil, err
	}

	res := &SkillResult{Activated: true, Duration: duration, CharismaCost: action.CharismaCost}
	effect, _ := json.Marshal(res)
	if err := e.db.AppendAction(&game.ActionRecord{
		GameID: g.ID, PlayerID: p.ID, TurnNumber: g.CurrentTurn,
		ActionID: action.ID, EffectJSON: string(effect),
	}); err != nil {
		return nil, err
	}

	return res, nil
}
