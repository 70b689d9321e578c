package engine

import (
	"fmt"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// TurnOutcome is what one action submission produced, including any turn
// rollover it triggered.
type TurnOutcome struct {
	ActionResult any                 `json:"action_result,omitempty"`
	PassiveShift *PassiveShiftResult `json:"passive_shift,omitempty"`
	TurnEnded    bool                `json:"turn_ended"`
	NewTurn      int                 `json:"new_turn,omitempty"`
	GameComplete bool                `json:"game_complete"`
}

// SubmitAction runs one player's move for the current turn: passive shift,
// then the action itself, then a completion mark. When the submitter is the
// last mover, outstanding AI players are back-filled and the turn rolls over.
func (e *Engine) SubmitAction(gameID, playerID, actionID int64, regionIDs []int64) (*TurnOutcome, error) {
	g, err := e.Game(gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusActive {
		return nil, errRule("game %d is not active", gameID)
	}

	p, err := e.Player(playerID)
	if err != nil {
		return nil, err
	}
	if p.GameID != gameID {
		return nil, errInvalid("player %d is not in game %d", playerID, gameID)
	}
	if !p.IsActive {
		return nil, errRule("player %d is no longer active", playerID)
	}

	done, err := e.db.HasCompleted(gameID, playerID, g.CurrentTurn)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, errAlreadyActed(playerID, g.CurrentTurn)
	}

	action, err := e.db.ActionByID(actionID)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, errNotFound("action %d", actionID)
	}

	// Organic drift lands before the deliberate move, and sticks even if
	// the move is rejected below.
	shift, err := e.applyPassiveShift(g, p)
	if err != nil {
		return nil, fmt.Errorf("passive shift: %w", err)
	}

	result, err := e.ExecuteAction(g, p, action, regionIDs)
	if err != nil {
		return nil, err
	}

	if err := e.db.RecordCompletion(gameID, playerID, g.CurrentTurn); err != nil {
		return nil, err
	}

	out := &TurnOutcome{ActionResult: result, PassiveShift: shift}
	if err := e.backfillAI(g); err != nil {
		return nil, err
	}
	if err := e.maybeEndTurn(g, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteAction dispatches one action by type. It performs the action's own
// validation and bookkeeping but none of the turn orchestration; SubmitAction
// and the AI opponent are the callers.
func (e *Engine) ExecuteAction(g *game.Game, p *game.Player, action *refdata.Action, regionIDs []int64) (any, error) {
	switch action.Type {
	case refdata.ActionCampaign:
		return e.executeCampaign(g, p, action, regionIDs)
	case refdata.ActionFundraising:
		return e.executeFundraising(g, p, action)
	case refdata.ActionSkill:
		return e.executeSkill(g, p, action)
	default:
		return nil, errInvalid("unknown action type %q", action.Type)
	}
}

// backfillAI plays outstanding AI turns for the current turn. AI failures
// degrade to a skipped move; a stuck computer opponent must never block
// humans.
func (e *Engine) backfillAI(g *game.Game) error {
	players, err := e.db.ActivePlayers(g.ID)
	if err != nil {
		return err
	}
	for i := range players {
		p := &players[i]
		if !p.IsAI {
			continue
		}
		done, err := e.db.HasCompleted(g.ID, p.ID, g.CurrentTurn)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		if _, err := e.applyPassiveShift(g, p); err != nil {
			return err
		}
		if e.ai != nil {
			if err := e.ai.TakeTurn(g, p); err != nil {
				e.log.Warn("ai turn failed, skipping",
					"game", g.ID, "player", p.ID, "error", err)
			}
		}
		if err := e.db.RecordCompletion(g.ID, p.ID, g.CurrentTurn); err != nil {
			return err
		}
	}
	return nil
}

// PlayAITurns back-fills outstanding AI moves for the current turn and rolls
// the turn over once everyone has acted. It drives games with no human
// players, where nothing else triggers the back-fill.
func (e *Engine) PlayAITurns(gameID int64) (*TurnOutcome, error) {
	g, err := e.Game(gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusActive {
		return nil, errRule("game %d is not active", gameID)
	}
	out := &TurnOutcome{}
	if err := e.backfillAI(g); err != nil {
		return nil, err
	}
	if err := e.maybeEndTurn(g, out); err != nil {
		return nil, err
	}
	return out, nil
}

// TimeUp handles turn-timer expiry: players who never moved get passive
// shift only, then the turn rolls over.
func (e *Engine) TimeUp(gameID int64) (*TurnOutcome, error) {
	g, err := e.Game(gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusActive {
		return nil, nil
	}

	players, err := e.db.ActivePlayers(gameID)
	if err != nil {
		return nil, err
	}
	for i := range players {
		p := &players[i]
		done, err := e.db.HasCompleted(gameID, p.ID, g.CurrentTurn)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}
		e.log.Info("turn timer expired, passive shift only",
			"game", gameID, "player", p.ID, "turn", g.CurrentTurn)
		if _, err := e.applyPassiveShift(g, p); err != nil {
			return nil, err
		}
		if err := e.db.RecordCompletion(gameID, p.ID, g.CurrentTurn); err != nil {
			return nil, err
		}
	}

	out := &TurnOutcome{}
	if err := e.endTurn(g, out); err != nil {
		return nil, err
	}
	return out, nil
}

// maybeEndTurn rolls the turn over once every active player has a recorded
// completion for the current turn.
func (e *Engine) maybeEndTurn(g *game.Game, out *TurnOutcome) error {
	count, err := e.db.ActivePlayerCount(g.ID)
	if err != nil {
		return err
	}
	completed, err := e.db.CompletedPlayerIDs(g.ID, g.CurrentTurn)
	if err != nil {
		return err
	}
	if len(completed) < count {
		return nil
	}
	return e.endTurn(g, out)
}

// endTurn runs the turn-end transition: saturation decay, skill ticking,
// charisma accrual, turn increment, history snapshot, completion reset,
// and the election once the final turn closes.
func (e *Engine) endTurn(g *game.Game, out *TurnOutcome) error {
	if err := e.applyFullRegionDecay(g.ID); err != nil {
		return fmt.Errorf("decay: %w", err)
	}
	if err := e.db.TickSkills(g.ID); err != nil {
		return fmt.Errorf("tick skills: %w", err)
	}
	if err := e.db.GrantCharismaAll(g.ID, e.cfg.CharismaPerTurn); err != nil {
		return fmt.Errorf("charisma accrual: %w", err)
	}

	newTurn := g.CurrentTurn + 1
	displayTurn := newTurn
	if displayTurn > g.MaxTurns {
		displayTurn = g.MaxTurns
	}
	if err := e.db.SetGameTurn(g.ID, displayTurn); err != nil {
		return err
	}
	// History is keyed by the uncapped turn so the final rollover gets its
	// own snapshot instead of overwriting the last in-game turn's.
	if err := e.db.SnapshotSupport(g.ID, newTurn); err != nil {
		return err
	}
	if err := e.db.ClearCompletions(g.ID, newTurn); err != nil {
		return err
	}

	out.TurnEnded = true
	out.NewTurn = newTurn
	g.CurrentTurn = displayTurn

	if newTurn > g.MaxTurns {
		if err := e.db.SetGameStatus(g.ID, game.StatusCompleted); err != nil {
			return err
		}
		g.Status = game.StatusCompleted
		out.GameComplete = true
		if _, err := e.RunElection(g.ID); err != nil {
			return fmt.Errorf("election: %w", err)
		}
	}

	e.log.Info("turn ended", "game", g.ID, "turn", displayTurn, "complete", out.GameComplete)
	return nil
}
