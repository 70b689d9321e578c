package engine

import "math"

// fatigueFloor is the lowest multiplier repetition can reach.
const fatigueFloor = 0.3

// fatigueMultiplier penalizes repeating the same action. Counting the
// pending use as the nth, the first two uses are free; from the third on,
// each repeat multiplies the effect by a further 0.7, floored at 0.3. The
// sequence over consecutive repeats is 1.0, 1.0, 0.7, 0.49, 0.343, then
// the floor.
func fatigueMultiplier(priorUses int) float64 {
	n := priorUses + 1
	if n < 3 {
		return 1.0
	}
	return math.Max(fatigueFloor, math.Pow(0.7, float64(n-2)))
}

// actionFatigue derives the fatigue multiplier for a player's next use of
// an action from its use history.
func (e *Engine) actionFatigue(gameID, playerID, actionID int64) (float64, error) {
	turns, err := e.db.LastActionTurns(gameID, playerID, actionID, 1)
	if err != nil {
		return 0, err
	}
	return fatigueMultiplier(len(turns)), nil
}
