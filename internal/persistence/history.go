package persistence

import (
	"fmt"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
)

// AppendAction records one executed action.
func (db *DB) AppendAction(a *game.ActionRecord) error {
	res, err := db.conn.Exec(
		`INSERT INTO action_history (game_id, player_id, action_id, region_id, turn_number, spending_amount, effect_applied)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.GameID, a.PlayerID, a.ActionID, a.RegionID, a.TurnNumber, a.SpendingAmount, a.EffectJSON)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

// AppendSpend records one budget movement, spend or income.
func (db *DB) AppendSpend(s *game.SpendRecord) error {
	res, err := db.conn.Exec(
		`INSERT INTO spending_history (game_id, player_id, turn_number, action_id, amount, kind, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.GameID, s.PlayerID, s.TurnNumber, s.ActionID, s.Amount, s.Kind, s.Description)
	if err != nil {
		return fmt.Errorf("append spend: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// LastActionTurns returns the turn numbers, most recent first, of a player's
// uses of one action within the trailing lookback window.
func (db *DB) LastActionTurns(gameID, playerID, actionID int64, sinceTurn int) ([]int, error) {
	var turns []int
	err := db.conn.Select(&turns,
		`SELECT turn_number FROM action_history
		 WHERE game_id = ? AND player_id = ? AND action_id = ? AND turn_number >= ?
		 ORDER BY turn_number DESC`,
		gameID, playerID, actionID, sinceTurn)
	return turns, err
}

// ActionsForTurn returns a turn's executed actions in execution order.
func (db *DB) ActionsForTurn(gameID int64, turn int) ([]game.ActionRecord, error) {
	var recs []game.ActionRecord
	err := db.conn.Select(&recs,
		`SELECT id, game_id, player_id, action_id, region_id, turn_number, spending_amount, effect_applied
		 FROM action_history WHERE game_id = ? AND turn_number = ? ORDER BY id`,
		gameID, turn)
	return recs, err
}

// ActionHistory returns a game's full action log.
func (db *DB) ActionHistory(gameID int64) ([]game.ActionRecord, error) {
	var recs []game.ActionRecord
	err := db.conn.Select(&recs,
		`SELECT id, game_id, player_id, action_id, region_id, turn_number, spending_amount, effect_applied
		 FROM action_history WHERE game_id = ? ORDER BY id`,
		gameID)
	return recs, err
}

// SpendsForPlayer returns a player's budget movements, most recent first.
func (db *DB) SpendsForPlayer(gameID, playerID int64) ([]game.SpendRecord, error) {
	var recs []game.SpendRecord
	err := db.conn.Select(&recs,
		`SELECT id, game_id, player_id, turn_number, action_id, amount, kind, description
		 FROM spending_history WHERE game_id = ? AND player_id = ? ORDER BY id DESC`,
		gameID, playerID)
	return recs, err
}

// SpendingHistory returns a game's full spending log.
func (db *DB) SpendingHistory(gameID int64) ([]game.SpendRecord, error) {
	var recs []game.SpendRecord
	err := db.conn.Select(&recs,
		`SELECT id, game_id, player_id, turn_number, action_id, amount, kind, description
		 FROM spending_history WHERE game_id = ? ORDER BY id`,
		gameID)
	return recs, err
}

// SnapshotSupport copies every current support row into support_history
// under the given turn number.
func (db *DB) SnapshotSupport(gameID int64, turn int) error {
	_, err := db.conn.Exec(
		`INSERT INTO support_history (game_id, player_id, region_id, turn_number, support_percentage)
		 SELECT game_id, player_id, region_id, ?, support_percentage
		 FROM regional_support WHERE game_id = ?
		 ON CONFLICT(game_id, player_id, region_id, turn_number)
		 DO UPDATE SET support_percentage = excluded.support_percentage`,
		turn, gameID)
	if err != nil {
		return fmt.Errorf("snapshot support turn %d: %w", turn, err)
	}
	return nil
}

// SupportHistory returns a game's per-turn support snapshots in turn order.
func (db *DB) SupportHistory(gameID int64) ([]game.SupportSnapshot, error) {
	var snaps []game.SupportSnapshot
	err := db.conn.Select(&snaps,
		`SELECT game_id, player_id, region_id, turn_number, support_percentage
		 FROM support_history WHERE game_id = ?
		 ORDER BY turn_number, player_id, region_id`,
		gameID)
	return snaps, err
}

// RecordCompletion marks a player done for a turn. Re-marking is a no-op.
func (db *DB) RecordCompletion(gameID, playerID int64, turn int) error {
	_, err := db.conn.Exec(
		`INSERT INTO turn_completions (game_id, player_id, turn_number) VALUES (?, ?, ?)
		 ON CONFLICT(game_id, player_id, turn_number) DO NOTHING`,
		gameID, playerID, turn)
	return err
}

// HasCompleted reports whether a player already acted this turn.
func (db *DB) HasCompleted(gameID, playerID int64, turn int) (bool, error) {
	var n int
	err := db.conn.Get(&n,
		`SELECT COUNT(*) FROM turn_completions
		 WHERE game_id = ? AND player_id = ? AND turn_number = ?`,
		gameID, playerID, turn)
	return n > 0, err
}

// CompletedPlayerIDs lists the players done with a turn.
func (db *DB) CompletedPlayerIDs(gameID int64, turn int) ([]int64, error) {
	var ids []int64
	err := db.conn.Select(&ids,
		`SELECT player_id FROM turn_completions
		 WHERE game_id = ? AND turn_number = ? ORDER BY player_id`,
		gameID, turn)
	return ids, err
}

// ClearCompletions removes any completion marks recorded at the given turn
// number. Earlier turns' marks stay behind as an audit trail.
func (db *DB) ClearCompletions(gameID int64, turn int) error {
	_, err := db.conn.Exec(
		"DELETE FROM turn_completions WHERE game_id = ? AND turn_number = ?",
		gameID, turn)
	return err
}

// RecordRegionActivity notes that a player campaigned in a region this turn.
func (db *DB) RecordRegionActivity(gameID, playerID, regionID, actionID int64, turn int) error {
	_, err := db.conn.Exec(
		`INSERT INTO turn_region_activity (game_id, player_id, region_id, action_id, turn_number)
		 VALUES (?, ?, ?, ?, ?)`,
		gameID, playerID, regionID, actionID, turn)
	return err
}

// RegionHasRival reports whether another player already campaigned in the
// region this turn.
func (db *DB) RegionHasRival(gameID, playerID, regionID int64, turn int) (bool, error) {
	var n int
	err := db.conn.Get(&n,
		`SELECT COUNT(*) FROM turn_region_activity
		 WHERE game_id = ? AND region_id = ? AND turn_number = ? AND player_id != ?`,
		gameID, regionID, turn, playerID)
	return n > 0, err
}

// MarkActionUsed records a once-per-game action use.
func (db *DB) MarkActionUsed(gameID, playerID, actionID int64) error {
	_, err := db.conn.Exec(
		`INSERT INTO used_actions (game_id, player_id, action_id) VALUES (?, ?, ?)
		 ON CONFLICT(game_id, player_id, action_id) DO NOTHING`,
		gameID, playerID, actionID)
	return err
}

// ActionWasUsed reports whether a once-per-game action is spent.
func (db *DB) ActionWasUsed(gameID, playerID, actionID int64) (bool, error) {
	var n int
	err := db.conn.Get(&n,
		`SELECT COUNT(*) FROM used_actions
		 WHERE game_id = ? AND player_id = ? AND action_id = ?`,
		gameID, playerID, actionID)
	return n > 0, err
}

// UpsertElectionResult stores one player's final tally.
func (db *DB) UpsertElectionResult(r *game.ElectionResult) error {
	_, err := db.conn.Exec(
		`INSERT INTO election_results
		 (game_id, player_id, candidate_name, votes, vote_percentage, support_percentage, is_winner)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game_id, player_id) DO UPDATE SET
		   candidate_name = excluded.candidate_name,
		   votes = excluded.votes,
		   vote_percentage = excluded.vote_percentage,
		   support_percentage = excluded.support_percentage,
		   is_winner = excluded.is_winner`,
		r.GameID, r.PlayerID, r.CandidateName, r.Votes, r.VotePercentage, r.SupportPercentage, r.IsWinner)
	return err
}

// ElectionResults returns a game's final tallies, highest vote share first.
func (db *DB) ElectionResults(gameID int64) ([]game.ElectionResult, error) {
	var results []game.ElectionResult
	err := db.conn.Select(&results,
		`SELECT game_id, player_id, candidate_name, votes, vote_percentage, support_percentage, is_winner
		 FROM election_results WHERE game_id = ?
		 ORDER BY vote_percentage DESC, player_id`,
		gameID)
	return results, err
}
