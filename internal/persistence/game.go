package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
)

// CreateGame inserts a game and fills in its id.
func (db *DB) CreateGame(g *game.Game) error {
	res, err := db.conn.Exec(
		`INSERT INTO games (status, game_type, join_code, current_turn, max_turns, max_players, turn_duration_sec)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.Status, g.GameType, g.JoinCode, g.CurrentTurn, g.MaxTurns, g.MaxPlayers, g.TurnDurationSec,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	g.ID, err = res.LastInsertId()
	return err
}

// GameByID returns one game, or nil if it does not exist.
func (db *DB) GameByID(id int64) (*game.Game, error) {
	var g game.Game
	err := db.conn.Get(&g,
		`SELECT id, status, game_type, join_code, current_turn, max_turns, max_players,
		        turn_duration_sec, voter_turnout, total_voters
		 FROM games WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SetGameStatus updates a game's lifecycle state.
func (db *DB) SetGameStatus(id int64, status game.Status) error {
	_, err := db.conn.Exec("UPDATE games SET status = ? WHERE id = ?", status, id)
	return err
}

// SetGameTurn stores the display-clamped current turn.
func (db *DB) SetGameTurn(id int64, turn int) error {
	_, err := db.conn.Exec("UPDATE games SET current_turn = ? WHERE id = ?", turn, id)
	return err
}

// SetElectionTurnout stores the drawn turnout after an election.
func (db *DB) SetElectionTurnout(id int64, turnout float64, totalVoters int64) error {
	_, err := db.conn.Exec(
		"UPDATE games SET voter_turnout = ?, total_voters = ? WHERE id = ?",
		turnout, totalVoters, id)
	return err
}

// CreatePlayer inserts a player and fills in its id. The unique
// (game_id, candidate_id) constraint enforces one candidate per game.
func (db *DB) CreatePlayer(p *game.Player) error {
	res, err := db.conn.Exec(
		`INSERT INTO game_players
		 (game_id, candidate_id, candidate_name, ethnicity, ideology, home_region_id,
		  budget, charisma_points, turn_order, is_ai, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.GameID, p.CandidateID, p.CandidateName, p.Ethnicity, p.Ideology, p.HomeRegionID,
		p.Budget, p.CharismaPoints, p.TurnOrder, p.IsAI, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

const playerColumns = `id, game_id, candidate_id, candidate_name, ethnicity, ideology,
	home_region_id, budget, charisma_points, turn_order, is_ai, is_active`

// PlayerByID returns one player, or nil if it does not exist.
func (db *DB) PlayerByID(id int64) (*game.Player, error) {
	var p game.Player
	err := db.conn.Get(&p, "SELECT "+playerColumns+" FROM game_players WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ActivePlayers returns a game's active players in turn order.
func (db *DB) ActivePlayers(gameID int64) ([]game.Player, error) {
	var ps []game.Player
	err := db.conn.Select(&ps,
		"SELECT "+playerColumns+" FROM game_players WHERE game_id = ? AND is_active = 1 ORDER BY turn_order, id",
		gameID)
	return ps, err
}

// Players returns every player in a game, inactive ones included.
func (db *DB) Players(gameID int64) ([]game.Player, error) {
	var ps []game.Player
	err := db.conn.Select(&ps,
		"SELECT "+playerColumns+" FROM game_players WHERE game_id = ? ORDER BY turn_order, id",
		gameID)
	return ps, err
}

// ActivePlayerCount counts a game's active players.
func (db *DB) ActivePlayerCount(gameID int64) (int, error) {
	var n int
	err := db.conn.Get(&n,
		"SELECT COUNT(*) FROM game_players WHERE game_id = ? AND is_active = 1", gameID)
	return n, err
}

// PlayerCount counts all players in a game, active or not.
func (db *DB) PlayerCount(gameID int64) (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM game_players WHERE game_id = ?", gameID)
	return n, err
}

// CandidateTaken reports whether a candidate is already claimed in a game.
func (db *DB) CandidateTaken(gameID, candidateID int64) (bool, error) {
	var n int
	err := db.conn.Get(&n,
		"SELECT COUNT(*) FROM game_players WHERE game_id = ? AND candidate_id = ?",
		gameID, candidateID)
	return n > 0, err
}

// TakenCandidateIDs lists candidate ids already used in a game.
func (db *DB) TakenCandidateIDs(gameID int64) ([]int64, error) {
	var ids []int64
	err := db.conn.Select(&ids,
		"SELECT candidate_id FROM game_players WHERE game_id = ?", gameID)
	return ids, err
}

// AdjustBudget applies a delta to a player's budget.
func (db *DB) AdjustBudget(playerID int64, delta float64) error {
	_, err := db.conn.Exec(
		"UPDATE game_players SET budget = budget + ? WHERE id = ?", delta, playerID)
	return err
}

// AdjustCharisma applies a delta to a player's charisma points.
func (db *DB) AdjustCharisma(playerID int64, delta int) error {
	_, err := db.conn.Exec(
		"UPDATE game_players SET charisma_points = charisma_points + ? WHERE id = ?", delta, playerID)
	return err
}

// GrantCharismaAll adds charisma to every active player in a game.
func (db *DB) GrantCharismaAll(gameID int64, amount int) error {
	_, err := db.conn.Exec(
		"UPDATE game_players SET charisma_points = charisma_points + ? WHERE game_id = ? AND is_active = 1",
		amount, gameID)
	return err
}

// InitSupport creates zeroed support rows for a player across the given
// regions plus the matching turn-0 history snapshot, in one transaction.
func (db *DB) InitSupport(gameID, playerID int64, regionIDs []int64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rid := range regionIDs {
		if _, err := tx.Exec(
			`INSERT INTO regional_support (game_id, player_id, region_id, support_percentage)
			 VALUES (?, ?, ?, 0)
			 ON CONFLICT(game_id, player_id, region_id) DO NOTHING`,
			gameID, playerID, rid,
		); err != nil {
			return fmt.Errorf("init support region %d: %w", rid, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO support_history (game_id, player_id, region_id, turn_number, support_percentage)
			 VALUES (?, ?, ?, 0, 0)
			 ON CONFLICT(game_id, player_id, region_id, turn_number) DO UPDATE SET support_percentage = 0`,
			gameID, playerID, rid,
		); err != nil {
			return fmt.Errorf("init history region %d: %w", rid, err)
		}
	}

	return tx.Commit()
}

// SupportValue returns one player's support in one region. ok is false when
// no row exists.
func (db *DB) SupportValue(gameID, playerID, regionID int64) (float64, bool, error) {
	var v float64
	err := db.conn.Get(&v,
		`SELECT support_percentage FROM regional_support
		 WHERE game_id = ? AND player_id = ? AND region_id = ?`,
		gameID, playerID, regionID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// PlayerSupports returns all of one player's support rows.
func (db *DB) PlayerSupports(gameID, playerID int64) ([]game.SupportRow, error) {
	var rows []game.SupportRow
	err := db.conn.Select(&rows,
		`SELECT game_id, player_id, region_id, support_percentage FROM regional_support
		 WHERE game_id = ? AND player_id = ? ORDER BY region_id`,
		gameID, playerID)
	return rows, err
}

// RegionSupportRows returns every player's support row for one region.
func (db *DB) RegionSupportRows(gameID, regionID int64) ([]game.SupportRow, error) {
	var rows []game.SupportRow
	err := db.conn.Select(&rows,
		`SELECT game_id, player_id, region_id, support_percentage FROM regional_support
		 WHERE game_id = ? AND region_id = ? ORDER BY player_id`,
		gameID, regionID)
	return rows, err
}

// AllSupportRows returns every support row of a game in one query.
func (db *DB) AllSupportRows(gameID int64) ([]game.SupportRow, error) {
	var rows []game.SupportRow
	err := db.conn.Select(&rows,
		`SELECT game_id, player_id, region_id, support_percentage FROM regional_support
		 WHERE game_id = ? ORDER BY region_id, player_id`,
		gameID)
	return rows, err
}

// RegionSums returns each region's summed support across all players.
func (db *DB) RegionSums(gameID int64) (map[int64]float64, error) {
	var rows []struct {
		RegionID int64   `db:"region_id"`
		Total    float64 `db:"total"`
	}
	err := db.conn.Select(&rows,
		`SELECT region_id, SUM(support_percentage) AS total FROM regional_support
		 WHERE game_id = ? GROUP BY region_id`,
		gameID)
	if err != nil {
		return nil, err
	}
	sums := make(map[int64]float64, len(rows))
	for _, r := range rows {
		sums[r.RegionID] = r.Total
	}
	return sums, nil
}

// SetSupport writes one support value.
func (db *DB) SetSupport(gameID, playerID, regionID int64, v float64) error {
	_, err := db.conn.Exec(
		`UPDATE regional_support SET support_percentage = ?
		 WHERE game_id = ? AND player_id = ? AND region_id = ?`,
		v, gameID, playerID, regionID)
	return err
}

// SetSupports writes a batch of support values in one transaction. Global
// campaigns touch every region; this keeps that a single round trip.
func (db *DB) SetSupports(rows []game.SupportRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(
		`UPDATE regional_support SET support_percentage = ?
		 WHERE game_id = ? AND player_id = ? AND region_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Support, r.GameID, r.PlayerID, r.RegionID); err != nil {
			return fmt.Errorf("update support (%d,%d,%d): %w", r.GameID, r.PlayerID, r.RegionID, err)
		}
	}
	return tx.Commit()
}

// ActiveSkills returns a player's running skill effects.
func (db *DB) ActiveSkills(gameID, playerID int64) ([]game.ActiveSkill, error) {
	var skills []game.ActiveSkill
	err := db.conn.Select(&skills,
		`SELECT id, game_id, player_id, action_id, turns_remaining, effect_data
		 FROM active_skills WHERE game_id = ? AND player_id = ?`,
		gameID, playerID)
	return skills, err
}

// AddSkill inserts a running skill effect.
func (db *DB) AddSkill(s *game.ActiveSkill) error {
	res, err := db.conn.Exec(
		`INSERT INTO active_skills (game_id, player_id, action_id, turns_remaining, effect_data)
		 VALUES (?, ?, ?, ?, ?)`,
		s.GameID, s.PlayerID, s.ActionID, s.TurnsRemaining, s.EffectData)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

// TickSkills decrements all of a game's skill counters and removes the
// expired ones.
func (db *DB) TickSkills(gameID int64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE active_skills SET turns_remaining = turns_remaining - 1 WHERE game_id = ? AND turns_remaining > 0",
		gameID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"DELETE FROM active_skills WHERE game_id = ? AND turns_remaining <= 0", gameID,
	); err != nil {
		return err
	}
	return tx.Commit()
}
