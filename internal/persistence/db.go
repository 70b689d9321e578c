// Package persistence provides SQLite-based game state storage behind a
// narrow read/write contract. The engine never composes SQL; everything it
// touches goes through the methods here, batched where an operation spans
// many rows.
package persistence

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path. Use ":memory:"
// for throwaway test stores.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One writer at a time; the request layer serializes mutations per game
	// and sqlite serializes the rest.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS regions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		population INTEGER NOT NULL,
		bosniak_pop INTEGER NOT NULL,
		serb_pop INTEGER NOT NULL,
		croat_pop INTEGER NOT NULL,
		other_pop INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS region_demographics (
		region_id INTEGER NOT NULL REFERENCES regions(id),
		ideology TEXT NOT NULL,
		ethnicity TEXT NOT NULL,
		population INTEGER NOT NULL,
		PRIMARY KEY (region_id, ideology, ethnicity)
	);

	CREATE TABLE IF NOT EXISTS candidates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		ethnicity TEXT NOT NULL,
		ideology TEXT NOT NULL,
		home_region_id INTEGER NOT NULL REFERENCES regions(id),
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS candidate_coefficients (
		candidate_id INTEGER NOT NULL REFERENCES candidates(id),
		ideology TEXT NOT NULL,
		ethnicity TEXT NOT NULL,
		coefficient REAL NOT NULL,
		PRIMARY KEY (candidate_id, ideology, ethnicity)
	);

	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		base_cost REAL NOT NULL DEFAULT 0,
		base_support_gain REAL NOT NULL DEFAULT 0,
		base_budget_gain REAL NOT NULL DEFAULT 0,
		charisma_cost INTEGER NOT NULL DEFAULT 0,
		reach_coefficient REAL NOT NULL DEFAULT 0.1,
		rules TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS action_coefficients (
		action_id INTEGER NOT NULL REFERENCES actions(id),
		ideology TEXT NOT NULL,
		ethnicity TEXT NOT NULL,
		coefficient REAL NOT NULL,
		PRIMARY KEY (action_id, ideology, ethnicity)
	);

	CREATE TABLE IF NOT EXISTS games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		status TEXT NOT NULL DEFAULT 'waiting',
		game_type TEXT NOT NULL DEFAULT 'single',
		join_code TEXT NOT NULL DEFAULT '',
		current_turn INTEGER NOT NULL DEFAULT 1,
		max_turns INTEGER NOT NULL DEFAULT 30,
		max_players INTEGER NOT NULL DEFAULT 2,
		turn_duration_sec INTEGER NOT NULL DEFAULT 60,
		voter_turnout REAL NOT NULL DEFAULT 0,
		total_voters INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS game_players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id INTEGER NOT NULL REFERENCES games(id),
		candidate_id INTEGER NOT NULL REFERENCES candidates(id),
		candidate_name TEXT NOT NULL,
		ethnicity TEXT NOT NULL,
		ideology TEXT NOT NULL,
		home_region_id INTEGER NOT NULL,
		budget REAL NOT NULL DEFAULT 0,
		charisma_points INTEGER NOT NULL DEFAULT 0,
		turn_order INTEGER NOT NULL DEFAULT 1,
		is_ai INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		UNIQUE (game_id, candidate_id)
	);

	CREATE TABLE IF NOT EXISTS regional_support (
		game_id INTEGER NOT NULL REFERENCES games(id),
		player_id INTEGER NOT NULL REFERENCES game_players(id),
		region_id INTEGER NOT NULL REFERENCES regions(id),
		support_percentage REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (game_id, player_id, region_id)
	);

	CREATE TABLE IF NOT EXISTS active_skills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		action_id INTEGER NOT NULL,
		turns_remaining INTEGER NOT NULL,
		effect_data TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS action_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		turn_number INTEGER NOT NULL,
		action_id INTEGER NOT NULL,
		region_id INTEGER,
		spending_amount REAL NOT NULL DEFAULT 0,
		effect_applied TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS spending_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		turn_number INTEGER NOT NULL,
		action_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS support_history (
		game_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		region_id INTEGER NOT NULL,
		turn_number INTEGER NOT NULL,
		support_percentage REAL NOT NULL,
		PRIMARY KEY (game_id, player_id, region_id, turn_number)
	);

	CREATE TABLE IF NOT EXISTS turn_completions (
		game_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		turn_number INTEGER NOT NULL,
		PRIMARY KEY (game_id, player_id, turn_number)
	);

	CREATE TABLE IF NOT EXISTS turn_region_activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id INTEGER NOT NULL,
		turn_number INTEGER NOT NULL,
		region_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		action_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS used_actions (
		game_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		action_id INTEGER NOT NULL,
		PRIMARY KEY (game_id, player_id, action_id)
	);

	CREATE TABLE IF NOT EXISTS election_results (
		game_id INTEGER NOT NULL,
		player_id INTEGER NOT NULL,
		candidate_name TEXT NOT NULL,
		votes INTEGER NOT NULL DEFAULT 0,
		vote_percentage REAL NOT NULL DEFAULT 0,
		support_percentage REAL NOT NULL DEFAULT 0,
		is_winner INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (game_id, player_id)
	);

	CREATE INDEX IF NOT EXISTS idx_support_game_region ON regional_support(game_id, region_id);
	CREATE INDEX IF NOT EXISTS idx_action_history_lookup ON action_history(game_id, player_id, action_id);
	CREATE INDEX IF NOT EXISTS idx_action_history_turn ON action_history(game_id, turn_number);
	CREATE INDEX IF NOT EXISTS idx_spending_turn ON spending_history(game_id, turn_number);
	CREATE INDEX IF NOT EXISTS idx_activity_lookup ON turn_region_activity(game_id, turn_number, region_id);
	CREATE INDEX IF NOT EXISTS idx_skills_player ON active_skills(game_id, player_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}
