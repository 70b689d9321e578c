// Package game defines the mutable per-game state records shared between
// the engine and the persistence layer.
package game

import "github.com/nuredin-kurtovic/Outvoted/internal/refdata"

// Status is the game lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Type distinguishes how opponents are supplied.
type Type string

const (
	TypeSingle      Type = "single"
	TypeAI          Type = "ai"
	TypeMultiplayer Type = "multiplayer"
)

// Game is one match.
type Game struct {
	ID              int64   `db:"id" json:"id"`
	Status          Status  `db:"status" json:"status"`
	GameType        Type    `db:"game_type" json:"game_type"`
	JoinCode        string  `db:"join_code" json:"join_code"`
	CurrentTurn     int     `db:"current_turn" json:"current_turn"`
	MaxTurns        int     `db:"max_turns" json:"max_turns"`
	MaxPlayers      int     `db:"max_players" json:"max_players"`
	TurnDurationSec int     `db:"turn_duration_sec" json:"turn_duration_sec"`
	VoterTurnout    float64 `db:"voter_turnout" json:"voter_turnout"`
	TotalVoters     int64   `db:"total_voters" json:"total_voters"`
}

// LastWeek reports whether the game is within one turn of its end, the
// window in which last-week-only actions unlock.
func (g *Game) LastWeek() bool {
	return g.CurrentTurn >= g.MaxTurns-1
}

// Player is one participant's instantiation of a candidate in a game.
// Ethnicity and ideology are denormalized from the candidate at creation.
// Players are never deleted, only marked inactive.
type Player struct {
	ID             int64                  `db:"id" json:"id"`
	GameID         int64                  `db:"game_id" json:"game_id"`
	CandidateID    int64                  `db:"candidate_id" json:"candidate_id"`
	CandidateName  string                 `db:"candidate_name" json:"candidate_name"`
	Ethnicity      refdata.Ethnicity      `db:"ethnicity" json:"ethnicity"`
	Ideology       refdata.CoarseIdeology `db:"ideology" json:"ideology"`
	HomeRegionID   int64                  `db:"home_region_id" json:"home_region_id"`
	Budget         float64                `db:"budget" json:"budget"`
	CharismaPoints int                    `db:"charisma_points" json:"charisma_points"`
	TurnOrder      int                    `db:"turn_order" json:"turn_order"`
	IsAI           bool                   `db:"is_ai" json:"is_ai"`
	IsActive       bool                   `db:"is_active" json:"is_active"`
}

// SupportRow is one player's support fraction in one region.
type SupportRow struct {
	GameID   int64   `db:"game_id" json:"game_id"`
	PlayerID int64   `db:"player_id" json:"player_id"`
	RegionID int64   `db:"region_id" json:"region_id"`
	Support  float64 `db:"support_percentage" json:"support_percentage"`
}

// ActiveSkill is a running skill effect, decremented each turn end.
type ActiveSkill struct {
	ID             int64  `db:"id" json:"id"`
	GameID         int64  `db:"game_id" json:"game_id"`
	PlayerID       int64  `db:"player_id" json:"player_id"`
	ActionID       int64  `db:"action_id" json:"action_id"`
	TurnsRemaining int    `db:"turns_remaining" json:"turns_remaining"`
	EffectData     string `db:"effect_data" json:"effect_data"`
}

// Rules decodes the skill's stored effect blob.
func (s ActiveSkill) Rules() refdata.ActionRules {
	r, _ := refdata.ParseRules(s.EffectData)
	return r
}

// ActionRecord is an append-only action-history entry. RegionID is nil for
// global and non-regional actions.
type ActionRecord struct {
	ID             int64   `db:"id" json:"id"`
	GameID         int64   `db:"game_id" json:"game_id"`
	PlayerID       int64   `db:"player_id" json:"player_id"`
	TurnNumber     int     `db:"turn_number" json:"turn_number"`
	ActionID       int64   `db:"action_id" json:"action_id"`
	RegionID       *int64  `db:"region_id" json:"region_id"`
	SpendingAmount float64 `db:"spending_amount" json:"spending_amount"`
	EffectJSON     string  `db:"effect_applied" json:"effect_applied"`
}

// SpendKind labels a spending-history entry.
type SpendKind string

const (
	SpendSpent  SpendKind = "spent"
	SpendEarned SpendKind = "earned"
)

// SpendRecord is an append-only budget movement entry.
type SpendRecord struct {
	ID          int64     `db:"id" json:"id"`
	GameID      int64     `db:"game_id" json:"game_id"`
	PlayerID    int64     `db:"player_id" json:"player_id"`
	TurnNumber  int       `db:"turn_number" json:"turn_number"`
	ActionID    int64     `db:"action_id" json:"action_id"`
	Amount      float64   `db:"amount" json:"amount"`
	Kind        SpendKind `db:"kind" json:"kind"`
	Description string    `db:"description" json:"description"`
}

// SupportSnapshot is one row of the per-turn support history.
type SupportSnapshot struct {
	GameID     int64   `db:"game_id" json:"game_id"`
	PlayerID   int64   `db:"player_id" json:"player_id"`
	RegionID   int64   `db:"region_id" json:"region_id"`
	TurnNumber int     `db:"turn_number" json:"turn_number"`
	Support    float64 `db:"support_percentage" json:"support_percentage"`
}

// ElectionResult is the terminal outcome for one player. Recomputation
// overwrites prior rows.
type ElectionResult struct {
	GameID            int64   `db:"game_id" json:"game_id"`
	PlayerID          int64   `db:"player_id" json:"player_id"`
	CandidateName     string  `db:"candidate_name" json:"candidate_name"`
	Votes             int64   `db:"votes" json:"votes"`
	VotePercentage    float64 `db:"vote_percentage" json:"vote_percentage"` // 0-100
	SupportPercentage float64 `db:"support_percentage" json:"support_percentage"` // 0-1
	IsWinner          bool    `db:"is_winner" json:"is_winner"`
}
