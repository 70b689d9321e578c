package engine

import (
	"math"
	"sort"

	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
)

// Election turnout bounds.
const (
	turnoutMin = 0.50
	turnoutMax = 0.60
)

// electionNoise bounds the per-player support perturbation at the ballot box.
const electionNoise = 0.02

// ElectionOutcome is the full result of the terminal election.
type ElectionOutcome struct {
	TotalVoters int64
	Turnout     float64
	Results     []game.ElectionResult
	Winner      game.ElectionResult
}

// RunElection converts final national support into votes: a random turnout
// draw sizes the electorate, each player's support gets a small noise
// perturbation, shares are normalized, and floor-rounding shortfall goes to
// the leader. Ties break to the lowest player id.
func (e *Engine) RunElection(gameID int64) (*ElectionOutcome, error) {
	players, err := e.db.ActivePlayers(gameID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, errRule("game %d has no active players to elect", gameID)
	}

	totalPop, err := e.db.TotalPopulation()
	if err != nil {
		return nil, err
	}
	if totalPop <= 0 {
		return nil, errRule("no modeled population")
	}

	turnout := entropy.Uniform(e.rng, turnoutMin, turnoutMax)
	totalVoters := int64(math.Floor(float64(totalPop) * turnout))

	type tally struct {
		player   *game.Player
		base     float64
		adjusted float64
	}
	tallies := make([]tally, len(players))
	var adjustedSum float64
	for i := range players {
		base, err := e.nationalSupport(gameID, players[i].ID)
		if err != nil {
			return nil, err
		}
		adj := math.Max(0.01, base+entropy.Uniform(e.rng, -electionNoise, electionNoise))
		tallies[i] = tally{player: &players[i], base: base, adjusted: adj}
		adjustedSum += adj
	}

	results := make([]game.ElectionResult, len(tallies))
	var castVotes int64
	for i, t := range tallies {
		share := 1.0 / float64(len(tallies))
		if adjustedSum > 0 {
			share = t.adjusted / adjustedSum
		}
		votes := int64(math.Floor(float64(totalVoters) * share))
		castVotes += votes
		results[i] = game.ElectionResult{
			GameID:            gameID,
			PlayerID:          t.player.ID,
			CandidateName:     t.player.CandidateName,
			Votes:             votes,
			VotePercentage:    share * 100,
			SupportPercentage: t.base,
		}
	}

	// Floor rounding loses a few votes; hand the remainder to the leader
	// so the cast total matches the electorate exactly.
	if diff := totalVoters - castVotes; diff != 0 {
		leader := 0
		for i := 1; i < len(results); i++ {
			if results[i].Votes > results[leader].Votes {
				leader = i
			}
		}
		results[leader].Votes += diff
		results[leader].VotePercentage = float64(results[leader].Votes) / float64(totalVoters) * 100
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].PlayerID < results[j].PlayerID
	})
	results[0].IsWinner = true

	for i := range results {
		if err := e.db.UpsertElectionResult(&results[i]); err != nil {
			return nil, err
		}
	}
	if err := e.db.SetElectionTurnout(gameID, turnout, totalVoters); err != nil {
		return nil, err
	}

	e.log.Info("election complete", "game", gameID,
		"winner", results[0].CandidateName, "votes", results[0].Votes,
		"turnout", turnout, "voters", totalVoters)

	return &ElectionOutcome{
		TotalVoters: totalVoters,
		Turnout:     turnout,
		Results:     results,
		Winner:      results[0],
	}, nil
}
