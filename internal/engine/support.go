package engine

import (
	"math"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// startingBudget scales the base budget by the candidate's nationwide
// ethnic share: base * (0.7 + clamp(share, 0.1, 1.0)), rounded to a whole
// amount. A majority-group candidate starts noticeably richer than a
// minority one, but never below 80% of base.
func (e *Engine) startingBudget(eth refdata.Ethnicity) (float64, error) {
	total, err := e.db.TotalPopulation()
	if err != nil {
		return 0, err
	}
	ethnic, err := e.db.EthnicPopulation(eth)
	if err != nil {
		return 0, err
	}
	return startingBudgetAmount(float64(e.cfg.BaseBudget), ethnic, total), nil
}

func startingBudgetAmount(base float64, ethnicPop, totalPop int64) float64 {
	share := 0.0
	if totalPop > 0 {
		share = float64(ethnicPop) / float64(totalPop)
	}
	share = math.Min(1.0, math.Max(0.1, share))
	return math.Round(base * (0.7 + share))
}

// initializeSupport creates zeroed support rows for the player across all
// regions. Every candidate starts at 0%; support is earned through play.
func (e *Engine) initializeSupport(g *game.Game, p *game.Player) error {
	regions, err := e.db.Regions()
	if err != nil {
		return err
	}

	ids := make([]int64, len(regions))
	for i, r := range regions {
		ids[i] = r.ID
	}

	if err := e.db.InitSupport(g.ID, p.ID, ids); err != nil {
		return err
	}
	return e.db.SnapshotSupport(g.ID, 0)
}

// capRegionalSupport proportionally scales every player's support down in
// any region whose total exceeds 100%.
func (e *Engine) capRegionalSupport(gameID int64) error {
	rows, err := e.db.AllSupportRows(gameID)
	if err != nil {
		return err
	}

	sums := make(map[int64]float64)
	for _, r := range rows {
		sums[r.RegionID] += r.Support
	}

	var updates []game.SupportRow
	for _, r := range rows {
		if total := sums[r.RegionID]; total > 1.0 {
			r.Support /= total
			updates = append(updates, r)
		}
	}
	return e.db.SetSupports(updates)
}

// nationalSupport is the unweighted mean of a player's regional support.
// A player with no rows yet reads as the default 20%.
func (e *Engine) nationalSupport(gameID, playerID int64) (float64, error) {
	rows, err := e.db.PlayerSupports(gameID, playerID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return defaultNationalSupport, nil
	}
	var sum float64
	for _, r := range rows {
		sum += r.Support
	}
	return sum / float64(len(rows)), nil
}

// NationalSupport exposes the national mean for API callers.
func (e *Engine) NationalSupport(gameID, playerID int64) (float64, error) {
	return e.nationalSupport(gameID, playerID)
}

// regionFull reports whether a region's summed support leaves no room.
func regionFull(total float64) bool {
	return total >= 1.0-fullRegionEpsilon
}

// applyGain raises one support value by gain, never past the 95% cap and
// never below the many-player floor. It returns the new value and the gain
// actually realized.
func applyGain(current, gain, floor float64) (float64, float64) {
	actual := math.Min(gain, maxSupport-current)
	if actual < 0 {
		actual = 0
	}
	next := current + actual
	if next < floor {
		next = floor
	}
	if next > maxSupport {
		next = maxSupport
	}
	return next, actual
}

// charismaMultiplier converts charisma points into a gain multiplier.
func charismaMultiplier(points int) float64 {
	return 1 + float64(points)/100
}
