package engine

import (
	"math"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// PassiveShiftResult summarizes the organic drift applied to one player.
type PassiveShiftResult struct {
	RegionsShifted int     `json:"regions_shifted"`
	NationalBefore float64 `json:"national_before"`
	NationalAfter  float64 `json:"national_after"`
}

// passiveShiftRate maps a candidate's average appeal in a region onto a
// per-turn drift. Strong alignment grows organically, weak alignment bleeds,
// and the middle band is inert.
func passiveShiftRate(coefficient float64) float64 {
	switch {
	case coefficient >= 0.8:
		return 0.02
	case coefficient <= 0.15:
		return -0.02
	case coefficient >= 0.5:
		return 0.01
	case coefficient <= 0.25:
		return -0.01
	default:
		return 0
	}
}

// applyPassiveShift drifts one player's support in every region according
// to coefficient alignment, scaled down as the field gets more crowded.
func (e *Engine) applyPassiveShift(g *game.Game, p *game.Player) (*PassiveShiftResult, error) {
	playerCount, err := e.db.ActivePlayerCount(g.ID)
	if err != nil {
		return nil, err
	}
	if playerCount < 2 {
		playerCount = 2
	}
	floor := minSupport(playerCount)
	scale := math.Sqrt(float64(playerCount) / 2)

	regions, err := e.db.Regions()
	if err != nil {
		return nil, err
	}
	cells, err := e.db.AllCells()
	if err != nil {
		return nil, err
	}
	coeffs, err := e.db.CandidateCoefficients(p.CandidateID)
	if err != nil {
		return nil, err
	}
	supports, err := e.db.PlayerSupports(g.ID, p.ID)
	if err != nil {
		return nil, err
	}
	current := make(map[int64]float64, len(supports))
	for _, row := range supports {
		current[row.RegionID] = row.Support
	}

	res := &PassiveShiftResult{NationalBefore: meanSupport(current)}

	var updates []game.SupportRow
	for _, r := range regions {
		rate := passiveShiftRate(refdata.WeightedAverage(cells[r.ID], coeffs))
		if rate == 0 {
			continue
		}
		old, ok := current[r.ID]
		if !ok {
			continue
		}
		next := old + rate/scale
		next = math.Max(floor, math.Min(maxSupport, next))
		if next == old {
			continue
		}
		current[r.ID] = next
		updates = append(updates, game.SupportRow{
			GameID: g.ID, PlayerID: p.ID, RegionID: r.ID, Support: next,
		})
	}
	if err := e.db.SetSupports(updates); err != nil {
		return nil, err
	}

	res.RegionsShifted = len(updates)
	res.NationalAfter = meanSupport(current)
	if res.RegionsShifted > 0 {
		e.log.Debug("passive shift applied", "game", g.ID, "player", p.ID,
			"regions", res.RegionsShifted, "delta", res.NationalAfter-res.NationalBefore)
	}
	return res, nil
}

// applyFullRegionDecay shrinks every player's share in each saturated
// region. Runs once at the start of turn rollover.
func (e *Engine) applyFullRegionDecay(gameID int64) error {
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
		if !regionFull(sums[r.RegionID]) {
			continue
		}
		r.Support = math.Max(decayFloor, r.Support*decayFactor)
		updates = append(updates, r)
	}
	return e.db.SetSupports(updates)
}
