package engine

import (
	"encoding/json"
	"math"

	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// RegionEffect describes what one campaign did to one region.
type RegionEffect struct {
	RegionID    int64   `json:"region_id"`
	RegionName  string  `json:"region_name"`
	OldSupport  float64 `json:"old_support"`
	NewSupport  float64 `json:"new_support"`
	ActualGain  float64 `json:"actual_gain"`
	Reached     int64   `json:"reached"`
	Conflict    bool    `json:"conflict,omitempty"`
	SkippedFull bool    `json:"skipped_full,omitempty"`
}

// CampaignResult is the outcome of one campaign action.
type CampaignResult struct {
	SupportGain float64        `json:"support_gain"`
	Cost        float64        `json:"cost"`
	Global      bool           `json:"global"`
	Regions     []RegionEffect `json:"regions"`
}

// campaignGain runs the per-cell support computation for one region: each
// demographic cell contributes reached population times the candidate's
// appeal, scaled by the stacked modifiers, and the total converts to a
// fraction of the region's population.
func campaignGain(
	region refdata.Region,
	cells []refdata.DemographicCell,
	coeffs, actionCoeffs refdata.CoefficientTable,
	reach, conflictMult, fatigue, charismaMod, tvBonus, randomFactor float64,
) (gain float64, reached int64) {
	var totalReached, totalSupport float64
	for _, c := range cells {
		r := float64(c.Population) * reach * conflictMult
		coef := coeffs.At(c.Key(), refdata.DefaultCandidateCoefficient)
		factor := actionCoeffs.At(c.Key(), refdata.DefaultActionCoefficient)
		totalReached += r
		totalSupport += r * coef * factor * fatigue * charismaMod * tvBonus * randomFactor
	}
	if region.Population <= 0 {
		return 0, int64(math.Round(totalReached))
	}
	return totalSupport / float64(region.Population), int64(math.Round(totalReached))
}

// executeCampaign resolves a campaign action against one or more regions,
// or the whole map for global-scope actions.
func (e *Engine) executeCampaign(g *game.Game, p *game.Player, action *refdata.Action, regionIDs []int64) (*CampaignResult, error) {
	rules := action.Rules()
	if rules.LastWeekOnly && !g.LastWeek() {
		return nil, errRule("%q is only available in the final week", action.Name)
	}

	global := rules.Global()
	targets := dedupeIDs(regionIDs)
	if !global && len(targets) == 0 {
		return nil, errInvalid("local campaign needs at least one target region")
	}

	sums, err := e.db.RegionSums(g.ID)
	if err != nil {
		return nil, err
	}
	if !global {
		for _, rid := range targets {
			if regionFull(sums[rid]) {
				return nil, errRegionFull(rid)
			}
		}
	}

	regionCount := 1
	if !global {
		regionCount = len(targets)
	}
	totalCost := action.BaseCost * float64(regionCount)
	if p.Budget < totalCost {
		return nil, errFunds(totalCost, p.Budget)
	}
	if action.CharismaCost > 0 && p.CharismaPoints < action.CharismaCost {
		return nil, errCharisma(action.CharismaCost, p.CharismaPoints)
	}

	playerCount, err := e.db.ActivePlayerCount(g.ID)
	if err != nil {
		return nil, err
	}
	floor := minSupport(playerCount)

	// Active skills can discount the cost or boost eligible actions.
	perRegionCost := action.BaseCost
	tvBonus := 1.0
	skills, err := e.db.ActiveSkills(g.ID, p.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range skills {
		sr := s.Rules()
		if sr.Effect == refdata.EffectDoorDiscount && rules.DoorDiscount {
			perRegionCost = action.BaseCost * (1 - sr.Discount)
		}
		if sr.Effect == refdata.EffectTVBonus && rules.TVEligible {
			tvBonus = 1 + sr.Bonus
		}
	}
	finalCost := perRegionCost * float64(regionCount)

	if err := e.db.AdjustBudget(p.ID, -finalCost); err != nil {
		return nil, err
	}
	if action.CharismaCost > 0 {
		if err := e.db.AdjustCharisma(p.ID, -action.CharismaCost); err != nil {
			return nil, err
		}
	}
	if err := e.db.AppendSpend(&game.SpendRecord{
		GameID:      g.ID,
		PlayerID:    p.ID,
		TurnNumber:  g.CurrentTurn,
		ActionID:    action.ID,
		Amount:      finalCost,
		Kind:        game.SpendSpent,
		Description: action.Name,
	}); err != nil {
		return nil, err
	}

	fatigue, err := e.actionFatigue(g.ID, p.ID, action.ID)
	if err != nil {
		return nil, err
	}
	charismaMod := charismaMultiplier(p.CharismaPoints)
	randomFactor := 1 + entropy.Uniform(e.rng, -campaignJitter, campaignJitter)

	coeffs, err := e.db.CandidateCoefficients(p.CandidateID)
	if err != nil {
		return nil, err
	}
	actionCoeffs, err := e.db.ActionCoefficients(action.ID)
	if err != nil {
		return nil, err
	}
	cells, err := e.db.AllCells()
	if err != nil {
		return nil, err
	}
	regions, err := e.db.Regions()
	if err != nil {
		return nil, err
	}
	regionByID := make(map[int64]refdata.Region, len(regions))
	for _, r := range regions {
		regionByID[r.ID] = r
	}

	supports, err := e.db.PlayerSupports(g.ID, p.ID)
	if err != nil {
		return nil, err
	}
	current := make(map[int64]float64, len(supports))
	for _, row := range supports {
		current[row.RegionID] = row.Support
	}

	res := &CampaignResult{Cost: finalCost, Global: global}

	if global {
		// Spread thin: scale reach down so countrywide exposure does not
		// dominate focused local work.
		effectiveReach := action.ReachCoefficient
		if len(regions) > 0 {
			effectiveReach /= math.Sqrt(float64(len(regions)))
		}

		before := meanSupport(current)
		var updates []game.SupportRow
		for _, r := range regions {
			old := current[r.ID]
			if regionFull(sums[r.ID]) {
				res.Regions = append(res.Regions, RegionEffect{
					RegionID: r.ID, RegionName: r.Name,
					OldSupport: old, NewSupport: old, SkippedFull: true,
				})
				continue
			}
			gain, reached := campaignGain(r, cells[r.ID], coeffs, actionCoeffs,
				effectiveReach, 1.0, fatigue, charismaMod, tvBonus, randomFactor)
			next, actual := applyGain(old, gain, floor)
			current[r.ID] = next
			updates = append(updates, game.SupportRow{
				GameID: g.ID, PlayerID: p.ID, RegionID: r.ID, Support: next,
			})
			res.Regions = append(res.Regions, RegionEffect{
				RegionID: r.ID, RegionName: r.Name,
				OldSupport: old, NewSupport: next, ActualGain: actual, Reached: reached,
			})
		}
		if err := e.db.SetSupports(updates); err != nil {
			return nil, err
		}
		res.SupportGain = meanSupport(current) - before

		effect, _ := json.Marshal(res)
		if err := e.db.AppendAction(&game.ActionRecord{
			GameID: g.ID, PlayerID: p.ID, TurnNumber: g.CurrentTurn,
			ActionID: action.ID, SpendingAmount: finalCost, EffectJSON: string(effect),
		}); err != nil {
			return nil, err
		}
		return res, nil
	}

	for _, rid := range targets {
		conflict, err := e.db.RegionHasRival(g.ID, p.ID, rid, g.CurrentTurn)
		if err != nil {
			return nil, err
		}
		conflictMult := 1.0
		if conflict {
			conflictMult = conflictPenalty
		}
		if err := e.db.RecordRegionActivity(g.ID, p.ID, rid, action.ID, g.CurrentTurn); err != nil {
			return nil, err
		}

		r := regionByID[rid]
		old := current[rid]
		gain, reached := campaignGain(r, cells[rid], coeffs, actionCoeffs,
			action.ReachCoefficient, conflictMult, fatigue, charismaMod, tvBonus, randomFactor)
		next, actual := applyGain(old, gain, floor)
		current[rid] = next
		if err := e.db.SetSupport(g.ID, p.ID, rid, next); err != nil {
			return nil, err
		}

		eff := RegionEffect{
			RegionID: rid, RegionName: r.Name,
			OldSupport: old, NewSupport: next, ActualGain: actual,
			Reached: reached, Conflict: conflict,
		}
		res.Regions = append(res.Regions, eff)
		res.SupportGain += actual

		effect, _ := json.Marshal(eff)
		if err := e.db.AppendAction(&game.ActionRecord{
			GameID: g.ID, PlayerID: p.ID, TurnNumber: g.CurrentTurn,
			ActionID: action.ID, RegionID: &rid,
			SpendingAmount: perRegionCost, EffectJSON: string(effect),
		}); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func meanSupport(byRegion map[int64]float64) float64 {
	if len(byRegion) == 0 {
		return defaultNationalSupport
	}
	var sum float64
	for _, v := range byRegion {
		sum += v
	}
	return sum / float64(len(byRegion))
}
