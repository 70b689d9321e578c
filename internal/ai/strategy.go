package ai

import (
	"math"
	"sort"

	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

type phase int

const (
	phaseEarly phase = iota
	phaseMid
	phaseLate
)

func gamePhase(current, max int) phase {
	pct := float64(current) / float64(max)
	switch {
	case pct < 0.35:
		return phaseEarly
	case pct < 0.7:
		return phaseMid
	default:
		return phaseLate
	}
}

// plannedMove is a fully resolved decision ready for execution.
type plannedMove struct {
	action    *refdata.Action
	regionIDs []int64
	reason    string
}

// planMove picks the turn's move: fundraise when the war chest is thin,
// otherwise campaign where it counts, with a skill purchase as the fallback
// when nothing else is playable.
func (o *Opponent) planMove(ctx *turnContext) (*plannedMove, error) {
	actions, err := o.eng.Store().Actions()
	if err != nil {
		return nil, err
	}

	kind, reason := o.pickStrategy(ctx, actions)
	if kind == refdata.ActionFundraising {
		pick, err := o.pickFundraiser(ctx, actions)
		if err != nil {
			return nil, err
		}
		if pick != nil {
			return &plannedMove{action: pick, reason: reason}, nil
		}
		// Nothing left to fundraise with; campaign instead.
	}

	ranked := rankTargets(ctx)
	affordable := o.affordableCampaigns(ctx, actions)
	if len(affordable) > 0 {
		chosen := o.chooseCampaign(ctx, affordable)
		if chosen != nil {
			if chosen.global {
				return &plannedMove{action: chosen.action, reason: reason}, nil
			}
			ids := o.pickRegionTargets(ctx, chosen.action, ranked)
			if len(ids) > 0 {
				return &plannedMove{action: chosen.action, regionIDs: ids, reason: reason}, nil
			}
			// Every region is saturated; fall back to an affordable
			// countrywide action if there is one.
			var globals []*refdata.Action
			for _, c := range affordable {
				if c.global {
					globals = append(globals, c.action)
				}
			}
			if len(globals) > 0 {
				n := len(globals)
				if n > 3 {
					n = 3
				}
				pick := globals[int(o.rng.Float()*float64(n))%n]
				return &plannedMove{action: pick, reason: "local_saturated"}, nil
			}
			return nil, nil
		}
	}

	for i := range actions {
		if actions[i].Type == refdata.ActionSkill {
			return &plannedMove{action: &actions[i], reason: "skill_fallback"}, nil
		}
	}
	return nil, nil
}

// pickStrategy decides between fundraising and campaigning for this turn.
func (o *Opponent) pickStrategy(ctx *turnContext, actions []refdata.Action) (refdata.ActionType, string) {
	budget := ctx.p.Budget
	ph := gamePhase(ctx.g.CurrentTurn, ctx.g.MaxTurns)

	minCost, avgCost := campaignCostStats(actions)
	if budget < minCost*0.8 {
		return refdata.ActionFundraising, "budget_critical"
	}

	// Cautious personalities build a bigger war chest before spending.
	threshold := 80000.0
	if ctx.pers.Aggressiveness < 0.5 {
		threshold += 30000
	}
	if ph == phaseEarly && budget < threshold && ctx.turnsLeft > 10 {
		return refdata.ActionFundraising, "early_build"
	}

	if ph == phaseLate && !ctx.leader && ctx.nationalGap > 0.05 {
		return refdata.ActionCampaign, "late_push"
	}

	runwayThreshold := 2.0
	if ctx.pers.Aggressiveness > 0.7 {
		runwayThreshold = 1.5
	}
	if budget/avgCost < runwayThreshold && ctx.turnsLeft > 3 && ph != phaseLate {
		return refdata.ActionFundraising, "runway_low"
	}

	return refdata.ActionCampaign, "default"
}

func campaignCostStats(actions []refdata.Action) (min, avg float64) {
	var sum float64
	var n int
	min = math.Inf(1)
	for _, a := range actions {
		if a.Type != refdata.ActionCampaign {
			continue
		}
		if a.BaseCost < min {
			min = a.BaseCost
		}
		sum += a.BaseCost
		n++
	}
	if n == 0 {
		return 50000, 50000
	}
	return min, sum / float64(n)
}

// pickFundraiser takes one of the top three earners, nudged by personality so
// different opponents don't all milk the same source.
func (o *Opponent) pickFundraiser(ctx *turnContext, actions []refdata.Action) (*refdata.Action, error) {
	db := o.eng.Store()
	var opts []refdata.Action
	for _, a := range actions {
		if a.Type != refdata.ActionFundraising {
			continue
		}
		if a.Rules().OncePerGame {
			used, err := db.ActionWasUsed(ctx.g.ID, ctx.p.ID, a.ID)
			if err != nil {
				return nil, err
			}
			if used {
				continue
			}
		}
		opts = append(opts, a)
	}
	if len(opts) == 0 {
		return nil, nil
	}
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].BaseBudgetGain > opts[j].BaseBudgetGain
	})

	top := len(opts)
	if top > 3 {
		top = 3
	}
	idx := (ctx.pers.ActionBias%top + int(o.rng.Float()*float64(top))) % top
	return &opts[idx], nil
}

// rankTargets orders campaignable regions by strategic value: close races and
// weak spots score high, safe strongholds score low, with a deterministic
// per-player bias so opponents spread across the map.
func rankTargets(ctx *turnContext) []regionView {
	out := make([]regionView, 0, len(ctx.regions))
	idx := 0
	for _, r := range ctx.regions {
		if r.full {
			continue
		}
		score := 0.0
		if r.swing {
			score += 40
		}
		if r.weak {
			score += 25
		}
		score += math.Min(15, float64(r.population)/500000*2)
		if r.leading {
			score -= 20
		}
		score += math.Max(-15, (0.20-r.margin)*50)
		bias := float64((ctx.p.ID*7+int64(idx))%100)/50 - 1
		score += bias * 12
		r.score = score
		out = append(out, r)
		idx++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// campaignChoice pairs a campaign action with its scope and planner score.
type campaignChoice struct {
	action *refdata.Action
	global bool
	score  float64
}

// affordableCampaigns filters campaign actions the player can pay for now,
// honoring the final-week gate.
func (o *Opponent) affordableCampaigns(ctx *turnContext, actions []refdata.Action) []campaignChoice {
	var out []campaignChoice
	for i := range actions {
		a := &actions[i]
		if a.Type != refdata.ActionCampaign || a.BaseCost > ctx.p.Budget {
			continue
		}
		rules := a.Rules()
		if rules.LastWeekOnly && !ctx.g.LastWeek() {
			continue
		}
		out = append(out, campaignChoice{action: a, global: rules.Global()})
	}
	return out
}

// chooseCampaign scores affordable campaigns by cost efficiency, biases the
// scores by phase and personality, and samples from the top five so equally
// matched opponents don't mirror each other.
func (o *Opponent) chooseCampaign(ctx *turnContext, choices []campaignChoice) *campaignChoice {
	if len(choices) == 0 {
		return nil
	}
	ph := gamePhase(ctx.g.CurrentTurn, ctx.g.MaxTurns)

	basePreferLocal := ph == phaseLate || (!ctx.leader && ctx.nationalGap > 0.03)
	basePreferGlobal := ph == phaseEarly || (ctx.leader && ctx.nationalGap < 0.05)
	preferLocal := basePreferLocal || ctx.pers.PreferLocal
	preferGlobal := basePreferGlobal || !ctx.pers.PreferLocal

	variance := 0.15*ctx.pers.RiskTolerance + 0.1*(o.rng.Float()-0.5)
	scored := make([]campaignChoice, len(choices))
	for i, c := range choices {
		cost := c.action.BaseCost
		if cost < 1000 {
			cost = 1000
		}
		score := c.action.BaseSupportGain / (cost / 10000)
		if c.global && preferGlobal {
			score *= 1.3
		}
		if !c.global && preferLocal {
			score *= 1.4
		}
		bonus := 0.0
		if ctx.pers.ActionBias == i%5 {
			bonus = 0.2
		}
		c.score = score * (1 + variance + bonus)
		scored[i] = c
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	top := len(scored)
	if top > 5 {
		top = 5
	}
	weights := make([]float64, top)
	var total float64
	for i := range weights {
		weights[i] = math.Pow(float64(top-i), 1.5)
		total += weights[i]
	}
	r := o.rng.Float() * total
	for i := 0; i < top; i++ {
		r -= weights[i]
		if r <= 0 {
			return &scored[i]
		}
	}
	return &scored[0]
}

// pickRegionTargets selects one to three regions for a local campaign,
// limited by what the budget covers and widened by aggressiveness.
func (o *Opponent) pickRegionTargets(ctx *turnContext, action *refdata.Action, ranked []regionView) []int64 {
	if len(ranked) == 0 {
		return nil
	}
	baseCost := action.BaseCost
	if baseCost <= 0 {
		baseCost = 15000
	}

	maxRegions := 1
	for n := 2; n <= 5; n++ {
		if ctx.p.Budget >= baseCost*float64(n) {
			maxRegions = n
		}
	}

	preferredMax := 3
	if gamePhase(ctx.g.CurrentTurn, ctx.g.MaxTurns) == phaseLate {
		preferredMax = 2
	}
	targetCount := maxRegions
	if preferredMax < targetCount {
		targetCount = preferredMax
	}
	if len(ranked) < targetCount {
		targetCount = len(ranked)
	}
	if maxRegions >= 2 && targetCount >= 2 {
		switch {
		case ctx.pers.Aggressiveness < 0.5:
			targetCount = 1
		case ctx.pers.Aggressiveness > 0.8 && maxRegions >= 3 && targetCount > 3:
			targetCount = 3
		}
	}
	if targetCount < 1 {
		targetCount = 1
	}

	limit := len(ranked)
	if limit > 8 {
		limit = 8
	}
	if targetCount > limit {
		targetCount = limit
	}
	ids := make([]int64, 0, targetCount)
	for _, r := range ranked[:targetCount] {
		ids = append(ids, r.id)
	}
	return ids
}
