package engine

import (
	"math"
	"testing"

	"github.com/nuredin-kurtovic/Outvoted/internal/config"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

func TestFatigueSequence(t *testing.T) {
	want := []float64{1.0, 1.0, 0.7, 0.49, 0.343, 0.3, 0.3}
	for prior, w := range want {
		got := fatigueMultiplier(prior)
		if math.Abs(got-w) > 1e-9 {
			t.Errorf("fatigueMultiplier(%d) = %v, want %v", prior, got, w)
		}
	}
	// Monotone non-increasing under repetition.
	prev := 1.0
	for prior := 0; prior < 12; prior++ {
		got := fatigueMultiplier(prior)
		if got > prev {
			t.Fatalf("fatigue increased at %d uses: %v > %v", prior, got, prev)
		}
		prev = got
	}
}

func TestApplyGainBounds(t *testing.T) {
	tests := []struct {
		name                 string
		current, gain, floor float64
		wantNext, wantActual float64
	}{
		{"plain gain", 0.30, 0.05, 0.02, 0.35, 0.05},
		{"capped at max", 0.90, 0.10, 0.02, 0.95, 0.05},
		{"at cap already", 0.95, 0.10, 0.02, 0.95, 0},
		{"floor lifts tiny support", 0.01, 0.0, 0.05, 0.05, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, actual := applyGain(tt.current, tt.gain, tt.floor)
			if math.Abs(next-tt.wantNext) > 1e-12 || math.Abs(actual-tt.wantActual) > 1e-12 {
				t.Fatalf("applyGain = (%v, %v), want (%v, %v)", next, actual, tt.wantNext, tt.wantActual)
			}
		})
	}
}

func TestPassiveShiftBands(t *testing.T) {
	tests := []struct {
		coefficient, want float64
	}{
		{0.85, 0.02},
		{0.80, 0.02},
		{0.79, 0.01},
		{0.50, 0.01},
		{0.35, 0},
		{0.25, -0.01},
		{0.16, -0.01},
		{0.15, -0.02},
		{0.05, -0.02},
	}
	for _, tt := range tests {
		if got := passiveShiftRate(tt.coefficient); got != tt.want {
			t.Errorf("passiveShiftRate(%v) = %v, want %v", tt.coefficient, got, tt.want)
		}
	}
}

func TestCharismaMultiplier(t *testing.T) {
	if got := charismaMultiplier(0); got != 1.0 {
		t.Fatalf("0 points = %v, want 1.0", got)
	}
	if got := charismaMultiplier(25); got != 1.25 {
		t.Fatalf("25 points = %v, want 1.25", got)
	}
}

func TestConflictHalvesReach(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, p2 := startTwoPlayerGame(t, e)

	// Even population so halved reach stays integral.
	regions, err := db.Regions()
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	var target refdata.Region
	for _, r := range regions {
		if r.Code == "POSAVINA" {
			target = r
		}
	}

	billboards := actionByName(t, db, "Billboards")
	out1, err := e.SubmitAction(g.ID, p1.ID, billboards.ID, []int64{target.ID})
	if err != nil {
		t.Fatalf("p1 submit: %v", err)
	}
	out2, err := e.SubmitAction(g.ID, p2.ID, billboards.ID, []int64{target.ID})
	if err != nil {
		t.Fatalf("p2 submit: %v", err)
	}

	r1 := out1.ActionResult.(*CampaignResult).Regions[0]
	r2 := out2.ActionResult.(*CampaignResult).Regions[0]
	if r1.Conflict {
		t.Fatal("first mover flagged as conflicted")
	}
	if !r2.Conflict {
		t.Fatal("second mover not flagged as conflicted")
	}
	if r2.Reached*2 != r1.Reached {
		t.Fatalf("reached %d vs %d, want exactly half", r2.Reached, r1.Reached)
	}
}

func TestGlobalReachScaling(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, _ := startTwoPlayerGame(t, e)

	social := actionByName(t, db, "Social Media")
	out, err := e.SubmitAction(g.ID, p1.ID, social.ID, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	res := out.ActionResult.(*CampaignResult)
	if !res.Global {
		t.Fatal("result not marked global")
	}

	regions, err := db.Regions()
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	if len(res.Regions) != len(regions) {
		t.Fatalf("touched %d regions, want %d", len(res.Regions), len(regions))
	}

	// With 16 regions the effective reach is reach/sqrt(16). The fixed
	// entropy source pins the random factor to exactly 1, and the player
	// has no charisma or fatigue on turn one.
	coeffs, err := db.CandidateCoefficients(p1.CandidateID)
	if err != nil {
		t.Fatalf("coefficients: %v", err)
	}
	effectiveReach := social.ReachCoefficient / math.Sqrt(float64(len(regions)))

	for i, r := range regions {
		eff := res.Regions[i]
		if eff.SkippedFull {
			continue
		}
		cells, err := db.RegionCells(r.ID)
		if err != nil {
			t.Fatalf("cells: %v", err)
		}
		wantGain := effectiveReach * refdata.WeightedAverage(cells, coeffs)
		if capped := maxSupport - eff.OldSupport; wantGain > capped {
			wantGain = capped
		}
		if math.Abs(eff.ActualGain-wantGain) > 1e-9 {
			t.Errorf("region %s gain = %v, want %v", r.Code, eff.ActualGain, wantGain)
		}
	}
}

func TestRegionFullRejectsLocal(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, p2 := startTwoPlayerGame(t, e)

	region := pickOpenRegion(t, db, g.ID)
	if err := db.SetSupport(g.ID, p1.ID, region.ID, 0.55); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetSupport(g.ID, p2.ID, region.ID, 0.45); err != nil {
		t.Fatalf("set: %v", err)
	}

	billboards := actionByName(t, db, "Billboards")
	player, _ := e.Player(p1.ID)
	_, err := e.executeCampaign(g, player, billboards, []int64{region.ID})
	if CodeOf(err) != CodeRegionFull {
		t.Fatalf("code = %v, want region_full", CodeOf(err))
	}

	// Global campaigns skip the saturated region instead of erroring.
	social := actionByName(t, db, "Social Media")
	res, err := e.executeCampaign(g, player, social, nil)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	var skipped bool
	for _, eff := range res.Regions {
		if eff.RegionID == region.ID {
			skipped = eff.SkippedFull && eff.NewSupport == eff.OldSupport
		}
	}
	if !skipped {
		t.Fatal("saturated region was not skipped by the global campaign")
	}
}

func TestLastWeekOnlyGate(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, _ := startTwoPlayerGame(t, e)
	player, _ := e.Player(p1.ID)

	bigRally := actionByName(t, db, "Big Rally")
	region := pickOpenRegion(t, db, g.ID)

	_, err := e.executeCampaign(g, player, bigRally, []int64{region.ID})
	if CodeOf(err) != CodeRuleViolation {
		t.Fatalf("early use: code = %v, want rule_violation", CodeOf(err))
	}

	g.CurrentTurn = g.MaxTurns - 1
	if _, err := e.executeCampaign(g, player, bigRally, []int64{region.ID}); err != nil {
		t.Fatalf("final week use: %v", err)
	}
}

func TestCampaignResourceChecks(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, _ := startTwoPlayerGame(t, e)
	player, _ := e.Player(p1.ID)
	region := pickOpenRegion(t, db, g.ID)

	billboards := actionByName(t, db, "Billboards")
	player.Budget = billboards.BaseCost - 1
	_, err := e.executeCampaign(g, player, billboards, []int64{region.ID})
	if CodeOf(err) != CodeInsufficientFunds {
		t.Fatalf("code = %v, want insufficient_funds", CodeOf(err))
	}

	tv := actionByName(t, db, "TV")
	player, _ = e.Player(p1.ID)
	_, err = e.executeCampaign(g, player, tv, nil)
	if CodeOf(err) != CodeInsufficientCharisma {
		t.Fatalf("code = %v, want insufficient_charisma", CodeOf(err))
	}

	_, err = e.executeCampaign(g, player, billboards, nil)
	if CodeOf(err) != CodeInvalidInput {
		t.Fatalf("no regions: code = %v, want invalid_input", CodeOf(err))
	}
}

func TestFullRegionDecay(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, p2 := startTwoPlayerGame(t, e)

	region := pickOpenRegion(t, db, g.ID)
	if err := db.SetSupport(g.ID, p1.ID, region.ID, 0.55); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetSupport(g.ID, p2.ID, region.ID, 0.45); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := e.applyFullRegionDecay(g.ID); err != nil {
		t.Fatalf("decay: %v", err)
	}

	v1, _, err := db.SupportValue(g.ID, p1.ID, region.ID)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	v2, _, err := db.SupportValue(g.ID, p2.ID, region.ID)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if math.Abs(v1-0.5225) > 1e-12 || math.Abs(v2-0.4275) > 1e-12 {
		t.Fatalf("decayed to (%v, %v), want (0.5225, 0.4275)", v1, v2)
	}
}

func TestFundraisingIncome(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, _ := startTwoPlayerGame(t, e)
	fundraiser := actionByName(t, db, "Local Fundraiser")

	// First two uses are fatigue-free; the third pays the repeat penalty.
	wantGains := []float64{30000, 30000, 21000}
	for i, want := range wantGains {
		player, err := e.Player(p1.ID)
		if err != nil {
			t.Fatalf("player: %v", err)
		}
		res, err := e.executeFundraising(g, player, fundraiser)
		if err != nil {
			t.Fatalf("use %d: %v", i+1, err)
		}
		if math.Abs(res.BudgetGain-want) > 1e-9 {
			t.Fatalf("use %d gain = %v, want %v", i+1, res.BudgetGain, want)
		}
		after, err := e.Player(p1.ID)
		if err != nil {
			t.Fatalf("player: %v", err)
		}
		if math.Abs(after.Budget-(player.Budget+want)) > 1e-9 {
			t.Fatalf("use %d budget = %v, want %v", i+1, after.Budget, player.Budget+want)
		}
	}
}

func TestOncePerGameFundraiser(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, _ := startTwoPlayerGame(t, e)
	gala := actionByName(t, db, "Diaspora Gala")

	player, _ := e.Player(p1.ID)
	if _, err := e.executeFundraising(g, player, gala); err != nil {
		t.Fatalf("first use: %v", err)
	}
	player, _ = e.Player(p1.ID)
	_, err := e.executeFundraising(g, player, gala)
	if CodeOf(err) != CodeRuleViolation {
		t.Fatalf("second use: code = %v, want rule_violation", CodeOf(err))
	}
}

func TestSkillActivationAndDiscount(t *testing.T) {
	e, db := newTestEngine(t, config.Default().Game)
	g, p1, _ := startTwoPlayerGame(t, e)

	discount := actionByName(t, db, "Door-to-Door Discount")
	player, _ := e.Player(p1.ID)
	if _, err := e.executeSkill(g, player, discount); CodeOf(err) != CodeInsufficientCharisma {
		t.Fatalf("broke activation: code = %v, want insufficient_charisma", CodeOf(err))
	}

	if err := db.AdjustCharisma(p1.ID, discount.CharismaCost); err != nil {
		t.Fatalf("grant: %v", err)
	}
	player, _ = e.Player(p1.ID)
	res, err := e.executeSkill(g, player, discount)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !res.Activated || res.Duration != 3 {
		t.Fatalf("unexpected skill result: %+v", res)
	}

	skills, err := db.ActiveSkills(g.ID, p1.ID)
	if err != nil {
		t.Fatalf("skills: %v", err)
	}
	if len(skills) != 1 {
		t.Fatalf("active skills = %d, want 1", len(skills))
	}

	// Door to Door now costs 30% less.
	door := actionByName(t, db, "Door to Door")
	region := pickOpenRegion(t, db, g.ID)
	player, _ = e.Player(p1.ID)
	campaign, err := e.executeCampaign(g, player, door, []int64{region.ID})
	if err != nil {
		t.Fatalf("campaign: %v", err)
	}
	wantCost := door.BaseCost * 0.7
	if math.Abs(campaign.Cost-wantCost) > 1e-9 {
		t.Fatalf("discounted cost = %v, want %v", campaign.Cost, wantCost)
	}
}
