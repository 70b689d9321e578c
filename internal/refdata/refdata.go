// Package refdata defines the reference data the simulation consumes:
// regions with their demographic cells, candidates with appeal coefficients,
// and action definitions. The engine treats everything here as immutable
// during a game; editing happens out of band.
package refdata

// Ethnicity is one of the four modeled ethnic groups.
type Ethnicity string

const (
	EthBosniak Ethnicity = "Bosniak"
	EthSerb    Ethnicity = "Serb"
	EthCroat   Ethnicity = "Croat"
	EthOther   Ethnicity = "Other"
)

// Ethnicities lists all groups in canonical order.
var Ethnicities = [4]Ethnicity{EthBosniak, EthSerb, EthCroat, EthOther}

// Ideology is one of the five fine-grained ideology labels used for
// demographic cells and coefficients.
type Ideology string

const (
	IdeoSocialistNationalist    Ideology = "Socialist Nationalist"
	IdeoLiberalReformist        Ideology = "Liberal Reformist"
	IdeoNationalistConservative Ideology = "Nationalist Conservative"
	IdeoCivicUnitary            Ideology = "Civic Unitary"
	IdeoPopulistAntiSystem      Ideology = "Populist Anti-System"
)

// Ideologies lists all fine ideologies in canonical order.
var Ideologies = [5]Ideology{
	IdeoSocialistNationalist,
	IdeoLiberalReformist,
	IdeoNationalistConservative,
	IdeoCivicUnitary,
	IdeoPopulistAntiSystem,
}

// CoarseIdeology is the three-value label candidates carry. It is used only
// for seeding coefficients, never in cell math.
type CoarseIdeology string

const (
	CoarseConservative CoarseIdeology = "Conservative"
	CoarseLiberal      CoarseIdeology = "Liberal"
	CoarseSocialist    CoarseIdeology = "Socialist"
)

// FineIdeology maps a candidate's coarse label onto the fine ideology used
// when seeding that candidate's coefficient table.
func FineIdeology(c CoarseIdeology) Ideology {
	switch c {
	case CoarseConservative:
		return IdeoNationalistConservative
	case CoarseLiberal:
		return IdeoLiberalReformist
	case CoarseSocialist:
		return IdeoSocialistNationalist
	}
	return IdeoNationalistConservative
}

// CellKey identifies one of the 20 demographic cells of a region.
type CellKey struct {
	Ideology  Ideology
	Ethnicity Ethnicity
}

// Region is a top-level geographic unit.
type Region struct {
	ID         int64  `db:"id" json:"id"`
	Code       string `db:"code" json:"code"`
	Name       string `db:"name" json:"name"`
	Population int64  `db:"population" json:"population"`
	BosniakPop int64  `db:"bosniak_pop" json:"bosniak_pop"`
	SerbPop    int64  `db:"serb_pop" json:"serb_pop"`
	CroatPop   int64  `db:"croat_pop" json:"croat_pop"`
	OtherPop   int64  `db:"other_pop" json:"other_pop"`
}

// EthnicPop returns the region's population for one ethnic group.
func (r Region) EthnicPop(e Ethnicity) int64 {
	switch e {
	case EthBosniak:
		return r.BosniakPop
	case EthSerb:
		return r.SerbPop
	case EthCroat:
		return r.CroatPop
	default:
		return r.OtherPop
	}
}

// DemographicCell is one (ideology, ethnicity) slice of a region's population.
type DemographicCell struct {
	RegionID   int64     `db:"region_id"`
	Ideology   Ideology  `db:"ideology"`
	Ethnicity  Ethnicity `db:"ethnicity"`
	Population int64     `db:"population"`
}

// Key returns the cell's coefficient lookup key.
func (c DemographicCell) Key() CellKey {
	return CellKey{Ideology: c.Ideology, Ethnicity: c.Ethnicity}
}

// Candidate is a templated political persona players instantiate in games.
type Candidate struct {
	ID           int64          `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Ethnicity    Ethnicity      `db:"ethnicity" json:"ethnicity"`
	Ideology     CoarseIdeology `db:"ideology" json:"ideology"`
	HomeRegionID int64          `db:"home_region_id" json:"home_region_id"`
	Description  string         `db:"description" json:"description"`
}

// ActionType classifies how an action executes.
type ActionType string

const (
	ActionCampaign    ActionType = "campaign"
	ActionFundraising ActionType = "fundraising"
	ActionSkill       ActionType = "skill"
)

// Action is a playable move definition.
type Action struct {
	ID               int64      `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Type             ActionType `db:"type" json:"type"`
	BaseCost         float64    `db:"base_cost" json:"base_cost"`
	BaseSupportGain  float64    `db:"base_support_gain" json:"base_support_gain"`
	BaseBudgetGain   float64    `db:"base_budget_gain" json:"base_budget_gain"`
	CharismaCost     int        `db:"charisma_cost" json:"charisma_cost"`
	ReachCoefficient float64    `db:"reach_coefficient" json:"reach_coefficient"`
	RulesJSON        string     `db:"rules" json:"rules"`
}

// Rules parses the action's rules blob. A malformed or empty blob yields
// zero-value rules, matching the forgiving behavior the game relies on.
func (a Action) Rules() ActionRules {
	r, _ := ParseRules(a.RulesJSON)
	return r
}
