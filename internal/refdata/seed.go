package refdata

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed is the parsed bundle of reference data used to populate an empty
// store. The ideology mix drives derivation of the 20 demographic cells
// from each region's four ethnic totals.
type Seed struct {
	IdeologyMix map[Ethnicity]map[Ideology]float64 `yaml:"ideology_mix"`
	Regions     []SeedRegion                       `yaml:"regions"`
	Candidates  []SeedCandidate                    `yaml:"candidates"`
	Actions     []SeedAction                       `yaml:"actions"`
}

type SeedRegion struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Population int64  `yaml:"population"`
	BosniakPop int64  `yaml:"bosniak_pop"`
	SerbPop    int64  `yaml:"serb_pop"`
	CroatPop   int64  `yaml:"croat_pop"`
	OtherPop   int64  `yaml:"other_pop"`
}

type SeedCandidate struct {
	Name        string         `yaml:"name"`
	Ethnicity   Ethnicity      `yaml:"ethnicity"`
	Ideology    CoarseIdeology `yaml:"ideology"`
	HomeRegion  string         `yaml:"home_region"`
	Description string         `yaml:"description"`
}

type SeedAction struct {
	Name             string      `yaml:"name"`
	Type             ActionType  `yaml:"type"`
	BaseCost         float64     `yaml:"base_cost"`
	BaseSupportGain  float64     `yaml:"base_support_gain"`
	BaseBudgetGain   float64     `yaml:"base_budget_gain"`
	CharismaCost     int         `yaml:"charisma_cost"`
	ReachCoefficient float64     `yaml:"reach_coefficient"`
	Rules            ActionRules `yaml:"rules"`
}

// LoadSeed parses and validates the embedded reference data.
func LoadSeed() (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(seedYAML, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return &s, nil
}

func (s *Seed) validate() error {
	if len(s.Regions) == 0 {
		return fmt.Errorf("no regions")
	}

	for _, e := range Ethnicities {
		mix, ok := s.IdeologyMix[e]
		if !ok {
			return fmt.Errorf("ideology mix missing ethnicity %q", e)
		}
		var sum float64
		for _, i := range Ideologies {
			w, ok := mix[i]
			if !ok {
				return fmt.Errorf("ideology mix for %q missing %q", e, i)
			}
			if w < 0 {
				return fmt.Errorf("negative mix weight for %q/%q", e, i)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > 1e-9 {
			return fmt.Errorf("ideology mix for %q sums to %v, want 1.0", e, sum)
		}
	}

	codes := make(map[string]bool, len(s.Regions))
	for _, r := range s.Regions {
		if codes[r.Code] {
			return fmt.Errorf("duplicate region code %q", r.Code)
		}
		codes[r.Code] = true
		if got := r.BosniakPop + r.SerbPop + r.CroatPop + r.OtherPop; got != r.Population {
			return fmt.Errorf("region %q: ethnic breakdown sums to %d, population is %d", r.Code, got, r.Population)
		}
	}

	for _, c := range s.Candidates {
		if !codes[c.HomeRegion] {
			return fmt.Errorf("candidate %q: unknown home region %q", c.Name, c.HomeRegion)
		}
	}

	for _, a := range s.Actions {
		switch a.Type {
		case ActionCampaign, ActionFundraising, ActionSkill:
		default:
			return fmt.Errorf("action %q: unknown type %q", a.Name, a.Type)
		}
		if err := ValidateRules(MarshalRules(a.Rules)); err != nil {
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
	}

	return nil
}

// Cells derives the 20 demographic cells for a region from its ethnic
// totals and the seed's ideology mix. Within each ethnicity the split uses
// largest-remainder apportionment so cell populations sum exactly to the
// ethnic total.
func (s *Seed) Cells(region Region) []DemographicCell {
	cells := make([]DemographicCell, 0, 20)
	for _, eth := range Ethnicities {
		pop := region.EthnicPop(eth)
		mix := s.IdeologyMix[eth]

		type share struct {
			ideo Ideology
			base int64
			frac float64
		}
		shares := make([]share, 0, len(Ideologies))
		var assigned int64
		for _, ideo := range Ideologies {
			exact := float64(pop) * mix[ideo]
			base := int64(math.Floor(exact))
			shares = append(shares, share{ideo: ideo, base: base, frac: exact - float64(base)})
			assigned += base
		}

		remainder := pop - assigned
		sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
		for i := int64(0); i < remainder; i++ {
			shares[i%int64(len(shares))].base++
		}

		// Restore canonical ideology order for stable output.
		byIdeo := make(map[Ideology]int64, len(shares))
		for _, sh := range shares {
			byIdeo[sh.ideo] = sh.base
		}
		for _, ideo := range Ideologies {
			cells = append(cells, DemographicCell{
				RegionID:   region.ID,
				Ideology:   ideo,
				Ethnicity:  eth,
				Population: byIdeo[ideo],
			})
		}
	}
	return cells
}
