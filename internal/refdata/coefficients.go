package refdata

// Coefficient defaults. Missing rows always resolve to these constants;
// the store never relies on SQL NULL-coalescing to supply them.
const (
	// DefaultCandidateCoefficient is a candidate's appeal to a demographic
	// cell with no stored coefficient row.
	DefaultCandidateCoefficient = 0.01

	// DefaultActionCoefficient is an action's effectiveness against a cell
	// with no stored coefficient row.
	DefaultActionCoefficient = 1.0
)

// CoefficientTable maps demographic cells to a coefficient. Tables are
// sparse: absent keys fall back to the default passed at lookup time.
type CoefficientTable map[CellKey]float64

// At returns the coefficient for a cell, or def when no row exists.
func (t CoefficientTable) At(k CellKey, def float64) float64 {
	if v, ok := t[k]; ok {
		return v
	}
	return def
}

// WeightedAverage computes the population-weighted mean coefficient across
// a region's cells. A region with zero population yields the candidate
// default, 0.01.
func WeightedAverage(cells []DemographicCell, coeffs CoefficientTable) float64 {
	var weighted float64
	var pop int64
	for _, c := range cells {
		weighted += coeffs.At(c.Key(), DefaultCandidateCoefficient) * float64(c.Population)
		pop += c.Population
	}
	if pop <= 0 {
		return DefaultCandidateCoefficient
	}
	return weighted / float64(pop)
}

// SeedCandidateCoefficients builds the 20-cell appeal table for a candidate
// from its ethnicity and coarse ideology: 0.90 for the candidate's own
// ethnicity and fine ideology, 0.50 for the rest of its ethnic group, 0.01
// everywhere else.
func SeedCandidateCoefficients(c Candidate) CoefficientTable {
	fine := FineIdeology(c.Ideology)
	t := make(CoefficientTable, 20)
	for _, eth := range Ethnicities {
		for _, ideo := range Ideologies {
			coef := 0.01
			if eth == c.Ethnicity {
				coef = 0.50
				if ideo == fine {
					coef = 0.90
				}
			}
			t[CellKey{Ideology: ideo, Ethnicity: eth}] = coef
		}
	}
	return t
}
