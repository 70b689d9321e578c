package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// SeedReference populates reference tables from a validated seed. A store
// that already has regions is left untouched.
func (db *DB) SeedReference(seed *refdata.Seed) error {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM regions"); err != nil {
		return fmt.Errorf("count regions: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	regionIDs := make(map[string]int64, len(seed.Regions))
	for _, sr := range seed.Regions {
		res, err := tx.Exec(
			`INSERT INTO regions (code, name, population, bosniak_pop, serb_pop, croat_pop, other_pop)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sr.Code, sr.Name, sr.Population, sr.BosniakPop, sr.SerbPop, sr.CroatPop, sr.OtherPop,
		)
		if err != nil {
			return fmt.Errorf("insert region %s: %w", sr.Code, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		regionIDs[sr.Code] = id

		region := refdata.Region{
			ID: id, Code: sr.Code, Name: sr.Name, Population: sr.Population,
			BosniakPop: sr.BosniakPop, SerbPop: sr.SerbPop, CroatPop: sr.CroatPop, OtherPop: sr.OtherPop,
		}
		for _, cell := range seed.Cells(region) {
			_, err := tx.Exec(
				`INSERT INTO region_demographics (region_id, ideology, ethnicity, population)
				 VALUES (?, ?, ?, ?)`,
				cell.RegionID, cell.Ideology, cell.Ethnicity, cell.Population,
			)
			if err != nil {
				return fmt.Errorf("insert cell %s/%s/%s: %w", sr.Code, cell.Ideology, cell.Ethnicity, err)
			}
		}
	}

	for _, sc := range seed.Candidates {
		res, err := tx.Exec(
			`INSERT INTO candidates (name, ethnicity, ideology, home_region_id, description)
			 VALUES (?, ?, ?, ?, ?)`,
			sc.Name, sc.Ethnicity, sc.Ideology, regionIDs[sc.HomeRegion], sc.Description,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", sc.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		coeffs := refdata.SeedCandidateCoefficients(refdata.Candidate{
			ID: id, Ethnicity: sc.Ethnicity, Ideology: sc.Ideology,
		})
		for key, coef := range coeffs {
			_, err := tx.Exec(
				`INSERT INTO candidate_coefficients (candidate_id, ideology, ethnicity, coefficient)
				 VALUES (?, ?, ?, ?)`,
				id, key.Ideology, key.Ethnicity, coef,
			)
			if err != nil {
				return fmt.Errorf("insert candidate coefficient: %w", err)
			}
		}
	}

	for _, sa := range seed.Actions {
		res, err := tx.Exec(
			`INSERT INTO actions (name, type, base_cost, base_support_gain, base_budget_gain, charisma_cost, reach_coefficient, rules)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sa.Name, sa.Type, sa.BaseCost, sa.BaseSupportGain, sa.BaseBudgetGain,
			sa.CharismaCost, sa.ReachCoefficient, refdata.MarshalRules(sa.Rules),
		)
		if err != nil {
			return fmt.Errorf("insert action %s: %w", sa.Name, err)
		}

		// Campaign actions get an explicit neutral coefficient per cell;
		// lookups still default to 1.0 for anything absent.
		if sa.Type == refdata.ActionCampaign {
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for _, eth := range refdata.Ethnicities {
				for _, ideo := range refdata.Ideologies {
					_, err := tx.Exec(
						`INSERT INTO action_coefficients (action_id, ideology, ethnicity, coefficient)
						 VALUES (?, ?, ?, ?)`,
						id, ideo, eth, refdata.DefaultActionCoefficient,
					)
					if err != nil {
						return fmt.Errorf("insert action coefficient: %w", err)
					}
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("reference data seeded",
		"regions", len(seed.Regions),
		"candidates", len(seed.Candidates),
		"actions", len(seed.Actions),
	)
	return nil
}

// Regions returns all regions ordered by id.
func (db *DB) Regions() ([]refdata.Region, error) {
	var regions []refdata.Region
	err := db.conn.Select(&regions,
		`SELECT id, code, name, population, bosniak_pop, serb_pop, croat_pop, other_pop
		 FROM regions ORDER BY id`)
	return regions, err
}

// RegionByID returns one region, or nil if it does not exist.
func (db *DB) RegionByID(id int64) (*refdata.Region, error) {
	var r refdata.Region
	err := db.conn.Get(&r,
		`SELECT id, code, name, population, bosniak_pop, serb_pop, croat_pop, other_pop
		 FROM regions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RegionCells returns the 20 demographic cells of one region.
func (db *DB) RegionCells(regionID int64) ([]refdata.DemographicCell, error) {
	var cells []refdata.DemographicCell
	err := db.conn.Select(&cells,
		`SELECT region_id, ideology, ethnicity, population
		 FROM region_demographics WHERE region_id = ?`, regionID)
	return cells, err
}

// AllCells returns every region's cells in one query, keyed by region id.
// Global campaigns read this instead of issuing one query per region.
func (db *DB) AllCells() (map[int64][]refdata.DemographicCell, error) {
	var cells []refdata.DemographicCell
	err := db.conn.Select(&cells,
		`SELECT region_id, ideology, ethnicity, population FROM region_demographics`)
	if err != nil {
		return nil, err
	}
	byRegion := make(map[int64][]refdata.DemographicCell)
	for _, c := range cells {
		byRegion[c.RegionID] = append(byRegion[c.RegionID], c)
	}
	return byRegion, nil
}

// TotalPopulation sums population across all regions.
func (db *DB) TotalPopulation() (int64, error) {
	var total sql.NullInt64
	err := db.conn.Get(&total, "SELECT SUM(population) FROM regions")
	return total.Int64, err
}

// EthnicPopulation sums one ethnic group's population across all regions.
func (db *DB) EthnicPopulation(e refdata.Ethnicity) (int64, error) {
	col := map[refdata.Ethnicity]string{
		refdata.EthBosniak: "bosniak_pop",
		refdata.EthSerb:    "serb_pop",
		refdata.EthCroat:   "croat_pop",
		refdata.EthOther:   "other_pop",
	}[e]
	if col == "" {
		col = "other_pop"
	}
	var total sql.NullInt64
	err := db.conn.Get(&total, "SELECT SUM("+col+") FROM regions")
	return total.Int64, err
}

// Candidates returns all candidates ordered by id.
func (db *DB) Candidates() ([]refdata.Candidate, error) {
	var cs []refdata.Candidate
	err := db.conn.Select(&cs,
		`SELECT id, name, ethnicity, ideology, home_region_id, description
		 FROM candidates ORDER BY id`)
	return cs, err
}

// CandidateByID returns one candidate, or nil if it does not exist.
func (db *DB) CandidateByID(id int64) (*refdata.Candidate, error) {
	var c refdata.Candidate
	err := db.conn.Get(&c,
		`SELECT id, name, ethnicity, ideology, home_region_id, description
		 FROM candidates WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Actions returns all action definitions ordered by type then name.
func (db *DB) Actions() ([]refdata.Action, error) {
	var as []refdata.Action
	err := db.conn.Select(&as,
		`SELECT id, name, type, base_cost, base_support_gain, base_budget_gain,
		        charisma_cost, reach_coefficient, rules
		 FROM actions ORDER BY type, name`)
	return as, err
}

// ActionByID returns one action, or nil if it does not exist.
func (db *DB) ActionByID(id int64) (*refdata.Action, error) {
	var a refdata.Action
	err := db.conn.Get(&a,
		`SELECT id, name, type, base_cost, base_support_gain, base_budget_gain,
		        charisma_cost, reach_coefficient, rules
		 FROM actions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type coefficientRow struct {
	Ideology    refdata.Ideology  `db:"ideology"`
	Ethnicity   refdata.Ethnicity `db:"ethnicity"`
	Coefficient float64           `db:"coefficient"`
}

// CandidateCoefficients returns a candidate's stored appeal table. Missing
// cells stay absent; callers resolve them through CoefficientTable.At.
func (db *DB) CandidateCoefficients(candidateID int64) (refdata.CoefficientTable, error) {
	var rows []coefficientRow
	err := db.conn.Select(&rows,
		`SELECT ideology, ethnicity, coefficient FROM candidate_coefficients WHERE candidate_id = ?`,
		candidateID)
	if err != nil {
		return nil, err
	}
	t := make(refdata.CoefficientTable, len(rows))
	for _, r := range rows {
		t[refdata.CellKey{Ideology: r.Ideology, Ethnicity: r.Ethnicity}] = r.Coefficient
	}
	return t, nil
}

// ActionCoefficients returns an action's stored effectiveness table.
func (db *DB) ActionCoefficients(actionID int64) (refdata.CoefficientTable, error) {
	var rows []coefficientRow
	err := db.conn.Select(&rows,
		`SELECT ideology, ethnicity, coefficient FROM action_coefficients WHERE action_id = ?`,
		actionID)
	if err != nil {
		return nil, err
	}
	t := make(refdata.CoefficientTable, len(rows))
	for _, r := range rows {
		t[refdata.CellKey{Ideology: r.Ideology, Ethnicity: r.Ethnicity}] = r.Coefficient
	}
	return t, nil
}
