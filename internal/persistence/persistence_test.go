package persistence

import (
	"path/filepath"
	"testing"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seededTestDB(t *testing.T) *DB {
	t.Helper()
	db := openTestDB(t)
	seed, err := refdata.LoadSeed()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if err := db.SeedReference(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func TestSeedReferenceIdempotent(t *testing.T) {
	db := seededTestDB(t)

	seed, err := refdata.LoadSeed()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	// Second pass must not duplicate rows.
	if err := db.SeedReference(seed); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	regions, err := db.Regions()
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	if len(regions) != 16 {
		t.Fatalf("regions = %d, want 16", len(regions))
	}
	candidates, err := db.Candidates()
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(candidates) != 12 {
		t.Fatalf("candidates = %d, want 12", len(candidates))
	}
}

func TestRegionCellsSumToPopulation(t *testing.T) {
	db := seededTestDB(t)

	regions, err := db.Regions()
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	for _, r := range regions {
		cells, err := db.RegionCells(r.ID)
		if err != nil {
			t.Fatalf("cells for %s: %v", r.Code, err)
		}
		var total int64
		for _, c := range cells {
			total += c.Population
		}
		if total != r.Population {
			t.Errorf("%s: cell total %d != population %d", r.Code, total, r.Population)
		}
	}
}

func TestCandidateCoefficientsSeeded(t *testing.T) {
	db := seededTestDB(t)

	candidates, err := db.Candidates()
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	c := candidates[0]
	table, err := db.CandidateCoefficients(c.ID)
	if err != nil {
		t.Fatalf("coefficients: %v", err)
	}
	if len(table) != len(refdata.Ideologies)*len(refdata.Ethnicities) {
		t.Fatalf("coefficient rows = %d, want %d", len(table), len(refdata.Ideologies)*len(refdata.Ethnicities))
	}

	fine := refdata.FineIdeology(c.Ideology)
	own := table.At(refdata.CellKey{Ideology: fine, Ethnicity: c.Ethnicity}, 0)
	if own != 0.90 {
		t.Errorf("own-cell coefficient = %v, want 0.90", own)
	}
}

func createTestGame(t *testing.T, db *DB) (*game.Game, *game.Player) {
	t.Helper()
	g := &game.Game{
		Status:          game.StatusActive,
		GameType:        game.TypeSingle,
		JoinCode:        "ABC123",
		CurrentTurn:     1,
		MaxTurns:        30,
		MaxPlayers:      2,
		TurnDurationSec: 60,
	}
	if err := db.CreateGame(g); err != nil {
		t.Fatalf("create game: %v", err)
	}

	candidates, err := db.Candidates()
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	c := candidates[0]
	p := &game.Player{
		GameID:        g.ID,
		CandidateID:   c.ID,
		CandidateName: c.Name,
		Ethnicity:     c.Ethnicity,
		Ideology:      c.Ideology,
		HomeRegionID:  c.HomeRegionID,
		Budget:        1_000_000,
		TurnOrder:     1,
		IsActive:      true,
	}
	if err := db.CreatePlayer(p); err != nil {
		t.Fatalf("create player: %v", err)
	}
	return g, p
}

func TestGameRoundTrip(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	got, err := db.GameByID(g.ID)
	if err != nil {
		t.Fatalf("game by id: %v", err)
	}
	if got == nil || got.JoinCode != "ABC123" || got.MaxTurns != 30 {
		t.Fatalf("unexpected game: %+v", got)
	}

	gp, err := db.PlayerByID(p.ID)
	if err != nil {
		t.Fatalf("player by id: %v", err)
	}
	if gp == nil || gp.Budget != 1_000_000 || gp.IsAI {
		t.Fatalf("unexpected player: %+v", gp)
	}

	missing, err := db.GameByID(9999)
	if err != nil {
		t.Fatalf("missing game: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing game, got %+v", missing)
	}
}

func TestCandidateUniquePerGame(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	dup := *p
	dup.ID = 0
	if err := db.CreatePlayer(&dup); err == nil {
		t.Fatal("expected unique constraint error for duplicate candidate")
	}

	taken, err := db.CandidateTaken(g.ID, p.CandidateID)
	if err != nil {
		t.Fatalf("candidate taken: %v", err)
	}
	if !taken {
		t.Fatal("candidate should be taken")
	}
}

func TestSupportLifecycle(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	regions, err := db.Regions()
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	ids := make([]int64, len(regions))
	for i, r := range regions {
		ids[i] = r.ID
	}
	if err := db.InitSupport(g.ID, p.ID, ids); err != nil {
		t.Fatalf("init support: %v", err)
	}

	rows, err := db.PlayerSupports(g.ID, p.ID)
	if err != nil {
		t.Fatalf("player supports: %v", err)
	}
	if len(rows) != len(regions) {
		t.Fatalf("support rows = %d, want %d", len(rows), len(regions))
	}

	rows[0].Support = 0.25
	rows[1].Support = 0.40
	if err := db.SetSupports(rows[:2]); err != nil {
		t.Fatalf("set supports: %v", err)
	}

	v, ok, err := db.SupportValue(g.ID, p.ID, rows[0].RegionID)
	if err != nil || !ok {
		t.Fatalf("support value: v=%v ok=%v err=%v", v, ok, err)
	}
	if v != 0.25 {
		t.Fatalf("support = %v, want 0.25", v)
	}

	sums, err := db.RegionSums(g.ID)
	if err != nil {
		t.Fatalf("region sums: %v", err)
	}
	if sums[rows[1].RegionID] != 0.40 {
		t.Fatalf("region sum = %v, want 0.40", sums[rows[1].RegionID])
	}

	// Turn-0 snapshot was written alongside the live rows.
	snaps, err := db.SupportHistory(g.ID)
	if err != nil {
		t.Fatalf("support history: %v", err)
	}
	if len(snaps) != len(regions) {
		t.Fatalf("snapshots = %d, want %d", len(snaps), len(regions))
	}
	if snaps[0].TurnNumber != 0 {
		t.Fatalf("snapshot turn = %d, want 0", snaps[0].TurnNumber)
	}
}

func TestSnapshotOverwrite(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	if err := db.InitSupport(g.ID, p.ID, []int64{1, 2}); err != nil {
		t.Fatalf("init support: %v", err)
	}
	if err := db.SetSupport(g.ID, p.ID, 1, 0.3); err != nil {
		t.Fatalf("set support: %v", err)
	}
	if err := db.SnapshotSupport(g.ID, 2); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := db.SetSupport(g.ID, p.ID, 1, 0.5); err != nil {
		t.Fatalf("set support: %v", err)
	}
	// Re-snapshotting the same turn replaces, not duplicates.
	if err := db.SnapshotSupport(g.ID, 2); err != nil {
		t.Fatalf("re-snapshot: %v", err)
	}

	snaps, err := db.SupportHistory(g.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var turn2 []game.SupportSnapshot
	for _, s := range snaps {
		if s.TurnNumber == 2 {
			turn2 = append(turn2, s)
		}
	}
	if len(turn2) != 2 {
		t.Fatalf("turn-2 snapshots = %d, want 2", len(turn2))
	}
	for _, s := range turn2 {
		if s.RegionID == 1 && s.Support != 0.5 {
			t.Fatalf("snapshot support = %v, want 0.5", s.Support)
		}
	}
}

func TestSkillTicking(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	s := &game.ActiveSkill{
		GameID:         g.ID,
		PlayerID:       p.ID,
		ActionID:       1,
		TurnsRemaining: 2,
		EffectData:     `{"effect":"tv_bonus","bonus":0.25}`,
	}
	if err := db.AddSkill(s); err != nil {
		t.Fatalf("add skill: %v", err)
	}

	if err := db.TickSkills(g.ID); err != nil {
		t.Fatalf("tick: %v", err)
	}
	skills, err := db.ActiveSkills(g.ID, p.ID)
	if err != nil {
		t.Fatalf("active skills: %v", err)
	}
	if len(skills) != 1 || skills[0].TurnsRemaining != 1 {
		t.Fatalf("after first tick: %+v", skills)
	}

	if err := db.TickSkills(g.ID); err != nil {
		t.Fatalf("tick: %v", err)
	}
	skills, err = db.ActiveSkills(g.ID, p.ID)
	if err != nil {
		t.Fatalf("active skills: %v", err)
	}
	if len(skills) != 0 {
		t.Fatalf("skill should be expired, got %+v", skills)
	}
}

func TestTurnCompletionsAndConflicts(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	done, err := db.HasCompleted(g.ID, p.ID, 1)
	if err != nil {
		t.Fatalf("has completed: %v", err)
	}
	if done {
		t.Fatal("should not be completed yet")
	}
	if err := db.RecordCompletion(g.ID, p.ID, 1); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	// Idempotent.
	if err := db.RecordCompletion(g.ID, p.ID, 1); err != nil {
		t.Fatalf("re-record completion: %v", err)
	}
	done, err = db.HasCompleted(g.ID, p.ID, 1)
	if err != nil || !done {
		t.Fatalf("completed = %v, err = %v", done, err)
	}

	// Clearing is scoped by turn: turn 1 marks survive a turn 2 clear.
	if err := db.RecordCompletion(g.ID, p.ID, 2); err != nil {
		t.Fatalf("record turn 2 completion: %v", err)
	}
	if err := db.ClearCompletions(g.ID, 2); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ids, err := db.CompletedPlayerIDs(g.ID, 2)
	if err != nil {
		t.Fatalf("completed ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("turn 2 completions remain after clear: %v", ids)
	}
	ids, err = db.CompletedPlayerIDs(g.ID, 1)
	if err != nil {
		t.Fatalf("completed ids: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("turn 1 completions lost by scoped clear: %v", ids)
	}

	if err := db.RecordRegionActivity(g.ID, p.ID, 3, 1, 1); err != nil {
		t.Fatalf("record activity: %v", err)
	}
	rival, err := db.RegionHasRival(g.ID, p.ID, 3, 1)
	if err != nil {
		t.Fatalf("rival: %v", err)
	}
	if rival {
		t.Fatal("own activity must not count as a rival")
	}
	rival, err = db.RegionHasRival(g.ID, p.ID+1, 3, 1)
	if err != nil {
		t.Fatalf("rival: %v", err)
	}
	if !rival {
		t.Fatal("other player should see a rival in the region")
	}
}

func TestOncePerGameMarking(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	used, err := db.ActionWasUsed(g.ID, p.ID, 7)
	if err != nil {
		t.Fatalf("was used: %v", err)
	}
	if used {
		t.Fatal("action should start unused")
	}
	if err := db.MarkActionUsed(g.ID, p.ID, 7); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if err := db.MarkActionUsed(g.ID, p.ID, 7); err != nil {
		t.Fatalf("re-mark used: %v", err)
	}
	used, err = db.ActionWasUsed(g.ID, p.ID, 7)
	if err != nil || !used {
		t.Fatalf("used = %v, err = %v", used, err)
	}
}

func TestActionHistoryLookback(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	for _, turn := range []int{1, 2, 4, 5} {
		rec := &game.ActionRecord{
			GameID:         g.ID,
			PlayerID:       p.ID,
			ActionID:       2,
			TurnNumber:     turn,
			SpendingAmount: 40000,
			EffectJSON:     "{}",
		}
		if err := db.AppendAction(rec); err != nil {
			t.Fatalf("append action: %v", err)
		}
	}

	turns, err := db.LastActionTurns(g.ID, p.ID, 2, 3)
	if err != nil {
		t.Fatalf("last action turns: %v", err)
	}
	if len(turns) != 2 || turns[0] != 5 || turns[1] != 4 {
		t.Fatalf("turns = %v, want [5 4]", turns)
	}
}

func TestElectionResultUpsert(t *testing.T) {
	db := seededTestDB(t)
	g, p := createTestGame(t, db)

	r := &game.ElectionResult{
		GameID:            g.ID,
		PlayerID:          p.ID,
		CandidateName:     p.CandidateName,
		Votes:             123456,
		VotePercentage:    54.3,
		SupportPercentage: 0.543,
		IsWinner:          true,
	}
	if err := db.UpsertElectionResult(r); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	r.Votes = 200000
	r.IsWinner = false
	if err := db.UpsertElectionResult(r); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	results, err := db.ElectionResults(g.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Votes != 200000 || results[0].IsWinner {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}
