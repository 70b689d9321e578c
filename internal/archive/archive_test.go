package archive

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/nuredin-kurtovic/Outvoted/internal/config"
	"github.com/nuredin-kurtovic/Outvoted/internal/engine"
	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/persistence"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

// completedGame plays a one-turn match to completion so there is a full
// history to export.
func completedGame(t *testing.T) (*persistence.DB, int64) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seed, err := refdata.LoadSeed()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if err := db.SeedReference(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cfg := config.Game{MaxTurns: 1, MaxPlayers: 2, TurnDurationSec: 60, CharismaPerTurn: 5}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(db, entropy.Fixed(0.5), cfg, log)

	g, err := e.CreateGame(game.TypeAI, 2)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := e.AddAIPlayer(g.ID); err != nil {
			t.Fatalf("add ai: %v", err)
		}
	}
	if err := e.StartGame(g.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	out, err := e.TimeUp(g.ID)
	if err != nil {
		t.Fatalf("time up: %v", err)
	}
	if !out.GameComplete {
		t.Fatal("one-turn game did not complete")
	}
	return db, g.ID
}

func TestExportRoundTrip(t *testing.T) {
	db, gameID := completedGame(t)
	dir := t.TempDir()

	rec, path, err := Export(db, gameID, dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if rec.Header.ExportID == "" || rec.Header.Version != 1 {
		t.Fatalf("bad header: %+v", rec.Header)
	}
	if len(rec.Players) != 2 {
		t.Fatalf("expected 2 players in record, got %d", len(rec.Players))
	}
	if len(rec.Results) != 2 {
		t.Fatalf("expected 2 election results, got %d", len(rec.Results))
	}
	if len(rec.Support) == 0 {
		t.Fatal("expected support history in record")
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header.ExportID != rec.Header.ExportID ||
		got.Header.GameID != rec.Header.GameID ||
		got.Header.Version != rec.Header.Version ||
		!got.Header.CreatedAt.Equal(rec.Header.CreatedAt) {
		t.Errorf("header changed across round trip: %+v vs %+v", got.Header, rec.Header)
	}
	if got.Game == nil || got.Game.ID != gameID || got.Game.Status != game.StatusCompleted {
		t.Errorf("game record corrupted: %+v", got.Game)
	}
	if len(got.Players) != len(rec.Players) || len(got.Support) != len(rec.Support) {
		t.Errorf("history lengths changed: players %d/%d support %d/%d",
			len(got.Players), len(rec.Players), len(got.Support), len(rec.Support))
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.ExportID != rec.Header.ExportID || h.GameID != rec.Header.GameID ||
		!h.CreatedAt.Equal(rec.Header.CreatedAt) {
		t.Errorf("ReadHeader = %+v, want %+v", *h, rec.Header)
	}
}

func TestExportRejectsUnfinishedGame(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	seed, err := refdata.LoadSeed()
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if err := db.SeedReference(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	g := &game.Game{Status: game.StatusActive, GameType: game.TypeSingle,
		JoinCode: "ABC123", CurrentTurn: 3, MaxTurns: 30, MaxPlayers: 2, TurnDurationSec: 60}
	if err := db.CreateGame(g); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := Export(db, g.ID, t.TempDir()); err == nil {
		t.Fatal("expected export of an active game to fail")
	}
	if _, _, err := Export(db, 9999, t.TempDir()); err == nil {
		t.Fatal("expected export of a missing game to fail")
	}
}
