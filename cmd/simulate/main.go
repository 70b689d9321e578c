// Command simulate runs a headless all-AI match to completion and prints the
// standings and final election result. Useful for balance tuning and sanity
// checks after rule changes; the same seed replays the same match.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/nuredin-kurtovic/Outvoted/internal/ai"
	"github.com/nuredin-kurtovic/Outvoted/internal/config"
	"github.com/nuredin-kurtovic/Outvoted/internal/engine"
	"github.com/nuredin-kurtovic/Outvoted/internal/entropy"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/persistence"
	"github.com/nuredin-kurtovic/Outvoted/internal/refdata"
)

func main() {
	var (
		seed    = flag.Int64("seed", 42, "entropy seed; same seed, same match")
		players = flag.Int("players", 4, "number of AI candidates (2-6)")
		turns   = flag.Int("turns", 30, "campaign length in turns")
		dbPath  = flag.String("db", "", "sqlite path; empty uses a throwaway temp file")
		verbose = flag.Bool("v", false, "log every move")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	path := *dbPath
	if path == "" {
		dir, err := os.MkdirTemp("", "outvoted-sim-*")
		if err != nil {
			fatal("temp dir", err)
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "sim.db")
	}

	db, err := persistence.Open(path)
	if err != nil {
		fatal("open database", err)
	}
	defer db.Close()

	seedData, err := refdata.LoadSeed()
	if err != nil {
		fatal("load reference data", err)
	}
	if err := db.SeedReference(seedData); err != nil {
		fatal("seed reference data", err)
	}

	cfg := config.Default().Game
	cfg.MaxTurns = *turns
	cfg.MaxPlayers = *players
	rng := entropy.Seeded(*seed)
	eng := engine.New(db, rng, cfg, logger)
	eng.SetAIMover(ai.New(eng, rng, logger))

	g, err := eng.CreateGame(game.TypeAI, *players)
	if err != nil {
		fatal("create game", err)
	}
	for i := 0; i < *players; i++ {
		if _, err := eng.AddAIPlayer(g.ID); err != nil {
			fatal("add AI player", err)
		}
	}
	if err := eng.StartGame(g.ID); err != nil {
		fatal("start game", err)
	}

	fmt.Printf("simulating %d-candidate race over %d turns (seed %d)\n\n", *players, *turns, *seed)

	for turn := 1; ; turn++ {
		out, err := eng.PlayAITurns(g.ID)
		if err != nil {
			fatal(fmt.Sprintf("turn %d", turn), err)
		}
		printStandings(eng, db, g.ID, turn)
		if out.GameComplete {
			break
		}
	}

	g, err = eng.Game(g.ID)
	if err != nil {
		fatal("reload game", err)
	}
	results, err := db.ElectionResults(g.ID)
	if err != nil {
		fatal("election results", err)
	}

	fmt.Printf("\nELECTION DAY — turnout %.1f%%, %s votes cast\n",
		g.VoterTurnout*100, humanize.Comma(g.TotalVoters))
	for i, r := range results {
		marker := "  "
		if r.IsWinner {
			marker = "★ "
		}
		fmt.Printf("%s%d. %-24s %12s votes  (%.2f%%)\n",
			marker, i+1, r.CandidateName, humanize.Comma(r.Votes), r.VotePercentage)
	}
}

func printStandings(eng *engine.Engine, db *persistence.DB, gameID int64, turn int) {
	players, err := db.ActivePlayers(gameID)
	if err != nil {
		fatal("players", err)
	}
	fmt.Printf("turn %2d:", turn)
	for _, p := range players {
		nat, err := eng.NationalSupport(gameID, p.ID)
		if err != nil {
			fatal("national support", err)
		}
		fmt.Printf("  %s %4.1f%% (%s KM)",
			p.CandidateName, nat*100, humanize.CommafWithDigits(p.Budget, 0))
	}
	fmt.Println()
}

func fatal(what string, err error) {
	slog.Error(what, "error", err)
	os.Exit(1)
}
