// Package api provides the HTTP surface for the campaign server.
// GET endpoints are public, read-only observation of games and reference
// data. Game-play POST endpoints are open, matching the lobby model where a
// join code is the only gate. Admin endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nuredin-kurtovic/Outvoted/internal/archive"
	"github.com/nuredin-kurtovic/Outvoted/internal/engine"
	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/persistence"
)

// Server serves games over HTTP.
type Server struct {
	Eng        *engine.Engine
	DB         *persistence.DB
	Timers     *TurnTimers
	Port       int
	AdminKey   string // Bearer token for admin endpoints. Empty = admin disabled.
	ArchiveDir string

	started time.Time
	httpSrv *http.Server
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Reference data (public).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)
	mux.HandleFunc("GET /api/v1/candidates", s.handleCandidates)
	mux.HandleFunc("GET /api/v1/actions", s.handleActions)

	// Game lifecycle and play.
	mux.HandleFunc("POST /api/v1/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/v1/games/{id}", s.handleGame)
	mux.HandleFunc("POST /api/v1/games/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/v1/games/{id}/ai", s.handleAddAI)
	mux.HandleFunc("POST /api/v1/games/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/v1/games/{id}/actions", s.handleSubmitAction)

	// Observation.
	mux.HandleFunc("GET /api/v1/games/{id}/support", s.handleSupport)
	mux.HandleFunc("GET /api/v1/games/{id}/summary", s.handleTurnSummary)
	mux.HandleFunc("GET /api/v1/games/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/games/{id}/results", s.handleResults)

	// Admin control plane (POST, bearer token).
	mux.HandleFunc("POST /api/v1/admin/games/{id}/timeup", s.adminOnly(s.handleTimeUp))
	mux.HandleFunc("POST /api/v1/admin/games/{id}/archive", s.adminOnly(s.handleArchive))

	return mux
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.started = time.Now()
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the listener and every turn clock.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Timers != nil {
		s.Timers.StopAll()
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// writeError maps an engine failure onto an HTTP status and a stable code.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch engine.CodeOf(err) {
	case engine.CodeNotFound:
		status = http.StatusNotFound
	case engine.CodeInvalidInput:
		status = http.StatusBadRequest
	case engine.CodeAlreadyActed, engine.CodeRuleViolation, engine.CodeRegionFull,
		engine.CodeInsufficientFunds, engine.CodeInsufficientCharisma:
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": err.Error(),
		"code":  string(engine.CodeOf(err)),
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth; with no key configured the control
// plane is disabled outright.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.DB.Regions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, regions)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.DB.Candidates()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, candidates)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.DB.Actions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, actions)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameType   game.Type `json:"game_type"`
		MaxPlayers int       `json:"max_players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.GameType == "" {
		req.GameType = game.TypeSingle
	}
	g, err := s.Eng.CreateGame(req.GameType, req.MaxPlayers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, g)
}

// playerView is a player plus the derived fields every client wants.
type playerView struct {
	game.Player
	NationalSupport float64 `json:"national_support"`
	BudgetDisplay   string  `json:"budget_display"`
}

func (s *Server) playerViews(gameID int64) ([]playerView, error) {
	players, err := s.DB.ActivePlayers(gameID)
	if err != nil {
		return nil, err
	}
	views := make([]playerView, 0, len(players))
	for _, p := range players {
		nat, err := s.Eng.NationalSupport(gameID, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, playerView{
			Player:          p,
			NationalSupport: nat,
			BudgetDisplay:   humanize.CommafWithDigits(p.Budget, 0) + " KM",
		})
	}
	return views, nil
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	g, err := s.Eng.Game(id)
	if err != nil {
		writeError(w, err)
		return
	}
	views, err := s.playerViews(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"game": g, "players": views})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	var req struct {
		CandidateID int64 `json:"candidate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	p, err := s.Eng.JoinGame(id, req.CandidateID, false)
	if err != nil {
		writeError(w, err)
		return
	}
	started, err := s.maybeAutoStart(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"player": p, "started": started})
}

func (s *Server) handleAddAI(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	p, err := s.Eng.AddAIPlayer(id)
	if err != nil {
		writeError(w, err)
		return
	}
	started, err := s.maybeAutoStart(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"player": p, "started": started})
}

// maybeAutoStart starts a waiting game that just reached capacity and arms
// its turn clock.
func (s *Server) maybeAutoStart(gameID int64) (bool, error) {
	g, err := s.Eng.Game(gameID)
	if err != nil {
		return false, err
	}
	if g.Status != game.StatusWaiting {
		return false, nil
	}
	count, err := s.DB.PlayerCount(gameID)
	if err != nil {
		return false, err
	}
	if count < g.MaxPlayers {
		return false, nil
	}
	if err := s.Eng.StartGame(gameID); err != nil {
		return false, err
	}
	s.armClock(g)
	return true, nil
}

func (s *Server) armClock(g *game.Game) {
	if s.Timers == nil {
		return
	}
	s.Timers.Arm(g.ID, time.Duration(g.TurnDurationSec)*time.Second)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	if err := s.Eng.StartGame(id); err != nil {
		writeError(w, err)
		return
	}
	g, err := s.Eng.Game(id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.armClock(g)
	writeJSON(w, g)
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	var req struct {
		PlayerID  int64   `json:"player_id"`
		ActionID  int64   `json:"action_id"`
		RegionID  *int64  `json:"region_id"`
		RegionIDs []int64 `json:"region_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	regionIDs := req.RegionIDs
	if len(regionIDs) == 0 && req.RegionID != nil {
		regionIDs = []int64{*req.RegionID}
	}

	out, err := s.Eng.SubmitAction(id, req.PlayerID, req.ActionID, regionIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	if out.TurnEnded {
		if out.GameComplete {
			if s.Timers != nil {
				s.Timers.Stop(id)
			}
		} else if g, gerr := s.Eng.Game(id); gerr == nil {
			s.armClock(g)
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleSupport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	rows, err := s.DB.AllSupportRows(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, rows)
}

// handleTurnSummary returns the actions and budget movements of one turn;
// ?turn=N, defaulting to the current turn.
func (s *Server) handleTurnSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	g, err := s.Eng.Game(id)
	if err != nil {
		writeError(w, err)
		return
	}
	turn := g.CurrentTurn
	if q := r.URL.Query().Get("turn"); q != "" {
		turn, err = strconv.Atoi(q)
		if err != nil {
			http.Error(w, "bad turn number", http.StatusBadRequest)
			return
		}
	}
	actions, err := s.DB.ActionsForTurn(id, turn)
	if err != nil {
		writeError(w, err)
		return
	}
	spending, err := s.DB.SpendingHistory(id)
	if err != nil {
		writeError(w, err)
		return
	}
	turnSpending := spending[:0:0]
	for _, sp := range spending {
		if sp.TurnNumber == turn {
			turnSpending = append(turnSpending, sp)
		}
	}
	writeJSON(w, map[string]any{
		"turn":     turn,
		"actions":  actions,
		"spending": turnSpending,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	snapshots, err := s.DB.SupportHistory(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snapshots)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	g, err := s.Eng.Game(id)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := s.DB.ElectionResults(id)
	if err != nil {
		writeError(w, err)
		return
	}
	type resultView struct {
		game.ElectionResult
		VotesDisplay string `json:"votes_display"`
	}
	views := make([]resultView, 0, len(results))
	for _, res := range results {
		views = append(views, resultView{
			ElectionResult: res,
			VotesDisplay:   humanize.Comma(res.Votes),
		})
	}
	writeJSON(w, map[string]any{
		"turnout":      g.VoterTurnout,
		"total_voters": g.TotalVoters,
		"results":      views,
	})
}

func (s *Server) handleTimeUp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	out, err := s.Eng.TimeUp(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		http.Error(w, "game is not active", http.StatusConflict)
		return
	}
	if !out.GameComplete {
		if g, gerr := s.Eng.Game(id); gerr == nil {
			s.armClock(g)
		}
	} else if s.Timers != nil {
		s.Timers.Stop(id)
	}
	writeJSON(w, out)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	dir := s.ArchiveDir
	if dir == "" {
		dir = "archives"
	}
	rec, path, err := archive.Export(s.DB, id, dir)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("game archived", "game", id, "export_id", rec.Header.ExportID, "path", path)
	writeJSON(w, map[string]any{"header": rec.Header, "path": path})
}
