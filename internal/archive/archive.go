// Package archive exports completed games as zstd-compressed JSON files for
// offline analysis and long-term storage. Each export carries a plain-text
// header line ahead of the compressed body so files can be identified without
// decoding the whole record.
package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/nuredin-kurtovic/Outvoted/internal/game"
	"github.com/nuredin-kurtovic/Outvoted/internal/persistence"
)

// Header identifies an export before the body is decoded.
type Header struct {
	Version   int       `json:"version"`
	ExportID  string    `json:"export_id"`
	GameID    int64     `json:"game_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is the complete exported history of one game.
type Record struct {
	Header   Header                 `json:"header"`
	Game     *game.Game             `json:"game"`
	Players  []game.Player          `json:"players"`
	Actions  []game.ActionRecord    `json:"actions"`
	Spending []game.SpendRecord     `json:"spending"`
	Support  []game.SupportSnapshot `json:"support"`
	Results  []game.ElectionResult  `json:"results"`
}

// Export gathers a completed game's full history and writes it under dir as
// <export id>.json.zst. It returns the record and the path written.
func Export(db *persistence.DB, gameID int64, dir string) (*Record, string, error) {
	g, err := db.GameByID(gameID)
	if err != nil {
		return nil, "", err
	}
	if g == nil {
		return nil, "", fmt.Errorf("game %d not found", gameID)
	}
	if g.Status != game.StatusCompleted {
		return nil, "", fmt.Errorf("game %d is %s; only completed games are archived", gameID, g.Status)
	}

	rec := &Record{
		Header: Header{
			Version:   1,
			ExportID:  uuid.NewString(),
			GameID:    gameID,
			CreatedAt: time.Now().UTC(),
		},
		Game: g,
	}
	if rec.Players, err = db.Players(gameID); err != nil {
		return nil, "", fmt.Errorf("players: %w", err)
	}
	if rec.Actions, err = db.ActionHistory(gameID); err != nil {
		return nil, "", fmt.Errorf("action history: %w", err)
	}
	if rec.Spending, err = db.SpendingHistory(gameID); err != nil {
		return nil, "", fmt.Errorf("spending history: %w", err)
	}
	if rec.Support, err = db.SupportHistory(gameID); err != nil {
		return nil, "", fmt.Errorf("support history: %w", err)
	}
	if rec.Results, err = db.ElectionResults(gameID); err != nil {
		return nil, "", fmt.Errorf("election results: %w", err)
	}

	path := filepath.Join(dir, rec.Header.ExportID+".json.zst")
	if err := Write(path, rec); err != nil {
		return nil, "", err
	}
	return rec, path, nil
}

// Write encodes the record to path: one uncompressed header line, then the
// zstd-compressed JSON body.
func Write(path string, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	hb, _ := json.Marshal(rec.Header)
	if _, err := f.Write(append(hb, '\n')); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	if err := json.NewEncoder(bw).Encode(rec); err != nil {
		enc.Close()
		return fmt.Errorf("encode record: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Read decodes an export file written by Write.
func Read(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	// Skip the header line; the body repeats it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var rec Record
	if err := json.NewDecoder(dec).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

// ReadHeader decodes only the plain-text header line of an export file.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return &h, nil
}
