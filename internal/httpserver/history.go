// internal/httpserver/history.go
//
// Best-effort persistence of game rounds and user stats.
// A failure here is logged and never fails the request: live play is held in
// memory and does not depend on the database.

package httpserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colorguess/internal/game"
)

// Round statuses stored in games.status.
const (
	statusPlaying   = "playing"
	statusWon       = "won"
	statusAbandoned = "abandoned" // reset after the player started adjusting
	statusDiscarded = "discarded" // reset before any adjustment
)

// rowID identifies one round of a session in the games table.
func rowID(snap game.Snapshot) string {
	return fmt.Sprintf("%s.%d", snap.ID, snap.Round)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// recordStart inserts a "playing" row owned by the user, or the anonymous ID for guests.
func (s *Server) recordStart(ctx context.Context, me owner, snap game.Snapshot) {
	var userID, anonID string
	if me.UserID != "" {
		userID = me.UserID
	} else {
		anonID = me.AnonID
	}
	now := s.opts.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO games (id, user_id, anonymous_id, target_hex, started_at, status)
	                     VALUES (?,?,?,?,?,?)`,
		rowID(snap), nullable(userID), nullable(anonID), snap.TargetHex, now, statusPlaying)
	if err != nil {
		log.Warn().Err(err).Str("gameId", snap.ID).Int("round", snap.Round).Msg("insert game row")
	}
}

// recordFinish closes a round and, for logged-in players, updates stats
// (wins extend the streak, abandoned rounds break it) in one transaction.
func (s *Server) recordFinish(ctx context.Context, me owner, snap game.Snapshot, status string) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin finish tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	now := s.opts.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `UPDATE games SET status=?, finished_at=?, attempts=?, hints=?, elapsed_ms=?
	                                  WHERE id=?`,
		status, now, snap.Attempts, snap.HintsUsed, snap.ElapsedMs, rowID(snap)); err != nil {
		log.Warn().Err(err).Str("gameId", snap.ID).Msg("finish game")
		return
	}
	if me.UserID != "" && status != statusDiscarded {
		if err := s.users.RecordGame(ctx, tx, me.UserID, status == statusWon); err != nil {
			log.Warn().Err(err).Str("user", me.UserID).Msg("bump stats")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit finish")
		return
	}
	log.Info().Str("gameId", snap.ID).Int("round", snap.Round).Str("status", status).
		Int("attempts", snap.Attempts).Int("hints", snap.HintsUsed).Str("playTime", snap.PlayTime).
		Msg("round finished")
}

// claimAnonGames transfers any anonymous games to a user account after auth.
func (s *Server) claimAnonGames(ctx context.Context, anonID, userID string) {
	if anonID == "" || userID == "" {
		return
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		log.Warn().Err(err).Msg("claim anon games")
	}
}

// gameRow is one entry of GET /games/mine.
type gameRow struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	TargetHex  string `json:"targetHex"`
	Attempts   int    `json:"attempts"`
	Hints      int    `json:"hints"`
	ElapsedMs  int64  `json:"elapsedMs"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// recentGames lists a user's latest rounds, in-progress ones included.
func (s *Server) recentGames(ctx context.Context, userID string, limit int) ([]gameRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, status, target_hex, attempts, hints, elapsed_ms, started_at, COALESCE(finished_at,'')
	                         FROM games WHERE user_id=? ORDER BY started_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gameRow{}
	for rows.Next() {
		var gr gameRow
		if err := rows.Scan(&gr.ID, &gr.Status, &gr.TargetHex, &gr.Attempts, &gr.Hints, &gr.ElapsedMs, &gr.StartedAt, &gr.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}
