package daily

import (
	"context"
	"database/sql"
)

// Result is one player's winning run for a date.
type Result struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	TargetHex string `json:"targetHex"`
	Attempts  int    `json:"attempts"`
	Hints     int    `json:"hints"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a result; a second result for the same user and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, target_hex, attempts, hints, elapsed_ms)
		VALUES(?,?,?,?,?,?)`, r.UserID, r.Date, r.TargetHex, r.Attempts, r.Hints, r.ElapsedMs,
	)
	return err
}

// Claim moves a guest's results to an account. Dates the account already
// has a result for keep the account's row; the guest row stays behind.
func (s *Store) Claim(ctx context.Context, fromID, toID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE OR IGNORE daily_results SET user_id=? WHERE user_id=?`, toID, fromID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type LBRow struct {
	UserID    string `json:"userId"`
	Attempts  int    `json:"attempts"`
	Hints     int    `json:"hints"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard lists the fastest wins for a date, then fewest attempts and hints.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, attempts, hints, elapsed_ms
		FROM daily_results
		WHERE date=?
		ORDER BY elapsed_ms ASC, attempts ASC, hints ASC, created_at ASC
		LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Attempts, &r.Hints, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
