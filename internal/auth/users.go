package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// User matches the users table shape.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Wins         int       `json:"wins"`
	Streak       int       `json:"streak"`
}

// Users is the SQLite-backed user repository.
type Users struct{ db *sql.DB }

func NewUsers(db *sql.DB) *Users { return &Users{db: db} }

// Create registers a new account. Uniqueness is left to the users.username
// constraint (case-insensitive), so concurrent signups for one name yield
// exactly one account and ErrUsernameTaken for the rest.
func (u *Users) Create(ctx context.Context, username, pw string) (*User, error) {
	name := NormalizeUsername(username)
	if err := ValidateSignup(name, pw); err != nil {
		return nil, err
	}
	hash, err := HashPassword(pw)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	created := time.Now().UTC().Truncate(time.Second)
	id := uuid.NewString()
	if _, err := u.db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, name, hash, created.Format(time.RFC3339)); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &User{ID: id, Username: name, PasswordHash: hash, CreatedAt: created}, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ByUsername loads a user by case-insensitive username.
func (u *Users) ByUsername(ctx context.Context, username string) (*User, error) {
	row := u.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                    FROM users WHERE lower(username)=lower(?)`, NormalizeUsername(username))
	return scanUser(row)
}

// ByID loads a user by id. Returns sql.ErrNoRows if missing.
func (u *Users) ByID(ctx context.Context, id string) (*User, error) {
	row := u.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                    FROM users WHERE id=?`, id)
	return scanUser(row)
}

// RecordGame bumps games played; a win extends the streak, an abandoned game ends it.
func (u *Users) RecordGame(ctx context.Context, tx *sql.Tx, userID string, won bool) error {
	q := `UPDATE users SET games_played = games_played + 1, streak = 0 WHERE id=?`
	if won {
		q = `UPDATE users SET games_played = games_played + 1, wins = wins + 1, streak = streak + 1 WHERE id=?`
	}
	_, err := tx.ExecContext(ctx, q, userID)
	return err
}

// scanUser reads the column list shared by ByUsername and ByID.
func scanUser(row *sql.Row) (*User, error) {
	var (
		out     User
		created string
	)
	err := row.Scan(&out.ID, &out.Username, &out.PasswordHash, &created, &out.GamesPlayed, &out.Wins, &out.Streak)
	if err != nil {
		return nil, err
	}
	if out.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("user %s created_at: %w", out.ID, err)
	}
	return &out, nil
}
