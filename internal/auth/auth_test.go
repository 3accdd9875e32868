package auth

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/colorguess/assets"
	"github.com/robalobadob/colorguess/internal/db"
)

func TestTokensRoundTrip(t *testing.T) {
	tk := NewTokens("s3cret", 0)
	tok, exp, err := tk.Sign("id-1", "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), exp, time.Minute)

	id, err := tk.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: "id-1", Username: "alice"}, id)
}

func TestTokensRejectWrongSecretAndExpiry(t *testing.T) {
	tok, _, err := NewTokens("one", 1).Sign("id-1", "alice")
	require.NoError(t, err)
	_, err = NewTokens("two", 1).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	old := NewTokens("one", 1)
	old.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	tok, _, err = old.Sign("id-1", "alice")
	require.NoError(t, err)
	_, err = NewTokens("one", 1).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokens("one", 1).Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRequireClaims(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "x",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = NewTokens("k", 1).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateSignup(t *testing.T) {
	assert.NoError(t, ValidateSignup("bob_42", "password1"))
	assert.Error(t, ValidateSignup("ab", "password1"))
	assert.Error(t, ValidateSignup("bad name", "password1"))
	assert.Error(t, ValidateSignup("bobby", "short"))
	assert.ErrorIs(t, ValidateSignup("émile", "password1"), ErrInvalidSignup)
}

func TestUsersCreateConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(openTestDB(t))

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = users.Create(ctx, "bob_1", "password1")
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrUsernameTaken)
	}
	assert.Equal(t, 1, created)
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "correct horse"))
	assert.False(t, CheckPassword(h, "battery staple"))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(conn, assets.Migrations()))
	return conn
}

func TestUsersCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	users := NewUsers(conn)

	u, err := users.Create(ctx, "  Alice ", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Username)

	_, err = users.Create(ctx, "alice", "password2")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := users.ByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, CheckPassword(got.PasswordHash, "password1"))

	_, err = users.ByID(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestUsersRecordGame(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	users := NewUsers(conn)
	u, err := users.Create(ctx, "carol", "password1")
	require.NoError(t, err)

	for _, won := range []bool{true, true, false, true} {
		tx, err := conn.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, users.RecordGame(ctx, tx, u.ID, won))
		require.NoError(t, tx.Commit())
	}

	got, err := users.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.GamesPlayed)
	assert.Equal(t, 3, got.Wins)
	assert.Equal(t, 1, got.Streak)
}
