package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/colorguess/internal/game"
)

// lookup returns the stored pointer for assertions.
func lookup(t *testing.T, st Store, id string) (*game.Session, error) {
	t.Helper()
	var got *game.Session
	err := st.Update(context.Background(), id, func(s *game.Session) error {
		got = s
		return nil
	})
	return got, err
}

func TestSaveUpdateDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := game.New(game.WithID("s1"))

	require.NoError(t, st.Save(ctx, s))
	got, err := lookup(t, st, "s1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, st.Delete(ctx, "s1"))
	_, err = lookup(t, st, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, st.Delete(ctx, "missing"))
}

func TestUpdateUnknownSession(t *testing.T) {
	st := NewMemoryStore()
	err := st.Update(context.Background(), "nope", func(*game.Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePropagatesError(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Save(ctx, game.New(game.WithID("s1"))))

	boom := errors.New("boom")
	err := st.Update(ctx, "s1", func(*game.Session) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestUpdateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := NewMemoryStore()
	err := st.Update(ctx, "s1", func(*game.Session) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Save(ctx, game.New(game.WithID("s1"), game.WithTarget(game.Color{255, 255, 255}))))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Update(ctx, "s1", func(s *game.Session) error {
				s.CheckAnswer()
				return s.AdjustChannel(game.Red, 1)
			})
		}()
	}
	wg.Wait()

	s, err := lookup(t, st, "s1")
	require.NoError(t, err)
	assert.Equal(t, 50, s.Attempts)
	assert.Equal(t, 50, s.Current[game.Red])
}
