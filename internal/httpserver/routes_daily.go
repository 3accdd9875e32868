// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes endpoints under /daily:
//   - POST /daily/new            → start a daily game (creates or reuses session)
//   - GET  /daily/{id}           → current snapshot
//   - POST /daily/{id}/{action}  → adjust | check | hint (no reset in daily mode)
//   - GET  /daily/leaderboard    → fetch top 20 results for today (or a given date)
//
// Each player can finish once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on win.
// Everyone gets the same target on a given date (date + salt).
//
// A player is looked up by user ID first, then by anonymous cookie, so a
// guest who signs in mid-run keeps the session; claimGuest then moves it
// (and any stored result) to the account. Sessions from earlier dates are
// dropped by evictBefore.

package httpserver

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colorguess/internal/daily"
	"github.com/robalobadob/colorguess/internal/game"
	"github.com/robalobadob/colorguess/internal/store"
)

// dailyKey identifies one player's session for one date.
type dailyKey struct {
	player string
	date   string
}

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	results  *daily.Store
	sessions store.Store

	mu     sync.Mutex
	active map[dailyKey]string // → session ID
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{
		srv:      s,
		results:  daily.NewStore(s.db),
		sessions: store.NewMemoryStore(),
		active:   make(map[dailyKey]string),
	}
	dd := s.daily
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
		r.Get("/{id}", dd.handleGet)
		r.Post("/{id}/{action}", dd.handleAction)
	})
}

// today returns the current date key.
func (d *dailyServer) today() string {
	return daily.DateKey(d.srv.opts.Now())
}

// lookupLocked finds the player's session for date. Callers hold d.mu.
func (d *dailyServer) lookupLocked(me owner, date string) (dailyKey, string, bool) {
	for _, p := range me.ids() {
		k := dailyKey{player: p, date: date}
		if id, ok := d.active[k]; ok {
			return k, id, true
		}
	}
	return dailyKey{}, "", false
}

// played reports whether any of the player's identities has a result for date.
func (d *dailyServer) played(ctx context.Context, me owner, date string) bool {
	for _, p := range me.ids() {
		ok, err := d.results.AlreadyPlayed(ctx, p, date)
		if err != nil {
			log.Warn().Err(err).Str("user", p).Msg("daily already played")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// /daily/new

// newRes is returned by /daily/new.
type newRes struct {
	GameID   string         `json:"gameId"`
	Date     string         `json:"date"`
	Played   bool           `json:"played"`
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
}

// handleNew creates or reuses a daily session for the current date.
//   - If the player already has a DB row for today → return Played=true.
//   - Otherwise create/reuse an in-memory session and return its snapshot.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	me := d.srv.owner(w, r)
	now := d.srv.opts.Now()
	date := daily.DateKey(now)

	if d.played(r.Context(), me, date) {
		writeJSON(w, http.StatusOK, newRes{Date: date, Played: true})
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if k, id, ok := d.lookupLocked(me, date); ok {
		var snap game.Snapshot
		err := d.sessions.Update(r.Context(), id, func(g *game.Session) error {
			snap = g.Snapshot()
			return nil
		})
		if err == nil {
			writeJSON(w, http.StatusOK, newRes{GameID: id, Date: date, Snapshot: &snap})
			return
		}
		delete(d.active, k)
	}

	g := game.New(
		game.WithTarget(daily.TargetFor(now, d.srv.opts.DailySalt)),
		game.WithClock(d.srv.opts.Now),
	)
	if err := d.sessions.Save(r.Context(), g); err != nil {
		jsonError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.active[dailyKey{player: me.key(), date: date}] = g.ID
	snap := g.Snapshot()
	writeJSON(w, http.StatusOK, newRes{GameID: g.ID, Date: date, Snapshot: &snap})
}

// -----------------------------------------------------------------------------
// /daily/{id} and /daily/{id}/{action}

// session resolves the caller's daily session for today and checks it matches id.
func (d *dailyServer) session(w http.ResponseWriter, r *http.Request) (owner, string, bool) {
	me := d.srv.owner(w, r)
	id := chi.URLParam(r, "id")
	d.mu.Lock()
	_, cur, found := d.lookupLocked(me, d.today())
	d.mu.Unlock()
	if !found || cur != id {
		jsonError(w, http.StatusConflict, "no_session")
		return me, id, false
	}
	return me, id, true
}

func (d *dailyServer) handleGet(w http.ResponseWriter, r *http.Request) {
	_, id, ok := d.session(w, r)
	if !ok {
		return
	}
	var snap game.Snapshot
	err := d.sessions.Update(r.Context(), id, func(g *game.Session) error {
		snap = g.Snapshot()
		return nil
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleAction applies adjust/check/hint. A winning check persists the result.
func (d *dailyServer) handleAction(w http.ResponseWriter, r *http.Request) {
	cmd, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	if cmd.Action == game.ActionReset {
		jsonError(w, http.StatusBadRequest, "reset_not_allowed")
		return
	}
	me, id, ok := d.session(w, r)
	if !ok {
		return
	}

	var out game.Outcome
	err := d.sessions.Update(r.Context(), id, func(g *game.Session) error {
		var err error
		out, err = g.Apply(cmd)
		return err
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}

	if out.Finished {
		res := daily.Result{
			UserID:    me.key(),
			Date:      d.today(),
			TargetHex: out.Snapshot.TargetHex,
			Attempts:  out.Snapshot.Attempts,
			Hints:     out.Snapshot.HintsUsed,
			ElapsedMs: out.Snapshot.ElapsedMs,
		}
		if err := d.results.InsertResult(r.Context(), res); err != nil {
			log.Warn().Err(err).Str("user", res.UserID).Msg("insert daily result")
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = d.today()
	}
	rows, err := d.results.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		jsonError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}

// -----------------------------------------------------------------------------
// housekeeping

// claimGuest hands a guest's daily sessions and results to userID. A date the
// account already has a session for keeps the account's session.
func (d *dailyServer) claimGuest(ctx context.Context, anonID, userID string) {
	d.mu.Lock()
	for k, id := range d.active {
		if k.player != anonID {
			continue
		}
		delete(d.active, k)
		to := dailyKey{player: userID, date: k.date}
		if _, taken := d.active[to]; taken {
			_ = d.sessions.Delete(ctx, id)
			continue
		}
		d.active[to] = id
	}
	d.mu.Unlock()

	if _, err := d.results.Claim(ctx, anonID, userID); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("claim daily results")
	}
}

// evictBefore drops sessions for dates earlier than date and returns how many went.
func (d *dailyServer) evictBefore(ctx context.Context, date string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for k, id := range d.active {
		if k.date >= date {
			continue
		}
		delete(d.active, k)
		_ = d.sessions.Delete(ctx, id)
		n++
	}
	return n
}
