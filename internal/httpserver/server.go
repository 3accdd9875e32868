// internal/httpserver/server.go
//
// HTTP server wiring for the Guess My Color backend.
// Responsibilities:
//   - Router + middleware (access logs, JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): POST /game/new, GET /game/{id}, POST /game/{id}/{action}.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - WebSocket play (optional auth): GET /ws, one session per connection.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - CORS is origin‑aware and credentials‑enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is present;
//     routes can still run for guests, identified by an anonymous cookie.
//   - Every live session records who created it; other players get 404.
//   - Sessions idle for longer than SessionTTL are evicted by a janitor.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colorguess/internal/auth"
	"github.com/robalobadob/colorguess/internal/daily"
	"github.com/robalobadob/colorguess/internal/game"
	"github.com/robalobadob/colorguess/internal/store"
)

// Options carries environment-derived settings. Zero values fall back to defaults.
type Options struct {
	JWTSecret        string
	JWTExpiresDays   int
	CookieName       string
	ClientOrigin     string
	Secure           bool // production cookies (Secure + SameSite=None)
	DailySalt        string
	AllowFixedTarget bool          // honour "target" in POST /game/new (testing only)
	SessionTTL       time.Duration // idle sessions older than this are evicted
	Now              func() time.Time
}

func (o *Options) defaults() {
	if o.JWTSecret == "" {
		o.JWTSecret = "dev_secret_change_me"
	}
	if o.CookieName == "" {
		o.CookieName = "colorguess_token"
	}
	if o.ClientOrigin == "" {
		o.ClientOrigin = "http://localhost:5173"
	}
	if o.DailySalt == "" {
		o.DailySalt = "local_dev_salt"
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 6 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Server bundles router, in-memory session store, and DB handle.
type Server struct {
	r      *chi.Mux
	store  store.Store
	db     *sql.DB
	users  *auth.Users
	tokens *auth.Tokens
	opts   Options
	daily  *dailyServer

	mu     sync.Mutex
	owners map[string]*tracked // session ID → creator
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, opts Options) *Server {
	opts.defaults()
	s := &Server{
		r:      chi.NewRouter(),
		store:  st,
		db:     db,
		users:  auth.NewUsers(db),
		tokens: auth.NewTokens(opts.JWTSecret, opts.JWTExpiresDays),
		opts:   opts,
		owners: make(map[string]*tracked),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)              // add X-Request-ID
	s.r.Use(chimw.RealIP)                 // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))  // request-scoped logger
	s.r.Use(accessLog)                    // one line per request
	s.r.Use(chimw.Recoverer)              // recover from panics
	s.r.Use(s.cors)                       // credentials-friendly CORS
	s.r.Use(s.withOptionalAuth)           // user context when a token is present

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	// WebSocket sessions live longer than any request timeout.
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"colorguess-go","endpoints":["/health","POST /game/new","POST /game/{id}/{action}","/daily/*","/ws","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Game endpoints — guests can play
		r.Route("/game", func(r chi.Router) {
			r.Post("/new", s.handleNewGame)
			r.Get("/{id}", s.handleGetGame)
			r.Post("/{id}/{action}", s.handleGameAction)
		})

		// Daily Challenge — guests can play; results persisted on win
		s.mountDaily(r)

		// Auth + profile/stats
		s.mountAuthRoutes(r)
	})

	return s
}

// Start begins serving HTTP on addr and evicts idle sessions until it returns.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.janitor(ctx, time.Minute)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.evictIdle(ctx)
		}
	}
}

// evictIdle drops game sessions untouched for SessionTTL, closing their
// history rows, and daily sessions from earlier dates. It returns how many
// sessions went.
func (s *Server) evictIdle(ctx context.Context) int {
	now := s.opts.Now()
	cutoff := now.Add(-s.opts.SessionTTL)

	stale := make(map[string]owner)
	s.mu.Lock()
	for id, t := range s.owners {
		if t.seen.Before(cutoff) {
			stale[id] = t.owner
			delete(s.owners, id)
		}
	}
	s.mu.Unlock()

	for id, o := range stale {
		var (
			snap    game.Snapshot
			started bool
		)
		err := s.store.Update(ctx, id, func(g *game.Session) error {
			snap, started = g.Snapshot(), g.Started()
			return nil
		})
		if err == nil && snap.State == game.StatePlaying {
			status := statusDiscarded
			if started {
				status = statusAbandoned
			}
			s.recordFinish(ctx, o, snap, status)
		}
		if err := s.store.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("gameId", id).Msg("evict session")
		}
	}

	n := len(stale) + s.daily.evictBefore(ctx, daily.DateKey(now))
	if n > 0 {
		log.Info().Int("sessions", n).Msg("evicted idle sessions")
	}
	return n
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one structured line per request through the request logger.
var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("reqId", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
})

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq is the optional body of POST /game/new.
type newGameReq struct {
	Target string `json:"target"` // "#rrggbb"; only with AllowFixedTarget
}

// handleNewGame creates a session, remembers its owner, and persists a history row.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	opts := []game.Option{game.WithClock(s.opts.Now)}
	if req.Target != "" && s.opts.AllowFixedTarget {
		c, err := game.ParseHex(req.Target)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid_target")
			return
		}
		opts = append(opts, game.WithTarget(c))
	}
	g := game.New(opts...)
	snap := g.Snapshot()
	me := s.owner(w, r)
	s.setOwner(g.ID, me)
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		jsonError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.recordStart(r.Context(), me, snap)

	writeJSON(w, http.StatusOK, snap)
}

// handleGetGame returns the current snapshot of an owned session.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, game.Command{Action: game.ActionState})
}

// handleGameAction applies adjust/check/hint/reset to an owned session.
func (s *Server) handleGameAction(w http.ResponseWriter, r *http.Request) {
	cmd, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	s.runCommand(w, r, cmd)
}

// runCommand resolves the session, applies cmd under the store lock, records
// history for wins and abandoned rounds, and writes the outcome.
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, cmd game.Command) {
	id := chi.URLParam(r, "id")
	me := s.owner(w, r)
	if !s.owns(id, me) {
		jsonError(w, http.StatusNotFound, "not_found")
		return
	}

	var out game.Outcome
	err := s.store.Update(r.Context(), id, func(g *game.Session) error {
		var err error
		out, err = g.Apply(cmd)
		return err
	})
	if err != nil {
		writeCommandError(w, err)
		return
	}

	switch {
	case out.Finished:
		s.recordFinish(r.Context(), me, out.Snapshot, statusWon)
	case out.Abandoned:
		s.recordFinish(r.Context(), me, out.Before, statusAbandoned)
	case cmd.Action == game.ActionReset && out.Before.State == game.StatePlaying:
		s.recordFinish(r.Context(), me, out.Before, statusDiscarded)
	}
	if cmd.Action == game.ActionReset {
		s.recordStart(r.Context(), me, out.Snapshot)
	}

	if cmd.Action == game.ActionState {
		writeJSON(w, http.StatusOK, out.Snapshot)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeCommand builds a Command from the {action} URL param and, for adjust,
// the JSON body {"channel":"r","delta":10}.
func decodeCommand(w http.ResponseWriter, r *http.Request) (game.Command, bool) {
	cmd := game.Command{Action: game.Action(chi.URLParam(r, "action"))}
	if cmd.Action == game.ActionAdjust {
		var body struct {
			Channel string `json:"channel"`
			Delta   int    `json:"delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			jsonError(w, http.StatusBadRequest, "bad_json")
			return cmd, false
		}
		cmd.Channel, cmd.Delta = body.Channel, body.Delta
	}
	return cmd, true
}

// writeCommandError maps engine/store errors to HTTP statuses.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, game.ErrInvalidChannel):
		jsonError(w, http.StatusBadRequest, "invalid_channel")
	case errors.Is(err, game.ErrUnknownAction):
		jsonError(w, http.StatusNotFound, "unknown_action")
	default:
		log.Error().Err(err).Msg("apply command")
		jsonError(w, http.StatusInternalServerError, "server_error")
	}
}

// ------------------------------ ownership ----------------------------------

// owner identifies the player behind a request: the logged-in user if any,
// and always the anonymous cookie.
type owner struct {
	UserID string
	AnonID string
}

// tracked is a live session's creator and when it was last used.
type tracked struct {
	owner owner
	seen  time.Time
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request) owner {
	o := owner{AnonID: s.ensureAnonID(w, r)}
	if me := currentUser(r); me != nil {
		o.UserID = me.ID
	}
	return o
}

// key is the single identifier used for per-player records.
func (o owner) key() string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.AnonID
}

// ids lists the identities a player's records may be filed under, user first.
func (o owner) ids() []string {
	out := make([]string, 0, 2)
	for _, id := range []string{o.UserID, o.AnonID} {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func (s *Server) setOwner(id string, o owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[id] = &tracked{owner: o, seen: s.opts.Now()}
}

// owns reports whether the requester created session id, either as the same
// user or from the same browser, and marks the session as used.
func (s *Server) owns(id string, me owner) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.owners[id]
	if !ok {
		return false
	}
	o := t.owner
	if (o.UserID != "" && o.UserID == me.UserID) || (o.AnonID != "" && o.AnonID == me.AnonID) {
		t.seen = s.opts.Now()
		return true
	}
	return false
}

// ------------------------------- small util --------------------------------

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

// jsonError writes {"error":code}.
func jsonError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
