// internal/httpserver/server.go
//
// HTTP server wiring for the memory-match backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", POST /game/new.
//   - Session endpoints: state, flip, restart, key shortcut, quit, and the WebSocket stream.
//   - Session tokens: HS256 JWTs carrying the game ID, read from the Authorization
//     header or the session cookie; /game/ws also takes a "token" query parameter.
//
// Notes:
//   - The engine is the source of truth; every REST response carries a fresh snapshot.
//   - Display updates that happen later (evaluation delays, timer ticks) reach the
//     browser over the WebSocket stream only.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/emoji-memory/internal/config"
	"github.com/robalobadob/emoji-memory/internal/game"
	"github.com/robalobadob/emoji-memory/internal/hub"
	"github.com/robalobadob/emoji-memory/internal/store"
)

const tokenTTL = 24 * time.Hour

// Server bundles router, session store, and game config.
type Server struct {
	r        *chi.Mux
	store    store.Store
	cfg      *config.Config
	secret   []byte
	salt     string
	sched    game.Scheduler
	now      func() time.Time
	upgrader websocket.Upgrader
}

// Option customizes a Server.
type Option func(*Server)

// WithScheduler sets the scheduler handed to every new engine.
func WithScheduler(sc game.Scheduler) Option { return func(s *Server) { s.sched = sc } }

// WithClock overrides the wall clock (daily boards, token issue times).
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		r:      chi.NewRouter(),
		store:  st,
		cfg:    cfg,
		secret: []byte(getEnv("SESSION_SECRET", "dev_secret_change_me")),
		salt:   getEnv("DAILY_SALT", "local_dev_salt"),
		sched:  game.RealScheduler(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(corsFromEnv)     // credentials-friendly CORS

	// The WebSocket stream is long-lived: no handler timeout, no JSON header.
	s.r.With(s.requireSession(true)).Get("/game/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses
		r.Use(accessLog)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"emoji-memory","endpoints":["/health","POST /game/new","POST /daily/new","GET /game/state","POST /game/flip","POST /game/restart","POST /game/key","DELETE /game","GET /game/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "sessions": s.store.Len()})
		})

		r.Post("/game/new", s.handleNewGame)
		s.mountDaily(r)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession(false))
			r.Get("/game/state", s.handleState)
			r.Post("/game/flip", s.handleFlip)
			r.Post("/game/restart", s.handleRestart)
			r.Post("/game/key", s.handleKey)
			r.Delete("/game", s.handleQuit)
		})

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})
	})

	return s
}

// Start begins serving HTTP on addr and shuts down gracefully when ctx ends.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
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

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := clientOrigin()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one zerolog line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// checkOrigin accepts same-host pages, the configured client origin, and
// non-browser clients that send no Origin header.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == clientOrigin() {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func clientOrigin() string { return getEnv("CLIENT_ORIGIN", "http://localhost:5173") }

// ------------------------------ GAME ---------------------------------------

type newGameRes struct {
	GameID    string        `json:"gameId"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Daily     string        `json:"daily,omitempty"`
	State     game.Snapshot `json:"state"`
}

// handleNewGame deals a fresh, randomly shuffled board.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	s.startSession(w, r, nil, "")
}

// startSession creates the engine + hub pair, stores it, and hands the browser
// a session token. A non-nil seed makes the deal deterministic.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, seed *int64, dailyKey string) {
	id := uuid.NewString()
	now := s.now()

	opts := s.cfg.EngineOptions()
	opts.Scheduler = s.sched
	if seed != nil {
		opts.Rand = rand.New(rand.NewSource(*seed))
	}
	h := hub.New(log.With().Str("gameId", id).Logger())
	eng, err := game.New(id, opts, h)
	if err != nil {
		log.Error().Err(err).Msg("create game")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	sess := &store.Session{
		ID:        id,
		Engine:    eng,
		Hub:       h,
		Daily:     dailyKey,
		CreatedAt: now,
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		sess.Close()
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	tok, exp, err := s.signSession(id, now)
	if err != nil {
		log.Error().Err(err).Msg("sign session")
		_ = s.store.Delete(r.Context(), id)
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	log.Info().Str("gameId", id).Str("daily", dailyKey).Str("mode", string(s.cfg.Mode)).Msg("game created")

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:    id,
		Token:     tok,
		ExpiresAt: exp,
		Daily:     dailyKey,
		State:     sess.Engine.Snapshot(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	_ = json.NewEncoder(w).Encode(sess.Engine.Snapshot())
}

// flipReq/Res payloads for POST /game/flip.
type flipReq struct {
	CardID *int `json:"cardId"`
}
type flipRes struct {
	Accepted bool          `json:"accepted"`
	State    game.Snapshot `json:"state"`
}

// handleFlip is cardClicked. Rejected flips are not errors: accepted=false.
func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req flipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.CardID == nil {
		writeError(w, http.StatusBadRequest, "missing_card_id")
		return
	}
	sess := currentSession(r)
	accepted := sess.Engine.Flip(*req.CardID)
	_ = json.NewEncoder(w).Encode(flipRes{Accepted: accepted, State: sess.Engine.Snapshot()})
}

// handleRestart is restartRequested.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.Engine.Reset()
	_ = json.NewEncoder(w).Encode(sess.Engine.Snapshot())
}

// keyReq/Res payloads for POST /game/key.
type keyReq struct {
	Key string `json:"key"`
}
type keyRes struct {
	Handled bool          `json:"handled"`
	State   game.Snapshot `json:"state"`
}

// handleKey is keyShortcut.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess := currentSession(r)
	handled := sess.Engine.Key(req.Key)
	_ = json.NewEncoder(w).Encode(keyRes{Handled: handled, State: sess.Engine.Snapshot()})
}

// handleQuit ends the session and clears the cookie.
func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if err := s.store.Delete(r.Context(), sess.ID); err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("delete session")
	}
	s.clearSessionCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// ---------------------------- WebSocket -------------------------------------

// inbound is a presentation event sent over the WebSocket.
type inbound struct {
	Type   string `json:"type"` // cardClicked | restartRequested | keyShortcut
	CardID *int   `json:"cardId"`
	Key    string `json:"key"`
}

// handleWS upgrades the connection and streams display events until it closes.
// On attach, the full display state is replayed.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("websocket upgrade")
		return
	}
	sess.Hub.Serve(conn, sess.Engine.Replay, func(msg []byte) {
		s.dispatch(sess, msg)
	})
}

// dispatch applies one inbound WebSocket message to the session's engine.
func (s *Server) dispatch(sess *store.Session, msg []byte) {
	var in inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		log.Debug().Err(err).Str("gameId", sess.ID).Msg("bad websocket message")
		return
	}
	sess.Touch(s.now())
	switch in.Type {
	case "cardClicked":
		if in.CardID == nil {
			log.Debug().Str("gameId", sess.ID).Msg("cardClicked without cardId")
			return
		}
		sess.Engine.Flip(*in.CardID)
	case "restartRequested":
		sess.Engine.Reset()
	case "keyShortcut":
		sess.Engine.Key(in.Key)
	default:
		log.Debug().Str("gameId", sess.ID).Str("type", in.Type).Msg("unknown websocket message")
	}
}

// ---------------------------- sessions --------------------------------------

const sessionCookieName = "memory_session"

// sessionClaims is the JWT payload binding a browser to one game.
type sessionClaims struct {
	GameID string `json:"gid"`
	jwt.RegisteredClaims
}

// ctxSessionKey is the context key type for storing *store.Session.
type ctxSessionKey struct{}

func currentSession(r *http.Request) *store.Session {
	sess, _ := r.Context().Value(ctxSessionKey{}).(*store.Session)
	return sess
}

// signSession creates an HS256 JWT for game id.
func (s *Server) signSession(id string, now time.Time) (string, time.Time, error) {
	exp := now.Add(tokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		GameID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

var errNoToken = errors.New("missing session token")

// parseSession validates a token and returns its game ID.
func (s *Server) parseSession(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", errNoToken
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if claims.GameID == "" {
		return "", errors.New("token has no game id")
	}
	return claims.GameID, nil
}

// requireSession resolves the caller's game and injects it into the request context.
// allowQuery admits the "token" query parameter; only the WebSocket route sets it,
// since browsers cannot attach headers to a WebSocket handshake.
func (s *Server) requireSession(allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := s.parseSession(sessionToken(r, allowQuery))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_session")
				return
			}
			sess, err := s.store.Get(r.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "game_not_found")
				return
			}
			if err != nil {
				log.Error().Err(err).Str("gameId", id).Msg("load session")
				writeError(w, http.StatusInternalServerError, "load_failed")
				return
			}
			ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionToken extracts the token from the Authorization header, the session
// cookie, or (when allowQuery is set) the "token" query parameter, in that order.
func sessionToken(r *http.Request, allowQuery bool) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// setSessionCookie writes the session token cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third‑party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearSessionCookie deletes the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   os.Getenv("NODE_ENV") == "production",
		MaxAge:   -1,
	})
}

// ------------------------------- small util --------------------------------

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
