// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Board" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new   → start a game on today's board (same layout for everyone)
//   - GET  /daily/today → today's date key
//
// The deal is seeded from HMAC(salt, YYYY-MM-DD); restarting a daily game
// deals the next board from the same seeded sequence. No results are stored.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/emoji-memory/internal/daily"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
		r.Get("/today", s.handleDailyToday)
	})
}

func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	seed := daily.Seed(now, s.salt)
	s.startSession(w, r, &seed, daily.DateKey(now))
}

func (s *Server) handleDailyToday(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"date": daily.DateKey(s.now())})
}
