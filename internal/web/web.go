// Package web exposes the hall's operational state over a small HTTP API:
// a health check, the live session list, and ban management.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/gridlinehq/gridline/internal/core"
	"github.com/gridlinehq/gridline/internal/core/data"
	"github.com/gridlinehq/gridline/internal/hall"
)

type Server struct {
	Config *core.Config
	Logger *logrus.Logger
	Hall   *hall.Server
	DB     *gorm.DB

	httpServer *http.Server
}

func (s *Server) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	router.HandleFunc("/bans", s.handleListBans).Methods(http.MethodGet)
	router.HandleFunc("/bans/{username}", s.handleBan).Methods(http.MethodPost)
	router.HandleFunc("/bans/{username}", s.handleUnban).Methods(http.MethodDelete)
	return router
}

// Start builds the router and serves until the context is canceled. A port
// of 0 disables the API entirely rather than binding an ephemeral port.
func (s *Server) Start(ctx context.Context) error {
	if s.Config.Web.HTTPPort == 0 {
		s.Logger.Info("[WEB] API disabled")
		return nil
	}

	addr := fmt.Sprintf(":%d", s.Config.Web.HTTPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{Handler: s.router()}
	s.Logger.Infof("[WEB] serving API on %s", addr)

	errs := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionView is the JSON shape of one live game session.
type sessionView struct {
	ID        uint32   `json:"id"`
	Turn      string   `json:"turn"`
	Board     []string `json:"board"`
	Players   []string `json:"players"`
	Observers int      `json:"observers"`
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.Hall.Sessions()

	views := make([]sessionView, 0, len(sessions))
	for _, gs := range sessions {
		views = append(views, sessionView{
			ID:        gs.ID,
			Turn:      gs.Turn,
			Board:     gs.Board[:],
			Players:   []string{s.Hall.PlayerName(gs.PlayerA), s.Hall.PlayerName(gs.PlayerB)},
			Observers: len(gs.Observers),
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListBans(w http.ResponseWriter, _ *http.Request) {
	banned, err := data.AllBannedPlayers(s.DB)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	usernames := make([]string, 0, len(banned))
	for _, b := range banned {
		usernames = append(usernames, b.Username)
	}
	s.writeJSON(w, http.StatusOK, usernames)
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	if err := s.Hall.Ban(username); err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"banned": username})
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	removed, err := s.Hall.Unban(username)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%s is not banned", username))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"unbanned": username})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Logger.Warnf("failed to write API response: %s", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
