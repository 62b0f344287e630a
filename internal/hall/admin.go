package hall

import (
	"fmt"

	"github.com/gridlinehq/gridline/internal/session"
	"github.com/gridlinehq/gridline/internal/wire"
)

// The administrative surface of the hall, shared by the operator console and
// the HTTP API.

// Kick pushes the kick message to the named player and releases their login.
// Kicking also bans the player, matching the long-standing operator
// expectation that a kick keeps them out.
func (s *Server) Kick(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kickLocked(username); err != nil {
		return err
	}
	return s.directory.Ban(username)
}

// Ban adds the username to the ban set and kicks them if they are online.
func (s *Server) Ban(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	banned, err := s.directory.IsBanned(username)
	if err != nil {
		return err
	}
	if banned {
		return fmt.Errorf("%s is already banned", username)
	}

	if err := s.directory.Ban(username); err != nil {
		return err
	}

	// An offline player is still banned; only the kick needs them online.
	if kickErr := s.kickLocked(username); kickErr == nil {
		s.Logger.Infof("kicked %s from the game", username)
	}

	s.Logger.Infof("banned %s from the server", username)
	return nil
}

// Unban removes the username from the ban set, reporting whether it was
// present.
func (s *Server) Unban(username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.Unban(username)
}

// Stop tells every connected client the server is going away.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.table.All() {
		if err := c.Send(wire.Message{Signifier: wire.ConnectionLost}); err != nil {
			s.Logger.Warnf("failed to notify %s of shutdown: %s", c.IPAddr(), err)
		}
	}
}

// Sessions returns a point-in-time copy of every live game session.
func (s *Server) Sessions() []session.GameSession {
	return s.sessions.Snapshot()
}

// PlayerName returns the username logged in on the given connection, or the
// empty string for an unauthenticated or vanished connection.
func (s *Server) PlayerName(connID int) string {
	return s.table.Username(connID)
}

func (s *Server) kickLocked(username string) error {
	c := s.table.LookupByUsername(username)
	if c == nil {
		return fmt.Errorf("no player named %s is online", username)
	}

	if err := c.Send(wire.Message{Signifier: wire.KickPlayer}); err != nil {
		s.Logger.Warnf("failed to send kick to %s: %s", username, err)
	}
	s.directory.Deauthenticate(username)
	s.table.Unbind(c.ID)
	return nil
}
