// Package session implements matchmaking and the live game sessions: the
// single pending-match slot, board state and turn tracking, observer
// membership, and chat fan-out across sessions.
package session

import (
	"errors"
	"math/rand"
	"sync"
)

// Marks for the two players of a game session.
const (
	MarkX = "X"
	MarkO = "O"
)

// NoPendingPlayer is the value held by the matchmaking slot when empty.
const NoPendingPlayer = -1

// ErrNoSuchSession is returned when a client references a session ID that
// does not exist (or no longer exists).
var ErrNoSuchSession = errors.New("no such game session")

// GameSession is one active two-player match plus its observers.
type GameSession struct {
	// ID is a stable identifier assigned at creation. Clients reference
	// sessions by this ID, so it must never be reused for the lifetime of
	// the server.
	ID uint32

	// PlayerA is the connection that was waiting in the matchmaking slot;
	// PlayerB is the one whose enqueue completed the match.
	PlayerA int
	PlayerB int

	// Turn holds the mark that acts next. Chosen at random when the session
	// is created and flipped unconditionally on every board update.
	Turn string

	Board     [9]string
	Observers []int
}

// HasPlayer reports whether connID is one of the session's two players.
func (g *GameSession) HasPlayer(connID int) bool {
	return g.PlayerA == connID || g.PlayerB == connID
}

// HasObserver reports whether connID is observing the session.
func (g *GameSession) HasObserver(connID int) bool {
	for _, id := range g.Observers {
		if id == connID {
			return true
		}
	}
	return false
}

// Participants returns the connection IDs of both players and every observer,
// excluding the given connection.
func (g *GameSession) Participants(excluding int) []int {
	var ids []int
	if g.PlayerA != excluding {
		ids = append(ids, g.PlayerA)
	}
	if g.PlayerB != excluding {
		ids = append(ids, g.PlayerB)
	}
	for _, id := range g.Observers {
		if id != excluding {
			ids = append(ids, id)
		}
	}
	return ids
}

// Manager owns the pending-match slot and the collection of live sessions.
// All state is guarded by one mutex: matchmaking and chat fan-out cross
// session boundaries, so per-session locking would not be sound.
type Manager struct {
	mu       sync.RWMutex
	nextID   uint32
	pending  int
	sessions []*GameSession

	// pickTurn decides which mark acts first in a new session. Overridable
	// for deterministic tests.
	pickTurn func() string
}

func NewManager() *Manager {
	return &Manager{
		pending: NoPendingPlayer,
		pickTurn: func() string {
			if rand.Intn(2) == 0 {
				return MarkX
			}
			return MarkO
		},
	}
}

// Enqueue adds a connection to matchmaking. If the pending slot is empty the
// connection parks there and Enqueue returns (nil, false). Otherwise a new
// GameSession is created from the waiting connection and this one, the slot
// is cleared, and the session is returned. The fill-and-clear is atomic under
// the manager's lock, so the slot can never be observed holding a stale ID.
func (m *Manager) Enqueue(connID int) (*GameSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == NoPendingPlayer {
		m.pending = connID
		return nil, false
	}

	m.nextID++
	session := &GameSession{
		ID:      m.nextID,
		PlayerA: m.pending,
		PlayerB: connID,
		Turn:    m.pickTurn(),
	}
	m.sessions = append(m.sessions, session)
	m.pending = NoPendingPlayer

	return session, true
}

// PendingPlayer returns the connection currently waiting for a match, or
// NoPendingPlayer.
func (m *Manager) PendingPlayer() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending
}

// Dequeue clears the pending slot if it holds connID, reporting whether it
// did. Called when a waiting connection leaves the server so the slot cannot
// pair a future player against a dead connection.
func (m *Manager) Dequeue(connID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != connID {
		return false
	}
	m.pending = NoPendingPlayer
	return true
}

// FindByParticipant returns the session connID belongs to as a player or an
// observer, or nil. First match wins; a connection belonging to more than one
// session is undefined behavior.
func (m *Manager) FindByParticipant(connID int) *GameSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if session.HasPlayer(connID) || session.HasObserver(connID) {
			return session
		}
	}
	return nil
}

// ByID returns the session with the given stable ID.
func (m *Manager) ByID(id uint32) (*GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return nil, ErrNoSuchSession
}

// ApplyMove overwrites the session's board with the client-supplied cells and
// flips the turn. No legality or turn-ownership check is made server-side;
// the turn flip is the only enforced element.
func (m *Manager) ApplyMove(session *GameSession, cells [9]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session.Board = cells
	if session.Turn == MarkX {
		session.Turn = MarkO
	} else {
		session.Turn = MarkX
	}
}

// JoinAsObserver attaches connID to the identified session for read-only
// visibility and returns the session for the initial board sync. An unknown
// ID (including one from a stale session list snapshot) is rejected with
// ErrNoSuchSession.
func (m *Manager) JoinAsObserver(id uint32, connID int) (*GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		if session.ID == id {
			if !session.HasObserver(connID) {
				session.Observers = append(session.Observers, connID)
			}
			return session, nil
		}
	}
	return nil, ErrNoSuchSession
}

// Leave removes connID from its session. An observer leaving is removed from
// the observer set and the session persists. A player leaving destroys the
// session, since the game cannot continue with one player. Leave returns the
// affected session, the IDs of every other participant to notify, and
// whether the session was destroyed.
func (m *Manager) Leave(connID int, isObserver bool) (session *GameSession, notify []int, destroyed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var index int
	for i, s := range m.sessions {
		if s.HasPlayer(connID) || s.HasObserver(connID) {
			session, index = s, i
			break
		}
	}
	if session == nil {
		return nil, nil, false
	}

	if isObserver {
		for i, id := range session.Observers {
			if id == connID {
				session.Observers = append(session.Observers[:i], session.Observers[i+1:]...)
				break
			}
		}
		return session, nil, false
	}

	notify = session.Participants(connID)
	m.sessions = append(m.sessions[:index], m.sessions[index+1:]...)
	return session, notify, true
}

// SessionIDs returns the stable IDs of all live sessions in creation order.
func (m *Manager) SessionIDs() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uint32, 0, len(m.sessions))
	for _, session := range m.sessions {
		ids = append(ids, session.ID)
	}
	return ids
}

// Snapshot returns copies of all live sessions for read-only consumers (the
// status API); mutating a snapshot has no effect on the manager's state.
func (m *Manager) Snapshot() []GameSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]GameSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		copied := *session
		copied.Observers = append([]int(nil), session.Observers...)
		sessions = append(sessions, copied)
	}
	return sessions
}
