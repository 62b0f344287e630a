package hall

import (
	"sync"

	"github.com/gridlinehq/gridline/internal/core/client"
)

// Table tracks every live connection in the hall, keyed by connection ID.
// Authenticated connections additionally carry the username they are bound
// to, which is how administrative commands address players.
type Table struct {
	mu      sync.RWMutex
	clients map[int]*client.Client
}

func NewTable() *Table {
	return &Table{clients: make(map[int]*client.Client)}
}

// Add registers a freshly accepted, unauthenticated connection.
func (t *Table) Add(c *client.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[c.ID] = c
}

// Remove drops the connection from the table.
func (t *Table) Remove(connID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clients, connID)
}

// Bind marks the connection as authenticated under username.
func (t *Table) Bind(connID int, username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[connID]; ok {
		c.Username = username
		c.LoggedIn = true
	}
}

// Unbind clears the connection's authenticated state, leaving the connection
// itself in place.
func (t *Table) Unbind(connID int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[connID]; ok {
		c.Username = ""
		c.LoggedIn = false
	}
}

// Lookup returns the client for connID, or nil if it is not connected.
func (t *Table) Lookup(connID int) *client.Client {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clients[connID]
}

// LookupByUsername returns the client logged in as username, or nil if that
// account has no live connection.
func (t *Table) LookupByUsername(username string) *client.Client {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, c := range t.clients {
		if c.LoggedIn && c.Username == username {
			return c
		}
	}
	return nil
}

// All returns a snapshot of every live connection.
func (t *Table) All() []*client.Client {
	t.mu.RLock()
	defer t.mu.RUnlock()

	clients := make([]*client.Client, 0, len(t.clients))
	for _, c := range t.clients {
		clients = append(clients, c)
	}
	return clients
}

// Username returns the username bound to connID, or the empty string.
func (t *Table) Username(connID int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if c, ok := t.clients[connID]; ok {
		return c.Username
	}
	return ""
}
