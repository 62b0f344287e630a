package session

// ChatRecipients resolves a chat message's client-supplied authority flags
// against session membership and returns the concrete delivery list:
//
//   - toGameSession: both players of the sender's session (the sender included
//     if they are a player),
//   - toObservers: every observer of the sender's session,
//   - toOtherClients: both players of every other session in which the sender
//     is neither a player nor an observer.
//
// The list is de-duplicated by connection ID, so a connection reachable
// through more than one flag receives the message once. The flags are taken
// at face value; the sender's actual role in the session is not checked.
func (m *Manager) ChatRecipients(session *GameSession, fromConnID int, toGameSession, toObservers, toOtherClients bool) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int]struct{})
	var recipients []int
	add := func(id int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	if toGameSession {
		add(session.PlayerA)
		add(session.PlayerB)
	}
	if toObservers {
		for _, id := range session.Observers {
			add(id)
		}
	}
	if toOtherClients {
		for _, other := range m.sessions {
			if other.ID == session.ID {
				continue
			}
			if other.HasPlayer(fromConnID) || other.HasObserver(fromConnID) {
				continue
			}
			add(other.PlayerA)
			add(other.PlayerB)
		}
	}

	return recipients
}
