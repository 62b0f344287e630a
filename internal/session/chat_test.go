package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// chatFixture builds two sessions: (5, 9) with observer 30 and (12, 14)
// with observer 31.
func chatFixture(t *testing.T) (*Manager, *GameSession, *GameSession) {
	t.Helper()

	m := NewManager()
	m.Enqueue(5)
	first, _ := m.Enqueue(9)
	if _, err := m.JoinAsObserver(first.ID, 30); err != nil {
		t.Fatalf("JoinAsObserver() unexpected error: %v", err)
	}

	m.Enqueue(12)
	second, _ := m.Enqueue(14)
	if _, err := m.JoinAsObserver(second.ID, 31); err != nil {
		t.Fatalf("JoinAsObserver() unexpected error: %v", err)
	}
	return m, first, second
}

func TestManager_ChatRecipients(t *testing.T) {
	tests := []struct {
		name                                      string
		fromConnID                                int
		toGameSession, toObservers, toOtherClients bool
		want                                      []int
	}{
		{
			name:          "session only",
			fromConnID:    5,
			toGameSession: true,
			want:          []int{5, 9},
		},
		{
			name:        "observers only",
			fromConnID:  5,
			toObservers: true,
			want:        []int{30},
		},
		{
			name:           "other clients only",
			fromConnID:     5,
			toOtherClients: true,
			want:           []int{12, 14},
		},
		{
			name:           "all flags",
			fromConnID:     5,
			toGameSession:  true,
			toObservers:    true,
			toOtherClients: true,
			want:           []int{5, 9, 30, 12, 14},
		},
		{
			name:       "no flags",
			fromConnID: 5,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, first, _ := chatFixture(t)
			got := m.ChatRecipients(first, tt.fromConnID, tt.toGameSession, tt.toObservers, tt.toOtherClients)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("recipient list mismatch; diff:\n%s", diff)
			}
		})
	}
}

func TestManager_ChatRecipientsDeduplicates(t *testing.T) {
	m := NewManager()
	m.Enqueue(5)
	session, _ := m.Enqueue(9)

	// A player who also sits in the observer set must still appear once.
	if _, err := m.JoinAsObserver(session.ID, 9); err != nil {
		t.Fatalf("JoinAsObserver() unexpected error: %v", err)
	}

	got := m.ChatRecipients(session, 5, true, true, false)
	if diff := cmp.Diff([]int{5, 9}, got); diff != "" {
		t.Errorf("recipient list mismatch; diff:\n%s", diff)
	}
}

func TestManager_ChatRecipientsSkipsSendersOtherSessions(t *testing.T) {
	m, first, second := chatFixture(t)

	// Observer 30 watches the first session; when a player of the second
	// session messages "other clients", the first session's players still
	// receive it, but sessions the sender itself participates in do not.
	if _, err := m.JoinAsObserver(first.ID, 12); err != nil {
		t.Fatalf("JoinAsObserver() unexpected error: %v", err)
	}

	got := m.ChatRecipients(second, 12, false, false, true)
	if len(got) != 0 {
		t.Errorf("recipients = %v, want none: sender observes the only other session", got)
	}

	// A participant with no outside involvement reaches the other session.
	got = m.ChatRecipients(second, 14, false, false, true)
	if diff := cmp.Diff([]int{5, 9}, got); diff != "" {
		t.Errorf("recipient list mismatch; diff:\n%s", diff)
	}
}
