package hall

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridlinehq/gridline/internal/account"
	"github.com/gridlinehq/gridline/internal/core"
	"github.com/gridlinehq/gridline/internal/core/cache"
	"github.com/gridlinehq/gridline/internal/core/client"
	"github.com/gridlinehq/gridline/internal/core/data"
	"github.com/gridlinehq/gridline/internal/wire"
)

func setUpHall(t *testing.T) *Server {
	t.Helper()

	db, err := data.Initialize("sqlite", filepath.Join(t.TempDir(), "hall_test.db"), false)
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}
	t.Cleanup(func() { data.Shutdown(db) })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &core.Config{MaxConnections: 100}
	cfg.Hall.MaxPayloadBytes = 1024
	cfg.Hall.RecordSizeBytes = 224

	s := &Server{
		Name:   "HALL",
		Config: cfg,
		Logger: logger,
		DB:     db,
		Frames: cache.NewMemory[[]wire.Message](),
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() returned error: %s", err)
	}
	return s
}

// testClient is the far end of a hall connection. A goroutine drains every
// line the hall sends so handler sends never block on the pipe.
type testClient struct {
	c     *client.Client
	lines chan string
}

func connect(t *testing.T, s *Server, id int) *testClient {
	t.Helper()

	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() {
		serverSide.Close()
		clientSide.Close()
	})

	tc := &testClient{
		c:     client.NewClient(serverSide, id),
		lines: make(chan string, 128),
	}
	go func() {
		reader := bufio.NewReader(clientSide)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(tc.lines)
				return
			}
			tc.lines <- strings.TrimRight(line, "\n")
		}
	}()

	if err := s.OnConnect(tc.c); err != nil {
		t.Fatalf("OnConnect() returned error: %s", err)
	}
	return tc
}

// next returns the next line sent to this client, failing the test if none
// arrives in time.
func (tc *testClient) next(t *testing.T) string {
	t.Helper()
	select {
	case line, ok := <-tc.lines:
		if !ok {
			t.Fatal("connection closed while waiting for a line")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a line from the hall")
		return ""
	}
}

// drain discards lines until the hall goes quiet so a test can assert on
// what follows. Handlers send synchronously, so a short idle window is enough
// to know nothing else is in flight.
func (tc *testClient) drain() {
	for {
		select {
		case <-tc.lines:
		case <-time.After(100 * time.Millisecond):
			return
		}
	}
}

func handle(t *testing.T, s *Server, tc *testClient, signifier int, fields ...string) {
	t.Helper()
	err := s.Handle(context.Background(), tc.c, &wire.Message{Signifier: signifier, Fields: fields})
	if err != nil {
		t.Fatalf("Handle(%d) returned error: %s", signifier, err)
	}
}

func login(t *testing.T, s *Server, tc *testClient, username string) {
	t.Helper()
	handle(t, s, tc, wire.CreateAccount, username, "hunter2")
	handle(t, s, tc, wire.Login, username, "hunter2")
	tc.drain()
}

func TestHallGreeting(t *testing.T) {
	s := setUpHall(t)
	tc := connect(t, s, 1)

	want := []string{
		"108,0,", // empty session list
		"113,",   // start of recordings
		"114,",   // end of recordings
		"106,",   // connection verified
	}
	for _, line := range want {
		if got := tc.next(t); got != line {
			t.Errorf("greeting line = %q, want %q", got, line)
		}
	}
}

func TestHallAccountFlow(t *testing.T) {
	s := setUpHall(t)
	tc := connect(t, s, 1)
	tc.drain()

	handle(t, s, tc, wire.CreateAccount, "alice", "hunter2")
	if got := tc.next(t); got != "102,10001," {
		t.Errorf("create response = %q, want success", got)
	}

	handle(t, s, tc, wire.CreateAccount, "alice", "other")
	if got := tc.next(t); got != "102,10002," {
		t.Errorf("duplicate create response = %q, want username taken", got)
	}

	handle(t, s, tc, wire.Login, "alice", "wrong")
	if got := tc.next(t); got != "101,1004," {
		t.Errorf("wrong password response = %q", got)
	}

	handle(t, s, tc, wire.Login, "nobody", "hunter2")
	if got := tc.next(t); got != "101,1003," {
		t.Errorf("unknown name response = %q", got)
	}

	handle(t, s, tc, wire.Login, "alice", "hunter2")
	if got := tc.next(t); got != "101,1001," {
		t.Errorf("login response = %q, want success", got)
	}
	if !tc.c.LoggedIn || tc.c.Username != "alice" {
		t.Error("client was not bound to the account after login")
	}

	// A second connection on the same account is turned away.
	second := connect(t, s, 2)
	second.drain()
	handle(t, s, second, wire.Login, "alice", "hunter2")
	if got := second.next(t); got != "101,1005," {
		t.Errorf("second login response = %q, want already logged on", got)
	}
}

func TestHallMatchmaking(t *testing.T) {
	s := setUpHall(t)
	first := connect(t, s, 1)
	second := connect(t, s, 2)
	login(t, s, first, "alice")
	login(t, s, second, "bob")
	second.drain() // alice's login does not reach bob, but be safe

	handle(t, s, first, wire.AddToGameSessionQueue)
	first.drain()

	handle(t, s, second, wire.AddToGameSessionQueue)

	started := second.next(t)
	if !strings.HasPrefix(started, "103,1,X,") || !strings.HasSuffix(started, ",1,") {
		t.Errorf("joiner start message = %q, want session 1 as X, player 1", started)
	}
	if got := first.next(t); !strings.HasPrefix(got, "103,1,O,") || !strings.HasSuffix(got, ",2,") {
		t.Errorf("waiter start message = %q, want session 1 as O, player 2", got)
	}

	// Both learn about the new session.
	if got := second.next(t); got != "108,1,1," {
		t.Errorf("session update = %q, want one session with ID 1", got)
	}
	if got := first.next(t); got != "108,1,1," {
		t.Errorf("session update = %q, want one session with ID 1", got)
	}
}

func TestHallBoardUpdate(t *testing.T) {
	s := setUpHall(t)
	first := connect(t, s, 1)
	second := connect(t, s, 2)
	observer := connect(t, s, 3)
	login(t, s, first, "alice")
	login(t, s, second, "bob")
	login(t, s, observer, "carol")

	handle(t, s, first, wire.AddToGameSessionQueue)
	handle(t, s, second, wire.AddToGameSessionQueue)
	first.drain()
	second.drain()
	observer.drain()

	handle(t, s, observer, wire.AddToObserverQueue, "1")
	if got := observer.next(t); got != "109," {
		t.Errorf("observer confirmation = %q", got)
	}
	if got := observer.next(t); !strings.HasPrefix(got, "105,") {
		t.Errorf("observer board sync = %q, want a board update", got)
	}

	handle(t, s, second, wire.UpdateBoard, "X", "", "", "", "", "", "", "", "")

	for name, tc := range map[string]*testClient{"player one": first, "player two": second, "observer": observer} {
		got := tc.next(t)
		if !strings.HasPrefix(got, "105,") || !strings.Contains(got, ",X,,,,,,,,,") {
			t.Errorf("%s board update = %q, want new cells", name, got)
		}
	}
}

func TestHallChatFanOut(t *testing.T) {
	s := setUpHall(t)
	first := connect(t, s, 1)
	second := connect(t, s, 2)
	observer := connect(t, s, 3)
	login(t, s, first, "alice")
	login(t, s, second, "bob")
	login(t, s, observer, "carol")

	handle(t, s, first, wire.AddToGameSessionQueue)
	handle(t, s, second, wire.AddToGameSessionQueue)
	handle(t, s, observer, wire.AddToObserverQueue, "1")
	first.drain()
	second.drain()
	observer.drain()

	handle(t, s, first, wire.ChatMessage, "true", "false", "false", "hello bob")
	if got := second.next(t); got != "107,hello bob," {
		t.Errorf("session chat = %q", got)
	}
	if got := first.next(t); got != "107,hello bob," {
		t.Errorf("sender did not receive their own session chat: %q", got)
	}

	handle(t, s, first, wire.ChatMessage, "false", "true", "false", "hi watchers")
	if got := observer.next(t); got != "107,hi watchers," {
		t.Errorf("observer chat = %q", got)
	}
}

func TestHallLeaveDestroysSession(t *testing.T) {
	s := setUpHall(t)
	first := connect(t, s, 1)
	second := connect(t, s, 2)
	login(t, s, first, "alice")
	login(t, s, second, "bob")

	handle(t, s, first, wire.AddToGameSessionQueue)
	handle(t, s, second, wire.AddToGameSessionQueue)
	first.drain()
	second.drain()

	handle(t, s, first, wire.LeaveSession, "false")

	if got := second.next(t); got != "110," {
		t.Errorf("remaining player got %q, want player disconnected", got)
	}
	if got := second.next(t); got != "108,0," {
		t.Errorf("session update = %q, want empty list", got)
	}
	if s.sessions.FindByParticipant(2) != nil {
		t.Error("session survived a player leaving")
	}
}

func TestHallRecordingUpload(t *testing.T) {
	s := setUpHall(t)
	first := connect(t, s, 1)
	second := connect(t, s, 2)
	login(t, s, first, "alice")
	login(t, s, second, "bob")

	record := wire.Record{
		Cells:          [9]string{"X", "", "", "", "O", "", "", "", ""},
		ServerResponse: "move accepted",
		TimeRecorded:   1.5,
		Messages:       []string{"gg"},
	}
	blob := wire.MarshalRecord(record)

	handle(t, s, first, wire.SendRecord, "1", blob)
	handle(t, s, first, wire.RecordSendingDone, "2026-08-28 10:00:00", "alice")

	// Both connections receive the full replay with the new recording.
	for _, tc := range []*testClient{first, second} {
		if got := tc.next(t); got != "113," {
			t.Fatalf("replay start = %q", got)
		}
		if got := tc.next(t); !strings.HasPrefix(got, "111,1,") {
			t.Errorf("recording chunk = %q, want one record", got)
		}
		if got := tc.next(t); got != "112,2026-08-28 10:00:00,alice," {
			t.Errorf("end of record = %q", got)
		}
		if got := tc.next(t); got != "114," {
			t.Errorf("replay end = %q", got)
		}
	}

	stored, err := data.AllRecordings(s.DB)
	if err != nil {
		t.Fatalf("AllRecordings() returned error: %s", err)
	}
	if len(stored) != 1 || len(stored[0].Records) != 1 {
		t.Fatalf("stored %d recordings, want 1 with 1 record", len(stored))
	}
	if stored[0].Username != "alice" {
		t.Errorf("stored username = %q, want alice", stored[0].Username)
	}
}

func TestHallRecordingUploadSurvivesStorageFailure(t *testing.T) {
	s := setUpHall(t)
	tc := connect(t, s, 1)
	login(t, s, tc, "alice")

	// Sever the database underneath the hall so the recording write fails.
	sqlDB, err := s.DB.DB()
	if err != nil {
		t.Fatalf("DB() returned error: %s", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("closing database: %s", err)
	}

	record := wire.Record{
		Cells:          [9]string{"X", "", "", "", "O", "", "", "", ""},
		ServerResponse: "move accepted",
		TimeRecorded:   1.5,
		Messages:       []string{"gg"},
	}
	handle(t, s, tc, wire.SendRecord, "1", wire.MarshalRecord(record))
	handle(t, s, tc, wire.RecordSendingDone, "2026-08-28 11:00:00", "alice")

	// The uploader stays connected and still receives the replay built from
	// the in-memory copy of the recording.
	if got := tc.next(t); got != "113," {
		t.Fatalf("replay start = %q", got)
	}
	if got := tc.next(t); !strings.HasPrefix(got, "111,1,") {
		t.Errorf("recording chunk = %q, want one record", got)
	}
	if got := tc.next(t); got != "112,2026-08-28 11:00:00,alice," {
		t.Errorf("end of record = %q", got)
	}
	if got := tc.next(t); got != "114," {
		t.Errorf("replay end = %q", got)
	}
}

func TestHallBanKicksOnlinePlayer(t *testing.T) {
	s := setUpHall(t)
	tc := connect(t, s, 1)
	login(t, s, tc, "alice")

	if err := s.Ban("alice"); err != nil {
		t.Fatalf("Ban() returned error: %s", err)
	}
	if got := tc.next(t); got != "115," {
		t.Errorf("banned player got %q, want kick", got)
	}

	// The released login can be proven through the directory: a fresh login
	// attempt reports the ban rather than an active session.
	handle(t, s, tc, wire.Login, "alice", "hunter2")
	if got := tc.next(t); got != "101,1006," {
		t.Errorf("login after ban = %q, want banned", got)
	}

	if _, err := s.Unban("alice"); err != nil {
		t.Fatalf("Unban() returned error: %s", err)
	}
	handle(t, s, tc, wire.Login, "alice", "hunter2")
	if got := tc.next(t); got != "101,1001," {
		t.Errorf("login after unban = %q, want success", got)
	}
}

func TestHallDisconnectActsAsLeave(t *testing.T) {
	s := setUpHall(t)
	first := connect(t, s, 1)
	second := connect(t, s, 2)
	login(t, s, first, "alice")
	login(t, s, second, "bob")

	handle(t, s, first, wire.AddToGameSessionQueue)
	handle(t, s, second, wire.AddToGameSessionQueue)
	first.drain()
	second.drain()

	s.OnDisconnect(first.c)

	if got := second.next(t); got != "110," {
		t.Errorf("remaining player got %q, want player disconnected", got)
	}
	if got := second.next(t); got != "108,0," {
		t.Errorf("session update = %q, want empty list", got)
	}

	// The dropped player's login is released.
	if s.table.Lookup(1) != nil {
		t.Error("disconnected client still present in the table")
	}
	if err := s.directory.Authenticate("alice", "hunter2"); errors.Is(err, account.ErrAlreadyLoggedOn) {
		t.Error("login was not released on disconnect")
	}
}
