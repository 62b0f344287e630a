// Package hall implements the game hall: the single backend every game
// client connects to. It authenticates accounts, pairs players into game
// sessions, relays board moves and chat, and stores the gameplay recordings
// clients upload.
package hall

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/gridlinehq/gridline/internal/account"
	"github.com/gridlinehq/gridline/internal/core"
	"github.com/gridlinehq/gridline/internal/core/cache"
	"github.com/gridlinehq/gridline/internal/core/client"
	"github.com/gridlinehq/gridline/internal/recording"
	"github.com/gridlinehq/gridline/internal/session"
	"github.com/gridlinehq/gridline/internal/wire"
)

// framesCacheKey is the single key under which the encoded recording
// broadcast frames are memoized. Invalidated whenever a recording is added.
const framesCacheKey = "recording-frames"

// Server is the HALL server implementation. The mutex serializes every state
// transition (client messages, disconnects, and administrative commands), so
// handlers can treat the hall's state as single-threaded.
type Server struct {
	Name   string
	Config *core.Config
	Logger *logrus.Logger
	DB     *gorm.DB
	Frames cache.Cache[[]wire.Message]

	directory *account.Directory
	sessions  *session.Manager
	table     *Table

	mu         sync.Mutex
	recordings []wire.Recording
	assemblers map[int]*recording.Assembler
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(_ context.Context) error {
	s.directory = account.NewDirectory(s.DB, s.Logger)
	s.sessions = session.NewManager()
	s.table = NewTable()
	s.assemblers = make(map[int]*recording.Assembler)

	recordings, err := loadRecordings(s.DB)
	if err != nil {
		return err
	}
	s.recordings = recordings

	s.Logger.Infof("[%s] loaded %d stored recordings", s.Name, len(s.recordings))
	return nil
}

// OnConnect greets a freshly accepted connection: the session list goes to
// everybody, the stored recordings are replayed to the new connection, and
// the connection verification message closes the greeting.
func (s *Server) OnConnect(c *client.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table.Add(c)
	s.broadcastSessionList()

	if err := s.sendRecordings(c); err != nil {
		return err
	}
	return c.Send(wire.Message{Signifier: wire.VerifyConnection})
}

// OnDisconnect tears down whatever the connection left behind: its session
// membership, its matchmaking slot, its login, and any half-uploaded
// recording.
func (s *Server) OnDisconnect(c *client.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leaveSession(c, s.isObserver(c.ID))
	s.releaseConnection(c)
	s.table.Remove(c.ID)
	s.broadcastSessionList()
}

func (s *Server) Handle(ctx context.Context, c *client.Client, msg *wire.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch msg.Signifier {
	case wire.Login:
		err = s.handleLogin(c, msg)
	case wire.CreateAccount:
		err = s.handleCreateAccount(c, msg)
	case wire.AddToGameSessionQueue:
		err = s.handleEnqueue(c)
	case wire.PlayOnBoard:
		err = s.handlePlay(c)
	case wire.UpdateBoard:
		err = s.handleUpdateBoard(c, msg)
	case wire.ChatMessage:
		err = s.handleChat(c, msg)
	case wire.AddToObserverQueue:
		err = s.handleObserve(c, msg)
	case wire.LeaveSession:
		err = s.handleLeaveSession(c, msg)
	case wire.LeaveServer:
		err = s.handleLeaveServer(c, msg)
	case wire.SendRecord:
		err = s.handleSendRecord(c, msg)
	case wire.RecordSendingDone:
		err = s.handleRecordSendingDone(ctx, c, msg)
	default:
		s.Logger.Infof("received unknown signifier %d from %s", msg.Signifier, c.IPAddr())
	}

	return err
}

func (s *Server) handleLogin(c *client.Client, msg *wire.Message) error {
	username := msg.Field(0)
	password := msg.Field(1)

	code := wire.LoginSuccess
	switch err := s.directory.Authenticate(username, password); err {
	case nil:
		s.table.Bind(c.ID, username)
		s.Logger.Infof("connection %d logged in as %s", c.ID, username)
	case account.ErrWrongName:
		code = wire.LoginWrongName
	case account.ErrWrongPassword:
		code = wire.LoginWrongPassword
	case account.ErrAlreadyLoggedOn:
		code = wire.LoginAlreadyLoggedOn
	case account.ErrBanned:
		code = wire.LoginBanned
	default:
		sendErr := s.sendMessage(c, cases.Title(language.English).String(err.Error()))
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	return c.Send(wire.Message{
		Signifier: wire.LoginResponse,
		Fields:    []string{strconv.Itoa(code)},
	})
}

func (s *Server) handleCreateAccount(c *client.Client, msg *wire.Message) error {
	username := msg.Field(0)
	password := msg.Field(1)

	code := wire.CreateSuccess
	switch err := s.directory.CreateAccount(username, password); err {
	case nil:
		s.Logger.Infof("connection %d created account %s", c.ID, username)
	case account.ErrUsernameTaken:
		code = wire.CreateUsernameTaken
	default:
		sendErr := s.sendMessage(c, cases.Title(language.English).String(err.Error()))
		if sendErr != nil {
			return sendErr
		}
		return err
	}

	return c.Send(wire.Message{
		Signifier: wire.CreateResponse,
		Fields:    []string{strconv.Itoa(code)},
	})
}

func (s *Server) handleEnqueue(c *client.Client) error {
	gs, created := s.sessions.Enqueue(c.ID)
	if !created {
		s.Logger.Infof("%s is waiting for a match", s.table.Username(c.ID))
		return nil
	}

	// The connection that completed the match plays X; the one that was
	// waiting plays O.
	id := strconv.FormatUint(uint64(gs.ID), 10)
	err := c.Send(wire.Message{
		Signifier: wire.GameSessionStarted,
		Fields:    []string{id, session.MarkX, gs.Turn, "1"},
	})
	if err != nil {
		return err
	}

	if waiting := s.table.Lookup(gs.PlayerA); waiting != nil {
		err = waiting.Send(wire.Message{
			Signifier: wire.GameSessionStarted,
			Fields:    []string{id, session.MarkO, gs.Turn, "2"},
		})
		if err != nil {
			return err
		}
	}

	s.Logger.Infof("session %d started between %s and %s",
		gs.ID, s.table.Username(gs.PlayerA), s.table.Username(gs.PlayerB))
	s.broadcastSessionList()
	return nil
}

func (s *Server) handlePlay(c *client.Client) error {
	gs := s.sessions.FindByParticipant(c.ID)
	if gs == nil {
		s.Logger.Warnf("connection %d played outside of a session", c.ID)
		return nil
	}

	ack := wire.Message{
		Signifier: wire.OpponentPlayed,
		Fields:    []string{"hello from server"},
	}
	s.sendToConnections([]int{gs.PlayerA, gs.PlayerB}, ack)
	return nil
}

func (s *Server) handleUpdateBoard(c *client.Client, msg *wire.Message) error {
	gs := s.sessions.FindByParticipant(c.ID)
	if gs == nil {
		s.Logger.Warnf("connection %d updated a board outside of a session", c.ID)
		return nil
	}

	var cells [9]string
	for i := range cells {
		cells[i] = msg.Field(i)
	}
	s.sessions.ApplyMove(gs, cells)

	s.Logger.Infof("%s made a board move", s.table.Username(c.ID))

	update := boardMessage(gs)
	s.sendToConnections(append([]int{gs.PlayerA, gs.PlayerB}, gs.Observers...), update)
	return nil
}

func (s *Server) handleChat(c *client.Client, msg *wire.Message) error {
	gs := s.sessions.FindByParticipant(c.ID)
	if gs == nil {
		s.Logger.Warnf("connection %d sent chat outside of a session", c.ID)
		return nil
	}

	toGameSession, err := msg.BoolField(0)
	if err != nil {
		return s.dropMalformed(c, msg, err)
	}
	toObservers, err := msg.BoolField(1)
	if err != nil {
		return s.dropMalformed(c, msg, err)
	}
	toOtherClients, err := msg.BoolField(2)
	if err != nil {
		return s.dropMalformed(c, msg, err)
	}

	recipients := s.sessions.ChatRecipients(gs, c.ID, toGameSession, toObservers, toOtherClients)
	s.sendToConnections(recipients, wire.Message{
		Signifier: wire.MessageToClient,
		Fields:    []string{msg.Field(3)},
	})
	return nil
}

func (s *Server) handleObserve(c *client.Client, msg *wire.Message) error {
	id, err := msg.NumericField(0)
	if err != nil {
		return s.dropMalformed(c, msg, err)
	}

	gs, err := s.sessions.JoinAsObserver(uint32(id), c.ID)
	if err != nil {
		s.Logger.Warnf("connection %d tried to observe session %d: %s", c.ID, id, err)
		return nil
	}

	s.Logger.Infof("%s joined session %d as an observer", s.table.Username(c.ID), gs.ID)

	if err := c.Send(wire.Message{Signifier: wire.ConfirmObserver}); err != nil {
		return err
	}
	// Initial board sync so the observer starts from the live state.
	return c.Send(boardMessage(gs))
}

func (s *Server) handleLeaveSession(c *client.Client, msg *wire.Message) error {
	isObserver, err := msg.BoolField(0)
	if err != nil {
		return s.dropMalformed(c, msg, err)
	}

	s.Logger.Infof("%s left the session", s.table.Username(c.ID))
	s.leaveSession(c, isObserver)
	s.broadcastSessionList()
	return nil
}

func (s *Server) handleLeaveServer(c *client.Client, msg *wire.Message) error {
	isObserver, err := msg.BoolField(0)
	if err != nil {
		return s.dropMalformed(c, msg, err)
	}

	s.Logger.Infof("%s left the server", s.table.Username(c.ID))
	s.leaveSession(c, isObserver)
	s.releaseConnection(c)
	s.broadcastSessionList()
	return nil
}

func (s *Server) handleSendRecord(c *client.Client, msg *wire.Message) error {
	count, err := msg.NumericField(0)
	if err != nil {
		return s.dropMalformed(c, msg, err)
	}

	asm, ok := s.assemblers[c.ID]
	if !ok {
		asm = &recording.Assembler{}
		s.assemblers[c.ID] = asm
	}

	if err := asm.Append(count, msg.Fields[1:]); err != nil {
		return s.dropMalformed(c, msg, err)
	}
	return nil
}

func (s *Server) handleRecordSendingDone(ctx context.Context, c *client.Client, msg *wire.Message) error {
	asm, ok := s.assemblers[c.ID]
	if !ok {
		asm = &recording.Assembler{}
	}

	rec := asm.Finalize(msg.Field(0), msg.Field(1))
	delete(s.assemblers, c.ID)

	s.Logger.Infof("%s: new recording received (%d records)", s.table.Username(c.ID), len(rec.Records))

	if err := persistRecording(s.DB, rec); err != nil {
		// Keep serving the recording from memory; it just won't survive
		// a restart.
		s.Logger.Warnf("failed to persist recording from %s: %s", rec.Username, err)
	}
	s.recordings = append(s.recordings, rec)

	if err := s.Frames.Delete(ctx, framesCacheKey); err != nil {
		s.Logger.Warnf("failed to invalidate recording frames: %s", err)
	}

	// Every client gets a fresh copy so they all hold the new recording.
	var firstErr error
	for _, peer := range s.table.All() {
		if err := s.sendRecordings(peer); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// leaveSession applies the session side of a leave: an observer is removed
// quietly, a player destroys the session and every remaining participant is
// told the player disconnected.
func (s *Server) leaveSession(c *client.Client, isObserver bool) {
	gs, notify, destroyed := s.sessions.Leave(c.ID, isObserver)
	if gs == nil {
		// The connection may be sitting in the matchmaking slot instead.
		if s.sessions.Dequeue(c.ID) {
			s.Logger.Infof("connection %d left the matchmaking slot", c.ID)
		}
		return
	}

	if destroyed {
		s.sendToConnections(notify, wire.Message{Signifier: wire.PlayerDisconnected})
	}
}

// releaseConnection severs the account binding, freeing the username for a
// fresh login.
func (s *Server) releaseConnection(c *client.Client) {
	if username := s.table.Username(c.ID); username != "" {
		s.directory.Deauthenticate(username)
	}
	s.table.Unbind(c.ID)
	delete(s.assemblers, c.ID)
}

// isObserver reports whether the connection's session membership, if any, is
// as an observer rather than a player.
func (s *Server) isObserver(connID int) bool {
	gs := s.sessions.FindByParticipant(connID)
	return gs != nil && !gs.HasPlayer(connID)
}

// broadcastSessionList advertises the IDs of all live sessions to every
// connection, prefixed with the session count.
func (s *Server) broadcastSessionList() {
	ids := s.sessions.SessionIDs()
	fields := make([]string, 0, len(ids)+1)
	fields = append(fields, strconv.Itoa(len(ids)))
	for _, id := range ids {
		fields = append(fields, strconv.FormatUint(uint64(id), 10))
	}

	update := wire.Message{Signifier: wire.UpdateSessions, Fields: fields}
	for _, c := range s.table.All() {
		if err := c.Send(update); err != nil {
			s.Logger.Warnf("failed to send session update to %s: %s", c.IPAddr(), err)
		}
	}
}

// sendRecordings replays the full stored recording set to one connection,
// using the memoized broadcast frames.
func (s *Server) sendRecordings(c *client.Client) error {
	recordings := s.recordings
	chunkSize := s.Config.MaxRecordsPerMessage()

	frames, err := s.Frames.GetOrFetch(context.Background(), framesCacheKey, cache.NoExpiration,
		func(_ context.Context) ([]wire.Message, error) {
			return recording.BroadcastFrames(recordings, chunkSize), nil
		})
	if err != nil {
		return fmt.Errorf("building recording frames: %w", err)
	}

	for _, frame := range frames {
		if err := c.Send(frame); err != nil {
			return err
		}
	}
	return nil
}

// sendToConnections delivers msg to each live connection in ids. Send
// failures are logged rather than propagated so one dead connection cannot
// stall fan-out to the rest.
func (s *Server) sendToConnections(ids []int, msg wire.Message) {
	for _, id := range ids {
		c := s.table.Lookup(id)
		if c == nil {
			continue
		}
		if err := c.Send(msg); err != nil {
			s.Logger.Warnf("failed to send %d to connection %d: %s", msg.Signifier, id, err)
		}
	}
}

// sendMessage sends operator-facing text to the client's chat view.
func (s *Server) sendMessage(c *client.Client, text string) error {
	return c.Send(wire.Message{
		Signifier: wire.MessageToClient,
		Fields:    []string{text},
	})
}

// dropMalformed logs a message that failed field parsing and carries on. Per
// the protocol's error model a garbled message from one client is never
// fatal to the hall.
func (s *Server) dropMalformed(c *client.Client, msg *wire.Message, err error) error {
	s.Logger.Warnf("dropping malformed message %d from %s: %s", msg.Signifier, c.IPAddr(), err)
	return nil
}

// boardMessage builds the board sync frame: the mark that acts next followed
// by all nine cells.
func boardMessage(gs *session.GameSession) wire.Message {
	fields := make([]string, 0, 10)
	fields = append(fields, gs.Turn)
	fields = append(fields, gs.Board[:]...)
	return wire.Message{Signifier: wire.UpdateBoardOnClientSide, Fields: fields}
}
