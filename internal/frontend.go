package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridlinehq/gridline/internal/core"
	"github.com/gridlinehq/gridline/internal/core/client"
	coredebug "github.com/gridlinehq/gridline/internal/core/debug"
	"github.com/gridlinehq/gridline/internal/wire"
)

var connectedClients struct {
	sync.Mutex
	nextID  int
	clients map[int]*client.Client
}

// frontend implements the concurrent client connection logic.
//
// Lines are read from any connected clients and passed to a backend instance,
// abstracting the lower level connection details away from the Backends.
type frontend struct {
	Address string
	Backend Backend
	Config  *core.Config
	Logger  *logrus.Logger
}

// Start initializes the server backend and opens a TCP socket for the specified server.
// A blocking loop for accepting client connections is spun off in its own goroutine and
// added to the WaitGroup. Context cancellations will stop the server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := f.Backend.Init(ctx); err != nil {
		return fmt.Errorf("error initializing %s server: %v", f.Backend.Identifier(), err)
	}

	socket, err := f.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %v", f.Address, err)
	}

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

// createSocket opens a TCP socket to listen for client connections on the Address
// provided to the frontend.
func (f *frontend) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %s", err.Error())
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %s", err.Error())
	}

	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely responsible for
// accepting new connections and spinning off goroutines for the Backend to handle them.
func (f *frontend) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Printf("[%s] waiting for connections on %v", f.Backend.Identifier(), f.Address)

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for numConnectedClients() >= f.Config.MaxConnections {
				time.Sleep(10 * time.Second)
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				f.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			// Note: If there is eventually a need to implement worker pooling rather than spawning
			// new goroutines for each client, this is where it should be implemented.
			go f.acceptClient(ctx, connection, clientWg)
		}
	}

	f.Logger.Infof("[%v] shutting down (waiting for connections to close)", f.Backend.Identifier())
	clientWg.Wait()
	f.Logger.Infof("[%v] exited", f.Backend.Identifier())
}

func numConnectedClients() int {
	connectedClients.Lock()
	defer connectedClients.Unlock()
	return len(connectedClients.clients)
}

// acceptClient takes a connection, assigns it the next connection ID, and
// hands it to the Backend for greeting. If that succeeds, the goroutine moves
// into the message processing loop.
func (f *frontend) acceptClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	connectedClients.Lock()
	if connectedClients.clients == nil {
		connectedClients.clients = make(map[int]*client.Client)
	}
	connectedClients.nextID++
	c := client.NewClient(connection, connectedClients.nextID)
	connectedClients.clients[c.ID] = c
	connectedClients.Unlock()

	f.Logger.Infof("[%s] accepted connection %d from %s", f.Backend.Identifier(), c.ID, c.IPAddr())

	if err := f.Backend.OnConnect(c); err != nil {
		f.Logger.Errorf("OnConnect() failed for client %s: %s", c.IPAddr(), err)
	}

	f.processMessages(ctx, c)
}

// processMessages starts a blocking loop dedicated to reading lines sent from
// a game client and only returns once the connection has closed.
func (f *frontend) processMessages(ctx context.Context, c *client.Client) {
	defer f.closeConnectionAndRecover(f.Backend.Identifier(), c)

	for {
		select {
		case <-ctx.Done():
			// For now just allow the deferred function to close the connection.
			return
		default:
		}

		msg, err := c.ReadMessage()

		if err == io.EOF {
			break
		} else if errors.Is(err, wire.ErrMalformedMessage) {
			// A garbled line from one client is recoverable; drop it and keep
			// the connection.
			f.Logger.Warnf("dropping malformed message from %s: %s", c.IPAddr(), err)
			continue
		} else if err != nil {
			f.Logger.Warn(err.Error())
			break
		}

		if f.Config.Debugging.MessageLoggingEnabled {
			coredebug.PrintMessage(f.Logger, c.ID, msg)
		}

		if err = f.Backend.Handle(ctx, c, msg); err != nil {
			f.Logger.Warn("error in client communication: " + err.Error())
			return
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics, disconnects the
// client, and removes them from the list regardless of the state of the connection.
func (f *frontend) closeConnectionAndRecover(serverName string, c *client.Client) {
	if err := recover(); err != nil {
		f.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.IPAddr(), err, debug.Stack())
	}

	f.Backend.OnDisconnect(c)

	if err := c.Close(); err != nil {
		f.Logger.Warnf("failed to close client connection: %s", err)
	}

	connectedClients.Lock()
	delete(connectedClients.clients, c.ID)
	connectedClients.Unlock()

	f.Logger.Infof("[%s] disconnected client %d (%s)", serverName, c.ID, c.IPAddr())
}
