package internal

import (
	"context"

	"github.com/gridlinehq/gridline/internal/core/client"
	"github.com/gridlinehq/gridline/internal/wire"
)

// Backend is an interface for a sub-server that handles a specific set of
// client interactions as part of the game flow.
type Backend interface {
	// Name returns a uniquely identifying string.
	Identifier() string

	// Init is called before a Backend is started as a hook for the Backend to
	// perform any necessary initialization before it can accept clients.
	Init(ctx context.Context) error

	// OnConnect performs any greeting necessary to begin communicating with
	// the client, e.g. the connection verification message and initial state
	// sync.
	OnConnect(c *client.Client) error

	// Handle is the main entry point for processing client messages. It's
	// responsible for generally handling all messages from a client as well
	// as sending any responses.
	Handle(ctx context.Context, c *client.Client, msg *wire.Message) error

	// OnDisconnect is called exactly once after the client's connection
	// closes, however that happens, so the Backend can release any state
	// attached to it.
	OnDisconnect(c *client.Client)
}
