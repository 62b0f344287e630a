package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/gridlinehq/gridline/internal/wire"
)

// Client represents one game client connected to the hall over TCP. Messages
// are newline-terminated lines in the comma-delimited wire format.
type Client struct {
	connection net.Conn
	reader     *bufio.Reader
	ipAddr     string
	port       string

	// ID is the connection identifier assigned by the frontend when the
	// connection is accepted. All session and chat routing is keyed on it.
	ID int

	// Username and LoggedIn reflect the client's progression through the
	// login flow. Both are zero until a Login message succeeds.
	Username string
	LoggedIn bool

	// Debugging information used for logging purposes.
	DebugTags map[string]interface{}

	// Writes can come from the handler of another client's message (chat
	// fan-out, session updates), so they are serialized here.
	sendMu sync.Mutex
}

func NewClient(connection net.Conn, id int) *Client {
	addr := strings.Split(connection.RemoteAddr().String(), ":")

	c := &Client{
		connection: connection,
		reader:     bufio.NewReader(connection),
		ID:         id,
		DebugTags:  make(map[string]interface{}),
	}
	c.ipAddr = addr[0]
	if len(addr) > 1 {
		c.port = addr[1]
	}
	return c
}

func (c *Client) IPAddr() string { return c.ipAddr }
func (c *Client) Port() string   { return c.port }

// ReadMessage blocks until the client sends its next line and returns the
// decoded message. Malformed lines surface as wire.ErrMalformedMessage so the
// caller can drop them without tearing down the connection.
func (c *Client) ReadMessage() (*wire.Message, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return wire.Decode(line)
}

// Send encodes the message and writes it to the client as one line.
func (c *Client) Send(msg wire.Message) error {
	return c.SendRaw(wire.Encode(msg.Signifier, msg.Fields...))
}

// SendRaw writes an already-encoded line to the client, appending the line
// terminator.
func (c *Client) SendRaw(line string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if _, err := c.connection.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to send to client %v: %s", c.ipAddr, err.Error())
	}
	return nil
}

// Close the TCP connection.
func (c *Client) Close() error {
	return c.connection.Close()
}
