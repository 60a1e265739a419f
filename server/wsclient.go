package server

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/tutorlab/signaling/server/message"
	"github.com/tutorlab/signaling/server/uuid"
	"nhooyr.io/websocket"
)

type WSWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, msg []byte) error
}

type WSReader interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
}

type WSReadWriter interface {
	WSReader
	WSWriter
}

const defaultWriteTimeout = 5 * time.Second

// Client wraps a websocket connection for use by the stores and router. Each
// client gets a process-unique socket id; the participant id only becomes
// known once a join message arrives.
type Client struct {
	socketID   string
	conn       WSReadWriter
	serializer message.ByteSerializer

	errMu sync.RWMutex
	err   error
}

var _ ClientWriter = &Client{}

// NewClient creates a new websocket client with a generated socket id.
func NewClient(conn WSReadWriter) *Client {
	return &Client{
		socketID:   uuid.New(),
		conn:       conn,
		serializer: message.NewByteSerializer(),
	}
}

func (c *Client) SocketID() string {
	return c.socketID
}

// WriteTimeout writes a message to the websocket with the provided timeout.
func (c *Client) WriteTimeout(ctx context.Context, timeout time.Duration, msg message.Message) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := c.serializer.Serialize(msg)
	if err != nil {
		return errors.Trace(err)
	}

	return errors.Annotate(c.conn.Write(ctx, websocket.MessageText, data), "write")
}

// Write writes a message to the client socket. Sends are fire-and-forget
// with a bounded timeout so one slow consumer cannot stall the relay.
func (c *Client) Write(msg message.Message) error {
	return errors.Trace(c.WriteTimeout(context.Background(), defaultWriteTimeout, msg))
}

// Err returns the error that terminated the read loop, if any.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.err
}

// Subscribe starts a read pump and returns a channel of raw inbound frames.
// The channel is closed when reading fails or ctx is done; the cause is then
// available via Err. Frames are delivered undecoded so that a frame that
// fails to parse can be answered with an error message instead of tearing
// down the connection.
func (c *Client) Subscribe(ctx context.Context) <-chan []byte {
	frames := make(chan []byte)

	go func() {
		for {
			typ, data, err := c.conn.Read(ctx)

			if err == nil && typ != websocket.MessageText {
				err = errors.Errorf("expected text message, got: %d", typ)
			}

			if err != nil {
				c.errMu.Lock()
				close(frames)
				// Keep the raw error so callers can match close statuses.
				c.err = err
				c.errMu.Unlock()

				return
			}

			frames <- data
		}
	}()

	return frames
}
