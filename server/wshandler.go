package server

import (
	"context"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/tutorlab/signaling/server/logger"
	"github.com/tutorlab/signaling/server/message"
	"github.com/tutorlab/signaling/server/multierr"
	"nhooyr.io/websocket"
)

const defaultPingInterval = 5 * time.Second

// WSS terminates websocket upgrades and wires socket lifecycle events to the
// router. Each connection gets its own read pump and pinger; the per-socket
// session state lives in the connection store, so the cleanup on close only
// needs the socket id.
type WSS struct {
	log          logger.Logger
	router       *Router
	deserializer message.Deserializer
	pingInterval time.Duration
}

func NewWSS(log logger.Logger, router *Router, pingInterval time.Duration) *WSS {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}

	return &WSS{
		log:          log.WithNamespaceAppended("ws"),
		router:       router,
		deserializer: message.NewByteSerializer(),
		pingInterval: pingInterval,
	}
}

func (wss *WSS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var err error

	start := time.Now()

	prometheusWSConnTotal.Inc()
	prometheusWSConnActive.Inc()

	defer func() {
		prometheusWSConnActive.Dec()

		if err != nil {
			prometheusWSConnErrTotal.Inc()
		}

		prometheusWSConnDuration.Observe(time.Since(start).Seconds())
	}()

	var c *websocket.Conn

	c, err = websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		wss.log.Error("Accept websocket connection", errors.Trace(err), nil)

		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := NewClient(c)

	log := wss.log.WithCtx(logger.Ctx{
		"socket_id": client.SocketID(),
	})

	log.Info("New websocket connection", nil)

	defer func() {
		log.Info("Closing websocket connection", nil)
		c.Close(websocket.StatusInternalError, "")
	}()

	// An abrupt disconnect is an implicit leave for whatever the socket last
	// joined.
	defer wss.router.HandleClose(client)

	pinger := NewPinger(ctx, wss.pingInterval, func() {
		if err := client.Write(message.NewPing()); err != nil {
			log.Debug("Ping failed", logger.Ctx{"error": err.Error()})
		}
	})

	for data := range client.Subscribe(ctx) {
		msg, msgErr := wss.deserializer.Deserialize(data)
		if msgErr != nil {
			prometheusMalformedTotal.Inc()

			log.Info("Malformed frame", logger.Ctx{
				"reason": msgErr.Error(),
			})

			if writeErr := client.Write(message.NewError("invalid message")); writeErr != nil {
				log.Error("Write error frame", errors.Trace(writeErr), nil)
			}

			continue
		}

		if msg.Type == message.TypePong {
			pinger.ReceivePong()

			continue
		}

		wss.router.HandleMessage(client, msg)
	}

	err = client.Err()

	if multierr.Is(err, context.Canceled) {
		err = nil

		return
	}

	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		err = nil

		return
	}

	if err != nil {
		log.Info("Subscription ended", logger.Ctx{
			"reason": err.Error(),
		})
	}
}
