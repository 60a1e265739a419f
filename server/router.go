package server

import (
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/tutorlab/signaling/server/identifiers"
	"github.com/tutorlab/signaling/server/logger"
	"github.com/tutorlab/signaling/server/message"
)

// Router interprets inbound control messages and dispatches them to either a
// room-wide broadcast (join/leave notices) or a single targeted peer
// (offer/answer/ice-candidate). It never tears down a connection because of
// one bad message: malformed input is answered with an error frame to the
// sender only.
type Router struct {
	log         logger.Logger
	rooms       RoomStore
	connections ConnectionStore
	clock       func() time.Time
}

func NewRouter(log logger.Logger, rooms RoomStore, connections ConnectionStore) *Router {
	return &Router{
		log:         log.WithNamespaceAppended("router"),
		rooms:       rooms,
		connections: connections,
		clock:       time.Now,
	}
}

// HandleMessage processes one inbound frame for the given socket.
func (r *Router) HandleMessage(client ClientWriter, msg message.Message) {
	prometheusMessagesTotal.WithLabelValues(string(msg.Type)).Inc()

	if err := msg.Validate(); err != nil {
		prometheusMalformedTotal.Inc()

		r.log.Info("Invalid message", logger.Ctx{
			"message_type": msg.Type,
			"reason":       err.Error(),
		})

		r.writeError(client, fmt.Sprintf("invalid message: %s", errors.Cause(err)))

		return
	}

	log := r.log.WithCtx(logger.Ctx{
		"room_id": msg.RoomID,
		"user_id": msg.UserID,
	})

	switch {
	case msg.Type == message.TypeJoin:
		r.handleJoin(log, client, msg)
	case msg.Type == message.TypeLeave:
		r.handleLeave(log, msg.RoomID, msg.UserID, "")
	case msg.IsSignal():
		r.handleSignal(log, msg)
	case msg.Type == message.TypePong:
		// Pongs are consumed by the connection handler's pinger; one arriving
		// here belongs to a connection without an active pinger and is
		// ignored.
	}
}

// HandleClose synthesizes a leave for a socket that disconnected without
// sending one. If the socket never completed a join there is nothing to clean
// up, since join is the only path that creates registry entries.
func (r *Router) HandleClose(client ClientWriter) {
	sess, ok := r.connections.SessionBySocket(client.SocketID())
	if !ok {
		return
	}

	log := r.log.WithCtx(logger.Ctx{
		"room_id": sess.RoomID,
		"user_id": sess.UserID,
	})

	log.Info("Socket closed, synthesizing leave", nil)

	r.handleLeave(log, sess.RoomID, sess.UserID, sess.SocketID)
}

func (r *Router) handleJoin(log logger.Logger, client ClientWriter, msg message.Message) {
	prometheusJoinTotal.Inc()

	// A repeat join from the same socket moves it: leave the old room first.
	if prev, ok := r.connections.SessionBySocket(client.SocketID()); ok {
		r.handleLeave(log, prev.RoomID, prev.UserID, prev.SocketID)
	}

	session := Session{
		SocketID: client.SocketID(),
		RoomID:   msg.RoomID,
		UserID:   msg.UserID,
		JoinedAt: r.clock(),
	}

	if prev, replaced := r.connections.Register(session, client); replaced {
		log.Info("Replaced previous registration", logger.Ctx{
			"prev_socket_id": prev.SocketID,
			"prev_room_id":   prev.RoomID,
		})

		// Last write wins, but the orphaned socket's close is a no-op, so a
		// rejoin from a new socket must vacate the previous room here or its
		// membership would linger forever.
		if prev.RoomID != msg.RoomID {
			removed, empty, err := r.rooms.Leave(prev.RoomID, msg.UserID)

			switch {
			case err != nil:
				log.Error("Leave previous room", errors.Trace(err), logger.Ctx{
					"prev_room_id": prev.RoomID,
				})
			case removed && !empty:
				r.broadcast(log, prev.RoomID, msg.UserID, message.NewUserLeft(prev.RoomID, msg.UserID))
			}
		}
	}

	members, err := r.rooms.Join(msg.RoomID, msg.UserID, client)
	if err != nil {
		log.Error("Join room", errors.Trace(err), nil)
		r.writeError(client, "join failed")

		return
	}

	log.Info("Joined room", logger.Ctx{
		"participant_count": len(members),
	})

	// The joiner's own view is made consistent before the rest of the room
	// hears about it: joined and existing-participants go out before the
	// user-joined broadcast.
	if err := client.Write(message.NewJoined(msg.RoomID, msg.UserID, len(members))); err != nil {
		log.Error("Write joined", errors.Trace(err), nil)
	}

	existing := make([]identifiers.UserID, 0, len(members)-1)

	for _, member := range members {
		if member != msg.UserID {
			existing = append(existing, member)
		}
	}

	if err := client.Write(message.NewExistingParticipants(msg.RoomID, existing)); err != nil {
		log.Error("Write existing participants", errors.Trace(err), nil)
	}

	r.broadcast(log, msg.RoomID, msg.UserID, message.NewUserJoined(msg.RoomID, msg.UserID))
}

// handleLeave removes the user from both registries and notifies the room.
// When socketID is non-empty the leave was synthesized from a socket close
// and only applies while the registration still points at that socket;
// otherwise the close of an orphaned socket would tear down a newer
// registration.
func (r *Router) handleLeave(
	log logger.Logger,
	roomID identifiers.RoomID,
	userID identifiers.UserID,
	socketID string,
) {
	sess, ok := r.connections.Session(userID)
	if !ok {
		// Removing an absent participant has no observable effect.
		return
	}

	if socketID != "" && sess.SocketID != socketID {
		return
	}

	prometheusLeaveTotal.Inc()

	r.connections.Remove(userID)

	removed, empty, err := r.rooms.Leave(roomID, userID)
	if err != nil {
		log.Error("Leave room", errors.Trace(err), nil)

		return
	}

	if !removed {
		return
	}

	log.Info("Left room", logger.Ctx{
		"room_empty": empty,
	})

	if !empty {
		r.broadcast(log, roomID, userID, message.NewUserLeft(roomID, userID))
	}
}

// handleSignal forwards an offer, answer or ice-candidate to its target. The
// payload is opaque and passes through unchanged apart from the fromUserId
// re-tag. The target is resolved by user id alone; no check is made that it
// shares a room with the sender.
func (r *Router) handleSignal(log logger.Logger, msg message.Message) {
	target, ok := r.connections.Lookup(msg.TargetUserID)
	if !ok {
		prometheusUnicastDroppedTotal.Inc()

		// The sender gets no failure signal; clients rely on their own
		// timeouts to tell "not yet joined" from "gone".
		log.Info("Unicast target not found, dropping", logger.Ctx{
			"message_type":   msg.Type,
			"target_user_id": msg.TargetUserID,
		})

		return
	}

	if err := target.Write(msg.Forwarded(msg.UserID)); err != nil {
		log.Error("Forward signal", errors.Trace(err), logger.Ctx{
			"message_type":   msg.Type,
			"target_user_id": msg.TargetUserID,
		})
	}
}

func (r *Router) broadcast(
	log logger.Logger,
	roomID identifiers.RoomID,
	exclude identifiers.UserID,
	msg message.Message,
) {
	for _, result := range r.rooms.BroadcastExcept(roomID, exclude, msg) {
		if result.Err != nil {
			prometheusBroadcastErrTotal.Inc()

			log.Error("Broadcast send", errors.Trace(result.Err), logger.Ctx{
				"message_type": msg.Type,
				"member_id":    result.UserID,
			})
		}
	}
}

func (r *Router) writeError(client ClientWriter, msg string) {
	if err := client.Write(message.NewError(msg)); err != nil {
		r.log.Error("Write error frame", errors.Trace(err), nil)
	}
}
