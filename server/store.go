package server

import (
	"time"

	"github.com/tutorlab/signaling/server/identifiers"
	"github.com/tutorlab/signaling/server/message"
)

// ClientWriter is the transport handle the stores keep for each participant.
type ClientWriter interface {
	// SocketID identifies the underlying socket, not the participant.
	SocketID() string
	Write(msg message.Message) error
}

// Session is the per-connection record created on join. Keeping it in the
// ConnectionStore, rather than in connection-handler closures, means the
// cleanup on socket close always sees the same state the router does.
type Session struct {
	SocketID string               `json:"socketId"`
	RoomID   identifiers.RoomID   `json:"roomId"`
	UserID   identifiers.UserID   `json:"userId"`
	JoinedAt time.Time            `json:"joinedAt"`
}

// SendResult reports the outcome of a single send within a broadcast.
type SendResult struct {
	UserID identifiers.UserID
	Err    error
}

// ConnectionStore is the authoritative mapping of participant id to its live
// transport handle and session. Registration is last-write-wins: a newer
// registration for the same user replaces the older one without error, which
// orphans the previous socket.
type ConnectionStore interface {
	// Register inserts or overwrites the entry for the session's user. When an
	// entry was overwritten, the previous session is returned.
	Register(session Session, client ClientWriter) (prev Session, replaced bool)

	// Lookup resolves a unicast target. Absence is not an error.
	Lookup(userID identifiers.UserID) (ClientWriter, bool)

	// Session returns the session currently registered for the user.
	Session(userID identifiers.UserID) (Session, bool)

	// SessionBySocket returns the session whose registration still points at
	// the given socket. A socket orphaned by a later registration for the same
	// user has no session.
	SessionBySocket(socketID string) (Session, bool)

	// Remove deletes the entry for the user. Removing an absent user is a
	// no-op.
	Remove(userID identifiers.UserID)

	// NumConnections returns the number of registered participants.
	NumConnections() (int, error)

	Close() error
}

// RoomStore is the authoritative mapping of room id to its member set. Rooms
// are created lazily on first join and deleted eagerly when the member set
// becomes empty.
type RoomStore interface {
	// Join adds the user to the room, creating it when absent, and returns the
	// updated member list including the new user.
	Join(roomID identifiers.RoomID, userID identifiers.UserID, client ClientWriter) ([]identifiers.UserID, error)

	// Leave removes the user from the room. removed reports whether the user
	// was a member, empty whether the room was deleted as a result.
	Leave(roomID identifiers.RoomID, userID identifiers.UserID) (removed bool, empty bool, err error)

	// Members returns the room's member ids in sorted order.
	Members(roomID identifiers.RoomID) ([]identifiers.UserID, error)

	// NumMembers returns the number of members in the room.
	NumMembers(roomID identifiers.RoomID) (int, error)

	// NumRooms returns the number of rooms with at least one member.
	NumRooms() (int, error)

	// BroadcastExcept sends msg to every room member other than exclude. Sends
	// are best-effort: one failed send never prevents delivery to others. The
	// per-send outcomes are returned for the caller to inspect.
	BroadcastExcept(roomID identifiers.RoomID, exclude identifiers.UserID, msg message.Message) []SendResult

	Close() error
}
