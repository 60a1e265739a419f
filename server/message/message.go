package message

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/tutorlab/signaling/server/identifiers"
)

// Type is the tag of the wire envelope.
type Type string

const (
	// Client to server.
	TypeJoin         Type = "join"
	TypeLeave        Type = "leave"
	TypeOffer        Type = "offer"
	TypeAnswer       Type = "answer"
	TypeICECandidate Type = "ice-candidate"
	TypePong         Type = "pong"

	// Server to client.
	TypeJoined               Type = "joined"
	TypeExistingParticipants Type = "existing-participants"
	TypeUserJoined           Type = "user-joined"
	TypeUserLeft             Type = "user-left"
	TypeError                Type = "error"
	TypePing                 Type = "ping"
)

var (
	ErrUnknownType     = errors.New("unknown message type")
	ErrMissingRoomID   = errors.New("missing roomId")
	ErrMissingUserID   = errors.New("missing userId")
	ErrMissingTargetID = errors.New("missing targetUserId")
)

// Message is the flat JSON envelope shared by requests and responses. Only
// the fields relevant to a particular Type are set. Data carries SDP blobs
// and ICE candidates and is forwarded without interpretation.
type Message struct {
	Type             Type                 `json:"type"`
	RoomID           identifiers.RoomID   `json:"roomId,omitempty"`
	UserID           identifiers.UserID   `json:"userId,omitempty"`
	TargetUserID     identifiers.UserID   `json:"targetUserId,omitempty"`
	FromUserID       identifiers.UserID   `json:"fromUserId,omitempty"`
	Data             json.RawMessage      `json:"data,omitempty"`
	ParticipantCount int                  `json:"participantCount,omitempty"`
	Participants     []identifiers.UserID `json:"participants,omitempty"`
	Message          string               `json:"message,omitempty"`
}

// IsSignal returns true for the unicast forwarding types.
func (m Message) IsSignal() bool {
	switch m.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	default:
		return false
	}
}

// Validate checks that the required fields for the message type are present.
// Server-to-client types are not valid input.
func (m Message) Validate() error {
	switch m.Type {
	case TypeJoin, TypeLeave:
		if m.RoomID == "" {
			return errors.Trace(ErrMissingRoomID)
		}

		if m.UserID == "" {
			return errors.Trace(ErrMissingUserID)
		}
	case TypeOffer, TypeAnswer, TypeICECandidate:
		if m.UserID == "" {
			return errors.Trace(ErrMissingUserID)
		}

		if m.TargetUserID == "" {
			return errors.Trace(ErrMissingTargetID)
		}
	case TypePong:
	default:
		return errors.Annotatef(ErrUnknownType, "type: %q", m.Type)
	}

	return nil
}

func NewJoin(roomID identifiers.RoomID, userID identifiers.UserID) Message {
	return Message{
		Type:   TypeJoin,
		RoomID: roomID,
		UserID: userID,
	}
}

func NewLeave(roomID identifiers.RoomID, userID identifiers.UserID) Message {
	return Message{
		Type:   TypeLeave,
		RoomID: roomID,
		UserID: userID,
	}
}

// NewSignal builds a client-side unicast signaling message. The data payload
// is opaque to the relay.
func NewSignal(
	typ Type,
	roomID identifiers.RoomID,
	userID identifiers.UserID,
	targetUserID identifiers.UserID,
	data json.RawMessage,
) Message {
	return Message{
		Type:         typ,
		RoomID:       roomID,
		UserID:       userID,
		TargetUserID: targetUserID,
		Data:         data,
	}
}

func NewJoined(roomID identifiers.RoomID, userID identifiers.UserID, participantCount int) Message {
	return Message{
		Type:             TypeJoined,
		RoomID:           roomID,
		UserID:           userID,
		ParticipantCount: participantCount,
	}
}

func NewExistingParticipants(roomID identifiers.RoomID, participants []identifiers.UserID) Message {
	return Message{
		Type:         TypeExistingParticipants,
		RoomID:       roomID,
		Participants: participants,
	}
}

func NewUserJoined(roomID identifiers.RoomID, userID identifiers.UserID) Message {
	return Message{
		Type:   TypeUserJoined,
		RoomID: roomID,
		UserID: userID,
	}
}

func NewUserLeft(roomID identifiers.RoomID, userID identifiers.UserID) Message {
	return Message{
		Type:   TypeUserLeft,
		RoomID: roomID,
		UserID: userID,
	}
}

func NewError(msg string) Message {
	return Message{
		Type:    TypeError,
		Message: msg,
	}
}

func NewPing() Message {
	return Message{Type: TypePing}
}

func NewPong() Message {
	return Message{Type: TypePong}
}

// Forwarded returns a copy of a unicast signaling message as delivered to its
// target: re-tagged with the sender in fromUserId, with the routing fields
// cleared.
func (m Message) Forwarded(from identifiers.UserID) Message {
	return Message{
		Type:       m.Type,
		RoomID:     m.RoomID,
		FromUserID: from,
		Data:       m.Data,
	}
}
