package message_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorlab/signaling/server/message"
	"github.com/tutorlab/signaling/server/multierr"
)

func TestValidate_join(t *testing.T) {
	assert.NoError(t, message.NewJoin("r1", "u1").Validate())

	err := message.NewJoin("", "u1").Validate()
	assert.True(t, multierr.Is(err, message.ErrMissingRoomID), "got: %v", err)

	err = message.NewJoin("r1", "").Validate()
	assert.True(t, multierr.Is(err, message.ErrMissingUserID), "got: %v", err)
}

func TestValidate_signal(t *testing.T) {
	data := json.RawMessage(`{"sdp":"v=0"}`)

	msg := message.NewSignal(message.TypeOffer, "r1", "u1", "u2", data)
	assert.NoError(t, msg.Validate())
	assert.True(t, msg.IsSignal())

	msg.TargetUserID = ""
	err := msg.Validate()
	assert.True(t, multierr.Is(err, message.ErrMissingTargetID), "got: %v", err)
}

func TestValidate_unknownType(t *testing.T) {
	msg := message.Message{Type: "bogus"}
	err := msg.Validate()
	assert.True(t, multierr.Is(err, message.ErrUnknownType), "got: %v", err)

	// Server-to-client types are not valid input either.
	err = message.NewPing().Validate()
	assert.True(t, multierr.Is(err, message.ErrUnknownType), "got: %v", err)
}

func TestForwarded(t *testing.T) {
	data := json.RawMessage(`{"candidate":"foo"}`)

	msg := message.NewSignal(message.TypeICECandidate, "r1", "u1", "u2", data)
	fwd := msg.Forwarded("u1")

	assert.Equal(t, message.TypeICECandidate, fwd.Type)
	assert.Equal(t, "u1", fwd.FromUserID.String())
	assert.Empty(t, fwd.TargetUserID)
	assert.Empty(t, fwd.UserID)
	assert.Equal(t, data, fwd.Data)
}

func TestSerialize_noTrailingNewline(t *testing.T) {
	s := message.NewByteSerializer()

	b, err := s.Serialize(message.NewUserJoined("r1", "u1"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "\n")
	assert.JSONEq(t, `{"type":"user-joined","roomId":"r1","userId":"u1"}`, string(b))
}

func TestSerializeDeserialize_opaqueData(t *testing.T) {
	s := message.NewByteSerializer()

	data := json.RawMessage(`{"sdp":"v=0\r\no=- 123"}`)
	in := message.NewSignal(message.TypeAnswer, "r1", "u1", "u2", data)

	b, err := s.Serialize(in)
	require.NoError(t, err)

	out, err := s.Deserialize(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDeserialize_invalidJSON(t *testing.T) {
	s := message.NewByteSerializer()

	_, err := s.Deserialize([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deserialize")
}

func TestJoined_wireFormat(t *testing.T) {
	s := message.NewByteSerializer()

	b, err := s.Serialize(message.NewJoined("r1", "u1", 3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"joined","roomId":"r1","userId":"u1","participantCount":3}`, string(b))
}
