package message

import (
	"bytes"
	"encoding/json"

	"github.com/juju/errors"
	"github.com/oxtoacart/bpool"
)

type Serializer interface {
	Serialize(message Message) ([]byte, error)
}

type Deserializer interface {
	Deserialize([]byte) (Message, error)
}

const defaultBufferPoolSize = 128

// ByteSerializer encodes messages as JSON text frames. Encode buffers come
// from a shared pool.
type ByteSerializer struct {
	bufPool *bpool.BufferPool
}

var _ Serializer = ByteSerializer{}
var _ Deserializer = ByteSerializer{}

func NewByteSerializer() ByteSerializer {
	return ByteSerializer{
		bufPool: bpool.NewBufferPool(defaultBufferPoolSize),
	}
}

func (s ByteSerializer) Serialize(m Message) ([]byte, error) {
	buf := s.bufPool.Get()
	defer s.bufPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(m); err != nil {
		return nil, errors.Annotatef(err, "serialize message: %s", m.Type)
	}

	// Frames on the wire carry no trailing newline.
	b := bytes.TrimRight(buf.Bytes(), "\n")

	ret := make([]byte, len(b))
	copy(ret, b)

	return ret, nil
}

func (s ByteSerializer) Deserialize(data []byte) (msg Message, err error) {
	err = json.Unmarshal(data, &msg)

	return msg, errors.Annotate(err, "deserialize message")
}
