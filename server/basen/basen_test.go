package basen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorlab/signaling/server/basen"
)

func TestEncodeDecode(t *testing.T) {
	enc := basen.NewEncoder(basen.AlphabetBase62)
	dec := basen.NewDecoder(basen.AlphabetBase62)

	data := []byte{0x12, 0x34, 0x56, 0x78, 0x9a}

	encoded := enc.Encode(data)
	require.NotEmpty(t, encoded)

	decoded, err := dec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEncode_empty(t *testing.T) {
	enc := basen.NewEncoder(basen.AlphabetBase62)
	assert.Equal(t, "", enc.Encode(nil))
}

func TestDecode_invalidCharacter(t *testing.T) {
	dec := basen.NewDecoder(basen.AlphabetBase62)

	_, err := dec.Decode("abc!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in alphabet")
}
