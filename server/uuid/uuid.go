// Package uuid generates short base62-encoded unique identifiers, used for
// socket ids.
package uuid

import (
	"github.com/google/uuid"
	"github.com/tutorlab/signaling/server/basen"
)

var defaultEncoder = basen.NewEncoder(basen.AlphabetBase62)

func New() string {
	value := uuid.New()

	return defaultEncoder.Encode(value[:])
}
