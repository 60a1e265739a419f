package uuid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tutorlab/signaling/server/uuid"
)

func TestNew(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
