package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorlab/signaling/server"
	"github.com/tutorlab/signaling/server/test"
	"go.uber.org/goleak"
)

func TestStoreFactory_memory(t *testing.T) {
	defer goleak.VerifyNone(t)

	f, err := server.NewStoreFactory(test.NewLogger(), server.StoreConfig{
		Type: server.StoreTypeMemory,
	})
	require.NoError(t, err)

	assert.IsType(t, &server.MemoryConnectionStore{}, f.Connections)
	assert.IsType(t, &server.MemoryRoomStore{}, f.Rooms)

	// Two distinct stores, each closed exactly once.
	assert.NotEqual(t, any(f.Connections), any(f.Rooms))

	assert.NoError(t, f.Close())
}

func TestStoreFactory_redis(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Reuse the availability check so the test skips without a local redis.
	_, _, _, stop := configureRedis(t)
	stop()

	f, err := server.NewStoreFactory(test.NewLogger(), server.StoreConfig{
		Type: server.StoreTypeRedis,
		Redis: server.RedisConfig{
			Host:   "localhost",
			Port:   6379,
			Prefix: "signalingtest",
		},
	})
	require.NoError(t, err)

	// One RedisStore backs both registries.
	assert.Equal(t, f.Connections, f.Rooms)

	assert.NoError(t, f.Close())
}
