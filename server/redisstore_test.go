package server_test

import (
	"testing"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorlab/signaling/server"
	"github.com/tutorlab/signaling/server/identifiers"
	"github.com/tutorlab/signaling/server/message"
	"github.com/tutorlab/signaling/server/test"
	"github.com/tutorlab/signaling/server/uuid"
	"go.uber.org/goleak"
)

// chanClient is a ClientWriter whose writes can be awaited. Pubsub delivery
// happens on the store's subscription goroutine, so the recording mock used
// by the memory store tests would race.
type chanClient struct {
	socketID string
	out      chan message.Message
}

func newChanClient(socketID string) *chanClient {
	return &chanClient{
		socketID: socketID,
		out:      make(chan message.Message, 10),
	}
}

var _ server.ClientWriter = &chanClient{}

func (c *chanClient) SocketID() string {
	return c.socketID
}

func (c *chanClient) Write(msg message.Message) error {
	c.out <- msg

	return nil
}

func recv(t *testing.T, ch <-chan message.Message) message.Message {
	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")

		return message.Message{}
	}
}

func expectNothing(t *testing.T, ch <-chan message.Message) {
	t.Helper()

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func configureRedis(t *testing.T) (pub *redis.Client, sub *redis.Client, prefix string, stop func()) {
	t.Helper()

	pub = redis.NewClient(&redis.Options{
		Addr:        "localhost:6379",
		DialTimeout: 10 * time.Second,
	})
	sub = redis.NewClient(&redis.Options{
		Addr:        "localhost:6379",
		DialTimeout: 10 * time.Second,
	})

	if err := pub.Ping().Err(); err != nil {
		pub.Close()
		sub.Close()
		t.Skip("redis is not available:", err)
	}

	// A unique prefix isolates each test run.
	prefix = "signalingtest:" + uuid.New()

	return pub, sub, prefix, func() {
		if keys, err := pub.Keys(prefix + "*").Result(); err == nil && len(keys) > 0 {
			pub.Del(keys...)
		}

		pub.Close()
		sub.Close()
	}
}

func newRedisStore(t *testing.T, pub, sub *redis.Client, prefix string) *server.RedisStore {
	t.Helper()

	store, err := server.NewRedisStore(test.NewLogger(), pub, sub, prefix)
	require.NoError(t, err)

	return store
}

func TestRedisStore_register_lookup_remove(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub, sub, prefix, stop := configureRedis(t)
	defer stop()

	store := newRedisStore(t, pub, sub, prefix)
	defer store.Close()

	alice := newChanClient("sock-1")

	_, replaced := store.Register(newSession("sock-1", room, "alice"), alice)
	assert.False(t, replaced)

	got, ok := store.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, alice, got)

	sess, ok := store.Session("alice")
	require.True(t, ok)
	assert.Equal(t, room, sess.RoomID)

	n, err := store.NumConnections()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	store.Remove("alice")

	_, ok = store.Lookup("alice")
	assert.False(t, ok)

	n, err = store.NumConnections()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisStore_remoteUnicast(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub, sub, prefix, stop := configureRedis(t)
	defer stop()

	// Two stores with the same prefix behave like two relay instances.
	store1 := newRedisStore(t, pub, sub, prefix)
	defer store1.Close()

	store2 := newRedisStore(t, pub, sub, prefix)
	defer store2.Close()

	alice := newChanClient("sock-1")
	_, _ = store1.Register(newSession("sock-1", room, "alice"), alice)

	// Instance 2 has no local socket for alice but can still resolve her.
	remote, ok := store2.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "sock-1", remote.SocketID())

	forwarded := message.NewSignal(message.TypeOffer, room, "bob", "alice", nil).Forwarded("bob")
	require.NoError(t, remote.Write(forwarded))

	assert.Equal(t, forwarded, recv(t, alice.out))
}

func TestRedisStore_broadcastAcrossInstances(t *testing.T) {
	defer goleak.VerifyNone(t)
	defer test.Timeout(t, 10*time.Second)()

	pub, sub, prefix, stop := configureRedis(t)
	defer stop()

	store1 := newRedisStore(t, pub, sub, prefix)
	defer store1.Close()

	store2 := newRedisStore(t, pub, sub, prefix)
	defer store2.Close()

	alice := newChanClient("sock-1")
	bob := newChanClient("sock-2")

	members, err := store1.Join(room, "alice", alice)
	require.NoError(t, err)
	assert.Equal(t, []identifiers.UserID{"alice"}, members)

	members, err = store2.Join(room, "bob", bob)
	require.NoError(t, err)
	assert.Equal(t, []identifiers.UserID{"alice", "bob"}, members)

	msg := message.NewUserJoined(room, "bob")

	results := store2.BroadcastExcept(room, "bob", msg)
	for _, result := range results {
		require.NoError(t, result.Err)
	}

	// Delivery crosses instances but excludes the sender.
	assert.Equal(t, msg, recv(t, alice.out))
	expectNothing(t, bob.out)

	removed, empty, err := store1.Leave(room, "alice")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, empty)

	removed, empty, err = store2.Leave(room, "bob")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, empty)

	numRooms, err := store1.NumRooms()
	require.NoError(t, err)
	assert.Equal(t, 0, numRooms)
}

func TestRedisStore_removeKeepsNewerRegistration(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub, sub, prefix, stop := configureRedis(t)
	defer stop()

	store1 := newRedisStore(t, pub, sub, prefix)
	defer store1.Close()

	store2 := newRedisStore(t, pub, sub, prefix)
	defer store2.Close()

	_, replaced := store1.Register(newSession("sock-1", room, "alice"), newChanClient("sock-1"))
	assert.False(t, replaced)

	// Alice reconnects through instance 2 before instance 1 noticed the
	// disconnect.
	prev, replaced := store2.Register(newSession("sock-2", room, "alice"), newChanClient("sock-2"))
	require.True(t, replaced)
	assert.Equal(t, "sock-1", prev.SocketID)

	// The stale cleanup on instance 1 must not tear down the newer
	// registration.
	store1.Remove("alice")

	sess, ok := store2.Session("alice")
	require.True(t, ok)
	assert.Equal(t, "sock-2", sess.SocketID)
}
