package server

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/tutorlab/signaling/server/identifiers"
	"github.com/tutorlab/signaling/server/logger"
	"github.com/tutorlab/signaling/server/message"
	"github.com/tutorlab/signaling/server/multierr"
)

// redisEnvelope wraps a wire message for transport between relay instances.
// Exactly one of To or Room is set.
type redisEnvelope struct {
	// To is set for unicast forwards. The instance holding the target's
	// socket delivers the message, all others ignore it.
	To identifiers.UserID `json:"to,omitempty"`

	// Room and Exclude are set for room broadcasts. Every instance delivers
	// to its local members of the room except Exclude.
	Room    identifiers.RoomID `json:"room,omitempty"`
	Exclude identifiers.UserID `json:"exclude,omitempty"`

	Message message.Message `json:"message"`
}

// RedisStore implements both ConnectionStore and RoomStore on top of Redis so
// multiple relay instances can share presence. Registrations and room member
// sets live in hashes; message delivery between instances uses pub/sub. Each
// instance still only writes to its own local sockets.
type RedisStore struct {
	log logger.Logger

	pubRedis *redis.Client
	subRedis *redis.Client
	prefix   string

	mu       sync.RWMutex
	byUser   map[identifiers.UserID]connectionEntry
	bySocket map[string]identifiers.UserID
	rooms    map[identifiers.RoomID]map[identifiers.UserID]ClientWriter

	sub  *redis.PubSub
	done chan struct{}
}

var (
	_ ConnectionStore = &RedisStore{}
	_ RoomStore       = &RedisStore{}
)

func NewRedisStore(
	log logger.Logger,
	pubRedis *redis.Client,
	subRedis *redis.Client,
	prefix string,
) (*RedisStore, error) {
	s := &RedisStore{
		log:      log.WithNamespaceAppended("redis_store"),
		pubRedis: pubRedis,
		subRedis: subRedis,
		prefix:   prefix,
		byUser:   map[identifiers.UserID]connectionEntry{},
		bySocket: map[string]identifiers.UserID{},
		rooms:    map[identifiers.RoomID]map[identifiers.UserID]ClientWriter{},
		done:     make(chan struct{}),
	}

	s.sub = subRedis.PSubscribe(
		s.prefix+":room:*:broadcast",
		s.prefix+":user:*:signal",
	)

	// Wait for the subscription confirmation so no published message can be
	// missed by a store that NewRedisStore already returned.
	if _, err := s.sub.Receive(); err != nil {
		return nil, errors.Annotate(err, "subscribe")
	}

	go s.run()

	return s, nil
}

func (s *RedisStore) usersKey() string {
	return s.prefix + ":users"
}

func (s *RedisStore) roomMembersKey(roomID identifiers.RoomID) string {
	return s.prefix + ":room:" + roomID.String() + ":members"
}

func (s *RedisStore) roomChannel(roomID identifiers.RoomID) string {
	return s.prefix + ":room:" + roomID.String() + ":broadcast"
}

func (s *RedisStore) userChannel(userID identifiers.UserID) string {
	return s.prefix + ":user:" + userID.String() + ":signal"
}

func (s *RedisStore) run() {
	defer close(s.done)

	for msg := range s.sub.Channel() {
		if err := s.handlePayload(msg.Payload); err != nil {
			s.log.Error("Handle pubsub payload", errors.Trace(err), logger.Ctx{
				"channel": msg.Channel,
			})
		}
	}
}

func (s *RedisStore) handlePayload(payload string) error {
	var env redisEnvelope

	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return errors.Annotate(err, "unmarshal envelope")
	}

	if env.To != "" {
		s.mu.RLock()
		entry, ok := s.byUser[env.To]
		s.mu.RUnlock()

		if !ok {
			// The target is connected to another instance, or gone.
			return nil
		}

		return errors.Annotatef(entry.client.Write(env.Message), "deliver to: %s", env.To)
	}

	s.mu.RLock()
	clients := make(map[identifiers.UserID]ClientWriter, len(s.rooms[env.Room]))

	for userID, client := range s.rooms[env.Room] {
		if userID != env.Exclude {
			clients[userID] = client
		}
	}
	s.mu.RUnlock()

	var errs multierr.MultiErr

	for userID, client := range clients {
		if err := client.Write(env.Message); err != nil {
			errs.Add(errors.Annotatef(err, "broadcast to: %s", userID))
		}
	}

	return errors.Trace(errs.Err())
}

func (s *RedisStore) publish(channel string, env redisEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Annotate(err, "marshal envelope")
	}

	return errors.Annotatef(s.pubRedis.Publish(channel, payload).Err(), "publish: %s", channel)
}

func (s *RedisStore) Register(session Session, client ClientWriter) (prev Session, replaced bool) {
	stored, err := s.pubRedis.HGet(s.usersKey(), session.UserID.String()).Result()
	if err == nil {
		if unmarshalErr := json.Unmarshal([]byte(stored), &prev); unmarshalErr == nil {
			replaced = true
		}
	}

	sessionJSON, err := json.Marshal(session)
	if err == nil {
		err = s.pubRedis.HSet(s.usersKey(), session.UserID.String(), sessionJSON).Err()
	}

	if err != nil {
		// The local registration below still allows same-instance signaling.
		s.log.Error("Store session", errors.Trace(err), logger.Ctx{
			"user_id": session.UserID,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byUser[session.UserID]; ok {
		delete(s.bySocket, old.session.SocketID)
	}

	s.byUser[session.UserID] = connectionEntry{
		session: session,
		client:  client,
	}
	s.bySocket[session.SocketID] = session.UserID

	return prev, replaced
}

func (s *RedisStore) Lookup(userID identifiers.UserID) (ClientWriter, bool) {
	s.mu.RLock()
	entry, ok := s.byUser[userID]
	s.mu.RUnlock()

	if ok {
		return entry.client, true
	}

	stored, err := s.pubRedis.HGet(s.usersKey(), userID.String()).Result()
	if err != nil {
		return nil, false
	}

	var session Session
	if err := json.Unmarshal([]byte(stored), &session); err != nil {
		return nil, false
	}

	return &redisRemoteClient{
		store:    s,
		userID:   userID,
		socketID: session.SocketID,
	}, true
}

func (s *RedisStore) Session(userID identifiers.UserID) (Session, bool) {
	s.mu.RLock()
	entry, ok := s.byUser[userID]
	s.mu.RUnlock()

	if ok {
		return entry.session, true
	}

	stored, err := s.pubRedis.HGet(s.usersKey(), userID.String()).Result()
	if err != nil {
		return Session{}, false
	}

	var session Session
	if err := json.Unmarshal([]byte(stored), &session); err != nil {
		return Session{}, false
	}

	return session, true
}

func (s *RedisStore) SessionBySocket(socketID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.bySocket[socketID]
	if !ok {
		return Session{}, false
	}

	entry, ok := s.byUser[userID]

	return entry.session, ok
}

func (s *RedisStore) Remove(userID identifiers.UserID) {
	s.mu.Lock()
	entry, local := s.byUser[userID]
	if local {
		delete(s.bySocket, entry.session.SocketID)
		delete(s.byUser, userID)
	}
	s.mu.Unlock()

	if !local {
		return
	}

	// Only delete the shared registration while it still points at the socket
	// this instance owned. A newer registration elsewhere must survive.
	stored, err := s.pubRedis.HGet(s.usersKey(), userID.String()).Result()
	if err != nil {
		return
	}

	var session Session
	if err := json.Unmarshal([]byte(stored), &session); err == nil &&
		session.SocketID != entry.session.SocketID {
		return
	}

	if err := s.pubRedis.HDel(s.usersKey(), userID.String()).Err(); err != nil {
		s.log.Error("Remove session", errors.Trace(err), logger.Ctx{
			"user_id": userID,
		})
	}
}

func (s *RedisStore) NumConnections() (int, error) {
	size, err := s.pubRedis.HLen(s.usersKey()).Result()

	return int(size), errors.Annotate(err, "connection store size")
}

func (s *RedisStore) Join(
	roomID identifiers.RoomID,
	userID identifiers.UserID,
	client ClientWriter,
) ([]identifiers.UserID, error) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		room = map[identifiers.UserID]ClientWriter{}
		s.rooms[roomID] = room
	}
	room[userID] = client
	s.mu.Unlock()

	err := s.pubRedis.HSet(s.roomMembersKey(roomID), userID.String(), client.SocketID()).Err()
	if err != nil {
		return nil, errors.Annotatef(err, "join room: %s", roomID)
	}

	return s.Members(roomID)
}

func (s *RedisStore) Leave(
	roomID identifiers.RoomID,
	userID identifiers.UserID,
) (removed bool, empty bool, err error) {
	s.mu.Lock()
	if room, ok := s.rooms[roomID]; ok {
		delete(room, userID)

		if len(room) == 0 {
			delete(s.rooms, roomID)
		}
	}
	s.mu.Unlock()

	count, err := s.pubRedis.HDel(s.roomMembersKey(roomID), userID.String()).Result()
	if err != nil {
		return false, false, errors.Annotatef(err, "leave room: %s", roomID)
	}

	// Redis deletes a hash key once its last field is removed, so an emptied
	// room disappears without explicit cleanup.
	size, err := s.pubRedis.HLen(s.roomMembersKey(roomID)).Result()
	if err != nil {
		return count > 0, false, errors.Annotatef(err, "leave room: %s", roomID)
	}

	return count > 0, size == 0, nil
}

func (s *RedisStore) Members(roomID identifiers.RoomID) ([]identifiers.UserID, error) {
	keys, err := s.pubRedis.HKeys(s.roomMembersKey(roomID)).Result()
	if err != nil {
		return nil, errors.Annotatef(err, "members of room: %s", roomID)
	}

	ids := make(identifiers.UserIDs, len(keys))

	for i, k := range keys {
		ids[i] = identifiers.UserID(k)
	}

	sort.Sort(ids)

	return ids, nil
}

func (s *RedisStore) NumMembers(roomID identifiers.RoomID) (int, error) {
	size, err := s.pubRedis.HLen(s.roomMembersKey(roomID)).Result()

	return int(size), errors.Annotatef(err, "size of room: %s", roomID)
}

func (s *RedisStore) NumRooms() (int, error) {
	keys, err := s.pubRedis.Keys(s.prefix + ":room:*:members").Result()

	return len(keys), errors.Annotate(err, "num rooms")
}

func (s *RedisStore) BroadcastExcept(
	roomID identifiers.RoomID,
	exclude identifiers.UserID,
	msg message.Message,
) []SendResult {
	err := s.publish(s.roomChannel(roomID), redisEnvelope{
		Room:    roomID,
		Exclude: exclude,
		Message: msg,
	})
	if err != nil {
		// Delivery happens on the subscription side, so per-member outcomes
		// are not known here. Only the publish failure can be reported.
		return []SendResult{{Err: errors.Trace(err)}}
	}

	return nil
}

func (s *RedisStore) Close() error {
	err := s.sub.Close()
	<-s.done

	return errors.Annotate(err, "close redis store")
}

// redisRemoteClient is a ClientWriter proxy for a participant connected to
// another relay instance. Writes are published to the target's user channel.
type redisRemoteClient struct {
	store    *RedisStore
	userID   identifiers.UserID
	socketID string
}

var _ ClientWriter = &redisRemoteClient{}

func (c *redisRemoteClient) SocketID() string {
	return c.socketID
}

func (c *redisRemoteClient) Write(msg message.Message) error {
	err := c.store.publish(c.store.userChannel(c.userID), redisEnvelope{
		To:      c.userID,
		Message: msg,
	})

	return errors.Annotatef(err, "remote write to: %s", c.userID)
}
