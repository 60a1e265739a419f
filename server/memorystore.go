package server

import (
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/tutorlab/signaling/server/identifiers"
	"github.com/tutorlab/signaling/server/message"
)

type connectionEntry struct {
	session Session
	client  ClientWriter
}

// MemoryConnectionStore keeps participant registrations in process-local
// maps. It is safe for concurrent use.
type MemoryConnectionStore struct {
	mu       sync.RWMutex
	byUser   map[identifiers.UserID]connectionEntry
	bySocket map[string]identifiers.UserID
}

var _ ConnectionStore = &MemoryConnectionStore{}

func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{
		byUser:   map[identifiers.UserID]connectionEntry{},
		bySocket: map[string]identifiers.UserID{},
	}
}

func (s *MemoryConnectionStore) Register(session Session, client ClientWriter) (prev Session, replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byUser[session.UserID]
	if ok {
		prev = old.session
		replaced = true
		// The previous socket is orphaned: it can no longer be resolved by
		// user id, so its close must not tear down the new registration.
		delete(s.bySocket, old.session.SocketID)
	}

	s.byUser[session.UserID] = connectionEntry{
		session: session,
		client:  client,
	}
	s.bySocket[session.SocketID] = session.UserID

	return prev, replaced
}

func (s *MemoryConnectionStore) Lookup(userID identifiers.UserID) (ClientWriter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byUser[userID]

	return entry.client, ok
}

func (s *MemoryConnectionStore) Session(userID identifiers.UserID) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byUser[userID]

	return entry.session, ok
}

func (s *MemoryConnectionStore) SessionBySocket(socketID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.bySocket[socketID]
	if !ok {
		return Session{}, false
	}

	entry, ok := s.byUser[userID]

	return entry.session, ok
}

func (s *MemoryConnectionStore) Remove(userID identifiers.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byUser[userID]
	if !ok {
		return
	}

	delete(s.bySocket, entry.session.SocketID)
	delete(s.byUser, userID)
}

func (s *MemoryConnectionStore) NumConnections() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byUser), nil
}

func (s *MemoryConnectionStore) Close() error {
	return nil
}

// MemoryRoomStore keeps room member sets in process-local maps. A room is
// created on first join and deleted as soon as its member set is empty.
type MemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[identifiers.RoomID]map[identifiers.UserID]ClientWriter
}

var _ RoomStore = &MemoryRoomStore{}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms: map[identifiers.RoomID]map[identifiers.UserID]ClientWriter{},
	}
}

func (s *MemoryRoomStore) Join(
	roomID identifiers.RoomID,
	userID identifiers.UserID,
	client ClientWriter,
) ([]identifiers.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		room = map[identifiers.UserID]ClientWriter{}
		s.rooms[roomID] = room
	}

	room[userID] = client

	return memberIDs(room), nil
}

func (s *MemoryRoomStore) Leave(
	roomID identifiers.RoomID,
	userID identifiers.UserID,
) (removed bool, empty bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false, false, nil
	}

	if _, removed = room[userID]; removed {
		delete(room, userID)
	}

	if len(room) == 0 {
		delete(s.rooms, roomID)
		empty = true
	}

	return removed, empty, nil
}

func (s *MemoryRoomStore) Members(roomID identifiers.RoomID) ([]identifiers.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return memberIDs(s.rooms[roomID]), nil
}

func (s *MemoryRoomStore) NumMembers(roomID identifiers.RoomID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms[roomID]), nil
}

func (s *MemoryRoomStore) NumRooms() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms), nil
}

func (s *MemoryRoomStore) BroadcastExcept(
	roomID identifiers.RoomID,
	exclude identifiers.UserID,
	msg message.Message,
) []SendResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room := s.rooms[roomID]

	results := make([]SendResult, 0, len(room))

	for userID, client := range room {
		if userID == exclude {
			continue
		}

		err := client.Write(msg)

		results = append(results, SendResult{
			UserID: userID,
			Err:    errors.Annotatef(err, "broadcast to: %s", userID),
		})
	}

	return results
}

func (s *MemoryRoomStore) Close() error {
	return nil
}

func memberIDs(room map[identifiers.UserID]ClientWriter) []identifiers.UserID {
	ids := make(identifiers.UserIDs, 0, len(room))

	for userID := range room {
		ids = append(ids, userID)
	}

	sort.Sort(ids)

	return ids
}
