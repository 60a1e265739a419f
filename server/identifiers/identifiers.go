package identifiers

import "sort"

// RoomID identifies a signaling room. It is an opaque string chosen by the
// client and is never interpreted by the relay.
type RoomID string

// UserID identifies a participant. A UserID maps to at most one live socket
// at a time; a newer registration replaces an older one.
type UserID string

func (r RoomID) String() string {
	return string(r)
}

func (u UserID) String() string {
	return string(u)
}

type UserIDs []UserID

var _ sort.Interface = UserIDs(nil)

func (u UserIDs) Len() int {
	return len(u)
}

func (u UserIDs) Less(i, j int) bool {
	return u[i] < u[j]
}

func (u UserIDs) Swap(i, j int) {
	u[i], u[j] = u[j], u[i]
}
