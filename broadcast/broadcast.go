// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/chemrace/room"
	"github.com/wfunc/chemrace/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomCode, event string, payload interface{}) error
	BroadcastToAll(event string, payload interface{}) error
}

// RoomBroadcaster delivers events to every session currently in a room. The
// room knows member connection IDs, the session manager knows the live
// connections.
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomCode, event string, payload interface{}) error {
	r, exists := b.roomManager.GetRoom(roomCode)
	if !exists {
		return ErrRoomNotFound
	}

	for _, connID := range r.MemberIDs() {
		sess, ok := b.sessionManager.Get(connID)
		if !ok {
			// Session already reaped; departure handling catches up shortly.
			continue
		}
		if err := sess.Send(event, payload); err != nil {
			// A dead connection surfaces on its own read loop.
			continue
		}
	}

	return nil
}

func (b *RoomBroadcaster) BroadcastToAll(event string, payload interface{}) error {
	var firstErr error
	for _, code := range b.roomManager.Codes() {
		if err := b.BroadcastToRoom(code, event, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
