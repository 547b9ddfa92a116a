package room

// Broadcaster defines the interface for delivering an event to every
// connection in a room. This is defined here to break the import cycle
// between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomCode, event string, payload interface{}) error
}

// GameRecorder receives the final standings of a finished game.
// Implementations must not block the caller.
type GameRecorder interface {
	RecordGame(roomCode, difficulty string, standings []Player)
}
