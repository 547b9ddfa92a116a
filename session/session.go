// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/chemrace/network"
)

// Session tracks one live connection and, once the player has created or
// joined a room, which room and display name it is bound to.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time

	roomCode   string
	playerName string
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Bind records the room and player name this connection acts as.
// A connection belongs to at most one room at a time.
func (s *Session) Bind(roomCode, playerName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomCode = roomCode
	s.playerName = playerName
}

// Binding returns the bound room code and player name.
// ok is false while the connection has not entered a room.
func (s *Session) Binding() (roomCode, playerName string, ok bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomCode, s.playerName, s.roomCode != ""
}

func (s *Session) Send(event string, payload interface{}) error {
	s.LastActive = time.Now()
	return s.Conn.Send(event, payload)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// Resolve maps a connection to its current room and player name.
func (m *Manager) Resolve(sessionID string) (roomCode, playerName string, ok bool) {
	m.mutex.RLock()
	session, exists := m.sessions[sessionID]
	m.mutex.RUnlock()

	if !exists {
		return "", "", false
	}
	return session.Binding()
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
