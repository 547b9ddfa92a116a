package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/chemrace/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(event string, payload interface{}) error { return nil }
func (m *MockConnection) Close() error                                 { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                         { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)          {}
func (m *MockConnection) ReadEvent() (*network.Event, error)           { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_Resolve(t *testing.T) {
	manager := NewManager()

	sess := NewSession("session1", &MockConnection{})
	manager.Add(sess)

	// Unbound session resolves to nothing.
	_, _, ok := manager.Resolve("session1")
	if ok {
		t.Error("Resolve should report ok=false for a session not in a room")
	}

	sess.Bind("CHEM1234", "Ada")

	roomCode, playerName, ok := manager.Resolve("session1")
	if !ok {
		t.Fatal("Resolve should find the bound session")
	}
	if roomCode != "CHEM1234" {
		t.Errorf("Expected room code CHEM1234, got %s", roomCode)
	}
	if playerName != "Ada" {
		t.Errorf("Expected player name Ada, got %s", playerName)
	}

	// Unknown session resolves to nothing.
	_, _, ok = manager.Resolve("missing")
	if ok {
		t.Error("Resolve should report ok=false for an unknown session")
	}
}

func TestSession_Binding(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})

	_, _, ok := sess.Binding()
	if ok {
		t.Error("A fresh session should not be bound to a room")
	}

	sess.Bind("CHEM4242", "Lin")

	roomCode, playerName, ok := sess.Binding()
	if !ok {
		t.Fatal("Binding should report ok=true after Bind")
	}
	if roomCode != "CHEM4242" || playerName != "Lin" {
		t.Errorf("Expected (CHEM4242, Lin), got (%s, %s)", roomCode, playerName)
	}
}
