package room

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/wfunc/chemrace/network"
	"github.com/wfunc/chemrace/questions"
	"github.com/wfunc/chemrace/state"
)

// MockBroadcaster is a test double for the Broadcaster interface that
// records every event it is asked to deliver.
type MockBroadcaster struct {
	mu     sync.Mutex
	events []BroadcastCall
}

type BroadcastCall struct {
	RoomCode string
	Event    string
	Payload  interface{}
}

func (m *MockBroadcaster) BroadcastToRoom(roomCode, event string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, BroadcastCall{RoomCode: roomCode, Event: event, Payload: payload})
	return nil
}

func (m *MockBroadcaster) Calls() []BroadcastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BroadcastCall(nil), m.events...)
}

func (m *MockBroadcaster) Last() (BroadcastCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return BroadcastCall{}, false
	}
	return m.events[len(m.events)-1], true
}

func (m *MockBroadcaster) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func newTestManager() (*Manager, *MockBroadcaster) {
	manager := NewManager(questions.NewBank())
	broadcaster := &MockBroadcaster{}
	manager.SetBroadcaster(broadcaster)
	return manager, broadcaster
}

func TestManager_CreateRoom(t *testing.T) {
	manager, _ := newTestManager()

	room, snap := manager.CreateRoom("conn1", "Ada", "easy")
	if room == nil {
		t.Fatal("CreateRoom should not return nil")
	}

	if !strings.HasPrefix(snap.Code, "CHEM") {
		t.Errorf("Expected room code with CHEM prefix, got %s", snap.Code)
	}
	if snap.GameState != state.Waiting {
		t.Errorf("Expected new room to be waiting, got %s", snap.GameState)
	}
	if snap.CurrentRound != 0 {
		t.Errorf("Expected current round 0, got %d", snap.CurrentRound)
	}
	if snap.RoundStartTime != nil {
		t.Error("Expected no round start time before the first round")
	}
	if len(snap.Players) != 1 {
		t.Fatalf("Expected 1 player, got %d", len(snap.Players))
	}

	host := snap.Players[0]
	if host.ID != "conn1" || host.Name != "Ada" || !host.IsHost {
		t.Errorf("Expected Ada (conn1) as host, got %+v", host)
	}
	if host.Score != 0 || host.Ready {
		t.Errorf("Expected fresh host with score 0 and ready=false, got %+v", host)
	}
	if snap.Host != "conn1" {
		t.Errorf("Expected host ID conn1, got %s", snap.Host)
	}

	retrieved, exists := manager.GetRoom(snap.Code)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrieved != room {
		t.Error("GetRoom should return the same room instance")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected room count 1, got %d", manager.Count())
	}
}

func TestManager_CreateRoom_CodesAreUnique(t *testing.T) {
	manager, _ := newTestManager()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, snap := manager.CreateRoom("conn", "Host", "easy")
		if seen[snap.Code] {
			t.Fatalf("Room code %s allocated twice", snap.Code)
		}
		seen[snap.Code] = true
	}
}

func TestManager_JoinRoom(t *testing.T) {
	manager, _ := newTestManager()
	_, snap := manager.CreateRoom("conn1", "Ada", "medium")

	joined, player, err := manager.JoinRoom(snap.Code, "conn2", "Lin")
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	if player.ID != "conn2" || player.Name != "Lin" {
		t.Errorf("Expected joined player Lin (conn2), got %+v", player)
	}
	if player.IsHost {
		t.Error("A joining player must not be host")
	}
	if len(joined.Players) != 2 {
		t.Fatalf("Expected 2 players after join, got %d", len(joined.Players))
	}
	if joined.Players[1].ID != "conn2" {
		t.Error("Players must keep join order")
	}
}

func TestManager_JoinRoom_NotFound(t *testing.T) {
	manager, _ := newTestManager()

	_, _, err := manager.JoinRoom("CHEM0000", "conn1", "Lin")
	if err != ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound, got: %v", err)
	}
}

func TestManager_JoinRoom_GameInProgress(t *testing.T) {
	manager, _ := newTestManager()
	room, snap := manager.CreateRoom("conn1", "Ada", "easy")

	if err := room.Start("conn1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, _, err := manager.JoinRoom(snap.Code, "conn2", "Lin")
	if err != ErrGameInProgress {
		t.Errorf("Expected ErrGameInProgress, got: %v", err)
	}
}

func TestManager_JoinRoom_Full(t *testing.T) {
	manager, _ := newTestManager()
	_, snap := manager.CreateRoom("host", "Host", "easy")

	// Fill up to capacity (host occupies one slot).
	for i := 1; i < MaxPlayers; i++ {
		_, _, err := manager.JoinRoom(snap.Code, fmt.Sprintf("conn%d", i), "P")
		if err != nil {
			t.Fatalf("Join %d should succeed, got: %v", i, err)
		}
	}

	joined, _, err := manager.JoinRoom(snap.Code, "overflow", "Late")
	if err != ErrRoomFull {
		t.Errorf("Expected ErrRoomFull on the 9th join, got: %v", err)
	}
	if len(joined.Players) > MaxPlayers {
		t.Errorf("Player count must never exceed %d", MaxPlayers)
	}

	current, _ := manager.GetRoom(snap.Code)
	if got := len(current.Snapshot().Players); got != MaxPlayers {
		t.Errorf("Expected exactly %d players, got %d", MaxPlayers, got)
	}
}

func TestManager_HandleDeparture_HostTransfer(t *testing.T) {
	manager, broadcaster := newTestManager()
	room, snap := manager.CreateRoom("conn1", "Ada", "easy")
	manager.JoinRoom(snap.Code, "conn2", "Lin")
	manager.JoinRoom(snap.Code, "conn3", "Kim")
	broadcaster.Reset()

	removed, deleted := manager.HandleDeparture(snap.Code, "conn1")
	if !removed || deleted {
		t.Fatalf("Expected removed=true deleted=false, got removed=%v deleted=%v", removed, deleted)
	}

	after := room.Snapshot()
	if len(after.Players) != 2 {
		t.Fatalf("Expected 2 remaining players, got %d", len(after.Players))
	}

	// New host is the first remaining player in join order.
	if after.Host != "conn2" || room.HostID() != "conn2" {
		t.Errorf("Expected conn2 as new host, got %s", after.Host)
	}
	hostCount := 0
	for _, p := range after.Players {
		if p.IsHost {
			hostCount++
			if p.ID != "conn2" {
				t.Errorf("Expected isHost on conn2, got %s", p.ID)
			}
		}
	}
	if hostCount != 1 {
		t.Errorf("Expected exactly one host, got %d", hostCount)
	}

	call, ok := broadcaster.Last()
	if !ok || call.Event != network.EventPlayerLeft {
		t.Fatalf("Expected a playerLeft broadcast, got %+v", call)
	}
	payload := call.Payload.(PlayerLeftPayload)
	if payload.PlayerID != "conn1" || payload.PlayerName != "Ada" {
		t.Errorf("Expected playerLeft for Ada (conn1), got %+v", payload)
	}
}

func TestManager_HandleDeparture_MidListKeepsJoinOrder(t *testing.T) {
	manager, _ := newTestManager()
	room, snap := manager.CreateRoom("conn1", "Ada", "easy")
	manager.JoinRoom(snap.Code, "conn2", "Lin")
	manager.JoinRoom(snap.Code, "conn3", "Kim")

	manager.HandleDeparture(snap.Code, "conn2")

	after := room.Snapshot()
	if after.Players[0].ID != "conn1" || after.Players[1].ID != "conn3" {
		t.Errorf("Expected relative join order preserved, got %+v", after.Players)
	}
	// Host never changed, so no reassignment happened.
	if after.Host != "conn1" || !after.Players[0].IsHost {
		t.Error("Host must remain conn1 when a non-host leaves")
	}
}

func TestManager_HandleDeparture_LastPlayerDeletesRoom(t *testing.T) {
	manager, broadcaster := newTestManager()
	_, snap := manager.CreateRoom("conn1", "Ada", "easy")
	broadcaster.Reset()

	removed, deleted := manager.HandleDeparture(snap.Code, "conn1")
	if !removed || !deleted {
		t.Fatalf("Expected removed=true deleted=true, got removed=%v deleted=%v", removed, deleted)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected 0 rooms after deletion, got %d", manager.Count())
	}

	// A deleted code is gone; subsequent joins fail.
	_, _, err := manager.JoinRoom(snap.Code, "conn2", "Lin")
	if err != ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound after room deletion, got: %v", err)
	}

	// No playerLeft broadcast goes out for an emptied room.
	if call, ok := broadcaster.Last(); ok {
		t.Errorf("Expected no broadcast when the last player leaves, got %+v", call)
	}
}

func TestManager_HandleDeparture_UnknownConnIsSilent(t *testing.T) {
	manager, broadcaster := newTestManager()
	room, snap := manager.CreateRoom("conn1", "Ada", "easy")
	broadcaster.Reset()

	removed, deleted := manager.HandleDeparture(snap.Code, "ghost")
	if removed || deleted {
		t.Error("Departure of an unknown connection must be a no-op")
	}
	if len(room.Snapshot().Players) != 1 {
		t.Error("Membership must be unchanged")
	}
	if _, ok := broadcaster.Last(); ok {
		t.Error("No broadcast expected for an unknown connection")
	}
}

func TestManager_ListWaiting(t *testing.T) {
	manager, _ := newTestManager()

	playing, _ := manager.CreateRoom("conn1", "Ada", "easy")
	_, waiting := manager.CreateRoom("conn2", "Lin", "hard")

	if err := playing.Start("conn1"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	list := manager.ListWaiting()
	if len(list) != 1 {
		t.Fatalf("Expected 1 waiting room, got %d", len(list))
	}
	summary := list[0]
	if summary.Code != waiting.Code {
		t.Errorf("Expected waiting room %s, got %s", waiting.Code, summary.Code)
	}
	if summary.PlayerCount != 1 || summary.Difficulty != "hard" || summary.HostName != "Lin" {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestRoom_MemberIDs(t *testing.T) {
	manager, _ := newTestManager()
	room, snap := manager.CreateRoom("conn1", "Ada", "easy")
	manager.JoinRoom(snap.Code, "conn2", "Lin")

	ids := room.MemberIDs()
	if len(ids) != 2 || ids[0] != "conn1" || ids[1] != "conn2" {
		t.Errorf("Expected [conn1 conn2], got %v", ids)
	}
}
