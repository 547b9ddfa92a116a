// room/room.go
package room

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/chemrace/network"
	"github.com/wfunc/chemrace/questions"
	"github.com/wfunc/chemrace/state"
)

const (
	// MaxPlayers 是单个房间的人数上限
	MaxPlayers = 8
	// TotalRounds 是一局游戏的回合数
	TotalRounds = 5

	codePrefix = "CHEM"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrGameInProgress = errors.New("game already in progress")
	ErrRoomFull       = errors.New("room is full")
	ErrNotHost        = errors.New("only the host can start the game")
	ErrEmptyRoom      = errors.New("need at least 1 player")
)

// Player 是房间内的一名玩家
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Ready  bool   `json:"ready"`
	IsHost bool   `json:"isHost"`
}

// Room 是一局独立游戏会话的核心结构。所有字段都由 mutex 保护，
// 对单个房间的操作彼此串行。
type Room struct {
	Code       string
	Difficulty string
	CreatedAt  time.Time

	hostID        string
	players       []*Player // join order; index 0 is the host while nobody left
	machine       *state.Machine
	currentRound  int
	roundStart    time.Time // zero before the first round
	questionIndex int       // -1 before the first question

	bank        *questions.Bank
	broadcaster Broadcaster
	recorder    GameRecorder
	mutex       sync.Mutex
}

// Snapshot is a race-free copy of a room, shaped for the wire.
type Snapshot struct {
	Code           string      `json:"code"`
	Host           string      `json:"host"`
	Players        []Player    `json:"players"`
	Difficulty     string      `json:"difficulty"`
	GameState      state.Phase `json:"gameState"`
	CurrentRound   int         `json:"currentRound"`
	RoundStartTime *int64      `json:"roundStartTime"`
	QuestionIndex  *int        `json:"currentQuestionIndex,omitempty"`
}

// Summary is the lobby view of a waiting room.
type Summary struct {
	Code        string `json:"code"`
	PlayerCount int    `json:"playerCount"`
	Difficulty  string `json:"difficulty"`
	HostName    string `json:"hostName"`
}

func newRoom(code, hostID, hostName, difficulty string, bank *questions.Bank, b Broadcaster, rec GameRecorder) *Room {
	return &Room{
		Code:       code,
		Difficulty: difficulty,
		CreatedAt:  time.Now(),
		hostID:     hostID,
		players: []*Player{{
			ID:     hostID,
			Name:   hostName,
			IsHost: true,
		}},
		machine:       state.NewMachine(),
		questionIndex: -1,
		bank:          bank,
		broadcaster:   b,
		recorder:      rec,
	}
}

// snapshotLocked copies the room. Caller holds r.mutex.
func (r *Room) snapshotLocked() Snapshot {
	players := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, *p)
	}

	snap := Snapshot{
		Code:         r.Code,
		Host:         r.hostID,
		Players:      players,
		Difficulty:   r.Difficulty,
		GameState:    r.machine.Current(),
		CurrentRound: r.currentRound,
	}
	if !r.roundStart.IsZero() {
		ts := r.roundStart.UnixMilli()
		snap.RoundStartTime = &ts
	}
	if r.questionIndex >= 0 {
		idx := r.questionIndex
		snap.QuestionIndex = &idx
	}
	return snap
}

// Snapshot returns a race-free copy of the room.
func (r *Room) Snapshot() Snapshot {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.snapshotLocked()
}

// Phase returns the room's current lifecycle phase.
func (r *Room) Phase() state.Phase {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.machine.Current()
}

// HostID returns the connection ID of the current host.
func (r *Room) HostID() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.hostID
}

// MemberIDs returns the connection IDs of all players, in join order.
func (r *Room) MemberIDs() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.ID)
	}
	return ids
}

// findPlayerLocked returns the member with the given connection ID, or nil.
// Caller holds r.mutex.
func (r *Room) findPlayerLocked(connID string) *Player {
	for _, p := range r.players {
		if p.ID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) broadcast(event string, payload interface{}) {
	if r.broadcaster != nil {
		r.broadcaster.BroadcastToRoom(r.Code, event, payload)
	}
}

// join appends a non-host player. Returns the updated snapshot and the new
// player's entry.
func (r *Room) join(connID, playerName string) (Snapshot, Player, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.machine.Current() != state.Waiting {
		return Snapshot{}, Player{}, ErrGameInProgress
	}
	if len(r.players) >= MaxPlayers {
		return Snapshot{}, Player{}, ErrRoomFull
	}

	player := &Player{
		ID:   connID,
		Name: playerName,
	}
	r.players = append(r.players, player)

	return r.snapshotLocked(), *player, nil
}

// removeMember takes a player out of the room. If the host left, the first
// remaining player (relative join order is preserved) becomes the new host.
// The playerLeft broadcast goes out here; room deletion is the manager's job.
func (r *Room) removeMember(connID string) (left Player, empty, found bool) {
	r.mutex.Lock()

	kept := r.players[:0]
	for _, p := range r.players {
		if p.ID == connID {
			left = *p
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		r.mutex.Unlock()
		return Player{}, false, false
	}
	r.players = kept

	if len(r.players) == 0 {
		r.mutex.Unlock()
		return left, true, true
	}

	if r.hostID == connID {
		r.players[0].IsHost = true
		r.hostID = r.players[0].ID
	}

	snap := r.snapshotLocked()
	r.mutex.Unlock()

	r.broadcast(network.EventPlayerLeft, PlayerLeftPayload{
		PlayerID:   left.ID,
		PlayerName: left.Name,
		Room:       snap,
	})
	return left, false, true
}

// --- 房间注册表 ---

// Manager owns the room-code to Room mapping. All rooms share one question
// bank, one broadcaster and one optional game recorder.
type Manager struct {
	rooms       map[string]*Room
	bank        *questions.Bank
	broadcaster Broadcaster
	recorder    GameRecorder
	mutex       sync.RWMutex
}

// NewManager creates an empty room registry.
func NewManager(bank *questions.Bank) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		bank:  bank,
	}
}

// SetBroadcaster wires the outbound side. Must be called before any room is
// created; kept separate from NewManager because the broadcaster itself
// needs the manager.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.broadcaster = b
}

// SetRecorder wires the optional finished-game archive.
func (m *Manager) SetRecorder(rec GameRecorder) {
	m.recorder = rec
}

// generateCodeLocked allocates an unused room code. The code space is small
// (CHEM1000..CHEM9999), so regenerate on collision rather than silently
// overwriting an existing room. Caller holds m.mutex.
func (m *Manager) generateCodeLocked() string {
	for {
		code := fmt.Sprintf("%s%d", codePrefix, rand.Intn(9000)+1000)
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}

// CreateRoom builds a room with the acting connection as host and registers
// it under a fresh code.
func (m *Manager) CreateRoom(hostID, hostName, difficulty string) (*Room, Snapshot) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	code := m.generateCodeLocked()
	room := newRoom(code, hostID, hostName, difficulty, m.bank, m.broadcaster, m.recorder)
	m.rooms[code] = room

	return room, room.Snapshot()
}

// JoinRoom adds a player to a waiting room.
func (m *Manager) JoinRoom(code, connID, playerName string) (Snapshot, Player, error) {
	room, exists := m.GetRoom(code)
	if !exists {
		return Snapshot{}, Player{}, ErrRoomNotFound
	}
	return room.join(connID, playerName)
}

// GetRoom looks a room up by code.
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, exists := m.rooms[code]
	return room, exists
}

// RemoveRoom drops a room from the registry.
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, code)
}

// HandleDeparture removes a connection from its room. An empty room is
// deleted on the spot; otherwise the remaining players are notified (and a
// new host appointed if needed) by the room itself.
func (m *Manager) HandleDeparture(code, connID string) (removed, deleted bool) {
	room, exists := m.GetRoom(code)
	if !exists {
		return false, false
	}

	_, empty, found := room.removeMember(connID)
	if !found {
		return false, false
	}
	if empty {
		m.RemoveRoom(code)
		return true, true
	}
	return true, false
}

// ListWaiting snapshots all rooms still open for joining, for the lobby.
// The host name is read from the first player in join order.
func (m *Manager) ListWaiting() []Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	summaries := make([]Summary, 0)
	for _, room := range m.rooms {
		snap := room.Snapshot()
		if snap.GameState != state.Waiting || len(snap.Players) == 0 {
			continue
		}
		summaries = append(summaries, Summary{
			Code:        snap.Code,
			PlayerCount: len(snap.Players),
			Difficulty:  snap.Difficulty,
			HostName:    snap.Players[0].Name,
		})
	}
	return summaries
}

// Codes returns the codes of all live rooms, in no particular order.
func (m *Manager) Codes() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	return codes
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
