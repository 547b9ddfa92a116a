// room/game.go
package room

import (
	"sort"
	"time"

	"github.com/wfunc/chemrace/network"
	"github.com/wfunc/chemrace/state"
)

// Outbound payload shapes. Field names match what the game client expects.

type GameStartedPayload struct {
	Room Snapshot `json:"room"`
}

type StartRoundPayload struct {
	Round         int    `json:"round"`
	Timestamp     int64  `json:"timestamp"`
	QuestionIndex *int   `json:"questionIndex,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
}

type ScoreUpdatePayload struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Score      int     `json:"score"`
	IsCorrect  bool    `json:"isCorrect"`
	TimeTaken  float64 `json:"timeTaken"`
}

type ProceedPayload struct {
	Round int `json:"round"`
}

type GameFinishedPayload struct {
	Players []Player `json:"players"`
}

type WaitingPayload struct {
	ReadyCount int `json:"readyCount"`
	TotalCount int `json:"totalCount"`
}

type PlayerLeftPayload struct {
	PlayerID   string   `json:"playerId"`
	PlayerName string   `json:"playerName"`
	Room       Snapshot `json:"room"`
}

// Start moves the room into the playing phase and opens round 1.
// Only the host may start, and only from the waiting phase.
func (r *Room) Start(connID string) error {
	r.mutex.Lock()

	if connID != r.hostID {
		r.mutex.Unlock()
		return ErrNotHost
	}
	if len(r.players) == 0 {
		r.mutex.Unlock()
		return ErrEmptyRoom
	}
	if err := r.machine.Transition(state.Playing); err != nil {
		// Re-starting mid-game would reset the round counter.
		r.mutex.Unlock()
		return ErrGameInProgress
	}

	r.currentRound = 1
	snap := r.snapshotLocked()
	r.mutex.Unlock()

	r.broadcast(network.EventGameStarted, GameStartedPayload{Room: snap})
	return nil
}

// BeginRound stamps the round start time and samples the question every
// client plays this round. Calling it twice in one round re-samples, so the
// transport layer is expected to send requestQuestion once per round.
func (r *Room) BeginRound() {
	r.mutex.Lock()

	r.roundStart = time.Now()
	r.questionIndex = r.bank.SampleIndex(r.Difficulty)

	idx := r.questionIndex
	payload := StartRoundPayload{
		Round:         r.currentRound,
		Timestamp:     r.roundStart.UnixMilli(),
		QuestionIndex: &idx,
		Difficulty:    r.Difficulty,
	}
	r.mutex.Unlock()

	r.broadcast(network.EventStartRound, payload)
}

// SubmitAnswer credits the submitted points on a correct answer and
// broadcasts the player's new score either way. Unknown players are
// silently ignored. The points value is taken on trust from the client.
func (r *Room) SubmitAnswer(connID string, isCorrect bool, timeTaken float64, points int) {
	r.mutex.Lock()

	player := r.findPlayerLocked(connID)
	if player == nil {
		r.mutex.Unlock()
		return
	}
	if isCorrect {
		player.Score += points
	}

	payload := ScoreUpdatePayload{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Score:      player.Score,
		IsCorrect:  isCorrect,
		TimeTaken:  timeTaken,
	}
	r.mutex.Unlock()

	r.broadcast(network.EventScoreUpdate, payload)
}

// AdvanceRound is the host-initiated round transition. Non-host callers are
// silently ignored. The clients receive either the next round number or the
// final standings.
func (r *Room) AdvanceRound(connID string) {
	r.mutex.Lock()

	if connID != r.hostID || r.machine.Current() != state.Playing {
		r.mutex.Unlock()
		return
	}

	if standings, finished := r.advanceLocked(); finished {
		r.mutex.Unlock()
		r.finishGame(standings)
		return
	}

	payload := ProceedPayload{Round: r.currentRound}
	r.mutex.Unlock()

	r.broadcast(network.EventProceedToNextRound, payload)
}

// MarkReady is the ready-barrier. The round advances only once every current
// member is ready; the barrier then resets for the next round. There is no
// timeout: a member that never readies up stalls the room.
func (r *Room) MarkReady(connID string) {
	r.mutex.Lock()

	player := r.findPlayerLocked(connID)
	if player == nil || r.machine.Current() != state.Playing {
		r.mutex.Unlock()
		return
	}
	player.Ready = true

	allReady := true
	readyCount := 0
	for _, p := range r.players {
		if p.Ready {
			readyCount++
		} else {
			allReady = false
		}
	}

	if !allReady {
		payload := WaitingPayload{
			ReadyCount: readyCount,
			TotalCount: len(r.players),
		}
		r.mutex.Unlock()

		r.broadcast(network.EventWaitingForPlayers, payload)
		return
	}

	// New barrier epoch.
	for _, p := range r.players {
		p.Ready = false
	}

	if standings, finished := r.advanceLocked(); finished {
		r.mutex.Unlock()
		r.finishGame(standings)
		return
	}

	r.roundStart = time.Now()
	payload := StartRoundPayload{
		Round:     r.currentRound,
		Timestamp: r.roundStart.UnixMilli(),
	}
	r.mutex.Unlock()

	r.broadcast(network.EventStartRound, payload)
}

// advanceLocked increments the round counter. Past the final round the game
// finishes and the standings are returned sorted by score, descending; ties
// keep their prior relative order. Caller holds r.mutex.
func (r *Room) advanceLocked() (standings []Player, finished bool) {
	r.currentRound++
	if r.currentRound <= TotalRounds {
		return nil, false
	}

	r.machine.Transition(state.Finished)

	standings = make([]Player, 0, len(r.players))
	for _, p := range r.players {
		standings = append(standings, *p)
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	return standings, true
}

func (r *Room) finishGame(standings []Player) {
	if r.recorder != nil {
		r.recorder.RecordGame(r.Code, r.Difficulty, standings)
	}
	r.broadcast(network.EventGameFinished, GameFinishedPayload{Players: standings})
}
