package state

import (
	"errors"
)

// Phase 表示房间的游戏阶段
type Phase int

const (
	Waiting Phase = iota
	Playing
	Finished
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

var phaseNames = map[Phase]string{
	Waiting:  "waiting",
	Playing:  "playing",
	Finished: "finished",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON keeps the wire representation as the lowercase phase name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// The game only ever moves forward: waiting -> playing -> finished.
// Finished is terminal, a room is deleted rather than reused.
var transitions = map[Phase][]Phase{
	Waiting: {Playing},
	Playing: {Finished},
}

// Machine guards phase transitions for a single room. It carries no lock of
// its own: the owning room serializes access along with the rest of its state.
type Machine struct {
	current Phase
}

// NewMachine creates a machine in the Waiting phase.
func NewMachine() *Machine {
	return &Machine{current: Waiting}
}

func (m *Machine) Current() Phase {
	return m.current
}

// Transition moves the machine to the target phase, or returns
// ErrTransitionNotAllowed if the game lifecycle forbids it.
func (m *Machine) Transition(to Phase) error {
	for _, allowed := range transitions[m.current] {
		if allowed == to {
			m.current = to
			return nil
		}
	}
	return ErrTransitionNotAllowed
}
