// questions/bank.go
package questions

import (
	"math/rand"
)

// Difficulty categories recognized by the bank.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Bank exposes how many questions exist per difficulty and samples an index
// for a round. Question content itself lives on the client, the server only
// picks which question everyone plays.
type Bank struct {
	counts map[string]int
}

// NewBank creates a bank with the stock question counts.
func NewBank() *Bank {
	return &Bank{
		counts: map[string]int{
			DifficultyEasy:   15,
			DifficultyMedium: 35,
			DifficultyHard:   50,
		},
	}
}

// CountFor returns the number of questions for a difficulty.
// Unknown difficulties fall back to the easy count.
func (b *Bank) CountFor(difficulty string) int {
	if count, ok := b.counts[difficulty]; ok {
		return count
	}
	return b.counts[DifficultyEasy]
}

// SampleIndex picks a uniformly random question index for the difficulty.
func (b *Bank) SampleIndex(difficulty string) int {
	return rand.Intn(b.CountFor(difficulty))
}
