// services/record_service.go
package services

import (
	"time"

	"github.com/wfunc/chemrace/logger"
	"github.com/wfunc/chemrace/models"
	"github.com/wfunc/chemrace/persistence"
	"github.com/wfunc/chemrace/room"
)

// RecordService archives finished games. It implements room.GameRecorder;
// writes happen off the caller's goroutine so a slow database never blocks
// a room operation.
type RecordService struct {
	db persistence.Database
}

func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db}
}

// RecordGame archives the final standings of a room asynchronously.
func (s *RecordService) RecordGame(roomCode, difficulty string, standings []room.Player) {
	record := buildRecord(roomCode, difficulty, standings)
	go s.save(record)
}

func (s *RecordService) save(record *models.GameRecord) {
	if err := s.db.SaveGameRecord(record); err != nil {
		logger.Log.Errorf("Failed to archive game %s: %v", record.RoomCode, err)
	}
}

// RecentGames returns the most recently finished games.
func (s *RecordService) RecentGames(limit int) ([]models.GameRecord, error) {
	return s.db.RecentGames(limit)
}

// buildRecord converts sorted standings into an archive record. Rank is
// 1-based position in the standings.
func buildRecord(roomCode, difficulty string, standings []room.Player) *models.GameRecord {
	results := make([]models.PlayerResult, 0, len(standings))
	for i, p := range standings {
		results = append(results, models.PlayerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			Rank:     i + 1,
		})
	}

	return &models.GameRecord{
		RoomCode:   roomCode,
		Difficulty: difficulty,
		Rounds:     room.TotalRounds,
		Players:    results,
		FinishedAt: time.Now(),
	}
}
