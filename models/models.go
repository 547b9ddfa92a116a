// models/models.go
package models

import (
	"time"
)

// PlayerResult 单个玩家的最终成绩
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// GameRecord 一局已结束游戏的存档记录
type GameRecord struct {
	RoomCode   string         `json:"room_code"`
	Difficulty string         `json:"difficulty"`
	Rounds     int            `json:"rounds"`
	Players    []PlayerResult `json:"players"`
	FinishedAt time.Time      `json:"finished_at"`
}
