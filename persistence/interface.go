// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/chemrace/models"
)

// Database 游戏存档接口。只保存已结束的对局，房间的实时状态从不落库。
type Database interface {
	SaveGameRecord(record *models.GameRecord) error
	RecentGames(limit int) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
