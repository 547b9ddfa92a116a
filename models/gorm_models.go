// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormGameRecord 游戏存档模型
type GormGameRecord struct {
	gorm.Model
	RoomCode   string         `gorm:"index;not null"`
	Difficulty string         `gorm:"not null"`
	Rounds     int            `gorm:"default:0"`
	Players    []PlayerResult `gorm:"serializer:json;type:jsonb;not null"`
}
