package model

import "time"

// LevelIndex 是存档里关卡的元信息索引，一行对应一个下标。
type LevelIndex struct {
	Position    uint32    `gorm:"column:position;type:int UNSIGNED;comment:存档内下标;primaryKey;not null;" json:"position"`
	Name        string    `gorm:"column:name;type:varchar(255);comment:关卡名;not null;default:'';" json:"name"`
	LevelID     int64     `gorm:"column:level_id;type:bigint;comment:线上关卡id;not null;default:0;" json:"level_id"`
	Creator     string    `gorm:"column:creator;type:varchar(100);comment:作者;" json:"creator"`
	Objects     uint32    `gorm:"column:objects;type:int UNSIGNED;comment:对象数;not null;default:0;" json:"objects"`
	Version     uint32    `gorm:"column:version;type:int UNSIGNED;comment:关卡版本;not null;default:0;" json:"version"`
	Fingerprint uint64    `gorm:"column:fingerprint;type:bigint UNSIGNED;comment:信封文本 xxhash;not null;default:0;" json:"fingerprint"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamp;not null;default:CURRENT_TIMESTAMP;" json:"updated_at"`
}

func (m *LevelIndex) TableName() string {
	return "level_index"
}
