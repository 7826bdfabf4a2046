package kv

import (
	"time"
)

const (
	// TableName is the storage name of Element.
	TableName = "key_value"
	// MaxKeyLength is the longest key, in characters, the store accepts.
	MaxKeyLength = 255
)

// Element is a single key value record. Keys are compared case-insensitively.
type Element struct {
	Key   string `gorm:"primaryKey;type:varchar(255) COLLATE NOCASE" yaml:"key"`
	Value string `gorm:"not null" yaml:"value"`
	// LastUpdateTime is overwritten by the store on every write.
	LastUpdateTime time.Time `gorm:"index" yaml:"last_update_time,omitempty"`
}

func (Element) TableName() string {
	return TableName
}
