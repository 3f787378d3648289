package model

import "time"

// StoreEntry is one row of the durable key-value table backing the client's
// persisted state: per-user conversation blobs, the bearer token and the
// cached user record.
type StoreEntry struct {
	Key       string    `gorm:"primaryKey;type:varchar(255)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
