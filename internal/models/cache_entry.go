package models

import (
	"time"
)

// CacheEntry is a persisted key-value row shared by the catalog cache, the
// PIN attempt counters and the rate limiter. A zero ExpiresAt means the
// entry does not expire on its own (catalog snapshots stay readable stale).
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
