package models

import "time"

// RateLimitCounter is a per-key fixed-window counter used by interactive
// collaborators (spec.md §3). The batch runner never reads or writes it.
type RateLimitCounter struct {
	Key             string    `gorm:"primaryKey;size:150" json:"key"`
	Count           int       `json:"count"`
	WindowStartedAt time.Time `json:"windowStartedAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

func (RateLimitCounter) TableName() string { return "rate_limit_counters" }
