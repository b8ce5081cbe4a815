package models

import "time"

// StateEntry is one persisted gateway state value (identity, cart snapshot,
// checkout session, idempotency record or counter).
type StateEntry struct {
	Key       string     `gorm:"column:state_key;primaryKey;size:255"`
	Value     string     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index:client_state_expires_at_idx"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (StateEntry) TableName() string {
	return "client_state"
}
