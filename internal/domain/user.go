// File: internal/domain/user.go
package domain

import "time"

// User carries only what the pipeline touches: the monthly quota counters the
// usage fan-out maintains and the model preference applied to new chats.
// Account management itself lives outside this service.
type User struct {
	ID                  string `gorm:"primarykey;size:36" json:"id"`
	PreferredModel      string `gorm:"size:100" json:"preferred_model"`
	MonthlyMessageCount int    `json:"monthly_message_count"`
	MonthlyMessageLimit int    `gorm:"default:1000" json:"monthly_message_limit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
