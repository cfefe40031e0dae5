// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// ChatMessage represents one message in the gated chat room. The room is
// append-only; reads are capped to the most recent messages.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
