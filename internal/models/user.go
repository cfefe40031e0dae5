// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered Chatterbox account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Nickname     string    `gorm:"size:50" json:"nickname"`
	About        string    `gorm:"type:text" json:"about"`
	// Avatar holds a served file reference under /avatars/, empty when the
	// user never uploaded one.
	Avatar    string    `gorm:"size:80" json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Posts     []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// DisplayName returns the nickname when set, otherwise the username.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}
