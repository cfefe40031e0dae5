// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"chatterbox/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines the interface for chat room data operations
type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	ListRecent(ctx context.Context, limit int) ([]*models.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return translateStoreError(err)
	}
	return nil
}

// ListRecent returns the most recent `limit` messages in chronological
// reading order: the newest window is selected descending, then reversed so
// the oldest of the window comes first.
func (r *chatRepository) ListRecent(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, translateStoreError(err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
