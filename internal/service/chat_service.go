package service

import (
	"context"
	"strings"

	"chatterbox/internal/models"
	"chatterbox/internal/repository"
)

// ChatHistoryLimit caps how many of the most recent messages a read returns.
const ChatHistoryLimit = 200

// ChatService implements the chat room and its name gate. The gate is the
// second stage of chat authorization: a logged-in caller must submit a full
// legal name that exactly matches an allow-list entry before the session may
// reach chat content.
type ChatService struct {
	chatRepo  repository.ChatRepository
	allowList map[string]struct{}
}

// NewChatService returns a ChatService with the given injected allow-list.
// The list is process-wide static configuration, not user data.
func NewChatService(chatRepo repository.ChatRepository, allowedNames []string) *ChatService {
	allow := make(map[string]struct{}, len(allowedNames))
	for _, name := range allowedNames {
		allow[name] = struct{}{}
	}
	return &ChatService{chatRepo: chatRepo, allowList: allow}
}

// Authorize reports whether fullName opens the chat gate. Matching is
// case-sensitive and exact after trimming surrounding whitespace.
func (s *ChatService) Authorize(fullName string) bool {
	name := strings.TrimSpace(fullName)
	if name == "" {
		return false
	}
	_, ok := s.allowList[name]
	return ok
}

// AppendMessage validates and stores a chat message for userID.
func (s *ChatService) AppendMessage(ctx context.Context, userID uint, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Message cannot be empty")
	}

	msg := &models.ChatMessage{
		UserID:  userID,
		Message: text,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the most recent messages oldest-first.
func (s *ChatService) ListMessages(ctx context.Context) ([]*models.ChatMessage, error) {
	return s.chatRepo.ListRecent(ctx, ChatHistoryLimit)
}
