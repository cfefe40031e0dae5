package repository

import (
	"context"
	"testing"
	"time"

	"chatterbox/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepository_ListRecent_ReturnsOldestFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	now := time.Now()
	// The window is fetched newest-first.
	msgRows := sqlmock.NewRows([]string{"id", "user_id", "message", "created_at"}).
		AddRow(3, 1, "third", now).
		AddRow(2, 1, "second", now.Add(-time.Minute)).
		AddRow(1, 1, "first", now.Add(-2*time.Minute))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
		WillReturnRows(msgRows)

	userRows := sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "alice")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"\."id" = \$1`).
		WithArgs(1).
		WillReturnRows(userRows)

	msgs, err := repo.ListRecent(context.Background(), 200)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Reading order is chronological.
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
	assert.Equal(t, "third", msgs[2].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_CreateMessage(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "chat_messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	msg := &models.ChatMessage{UserID: 1, Message: "hello"}
	require.NoError(t, repo.CreateMessage(context.Background(), msg))
	assert.Equal(t, uint(5), msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
