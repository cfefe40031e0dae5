package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"chatterbox/internal/models"
	"chatterbox/internal/service"
	"chatterbox/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChatGate(t *testing.T) {
	t.Run("Closed gate bounces to name entry", func(t *testing.T) {
		s, _ := newTestServer(t)
		app := setupTestApp(s)
		ck := authCookie(t, s, &models.User{ID: 1, Username: "alice"}, false)

		req := httptest.NewRequest(http.MethodGet, "/chat/", nil)
		req.AddCookie(ck)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/chat_auth", resp.Header.Get("Location"))
	})

	t.Run("Matching name opens the gate", func(t *testing.T) {
		s, m := newTestServer(t)
		app := setupTestApp(s)
		ck := authCookie(t, s, &models.User{ID: 1, Username: "alice"}, false)

		form := url.Values{"full_name": {"Ada Lovelace"}}
		req := formRequest(http.MethodPost, "/chat_auth", form)
		req.AddCookie(ck)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/chat/", resp.Header.Get("Location"))

		granted := respCookie(resp, session.CookieName)
		require.NotNil(t, granted)

		m.chat.On("ListRecent", mock.Anything, service.ChatHistoryLimit).
			Return([]*models.ChatMessage{}, nil).Once()

		req = httptest.NewRequest(http.MethodGet, "/chat/", nil)
		req.AddCookie(granted)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Wrong name keeps the gate closed", func(t *testing.T) {
		s, _ := newTestServer(t)
		app := setupTestApp(s)
		ck := authCookie(t, s, &models.User{ID: 1, Username: "alice"}, false)

		for _, name := range []string{"ada lovelace", "Ada", "Grace Hopper", ""} {
			form := url.Values{"full_name": {name}}
			req := formRequest(http.MethodPost, "/chat_auth", form)
			req.AddCookie(ck)
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "name %q", name)
			assert.Equal(t, "/chat_auth", resp.Header.Get("Location"), "name %q", name)
			assert.Nil(t, respCookie(resp, session.CookieName), "name %q", name)
		}
	})

	t.Run("Grant does not survive a fresh login", func(t *testing.T) {
		s, _ := newTestServer(t)
		app := setupTestApp(s)
		user := &models.User{ID: 1, Username: "alice"}

		// First session earned access; the next login starts locked again.
		granted := authCookie(t, s, user, true)
		fresh := authCookie(t, s, user, false)

		req := httptest.NewRequest(http.MethodGet, "/chat_auth", nil)
		req.AddCookie(granted)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "/chat/", resp.Header.Get("Location"))

		req = httptest.NewRequest(http.MethodGet, "/chat/", nil)
		req.AddCookie(fresh)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "/chat_auth", resp.Header.Get("Location"))
	})
}

func TestChatPage(t *testing.T) {
	s, m := newTestServer(t)
	app := setupTestApp(s)
	ck := authCookie(t, s, &models.User{ID: 1, Username: "alice", Nickname: "Allie"}, true)

	m.chat.On("ListRecent", mock.Anything, service.ChatHistoryLimit).Return([]*models.ChatMessage{
		{ID: 1, Message: "first"},
		{ID: 2, Message: "second"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chat/", nil)
	req.AddCookie(ck)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Page     string `json:"page"`
		User     string `json:"user"`
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "chat", body.Page)
	assert.Equal(t, "Allie", body.User)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "first", body.Messages[0].Message)
}

func TestSendChatMessage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, m := newTestServer(t)
		app := setupTestApp(s)
		ck := authCookie(t, s, &models.User{ID: 9, Username: "alice"}, true)

		m.chat.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg *models.ChatMessage) bool {
			return msg.UserID == 9 && msg.Message == "hello room"
		})).Return(nil).Once()

		form := url.Values{"message": {"hello room"}}
		req := formRequest(http.MethodPost, "/chat/", form)
		req.AddCookie(ck)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/chat/", resp.Header.Get("Location"))
		m.chat.AssertExpectations(t)
	})

	t.Run("Gate closed rejects the send", func(t *testing.T) {
		s, m := newTestServer(t)
		app := setupTestApp(s)
		ck := authCookie(t, s, &models.User{ID: 9, Username: "alice"}, false)

		form := url.Values{"message": {"hello room"}}
		req := formRequest(http.MethodPost, "/chat/", form)
		req.AddCookie(ck)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/chat_auth", resp.Header.Get("Location"))
		m.chat.AssertNotCalled(t, "CreateMessage")
	})

	t.Run("Empty message bounces back", func(t *testing.T) {
		s, m := newTestServer(t)
		app := setupTestApp(s)
		ck := authCookie(t, s, &models.User{ID: 9, Username: "alice"}, true)

		form := url.Values{"message": {"   "}}
		req := formRequest(http.MethodPost, "/chat/", form)
		req.AddCookie(ck)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/chat/", resp.Header.Get("Location"))
		m.chat.AssertNotCalled(t, "CreateMessage")
	})
}
