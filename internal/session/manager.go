// Package session implements the signed-cookie session manager.
//
// A session is a signed HS256 token held in an HttpOnly cookie. It caches
// the profile fields needed for rendering (username, nickname, avatar) and
// the chat gate flag; the database stays the source of truth. Logout
// revokes the token id in Redis so a copied cookie dies with the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chatterbox/internal/middleware"
	"chatterbox/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the session cookie.
	CookieName = "cb_session"

	issuer   = "chatterbox"
	audience = "chatterbox-web"

	revokedKeyPrefix = "session:revoked:"
)

// Session is the per-browser state carried by a valid session token.
type Session struct {
	UserID   uint
	Username string
	Nickname string
	Avatar   string
	// ChatAllowed records that this session passed the chat name gate.
	// Always false on a freshly issued login session.
	ChatAllowed bool

	jti       string
	expiresAt time.Time
}

// Manager issues, validates and destroys sessions.
type Manager struct {
	secret      []byte
	idleTimeout time.Duration
	redis       *redis.Client
}

// NewManager returns a session manager signing with secret. rdb may be nil;
// revocation then degrades to cookie deletion.
func NewManager(secret string, idleTimeout time.Duration, rdb *redis.Client) *Manager {
	return &Manager{
		secret:      []byte(secret),
		idleTimeout: idleTimeout,
		redis:       rdb,
	}
}

// Issue signs a fresh session for user and sets the cookie. Login always
// issues with chatAllowed=false so chat access is re-earned per session.
func (m *Manager) Issue(c *fiber.Ctx, user *models.User, chatAllowed bool) error {
	now := time.Now()
	exp := now.Add(m.idleTimeout)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"nickname": user.Nickname,
		"avatar":   user.Avatar,
		"chat":     chatAllowed,
		"iss":      issuer,
		"aud":      audience,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      exp.Unix(),
		"jti":      uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}

	m.setCookie(c, signed, exp)
	return nil
}

// Lookup parses and validates the session cookie. It returns (nil, nil)
// when there is no usable session: missing cookie, bad signature, expiry,
// or a revoked token id. A cookie past half of the idle timeout is
// re-signed so active sessions slide instead of expiring mid-use.
func (m *Manager) Lookup(c *fiber.Ctx) (*Session, error) {
	raw := c.Cookies(CookieName)
	if raw == "" {
		return nil, nil
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
	if err != nil || !token.Valid {
		return nil, nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil
	}

	sess, ok := sessionFromClaims(claims)
	if !ok {
		return nil, nil
	}

	if m.isRevoked(c.Context(), sess.jti) {
		return nil, nil
	}

	if time.Until(sess.expiresAt) < m.idleTimeout/2 {
		if err := m.reissue(c, sess); err != nil {
			// The current token is still valid; log and carry on.
			middleware.Logger.WarnContext(c.UserContext(), "session re-issue failed",
				"error", err.Error())
		}
	}

	return sess, nil
}

// Refresh re-signs the session in place with updated profile fields,
// preserving the chat gate flag. Used by profile edits so the cached
// nickname/avatar reflect the change without a re-login.
func (m *Manager) Refresh(c *fiber.Ctx, sess *Session, user *models.User) error {
	sess.Username = user.Username
	sess.Nickname = user.Nickname
	sess.Avatar = user.Avatar
	return m.Issue(c, user, sess.ChatAllowed)
}

// Grant re-signs the session with the chat gate open. The transition is
// one-way for the life of the session.
func (m *Manager) Grant(c *fiber.Ctx, sess *Session) error {
	sess.ChatAllowed = true
	user := &models.User{
		ID:       sess.UserID,
		Username: sess.Username,
		Nickname: sess.Nickname,
		Avatar:   sess.Avatar,
	}
	return m.Issue(c, user, true)
}

// Destroy revokes the session's token id and clears the cookie. Without
// Redis the revocation is skipped and the session dies at its expiry.
func (m *Manager) Destroy(c *fiber.Ctx, sess *Session) {
	if sess != nil && m.redis != nil {
		ttl := time.Until(sess.expiresAt)
		if ttl > 0 {
			key := revokedKeyPrefix + sess.jti
			if err := m.redis.Set(c.Context(), key, "1", ttl).Err(); err != nil {
				middleware.Logger.WarnContext(c.UserContext(), "session revocation failed",
					"error", err.Error())
			} else {
				middleware.SessionRevocations.Inc()
			}
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (m *Manager) reissue(c *fiber.Ctx, sess *Session) error {
	user := &models.User{
		ID:       sess.UserID,
		Username: sess.Username,
		Nickname: sess.Nickname,
		Avatar:   sess.Avatar,
	}
	return m.Issue(c, user, sess.ChatAllowed)
}

func (m *Manager) isRevoked(ctx context.Context, jti string) bool {
	if m.redis == nil || jti == "" {
		return false
	}
	n, err := m.redis.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		// Fail open: an unreachable Redis must not lock every user out.
		return false
	}
	return n > 0
}

func (m *Manager) setCookie(c *fiber.Ctx, value string, exp time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func sessionFromClaims(claims jwt.MapClaims) (*Session, bool) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, false
	}

	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return nil, false
	}

	sess := &Session{
		UserID:   uint(userID),
		Username: username,
	}
	if v, ok := claims["nickname"].(string); ok {
		sess.Nickname = v
	}
	if v, ok := claims["avatar"].(string); ok {
		sess.Avatar = v
	}
	if v, ok := claims["chat"].(bool); ok {
		sess.ChatAllowed = v
	}
	if v, ok := claims["jti"].(string); ok {
		sess.jti = v
	}
	if v, ok := claims["exp"].(float64); ok {
		sess.expiresAt = time.Unix(int64(v), 0)
	}
	return sess, true
}

// DisplayName returns the nickname when set, otherwise the username.
func (s *Session) DisplayName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return s.Username
}
