// Package server contains the HTTP handlers and route wiring for Chatterbox.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"chatterbox/internal/middleware"
	"chatterbox/internal/models"
	"chatterbox/internal/session"

	"github.com/gofiber/fiber/v2"
)

const flashCookieName = "cb_flash"

// Notice is a transient message surfaced on the next rendered page.
type Notice struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// flash queues a notice for the next render via a short-lived cookie.
func (s *Server) flash(c *fiber.Ctx, category, message string) {
	c.Cookie(&fiber.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(category + "|" + message),
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// popFlash reads and clears the queued notice, if any.
func (s *Server) popFlash(c *fiber.Ctx) *Notice {
	raw := c.Cookies(flashCookieName)
	if raw == "" {
		return nil
	}
	c.Cookie(&fiber.Cookie{
		Name:    flashCookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
	})

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	category, message, found := strings.Cut(decoded, "|")
	if !found {
		return nil
	}
	return &Notice{Category: category, Message: message}
}

// redirect answers a form POST (or a gate bounce) with a see-other redirect.
func (s *Server) redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusSeeOther)
}

// storeCtx derives the bounded context every datastore call runs under.
func (s *Server) storeCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.config.StoreTimeout)
}

// currentSession returns the session placed in locals by LoginRequired.
func currentSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals("session").(*session.Session)
	return sess
}

// parseID extracts a route parameter by name as a positive uint.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + param)
	}
	return uint(id), nil
}

// fail converts an application error into the boundary response: the HTTP
// status from the taxonomy and a JSON error body. Internal detail goes to
// the log, never the page.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := models.StatusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// statusForFormError reports the render status for an error the form can
// recover from, or 0 when the error belongs to the boundary instead.
func statusForFormError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return 0
	}
	switch appErr.Code {
	case models.CodeValidation, models.CodeDuplicateUsername,
		models.CodeInvalidCredential, models.CodeUnsupportedType:
		return models.StatusForError(err)
	default:
		return 0
	}
}

// userMessage extracts the user-facing message from an application error.
func userMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong"
}

// readUpload pulls a multipart file field into memory. A missing field is
// not an error: the caller sees an empty filename.
func readUpload(c *fiber.Ctx, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, models.NewValidationError("Could not read the uploaded file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, models.NewValidationError("Could not read the uploaded file")
	}
	return header.Filename, content, nil
}

// ingestUploadedAvatar stores the avatar attached to the request, if any.
// Failures are swallowed: the caller's main operation already succeeded.
func (s *Server) ingestUploadedAvatar(c *fiber.Ctx) (string, bool) {
	filename, content, err := readUpload(c, "avatar")
	if err != nil || filename == "" {
		return "", false
	}
	ref, err := s.avatarService.Ingest(filename, content)
	if err != nil {
		return "", false
	}
	return ref, true
}

// failBack converts a recoverable form error into a flash notice and a
// redirect back to the given location.
func (s *Server) failBack(c *fiber.Ctx, err error, location string) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return s.fail(c, err)
	}
	switch appErr.Code {
	case models.CodeValidation, models.CodeDuplicateUsername,
		models.CodeInvalidCredential, models.CodeUnsupportedType:
		s.flash(c, "danger", appErr.Message)
		return s.redirect(c, location)
	default:
		return s.fail(c, err)
	}
}
