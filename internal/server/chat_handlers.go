package server

import (
	"chatterbox/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// ChatAuthPage handles GET /chat_auth: the second gate in front of the chat
// room. A caller who already passed it is sent straight in.
func (s *Server) ChatAuthPage(c *fiber.Ctx) error {
	if currentSession(c).ChatAllowed {
		return s.redirect(c, "/chat/")
	}
	return s.renderer.Render(c, fiber.StatusOK, "chat_auth", fiber.Map{
		"notice": s.popFlash(c),
	})
}

// ChatAuthSubmit handles POST /chat_auth: check the submitted full name
// against the allow-list and, on a match, open the gate for this session.
func (s *Server) ChatAuthSubmit(c *fiber.Ctx) error {
	sess := currentSession(c)

	if !s.chatService.Authorize(c.FormValue("full_name")) {
		middleware.ChatGateDecisions.WithLabelValues("denied").Inc()
		s.flash(c, "danger", "Access denied. Your name is not on the list.")
		return s.redirect(c, "/chat_auth")
	}

	if err := s.sessions.Grant(c, sess); err != nil {
		return s.fail(c, err)
	}
	middleware.ChatGateDecisions.WithLabelValues("granted").Inc()

	s.flash(c, "success", "Welcome to the chat room.")
	return s.redirect(c, "/chat/")
}

// ChatPage handles GET /chat/: the room history, oldest first.
func (s *Server) ChatPage(c *fiber.Ctx) error {
	ctx, cancel := s.storeCtx(c)
	defer cancel()

	messages, err := s.chatService.ListMessages(ctx)
	if err != nil {
		return s.fail(c, err)
	}

	sess := currentSession(c)
	return s.renderer.Render(c, fiber.StatusOK, "chat", fiber.Map{
		"notice":   s.popFlash(c),
		"user":     sess.DisplayName(),
		"messages": messages,
	})
}

// SendChatMessage handles POST /chat/.
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	sess := currentSession(c)

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	if _, err := s.chatService.AppendMessage(ctx, sess.UserID, c.FormValue("message")); err != nil {
		return s.failBack(c, err, "/chat/")
	}

	return s.redirect(c, "/chat/")
}
