package server

import (
	"chatterbox/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterPage handles GET /register. A logged-in caller is sent home.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	if sess, _ := s.sessions.Lookup(c); sess != nil {
		return s.redirect(c, "/")
	}
	return s.renderer.Render(c, fiber.StatusOK, "register", fiber.Map{
		"notice": s.popFlash(c),
	})
}

// Register handles POST /register: create the account, then send the caller
// to the login form. On a duplicate username the form re-renders with the
// non-sensitive fields preserved; password fields are never echoed back.
func (s *Server) Register(c *fiber.Ctx) error {
	if sess, _ := s.sessions.Lookup(c); sess != nil {
		return s.redirect(c, "/")
	}

	in := registerInput(c)

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	user, err := s.authService.Register(ctx, in)
	if err != nil {
		return s.registerFailed(c, err, in)
	}

	// Optional avatar at registration; an invalid file only costs the
	// avatar, not the account.
	if ref, ok := s.ingestUploadedAvatar(c); ok {
		if _, setErr := s.userService.SetAvatar(ctx, user.ID, ref); setErr != nil {
			s.avatarService.Remove(ref)
		}
	}

	s.flash(c, "success", "Registration successful. Please log in.")
	return s.redirect(c, "/login")
}

// LoginPage handles GET /login. A logged-in caller is sent home.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	if sess, _ := s.sessions.Lookup(c); sess != nil {
		return s.redirect(c, "/")
	}
	return s.renderer.Render(c, fiber.StatusOK, "login", fiber.Map{
		"notice": s.popFlash(c),
	})
}

// Login handles POST /login: verify credentials and establish the session.
// Every fresh login starts with the chat gate closed.
func (s *Server) Login(c *fiber.Ctx) error {
	if sess, _ := s.sessions.Lookup(c); sess != nil {
		return s.redirect(c, "/")
	}

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	user, err := s.authService.Verify(ctx, c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		return s.failBack(c, err, "/login")
	}

	if err := s.sessions.Issue(c, user, false); err != nil {
		return s.fail(c, err)
	}

	s.flash(c, "success", "Logged in successfully.")
	return s.redirect(c, "/")
}

// Logout handles GET /logout: revoke the session and clear the cookie.
func (s *Server) Logout(c *fiber.Ctx) error {
	s.sessions.Destroy(c, currentSession(c))
	s.flash(c, "info", "You have been logged out.")
	return s.redirect(c, "/login")
}

func registerInput(c *fiber.Ctx) service.RegisterInput {
	return service.RegisterInput{
		Username:        c.FormValue("username"),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm"),
		Nickname:        c.FormValue("nickname"),
		About:           c.FormValue("about"),
	}
}

// registerFailed re-renders the registration form with the notice and the
// recoverable fields; anything non-recoverable goes to the error boundary.
func (s *Server) registerFailed(c *fiber.Ctx, err error, in service.RegisterInput) error {
	status := statusForFormError(err)
	if status == 0 {
		return s.fail(c, err)
	}
	return s.renderer.Render(c, status, "register", fiber.Map{
		"notice": &Notice{Category: "danger", Message: userMessage(err)},
		"form": fiber.Map{
			"username": in.Username,
			"nickname": in.Nickname,
			"about":    in.About,
		},
	})
}
