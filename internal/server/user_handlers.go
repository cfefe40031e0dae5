package server

import (
	"chatterbox/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UsersList handles GET /users: every member, ordered by username.
func (s *Server) UsersList(c *fiber.Ctx) error {
	ctx, cancel := s.storeCtx(c)
	defer cancel()

	users, err := s.userService.ListUsers(ctx)
	if err != nil {
		return s.fail(c, err)
	}

	return s.renderer.Render(c, fiber.StatusOK, "users", fiber.Map{
		"notice": s.popFlash(c),
		"users":  users,
	})
}

// ProfileView handles GET /profile/:id: a member's public page with their
// recent posts.
func (s *Server) ProfileView(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	user, err := s.userService.GetProfile(ctx, id)
	if err != nil {
		return s.fail(c, err)
	}

	return s.renderer.Render(c, fiber.StatusOK, "profile_view", fiber.Map{
		"notice":  s.popFlash(c),
		"profile": user,
	})
}

// ProfileEditPage handles GET /profile: the caller's own edit form.
func (s *Server) ProfileEditPage(c *fiber.Ctx) error {
	sess := currentSession(c)

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	user, err := s.userService.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return s.fail(c, err)
	}

	return s.renderer.Render(c, fiber.StatusOK, "profile_edit", fiber.Map{
		"notice":  s.popFlash(c),
		"profile": user,
	})
}

// UpdateProfile handles POST /profile. A rejected avatar upload aborts the
// whole edit and leaves the stored avatar untouched; a request without a
// file keeps the current one. The session is re-issued so the cached
// display fields match the new profile immediately.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	sess := currentSession(c)

	filename, content, err := readUpload(c, "avatar")
	if err != nil {
		return s.failBack(c, err, "/profile")
	}

	var newRef string
	if filename != "" {
		newRef, err = s.avatarService.Ingest(filename, content)
		if err != nil {
			return s.failBack(c, err, "/profile")
		}
	}

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	user, err := s.userService.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID:   sess.UserID,
		Nickname: c.FormValue("nickname"),
		About:    c.FormValue("about"),
		Avatar:   newRef,
	})
	if err != nil {
		if newRef != "" {
			s.avatarService.Remove(newRef)
		}
		return s.failBack(c, err, "/profile")
	}

	if newRef != "" && sess.Avatar != "" && sess.Avatar != newRef {
		s.avatarService.Remove(sess.Avatar)
	}

	if err := s.sessions.Refresh(c, sess, user); err != nil {
		return s.fail(c, err)
	}

	s.flash(c, "success", "Profile updated.")
	return s.redirect(c, "/profile")
}

// ServeAvatar handles GET /avatars/:ref.
func (s *Server) ServeAvatar(c *fiber.Ctx) error {
	path, err := s.avatarService.Resolve(c.Params("ref"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.SendFile(path)
}
