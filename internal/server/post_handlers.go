package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET /: the board front page with the most recent posts.
func (s *Server) Home(c *fiber.Ctx) error {
	ctx, cancel := s.storeCtx(c)
	defer cancel()

	posts, err := s.postService.ListRecentPosts(ctx)
	if err != nil {
		return s.fail(c, err)
	}

	sess := currentSession(c)
	return s.renderer.Render(c, fiber.StatusOK, "home", fiber.Map{
		"notice": s.popFlash(c),
		"user":   sess.DisplayName(),
		"posts":  posts,
	})
}

// NewPostPage handles GET /post: the compose form.
func (s *Server) NewPostPage(c *fiber.Ctx) error {
	return s.renderer.Render(c, fiber.StatusOK, "post_new", fiber.Map{
		"notice": s.popFlash(c),
	})
}

// CreatePost handles POST /post.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	sess := currentSession(c)

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	if _, err := s.postService.CreatePost(ctx, sess.UserID, c.FormValue("subject"), c.FormValue("body")); err != nil {
		return s.failBack(c, err, "/post")
	}

	s.flash(c, "success", "Post published.")
	return s.redirect(c, "/")
}

// PostDetail handles GET /post/:id: one post with its comments, oldest first.
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return s.fail(c, err)
	}
	comments, err := s.postService.ListComments(ctx, id)
	if err != nil {
		return s.fail(c, err)
	}

	return s.renderer.Render(c, fiber.StatusOK, "post_detail", fiber.Map{
		"notice":   s.popFlash(c),
		"post":     post,
		"comments": comments,
	})
}

// AddComment handles POST /post/:id.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.fail(c, err)
	}
	sess := currentSession(c)

	ctx, cancel := s.storeCtx(c)
	defer cancel()

	if _, err := s.postService.AddComment(ctx, id, sess.UserID, c.FormValue("comment")); err != nil {
		return s.failBack(c, err, "/post/"+strconv.Itoa(int(id)))
	}

	s.flash(c, "success", "Comment added.")
	return s.redirect(c, "/post/"+strconv.Itoa(int(id)))
}
