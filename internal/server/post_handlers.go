package server

import (
	"readit/internal/middleware"
	"readit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts?page=N&count=M
// @Summary List posts
// @Description Newest first, each annotated with score, comment count and the caller's vote
// @Tags posts
// @Produce json
// @Param page query int false "0-based page"
// @Param count query int false "page size"
// @Success 200 {array} models.PostView
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return s.respond(c, err)
	}

	posts, err := s.postService.List(c.UserContext(), service.ListPostsInput{
		Page:     page.Page,
		Count:    page.Count,
		ViewerID: middleware.CurrentUserID(c),
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{title=string,body=string,sub=string} true "Post"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Sub   string `json:"sub"`
	}
	if err := bindJSON(c, &req); err != nil {
		return s.respond(c, err)
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		UserID:  middleware.CurrentUserID(c),
		SubName: req.Sub,
		Title:   req.Title,
		Body:    req.Body,
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:identifier/:slug
// @Summary Get post
// @Tags posts
// @Produce json
// @Param identifier path string true "Post identifier"
// @Param slug path string true "Post slug"
// @Success 200 {object} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{identifier}/{slug} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.Get(c.UserContext(), c.Params("identifier"), c.Params("slug"), middleware.CurrentUserID(c))
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:identifier/:slug
// @Summary Delete post
// @Description Removes the post with its comments and votes. Author only.
// @Tags posts
// @Param identifier path string true "Post identifier"
// @Param slug path string true "Post slug"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{identifier}/{slug} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.Delete(c.UserContext(), c.Params("identifier"), c.Params("slug"), middleware.CurrentUserID(c)); err != nil {
		return s.respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetComments handles GET /api/posts/:identifier/:slug/comments
// @Summary List comments
// @Tags comments
// @Produce json
// @Param identifier path string true "Post identifier"
// @Param slug path string true "Post slug"
// @Success 200 {array} models.CommentView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{identifier}/{slug}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.postService.ListComments(c.UserContext(), c.Params("identifier"), c.Params("slug"), middleware.CurrentUserID(c))
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:identifier/:slug/comments
// @Summary Create comment
// @Tags comments
// @Accept json
// @Produce json
// @Param identifier path string true "Post identifier"
// @Param slug path string true "Post slug"
// @Param request body object{body=string} true "Comment"
// @Success 201 {object} models.CommentView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{identifier}/{slug}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := bindJSON(c, &req); err != nil {
		return s.respond(c, err)
	}

	comment, err := s.postService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:     middleware.CurrentUserID(c),
		Identifier: c.Params("identifier"),
		Slug:       c.Params("slug"),
		Body:       req.Body,
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
