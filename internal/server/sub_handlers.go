package server

import (
	"readit/internal/middleware"
	"readit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// TopSubs handles GET /api/subs/sub/topSubs
// @Summary Top communities
// @Description Communities ranked by post count, ties broken by name
// @Tags subs
// @Produce json
// @Param limit query int false "Number of communities (default 5, max 100)"
// @Success 200 {array} models.TopSub
// @Router /subs/sub/topSubs [get]
func (s *Server) TopSubs(c *fiber.Ctx) error {
	top, err := s.communityService.TopCommunities(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(top)
}

// CreateSub handles POST /api/subs
// @Summary Create community
// @Tags subs
// @Accept json
// @Produce json
// @Param request body object{name=string,title=string,description=string} true "Community"
// @Success 201 {object} models.SubView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /subs [post]
func (s *Server) CreateSub(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := bindJSON(c, &req); err != nil {
		return s.respond(c, err)
	}

	sub, err := s.communityService.Create(c.UserContext(), service.CreateCommunityInput{
		UserID:      middleware.CurrentUserID(c),
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// GetSub handles GET /api/subs/:name
// @Summary Get community
// @Tags subs
// @Produce json
// @Param name path string true "Community name"
// @Success 200 {object} models.SubView
// @Failure 404 {object} models.ErrorResponse
// @Router /subs/{name} [get]
func (s *Server) GetSub(c *fiber.Ctx) error {
	sub, err := s.communityService.Get(c.UserContext(), c.Params("name"), middleware.CurrentUserID(c))
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(sub)
}
