package server

import (
	"time"

	"readit/internal/middleware"
	"readit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,username=string,password=string} true "Register request"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		return s.respond(c, err)
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Check credentials and set the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login request"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		return s.respond(c, err)
	}

	session, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respond(c, err)
	}

	s.setSessionCookie(c, session.Token, session.Expires)
	return c.JSON(session.User)
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Expire the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{success=bool}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.setSessionCookie(c, "", time.Unix(0, 0))
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) setSessionCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.Env != "" && s.config.Env != "development" && s.config.Env != "test",
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
