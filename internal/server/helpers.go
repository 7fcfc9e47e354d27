package server

import (
	"readit/internal/middleware"
	"readit/internal/models"
	"readit/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// respond writes err with the status its code maps to. Internal errors are
// logged with their cause, which never reaches the client.
func (s *Server) respond(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	if appErr.Code == models.CodeInternal {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, appErr.Status(), appErr)
}

// bindJSON parses the body into dst and checks its validate tags.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	if fields := validation.Struct(dst); fields != nil {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

// Page holds the parsed page/count query parameters.
type Page struct {
	Page  int
	Count int
}

// parsePage reads ?page=N&count=M. Out of range values are left for the
// service to clamp.
func parsePage(c *fiber.Ctx) (Page, error) {
	page := c.QueryInt("page", 0)
	if page < 0 {
		return Page{}, models.NewFieldValidationError(map[string]string{"page": "page must not be negative"})
	}
	return Page{Page: page, Count: c.QueryInt("count", 0)}, nil
}
