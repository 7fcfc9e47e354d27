package server

import (
	"readit/internal/middleware"
	"readit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// VoteRequest addresses a post, or one of its comments when
// CommentIdentifier is set. Value is the intended vote; repeating the stored
// value clears it.
type VoteRequest struct {
	Identifier        string `json:"identifier" validate:"required"`
	Slug              string `json:"slug" validate:"required"`
	Value             *int   `json:"value" validate:"required,oneof=-1 0 1"`
	CommentIdentifier string `json:"commentIdentifier"`
}

// Vote handles POST /api/votes
// @Summary Vote on a post or comment
// @Description Applies -1, 0 or 1. Sending the stored value again clears the vote.
// @Tags votes
// @Accept json
// @Produce json
// @Param request body VoteRequest true "Vote request"
// @Success 200 {object} models.PostView "the post, or models.CommentView when commentIdentifier is set"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /votes [post]
func (s *Server) Vote(c *fiber.Ctx) error {
	var req VoteRequest
	if err := bindJSON(c, &req); err != nil {
		return s.respond(c, err)
	}

	ctx := c.UserContext()
	userID := middleware.CurrentUserID(c)

	resolved, err := s.voteService.ResolveTarget(ctx, req.Identifier, req.Slug, req.CommentIdentifier)
	if err != nil {
		return s.respond(c, err)
	}

	if _, err := s.voteService.ApplyVote(ctx, service.ApplyVoteInput{
		VoterID:  userID,
		Target:   resolved.Target,
		Value:    *req.Value,
		Resolved: resolved,
	}); err != nil {
		return s.respond(c, err)
	}

	if resolved.Comment != nil {
		view, err := s.postService.ViewComment(ctx, resolved.Comment, userID)
		if err != nil {
			return s.respond(c, err)
		}
		return c.JSON(view)
	}

	view, err := s.postService.View(ctx, resolved.Post, userID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(view)
}
