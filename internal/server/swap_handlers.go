package server

import (
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListMySwaps handles GET /api/swaps?status=
func (s *Server) ListMySwaps(c *fiber.Ctx) error {
	var status models.SwapStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, ok := models.ParseSwapStatus(raw)
		if !ok {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("status must be one of: ACTIVE, COMPLETED, CANCELLED"))
		}
		status = parsed
	}

	swaps, err := s.swaps.ListMySwaps(c.UserContext(), currentUser(c), status)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(swaps)
}

// GetSwap handles GET /api/swaps/:id
func (s *Server) GetSwap(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	swap, err := s.swaps.GetSwap(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(swap)
}

// UpdateSwapStatus handles PATCH /api/swaps/:id/status
func (s *Server) UpdateSwapStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	status, ok := models.ParseSwapStatus(req.Status)
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("status must be one of: COMPLETED, CANCELLED"))
	}

	ctx := c.UserContext()
	swap, err := s.swaps.UpdateSwapStatus(ctx, currentUser(c), id, status)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishUserEvent(ctx, EventSwapUpdated, swap, swap.TeacherID, swap.StudentID)
	return respondResult(c, fiber.StatusOK, "Swap "+string(swap.Status), swap)
}

// CreateReview handles POST /api/swaps/:id/reviews
func (s *Server) CreateReview(c *fiber.Ctx) error {
	swapID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req service.CreateReviewInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	review, err := s.reviews.CreateReview(c.UserContext(), currentUser(c), swapID, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusCreated, "Review submitted", review)
}

// ListMessages handles GET /api/swaps/:id/messages?since=<RFC3339>
func (s *Server) ListMessages(c *fiber.Ctx) error {
	swapID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var since time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("since must be an RFC3339 timestamp"))
		}
	}

	messages, err := s.messages.ListMessages(c.UserContext(), currentUser(c), swapID, since)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/swaps/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	swapID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req service.SendMessageInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx := c.UserContext()
	sender := currentUser(c)
	msg, err := s.messages.SendMessage(ctx, sender, swapID, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if swap, err := s.swaps.GetSwap(ctx, sender, swapID); err == nil {
		s.publishUserEvent(ctx, EventMessageCreated, msg, swap.Counterpart(sender))
	}
	return respondResult(c, fiber.StatusCreated, "Message sent", msg)
}
