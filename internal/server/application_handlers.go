package server

import (
	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateApplication handles POST /api/proposals/:id/applications
func (s *Server) CreateApplication(c *fiber.Ctx) error {
	proposalID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		PitchMessage string `json:"pitch_message"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	app, err := s.applications.CreateApplication(c.UserContext(), currentUser(c), proposalID, req.PitchMessage)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusCreated, "Application submitted", app)
}

// ListApplicationsForProposal handles GET /api/proposals/:id/applications
func (s *Server) ListApplicationsForProposal(c *fiber.Ctx) error {
	proposalID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	apps, err := s.applications.ListApplicationsForProposal(c.UserContext(), currentUser(c), proposalID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(apps)
}

// ListMyApplications handles GET /api/applications/mine
func (s *Server) ListMyApplications(c *fiber.Ctx) error {
	apps, err := s.applications.ListMyApplications(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(apps)
}

// UpdateApplicationStatus handles PATCH /api/applications/:id/status.
// ACCEPTED also starts the swap.
func (s *Server) UpdateApplicationStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx := c.UserContext()
	app, swap, err := s.applications.UpdateApplicationStatus(ctx, currentUser(c), id, models.ApplicationStatus(req.normalized()))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishUserEvent(ctx, EventApplicationUpdated, app, app.ApplicantID)
	if swap != nil {
		s.publishUserEvent(ctx, EventSwapUpdated, swap, swap.TeacherID, swap.StudentID)
	}
	return respondResult(c, fiber.StatusOK, "Application "+string(app.Status), fiber.Map{
		"application": app,
		"swap":        swap,
	})
}

// AcceptApplication handles POST /api/applications/:id/accept
func (s *Server) AcceptApplication(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	swap, err := s.swaps.CreateSwapFromApplication(ctx, currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishUserEvent(ctx, EventSwapUpdated, swap, swap.TeacherID, swap.StudentID)
	return respondResult(c, fiber.StatusCreated, "Swap started", swap)
}
