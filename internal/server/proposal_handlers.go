package server

import (
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

type statusRequest struct {
	Status string `json:"status"`
}

func (r statusRequest) normalized() string {
	return strings.ToUpper(strings.TrimSpace(r.Status))
}

// splitIDs parses a comma separated list of ids, dropping blanks.
func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListPublicProposals handles GET /api/proposals?q=&modality=&want=&have=&take=&skip=
func (s *Server) ListPublicProposals(c *fiber.Ctx) error {
	filter := repository.ProposalFilter{
		Search:       c.Query("q"),
		Modality:     models.Modality(strings.ToUpper(strings.TrimSpace(c.Query("modality")))),
		WantSkillIDs: splitIDs(c.Query("want")),
		HaveSkillIDs: splitIDs(c.Query("have")),
		Take:         c.QueryInt("take", 0),
		Skip:         c.QueryInt("skip", 0),
	}

	proposals, err := s.proposals.ListPublicProposals(c.UserContext(), filter)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(proposals)
}

// CreateProposal handles POST /api/proposals
func (s *Server) CreateProposal(c *fiber.Ctx) error {
	var req service.CreateProposalInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	proposal, err := s.proposals.CreateProposal(c.UserContext(), currentUser(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusCreated, "Proposal created", proposal)
}

// ListMyProposals handles GET /api/proposals/mine
func (s *Server) ListMyProposals(c *fiber.Ctx) error {
	proposals, err := s.proposals.ListMyProposals(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(proposals)
}

// GetProposal handles GET /api/proposals/:id
func (s *Server) GetProposal(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	proposal, err := s.proposals.GetProposal(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(proposal)
}

// UpdateProposalStatus handles PATCH /api/proposals/:id/status
func (s *Server) UpdateProposalStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	proposal, err := s.proposals.UpdateProposalStatus(c.UserContext(), currentUser(c), id, models.ProposalStatus(req.normalized()))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Proposal status updated", proposal)
}

// RescindProposal handles POST /api/proposals/:id/rescind
func (s *Server) RescindProposal(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	proposal, err := s.proposals.RescindProposal(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Proposal rescinded", proposal)
}

// DeleteProposal handles DELETE /api/proposals/:id
func (s *Server) DeleteProposal(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.proposals.DeleteProposal(c.UserContext(), currentUser(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Proposal deleted", nil)
}
