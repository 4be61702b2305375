package server

import (
	"io"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	userID := currentUser(c)

	profile, err := s.users.GetProfile(c.UserContext(), userID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/me/profile
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.users.UpdateProfile(c.UserContext(), currentUser(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Profile updated", user)
}

// UploadAvatar handles POST /api/me/avatar with a multipart "file" field.
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("file is required"))
	}
	if fh.Size > service.MaxAvatarBytes {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("avatar must be at most 5 MiB"))
	}

	f, err := fh.Open()
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, service.MaxAvatarBytes+1))
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}

	user, err := s.users.UploadAvatar(c.UserContext(), currentUser(c), content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Avatar updated", user)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseUserID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.users.GetProfile(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// GetReputation handles GET /api/users/:id/reputation
func (s *Server) GetReputation(c *fiber.Ctx) error {
	id, err := parseUserID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	if _, err := s.users.GetUser(ctx, id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	rep, err := s.reputation.Compute(ctx, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(rep)
}

// ListUserReviews handles GET /api/users/:id/reviews
func (s *Server) ListUserReviews(c *fiber.Ctx) error {
	id, err := parseUserID(c, "id")
	if err != nil {
		return nil
	}

	reviews, err := s.reviews.ListReviewsForUser(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reviews)
}

// EndorseSkill handles POST /api/users/:id/endorsements
func (s *Server) EndorseSkill(c *fiber.Ctx) error {
	target, err := parseUserID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Skill string `json:"skill"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	link, err := s.skills.EndorseSkill(c.UserContext(), currentUser(c), target, req.Skill)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Skill endorsed", link)
}

// GetLeaderboard handles GET /api/leaderboard?limit=
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := s.reputation.Leaderboard(c.UserContext(), currentUser(c), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(entries)
}

// GetDashboard handles GET /api/dashboard
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	overview, err := s.dashboard.Overview(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(overview)
}

// ListMySkills handles GET /api/me/skills
func (s *Server) ListMySkills(c *fiber.Ctx) error {
	skills, err := s.skills.ListMySkills(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(skills)
}

// AddSkill handles POST /api/me/skills
func (s *Server) AddSkill(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	link, err := s.skills.AddSkill(c.UserContext(), currentUser(c), req.Name)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusCreated, "Skill added", link)
}

// SetSkillVisibility handles PATCH /api/me/skills/:id
func (s *Server) SetSkillVisibility(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Visible *bool `json:"is_visible"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Visible == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("is_visible is required"))
	}

	link, err := s.skills.SetSkillVisibility(c.UserContext(), currentUser(c), id, *req.Visible)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Skill updated", link)
}

// RemoveSkill handles DELETE /api/me/skills/:id
func (s *Server) RemoveSkill(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.skills.RemoveSkill(c.UserContext(), currentUser(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Skill removed", nil)
}

// SearchSkills handles GET /api/skills?q=
func (s *Server) SearchSkills(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	page := parsePagination(c, 10)

	skills, err := s.skills.SearchSkills(c.UserContext(), q, page.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(skills)
}
