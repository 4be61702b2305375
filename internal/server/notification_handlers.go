package server

import (
	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListNotifications handles GET /api/notifications?limit=&offset=
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	list, err := s.notifications.List(c.UserContext(), currentUser(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(list)
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notifications.UnreadCount(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	n, err := s.notifications.MarkRead(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Notification marked as read", n)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	updated, err := s.notifications.MarkAllRead(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "All notifications marked as read", fiber.Map{"updated": updated})
}

// ProcessDelayedEmails handles POST /api/notifications/process-delayed, the manual trigger.
func (s *Server) ProcessDelayedEmails(c *fiber.Ctx) error {
	return s.runDelayedEmails(c)
}

// SendDelayedEmails handles the scheduler call on /api/cron/send-delayed-emails.
func (s *Server) SendDelayedEmails(c *fiber.Ctx) error {
	return s.runDelayedEmails(c)
}

func (s *Server) runDelayedEmails(c *fiber.Ctx) error {
	summary, err := s.delayedJob.ProcessDelayedEmails(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respondResult(c, fiber.StatusOK, "Delayed emails processed", summary)
}
