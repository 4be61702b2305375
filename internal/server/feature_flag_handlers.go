package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags lists every configured flag with its rollout and whether it is
// on for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	states := s.featureFlags.Evaluate(currentUser(c))
	evaluated := make(map[string]bool, len(states))
	for _, st := range states {
		evaluated[st.Name] = st.Enabled
	}
	return c.JSON(fiber.Map{
		"flags":     states,
		"evaluated": evaluated,
	})
}
