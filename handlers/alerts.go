package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dragusinb/claude-dev-hub-sub001/database"
	"github.com/dragusinb/claude-dev-hub-sub001/models"
	"github.com/dragusinb/claude-dev-hub-sub001/notifications"
)

// Dispatcher is shared with the alert engine; wired in main.
var Dispatcher *notifications.Dispatcher

// GetAlerts returns a user's alert history, newest first.
func GetAlerts(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("user_id", 1))
	limit := c.QueryInt("limit", 100)

	alerts, err := database.ListAlerts(userID, limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(alerts)
}

// GetAlertSettings returns a user's alerting configuration (or defaults).
func GetAlertSettings(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("user_id", 1))

	settings, err := database.GetAlertSettings(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(settings)
}

// SaveAlertSettings upserts a user's alerting configuration.
func SaveAlertSettings(c *fiber.Ctx) error {
	var s models.AlertSettings
	if err := c.BodyParser(&s); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if s.UserID == 0 {
		s.UserID = 1
	}

	// The password is excluded from JSON output, so accept it through a
	// dedicated field on the request only.
	var req struct {
		SMTPPassword string `json:"smtp_password"`
	}
	if err := c.BodyParser(&req); err == nil && req.SMTPPassword != "" {
		s.SMTPPassword = req.SMTPPassword
	} else if existing, err := database.GetAlertSettings(s.UserID); err == nil {
		s.SMTPPassword = existing.SMTPPassword
	}

	if err := database.SaveAlertSettings(s); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to save settings"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// TestAlert pushes a synthetic notification through the configured channels
// so a user can verify their webhook/SMTP setup.
func TestAlert(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("user_id", 1))

	settings, err := database.GetAlertSettings(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}

	notified := Dispatcher.Dispatch(settings, notifications.Alert{
		Kind:        models.AlertCPUHigh,
		Subject:     models.ServerSubject("test"),
		SubjectName: "test-server",
		Message:     "This is a test alert from your monitoring dashboard",
		Value:       95,
		Threshold:   90,
		Timestamp:   time.Now(),
	})
	return c.JSON(fiber.Map{"notified": notified})
}
