package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dragusinb/claude-dev-hub-sub001/database"
)

// GetTargetSamples returns health samples for a target in the last N hours
// (default 24), newest first.
func GetTargetSamples(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours < 1 {
		hours = 24
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	samples, err := database.ListHealthSamples(c.Params("id"), since)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(samples)
}

// GetTargetUptime returns uptime events for a target in the last N hours
// (default 24), newest first.
func GetTargetUptime(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours < 1 {
		hours = 24
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	events, err := database.ListUptimeEvents(c.Params("id"), since)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(events)
}

// GetTargetUptimeDaily returns the per-day uptime percentage rollup over the
// last N days (default 30).
func GetTargetUptimeDaily(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 30
	}

	rollup, err := database.DailyUptime(c.Params("id"), days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(rollup)
}

// GetLatestAudit returns the most recent security audit for a target.
func GetLatestAudit(c *fiber.Ctx) error {
	audit, err := database.LatestSecurityAudit(c.Params("id"))
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{"error": "No audit recorded for target"})
	} else if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(audit)
}

// GetAudits returns security audits for a user's targets, newest first.
func GetAudits(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("user_id", 1))
	limit := c.QueryInt("limit", 100)

	audits, err := database.ListSecurityAudits(userID, limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(audits)
}
