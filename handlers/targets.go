package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"github.com/dragusinb/claude-dev-hub-sub001/models"
	"github.com/dragusinb/claude-dev-hub-sub001/registry"
)

// GetTargets returns all registered targets. Credentials never leave the
// server; the model's JSON tags exclude them.
func GetTargets(c *fiber.Ctx) error {
	targets, err := registry.List()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(targets)
}

// GetTarget returns a single target
func GetTarget(c *fiber.Ctx) error {
	t, err := registry.Get(c.Params("id"))
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{"error": "Target not found"})
	} else if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(t)
}

// AddTarget registers a new target
func AddTarget(c *fiber.Ctx) error {
	var req struct {
		Name       string `json:"name"`
		Host       string `json:"host"`
		Port       int    `json:"port"`
		Username   string `json:"username"`
		AuthType   string `json:"auth_type"`
		Password   string `json:"password"`
		PrivateKey string `json:"private_key"`
		IsLocal    bool   `json:"is_local"`
		UserID     int64  `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || (!req.IsLocal && req.Host == "") {
		return c.Status(400).JSON(fiber.Map{"error": "name and host are required"})
	}

	t, err := registry.Add(models.Target{
		Name:       req.Name,
		Host:       req.Host,
		Port:       req.Port,
		Username:   req.Username,
		AuthType:   models.AuthType(req.AuthType),
		Password:   req.Password,
		PrivateKey: req.PrivateKey,
		IsLocal:    req.IsLocal,
		UserID:     req.UserID,
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to add target"})
	}
	return c.Status(201).JSON(t)
}
