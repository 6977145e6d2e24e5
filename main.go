package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dragusinb/claude-dev-hub-sub001/alerts"
	"github.com/dragusinb/claude-dev-hub-sub001/collector"
	"github.com/dragusinb/claude-dev-hub-sub001/config"
	"github.com/dragusinb/claude-dev-hub-sub001/database"
	"github.com/dragusinb/claude-dev-hub-sub001/executor"
	"github.com/dragusinb/claude-dev-hub-sub001/handlers"
	"github.com/dragusinb/claude-dev-hub-sub001/maintenance"
	"github.com/dragusinb/claude-dev-hub-sub001/notifications"
	"github.com/dragusinb/claude-dev-hub-sub001/registry"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logging to both file and stdout with rotation
	logFile := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	// Initialize database
	if err := database.Init(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Import targets on first boot if a seed file is provided
	if err := registry.SeedFromFile(os.Getenv("TARGETS_FILE")); err != nil {
		log.Printf("Warning: target seed failed: %v", err)
	}

	// Monitoring engine wiring
	dispatcher := notifications.NewDispatcher()
	handlers.Dispatcher = dispatcher
	engine := alerts.NewEngine(dispatcher)
	exec := executor.New(cfg.SSHTimeout)
	sweeper := maintenance.NewSweeper(cfg)
	limiter := collector.NewTargetLimiter(cfg.MaxConcurrentTargets)

	health := collector.NewHealth(cfg, exec, engine, sweeper, limiter)
	security := collector.NewSecurity(cfg, exec, engine, sweeper, limiter)
	health.Start()
	security.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Targets
	api.Get("/targets", handlers.GetTargets)
	api.Post("/targets", handlers.AddTarget)
	api.Get("/targets/:id", handlers.GetTarget)
	api.Get("/targets/:id/samples", handlers.GetTargetSamples)
	api.Get("/targets/:id/uptime", handlers.GetTargetUptime)
	api.Get("/targets/:id/uptime/daily", handlers.GetTargetUptimeDaily)
	api.Get("/targets/:id/audits/latest", handlers.GetLatestAudit)

	// Audits and alerts
	api.Get("/audits", handlers.GetAudits)
	api.Get("/alerts", handlers.GetAlerts)

	// Alert settings
	api.Get("/settings/alerts", handlers.GetAlertSettings)
	api.Post("/settings/alerts", handlers.SaveAlertSettings)
	api.Post("/settings/alerts/test", handlers.TestAlert)

	// System self status
	api.Get("/system/status", handlers.GetSystemStatus)

	// Shut collectors down cleanly on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("🛑 Shutting down...")
		health.Stop()
		security.Stop()
		app.Shutdown()
	}()

	log.Printf("🚀 Server starting on %s", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
