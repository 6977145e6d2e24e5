package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// GetSystemStatus reports the dashboard host's own vitals, so an operator
// can tell a sick fleet apart from a sick dashboard.
func GetSystemStatus(c *fiber.Ctx) error {
	status := fiber.Map{"timestamp": time.Now().Unix()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["mem_percent"] = vm.UsedPercent
		status["mem_total_mb"] = vm.Total / 1024 / 1024
	}
	if uptime, err := host.Uptime(); err == nil {
		status["uptime_seconds"] = uptime
	}

	return c.JSON(status)
}
