package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dragusinb/claude-dev-hub-sub001/alerts"
	"github.com/dragusinb/claude-dev-hub-sub001/config"
	"github.com/dragusinb/claude-dev-hub-sub001/database"
	"github.com/dragusinb/claude-dev-hub-sub001/executor"
	"github.com/dragusinb/claude-dev-hub-sub001/maintenance"
	"github.com/dragusinb/claude-dev-hub-sub001/metrics"
	"github.com/dragusinb/claude-dev-hub-sub001/models"
	"github.com/dragusinb/claude-dev-hub-sub001/registry"
)

// Health polls every target on a short interval, persists health samples and
// uptime events, and evaluates threshold and up/down alerts.
type Health struct {
	*Collector
	exec    *executor.Executor
	engine  *alerts.Engine
	sweeper *maintenance.Sweeper
	sem     *semaphore.Weighted
}

func NewHealth(cfg config.Config, exec *executor.Executor, engine *alerts.Engine,
	sweeper *maintenance.Sweeper, sem *semaphore.Weighted) *Health {
	h := &Health{
		exec:    exec,
		engine:  engine,
		sweeper: sweeper,
		sem:     sem,
	}
	h.Collector = newCollector("health", cfg.HealthInterval, h.runCycle)
	return h
}

func (h *Health) runCycle(ctx context.Context) {
	targets, err := registry.List()
	if err != nil {
		log.Printf("❌ Health: failed to load targets: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, t := range targets {
		wg.Add(1)
		go func(t models.Target) {
			defer wg.Done()
			if err := h.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer h.sem.Release(1)
			h.processTarget(ctx, t)
		}(t)
	}
	wg.Wait()

	// Retention runs at the end of every health cycle.
	h.sweeper.SweepHealth()
}

// processTarget handles one target end to end. Any failure here is contained
// to this target; the rest of the tick carries on.
func (h *Health) processTarget(ctx context.Context, t models.Target) {
	res, err := h.exec.Run(ctx, t, metrics.HealthScript)
	now := time.Now().Unix()

	if err != nil {
		if errors.Is(err, executor.ErrAuth) {
			// Bad credential: skip until the next tick, no down event.
			log.Printf("⚠️  Health: auth failed for %s, skipping: %v", t.Name, err)
			return
		}
		h.recordDown(t, now, err)
		return
	}

	m := metrics.ParseHealth(res.Stdout)
	sample := models.HealthSample{
		TargetID:       t.ID,
		Timestamp:      now,
		CPUPercent:     m.CPUPercent,
		MemUsedMB:      m.MemUsedMB,
		MemTotalMB:     m.MemTotalMB,
		MemPercent:     m.MemPercent,
		DiskUsed:       m.DiskUsed,
		DiskTotal:      m.DiskTotal,
		DiskPercent:    m.DiskPct,
		LoadAvg1:       m.Load1,
		LoadAvg5:       m.Load5,
		LoadAvg15:      m.Load15,
		ResponseTimeMs: res.Elapsed.Milliseconds(),
	}
	if err := database.InsertHealthSample(sample); err != nil {
		// Storage failure aborts only this target's processing.
		log.Printf("❌ Health: failed to persist sample for %s: %v", t.Name, err)
		return
	}

	rt := res.Elapsed.Milliseconds()
	if err := database.InsertUptimeEvent(models.UptimeEvent{
		TargetID:       t.ID,
		Timestamp:      now,
		Status:         models.StatusUp,
		ResponseTimeMs: &rt,
	}); err != nil {
		log.Printf("❌ Health: failed to persist uptime event for %s: %v", t.Name, err)
		return
	}

	h.evaluateAlerts(t, sample)
}

func (h *Health) recordDown(t models.Target, now int64, cause error) {
	if err := database.InsertUptimeEvent(models.UptimeEvent{
		TargetID:  t.ID,
		Timestamp: now,
		Status:    models.StatusDown,
		Error:     cause.Error(),
	}); err != nil {
		log.Printf("❌ Health: failed to persist down event for %s: %v", t.Name, err)
		return
	}
	log.Printf("📉 Health: %s is DOWN: %v", t.Name, cause)

	settings, err := database.GetAlertSettings(t.UserID)
	if err != nil {
		log.Printf("❌ Health: failed to load alert settings for user %d: %v", t.UserID, err)
		return
	}
	if !settings.NotifyOnDown {
		return
	}
	h.evaluate(alerts.Evaluation{
		UserID:      t.UserID,
		Subject:     models.ServerSubject(t.ID),
		SubjectName: t.Name,
		Kind:        models.AlertServerDown,
		Message:     fmt.Sprintf("Server %s is unreachable: %v", t.Name, cause),
	})
}

func (h *Health) evaluateAlerts(t models.Target, s models.HealthSample) {
	settings, err := database.GetAlertSettings(t.UserID)
	if err != nil {
		log.Printf("❌ Health: failed to load alert settings for user %d: %v", t.UserID, err)
		return
	}

	subject := models.ServerSubject(t.ID)

	if settings.CPUThreshold > 0 && s.CPUPercent >= settings.CPUThreshold {
		h.evaluate(alerts.Evaluation{
			UserID: t.UserID, Subject: subject, SubjectName: t.Name,
			Kind:      models.AlertCPUHigh,
			Message:   fmt.Sprintf("CPU usage on %s is %.1f%% (threshold %.0f%%)", t.Name, s.CPUPercent, settings.CPUThreshold),
			Value:     s.CPUPercent,
			Threshold: settings.CPUThreshold,
		})
	}
	if settings.MemoryThreshold > 0 && float64(s.MemPercent) >= settings.MemoryThreshold {
		h.evaluate(alerts.Evaluation{
			UserID: t.UserID, Subject: subject, SubjectName: t.Name,
			Kind:      models.AlertMemoryHigh,
			Message:   fmt.Sprintf("Memory usage on %s is %d%% (threshold %.0f%%)", t.Name, s.MemPercent, settings.MemoryThreshold),
			Value:     float64(s.MemPercent),
			Threshold: settings.MemoryThreshold,
		})
	}
	if settings.DiskThreshold > 0 && float64(s.DiskPercent) >= settings.DiskThreshold {
		h.evaluate(alerts.Evaluation{
			UserID: t.UserID, Subject: subject, SubjectName: t.Name,
			Kind:      models.AlertDiskHigh,
			Message:   fmt.Sprintf("Disk usage on %s is %d%% (threshold %.0f%%)", t.Name, s.DiskPercent, settings.DiskThreshold),
			Value:     float64(s.DiskPercent),
			Threshold: settings.DiskThreshold,
		})
	}

	// Recovery fires only after a recent, unanswered down alert.
	if h.engine.HasRecentDown(t.UserID, subject) {
		h.evaluate(alerts.Evaluation{
			UserID: t.UserID, Subject: subject, SubjectName: t.Name,
			Kind:    models.AlertServerUp,
			Message: fmt.Sprintf("Server %s is back online", t.Name),
			Value:   float64(s.ResponseTimeMs),
		})
	}
}

func (h *Health) evaluate(ev alerts.Evaluation) {
	if _, err := h.engine.Evaluate(ev); err != nil {
		log.Printf("❌ Health: alert evaluation failed (%s on %s): %v", ev.Kind, ev.SubjectName, err)
	}
}
