package collector

import (
	"context"
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
	"github.com/dragusinb/claude-dev-hub-sub001/scoring"
)

// Security audits every target on a long interval: run the audit script,
// parse, score, persist, and raise a security_critical alert when the score
// falls below the configured threshold.
type Security struct {
	*Collector
	exec          *executor.Executor
	engine        *alerts.Engine
	sweeper       *maintenance.Sweeper
	sem           *semaphore.Weighted
	criticalScore int
}

func NewSecurity(cfg config.Config, exec *executor.Executor, engine *alerts.Engine,
	sweeper *maintenance.Sweeper, sem *semaphore.Weighted) *Security {
	s := &Security{
		exec:          exec,
		engine:        engine,
		sweeper:       sweeper,
		sem:           sem,
		criticalScore: cfg.CriticalScoreThreshold,
	}
	s.Collector = newCollector("security", cfg.SecurityInterval, s.runCycle)
	return s
}

func (s *Security) runCycle(ctx context.Context) {
	targets, err := registry.List()
	if err != nil {
		log.Printf("❌ Security: failed to load targets: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, t := range targets {
		if !t.HasCredential() {
			log.Printf("⏭️  Security: no usable credential for %s, skipping audit", t.Name)
			continue
		}
		wg.Add(1)
		go func(t models.Target) {
			defer wg.Done()
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer s.sem.Release(1)
			s.auditTarget(ctx, t)
		}(t)
	}
	wg.Wait()

	s.sweeper.SweepAudits()
}

// auditTarget runs one target's audit. A failure is logged and contained; it
// never aborts the remaining targets of the run.
func (s *Security) auditTarget(ctx context.Context, t models.Target) {
	res, err := s.exec.Run(ctx, t, metrics.SecurityScript)
	if err != nil {
		log.Printf("⚠️  Security: audit of %s failed: %v", t.Name, err)
		return
	}

	m := metrics.ParseSecurity(res.Stdout)
	result := scoring.Score(m)

	audit := models.SecurityAudit{
		TargetID:           t.ID,
		Timestamp:          time.Now().Unix(),
		Score:              result.Score,
		OpenPorts:          m.OpenPorts,
		LocalhostOnlyPorts: m.LocalhostOnlyPorts,
		PendingUpdates:     m.PendingUpdates,
		SecurityUpdates:    m.SecurityUpdates,
		FailedSSHAttempts:  m.FailedSSHAttempts,
		FirewallActive:     m.FirewallActive,
		Fail2banActive:     m.Fail2banActive,
		Findings:           result.Findings,
		Recommendations:    result.Recommendations,
	}
	if err := database.InsertSecurityAudit(audit); err != nil {
		log.Printf("❌ Security: failed to persist audit for %s: %v", t.Name, err)
		return
	}
	log.Printf("🔒 Security: %s scored %d (%d findings)", t.Name, result.Score, len(result.Findings))

	if result.Score < s.criticalScore {
		if _, err := s.engine.Evaluate(alerts.Evaluation{
			UserID:      t.UserID,
			Subject:     models.ServerSubject(t.ID),
			SubjectName: t.Name,
			Kind:        models.AlertSecurityCritical,
			Message:     fmt.Sprintf("Security score for %s dropped to %d (threshold %d)", t.Name, result.Score, s.criticalScore),
			Value:       float64(result.Score),
			Threshold:   float64(s.criticalScore),
		}); err != nil {
			log.Printf("❌ Security: alert evaluation failed for %s: %v", t.Name, err)
		}
	}
}
