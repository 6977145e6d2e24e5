package maintenance

import (
	"log"
	"time"

	"github.com/dragusinb/claude-dev-hub-sub001/config"
	"github.com/dragusinb/claude-dev-hub-sub001/database"
)

// Sweeper prunes the append-only time series past their retention horizons.
// Health samples and uptime events have independent horizons; audits keep
// the longest history.
type Sweeper struct {
	sampleDays int
	uptimeDays int
	auditDays  int
}

func NewSweeper(cfg config.Config) *Sweeper {
	return &Sweeper{
		sampleDays: cfg.SampleRetentionDays,
		uptimeDays: cfg.UptimeRetentionDays,
		auditDays:  cfg.AuditRetentionDays,
	}
}

// SweepHealth prunes health samples and uptime events. It runs at the end of
// every health cycle.
func (s *Sweeper) SweepHealth() {
	now := time.Now()

	if n, err := database.PruneHealthSamples(now.AddDate(0, 0, -s.sampleDays)); err != nil {
		log.Printf("❌ Sweeper: failed to prune health samples: %v", err)
	} else if n > 0 {
		log.Printf("🧹 Sweeper: pruned %d health samples older than %d days", n, s.sampleDays)
	}

	if n, err := database.PruneUptimeEvents(now.AddDate(0, 0, -s.uptimeDays)); err != nil {
		log.Printf("❌ Sweeper: failed to prune uptime events: %v", err)
	} else if n > 0 {
		log.Printf("🧹 Sweeper: pruned %d uptime events older than %d days", n, s.uptimeDays)
	}
}

// SweepAudits prunes old security audits and compacts the database. It runs
// at the end of every security cycle, which keeps VACUUM off the hot path.
func (s *Sweeper) SweepAudits() {
	if n, err := database.PruneSecurityAudits(time.Now().AddDate(0, 0, -s.auditDays)); err != nil {
		log.Printf("❌ Sweeper: failed to prune security audits: %v", err)
	} else if n > 0 {
		log.Printf("🧹 Sweeper: pruned %d security audits older than %d days", n, s.auditDays)
	}

	if _, err := database.DB.Exec("VACUUM"); err != nil {
		log.Printf("❌ Sweeper: failed to VACUUM database: %v", err)
	} else {
		log.Println("✨ Sweeper: database optimized (VACUUM completed)")
	}
}
