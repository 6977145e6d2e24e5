package collector

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragusinb/claude-dev-hub-sub001/alerts"
	"github.com/dragusinb/claude-dev-hub-sub001/database"
	"github.com/dragusinb/claude-dev-hub-sub001/executor"
	"github.com/dragusinb/claude-dev-hub-sub001/maintenance"
	"github.com/dragusinb/claude-dev-hub-sub001/models"
	"github.com/dragusinb/claude-dev-hub-sub001/notifications"
	"github.com/dragusinb/claude-dev-hub-sub001/registry"
)

func newTestSecurity(t *testing.T, criticalScore int) *Security {
	t.Helper()
	require.NoError(t, database.Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { database.Close() })

	cfg := testConfig()
	cfg.CriticalScoreThreshold = criticalScore
	engine := alerts.NewEngine(notifications.NewDispatcher())
	return NewSecurity(cfg, executor.New(10*time.Second), engine, maintenance.NewSweeper(cfg), NewTargetLimiter(2))
}

func TestAuditTargetLocal(t *testing.T) {
	// A critical threshold above the maximum score guarantees the critical
	// alert path is exercised whatever this host scores.
	s := newTestSecurity(t, 101)
	enableAlerting(t, 1)

	target := models.Target{ID: "local-1", UserID: 1, Name: "localhost", Host: "localhost", IsLocal: true}
	s.auditTarget(context.Background(), target)

	audit, err := database.LatestSecurityAudit("local-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, audit.Score, 0)
	assert.LessOrEqual(t, audit.Score, 100)

	rec, err := database.LatestAlert(1, models.ServerSubject("local-1"), models.AlertSecurityCritical)
	require.NoError(t, err)
	assert.Equal(t, float64(audit.Score), rec.Value)
	assert.Equal(t, 101.0, rec.Threshold)
}

func TestAuditTargetNoCriticalAboveThreshold(t *testing.T) {
	// A zero threshold can never be undercut, so no alert fires.
	s := newTestSecurity(t, 0)
	enableAlerting(t, 1)

	target := models.Target{ID: "local-1", UserID: 1, Name: "localhost", Host: "localhost", IsLocal: true}
	s.auditTarget(context.Background(), target)

	_, err := database.LatestSecurityAudit("local-1")
	require.NoError(t, err)

	_, err = database.LatestAlert(1, models.ServerSubject("local-1"), models.AlertSecurityCritical)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRunCycleSkipsTargetsWithoutCredentials(t *testing.T) {
	s := newTestSecurity(t, 50)

	// Password auth with no password: nothing usable to connect with.
	added, err := registry.Add(models.Target{
		Name:     "web-01",
		Host:     "10.255.255.1",
		AuthType: models.AuthPassword,
	})
	require.NoError(t, err)

	s.runCycle(context.Background())

	_, err = database.LatestSecurityAudit(added.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
