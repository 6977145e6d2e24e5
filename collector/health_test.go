package collector

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragusinb/claude-dev-hub-sub001/alerts"
	"github.com/dragusinb/claude-dev-hub-sub001/config"
	"github.com/dragusinb/claude-dev-hub-sub001/database"
	"github.com/dragusinb/claude-dev-hub-sub001/executor"
	"github.com/dragusinb/claude-dev-hub-sub001/maintenance"
	"github.com/dragusinb/claude-dev-hub-sub001/models"
	"github.com/dragusinb/claude-dev-hub-sub001/notifications"
)

func testConfig() config.Config {
	return config.Config{
		HealthInterval:         time.Hour,
		SecurityInterval:       time.Hour,
		SampleRetentionDays:    7,
		UptimeRetentionDays:    30,
		AuditRetentionDays:     90,
		CriticalScoreThreshold: 50,
	}
}

func newTestHealth(t *testing.T, timeout time.Duration) *Health {
	t.Helper()
	require.NoError(t, database.Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { database.Close() })

	cfg := testConfig()
	engine := alerts.NewEngine(notifications.NewDispatcher())
	return NewHealth(cfg, executor.New(timeout), engine, maintenance.NewSweeper(cfg), NewTargetLimiter(2))
}

func enableAlerting(t *testing.T, userID int64) {
	t.Helper()
	s := models.DefaultAlertSettings(userID)
	s.Enabled = true
	require.NoError(t, database.SaveAlertSettings(s))
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestProcessTargetRecordsDown(t *testing.T) {
	h := newTestHealth(t, 5*time.Second)
	enableAlerting(t, 1)

	target := models.Target{
		ID:       "srv-1",
		UserID:   1,
		Name:     "web-01",
		Host:     "127.0.0.1",
		Port:     closedPort(t),
		Username: "root",
		AuthType: models.AuthPassword,
		Password: "hunter2",
	}
	h.processTarget(context.Background(), target)

	events, err := database.ListUptimeEvents("srv-1", time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusDown, events[0].Status)
	assert.NotEmpty(t, events[0].Error)
	assert.Nil(t, events[0].ResponseTimeMs)

	// No sample is recorded for an unreachable target.
	samples, err := database.ListHealthSamples("srv-1", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Empty(t, samples)

	// The down drove a server_down alert record.
	rec, err := database.LatestAlert(1, models.ServerSubject("srv-1"), models.AlertServerDown)
	require.NoError(t, err)
	assert.False(t, rec.Notified)
}

func TestProcessTargetDownRespectsNotifyOnDown(t *testing.T) {
	h := newTestHealth(t, 5*time.Second)

	s := models.DefaultAlertSettings(1)
	s.Enabled = true
	s.NotifyOnDown = false
	require.NoError(t, database.SaveAlertSettings(s))

	target := models.Target{
		ID:       "srv-1",
		UserID:   1,
		Name:     "web-01",
		Host:     "127.0.0.1",
		Port:     closedPort(t),
		Username: "root",
		AuthType: models.AuthPassword,
		Password: "hunter2",
	}
	h.processTarget(context.Background(), target)

	// The down event is still recorded, but no alert is evaluated.
	events, err := database.ListUptimeEvents("srv-1", time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusDown, events[0].Status)

	records, err := database.ListAlerts(1, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessTargetAuthFailureSkips(t *testing.T) {
	h := newTestHealth(t, 5*time.Second)
	enableAlerting(t, 1)

	// A garbage key fails credential setup, which classifies as an auth
	// failure: the target is skipped without a down event.
	target := models.Target{
		ID:         "srv-1",
		UserID:     1,
		Name:       "web-01",
		Host:       "10.255.255.1",
		Port:       22,
		Username:   "root",
		AuthType:   models.AuthKey,
		PrivateKey: "not a key",
	}
	h.processTarget(context.Background(), target)

	events, err := database.ListUptimeEvents("srv-1", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Empty(t, events)

	records, err := database.ListAlerts(1, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessTargetLocalSuccess(t *testing.T) {
	h := newTestHealth(t, 10*time.Second)

	target := models.Target{ID: "local-1", UserID: 1, Name: "localhost", Host: "localhost", IsLocal: true}
	h.processTarget(context.Background(), target)

	samples, err := database.ListHealthSamples("local-1", time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	events, err := database.ListUptimeEvents("local-1", time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusUp, events[0].Status)
	require.NotNil(t, events[0].ResponseTimeMs)
	assert.GreaterOrEqual(t, *events[0].ResponseTimeMs, int64(0))
}

func TestEvaluateAlertsThresholds(t *testing.T) {
	h := newTestHealth(t, 5*time.Second)
	enableAlerting(t, 1)

	target := models.Target{ID: "srv-1", UserID: 1, Name: "web-01"}
	sample := models.HealthSample{
		TargetID:    "srv-1",
		CPUPercent:  95,
		MemPercent:  93,
		DiskPercent: 91,
	}
	h.evaluateAlerts(target, sample)

	subject := models.ServerSubject("srv-1")
	for _, kind := range []models.AlertKind{models.AlertCPUHigh, models.AlertMemoryHigh, models.AlertDiskHigh} {
		rec, err := database.LatestAlert(1, subject, kind)
		require.NoError(t, err, string(kind))
		assert.Equal(t, 90.0, rec.Threshold)
	}

	// A healthy sample below every threshold fires nothing new.
	h.evaluateAlerts(target, models.HealthSample{TargetID: "srv-1", CPUPercent: 10, MemPercent: 20, DiskPercent: 30})
	records, err := database.ListAlerts(1, 10)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestEvaluateAlertsRecovery(t *testing.T) {
	h := newTestHealth(t, 5*time.Second)
	enableAlerting(t, 1)

	subject := models.ServerSubject("srv-1")
	require.NoError(t, database.InsertAlert(models.AlertRecord{
		UserID:      1,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Kind:        models.AlertServerDown,
		Timestamp:   time.Now().Add(-time.Hour).Unix(),
	}))

	target := models.Target{ID: "srv-1", UserID: 1, Name: "web-01"}
	h.evaluateAlerts(target, models.HealthSample{TargetID: "srv-1", CPUPercent: 10, ResponseTimeMs: 42})

	rec, err := database.LatestAlert(1, subject, models.AlertServerUp)
	require.NoError(t, err)
	assert.Equal(t, 42.0, rec.Value)

	// The recovery answered the down: a second healthy sample stays quiet.
	h.evaluateAlerts(target, models.HealthSample{TargetID: "srv-1", CPUPercent: 10})
	records, err := database.ListAlerts(1, 10)
	require.NoError(t, err)
	upCount := 0
	for _, r := range records {
		if r.Kind == models.AlertServerUp {
			upCount++
		}
	}
	assert.Equal(t, 1, upCount)
}
