package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dragusinb/claude-dev-hub-sub001/models"
)

func initTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { Close() })
}

func insertTestTarget(t *testing.T, id string, userID int64) {
	t.Helper()
	_, err := DB.Exec(`INSERT INTO targets (id, user_id, name, host, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, "test-"+id, "10.0.0.1", time.Now().Unix())
	require.NoError(t, err)
}

func TestHealthSampleRoundTrip(t *testing.T) {
	initTestDB(t)

	now := time.Now().Unix()
	s := models.HealthSample{
		TargetID:       "srv-1",
		Timestamp:      now,
		CPUPercent:     42.5,
		MemUsedMB:      2048,
		MemTotalMB:     8192,
		MemPercent:     25,
		DiskUsed:       "12G",
		DiskTotal:      "50G",
		DiskPercent:    24,
		LoadAvg1:       0.52,
		LoadAvg5:       0.31,
		LoadAvg15:      0.18,
		ResponseTimeMs: 87,
	}
	require.NoError(t, InsertHealthSample(s))

	older := s
	older.Timestamp = now - 60
	older.CPUPercent = 10
	require.NoError(t, InsertHealthSample(older))

	samples, err := ListHealthSamples("srv-1", time.Unix(now-3600, 0))
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Newest first.
	got := samples[0]
	got.ID = 0
	assert.Equal(t, s, got)
	assert.Equal(t, float64(10), samples[1].CPUPercent)

	// Other targets stay out of the result.
	samples, err = ListHealthSamples("srv-2", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestUptimeEventsAndDailyRollup(t *testing.T) {
	initTestDB(t)

	now := time.Now().Unix()
	rt := int64(120)
	statuses := []string{models.StatusUp, models.StatusUp, models.StatusUp, models.StatusDown}
	for _, status := range statuses {
		e := models.UptimeEvent{TargetID: "srv-1", Timestamp: now, Status: status}
		if status == models.StatusUp {
			e.ResponseTimeMs = &rt
		} else {
			e.Error = "connection refused"
		}
		require.NoError(t, InsertUptimeEvent(e))
	}

	events, err := ListUptimeEvents("srv-1", time.Unix(now-60, 0))
	require.NoError(t, err)
	require.Len(t, events, 4)
	for _, e := range events {
		if e.Status == models.StatusDown {
			assert.Nil(t, e.ResponseTimeMs)
			assert.Equal(t, "connection refused", e.Error)
		} else {
			require.NotNil(t, e.ResponseTimeMs)
			assert.Equal(t, int64(120), *e.ResponseTimeMs)
		}
	}

	days, err := DailyUptime("srv-1", 7)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 75.0, days[0].UptimePercent)
	assert.Equal(t, 4, days[0].Checks)
}

func TestSecurityAuditRoundTrip(t *testing.T) {
	initTestDB(t)

	now := time.Now().Unix()
	a := models.SecurityAudit{
		TargetID:           "srv-1",
		Timestamp:          now,
		Score:              65,
		OpenPorts:          []int{22, 80, 3306},
		LocalhostOnlyPorts: []int{3306},
		PendingUpdates:     12,
		SecurityUpdates:    2,
		FailedSSHAttempts:  30,
		FirewallActive:     true,
		Fail2banActive:     false,
		Findings: []models.Finding{
			{Severity: models.SeverityHigh, Category: "ssh", Message: "Elevated failed SSH attempts: 30", Action: "install_fail2ban"},
			{Severity: models.SeverityInfo, Category: "ports", Message: "MySQL (port 3306) is bound to localhost only"},
		},
		Recommendations: []string{"Install and enable fail2ban to throttle SSH brute-force attempts"},
	}
	require.NoError(t, InsertSecurityAudit(a))

	got, err := LatestSecurityAudit("srv-1")
	require.NoError(t, err)
	got.ID = 0
	assert.Equal(t, a, got)

	// A newer audit replaces the latest.
	newer := a
	newer.Timestamp = now + 60
	newer.Score = 80
	require.NoError(t, InsertSecurityAudit(newer))

	got, err = LatestSecurityAudit("srv-1")
	require.NoError(t, err)
	assert.Equal(t, 80, got.Score)

	_, err = LatestSecurityAudit("srv-missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListSecurityAuditsByUser(t *testing.T) {
	initTestDB(t)
	insertTestTarget(t, "srv-1", 1)
	insertTestTarget(t, "srv-2", 2)

	now := time.Now().Unix()
	require.NoError(t, InsertSecurityAudit(models.SecurityAudit{TargetID: "srv-1", Timestamp: now, Score: 90}))
	require.NoError(t, InsertSecurityAudit(models.SecurityAudit{TargetID: "srv-2", Timestamp: now, Score: 50}))

	audits, err := ListSecurityAudits(1, 0)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "srv-1", audits[0].TargetID)
	assert.Equal(t, 90, audits[0].Score)
}

func TestAlertSettingsDefaultsAndUpsert(t *testing.T) {
	initTestDB(t)

	// No row yet: defaults, alerting off.
	s, err := GetAlertSettings(42)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAlertSettings(42), s)

	s.Enabled = true
	s.Email = "ops@example.com"
	s.SMTPServer = "smtp.example.com"
	s.SMTPPassword = "secret"
	s.CPUThreshold = 80
	require.NoError(t, SaveAlertSettings(s))

	got, err := GetAlertSettings(42)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// Upsert replaces, never duplicates.
	s.WebhookURL = "https://example.com/hook"
	require.NoError(t, SaveAlertSettings(s))

	var count int
	require.NoError(t, DB.QueryRow(`SELECT COUNT(*) FROM alert_settings WHERE user_id = 42`).Scan(&count))
	assert.Equal(t, 1, count)

	got, err = GetAlertSettings(42)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", got.WebhookURL)
}

func TestPruning(t *testing.T) {
	initTestDB(t)

	now := time.Now()
	old := now.AddDate(0, 0, -30).Unix()
	fresh := now.Unix()

	for _, ts := range []int64{old, fresh} {
		require.NoError(t, InsertHealthSample(models.HealthSample{TargetID: "srv-1", Timestamp: ts}))
		require.NoError(t, InsertUptimeEvent(models.UptimeEvent{TargetID: "srv-1", Timestamp: ts, Status: models.StatusUp}))
		require.NoError(t, InsertSecurityAudit(models.SecurityAudit{TargetID: "srv-1", Timestamp: ts, Score: 100}))
	}

	cutoff := now.AddDate(0, 0, -7)

	n, err := PruneHealthSamples(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = PruneUptimeEvents(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = PruneSecurityAudits(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	samples, err := ListHealthSamples("srv-1", time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, fresh, samples[0].Timestamp)
}
