package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dragusinb/claude-dev-hub-sub001/models"
)

// InsertHealthSample appends one health time-series row.
func InsertHealthSample(s models.HealthSample) error {
	_, err := DB.Exec(`
		INSERT INTO health_samples (target_id, timestamp, cpu_percent, mem_used_mb, mem_total_mb, mem_percent,
			disk_used, disk_total, disk_percent, load_avg_1, load_avg_5, load_avg_15, response_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.TargetID, s.Timestamp, s.CPUPercent, s.MemUsedMB, s.MemTotalMB, s.MemPercent,
		s.DiskUsed, s.DiskTotal, s.DiskPercent, s.LoadAvg1, s.LoadAvg5, s.LoadAvg15, s.ResponseTimeMs)
	if err != nil {
		return fmt.Errorf("failed to insert health sample: %w", err)
	}
	return nil
}

// ListHealthSamples returns samples for a target newer than since, newest first.
func ListHealthSamples(targetID string, since time.Time) ([]models.HealthSample, error) {
	rows, err := DB.Query(`
		SELECT id, target_id, timestamp, cpu_percent, mem_used_mb, mem_total_mb, mem_percent,
			disk_used, disk_total, disk_percent, load_avg_1, load_avg_5, load_avg_15, response_time_ms
		FROM health_samples
		WHERE target_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`, targetID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []models.HealthSample{}
	for rows.Next() {
		var s models.HealthSample
		if err := rows.Scan(&s.ID, &s.TargetID, &s.Timestamp, &s.CPUPercent, &s.MemUsedMB, &s.MemTotalMB,
			&s.MemPercent, &s.DiskUsed, &s.DiskTotal, &s.DiskPercent,
			&s.LoadAvg1, &s.LoadAvg5, &s.LoadAvg15, &s.ResponseTimeMs); err != nil {
			continue
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// InsertUptimeEvent appends one up/down observation.
func InsertUptimeEvent(e models.UptimeEvent) error {
	_, err := DB.Exec(`
		INSERT INTO uptime_events (target_id, timestamp, status, response_time_ms, error)
		VALUES (?, ?, ?, ?, ?)
	`, e.TargetID, e.Timestamp, e.Status, e.ResponseTimeMs, e.Error)
	if err != nil {
		return fmt.Errorf("failed to insert uptime event: %w", err)
	}
	return nil
}

// ListUptimeEvents returns uptime events for a target newer than since, newest first.
func ListUptimeEvents(targetID string, since time.Time) ([]models.UptimeEvent, error) {
	rows, err := DB.Query(`
		SELECT id, target_id, timestamp, status, response_time_ms, COALESCE(error, '')
		FROM uptime_events
		WHERE target_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`, targetID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.UptimeEvent{}
	for rows.Next() {
		var e models.UptimeEvent
		if err := rows.Scan(&e.ID, &e.TargetID, &e.Timestamp, &e.Status, &e.ResponseTimeMs, &e.Error); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DailyUptime computes the per-day uptime percentage for a target over the
// last N days from the uptime event log.
func DailyUptime(targetID string, days int) ([]models.UptimeDay, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := DB.Query(`
		SELECT date(timestamp, 'unixepoch') AS day,
			ROUND(100.0 * SUM(CASE WHEN status = 'up' THEN 1 ELSE 0 END) / COUNT(*), 2),
			COUNT(*)
		FROM uptime_events
		WHERE target_id = ? AND timestamp >= ?
		GROUP BY day
		ORDER BY day
	`, targetID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.UptimeDay{}
	for rows.Next() {
		var d models.UptimeDay
		if err := rows.Scan(&d.Day, &d.UptimePercent, &d.Checks); err != nil {
			continue
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// InsertSecurityAudit appends one audit row. Port lists, findings and
// recommendations are stored as JSON text columns.
func InsertSecurityAudit(a models.SecurityAudit) error {
	openPorts, _ := json.Marshal(a.OpenPorts)
	localPorts, _ := json.Marshal(a.LocalhostOnlyPorts)
	findings, _ := json.Marshal(a.Findings)
	recommendations, _ := json.Marshal(a.Recommendations)

	_, err := DB.Exec(`
		INSERT INTO security_audits (target_id, timestamp, score, open_ports, localhost_only_ports,
			pending_updates, security_updates, failed_ssh_attempts, firewall_active, fail2ban_active,
			findings, recommendations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.TargetID, a.Timestamp, a.Score, string(openPorts), string(localPorts),
		a.PendingUpdates, a.SecurityUpdates, a.FailedSSHAttempts, a.FirewallActive, a.Fail2banActive,
		string(findings), string(recommendations))
	if err != nil {
		return fmt.Errorf("failed to insert security audit: %w", err)
	}
	return nil
}

func scanAudit(scan func(dest ...any) error) (models.SecurityAudit, error) {
	var a models.SecurityAudit
	var openPorts, localPorts, findings, recommendations string
	err := scan(&a.ID, &a.TargetID, &a.Timestamp, &a.Score, &openPorts, &localPorts,
		&a.PendingUpdates, &a.SecurityUpdates, &a.FailedSSHAttempts, &a.FirewallActive, &a.Fail2banActive,
		&findings, &recommendations)
	if err != nil {
		return a, err
	}
	json.Unmarshal([]byte(openPorts), &a.OpenPorts)
	json.Unmarshal([]byte(localPorts), &a.LocalhostOnlyPorts)
	json.Unmarshal([]byte(findings), &a.Findings)
	json.Unmarshal([]byte(recommendations), &a.Recommendations)
	return a, nil
}

const auditColumns = `id, target_id, timestamp, score, open_ports, localhost_only_ports,
	pending_updates, security_updates, failed_ssh_attempts, firewall_active, fail2ban_active,
	findings, recommendations`

// LatestSecurityAudit returns the newest audit row for a target.
func LatestSecurityAudit(targetID string) (models.SecurityAudit, error) {
	row := DB.QueryRow(`
		SELECT `+auditColumns+`
		FROM security_audits
		WHERE target_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, targetID)
	return scanAudit(row.Scan)
}

// ListSecurityAudits returns audits for all of a user's targets, newest first.
func ListSecurityAudits(userID int64, limit int) ([]models.SecurityAudit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := DB.Query(`
		SELECT `+auditColumns+`
		FROM security_audits
		WHERE target_id IN (SELECT id FROM targets WHERE user_id = ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	audits := []models.SecurityAudit{}
	for rows.Next() {
		a, err := scanAudit(rows.Scan)
		if err != nil {
			continue
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// InsertAlert appends one alert record.
func InsertAlert(r models.AlertRecord) error {
	_, err := DB.Exec(`
		INSERT INTO alerts (user_id, subject_type, subject_id, kind, message, value, threshold, notified, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UserID, r.SubjectType, r.SubjectID, r.Kind, r.Message, r.Value, r.Threshold, r.Notified, r.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// LatestAlert returns the newest alert of a given kind for (user, subject),
// or sql.ErrNoRows when none exists.
func LatestAlert(userID int64, subject models.Subject, kind models.AlertKind) (models.AlertRecord, error) {
	var r models.AlertRecord
	err := DB.QueryRow(`
		SELECT id, user_id, subject_type, subject_id, kind, message, value, threshold, notified, timestamp
		FROM alerts
		WHERE user_id = ? AND subject_type = ? AND subject_id = ? AND kind = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, userID, subject.Type, subject.ID, kind).Scan(
		&r.ID, &r.UserID, &r.SubjectType, &r.SubjectID, &r.Kind, &r.Message, &r.Value, &r.Threshold, &r.Notified, &r.Timestamp)
	return r, err
}

// ListAlerts returns a user's alert history, newest first.
func ListAlerts(userID int64, limit int) ([]models.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := DB.Query(`
		SELECT id, user_id, subject_type, subject_id, kind, message, value, threshold, notified, timestamp
		FROM alerts
		WHERE user_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []models.AlertRecord{}
	for rows.Next() {
		var r models.AlertRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SubjectType, &r.SubjectID, &r.Kind, &r.Message,
			&r.Value, &r.Threshold, &r.Notified, &r.Timestamp); err != nil {
			continue
		}
		alerts = append(alerts, r)
	}
	return alerts, rows.Err()
}

// GetAlertSettings loads a user's alert settings, falling back to defaults
// when the user has no row yet.
func GetAlertSettings(userID int64) (models.AlertSettings, error) {
	var s models.AlertSettings
	err := DB.QueryRow(`
		SELECT user_id, enabled, COALESCE(email, ''), COALESCE(webhook_url, ''),
			cpu_threshold, memory_threshold, disk_threshold, notify_on_down,
			COALESCE(smtp_server, ''), COALESCE(smtp_port, 587), COALESCE(smtp_user, ''), COALESCE(smtp_password, '')
		FROM alert_settings WHERE user_id = ?
	`, userID).Scan(&s.UserID, &s.Enabled, &s.Email, &s.WebhookURL,
		&s.CPUThreshold, &s.MemoryThreshold, &s.DiskThreshold, &s.NotifyOnDown,
		&s.SMTPServer, &s.SMTPPort, &s.SMTPUser, &s.SMTPPassword)
	if err == sql.ErrNoRows {
		return models.DefaultAlertSettings(userID), nil
	}
	if err != nil {
		return s, err
	}
	return s, nil
}

// SaveAlertSettings upserts a user's alert settings row.
func SaveAlertSettings(s models.AlertSettings) error {
	_, err := DB.Exec(`
		INSERT INTO alert_settings (user_id, enabled, email, webhook_url, cpu_threshold, memory_threshold,
			disk_threshold, notify_on_down, smtp_server, smtp_port, smtp_user, smtp_password)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			enabled = excluded.enabled,
			email = excluded.email,
			webhook_url = excluded.webhook_url,
			cpu_threshold = excluded.cpu_threshold,
			memory_threshold = excluded.memory_threshold,
			disk_threshold = excluded.disk_threshold,
			notify_on_down = excluded.notify_on_down,
			smtp_server = excluded.smtp_server,
			smtp_port = excluded.smtp_port,
			smtp_user = excluded.smtp_user,
			smtp_password = excluded.smtp_password
	`, s.UserID, s.Enabled, s.Email, s.WebhookURL, s.CPUThreshold, s.MemoryThreshold,
		s.DiskThreshold, s.NotifyOnDown, s.SMTPServer, s.SMTPPort, s.SMTPUser, s.SMTPPassword)
	if err != nil {
		return fmt.Errorf("failed to save alert settings: %w", err)
	}
	return nil
}

// PruneHealthSamples deletes samples older than cutoff.
func PruneHealthSamples(cutoff time.Time) (int64, error) {
	return pruneBefore("health_samples", cutoff)
}

// PruneUptimeEvents deletes uptime events older than cutoff.
func PruneUptimeEvents(cutoff time.Time) (int64, error) {
	return pruneBefore("uptime_events", cutoff)
}

// PruneSecurityAudits deletes audits older than cutoff.
func PruneSecurityAudits(cutoff time.Time) (int64, error) {
	return pruneBefore("security_audits", cutoff)
}

func pruneBefore(table string, cutoff time.Time) (int64, error) {
	result, err := DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", table), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune %s: %w", table, err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
