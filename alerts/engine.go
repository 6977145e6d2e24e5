// Package alerts decides whether a fresh observation becomes a notification.
// The decision is stateful only through the append-only alert log: a record
// of the same (user, subject, kind) inside the kind's cooldown window
// suppresses a new alert, which prevents both alert storms and endless
// redelivery of an alert nobody could receive.
package alerts

import (
	"database/sql"
	"log"
	"time"

	"github.com/dragusinb/claude-dev-hub-sub001/database"
	"github.com/dragusinb/claude-dev-hub-sub001/models"
	"github.com/dragusinb/claude-dev-hub-sub001/notifications"
)

// Cooldown windows per alert kind. Resource alerts repeat fairly quickly,
// certificate expiry reminders do not.
var cooldowns = map[models.AlertKind]time.Duration{
	models.AlertCPUHigh:          30 * time.Minute,
	models.AlertMemoryHigh:       30 * time.Minute,
	models.AlertDiskHigh:         30 * time.Minute,
	models.AlertServerDown:       15 * time.Minute,
	models.AlertServerUp:         15 * time.Minute,
	models.AlertSecurityCritical: 12 * time.Hour,
	models.AlertSSLExpiry:        24 * time.Hour,
	models.AlertBackupFailed:     6 * time.Hour,
}

// Cooldown returns the dedup window for a kind.
func Cooldown(kind models.AlertKind) time.Duration {
	if d, ok := cooldowns[kind]; ok {
		return d
	}
	return time.Hour
}

// recoveryWindow bounds how far back a down alert still counts as "recent"
// for firing a recovery.
const recoveryWindow = 24 * time.Hour

// Evaluation is one alert decision request.
type Evaluation struct {
	UserID      int64
	Subject     models.Subject
	SubjectName string
	Kind        models.AlertKind
	Message     string
	Value       float64
	Threshold   float64

	// Cooldown overrides the kind's default window when positive.
	Cooldown time.Duration
}

// Engine makes alert decisions and hands fired alerts to the dispatcher.
type Engine struct {
	dispatcher *notifications.Dispatcher
	now        func() time.Time
}

func NewEngine(dispatcher *notifications.Dispatcher) *Engine {
	return &Engine{dispatcher: dispatcher, now: time.Now}
}

// Evaluate fires or suppresses one alert. When it fires, the dispatcher is
// invoked and the record is persisted with the dispatch outcome, even when
// every channel failed, so the audit trail stays complete and the cooldown
// still applies.
func (e *Engine) Evaluate(ev Evaluation) (bool, error) {
	settings, err := database.GetAlertSettings(ev.UserID)
	if err != nil {
		return false, err
	}
	if !settings.Enabled {
		return false, nil
	}

	cooldown := ev.Cooldown
	if cooldown <= 0 {
		cooldown = Cooldown(ev.Kind)
	}

	now := e.now()
	last, err := database.LatestAlert(ev.UserID, ev.Subject, ev.Kind)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	if err == nil && now.Sub(time.Unix(last.Timestamp, 0)) < cooldown {
		return false, nil
	}

	alert := notifications.Alert{
		Kind:        ev.Kind,
		Subject:     ev.Subject,
		SubjectName: ev.SubjectName,
		Message:     ev.Message,
		Value:       ev.Value,
		Threshold:   ev.Threshold,
		Timestamp:   now,
	}
	notified := e.dispatcher.Dispatch(settings, alert)

	record := models.AlertRecord{
		UserID:      ev.UserID,
		SubjectType: ev.Subject.Type,
		SubjectID:   ev.Subject.ID,
		Kind:        ev.Kind,
		Message:     ev.Message,
		Value:       ev.Value,
		Threshold:   ev.Threshold,
		Notified:    notified,
		Timestamp:   now.Unix(),
	}
	if err := database.InsertAlert(record); err != nil {
		return true, err
	}

	log.Printf("🔔 Alert %s for %s (value %.1f, threshold %.1f, notified=%v)",
		ev.Kind, ev.SubjectName, ev.Value, ev.Threshold, notified)
	return true, nil
}

// HasRecentDown reports whether a server_down alert for the subject exists
// inside the recovery window and has not already been answered by a
// server_up. This is the hysteresis that keeps a flapping host from spamming
// recovery notices.
func (e *Engine) HasRecentDown(userID int64, subject models.Subject) bool {
	down, err := database.LatestAlert(userID, subject, models.AlertServerDown)
	if err != nil {
		return false
	}
	if e.now().Sub(time.Unix(down.Timestamp, 0)) > recoveryWindow {
		return false
	}
	up, err := database.LatestAlert(userID, subject, models.AlertServerUp)
	if err == nil && up.Timestamp >= down.Timestamp {
		return false
	}
	return true
}
