package notifications

import (
	"time"

	"github.com/dragusinb/claude-dev-hub-sub001/models"
)

// Severity labels used in email subjects and channel payloads.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Alert is the channel-independent notification payload.
type Alert struct {
	Kind        models.AlertKind
	Subject     models.Subject
	SubjectName string
	Message     string
	Value       float64
	Threshold   float64
	Timestamp   time.Time
}

// Severity maps the alert kind to a display severity.
func (a Alert) Severity() Severity {
	switch a.Kind {
	case models.AlertServerDown, models.AlertSecurityCritical, models.AlertBackupFailed:
		return SeverityCritical
	case models.AlertServerUp:
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// Provider is one delivery channel.
type Provider interface {
	Send(a Alert) error
	Name() string
}
