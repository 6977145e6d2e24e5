package models

// AuthType selects how the executor authenticates against a target.
type AuthType string

const (
	AuthPassword AuthType = "password"
	AuthKey      AuthType = "key"
)

// Target is a monitored host as supplied by the target registry. Credentials
// are carried explicitly rather than inferred from which fields happen to be
// set; IsLocal targets are executed on the local shell instead of over SSH.
type Target struct {
	ID         string   `json:"id"`
	UserID     int64    `json:"user_id"`
	Name       string   `json:"name"`
	Host       string   `json:"host"`
	Port       int      `json:"port"`
	Username   string   `json:"username"`
	AuthType   AuthType `json:"auth_type"`
	Password   string   `json:"-"`
	PrivateKey string   `json:"-"`
	IsLocal    bool     `json:"is_local"`
	CreatedAt  int64    `json:"created_at"`
}

// HasCredential reports whether the target can be reached by the executor.
// Local targets never need one.
func (t Target) HasCredential() bool {
	if t.IsLocal {
		return true
	}
	switch t.AuthType {
	case AuthPassword:
		return t.Password != ""
	case AuthKey:
		return t.PrivateKey != ""
	}
	return false
}

// HealthSample is one append-only time-series row per (target, tick).
type HealthSample struct {
	ID             int64   `json:"id"`
	TargetID       string  `json:"target_id"`
	Timestamp      int64   `json:"timestamp"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedMB      int64   `json:"mem_used_mb"`
	MemTotalMB     int64   `json:"mem_total_mb"`
	MemPercent     int     `json:"mem_percent"`
	DiskUsed       string  `json:"disk_used"`
	DiskTotal      string  `json:"disk_total"`
	DiskPercent    int     `json:"disk_percent"`
	LoadAvg1       float64 `json:"load_avg_1"`
	LoadAvg5       float64 `json:"load_avg_5"`
	LoadAvg15      float64 `json:"load_avg_15"`
	ResponseTimeMs int64   `json:"response_time_ms"`
}

// Uptime statuses.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// UptimeEvent is an append-only up/down observation for a target.
type UptimeEvent struct {
	ID             int64  `json:"id"`
	TargetID       string `json:"target_id"`
	Timestamp      int64  `json:"timestamp"`
	Status         string `json:"status"`
	ResponseTimeMs *int64 `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

// UptimeDay is one row of the daily uptime rollup.
type UptimeDay struct {
	Day           string  `json:"day"`
	UptimePercent float64 `json:"uptime_percent"`
	Checks        int     `json:"checks"`
}

// Finding severities.
const (
	SeverityInfo   = "info"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Finding is one structured observation produced by the scoring engine.
type Finding struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Action   string `json:"action,omitempty"`
}

// SecurityAudit is one append-only audit row per (target, audit run). The
// latest audit for a target is always the newest row, never an update.
type SecurityAudit struct {
	ID                 int64     `json:"id"`
	TargetID           string    `json:"target_id"`
	Timestamp          int64     `json:"timestamp"`
	Score              int       `json:"score"`
	OpenPorts          []int     `json:"open_ports"`
	LocalhostOnlyPorts []int     `json:"localhost_only_ports"`
	PendingUpdates     int       `json:"pending_updates"`
	SecurityUpdates    int       `json:"security_updates"`
	FailedSSHAttempts  int       `json:"failed_ssh_attempts"`
	FirewallActive     bool      `json:"firewall_active"`
	Fail2banActive     bool      `json:"fail2ban_active"`
	Findings           []Finding `json:"findings"`
	Recommendations    []string  `json:"recommendations"`
}

// AlertKind identifies what condition an alert reports.
type AlertKind string

const (
	AlertCPUHigh          AlertKind = "cpu_high"
	AlertMemoryHigh       AlertKind = "memory_high"
	AlertDiskHigh         AlertKind = "disk_high"
	AlertServerDown       AlertKind = "server_down"
	AlertServerUp         AlertKind = "server_up"
	AlertSSLExpiry        AlertKind = "ssl_expiry"
	AlertBackupFailed     AlertKind = "backup_failed"
	AlertSecurityCritical AlertKind = "security_critical"
)

// SubjectType keeps alert subject id namespaces distinct: a certificate id
// and a server id must never collide in the dedup lookup.
type SubjectType string

const (
	SubjectServer      SubjectType = "server"
	SubjectCertificate SubjectType = "certificate"
	SubjectJob         SubjectType = "job"
)

// Subject is a typed reference to the thing an alert is about.
type Subject struct {
	Type SubjectType `json:"type"`
	ID   string      `json:"id"`
}

// ServerSubject is the common case.
func ServerSubject(targetID string) Subject {
	return Subject{Type: SubjectServer, ID: targetID}
}

// AlertRecord is the append-only alert log. It doubles as the cooldown dedup
// source: a record of the same (user, subject, kind) inside the kind's
// cooldown window suppresses a new alert.
type AlertRecord struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   string      `json:"subject_id"`
	Kind        AlertKind   `json:"kind"`
	Message     string      `json:"message"`
	Value       float64     `json:"value"`
	Threshold   float64     `json:"threshold"`
	Notified    bool        `json:"notified"`
	Timestamp   int64       `json:"timestamp"`
}

// AlertSettings is the per-user mutable alerting configuration, read once per
// alert evaluation.
type AlertSettings struct {
	UserID          int64   `json:"user_id"`
	Enabled         bool    `json:"enabled"`
	Email           string  `json:"email"`
	WebhookURL      string  `json:"webhook_url"`
	CPUThreshold    float64 `json:"cpu_threshold"`
	MemoryThreshold float64 `json:"memory_threshold"`
	DiskThreshold   float64 `json:"disk_threshold"`
	NotifyOnDown    bool    `json:"notify_on_down"`
	SMTPServer      string  `json:"smtp_server"`
	SMTPPort        int     `json:"smtp_port"`
	SMTPUser        string  `json:"smtp_user"`
	SMTPPassword    string  `json:"-"`
}

// DefaultAlertSettings returns the settings used when a user has no row yet.
func DefaultAlertSettings(userID int64) AlertSettings {
	return AlertSettings{
		UserID:          userID,
		Enabled:         false,
		CPUThreshold:    90,
		MemoryThreshold: 90,
		DiskThreshold:   90,
		NotifyOnDown:    true,
		SMTPPort:        587,
	}
}
