// Package metrics turns the raw output of the collection scripts into typed
// metric values. Parsing never fails as a whole: any field that cannot be
// read falls back to its zero default, and an empty input yields an
// all-defaults object. The parser is pure, so identical input always
// produces identical metrics.
package metrics

import (
	"bufio"
	"math"
	"strconv"
	"strings"
)

// HealthMetrics are the typed fields of one health collection.
type HealthMetrics struct {
	CPUPercent float64
	MemTotalMB int64
	MemUsedMB  int64
	MemFreeMB  int64
	MemPercent int
	DiskTotal  string
	DiskUsed   string
	DiskFree   string
	DiskPct    int
	Load1      float64
	Load5      float64
	Load15     float64
}

// SecurityMetrics are the typed inputs of the scoring engine.
type SecurityMetrics struct {
	OpenPorts          []int
	LocalhostOnlyPorts []int
	PendingUpdates     int
	SecurityUpdates    int
	FailedSSHAttempts  int
	FirewallActive     bool
	Fail2banActive     bool
}

// LocalhostOnly reports whether the port is bound exclusively to loopback.
func (m SecurityMetrics) LocalhostOnly(port int) bool {
	for _, p := range m.LocalhostOnlyPorts {
		if p == port {
			return true
		}
	}
	return false
}

// splitSections cuts raw script output into named section bodies. Markers
// look like ===NAME=== on their own line; text before the first marker is
// discarded.
func splitSections(raw string) map[string]string {
	sections := make(map[string]string)
	var current string
	var body strings.Builder

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(body.String())
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "===") && strings.HasSuffix(trimmed, "===") && len(trimmed) > 6 {
			flush()
			current = strings.Trim(trimmed, "=")
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return sections
}

// ParseHealth converts raw health script output into HealthMetrics.
func ParseHealth(raw string) HealthMetrics {
	sections := splitSections(raw)
	var m HealthMetrics

	// CPU: first token, float, default 0.
	if fields := strings.Fields(sections["CPU"]); len(fields) > 0 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			m.CPUPercent = v
		}
	}

	// Memory: total, used, free in MB.
	if fields := strings.Fields(sections["MEMORY"]); len(fields) >= 3 {
		m.MemTotalMB = parseInt64(fields[0])
		m.MemUsedMB = parseInt64(fields[1])
		m.MemFreeMB = parseInt64(fields[2])
	}
	if m.MemTotalMB > 0 {
		m.MemPercent = int(math.Round(float64(m.MemUsedMB) / float64(m.MemTotalMB) * 100))
	}

	// Disk: total, used, free as human strings, percent with trailing %.
	if fields := strings.Fields(sections["DISK"]); len(fields) >= 4 {
		m.DiskTotal = fields[0]
		m.DiskUsed = fields[1]
		m.DiskFree = fields[2]
		if v, err := strconv.Atoi(strings.TrimSuffix(fields[3], "%")); err == nil {
			m.DiskPct = v
		}
	}

	// Load averages: three floats.
	if fields := strings.Fields(sections["LOAD"]); len(fields) >= 3 {
		m.Load1 = parseFloat(fields[0])
		m.Load5 = parseFloat(fields[1])
		m.Load15 = parseFloat(fields[2])
	}

	return m
}

// ParseSecurity converts raw audit script output into SecurityMetrics.
func ParseSecurity(raw string) SecurityMetrics {
	sections := splitSections(raw)
	var m SecurityMetrics

	m.OpenPorts, m.LocalhostOnlyPorts = parsePorts(sections["PORTS"])
	m.PendingUpdates = parseCount(sections["UPDATES"])
	m.SecurityUpdates = parseCount(sections["SECURITY_UPDATES"])
	m.FailedSSHAttempts = parseCount(sections["SSH_FAILED"])
	m.FirewallActive = parseActive(sections["FIREWALL"])
	m.Fail2banActive = parseActive(sections["FAIL2BAN"])

	return m
}

// parseCount reads a wc -l style numeric line, defaulting to 0.
func parseCount(body string) int {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseActive detects an "active" service state. A bare substring check
// would also match "inactive", so that case is excluded explicitly.
func parseActive(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "active") && !strings.Contains(lower, "inactive")
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
