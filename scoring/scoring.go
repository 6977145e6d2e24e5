// Package scoring computes a composite 0-100 security score from audit
// metrics. It is a pure function over its input: no I/O, no clock, no
// randomness. Deductions are summed per category and capped before being
// applied, so one noisy category can never dominate the score on its own.
package scoring

import (
	"fmt"
	"sort"

	"github.com/dragusinb/claude-dev-hub-sub001/metrics"
	"github.com/dragusinb/claude-dev-hub-sub001/models"
)

// Per-category deduction caps.
const (
	capPorts    = 30
	capFirewall = 15
	capSSH      = 25
	capUpdates  = 25
)

// An active firewall is treated as an irreducible baseline of protection:
// the score never drops below this floor while one is running.
const firewallFloor = 10

// Result is the scoring engine's output.
type Result struct {
	Score           int
	Findings        []models.Finding
	Recommendations []string
}

// Port classification tables.
var riskyPorts = map[int]string{
	21:  "FTP",
	23:  "Telnet",
	69:  "TFTP",
	111: "rpcbind",
	135: "MS-RPC",
	139: "NetBIOS",
	445: "SMB",
	512: "rexec",
	513: "rlogin",
	514: "rsh",
}

var databasePorts = map[int]string{
	1433:  "MSSQL",
	3306:  "MySQL",
	5432:  "PostgreSQL",
	5984:  "CouchDB",
	6379:  "Redis",
	9200:  "Elasticsearch",
	11211: "Memcached",
	27017: "MongoDB",
}

var plainMailPorts = map[int]string{
	25:  "SMTP",
	110: "POP3",
	143: "IMAP",
}

var secureMailPorts = map[int]string{
	465: "SMTPS",
	587: "Submission",
	993: "IMAPS",
	995: "POP3S",
}

// commonPorts carry no deduction on their own.
var commonPorts = map[int]string{
	22:   "SSH",
	53:   "DNS",
	80:   "HTTP",
	123:  "NTP",
	443:  "HTTPS",
	8080: "HTTP-alt",
	8443: "HTTPS-alt",
}

// Score evaluates the metrics and returns the composite score, the ordered
// findings list, and human-readable recommendations for the actionable ones.
func Score(m metrics.SecurityMetrics) Result {
	r := Result{}

	deduction := 0
	deduction += capped(r.scorePorts(m), capPorts)
	deduction += capped(r.scoreFirewall(m), capFirewall)
	deduction += capped(r.scoreSSH(m), capSSH)
	deduction += capped(r.scoreUpdates(m), capUpdates)

	score := 100 - deduction
	if score < 0 {
		score = 0
	}
	if m.FirewallActive && score < firewallFloor {
		score = firewallFloor
	}
	if score > 100 {
		score = 100
	}
	r.Score = score
	return r
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

func (r *Result) add(severity, category, message, action string) {
	r.Findings = append(r.Findings, models.Finding{
		Severity: severity,
		Category: category,
		Message:  message,
		Action:   action,
	})
}

func (r *Result) recommend(msg string) {
	r.Recommendations = append(r.Recommendations, msg)
}

// mailServerSignature suppresses the mail-port deduction on hosts that look
// like legitimate mail servers: at least one secure mail port open, or at
// least two of the plaintext mail ports open simultaneously.
func mailServerSignature(m metrics.SecurityMetrics) bool {
	plain := 0
	for _, port := range m.OpenPorts {
		if _, ok := secureMailPorts[port]; ok {
			return true
		}
		if _, ok := plainMailPorts[port]; ok {
			plain++
		}
	}
	return plain >= 2
}

func (r *Result) scorePorts(m metrics.SecurityMetrics) int {
	deduction := 0
	isMailServer := mailServerSignature(m)

	ports := append([]int(nil), m.OpenPorts...)
	sort.Ints(ports)

	for _, port := range ports {
		switch {
		case riskyPorts[port] != "":
			deduction += 10
			r.add(models.SeverityHigh, "ports",
				fmt.Sprintf("Risky service %s exposed on port %d", riskyPorts[port], port),
				fmt.Sprintf("close_port_%d", port))
			r.recommend(fmt.Sprintf("Disable %s (port %d) or restrict it behind the firewall", riskyPorts[port], port))

		case databasePorts[port] != "":
			if m.LocalhostOnly(port) {
				// Correctly restricted: informational only, no deduction.
				r.add(models.SeverityInfo, "ports",
					fmt.Sprintf("%s (port %d) is bound to localhost only", databasePorts[port], port), "")
			} else {
				deduction += 15
				r.add(models.SeverityHigh, "ports",
					fmt.Sprintf("Database %s exposed to the network on port %d", databasePorts[port], port),
					fmt.Sprintf("restrict_port_%d", port))
				r.recommend(fmt.Sprintf("Bind %s (port %d) to 127.0.0.1 or firewall it", databasePorts[port], port))
			}

		case plainMailPorts[port] != "":
			if isMailServer {
				r.add(models.SeverityInfo, "ports",
					fmt.Sprintf("Mail service %s on port %d (mail server detected)", plainMailPorts[port], port), "")
			} else {
				deduction += 5
				r.add(models.SeverityMedium, "ports",
					fmt.Sprintf("Mail port %d (%s) open without a mail server signature", port, plainMailPorts[port]),
					fmt.Sprintf("close_port_%d", port))
				r.recommend(fmt.Sprintf("Close port %d unless this host is meant to relay mail", port))
			}

		case secureMailPorts[port] != "":
			r.add(models.SeverityInfo, "ports",
				fmt.Sprintf("Secure mail service %s on port %d", secureMailPorts[port], port), "")

		case commonPorts[port] != "":
			// Expected service, nothing to report.

		default:
			deduction += 2
			r.add(models.SeverityLow, "ports",
				fmt.Sprintf("Non-standard port %d open", port), "")
		}
	}

	if deduction == 0 && len(ports) > 0 {
		r.add(models.SeverityInfo, "ports", "Minimal ports exposed", "")
	}
	return deduction
}

func (r *Result) scoreFirewall(m metrics.SecurityMetrics) int {
	if m.FirewallActive {
		r.add(models.SeverityInfo, "firewall", "Firewall is active", "")
		return 0
	}
	r.add(models.SeverityHigh, "firewall", "No active firewall detected", "enable_firewall")
	r.recommend("Enable the firewall (e.g. ufw enable) and allow only required services")
	return 15
}

func (r *Result) scoreSSH(m metrics.SecurityMetrics) int {
	attempts := m.FailedSSHAttempts

	if m.Fail2banActive {
		if attempts > 10 {
			r.add(models.SeverityInfo, "ssh",
				fmt.Sprintf("%d failed SSH attempts, mitigated by fail2ban", attempts), "")
		}
		return 0
	}

	if attempts <= 10 {
		return 0
	}

	// Brute-force pressure tiers plus the missing-mitigation penalty.
	deduction := 10
	r.add(models.SeverityHigh, "ssh",
		fmt.Sprintf("fail2ban is not active with %d failed SSH attempts", attempts), "install_fail2ban")
	r.recommend("Install and enable fail2ban to throttle SSH brute-force attempts")

	deduction += 5
	if attempts > 50 {
		deduction += 10
		r.add(models.SeverityHigh, "ssh",
			fmt.Sprintf("Heavy SSH brute-force activity: %d failed attempts", attempts), "harden_ssh")
		r.recommend("Disable SSH password authentication in favor of keys")
	} else {
		r.add(models.SeverityMedium, "ssh",
			fmt.Sprintf("Elevated failed SSH attempts: %d", attempts), "")
	}
	return deduction
}

func (r *Result) scoreUpdates(m metrics.SecurityMetrics) int {
	deduction := 0

	if m.SecurityUpdates > 0 {
		d := 3 * m.SecurityUpdates
		if d > 15 {
			d = 15
		}
		deduction += d
		r.add(models.SeverityHigh, "updates",
			fmt.Sprintf("%d pending security updates", m.SecurityUpdates), "apply_security_updates")
		r.recommend("Apply pending security updates as soon as possible")
	}

	if m.PendingUpdates > 10 {
		d := m.PendingUpdates / 5
		if d > 10 {
			d = 10
		}
		deduction += d
		r.add(models.SeverityMedium, "updates",
			fmt.Sprintf("%d packages pending upgrade", m.PendingUpdates), "apply_updates")
		r.recommend("Schedule a maintenance window to bring packages up to date")
	}
	return deduction
}
