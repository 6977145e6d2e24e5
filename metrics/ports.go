package metrics

import (
	"sort"
	"strconv"
	"strings"
)

// loopbackAddrs and wildcardAddrs classify a listening socket's bind address.
// A port is localhost-only when every observed binding is loopback and none
// is a wildcard; one non-loopback binding makes it exposed.
var loopbackAddrs = map[string]bool{
	"127.0.0.1": true,
	"::1":       true,
	"[::1]":     true,
}

var wildcardAddrs = map[string]bool{
	"0.0.0.0": true,
	"*":       true,
	"::":      true,
	"[::]":    true,
}

// parsePorts reads ss/netstat style listener lines and returns all observed
// ports (sorted) plus the subset bound only to loopback.
func parsePorts(body string) (open, localhostOnly []int) {
	type bindings struct {
		loopback    bool
		nonLoopback bool
	}
	seen := make(map[int]*bindings)

	for _, line := range strings.Split(body, "\n") {
		addr, port, ok := listenAddr(line)
		if !ok {
			continue
		}
		b := seen[port]
		if b == nil {
			b = &bindings{}
			seen[port] = b
		}
		switch {
		case wildcardAddrs[addr]:
			b.nonLoopback = true
		case loopbackAddrs[addr]:
			b.loopback = true
		default:
			// A concrete interface address is reachable from outside.
			b.nonLoopback = true
		}
	}

	for port, b := range seen {
		open = append(open, port)
		if b.loopback && !b.nonLoopback {
			localhostOnly = append(localhostOnly, port)
		}
	}
	sort.Ints(open)
	sort.Ints(localhostOnly)
	return open, localhostOnly
}

// listenAddr extracts the local bind address and port from one listener
// line. It takes the first whitespace field of the form host:port whose port
// part is numeric, which skips peer-address fields like "0.0.0.0:*".
func listenAddr(line string) (addr string, port int, ok bool) {
	for _, field := range strings.Fields(line) {
		idx := strings.LastIndex(field, ":")
		if idx <= 0 || idx == len(field)-1 {
			continue
		}
		p, err := strconv.Atoi(field[idx+1:])
		if err != nil || p < 1 || p > 65535 {
			continue
		}
		host := field[:idx]
		// Strip an interface scope like ::1%lo.
		if pct := strings.Index(host, "%"); pct >= 0 {
			host = host[:pct]
		}
		return host, p, true
	}
	return "", 0, false
}
