package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePorts(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantOpen      []int
		wantLocalOnly []int
	}{
		{
			name:          "wildcard binding is exposed",
			body:          "tcp LISTEN 0 128 0.0.0.0:22 0.0.0.0:*",
			wantOpen:      []int{22},
			wantLocalOnly: nil,
		},
		{
			name:          "loopback only",
			body:          "tcp LISTEN 0 70 127.0.0.1:3306 0.0.0.0:*",
			wantOpen:      []int{3306},
			wantLocalOnly: []int{3306},
		},
		{
			name: "ipv6 loopback counts as loopback",
			body: "tcp LISTEN 0 70 127.0.0.1:6379 0.0.0.0:*\n" +
				"tcp LISTEN 0 70 [::1]:6379 [::]:*",
			wantOpen:      []int{6379},
			wantLocalOnly: []int{6379},
		},
		{
			name: "loopback plus wildcard is exposed",
			body: "tcp LISTEN 0 70 127.0.0.1:5432 0.0.0.0:*\n" +
				"tcp LISTEN 0 70 0.0.0.0:5432 0.0.0.0:*",
			wantOpen:      []int{5432},
			wantLocalOnly: nil,
		},
		{
			name:          "interface address is exposed",
			body:          "tcp LISTEN 0 128 192.168.1.10:8080 0.0.0.0:*",
			wantOpen:      []int{8080},
			wantLocalOnly: nil,
		},
		{
			name:          "ipv6 wildcard is exposed",
			body:          "tcp LISTEN 0 128 [::]:443 [::]:*",
			wantOpen:      []int{443},
			wantLocalOnly: nil,
		},
		{
			name:          "scoped address",
			body:          "tcp LISTEN 0 128 ::1%lo:9100 [::]:*",
			wantOpen:      []int{9100},
			wantLocalOnly: []int{9100},
		},
		{
			name:          "noise lines ignored",
			body:          "Netid State Recv-Q Send-Q\nsomething without ports\n",
			wantOpen:      nil,
			wantLocalOnly: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, localOnly := parsePorts(tt.body)
			assert.Equal(t, tt.wantOpen, open)
			assert.Equal(t, tt.wantLocalOnly, localOnly)
		})
	}
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantAddr string
		wantPort int
		wantOK   bool
	}{
		{"ss line", "tcp LISTEN 0 128 0.0.0.0:22 0.0.0.0:*", "0.0.0.0", 22, true},
		{"peer wildcard skipped", "tcp LISTEN 0 128 127.0.0.1:631 0.0.0.0:*", "127.0.0.1", 631, true},
		{"no port", "tcp LISTEN 0 128", "", 0, false},
		{"port out of range", "x 1.2.3.4:70000", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, port, ok := listenAddr(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantAddr, addr)
				assert.Equal(t, tt.wantPort, port)
			}
		})
	}
}
