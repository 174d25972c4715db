package instance

import (
	"os"
	"strings"
)

// GetID identifies this process when it competes for shared locks.
// WORKER_ID wins, then the hostname, then a static default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "mercerie-0"
}
