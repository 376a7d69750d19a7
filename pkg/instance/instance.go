package instance

import (
	"os"
	"strings"
)

const envWorkerID = "MONEYPILOT_WORKER_ID"

// GetID identifies this process in worker logs. It prefers MONEYPILOT_WORKER_ID,
// then the hostname, then a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(envWorkerID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
