package instance

import "os"

// GetID returns the process instance identifier used in logs. It prefers
// BLOODLINK_INSTANCE_ID, then the host name.
func GetID() string {
	if id := os.Getenv("BLOODLINK_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
