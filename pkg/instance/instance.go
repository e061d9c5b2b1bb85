package instance

import (
	"fmt"
	"os"
)

// ID identifies the running process in logs. It prefers COMMISSION_INSTANCE_ID,
// then the platform's DYNO name, then the hostname.
func ID(service string) string {
	if id := os.Getenv("COMMISSION_INSTANCE_ID"); id != "" {
		return id
	}
	if dyno := os.Getenv("DYNO"); dyno != "" {
		return dyno
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return fmt.Sprintf("%s@%s", service, host)
	}
	return service + "-0"
}
