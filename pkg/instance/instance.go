package instance

import "os"

// GetID identifies the running process in logs. BAZAAR_INSTANCE_ID wins over
// the platform dyno name, which wins over the hostname.
func GetID() string {
	for _, key := range []string{"BAZAAR_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
