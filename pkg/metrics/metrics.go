// Package metrics holds the Prometheus collectors shared by the API, the
// outbox publisher and the cron worker.
package metrics

const namespace = "bazaar"

// normalizeLabel keeps empty label values from collapsing into "".
func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
