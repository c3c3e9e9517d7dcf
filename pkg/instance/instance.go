package instance

import (
	"os"

	"github.com/dropsaas/shopify-bridge/pkg/env"
)

// GetID returns an identifier for this process, used as the cron lock owner.
// WORKER_ID wins, then the hostname (the pod name on Cloud Run and k8s).
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
