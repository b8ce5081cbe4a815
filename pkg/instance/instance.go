package instance

import (
	"os"

	"github.com/angelmondragon/storefront-gateway/pkg/env"
)

// GetID returns the gateway instance identifier: STOREFRONT_INSTANCE_ID, then
// the platform's dyno or revision name, then the hostname.
func GetID() string {
	if id := env.First("", "STOREFRONT_INSTANCE_ID", "DYNO", "K_REVISION"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "gateway-0"
}
