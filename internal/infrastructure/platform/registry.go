package platform

import (
	"github.com/channelsync/backend/internal/domain/sync"
)

// Registry holds the configured platform clients
type Registry struct {
	clients map[sync.Platform]sync.PlatformClient
}

var _ sync.PlatformRegistry = (*Registry)(nil)

// NewRegistry creates a registry over the given clients
func NewRegistry(clients ...sync.PlatformClient) *Registry {
	r := &Registry{clients: make(map[sync.Platform]sync.PlatformClient)}
	for _, c := range clients {
		r.clients[c.Platform()] = c
	}
	return r
}

// Client returns the client for the given platform
func (r *Registry) Client(platform sync.Platform) (sync.PlatformClient, error) {
	client, ok := r.clients[platform]
	if !ok {
		return nil, sync.ErrPlatformNotConfigured
	}
	return client, nil
}
