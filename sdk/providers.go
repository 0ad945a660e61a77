package foundry

import (
	"context"
	"net/http"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

// ProvidersService reports gateway health and the plugin catalog of
// installed STT, TTS, realtime, and processor backends.
type ProvidersService struct {
	client *Client
}

// Health checks the gateway root endpoint.
func (s *ProvidersService) Health(ctx context.Context) (*types.HealthStatus, error) {
	var status types.HealthStatus
	if err := s.client.doJSON(ctx, http.MethodGet, "/", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// List returns the installed plugins grouped by kind.
func (s *ProvidersService) List(ctx context.Context) (*types.PluginList, error) {
	var list types.PluginList
	if err := s.client.doJSON(ctx, http.MethodGet, "/providers", nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
