package foundry

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

// SIPService manages telephony webhooks: which webhook URL the gateway calls
// when a SIP host receives an inbound call.
type SIPService struct {
	client *Client
}

// Hooks lists the registered SIP hooks.
func (s *SIPService) Hooks(ctx context.Context) ([]types.SIPHook, error) {
	var response struct {
		Hooks []types.SIPHook `json:"hooks"`
	}
	if err := s.client.doJSON(ctx, http.MethodGet, "/sip/hooks", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Hooks, nil
}

// CreateHook registers a webhook for a SIP host.
func (s *SIPService) CreateHook(ctx context.Context, host, webhookURL string) (*types.SIPHook, error) {
	body := map[string]any{
		"host":        host,
		"webhook_url": webhookURL,
	}
	var hook types.SIPHook
	if err := s.client.doJSON(ctx, http.MethodPost, "/sip/hooks", nil, body, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// DeleteHook removes a SIP hook by host.
func (s *SIPService) DeleteHook(ctx context.Context, host string) error {
	return s.client.doJSON(ctx, http.MethodDelete, "/sip/hooks/"+url.PathEscape(host), nil, nil, nil)
}
