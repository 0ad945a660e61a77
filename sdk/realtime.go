package foundry

import (
	"context"

	"github.com/bud-foundry/foundry-go/pkg/core/realtime"
)

// RealtimeService creates speech-to-speech sessions routed through the
// gateway's realtime endpoint.
type RealtimeService struct {
	client *Client
}

// NewSession creates a disconnected realtime session. An empty URL targets
// the gateway's realtime endpoint; API key and logger default to the
// client's.
func (s *RealtimeService) NewSession(cfg realtime.Config) (*realtime.Session, error) {
	if cfg.URL == "" {
		cfg.URL = s.client.wsURL + "/realtime"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = s.client.apiKey
	}
	if cfg.Logger == nil {
		cfg.Logger = s.client.logger
	}
	return realtime.NewSession(cfg)
}

// Connect creates a session and connects it.
func (s *RealtimeService) Connect(ctx context.Context, cfg realtime.Config) (*realtime.Session, error) {
	session, err := s.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	return session, nil
}
