package foundry

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

// LiveKitService issues room tokens and inspects active rooms on the
// gateway's LiveKit deployment.
type LiveKitService struct {
	client *Client
}

// TokenRequest asks for a room access token.
type TokenRequest struct {
	RoomName string `json:"room_name"`
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	TTL      int    `json:"ttl,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

// Token creates an access token for a room.
func (s *LiveKitService) Token(ctx context.Context, req TokenRequest) (*types.LiveKitToken, error) {
	var token types.LiveKitToken
	if err := s.client.doJSON(ctx, http.MethodPost, "/livekit/token", nil, req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Room fetches one room by name.
func (s *LiveKitService) Room(ctx context.Context, name string) (*types.RoomInfo, error) {
	var room types.RoomInfo
	if err := s.client.doJSON(ctx, http.MethodGet, "/livekit/rooms/"+url.PathEscape(name), nil, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// Rooms lists the active rooms.
func (s *LiveKitService) Rooms(ctx context.Context) ([]types.RoomInfo, error) {
	var response struct {
		Rooms []types.RoomInfo `json:"rooms"`
	}
	if err := s.client.doJSON(ctx, http.MethodGet, "/livekit/rooms", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Rooms, nil
}
