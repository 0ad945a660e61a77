package foundry

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

// VoicesService manages the voice catalog: listing provider voices, fetching
// details, and cloning custom voices from audio samples.
type VoicesService struct {
	client *Client
}

// List returns the available voices, optionally filtered by provider.
func (s *VoicesService) List(ctx context.Context, provider string) ([]types.Voice, error) {
	query := url.Values{}
	if provider != "" {
		query.Set("provider", provider)
	}

	var response struct {
		Voices []types.Voice `json:"voices"`
	}
	if err := s.client.doJSON(ctx, http.MethodGet, "/voices", query, nil, &response); err != nil {
		return nil, err
	}
	return response.Voices, nil
}

// Get fetches one voice by ID.
func (s *VoicesService) Get(ctx context.Context, voiceID, provider string) (*types.Voice, error) {
	query := url.Values{}
	if provider != "" {
		query.Set("provider", provider)
	}

	var voice types.Voice
	if err := s.client.doJSON(ctx, http.MethodGet, "/voices/"+url.PathEscape(voiceID), query, nil, &voice); err != nil {
		return nil, err
	}
	return &voice, nil
}

// Delete removes a cloned voice.
func (s *VoicesService) Delete(ctx context.Context, voiceID, provider string) error {
	query := url.Values{}
	if provider != "" {
		query.Set("provider", provider)
	}
	return s.client.doJSON(ctx, http.MethodDelete, "/voices/"+url.PathEscape(voiceID), query, nil, nil)
}

// CloneRequest describes a voice cloning job. AudioSamples are raw audio
// file contents; they are base64-encoded on the wire.
type CloneRequest struct {
	Name         string
	Provider     string
	AudioSamples [][]byte
	Description  string
	Labels       map[string]string
}

// Clone creates a custom voice from audio samples.
func (s *VoicesService) Clone(ctx context.Context, req CloneRequest) (*types.VoiceClone, error) {
	encoded := make([]string, 0, len(req.AudioSamples))
	for _, sample := range req.AudioSamples {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(sample))
	}

	body := map[string]any{
		"name":        req.Name,
		"provider":    req.Provider,
		"audio_files": encoded,
	}
	if req.Description != "" {
		body["description"] = req.Description
	}
	if len(req.Labels) > 0 {
		body["labels"] = req.Labels
	}

	var clone types.VoiceClone
	if err := s.client.doJSON(ctx, http.MethodPost, "/voices/clone", nil, body, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}
