package foundry

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

// RecordingsService inspects and retrieves call recordings by stream ID.
type RecordingsService struct {
	client *Client
}

// Get fetches recording metadata for a stream.
func (s *RecordingsService) Get(ctx context.Context, streamID string) (*types.RecordingInfo, error) {
	var info types.RecordingInfo
	if err := s.client.doJSON(ctx, http.MethodGet, "/recordings/"+url.PathEscape(streamID), nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Download returns the recorded audio. Format selects the container
// (e.g. "wav", "mp3"); empty uses the gateway default.
func (s *RecordingsService) Download(ctx context.Context, streamID, format string) ([]byte, error) {
	query := url.Values{}
	if format != "" {
		query.Set("format", format)
	}
	return s.client.doBytes(ctx, http.MethodGet, "/recordings/"+url.PathEscape(streamID)+"/download", query, nil)
}

// List pages through recordings matching the filter. A zero filter lists
// everything with the gateway's default page size.
func (s *RecordingsService) List(ctx context.Context, filter types.RecordingFilter) (*types.RecordingList, error) {
	query := url.Values{}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.FromDate != "" {
		query.Set("from_date", filter.FromDate)
	}
	if filter.ToDate != "" {
		query.Set("to_date", filter.ToDate)
	}

	var list types.RecordingList
	if err := s.client.doJSON(ctx, http.MethodGet, "/recordings", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Delete removes a recording.
func (s *RecordingsService) Delete(ctx context.Context, streamID string) error {
	return s.client.doJSON(ctx, http.MethodDelete, "/recordings/"+url.PathEscape(streamID), nil, nil, nil)
}
