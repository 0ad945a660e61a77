package foundry

import (
	"context"
	"net/http"

	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

// DAGService works with gateway processing graphs: prebuilt pipeline
// templates and server-side validation of custom definitions.
type DAGService struct {
	client *Client
}

// Templates lists the prebuilt pipeline templates.
func (s *DAGService) Templates(ctx context.Context) ([]types.DAGDefinition, error) {
	var response struct {
		Templates []types.DAGDefinition `json:"templates"`
	}
	if err := s.client.doJSON(ctx, http.MethodGet, "/dag/templates", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Templates, nil
}

// Validate checks a pipeline definition server-side without running it.
func (s *DAGService) Validate(ctx context.Context, def types.DAGDefinition) (*types.DAGValidationResult, error) {
	var result types.DAGValidationResult
	if err := s.client.doJSON(ctx, http.MethodPost, "/dag/validate", nil, def, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
