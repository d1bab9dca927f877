package platform

import (
	"context"
	"net/http"

	"labelsheet/internal/metadata"
)

// MetadataFields fetches the platform's metadata ontology.
func (c *Client) MetadataFields(ctx context.Context) ([]metadata.Field, error) {
	var out struct {
		Fields []metadata.Field `json:"fields"`
	}
	if err := c.do(ctx, http.MethodGet, "/metadata/fields", nil, &out); err != nil {
		return nil, err
	}
	return out.Fields, nil
}

// CreateMetadataField creates one metadata field, with enum options when the
// kind is enum.
func (c *Client) CreateMetadataField(ctx context.Context, name, kind string, enumOptions []string) (metadata.Field, error) {
	body := map[string]any{
		"name": name,
		"kind": kind,
	}
	if len(enumOptions) > 0 {
		body["options"] = enumOptions
	}
	var field metadata.Field
	if err := c.do(ctx, http.MethodPost, "/metadata/fields", body, &field); err != nil {
		return metadata.Field{}, err
	}
	return field, nil
}
