package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCloudinaryResponse(t *testing.T) {
	raw := []byte(`{
		"asset_id": "abc123",
		"public_id": "swapmap/item1",
		"width": 800,
		"height": 600,
		"bytes": 12345,
		"secure_url": "https://res.cloudinary.com/demo/image/upload/item1.jpg",
		"eager": [
			{"status": "completed", "secure_url": "https://res.cloudinary.com/demo/image/upload/c_thumb/item1.jpg"}
		]
	}`)

	resp, err := ParseCloudinaryResponse(raw)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", resp.AssetID)

	meta := ExtractMetadata(resp)
	assert.Equal(t, "swapmap/item1", meta.PublicID)
	assert.Equal(t, 800, meta.Width)
	assert.Equal(t, 12345, meta.Bytes)

	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/c_thumb/item1.jpg", ExtractPreviewURL(resp))
}

func TestExtractPreviewURLEmpty(t *testing.T) {
	assert.Empty(t, ExtractPreviewURL(CloudinaryResponse{}))

	// Неготовые трансформации пропускаются
	resp := CloudinaryResponse{Eager: []Eager{{Status: "failed", SecureURL: "https://example.com/x.jpg"}}}
	assert.Empty(t, ExtractPreviewURL(resp))
}
