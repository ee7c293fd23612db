package webhook_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-embedded-app/internal/domain"
)

func TestProductHandler_CanHandle(t *testing.T) {
	h := NewProductHandler(zerolog.Nop())
	assert.True(t, h.CanHandle("products/create"))
	assert.False(t, h.CanHandle("products/update"))
	assert.False(t, h.CanHandle("PRODUCTS_CREATE"))
}

func TestProductHandler_LogsDelivery(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantTitle string
	}{
		{name: "json payload", payload: `{"id":632910392,"title":"IPod Nano - 8GB","vendor":"Apple"}`, wantTitle: "IPod Nano - 8GB"},
		{name: "raw payload", payload: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewProductHandler(zerolog.New(&buf))

			err := h.Handle(context.Background(), &domain.WebhookEvent{
				ID:      "wh-1",
				Topic:   domain.HeaderTopicProductsCreate,
				Shop:    "example.myshopify.com",
				Payload: []byte(tt.payload),
			})
			require.NoError(t, err)

			var line map[string]any
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
			assert.Equal(t, "received webhook", line["message"])
			assert.Equal(t, "example.myshopify.com", line["shop"])
			assert.Equal(t, "wh-1", line["webhookId"])
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, line["title"])
				assert.IsType(t, map[string]any{}, line["payload"])
			} else {
				assert.Equal(t, tt.payload, line["payload"])
			}
		})
	}
}
