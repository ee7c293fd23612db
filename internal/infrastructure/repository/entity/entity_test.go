package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-embedded-app/internal/domain"
)

func TestMongoWebhookDocFromDomain(t *testing.T) {
	received := time.Date(2019, 10, 1, 12, 0, 0, 0, time.UTC)

	t.Run("json payload is stored as a document", func(t *testing.T) {
		doc := MongoWebhookDocFromDomain(&domain.WebhookEvent{
			ID:         "wh-1",
			Topic:      domain.HeaderTopicProductsCreate,
			Shop:       "example.myshopify.com",
			APIVersion: "2019-10",
			Payload:    []byte(`{"title":"Board","vendor":"Acme"}`),
			Verified:   true,
			ReceivedAt: received,
		})

		assert.Equal(t, "wh-1", doc.WebhookID)
		assert.Equal(t, "products/create", doc.Topic)
		assert.True(t, doc.Verified)
		assert.Equal(t, received, doc.ReceivedAt)
		require.NotNil(t, doc.Payload)
		assert.Equal(t, "Board", doc.Payload["title"])
		assert.Empty(t, doc.RawPayload)
	})

	t.Run("non json payload is kept verbatim", func(t *testing.T) {
		doc := MongoWebhookDocFromDomain(&domain.WebhookEvent{Payload: []byte("not json")})
		assert.Nil(t, doc.Payload)
		assert.Equal(t, "not json", doc.RawPayload)
	})
}

func TestMongoShopDocRoundTrip(t *testing.T) {
	shop := &domain.Shop{
		Domain:            "example.myshopify.com",
		Scopes:            []string{"read_products"},
		WebhookRegistered: true,
		InstalledAt:       time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, shop, MongoShopDocFromDomain(shop).ToDomain())
}
