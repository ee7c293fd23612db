package entity

import (
	"time"

	"shopify-embedded-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookDoc is one received webhook delivery
type MongoWebhookDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	WebhookID  string             `bson:"webhookId"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	APIVersion string             `bson:"apiVersion"`
	Payload    bson.M             `bson:"payload,omitempty"`
	RawPayload string             `bson:"rawPayload,omitempty"`
	Verified   bool               `bson:"verified"`
	ReceivedAt time.Time          `bson:"receivedAt"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

// MongoWebhookDocFromDomain converts a webhook event; JSON payloads are kept
// queryable, anything else is stored as a string
func MongoWebhookDocFromDomain(event *domain.WebhookEvent) *MongoWebhookDoc {
	doc := &MongoWebhookDoc{
		WebhookID:  event.ID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		APIVersion: event.APIVersion,
		Verified:   event.Verified,
		ReceivedAt: event.ReceivedAt,
	}

	var payload bson.M
	if err := bson.UnmarshalExtJSON(event.Payload, false, &payload); err == nil {
		doc.Payload = payload
	} else {
		doc.RawPayload = string(event.Payload)
	}

	return doc
}
