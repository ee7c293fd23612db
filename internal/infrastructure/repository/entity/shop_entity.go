package entity

import (
	"time"

	"shopify-embedded-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopDoc represents an installed shop in MongoDB
type MongoShopDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Domain            string             `bson:"domain"`
	Scopes            []string           `bson:"scopes"`
	WebhookRegistered bool               `bson:"webhookRegistered"`
	InstalledAt       time.Time          `bson:"installedAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		Domain:            d.Domain,
		Scopes:            d.Scopes,
		WebhookRegistered: d.WebhookRegistered,
		InstalledAt:       d.InstalledAt,
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document
func MongoShopDocFromDomain(shop *domain.Shop) *MongoShopDoc {
	return &MongoShopDoc{
		Domain:            shop.Domain,
		Scopes:            shop.Scopes,
		WebhookRegistered: shop.WebhookRegistered,
		InstalledAt:       shop.InstalledAt,
	}
}
