package domain

import "time"

// Session represents the authenticated shop bound to a browser session
type Session struct {
	Shop        string   `json:"shop"`
	AccessToken string   `json:"access_token"`
	Scopes      []string `json:"scopes"`
}

// Authenticated reports whether the session carries both a shop and an access token
func (s Session) Authenticated() bool {
	return s.Shop != "" && s.AccessToken != ""
}

// AccessToken is the result of exchanging an OAuth authorization code
type AccessToken struct {
	Token  string
	Scopes []string
}

// Shop is the install record kept for a shop after a successful OAuth handshake
type Shop struct {
	Domain            string    `json:"domain" bson:"domain"`
	Scopes            []string  `json:"scopes" bson:"scopes"`
	WebhookRegistered bool      `json:"webhook_registered" bson:"webhook_registered"`
	InstalledAt       time.Time `json:"installed_at" bson:"installed_at"`
}
