package domain

import "errors"

var (
	ErrInvalidShop      = errors.New("invalid shop domain")
	ErrInvalidState     = errors.New("invalid oauth state")
	ErrInvalidHMAC      = errors.New("invalid hmac")
	ErrMissingSession   = errors.New("no authenticated session")
	ErrInvalidWebhook   = errors.New("webhook signature verification failed")
	ErrDuplicateWebhook = errors.New("webhook already received")
)
