package stripe

import (
	"errors"

	"github.com/stripe/stripe-go/v82"

	"github.com/useautumn/autumn-sub008/internal/logger"
)

// Client wraps the Stripe API client used by the reconciliation adapters
type Client struct {
	api    *stripe.Client
	logger *logger.Logger
}

// NewClient creates a Stripe client from an API secret key
func NewClient(secretKey string, logger *logger.Logger) *Client {
	return &Client{
		api:    stripe.NewClient(secretKey, nil),
		logger: logger,
	}
}

// isResourceMissing reports whether a Stripe error means the referenced
// object does not exist
func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
