package entity

import (
	"fmt"
	"net/url"
	"slices"
)

// maxURLLength defines the maximum allowed length for configured endpoint URLs.
const maxURLLength = 2048

// ValidateEndpoint validates a configured endpoint URL such as the token endpoint
// or the feed websocket URL. The URL must be absolute, use one of the allowed
// schemes, and name a host.
func ValidateEndpoint(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	if !slices.Contains(schemes, parsedURL.Scheme) {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("URL scheme %q is not one of %v", parsedURL.Scheme, schemes),
		}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	return nil
}
