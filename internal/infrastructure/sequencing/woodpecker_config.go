package sequencing

import "errors"

// WoodpeckerConfig holds configuration for the Woodpecker API integration
type WoodpeckerConfig struct {
	// APIKey is the account API key, sent as the basic-auth user
	APIKey string
	// APIBaseURL is the base URL for the Woodpecker API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// WoodpeckerAPIURL is the production API endpoint
const WoodpeckerAPIURL = "https://api.woodpecker.co/rest/v1"

// Errors for Woodpecker configuration
var (
	ErrWoodpeckerConfigMissingAPIKey = errors.New("woodpecker: API key is required")
)

// NewWoodpeckerConfig creates a Woodpecker configuration with defaults
func NewWoodpeckerConfig(apiKey string) *WoodpeckerConfig {
	return &WoodpeckerConfig{
		APIKey:         apiKey,
		APIBaseURL:     WoodpeckerAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Woodpecker configuration
func (c *WoodpeckerConfig) Validate() error {
	if c.APIKey == "" {
		return ErrWoodpeckerConfigMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = WoodpeckerAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
