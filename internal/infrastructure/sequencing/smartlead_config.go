package sequencing

import "errors"

// SmartleadConfig holds configuration for the Smartlead API integration
type SmartleadConfig struct {
	// APIKey is the account API key, sent as the api_key query parameter
	APIKey string
	// APIBaseURL is the base URL for the Smartlead API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// PageSize is the page size used for paginated endpoints
	PageSize int
}

const (
	// SmartleadAPIURL is the production API endpoint
	SmartleadAPIURL = "https://server.smartlead.ai/api/v1"
	// smartleadDefaultPageSize matches the API's documented maximum
	smartleadDefaultPageSize = 100
)

// Errors for Smartlead configuration
var (
	ErrSmartleadConfigMissingAPIKey = errors.New("smartlead: API key is required")
)

// NewSmartleadConfig creates a Smartlead configuration with defaults
func NewSmartleadConfig(apiKey string) *SmartleadConfig {
	return &SmartleadConfig{
		APIKey:         apiKey,
		APIBaseURL:     SmartleadAPIURL,
		TimeoutSeconds: 30,
		PageSize:       smartleadDefaultPageSize,
	}
}

// Validate validates the Smartlead configuration
func (c *SmartleadConfig) Validate() error {
	if c.APIKey == "" {
		return ErrSmartleadConfigMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = SmartleadAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.PageSize <= 0 {
		c.PageSize = smartleadDefaultPageSize
	}
	return nil
}
