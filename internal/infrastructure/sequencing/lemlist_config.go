package sequencing

import "errors"

// LemlistConfig holds configuration for the lemlist API integration
type LemlistConfig struct {
	// APIKey is the account API key, sent as the basic-auth password
	APIKey string
	// APIBaseURL is the base URL for the lemlist API
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// PageSize is the page size used for paginated endpoints
	PageSize int
}

const (
	// LemlistAPIURL is the production API endpoint
	LemlistAPIURL = "https://api.lemlist.com/api"
	// lemlistDefaultPageSize matches the API's documented maximum
	lemlistDefaultPageSize = 100
)

// Errors for lemlist configuration
var (
	ErrLemlistConfigMissingAPIKey = errors.New("lemlist: API key is required")
)

// NewLemlistConfig creates a lemlist configuration with defaults
func NewLemlistConfig(apiKey string) *LemlistConfig {
	return &LemlistConfig{
		APIKey:         apiKey,
		APIBaseURL:     LemlistAPIURL,
		TimeoutSeconds: 30,
		PageSize:       lemlistDefaultPageSize,
	}
}

// Validate validates the lemlist configuration
func (c *LemlistConfig) Validate() error {
	if c.APIKey == "" {
		return ErrLemlistConfigMissingAPIKey
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = LemlistAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.PageSize <= 0 {
		c.PageSize = lemlistDefaultPageSize
	}
	return nil
}
