package cloudtrans

import (
	"fmt"
)

const DefaultAPIURL = "https://translation.googleapis.com"

// Config holds the configuration for the Cloud Translation client
//
// Environment Variables (read by internal/config):
// - KEY: API key (required)
// - PROJECT_ID: project billed for the requests (optional)
// - SUBTRANS_API_URL: API endpoint URL (default: https://translation.googleapis.com)
type Config struct {
	APIKey    string `json:"api_key"`
	ProjectID string `json:"project_id"`
	APIURL    string `json:"api_url"`
	Target    string `json:"target"`
	Source    string `json:"source"`
	Format    string `json:"format"`
	Timeout   int    `json:"timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Target == "" {
		return fmt.Errorf("target language is required")
	}
	if c.Format != "" && c.Format != "text" && c.Format != "html" {
		return fmt.Errorf("format must be text or html")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the headers for the API request
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if c.ProjectID != "" {
		headers["X-Goog-User-Project"] = c.ProjectID
	}
	return headers
}
