package api

import (
	"fmt"
	"strings"

	"github.com/searchintel/searchintel/internal/models"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateScrapeRequest rejects incomplete scrape requests before any browser
// resource is acquired.
func ValidateScrapeRequest(req models.ScrapeRequest) error {
	if strings.TrimSpace(req.SessionToken) == "" {
		return ValidationError{Field: "sessionToken", Message: "session token is required"}
	}
	if strings.TrimSpace(req.Keyword) == "" {
		return ValidationError{Field: "keyword", Message: "keyword is required"}
	}
	return nil
}

// ValidateStrategyRequest rejects incomplete strategy requests before any
// provider call. An empty query list is allowed: the caller may want an
// outline even after a soft-failure scrape.
func ValidateStrategyRequest(req models.StrategyRequest) error {
	if strings.TrimSpace(req.Keyword) == "" {
		return ValidationError{Field: "keyword", Message: "keyword is required"}
	}
	return nil
}
