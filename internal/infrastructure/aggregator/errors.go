package aggregator

import (
	"errors"
	"fmt"
)

// Error codes the sync core reacts to
const (
	ErrorCodeItemLoginRequired = "ITEM_LOGIN_REQUIRED"
	ErrorCodePendingExpiration = "PENDING_EXPIRATION"
)

// APIError represents an error response from the API
type APIError struct {
	StatusCode     int     `json:"-"`
	ErrorType      string  `json:"error_type"`
	ErrorCode      string  `json:"error_code"`
	ErrorMessage   string  `json:"error_message"`
	DisplayMessage *string `json:"display_message"`
	RequestID      string  `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s/%s - %s", e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

// IsLoginRequired reports whether err is an aggregator error demanding user re-authentication.
func IsLoginRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == ErrorCodeItemLoginRequired
}
