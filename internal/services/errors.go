// Package services talks to the third-party APIs behind the proxy routes and
// holds the journal workflow used by the pages.
package services

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the API key or client credentials are missing.
var ErrNotConfigured = errors.New("not configured")

// UpstreamError reports a non-success answer from a third-party API.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Service, e.Status, e.Message)
}
