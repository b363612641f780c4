package service

import (
	"errors"
	"fmt"
)

var (
	// ErrWebhookNotConfigured means no status-check webhook URL is set.
	ErrWebhookNotConfigured = errors.New("status check webhook URL not configured")

	// ErrNoConsignmentID means the sale has not been handed to the courier yet.
	ErrNoConsignmentID = errors.New("sale has no consignment id")

	// ErrRefreshInProgress means another bulk status refresh holds the lock.
	ErrRefreshInProgress = errors.New("bulk status refresh already in progress")

	// ErrOptimizeInProgress means another image optimization run holds the lock.
	ErrOptimizeInProgress = errors.New("image optimization already in progress")
)

// StatusCheckError wraps a failed courier webhook call. The sale's stored
// status is left untouched when this is returned.
type StatusCheckError struct {
	ConsignmentID string
	Err           error
}

func (e *StatusCheckError) Error() string {
	return fmt.Sprintf("status check failed for consignment %s: %v", e.ConsignmentID, e.Err)
}

func (e *StatusCheckError) Unwrap() error {
	return e.Err
}
