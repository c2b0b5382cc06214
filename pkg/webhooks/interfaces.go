// Package webhooks provides functionality for sending HTTP callbacks.
package webhooks

import (
	"context"
	"time"
)

// EventTypeExtractionCompleted marks a finished extraction run.
const EventTypeExtractionCompleted = "extraction.completed"

// Dispatcher sends HTTP callbacks
type Dispatcher interface {
	// SendExtractionCompleted notifies when an extraction run completes
	SendExtractionCompleted(ctx context.Context, event Event) error
}

// WebhookConfig contains configuration for a webhook
type WebhookConfig struct {
	// URL to send the webhook to
	URL string `json:"url"`

	// Headers to include in the request
	Headers map[string]string `json:"headers,omitempty"`

	// Secret for signing the webhook payload
	Secret string `json:"secret,omitempty"`

	// RetryConfig for failed webhook deliveries
	RetryConfig RetryConfig `json:"retry_config,omitempty"`
}

// RetryConfig contains retry settings for webhook delivery
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int `json:"max_retries"`

	// InitialDelay is the initial delay before the first retry
	InitialDelay time.Duration `json:"initial_delay"`

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration `json:"max_delay"`

	// BackoffFactor is the multiplier for the delay between retries
	BackoffFactor float64 `json:"backoff_factor"`
}

// Event represents an extraction event delivered to a webhook
type Event struct {
	// Type of the event
	Type string `json:"type"`

	// Timestamp of the event
	Timestamp time.Time `json:"timestamp"`

	// RunID identifies the extraction run
	RunID string `json:"run_id"`

	// Artifact is the path of the written result file
	Artifact string `json:"artifact"`

	// TotalPackages is the number of packages in the artifact
	TotalPackages int `json:"total_packages,omitempty"`

	// TotalNodes is the number of extracted node descriptions
	TotalNodes int `json:"total_nodes"`

	// Data contains event-specific information
	Data map[string]interface{} `json:"data,omitempty"`
}
