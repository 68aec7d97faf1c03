package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/infrastructure/resilience"
)

const publishOperation = "nats.publish.file_uploaded"

// classifyPublishError decides how an upload-event publish failure is
// retried. Connection trouble is transient and counts against the breaker.
// A bad subject or an oversized event will fail the same way on every
// attempt and says nothing about the broker's health.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case domain.IsKind(err, domain.ErrInvalidInput),
		errors.Is(err, nats.ErrBadSubject),
		errors.Is(err, nats.ErrMaxPayload),
		errors.Is(err, nats.ErrInvalidMsg):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case resilience.IsCircuitOpen(err),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionDraining),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

// publishError names the file whose event was lost and marks broker
// outages as temporary so the API answers 503 instead of 500.
func publishError(fileID string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}
	err = fmt.Errorf("file %s: %w", fileID, err)
	if classifyPublishError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, "publish file uploaded", err)
	}
	return err
}
