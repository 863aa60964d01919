package notify

import (
	"errors"
	"fmt"
)

var ErrNoEndpoint = errors.New("webhook endpoint is not configured")

type DeliveryErrorKind string

const (
	DeliveryNonSuccessStatus DeliveryErrorKind = "non_success_status"
	DeliveryNetworkFailure   DeliveryErrorKind = "network_failure"
	DeliveryTimeout          DeliveryErrorKind = "timeout"
)

// DeliveryError means the endpoint did not confirm the notification.
type DeliveryError struct {
	Kind       DeliveryErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Kind == DeliveryNonSuccessStatus {
		return fmt.Sprintf("webhook returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("webhook delivery failed (%s): %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
