package messaging

import "errors"

var (
	// ErrBrokerUnavailable is returned when a single connection attempt fails.
	ErrBrokerUnavailable = errors.New("message broker unavailable")
	// ErrBrokerUnreachable is returned once every bounded retry attempt has failed.
	ErrBrokerUnreachable = errors.New("message broker unreachable")
	// ErrConsumerCancelled is returned when the broker closes the deliveries channel.
	ErrConsumerCancelled = errors.New("consumer cancelled by broker")

	ErrInvalidQueueName = errors.New("queue name cannot be empty")
	ErrNilHandler       = errors.New("handler cannot be nil")
)
