package publisher

// Publisher represents a service for publishing delivered ads to a stream
// so other consumers (archivers, other bots) can observe what was sent.
type Publisher interface {
	// Publish appends one message to the stream under the given field key
	Publish(key string, message []byte) error

	// TrimStream trims the stream to the configured maximum length
	TrimStream() error

	// Close closes the publisher connection
	Close() error
}
