package telemetry

import "fmt"

// EncodeError reports an event that could not be rendered as a log line.
// It is fatal to the single Record call, never to the surrounding request.
type EncodeError struct {
	EventType string
	Err       error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s event: %v", e.EventType, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// SinkError reports a filesystem or database failure in one of the two
// sinks. Callers log it on the system channel and continue.
type SinkError struct {
	Sink string // "file" or "journal"
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink write failed: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
