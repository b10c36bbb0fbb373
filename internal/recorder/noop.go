package recorder

// NoopRecorder discards all events. Used when no database is configured.
type NoopRecorder struct{}

// NewNoopRecorder creates a recorder that does nothing.
func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordFetch(*FetchEvent) error { return nil }
func (n *NoopRecorder) RecordQuery(*QueryEvent) error { return nil }
func (n *NoopRecorder) Close() error                  { return nil }
