package recorder

import "context"

// NoopRecorder is used when database.backend is "none".
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSetup(context.Context, SetupRecord) error { return nil }
func (n *NoopRecorder) RecordCycle(context.Context, CycleEvent) error  { return nil }
func (n *NoopRecorder) Close() error                                   { return nil }
