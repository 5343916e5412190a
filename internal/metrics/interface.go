package metrics

import (
	"context"
	"time"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, snapshot *DetectionSnapshot) error
	Close() error
}

// Repository defines the interface for detection data storage
type Repository interface {
	Record(snapshot *DetectionSnapshot) error
	Close() error
}

// DetectionSnapshot is one terminal font watch outcome
type DetectionSnapshot struct {
	Timestamp  time.Time
	Family     string
	Variation  string
	Status     string
	DurationMs int64
	Polls      int
	TimeoutMs  int64
	IntervalMs int64
	WebkitBug  bool
	TestString string
}
