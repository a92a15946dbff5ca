package analyzer

import (
	"context"

	"github.com/Bahjat/linkboard/internal/model"
)

// PageInsightProvider defines the contract for any analysis engine.
type PageInsightProvider interface {
	Analyze(ctx context.Context, targetURL string) (*model.Analysis, error)
}

// Recorder receives service-level metrics.
type Recorder interface {
	RecordSubmitted(n int)
	RecordStatusUpdate(status string)
}
