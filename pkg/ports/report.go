package ports

import (
	"context"

	"github.com/aretw0/cider/pkg/domain"
)

// ReportSink receives the Report of every finished pass.
type ReportSink interface {
	Publish(ctx context.Context, report *domain.Report) error
}

// ReportSinkFunc adapts a function to ReportSink.
type ReportSinkFunc func(ctx context.Context, report *domain.Report) error

// Publish implements ReportSink.
func (f ReportSinkFunc) Publish(ctx context.Context, report *domain.Report) error {
	return f(ctx, report)
}
