package sheets

import (
	"context"

	"fondi/internal/services"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a rendered month report to an external sheet.
	ReportWriter interface {
		// WriteMonthReport writes the report and returns a reference to the
		// written range.
		WriteMonthReport(ctx context.Context, report services.MonthReport) (rangeRef string, err error)
	}
)
