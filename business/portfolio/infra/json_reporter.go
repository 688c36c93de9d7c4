package infra

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/fd1az/lendscope/business/portfolio/app"
	"github.com/fd1az/lendscope/business/portfolio/domain"
)

// Ensure JSONReporter implements Reporter.
var _ app.Reporter = (*JSONReporter)(nil)

// JSONReporter writes each report as indented JSON.
type JSONReporter struct {
	out io.Writer
}

// NewJSONReporter creates a JSONReporter writing to out, or stdout when out
// is nil.
func NewJSONReporter(out io.Writer) *JSONReporter {
	if out == nil {
		out = os.Stdout
	}
	return &JSONReporter{out: out}
}

// Report encodes report.
func (r *JSONReporter) Report(ctx context.Context, report *domain.Report) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
