package infra

import (
	"encoding/json"
	"net/http"

	"github.com/fd1az/lendscope/business/portfolio/domain"
)

// LastReporter exposes the latest finished report.
type LastReporter interface {
	LastReport() *domain.Report
}

// ReportHandler serves the latest report as JSON, or 503 before the first
// successful pass.
func ReportHandler(src LastReporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := src.LastReport()
		w.Header().Set("Content-Type", "application/json")
		if report == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "no report yet"})
			return
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}
