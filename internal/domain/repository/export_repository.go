package repository

import (
	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
)

// ExportRepository writes preview artifacts to local files.
type ExportRepository interface {
	ExportMessageToJSON(message entity.NotificationMessage, filename, outputDir string) (string, error)
	ExportSummaryToCSV(summary entity.CostSummary, filename, outputDir string) (string, error)
	ExportSummaryToJSON(report entity.Report, filename, outputDir string) (string, error)
	ExportReportToPDF(report entity.Report, filename, outputDir string) (string, error)
}
