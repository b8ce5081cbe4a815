package enums

import "fmt"

// ReportFormat is the file type of a downloaded sales report.
type ReportFormat string

const (
	ReportFormatPDF   ReportFormat = "pdf"
	ReportFormatExcel ReportFormat = "excel"
)

var validReportFormats = []ReportFormat{
	ReportFormatPDF,
	ReportFormatExcel,
}

// String implements fmt.Stringer.
func (r ReportFormat) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReportFormat.
func (r ReportFormat) IsValid() bool {
	for _, candidate := range validReportFormats {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReportFormat converts raw input into a ReportFormat.
func ParseReportFormat(value string) (ReportFormat, error) {
	for _, candidate := range validReportFormats {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report format %q", value)
}
