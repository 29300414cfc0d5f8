package reporting

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/netwarden/netwarden/internal/core/domain"
)

// PDFExporter renders incident summaries to PDF.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportIncidentSummary generates a PDF from an incident summary report.
func (e *PDFExporter) ExportIncidentSummary(report *domain.IncidentSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addStats(pdf, report)
	e.addTopIncidents(pdf, report)
	e.addRecommendations(pdf, report)
	e.addFooter(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *domain.IncidentSummary) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, report.Metadata.Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", report.Metadata.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Period: %s to %s",
		report.Metadata.PeriodStart.Format("2006-01-02 15:04"),
		report.Metadata.PeriodEnd.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func (e *PDFExporter) addStats(pdf *gofpdf.Fpdf, report *domain.IncidentSummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Detection Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	stats := []struct {
		label string
		value string
		color []int
	}{
		{"Total Anomalies", fmt.Sprintf("%d", report.Stats.Total), []int{0, 102, 204}},
		{"Unresolved", fmt.Sprintf("%d", report.Stats.Unresolved), []int{0, 102, 204}},
		{"Critical", fmt.Sprintf("%d", report.Stats.Critical), []int{220, 53, 69}},
		{"High", fmt.Sprintf("%d", report.Stats.High), []int{255, 149, 0}},
		{"Last 24 Hours", fmt.Sprintf("%d", report.Stats.Last24h), []int{0, 102, 204}},
		{"Active Alerts", fmt.Sprintf("%d", report.ActiveAlerts), []int{220, 53, 69}},
	}

	colWidth := 85.0
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(colWidth-50, 7, stat.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(10)
}

func (e *PDFExporter) addTopIncidents(pdf *gofpdf.Fpdf, report *domain.IncidentSummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Top Incidents", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(report.TopIncidents) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No incidents recorded in this period", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(12, 8, "Rank", "1", 0, "C", true, 0, "")
	pdf.CellFormat(42, 8, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(22, 8, "Severity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(36, 8, "Source", "1", 0, "L", true, 0, "")
	pdf.CellFormat(36, 8, "Destination", "1", 0, "L", true, 0, "")
	pdf.CellFormat(18, 8, "Risk", "1", 0, "C", true, 0, "")
	pdf.CellFormat(14, 8, "Seen", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, inc := range report.TopIncidents {
		r, g, b := e.severityColor(inc.Severity)

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(12, 7, fmt.Sprintf("%d", inc.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(42, 7, string(inc.Category), "1", 0, "L", false, 0, "")

		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(22, 7, string(inc.Severity), "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(36, 7, inc.Source, "1", 0, "L", false, 0, "")
		pdf.CellFormat(36, 7, inc.Destination, "1", 0, "L", false, 0, "")
		pdf.CellFormat(18, 7, fmt.Sprintf("%.2f", inc.PeakRisk), "1", 0, "C", false, 0, "")
		pdf.CellFormat(14, 7, fmt.Sprintf("%dx", inc.Occurrences), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

func (e *PDFExporter) severityColor(severity domain.Severity) (r, g, b int) {
	switch severity {
	case domain.SeverityCritical:
		return 220, 53, 69
	case domain.SeverityHigh:
		return 255, 149, 0
	case domain.SeverityMedium:
		return 255, 204, 0
	default:
		return 52, 199, 89
	}
}

func (e *PDFExporter) addRecommendations(pdf *gofpdf.Fpdf, report *domain.IncidentSummary) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Recommended Actions", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for i, rec := range report.Recommendations {
		if i >= 5 {
			break
		}
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		r, g, b := e.severityColor(rec.Priority)
		pdf.SetFillColor(r, g, b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(25, 6, string(rec.Priority), "", 0, "C", true, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 51, 102)
		pdf.CellFormat(0, 6, "  "+string(rec.Category), "", 1, "L", false, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(60, 60, 60)
		for _, action := range rec.Actions {
			if len(action) > 100 {
				action = action[:97] + "..."
			}
			pdf.CellFormat(5, 5, "", "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 5, "- "+action, "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *domain.IncidentSummary) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	footerText := fmt.Sprintf("Generated by %s | Report ID: %s",
		report.Metadata.GeneratedBy,
		report.Metadata.ID[:8])
	pdf.CellFormat(0, 5, footerText, "", 1, "C", false, 0, "")
}
