package domain

import "time"

// ReportMetadata identifies one generated incident report.
type ReportMetadata struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	GeneratedBy string    `json:"generated_by"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// TopIncident is one ranked entry in the incident summary.
type TopIncident struct {
	Rank        int           `json:"rank"`
	Category    Category      `json:"category"`
	Severity    Severity      `json:"severity"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	PeakRisk    float64       `json:"peak_risk"`
	Occurrences int           `json:"occurrences"`
	Status      AnomalyStatus `json:"status"`
}

// IncidentRecommendation is the per-category response guidance included in
// the report.
type IncidentRecommendation struct {
	Category Category `json:"category"`
	Priority Severity `json:"priority"`
	Actions  []string `json:"actions"`
}

// IncidentSummary is the operator-facing report over a reporting period.
type IncidentSummary struct {
	Metadata        ReportMetadata           `json:"metadata"`
	Stats           AnomalyStats             `json:"stats"`
	ActiveAlerts    int64                    `json:"active_alerts"`
	TopIncidents    []TopIncident            `json:"top_incidents"`
	Recommendations []IncidentRecommendation `json:"recommendations"`
}
