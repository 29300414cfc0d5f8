package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
)

const topIncidentLimit = 10

// IncidentReportGenerator aggregates lifecycle state into an operator-facing
// incident summary for a reporting period.
type IncidentReportGenerator struct {
	store ports.LifecycleStore
}

func NewIncidentReportGenerator(store ports.LifecycleStore) *IncidentReportGenerator {
	return &IncidentReportGenerator{store: store}
}

// Generate builds the summary for the window [since, now]. Incidents are
// ranked by peak risk; recommendations cover every category observed in the
// window, prioritized by the worst incident of that category.
func (g *IncidentReportGenerator) Generate(ctx context.Context, since time.Time, generatedBy string) (*domain.IncidentSummary, error) {
	now := time.Now().UTC()

	stats, err := g.store.AnomalyStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}

	anomalies, _, err := g.store.ListAnomalies(ctx, domain.AnomalyFilter{
		SeenAfter: since,
		Page:      1,
		PageSize:  500,
	})
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}

	_, activeAlerts, err := g.store.ListAlerts(ctx, domain.AlertFilter{
		Status:   domain.AlertActive,
		Page:     1,
		PageSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("count active alerts: %w", err)
	}

	sort.Slice(anomalies, func(i, j int) bool {
		return anomalies[i].PeakRisk > anomalies[j].PeakRisk
	})

	summary := &domain.IncidentSummary{
		Metadata: domain.ReportMetadata{
			ID:          uuid.New().String(),
			Title:       "Incident Summary Report",
			GeneratedAt: now,
			GeneratedBy: generatedBy,
			PeriodStart: since,
			PeriodEnd:   now,
		},
		Stats:        stats,
		ActiveAlerts: activeAlerts,
	}

	// worstPerCategory drives the recommendation priority.
	worstPerCategory := make(map[domain.Category]float64)
	for i, rec := range anomalies {
		if rec.PeakRisk > worstPerCategory[rec.Category] {
			worstPerCategory[rec.Category] = rec.PeakRisk
		}
		if i < topIncidentLimit {
			summary.TopIncidents = append(summary.TopIncidents, domain.TopIncident{
				Rank:        i + 1,
				Category:    rec.Category,
				Severity:    rec.Severity,
				Source:      rec.Source,
				Destination: rec.Destination,
				PeakRisk:    rec.PeakRisk,
				Occurrences: rec.Occurrences,
				Status:      rec.Status,
			})
		}
	}

	for category, risk := range worstPerCategory {
		if category == domain.CategoryNormal {
			continue
		}
		summary.Recommendations = append(summary.Recommendations, domain.IncidentRecommendation{
			Category: category,
			Priority: domain.SeverityForRisk(risk),
			Actions:  domain.RecommendedActions(category, risk),
		})
	}
	sort.Slice(summary.Recommendations, func(i, j int) bool {
		a, b := summary.Recommendations[i], summary.Recommendations[j]
		if a.Priority != b.Priority {
			return a.Priority.AtLeast(b.Priority)
		}
		return a.Category < b.Category
	})

	return summary, nil
}
