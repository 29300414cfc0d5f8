package storage

import (
	"github.com/netwarden/netwarden/internal/core/domain"
)

func anomalyToModel(rec *domain.AnomalyRecord) *AnomalyModel {
	return &AnomalyModel{
		ID:              rec.ID,
		Category:        string(rec.Category),
		Severity:        string(rec.Severity),
		Source:          rec.Source,
		Destination:     rec.Destination,
		PeakRisk:        rec.PeakRisk,
		FirstSeen:       rec.FirstSeen,
		LastSeen:        rec.LastSeen,
		Occurrences:     rec.Occurrences,
		Status:          string(rec.Status),
		ResolutionNotes: rec.ResolutionNotes,
		ResolvedAt:      rec.ResolvedAt,
	}
}

func anomalyToDomain(m AnomalyModel) *domain.AnomalyRecord {
	return &domain.AnomalyRecord{
		ID:              m.ID,
		Category:        domain.Category(m.Category),
		Severity:        domain.Severity(m.Severity),
		Source:          m.Source,
		Destination:     m.Destination,
		PeakRisk:        m.PeakRisk,
		FirstSeen:       m.FirstSeen,
		LastSeen:        m.LastSeen,
		Occurrences:     m.Occurrences,
		Status:          domain.AnomalyStatus(m.Status),
		ResolutionNotes: m.ResolutionNotes,
		ResolvedAt:      m.ResolvedAt,
	}
}

func alertToModel(alert *domain.AlertRecord) *AlertModel {
	return &AlertModel{
		ID:             alert.ID,
		AnomalyID:      alert.AnomalyID,
		Severity:       string(alert.Severity),
		Message:        alert.Message,
		Status:         string(alert.Status),
		CreatedAt:      alert.CreatedAt,
		AcknowledgedBy: alert.AcknowledgedBy,
		AcknowledgedAt: alert.AcknowledgedAt,
	}
}

func alertToDomain(m AlertModel) *domain.AlertRecord {
	return &domain.AlertRecord{
		ID:             m.ID,
		AnomalyID:      m.AnomalyID,
		Severity:       domain.Severity(m.Severity),
		Message:        m.Message,
		Status:         domain.AlertStatus(m.Status),
		CreatedAt:      m.CreatedAt,
		AcknowledgedBy: m.AcknowledgedBy,
		AcknowledgedAt: m.AcknowledgedAt,
	}
}
