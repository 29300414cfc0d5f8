package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lifecycle errors.
var (
	ErrInvalidTransition = errors.New("invalid anomaly status transition")
	ErrAnomalyNotFound   = errors.New("anomaly record not found")
)

// AnomalyStatus is the lifecycle state of an anomaly record.
type AnomalyStatus string

const (
	StatusNew           AnomalyStatus = "new"
	StatusInvestigating AnomalyStatus = "investigating"
	StatusResolved      AnomalyStatus = "resolved"
	StatusFalsePositive AnomalyStatus = "false_positive"
)

// Severity is a fixed band derived from the peak risk score.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severity band boundaries. The bands are exact: 0.85 is critical, 0.84999 is high.
const (
	riskCritical = 0.85
	riskHigh     = 0.6
	riskMedium   = 0.3
)

// SeverityForRisk maps a risk score to its severity band.
func SeverityForRisk(risk float64) Severity {
	switch {
	case risk >= riskCritical:
		return SeverityCritical
	case risk >= riskHigh:
		return SeverityHigh
	case risk >= riskMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// severityRank orders bands for floor comparisons.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at or above the given floor.
func (s Severity) AtLeast(floor Severity) bool {
	return severityRank[s] >= severityRank[floor]
}

// DedupKey merges repeated detections into one anomaly.
type DedupKey struct {
	Source      string
	Destination string
	Category    Category
}

func (k DedupKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Source, k.Destination, k.Category)
}

// AnomalyRecord is the unit of detected threat. It is owned by the lifecycle
// store; severity is always recomputed from PeakRisk, never edited directly.
type AnomalyRecord struct {
	ID              string        `json:"id"`
	Category        Category      `json:"category"`
	Severity        Severity      `json:"severity"`
	Source          string        `json:"source"`
	Destination     string        `json:"destination"`
	PeakRisk        float64       `json:"peak_risk"`
	FirstSeen       time.Time     `json:"first_seen"`
	LastSeen        time.Time     `json:"last_seen"`
	Occurrences     int           `json:"occurrences"`
	Status          AnomalyStatus `json:"status"`
	ResolutionNotes string        `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
}

// NewAnomalyRecord opens a record for a first detection, at status "new".
func NewAnomalyRecord(key DedupKey, risk float64, ts time.Time) *AnomalyRecord {
	return &AnomalyRecord{
		ID:          uuid.New().String(),
		Category:    key.Category,
		Severity:    SeverityForRisk(risk),
		Source:      key.Source,
		Destination: key.Destination,
		PeakRisk:    risk,
		FirstSeen:   ts,
		LastSeen:    ts,
		Occurrences: 1,
		Status:      StatusNew,
	}
}

// Key returns the dedup key the record was opened under.
func (a *AnomalyRecord) Key() DedupKey {
	return DedupKey{Source: a.Source, Destination: a.Destination, Category: a.Category}
}

// Open reports whether the record can still absorb detections.
func (a *AnomalyRecord) Open() bool {
	return a.Status != StatusResolved && a.Status != StatusFalsePositive
}

// Absorb folds a repeated detection into the open record. Severity tracks the
// maximum observed risk and never decreases within one open record.
func (a *AnomalyRecord) Absorb(risk float64, ts time.Time) {
	a.Occurrences++
	if ts.After(a.LastSeen) {
		a.LastSeen = ts
	}
	if risk > a.PeakRisk {
		a.PeakRisk = risk
		a.Severity = SeverityForRisk(a.PeakRisk)
	}
}

// legalTransitions is the full status graph. Closed states have no exits;
// a re-matching detection opens a fresh record instead.
var legalTransitions = map[AnomalyStatus][]AnomalyStatus{
	StatusNew:           {StatusInvestigating},
	StatusInvestigating: {StatusResolved, StatusFalsePositive},
}

// CanTransition reports whether the edge from → to is legal.
func CanTransition(from, to AnomalyStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies an operator-driven status change, leaving the record
// unchanged on an illegal edge.
func (a *AnomalyRecord) Transition(to AnomalyStatus, notes string, at time.Time) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	if to == StatusResolved || to == StatusFalsePositive {
		a.ResolutionNotes = notes
		a.ResolvedAt = &at
	}
	return nil
}

// AnomalyFilter selects records on the lifecycle query boundary.
type AnomalyFilter struct {
	Severity   Severity
	Status     AnomalyStatus
	Category   Category
	Source     string
	SeenAfter  time.Time
	SeenBefore time.Time
	Page       int
	PageSize   int
}

// AnomalyStats is the operator-facing summary of the anomaly population.
type AnomalyStats struct {
	Total      int64            `json:"total"`
	Unresolved int64            `json:"unresolved"`
	Critical   int64            `json:"critical"`
	High       int64            `json:"high"`
	Last24h    int64            `json:"last_24h"`
	ByCategory map[string]int64 `json:"by_category"`
}
