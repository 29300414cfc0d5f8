package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/netwarden/netwarden/internal/core/domain"
	"github.com/netwarden/netwarden/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SQLiteStore implements ports.LifecycleStore using GORM and SQLite.
// It is the single authoritative owner of anomaly and alert state.
type SQLiteStore struct {
	db *gorm.DB
}

// AnomalyModel is the GORM model for anomaly records.
type AnomalyModel struct {
	ID              string `gorm:"primaryKey"`
	Category        string `gorm:"index:idx_anomalies_key"`
	Severity        string `gorm:"index"`
	Source          string `gorm:"index:idx_anomalies_key"`
	Destination     string `gorm:"index:idx_anomalies_key"`
	PeakRisk        float64
	FirstSeen       time.Time
	LastSeen        time.Time `gorm:"index"`
	Occurrences     int
	Status          string `gorm:"index"`
	ResolutionNotes string
	ResolvedAt      *time.Time
}

// AlertModel is the GORM model for alert records.
type AlertModel struct {
	ID             string `gorm:"primaryKey"`
	AnomalyID      string `gorm:"index"`
	Severity       string `gorm:"index"`
	Message        string
	Status         string `gorm:"index"`
	CreatedAt      time.Time `gorm:"index"`
	AcknowledgedBy string
	AcknowledgedAt *time.Time
}

// ModelInfoModel persists registry metadata for operator visibility.
type ModelInfoModel struct {
	Version   string `gorm:"primaryKey"`
	Kind      string
	TrainedAt time.Time
	Accuracy  float64
	Precision float64
	Recall    float64
	Active    bool
}

// NewSQLiteStore opens the database, installs the tracing plugin and
// migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		log.Printf("Warning: could not install gorm tracing plugin: %v", err)
	}

	if err := db.AutoMigrate(&AnomalyModel{}, &AlertModel{}, &ModelInfoModel{}, &domain.AuditLog{}); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// FindOpenAnomaly returns the open record for a dedup key, or nil when none
// exists. With a non-zero notBefore, stale open records outside the rolling
// window are ignored (they will be superseded by a fresh record).
func (s *SQLiteStore) FindOpenAnomaly(ctx context.Context, key domain.DedupKey, notBefore time.Time) (*domain.AnomalyRecord, error) {
	query := s.db.WithContext(ctx).
		Where("source = ? AND destination = ? AND category = ?", key.Source, key.Destination, key.Category).
		Where("status NOT IN ?", []string{string(domain.StatusResolved), string(domain.StatusFalsePositive)})
	if !notBefore.IsZero() {
		query = query.Where("last_seen >= ?", notBefore)
	}

	var model AnomalyModel
	err := query.Order("first_seen DESC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return anomalyToDomain(model), nil
}

func (s *SQLiteStore) CreateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error {
	return s.db.WithContext(ctx).Create(anomalyToModel(rec)).Error
}

func (s *SQLiteStore) UpdateAnomaly(ctx context.Context, rec *domain.AnomalyRecord) error {
	return s.db.WithContext(ctx).Save(anomalyToModel(rec)).Error
}

func (s *SQLiteStore) GetAnomaly(ctx context.Context, id string) (*domain.AnomalyRecord, error) {
	var model AnomalyModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAnomalyNotFound
	}
	if err != nil {
		return nil, err
	}
	return anomalyToDomain(model), nil
}

// ListAnomalies applies the filter and returns one page plus the total count.
func (s *SQLiteStore) ListAnomalies(ctx context.Context, f domain.AnomalyFilter) ([]domain.AnomalyRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&AnomalyModel{})

	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Source != "" {
		query = query.Where("source = ?", f.Source)
	}
	if !f.SeenAfter.IsZero() {
		query = query.Where("last_seen >= ?", f.SeenAfter)
	}
	if !f.SeenBefore.IsZero() {
		query = query.Where("last_seen <= ?", f.SeenBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []AnomalyModel
	if err := paginate(query, f.Page, f.PageSize).Order("last_seen DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	records := make([]domain.AnomalyRecord, len(models))
	for i, m := range models {
		records[i] = *anomalyToDomain(m)
	}
	return records, total, nil
}

// TransitionAnomaly applies an operator-driven status change inside a
// transaction. An illegal edge fails with ErrInvalidTransition and leaves
// the row untouched.
func (s *SQLiteStore) TransitionAnomaly(ctx context.Context, id string, to domain.AnomalyStatus, notes string) (*domain.AnomalyRecord, error) {
	var rec *domain.AnomalyRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model AnomalyModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAnomalyNotFound
			}
			return err
		}

		rec = anomalyToDomain(model)
		if err := rec.Transition(to, notes, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Save(anomalyToModel(rec)).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AnomalyStats mirrors the operator dashboard summary.
func (s *SQLiteStore) AnomalyStats(ctx context.Context) (domain.AnomalyStats, error) {
	stats := domain.AnomalyStats{ByCategory: make(map[string]int64)}
	db := s.db.WithContext(ctx).Model(&AnomalyModel{})

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	openStatuses := []string{string(domain.StatusNew), string(domain.StatusInvestigating)}
	if err := db.Session(&gorm.Session{}).Where("status IN ?", openStatuses).Count(&stats.Unresolved).Error; err != nil {
		return stats, err
	}
	if err := db.Session(&gorm.Session{}).Where("status IN ? AND severity = ?", openStatuses, domain.SeverityCritical).Count(&stats.Critical).Error; err != nil {
		return stats, err
	}
	if err := db.Session(&gorm.Session{}).Where("status IN ? AND severity = ?", openStatuses, domain.SeverityHigh).Count(&stats.High).Error; err != nil {
		return stats, err
	}
	if err := db.Session(&gorm.Session{}).Where("first_seen >= ?", time.Now().Add(-24*time.Hour)).Count(&stats.Last24h).Error; err != nil {
		return stats, err
	}

	type catCount struct {
		Category string
		Count    int64
	}
	var counts []catCount
	if err := db.Session(&gorm.Session{}).Select("category, count(*) as count").Group("category").Scan(&counts).Error; err != nil {
		return stats, err
	}
	for _, c := range counts {
		stats.ByCategory[c.Category] = c.Count
	}
	return stats, nil
}

// CreateAlertIfNoneOpen creates the alert unless an unacknowledged alert for
// the anomaly already exists. Check and insert run in one transaction so
// concurrent dispatches for the same anomaly cannot both create.
func (s *SQLiteStore) CreateAlertIfNoneOpen(ctx context.Context, alert *domain.AlertRecord) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AlertModel{}).
			Where("anomaly_id = ? AND status = ?", alert.AnomalyID, domain.AlertActive).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(alertToModel(alert)).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*domain.AlertRecord, error) {
	var model AlertModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	return alertToDomain(model), nil
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.AlertRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&AlertModel{})

	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.AnomalyID != "" {
		query = query.Where("anomaly_id = ?", f.AnomalyID)
	}
	if !f.CreatedAfter.IsZero() {
		query = query.Where("created_at >= ?", f.CreatedAfter)
	}
	if !f.CreatedBefore.IsZero() {
		query = query.Where("created_at <= ?", f.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []AlertModel
	if err := paginate(query, f.Page, f.PageSize).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	alerts := make([]domain.AlertRecord, len(models))
	for i, m := range models {
		alerts[i] = *alertToDomain(m)
	}
	return alerts, total, nil
}

// AcknowledgeAlert marks an alert handled, transactionally and monotonically.
func (s *SQLiteStore) AcknowledgeAlert(ctx context.Context, id, by string) (*domain.AlertRecord, error) {
	var alert *domain.AlertRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model AlertModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAlertNotFound
			}
			return err
		}

		alert = alertToDomain(model)
		if err := alert.Acknowledge(by, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Save(alertToModel(alert)).Error
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *SQLiteStore) SaveModelInfo(ctx context.Context, info domain.ModelInfo) error {
	return s.db.WithContext(ctx).Save(&ModelInfoModel{
		Version:   info.Version,
		Kind:      string(info.Kind),
		TrainedAt: info.TrainedAt,
		Accuracy:  info.Metrics.Accuracy,
		Precision: info.Metrics.Precision,
		Recall:    info.Metrics.Recall,
		Active:    info.Active,
	}).Error
}

func (s *SQLiteStore) ListModelInfo(ctx context.Context) ([]domain.ModelInfo, error) {
	var models []ModelInfoModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	infos := make([]domain.ModelInfo, len(models))
	for i, m := range models {
		infos[i] = domain.ModelInfo{
			Version:   m.Version,
			Kind:      domain.ModelKind(m.Kind),
			TrainedAt: m.TrainedAt,
			Metrics:   domain.ModelMetrics{Accuracy: m.Accuracy, Precision: m.Precision, Recall: m.Recall},
			Active:    m.Active,
		}
	}
	return infos, nil
}

// SaveAuditLog and ListAuditLogs satisfy ports.AuditRepository.
func (s *SQLiteStore) SaveAuditLog(ctx context.Context, entry domain.AuditLog) error {
	return s.db.WithContext(ctx).Create(&entry).Error
}

func (s *SQLiteStore) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var logs []domain.AuditLog
	if err := s.db.WithContext(ctx).Order("timestamp desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

// Ensure interface compliance
var (
	_ ports.LifecycleStore  = (*SQLiteStore)(nil)
	_ ports.AuditRepository = (*SQLiteStore)(nil)
)
