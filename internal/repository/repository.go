// Package repository persists scans and per-user aggregate counters in
// Postgres.
package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/wastewise/internal/logging"
)

// ScanRecord is a persisted scan, keyed by the generated scan id.
type ScanRecord struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	ScanID         string    `gorm:"column:scan_id;uniqueIndex;size:64" json:"scan_id"`
	UserID         string    `gorm:"column:user_id;index;size:64" json:"user_id"`
	ItemName       string    `gorm:"column:item_name;size:255" json:"item_name"`
	Category       string    `gorm:"column:category;size:64" json:"category"`
	Confidence     float64   `gorm:"column:confidence" json:"confidence"`
	Recyclable     bool      `gorm:"column:recyclable" json:"recyclable"`
	PointsEarned   int       `gorm:"column:points_earned" json:"points_earned"`
	CO2SavedKg     float64   `gorm:"column:co2_saved_kg" json:"co2_saved_kg"`
	ImageHash      string    `gorm:"column:image_hash;size:64" json:"image_hash,omitempty"`
	Location       string    `gorm:"column:location;type:text" json:"location,omitempty"`
	ProcessingTime float64   `gorm:"column:processing_time" json:"processing_time_seconds"`
	CreatedAt      time.Time `gorm:"column:created_at;index" json:"timestamp"`
}

// TableName overrides the default table name.
func (ScanRecord) TableName() string {
	return "scan_records"
}

// UserStats holds the aggregate counters for one user. Accumulation is a
// read-modify-write; concurrent scans for the same user can lose an
// increment (see the use case).
type UserStats struct {
	UserID      string    `gorm:"column:user_id;primaryKey;size:64" json:"user_id"`
	TotalScans  int64     `gorm:"column:total_scans" json:"total_scans"`
	TotalPoints int64     `gorm:"column:total_points" json:"total_points"`
	CO2SavedKg  float64   `gorm:"column:co2_saved_kg" json:"co2_saved_kg"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	LastScanAt  time.Time `gorm:"column:last_scan_at" json:"last_scan_timestamp"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the default table name.
func (UserStats) TableName() string {
	return "user_stats"
}

// ScanRepository provides persistence APIs for scans and user stats.
type ScanRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewScanRepository creates a repository over the given gorm handle.
func NewScanRepository(db *gorm.DB, logger *zap.Logger) *ScanRepository {
	return &ScanRepository{
		db:             db,
		logger:         logger.Named("scan_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *ScanRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ScanRecord{}, &UserStats{})
}

// SaveScan persists a scan record.
func (r *ScanRepository) SaveScan(ctx context.Context, record *ScanRecord) error {
	return r.executeWithRetry(ctx, "repository.save_scan", record.ScanID, func() error {
		return r.db.WithContext(ctx).Create(record).Error
	})
}

// FindScanByID retrieves one scan by its scan id.
func (r *ScanRepository) FindScanByID(ctx context.Context, scanID string) (*ScanRecord, error) {
	var record ScanRecord
	err := r.executeWithRetry(ctx, "repository.find_scan", scanID, func() error {
		return r.db.WithContext(ctx).First(&record, "scan_id = ?", scanID).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListScansByUser returns a user's scans newest first.
func (r *ScanRepository) ListScansByUser(ctx context.Context, userID string, limit, offset int) ([]*ScanRecord, error) {
	var records []*ScanRecord
	err := r.executeWithRetry(ctx, "repository.list_scans", "", func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Offset(offset).
			Find(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteScan removes a scan record by scan id.
func (r *ScanRepository) DeleteScan(ctx context.Context, scanID string) error {
	return r.executeWithRetry(ctx, "repository.delete_scan", scanID, func() error {
		return r.db.WithContext(ctx).Delete(&ScanRecord{}, "scan_id = ?", scanID).Error
	})
}

// GetUserStats loads the aggregate counters for a user.
func (r *ScanRepository) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	var stats UserStats
	err := r.executeWithRetry(ctx, "repository.get_user_stats", "", func() error {
		return r.db.WithContext(ctx).First(&stats, "user_id = ?", userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// SaveUserStats writes the aggregate counters back, inserting on first scan.
func (r *ScanRepository) SaveUserStats(ctx context.Context, stats *UserStats) error {
	return r.executeWithRetry(ctx, "repository.save_user_stats", "", func() error {
		return r.db.WithContext(ctx).Save(stats).Error
	})
}

// Ping reports database liveness.
func (r *ScanRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// executeWithRetry runs fn, retrying transient failures with exponential
// backoff. The final error is wrapped with operation context.
func (r *ScanRepository) executeWithRetry(ctx context.Context, operation, scanID string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, scanID, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, scanID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, scanID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		// A missing record is a normal outcome, not a failure to log or retry.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return logging.NewOperationError(operation, scanID, err)
		}

		if !logging.IsTransient(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, scanID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, scanID, err)
}
