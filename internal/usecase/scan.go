// Package usecase orchestrates the scan flow: image normalization, model
// classification, response reconciliation, persistence and gamification.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/wastewise/internal/gemini"
	"github.com/example/wastewise/internal/imageproc"
	"github.com/example/wastewise/internal/logging"
	"github.com/example/wastewise/internal/reconcile"
	"github.com/example/wastewise/internal/repository"
	"github.com/example/wastewise/internal/waste"
)

// ScanStore defines the persistence operations needed by the use case.
type ScanStore interface {
	SaveScan(ctx context.Context, record *repository.ScanRecord) error
	FindScanByID(ctx context.Context, scanID string) (*repository.ScanRecord, error)
	ListScansByUser(ctx context.Context, userID string, limit, offset int) ([]*repository.ScanRecord, error)
	DeleteScan(ctx context.Context, scanID string) error
	GetUserStats(ctx context.Context, userID string) (*repository.UserStats, error)
	SaveUserStats(ctx context.Context, stats *repository.UserStats) error
	Ping(ctx context.Context) error
}

// ImageNormalizer validates and normalizes uploaded photos.
type ImageNormalizer interface {
	Process(data []byte, filename string) (*imageproc.Processed, error)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	scanCacheTTL = 5 * time.Minute
)

// ScanUseCase encapsulates the business logic for the scan flow. The
// injected handles are read-only after construction and safe to share
// across concurrent requests.
type ScanUseCase struct {
	repo           ScanStore
	cache          Cache
	processor      ImageNormalizer
	classifier     gemini.Classifier
	reconciler     *reconcile.Reconciler
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewScanUseCase constructs a new use case instance.
func NewScanUseCase(repo ScanStore, cache Cache, processor ImageNormalizer, classifier gemini.Classifier, logger *zap.Logger) *ScanUseCase {
	return &ScanUseCase{
		repo:           repo,
		cache:          cache,
		processor:      processor,
		classifier:     classifier,
		reconciler:     reconcile.New(logger),
		logger:         logger.Named("scan_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Scan runs one end-to-end scan: normalize the image, classify it with the
// model, reconcile the reply, persist the record and accumulate the user's
// counters. A reply the reconciler cannot parse still succeeds with the
// fallback result; only infrastructure failures return an error.
func (uc *ScanUseCase) Scan(ctx context.Context, userID string, data []byte, filename, location string) (*waste.ScanResult, error) {
	start := time.Now()
	scanID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.scan", scanID)

	processed, err := uc.processor.Process(data, filename)
	if err != nil {
		return nil, err
	}

	rawText, err := uc.classifier.ClassifyImage(ctx, processed.Data)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.classify_image", scanID, err)
		opLogger.Error("classification failed", zap.Error(wrapped))
		return nil, wrapped
	}

	outcome := uc.reconciler.Reconcile(rawText)
	if outcome.Fallback {
		opLogger.Warn("model reply degraded to fallback result")
	}

	result := outcome.Result
	result.ScanID = scanID
	result.ImageHash = processed.Hash
	result.ProcessingTimeSeconds = math.Round(time.Since(start).Seconds()*100) / 100
	now := time.Now().UTC()
	result.Timestamp = now.Format(time.RFC3339)

	record := &repository.ScanRecord{
		ScanID:         scanID,
		UserID:         userID,
		ItemName:       result.ItemName,
		Category:       string(result.Category),
		Confidence:     result.Confidence,
		Recyclable:     result.Recyclable,
		PointsEarned:   result.PointsEarned,
		CO2SavedKg:     result.EnvironmentalImpact.CO2SavedKg,
		ImageHash:      result.ImageHash,
		Location:       location,
		ProcessingTime: result.ProcessingTimeSeconds,
		CreatedAt:      now,
	}
	if err := uc.repo.SaveScan(ctx, record); err != nil {
		wrapped := logging.NewOperationError("usecase.save_scan", scanID, err)
		opLogger.Error("failed to persist scan", zap.Error(wrapped))
		return nil, wrapped
	}

	if userID != "" {
		// Best effort: a stats failure must not undo a completed scan.
		if err := uc.accumulateStats(ctx, userID, &result, now); err != nil {
			opLogger.Error("failed to update user stats", zap.Error(err), zap.String("user_id", userID))
		}
	}

	if serialized, err := json.Marshal(result); err == nil {
		if err := uc.withRedisRetry(ctx, scanID, "cache.set.scan", func() error {
			return uc.cache.Set(ctx, scanCacheKey(scanID), string(serialized), scanCacheTTL)
		}); err != nil {
			opLogger.Warn("failed to cache scan result", zap.Error(err))
		}
	}

	opLogger.Info("scan completed",
		zap.String("item_name", result.ItemName),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("points_earned", result.PointsEarned),
		zap.Bool("fallback", outcome.Fallback))

	return &result, nil
}

// accumulateStats applies the scan's deltas to the user's counters. This is
// a non-atomic read-modify-write against the store: two concurrent scans by
// the same user can lose an increment. Kept as the source system behaves;
// closing it would need a transactional increment.
func (uc *ScanUseCase) accumulateStats(ctx context.Context, userID string, result *waste.ScanResult, now time.Time) error {
	stats, err := uc.repo.GetUserStats(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		stats = &repository.UserStats{UserID: userID, CreatedAt: now}
	default:
		return err
	}

	stats.TotalScans++
	stats.TotalPoints += int64(result.PointsEarned)
	stats.CO2SavedKg += result.EnvironmentalImpact.CO2SavedKg
	stats.LastScanAt = now
	stats.UpdatedAt = now

	return uc.repo.SaveUserStats(ctx, stats)
}

// GetScan retrieves one scan, cache first, falling back to persistence.
func (uc *ScanUseCase) GetScan(ctx context.Context, scanID string) (*waste.ScanResult, error) {
	if cached, err := uc.withRedisGet(ctx, scanID, "cache.get.scan", scanCacheKey(scanID)); err == nil {
		var result waste.ScanResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return &result, nil
		}
		logging.WithOperation(uc.logger, "usecase.get_scan", scanID).Warn("failed to decode cached scan")
	} else if !errors.Is(err, redis.Nil) {
		logging.WithOperation(uc.logger, "usecase.get_scan", scanID).Warn("failed to read cache", zap.Error(err))
	}

	record, err := uc.repo.FindScanByID(ctx, scanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
		}
		return nil, err
	}
	return scanResultFromRecord(record), nil
}

// GetHistory lists a user's prior scans newest first. The limit is silently
// capped at 100; non-positive values fall back to the default page size.
func (uc *ScanUseCase) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*repository.ScanRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.ListScansByUser(ctx, userID, limit, offset)
}

// DeleteScan removes a scan, but only when the stored record belongs to the
// requesting user.
func (uc *ScanUseCase) DeleteScan(ctx context.Context, scanID, userID string) error {
	record, err := uc.repo.FindScanByID(ctx, scanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
		}
		return err
	}
	if record.UserID != userID {
		return fmt.Errorf("scan %s is not owned by %s: %w", scanID, userID, ErrForbidden)
	}
	if err := uc.repo.DeleteScan(ctx, scanID); err != nil {
		return err
	}
	if err := uc.cache.Del(ctx, scanCacheKey(scanID)); err != nil {
		logging.WithOperation(uc.logger, "usecase.delete_scan", scanID).Warn("failed to drop cached scan", zap.Error(err))
	}
	return nil
}

// DependencyStatus is the best-effort health of one external dependency.
type DependencyStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Health reports liveness of the two external dependencies.
func (uc *ScanUseCase) Health(ctx context.Context) map[string]DependencyStatus {
	statuses := map[string]DependencyStatus{}

	if err := uc.repo.Ping(ctx); err != nil {
		statuses["database"] = DependencyStatus{Status: "down", Detail: err.Error()}
	} else {
		statuses["database"] = DependencyStatus{Status: "ok"}
	}

	if err := uc.cache.Ping(ctx); err != nil {
		statuses["cache"] = DependencyStatus{Status: "down", Detail: err.Error()}
	} else {
		statuses["cache"] = DependencyStatus{Status: "ok"}
	}

	if uc.classifier != nil {
		statuses["classifier"] = DependencyStatus{Status: "configured"}
	} else {
		statuses["classifier"] = DependencyStatus{Status: "not_configured"}
	}

	return statuses
}

func scanCacheKey(scanID string) string {
	return fmt.Sprintf("scan:%s", scanID)
}

func scanResultFromRecord(record *repository.ScanRecord) *waste.ScanResult {
	category, _ := waste.ParseCategory(record.Category)
	return &waste.ScanResult{
		ScanID:     record.ScanID,
		ItemName:   record.ItemName,
		Category:   category,
		Confidence: record.Confidence,
		Recyclable: record.Recyclable,
		EnvironmentalImpact: waste.EnvironmentalImpact{
			CO2SavedKg: record.CO2SavedKg,
		},
		PointsEarned:          record.PointsEarned,
		ProcessingTimeSeconds: record.ProcessingTime,
		Timestamp:             record.CreatedAt.UTC().Format(time.RFC3339),
		ImageHash:             record.ImageHash,
	}
}

func (uc *ScanUseCase) withRedisRetry(ctx context.Context, scanID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, scanID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, scanID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, scanID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		// A cache miss is a normal outcome, not a failure to log or retry.
		if errors.Is(err, redis.Nil) {
			return logging.NewOperationError(operation, scanID, err)
		}

		if !logging.IsTransient(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, scanID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, scanID, err)
}

func (uc *ScanUseCase) withRedisGet(ctx context.Context, scanID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, scanID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
