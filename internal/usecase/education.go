package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/wastewise/internal/logging"
	"github.com/example/wastewise/internal/reconcile"
	"github.com/example/wastewise/internal/waste"
)

const educationCacheTTL = time.Hour

// EducationalContent is the static guide for a category merged with
// AI-generated supplementary facts. The facts are best effort; when the
// model is unavailable the guide fields are served alone.
type EducationalContent struct {
	Category          waste.Category `json:"category"`
	BinColor          string         `json:"bin_color"`
	Instructions      []string       `json:"instructions"`
	Examples          []string       `json:"examples"`
	CO2SavedPerKg     float64        `json:"co2_saved_per_kg"`
	DecompositionTime string         `json:"decomposition_time"`
	Facts             []string       `json:"facts,omitempty"`
	GlobalImpact      string         `json:"global_impact,omitempty"`
	DidYouKnow        string         `json:"did_you_know,omitempty"`
}

type educationFacts struct {
	Facts        []string `json:"facts"`
	GlobalImpact string   `json:"global_impact"`
	DidYouKnow   string   `json:"did_you_know"`
}

// EducationalContent returns the disposal guide for a category enriched
// with model-generated facts. An unknown category is ErrNotFound.
func (uc *ScanUseCase) EducationalContent(ctx context.Context, rawCategory string) (*EducationalContent, error) {
	category, known := waste.ParseCategory(rawCategory)
	if !known {
		return nil, fmt.Errorf("category %q: %w", rawCategory, ErrNotFound)
	}
	guide, ok := waste.GuideFor(category)
	if !ok {
		// Unknown is a member of the set but has no guide entry.
		return nil, fmt.Errorf("category %q: %w", rawCategory, ErrNotFound)
	}

	content := &EducationalContent{
		Category:          category,
		BinColor:          guide.BinColor,
		Instructions:      guide.Instructions,
		Examples:          guide.Examples,
		CO2SavedPerKg:     guide.CO2SavedPerKg,
		DecompositionTime: guide.DecompositionTime,
	}

	facts, err := uc.lookupFacts(ctx, category)
	if err != nil {
		logging.WithOperation(uc.logger, "usecase.education", "").Warn("serving guide without model facts",
			zap.String("category", string(category)), zap.Error(err))
		return content, nil
	}
	content.Facts = facts.Facts
	content.GlobalImpact = facts.GlobalImpact
	content.DidYouKnow = facts.DidYouKnow
	return content, nil
}

// lookupFacts returns the model facts for a category, cached for an hour.
func (uc *ScanUseCase) lookupFacts(ctx context.Context, category waste.Category) (*educationFacts, error) {
	cacheKey := educationCacheKey(category)
	if cached, err := uc.withRedisGet(ctx, "", "cache.get.education", cacheKey); err == nil {
		var facts educationFacts
		if err := json.Unmarshal([]byte(cached), &facts); err == nil {
			return &facts, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logging.WithOperation(uc.logger, "usecase.education", "").Warn("failed to read cache", zap.Error(err))
	}

	raw, err := uc.classifier.EducationFacts(ctx, category)
	if err != nil {
		return nil, err
	}

	var facts educationFacts
	if err := json.Unmarshal([]byte(reconcile.StripFences(raw)), &facts); err != nil {
		return nil, fmt.Errorf("parse facts reply: %w", err)
	}

	if serialized, err := json.Marshal(facts); err == nil {
		if err := uc.withRedisRetry(ctx, "", "cache.set.education", func() error {
			return uc.cache.Set(ctx, cacheKey, string(serialized), educationCacheTTL)
		}); err != nil {
			logging.WithOperation(uc.logger, "usecase.education", "").Warn("failed to cache facts", zap.Error(err))
		}
	}
	return &facts, nil
}

func educationCacheKey(category waste.Category) string {
	return fmt.Sprintf("education:%s", category)
}
