// Package risk scores a child's usage patterns for addiction risk and
// explains the result in parent-readable language.
package risk

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no assessment exists.
var ErrNotFound = errors.New("assessment not found")

// Tier buckets a risk score. Ordering is LOW < MODERATE < HIGH < CRITICAL.
type Tier string

const (
	TierLow      Tier = "LOW"
	TierModerate Tier = "MODERATE"
	TierHigh     Tier = "HIGH"
	TierCritical Tier = "CRITICAL"
)

// TierForScore buckets a score: the upper bound of each band belongs to
// the lower tier (a score of exactly 25 is still LOW).
func TierForScore(score float64) Tier {
	switch {
	case score <= 25:
		return TierLow
	case score <= 50:
		return TierModerate
	case score <= 75:
		return TierHigh
	default:
		return TierCritical
	}
}

// Factor names, in the order they are weighed and explained.
const (
	FactorScreenTime          = "screenTime"
	FactorNightUsage          = "nightUsage"
	FactorSocialMediaRatio    = "socialMediaRatio"
	FactorAppSwitching        = "appSwitching"
	FactorSentimentVolatility = "sentimentVolatility"
	FactorRewardDependency    = "rewardDependency"
)

// FactorOrder fixes iteration order for explanation and display.
var FactorOrder = []string{
	FactorScreenTime,
	FactorNightUsage,
	FactorSocialMediaRatio,
	FactorAppSwitching,
	FactorSentimentVolatility,
	FactorRewardDependency,
}

// Assessment is one persisted risk evaluation.
type Assessment struct {
	ID          string             `json:"id"`
	ChildID     string             `json:"childId"`
	Score       float64            `json:"score"`
	Tier        Tier               `json:"tier"`
	Explanation string             `json:"explanation"`
	Factors     map[string]float64 `json:"factors"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Store persists risk assessments.
type Store interface {
	Create(ctx context.Context, a *Assessment) error
	// ListByChild returns assessments newest-first, up to limit.
	ListByChild(ctx context.Context, childID string, limit int) ([]*Assessment, error)
	// Latest returns the most recent assessment or ErrNotFound.
	Latest(ctx context.Context, childID string) (*Assessment, error)
}
