package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/neuronest/guardian/internal/screentime"
)

// WindowDays is the usage window an assessment covers.
const WindowDays = 7

// healthyDailyMinutes is the daily usage that saturates the screen-time
// factor: 3 hours a day scores 100.
const healthyDailyMinutes = 180

// Factor weights. They sum to 1 so the composite stays in [0, 100].
var weights = map[string]float64{
	FactorScreenTime:          0.25,
	FactorNightUsage:          0.15,
	FactorSocialMediaRatio:    0.20,
	FactorAppSwitching:        0.10,
	FactorSentimentVolatility: 0.15,
	FactorRewardDependency:    0.15,
}

// SignalProvider supplies the behavioral factors that cannot be derived
// from raw usage totals alone.
type SignalProvider interface {
	SentimentVolatility(screenTime float64) float64
	RewardDependency(socialMediaRatio, screenTime float64) float64
}

// DerivedSignals is the default SignalProvider. It stands in for a real
// sentiment pipeline with deterministic proxies derived from the usage
// factors themselves.
type DerivedSignals struct{}

func (DerivedSignals) SentimentVolatility(screenTime float64) float64 {
	if screenTime > 60 {
		return 30
	}
	return 0
}

func (DerivedSignals) RewardDependency(socialMediaRatio, screenTime float64) float64 {
	return clamp(socialMediaRatio*0.6 + screenTime*0.2)
}

// Result is the outcome of scoring a usage window. NoData marks the
// degenerate empty-window result, which is never persisted.
type Result struct {
	Score       float64            `json:"score"`
	Tier        Tier               `json:"tier"`
	Explanation string             `json:"explanation"`
	Factors     map[string]float64 `json:"factors"`
	NoData      bool               `json:"-"`
}

// Engine scores usage windows. It is pure: no storage, no clock beyond
// the caller-supplied now.
type Engine struct {
	signals SignalProvider
}

// NewEngine creates a scoring engine. A nil provider gets DerivedSignals.
func NewEngine(signals SignalProvider) *Engine {
	if signals == nil {
		signals = DerivedSignals{}
	}
	return &Engine{signals: signals}
}

// Score evaluates a window of usage logs.
func (e *Engine) Score(logs []*screentime.Log) *Result {
	if len(logs) == 0 {
		return &Result{
			Score:       0,
			Tier:        TierLow,
			Explanation: "No usage data available for analysis.",
			Factors:     map[string]float64{},
			NoData:      true,
		}
	}

	var total, night, social float64
	appsByDay := make(map[string]map[string]bool)
	for _, l := range logs {
		m := float64(l.DurationMinutes)
		total += m
		if screentime.IsNightHour(l.Hour) {
			night += m
		}
		if l.Category == "social_media" {
			social += m
		}
		if appsByDay[l.Date] == nil {
			appsByDay[l.Date] = make(map[string]bool)
		}
		appsByDay[l.Date][l.AppName] = true
	}

	avgDaily := total / WindowDays
	factors := make(map[string]float64, len(FactorOrder))
	for _, name := range FactorOrder {
		factors[name] = 0
	}
	factors[FactorScreenTime] = clamp(avgDaily / healthyDailyMinutes * 100)

	if total > 0 {
		// Night usage weighs double: any significant share is a concern.
		factors[FactorNightUsage] = clamp(night / total * 200)
		factors[FactorSocialMediaRatio] = social / total * 100
	}

	activeDays := len(appsByDay)
	if activeDays < 1 {
		activeDays = 1
	}
	var distinctApps float64
	for _, apps := range appsByDay {
		distinctApps += float64(len(apps))
	}
	factors[FactorAppSwitching] = clamp(distinctApps / float64(activeDays) / 10 * 100)

	factors[FactorSentimentVolatility] = e.signals.SentimentVolatility(factors[FactorScreenTime])
	factors[FactorRewardDependency] = e.signals.RewardDependency(
		factors[FactorSocialMediaRatio], factors[FactorScreenTime])

	// Sum in fixed factor order so repeated scoring of the same window
	// yields bit-identical results.
	var score float64
	for _, name := range FactorOrder {
		score += factors[name] * weights[name]
	}
	score = clamp(score)

	tier := TierForScore(score)
	return &Result{
		Score:       score,
		Tier:        tier,
		Explanation: explain(score, tier, factors),
		Factors:     factors,
	}
}

// concernThresholds gate each factor's explanation clause.
var concernThresholds = map[string]float64{
	FactorScreenTime:          60,
	FactorNightUsage:          40,
	FactorSocialMediaRatio:    50,
	FactorAppSwitching:        40,
	FactorSentimentVolatility: 50,
	FactorRewardDependency:    50,
}

func explain(score float64, tier Tier, factors map[string]float64) string {
	var concerns []string
	for _, name := range FactorOrder {
		v := factors[name]
		if v <= concernThresholds[name] {
			continue
		}
		switch name {
		case FactorScreenTime:
			concerns = append(concerns, fmt.Sprintf(
				"High daily screen time (%d%% above healthy threshold)",
				int(math.Round(v))))
		case FactorNightUsage:
			concerns = append(concerns, "Significant late-night device usage detected")
		case FactorSocialMediaRatio:
			concerns = append(concerns, fmt.Sprintf(
				"Social media dominates %d%% of total usage", int(math.Round(v))))
		case FactorAppSwitching:
			concerns = append(concerns, "Frequent app switching suggests restlessness")
		case FactorSentimentVolatility:
			concerns = append(concerns, "Emotional volatility detected in usage patterns")
		case FactorRewardDependency:
			concerns = append(concerns, "Behavior suggests reward-driven usage patterns")
		}
	}

	rounded := int(math.Round(score))
	if len(concerns) == 0 {
		return fmt.Sprintf(
			"Overall digital wellbeing is healthy with a %s risk score of %d/100.",
			strings.ToLower(string(tier)), rounded)
	}

	var rec string
	switch tier {
	case TierCritical:
		rec = "Immediate intervention recommended."
	case TierHigh:
		rec = "Parent should discuss digital habits with child."
	case TierModerate:
		rec = "Monitor trends over the next week."
	default:
		rec = "Continue current approach."
	}

	return fmt.Sprintf("Risk level: %s (%d/100). Key concerns: %s. Recommendation: %s",
		tier, rounded, strings.Join(concerns, ". "), rec)
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// WindowStart returns the first date of the scoring window ending now,
// in "2006-01-02" form.
func WindowStart(now time.Time) string {
	return now.AddDate(0, 0, -(WindowDays - 1)).Format("2006-01-02")
}
