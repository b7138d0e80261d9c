package models

import (
	"encoding/json"
	"time"
)

// SeverityGate is the closed set of entitlement gates (spec.md §3, §4.7).
type SeverityGate string

const (
	GateHighOnly      SeverityGate = "high_only"
	GateHighAndMedium SeverityGate = "high_and_medium"
)

// AllowedSeverities returns the severities a gate admits, per spec.md §4.7:
// "high_only ⇒ {high}", "high_and_medium ⇒ {high, medium}".
func (g SeverityGate) AllowedSeverities() map[Severity]bool {
	switch g {
	case GateHighAndMedium:
		return map[Severity]bool{SeverityHigh: true, SeverityMedium: true}
	default:
		return map[Severity]bool{SeverityHigh: true}
	}
}

// Feedback is the closed set of user reactions to an insight.
type Feedback string

const (
	FeedbackNone       Feedback = "none"
	FeedbackHelpful    Feedback = "helpful"
	FeedbackNotHelpful Feedback = "not_helpful"
)

// ActionItem is one recommended follow-up in a recommendation.
type ActionItem struct {
	Label    string `json:"label"`
	Priority int    `json:"priority"`
}

// BucketSummary is the per-bucket rollup shown in a recommendation.
type BucketSummary struct {
	Currency string `json:"currency"`
	Period   Period `json:"period"`
	Added    int    `json:"added"`
	Removed  int    `json:"removed"`
	Updated  int    `json:"updated"`
}

// Recommendation is the opaque structured object spec.md §3 describes.
type Recommendation struct {
	Headline          string          `json:"headline"`
	Summary           string          `json:"summary"`
	RiskLabel         string          `json:"riskLabel"`
	SeverityEcho      Severity        `json:"severityEcho"`
	VerificationEcho  VerificationState `json:"verificationEcho"`
	ActionItems       []ActionItem    `json:"actionItems"`
	BucketSummaries   []BucketSummary `json:"bucketSummaries"`
}

// Insight is a decision recommendation derived from a Diff (spec.md §3).
type Insight struct {
	InsightID string `gorm:"primaryKey;size:36" json:"insightId"`
	UserID    string `gorm:"index;size:36" json:"userId"`
	CompanyID string `gorm:"index;size:36" json:"companyId"`
	DiffID    string `gorm:"index;size:36" json:"diffId"`

	Model             string  `gorm:"size:50" json:"model"`
	PromptTokens      int     `json:"promptTokens"`
	CompletionTokens  int     `json:"completionTokens"`
	TotalCostUsd      float64 `json:"totalCostUsd"`

	RecommendationJSON string `gorm:"type:text" json:"-"`

	SeverityGate SeverityGate `gorm:"size:20" json:"severityGate"`
	GeneratedAt  time.Time    `gorm:"index" json:"generatedAt"`
	Feedback     Feedback     `gorm:"size:20" json:"feedback"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Insight) TableName() string { return "insights" }

// Recommendation unmarshals the stored recommendation.
func (i *Insight) Recommendation() (Recommendation, error) {
	var r Recommendation
	if i.RecommendationJSON == "" {
		return r, nil
	}
	err := json.Unmarshal([]byte(i.RecommendationJSON), &r)
	return r, err
}

// SetRecommendation marshals and stores the recommendation.
func (i *Insight) SetRecommendation(r Recommendation) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	i.RecommendationJSON = string(data)
	return nil
}
