package scoring

import (
	"encoding/json"
	"fmt"
	"math"
)

// Dimension weights used for the overall score. They sum to 1.
const (
	WeightBudget    = 0.25
	WeightAuthority = 0.30
	WeightNeed      = 0.30
	WeightTimeline  = 0.15
)

// Category thresholds on the overall score.
const (
	HotThreshold  = 8.0
	WarmThreshold = 6.0
)

// Score bounds and the neutral value used when a dimension has no signal
// or could not be evaluated.
const (
	MinScore     = 1.0
	MaxScore     = 10.0
	NeutralScore = 5.0
)

// Category is the hot/warm/cold classification of a lead.
type Category string

// Lead categories.
const (
	CategoryHot  Category = "hot"
	CategoryWarm Category = "warm"
	CategoryCold Category = "cold"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryHot, CategoryWarm, CategoryCold:
		return true
	default:
		return false
	}
}

// CategoryFor maps an overall score to its category.
func CategoryFor(overall float64) Category {
	switch {
	case overall >= HotThreshold:
		return CategoryHot
	case overall >= WarmThreshold:
		return CategoryWarm
	default:
		return CategoryCold
	}
}

// Score is an immutable BANT evaluation. Overall and Category are derived
// from the four sub-scores and cannot be set independently.
type Score struct {
	budget    float64
	authority float64
	need      float64
	timeline  float64
	overall   float64
	category  Category
}

// NewScore builds a Score, clamping each sub-score to [MinScore, MaxScore].
// NaN sub-scores become NeutralScore.
func NewScore(budget, authority, need, timeline float64) Score {
	s := Score{
		budget:    clamp(budget),
		authority: clamp(authority),
		need:      clamp(need),
		timeline:  clamp(timeline),
	}
	s.overall = round(s.budget*WeightBudget+
		s.authority*WeightAuthority+
		s.need*WeightNeed+
		s.timeline*WeightTimeline, 3)
	s.category = CategoryFor(s.overall)
	return s
}

// DefaultScore is the all-neutral score used when nothing can be evaluated.
func DefaultScore() Score {
	return NewScore(NeutralScore, NeutralScore, NeutralScore, NeutralScore)
}

func (s Score) Budget() float64    { return s.budget }
func (s Score) Authority() float64 { return s.authority }
func (s Score) Need() float64      { return s.need }
func (s Score) Timeline() float64  { return s.timeline }
func (s Score) Overall() float64   { return s.overall }
func (s Score) Category() Category { return s.category }

// IsZero reports whether s was never built through NewScore.
func (s Score) IsZero() bool { return s.category == "" }

// String renders the score the way it is logged.
func (s Score) String() string {
	return fmt.Sprintf("B:%.1f A:%.1f N:%.1f T:%.1f overall:%.2f category:%s",
		s.budget, s.authority, s.need, s.timeline, s.overall, s.category)
}

type scoreJSON struct {
	Budget    float64  `json:"budget"`
	Authority float64  `json:"authority"`
	Need      float64  `json:"need"`
	Timeline  float64  `json:"timeline"`
	Overall   float64  `json:"overall"`
	Category  Category `json:"category"`
}

// MarshalJSON emits the four sub-scores with the derived fields.
func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoreJSON{
		Budget:    s.budget,
		Authority: s.authority,
		Need:      s.need,
		Timeline:  s.timeline,
		Overall:   s.overall,
		Category:  s.category,
	})
}

// UnmarshalJSON reads the four sub-scores and recomputes overall and
// category. Stored overall and category values are ignored.
func (s *Score) UnmarshalJSON(data []byte) error {
	var raw scoreJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode score: %w", err)
	}
	*s = NewScore(raw.Budget, raw.Authority, raw.Need, raw.Timeline)
	return nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
