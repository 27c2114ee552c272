// Package scoring implements BANT lead qualification: keyword lexicons turn
// free-text signals about a company, a contact and a conversation into
// Budget, Authority, Need and Timeline sub-scores, which are combined into
// a weighted overall score and a hot/warm/cold category.
//
// Scoring never fails. A dimension that cannot be evaluated yields
// NeutralScore.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
)

// Dimension names used in logs and fallback hooks.
const (
	DimensionBudget    = "budget"
	DimensionAuthority = "authority"
	DimensionNeed      = "need"
	DimensionTimeline  = "timeline"
)

// ScoreBudget scores budget capability from company signals.
func ScoreBudget(c CompanySignals) float64 {
	text := joinLower(c.FundingStage, c.Revenue, joinLower(c.BudgetIndicators...), joinLower(c.RecentNews...))
	n := BudgetLexicon.count(text)
	h, m, l := float64(n.high), float64(n.medium), float64(n.low)

	switch {
	case n.high >= 2:
		return math.Min(10.0, 8.0+h*0.5)
	case n.high >= 1 || n.medium >= 2:
		return math.Min(8.0, 6.0+h*1.0+m*0.5)
	case n.medium >= 1:
		return math.Min(6.0, 4.0+m*1.0)
	case n.low >= 1:
		return math.Max(1.0, 3.0-l*0.5)
	default:
		return NeutralScore
	}
}

// ScoreAuthority scores decision-making authority from contact signals.
// High and medium title keywords raise the score, low keywords then cap it.
func ScoreAuthority(c ContactSignals) float64 {
	title := joinLower(c.Title)
	department := joinLower(c.Department)

	score := NeutralScore
	if containsAny(title, AuthorityLexicon.High) {
		score = math.Max(score, 9.0)
	}
	if containsAny(title, AuthorityLexicon.Medium) {
		score = math.Max(score, 6.5)
	}
	if containsAny(title, AuthorityLexicon.Low) {
		score = math.Min(score, 4.0)
	}
	if c.DecisionMaker {
		score = math.Min(10.0, score+1.5)
	}
	if containsAny(department, DepartmentBoostKeywords) {
		score = math.Min(10.0, score+1.0)
	}
	return clamp(score)
}

// ScoreNeed scores business need from conversation notes and company pain
// points and news.
func ScoreNeed(conv ConversationSignals, c CompanySignals) float64 {
	text := joinLower(conv.PainPoints, conv.Challenges, joinLower(c.PainPoints...), joinLower(c.RecentNews...))
	n := NeedLexicon.count(text)
	h, m, l := float64(n.high), float64(n.medium), float64(n.low)

	switch {
	case n.high >= 2:
		return math.Min(10.0, 8.5+h*0.3)
	case n.high >= 1:
		return math.Min(9.0, 7.0+h*1.0)
	case n.medium >= 2:
		return math.Min(7.0, 5.5+m*0.5)
	case n.medium >= 1:
		return math.Min(6.0, 4.5+m*0.8)
	case n.low >= 1:
		return math.Max(1.0, 3.0-l*0.5)
	default:
		return NeutralScore
	}
}

// ScoreTimeline scores implementation urgency from conversation notes.
func ScoreTimeline(conv ConversationSignals) float64 {
	text := joinLower(conv.Timeline, conv.Urgency, conv.ImplementationDate)
	n := TimelineLexicon.count(text)
	m, l := float64(n.medium), float64(n.low)

	switch {
	case n.high >= 1:
		return math.Min(10.0, 8.0+float64(n.high)*1.0)
	case n.medium >= 1:
		return math.Min(7.0, 5.0+m*1.0)
	case n.low >= 1:
		return math.Max(1.0, 3.0-l*0.5)
	default:
		return NeutralScore
	}
}

// Scorer evaluates prospects. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	log        logger.Logger
	onFallback func(dimension string)
}

// New creates a Scorer. Without options it logs nothing.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		log:        logger.Nop(),
		onFallback: func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

//nolint:gochecknoglobals // backs the package-level convenience functions
var defaultScorer = New()

// Calculate scores typed signals with the default scorer.
func Calculate(company CompanySignals, contact ContactSignals, conversation ConversationSignals) Score {
	return defaultScorer.Calculate(context.Background(), company, contact, conversation)
}

// CalculateBANTScore scores one prospect with the default scorer.
func CalculateBANTScore(p ProspectSignals) Score {
	return defaultScorer.CalculateBANTScore(context.Background(), p)
}

// CalculateFromMaps scores loosely typed signals with the default scorer.
func CalculateFromMaps(prospect, contact, conversation map[string]any) Score {
	return defaultScorer.CalculateFromMaps(context.Background(), prospect, contact, conversation)
}

// CalculateBANTScore scores one prospect.
func (s *Scorer) CalculateBANTScore(ctx context.Context, p ProspectSignals) Score {
	return s.Calculate(ctx, p.Company, p.Contact, p.Conversation)
}

// Calculate runs the four dimension scorers, rounds each sub-score to one
// decimal and builds the Score.
func (s *Scorer) Calculate(ctx context.Context, company CompanySignals, contact ContactSignals, conversation ConversationSignals) Score {
	score := NewScore(
		s.dimension(ctx, DimensionBudget, func() (float64, error) { return ScoreBudget(company), nil }),
		s.dimension(ctx, DimensionAuthority, func() (float64, error) { return ScoreAuthority(contact), nil }),
		s.dimension(ctx, DimensionNeed, func() (float64, error) { return ScoreNeed(conversation, company), nil }),
		s.dimension(ctx, DimensionTimeline, func() (float64, error) { return ScoreTimeline(conversation), nil }),
	)
	s.logScore(ctx, score)
	return score
}

// CalculateFromMaps scores decoded JSON objects. prospect carries the
// company signals under "company_data". Each dimension reads its own keys
// and falls back to NeutralScore when one of them has an unusable type.
func (s *Scorer) CalculateFromMaps(ctx context.Context, prospect, contact, conversation map[string]any) Score {
	return s.calculateLoose(ctx, prospect[keyCompany], contact, conversation)
}

func (s *Scorer) calculateLoose(ctx context.Context, rawCompany, rawContact, rawConversation any) Score {
	company, companyErr := asMap(rawCompany)
	contact, contactErr := asMap(rawContact)
	conversation, conversationErr := asMap(rawConversation)

	score := NewScore(
		s.dimension(ctx, DimensionBudget, func() (float64, error) {
			if companyErr != nil {
				return 0, fmt.Errorf("%s: %w", keyCompany, companyErr)
			}
			c, err := budgetFromMap(company)
			if err != nil {
				return 0, err
			}
			return ScoreBudget(c), nil
		}),
		s.dimension(ctx, DimensionAuthority, func() (float64, error) {
			if contactErr != nil {
				return 0, fmt.Errorf("%s: %w", keyContact, contactErr)
			}
			c, err := contactFromMap(contact)
			if err != nil {
				return 0, err
			}
			return ScoreAuthority(c), nil
		}),
		s.dimension(ctx, DimensionNeed, func() (float64, error) {
			if err := errors.Join(conversationErr, companyErr); err != nil {
				return 0, err
			}
			conv, comp, err := needFromMap(conversation, company)
			if err != nil {
				return 0, err
			}
			return ScoreNeed(conv, comp), nil
		}),
		s.dimension(ctx, DimensionTimeline, func() (float64, error) {
			if conversationErr != nil {
				return 0, fmt.Errorf("%s: %w", keyConversation, conversationErr)
			}
			conv, err := timelineFromMap(conversation)
			if err != nil {
				return 0, err
			}
			return ScoreTimeline(conv), nil
		}),
	)
	s.logScore(ctx, score)
	return score
}

// dimension evaluates fn, rounding the result to one decimal. Errors and
// panics yield NeutralScore.
func (s *Scorer) dimension(ctx context.Context, name string, fn func() (float64, error)) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			s.fallback(ctx, name, fmt.Errorf("panic: %v", r))
			v = NeutralScore
		}
	}()
	raw, err := fn()
	if err != nil {
		s.fallback(ctx, name, err)
		return NeutralScore
	}
	return round(raw, 1)
}

func (s *Scorer) fallback(ctx context.Context, name string, err error) {
	s.log.Error(ctx, "dimension scoring failed, using neutral score",
		logger.String("dimension", name),
		logger.Error(err),
	)
	s.onFallback(name)
}

func (s *Scorer) logScore(ctx context.Context, score Score) {
	s.log.Info(ctx, "bant score calculated",
		logger.Float64("budget", score.Budget()),
		logger.Float64("authority", score.Authority()),
		logger.Float64("need", score.Need()),
		logger.Float64("timeline", score.Timeline()),
		logger.Float64("overall", score.Overall()),
		logger.String("category", string(score.Category())),
	)
}
