package scoring

import (
	"fmt"
	"strconv"
	"strings"
)

// CompanySignals are the company-level fragments used by the budget and
// need dimensions.
type CompanySignals struct {
	FundingStage     string   `json:"funding_stage,omitempty"`
	Revenue          string   `json:"revenue,omitempty"`
	BudgetIndicators []string `json:"budget_indicators,omitempty"`
	RecentNews       []string `json:"recent_news,omitempty"`
	PainPoints       []string `json:"pain_points,omitempty"`
}

// ContactSignals describe the person being qualified.
type ContactSignals struct {
	Title         string `json:"title,omitempty"`
	Department    string `json:"department,omitempty"`
	DecisionMaker bool   `json:"decision_maker,omitempty"`
}

// ConversationSignals are free-text notes captured during a conversation.
type ConversationSignals struct {
	PainPoints         string `json:"pain_points,omitempty"`
	Challenges         string `json:"challenges,omitempty"`
	Timeline           string `json:"timeline,omitempty"`
	Urgency            string `json:"urgency,omitempty"`
	ImplementationDate string `json:"implementation_date,omitempty"`
}

// ProspectSignals bundles everything needed to score one prospect.
type ProspectSignals struct {
	ID           string              `json:"id"`
	Company      CompanySignals      `json:"company_data"`
	Contact      ContactSignals      `json:"primary_contact"`
	Conversation ConversationSignals `json:"conversation_data"`
}

// Keys understood by the loose map decoders.
const (
	keyID           = "id"
	keyCompany      = "company_data"
	keyContact      = "primary_contact"
	keyConversation = "conversation_data"

	keyFundingStage     = "funding_stage"
	keyRevenue          = "revenue"
	keyBudgetIndicators = "budget_indicators"
	keyRecentNews       = "recent_news"
	keyPainPoints       = "pain_points"

	keyTitle         = "title"
	keyDepartment    = "department"
	keyDecisionMaker = "decision_maker"

	keyChallenges         = "challenges"
	keyTimeline           = "timeline"
	keyUrgency            = "urgency"
	keyImplementationDate = "implementation_date"

	unknownID = "unknown"
)

// The decoders below read only the keys their dimension needs, so a bad
// value under one key degrades only the dimensions that read it.

func budgetFromMap(company map[string]any) (CompanySignals, error) {
	var (
		c   CompanySignals
		err error
	)
	if c.FundingStage, err = textField(company, keyFundingStage); err != nil {
		return CompanySignals{}, err
	}
	if c.Revenue, err = textField(company, keyRevenue); err != nil {
		return CompanySignals{}, err
	}
	if c.BudgetIndicators, err = listField(company, keyBudgetIndicators); err != nil {
		return CompanySignals{}, err
	}
	if c.RecentNews, err = listField(company, keyRecentNews); err != nil {
		return CompanySignals{}, err
	}
	return c, nil
}

func contactFromMap(contact map[string]any) (ContactSignals, error) {
	var (
		c   ContactSignals
		err error
	)
	if c.Title, err = textField(contact, keyTitle); err != nil {
		return ContactSignals{}, err
	}
	if c.Department, err = textField(contact, keyDepartment); err != nil {
		return ContactSignals{}, err
	}
	if c.DecisionMaker, err = boolField(contact, keyDecisionMaker); err != nil {
		return ContactSignals{}, err
	}
	return c, nil
}

func needFromMap(conversation, company map[string]any) (ConversationSignals, CompanySignals, error) {
	var (
		conv ConversationSignals
		comp CompanySignals
		err  error
	)
	if conv.PainPoints, err = textField(conversation, keyPainPoints); err != nil {
		return ConversationSignals{}, CompanySignals{}, err
	}
	if conv.Challenges, err = textField(conversation, keyChallenges); err != nil {
		return ConversationSignals{}, CompanySignals{}, err
	}
	if comp.PainPoints, err = listField(company, keyPainPoints); err != nil {
		return ConversationSignals{}, CompanySignals{}, err
	}
	if comp.RecentNews, err = listField(company, keyRecentNews); err != nil {
		return ConversationSignals{}, CompanySignals{}, err
	}
	return conv, comp, nil
}

func timelineFromMap(conversation map[string]any) (ConversationSignals, error) {
	var (
		conv ConversationSignals
		err  error
	)
	if conv.Timeline, err = textField(conversation, keyTimeline); err != nil {
		return ConversationSignals{}, err
	}
	if conv.Urgency, err = textField(conversation, keyUrgency); err != nil {
		return ConversationSignals{}, err
	}
	if conv.ImplementationDate, err = textField(conversation, keyImplementationDate); err != nil {
		return ConversationSignals{}, err
	}
	return conv, nil
}

// asMap accepts nil (treated as empty) or a decoded JSON object.
func asMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: expected object, got %T", ErrMalformedSignal, v)
	}
}

// textField reads a free-text value. Scalars are stringified and lists of
// scalars are joined with spaces.
func textField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", nil
	}
	if s, ok := scalarText(v); ok {
		return s, nil
	}
	parts, err := listValue(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return strings.Join(parts, " "), nil
}

// listField reads a list of fragments. A bare scalar counts as a one
// element list.
func listField(m map[string]any, key string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, ok := scalarText(v); ok {
		return []string{s}, nil
	}
	parts, err := listValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return parts, nil
}

// falseWords are the strings read as an explicit "no" by boolField.
var falseWords = map[string]bool{
	"false": true, "f": true, "no": true, "n": true, "0": true, "off": true,
}

// boolField reads a flag from a bool, a number or a string. Any non-zero
// number is true. A non-blank string is true unless it is one of the
// falseWords, compared case-insensitively.
func boolField(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		word := strings.ToLower(strings.TrimSpace(b))
		return word != "" && !falseWords[word], nil
	case float64:
		return b != 0, nil
	case float32:
		return b != 0, nil
	case int:
		return b != 0, nil
	case int64:
		return b != 0, nil
	default:
		return false, fmt.Errorf("%w: %s: expected boolean, got %T", ErrMalformedSignal, key, v)
	}
}

func listValue(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for i, item := range l {
			s, ok := scalarText(item)
			if !ok {
				return nil, fmt.Errorf("%w: element %d: expected text, got %T", ErrMalformedSignal, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected text or list, got %T", ErrMalformedSignal, v)
	}
}

func scalarText(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}

// prospectID reads the "id" key, falling back to "unknown".
func prospectID(m map[string]any) string {
	s, ok := scalarText(m[keyID])
	if !ok || s == "" {
		return unknownID
	}
	return s
}
