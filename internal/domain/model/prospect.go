// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/scoring"
)

// ErrInvalidProspect is returned by Validate for unusable prospects.
var ErrInvalidProspect = errors.New("invalid prospect")

// DealStage is the position of a prospect in the sales pipeline.
type DealStage string

// Pipeline stages in order.
const (
	StageDiscovered  DealStage = "discovered"
	StageResearched  DealStage = "researched"
	StageContacted   DealStage = "contacted"
	StageQualified   DealStage = "qualified"
	StageProposal    DealStage = "proposal"
	StageNegotiation DealStage = "negotiation"
	StageClosedWon   DealStage = "closed_won"
	StageClosedLost  DealStage = "closed_lost"
)

// Stages lists every pipeline stage in order.
func Stages() []DealStage {
	return []DealStage{
		StageDiscovered, StageResearched, StageContacted, StageQualified,
		StageProposal, StageNegotiation, StageClosedWon, StageClosedLost,
	}
}

// Valid reports whether s is a known stage.
func (s DealStage) Valid() bool {
	for _, st := range Stages() {
		if s == st {
			return true
		}
	}
	return false
}

// Contact is a person at a prospect company.
type Contact struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Title         string `json:"title"`
	Department    string `json:"department"`
	DecisionMaker bool   `json:"decision_maker"`
	LinkedInURL   string `json:"linkedin_url,omitempty"`
}

// ResearchData is what company research found about a prospect.
type ResearchData struct {
	CompanySize      string   `json:"company_size,omitempty"`
	Revenue          string   `json:"revenue,omitempty"`
	FundingStage     string   `json:"funding_stage,omitempty"`
	RecentNews       []string `json:"recent_news,omitempty"`
	Competitors      []string `json:"competitors,omitempty"`
	PainPoints       []string `json:"pain_points,omitempty"`
	TechStack        []string `json:"tech_stack,omitempty"`
	BudgetIndicators []string `json:"budget_indicators,omitempty"`
}

// ConversationNotes are the qualification notes taken while talking to a
// prospect.
type ConversationNotes struct {
	PainPoints         string `json:"pain_points,omitempty"`
	Challenges         string `json:"challenges,omitempty"`
	Timeline           string `json:"timeline,omitempty"`
	Urgency            string `json:"urgency,omitempty"`
	ImplementationDate string `json:"implementation_date,omitempty"`
}

// Prospect is a company being worked through the pipeline.
type Prospect struct {
	ID           string            `json:"id"`
	CompanyName  string            `json:"company_name"`
	Domain       string            `json:"domain"`
	Industry     string            `json:"industry"`
	Contacts     []Contact         `json:"contacts"`
	Research     *ResearchData     `json:"research_data,omitempty"`
	Conversation ConversationNotes `json:"conversation_data"`
	LeadScore    *scoring.Score    `json:"lead_score,omitempty"`
	DealStage    DealStage         `json:"deal_stage"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Validate checks the fields required to store a prospect.
func (p *Prospect) Validate() error {
	if strings.TrimSpace(p.CompanyName) == "" {
		return fmt.Errorf("%w: company_name is required", ErrInvalidProspect)
	}
	if p.DealStage != "" && !p.DealStage.Valid() {
		return fmt.Errorf("%w: unknown deal_stage %q", ErrInvalidProspect, p.DealStage)
	}
	return nil
}

// PrimaryContact returns the first decision maker, else the first contact.
func (p *Prospect) PrimaryContact() (Contact, bool) {
	for _, c := range p.Contacts {
		if c.DecisionMaker {
			return c, true
		}
	}
	if len(p.Contacts) > 0 {
		return p.Contacts[0], true
	}
	return Contact{}, false
}

// Signals converts the prospect into scorer input.
func (p *Prospect) Signals() scoring.ProspectSignals {
	sig := scoring.ProspectSignals{
		ID: p.ID,
		Conversation: scoring.ConversationSignals{
			PainPoints:         p.Conversation.PainPoints,
			Challenges:         p.Conversation.Challenges,
			Timeline:           p.Conversation.Timeline,
			Urgency:            p.Conversation.Urgency,
			ImplementationDate: p.Conversation.ImplementationDate,
		},
	}
	if r := p.Research; r != nil {
		sig.Company = scoring.CompanySignals{
			FundingStage:     r.FundingStage,
			Revenue:          r.Revenue,
			BudgetIndicators: r.BudgetIndicators,
			RecentNews:       r.RecentNews,
			PainPoints:       r.PainPoints,
		}
	}
	if c, ok := p.PrimaryContact(); ok {
		sig.Contact = scoring.ContactSignals{
			Title:         c.Title,
			Department:    c.Department,
			DecisionMaker: c.DecisionMaker,
		}
	}
	return sig
}

// Clone returns a deep copy so stored prospects are never aliased by callers.
func (p *Prospect) Clone() *Prospect {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Contacts = append([]Contact(nil), p.Contacts...)
	if p.Research != nil {
		r := *p.Research
		r.RecentNews = append([]string(nil), r.RecentNews...)
		r.Competitors = append([]string(nil), r.Competitors...)
		r.PainPoints = append([]string(nil), r.PainPoints...)
		r.TechStack = append([]string(nil), r.TechStack...)
		r.BudgetIndicators = append([]string(nil), r.BudgetIndicators...)
		cp.Research = &r
	}
	if p.LeadScore != nil {
		s := *p.LeadScore
		cp.LeadScore = &s
	}
	return &cp
}
