// Package types contains common types used across the application
package types

// LeadEntry is one row of the ranked lead list.
type LeadEntry struct {
	Rank       int     `json:"rank"`
	ProspectID string  `json:"prospect_id"`
	Overall    float64 `json:"overall"`
	Category   string  `json:"category"`
}

// Analytics summarises the sales pipeline.
type Analytics struct {
	TotalProspects int `json:"total_prospects"`
	// QualifiedLeads counts hot and warm leads.
	QualifiedLeads int `json:"qualified_leads"`
	HotLeads       int `json:"hot_leads"`
	// ConversionRate is QualifiedLeads as a percentage of TotalProspects.
	ConversionRate   float64        `json:"conversion_rate"`
	PipelineStages   map[string]int `json:"pipeline_stages"`
	AverageLeadScore float64        `json:"average_lead_score"`
}

// ScoreReceipt acknowledges an asynchronous scoring request.
type ScoreReceipt struct {
	RequestID  string `json:"request_id"`
	ProspectID string `json:"prospect_id"`
	Duplicate  bool   `json:"duplicate"`
}
