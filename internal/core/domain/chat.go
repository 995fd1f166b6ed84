package domain

// Default evidence limits per request.
const (
	DefaultMaxInternalSources = 5
	DefaultMaxWebSources      = 3
)

// ChatRequest is an inbound question.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`

	// DocumentIDs scopes internal retrieval. Nil selects the default
	// scope; an empty, non-nil slice disables internal retrieval.
	DocumentIDs []string `json:"doc_ids"`

	MaxInternalSources int  `json:"max_internal_sources,omitempty"`
	MaxWebSources      int  `json:"max_web_sources,omitempty"`
	ForceWebSearch     bool `json:"force_web_search,omitempty"`
}

// WithDefaults fills in unset limits.
func (r ChatRequest) WithDefaults() ChatRequest {
	if r.MaxInternalSources == 0 {
		r.MaxInternalSources = DefaultMaxInternalSources
	}
	if r.MaxWebSources == 0 {
		r.MaxWebSources = DefaultMaxWebSources
	}
	return r
}

// Limits caps the number of evidence items per origin.
type Limits struct {
	MaxInternal int
	MaxWeb      int
}

// Total is the overall cap on the merged evidence list.
func (l Limits) Total() int {
	return l.MaxInternal + l.MaxWeb
}

// Plan is the query planner's decision for one message.
type Plan struct {
	// ExtractURL is set when the message names a URL to fetch directly.
	ExtractURL string

	// NeedsWebSearch is true when live web results are wanted.
	NeedsWebSearch bool
}

// RetrievalRequest describes one retrieval pass.
type RetrievalRequest struct {
	// Scope lists the documents internal retrieval may read. Empty skips
	// internal retrieval.
	Scope          []string
	Query          string
	Plan           Plan
	ForceWebSearch bool
	Limits         Limits
}

// Usage is token accounting for one generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// charsPerToken is the rough ratio used when a provider reports no usage.
const charsPerToken = 4

// EstimateUsage approximates token counts from character lengths.
func EstimateUsage(promptChars, completionChars int) Usage {
	u := Usage{
		PromptTokens:     promptChars / charsPerToken,
		CompletionTokens: completionChars / charsPerToken,
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}

// ChatResponse is the aggregate answer of the non-streaming endpoint.
type ChatResponse struct {
	Answer           string   `json:"answer"`
	ConversationID   string   `json:"conversation_id"`
	Sources          []Source `json:"sources"`
	InternalCount    int      `json:"internal_count"`
	WebCount         int      `json:"web_count"`
	ConfidenceScore  float64  `json:"confidence_score"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	Usage            Usage    `json:"usage"`
}
