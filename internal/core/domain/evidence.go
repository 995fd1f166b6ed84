package domain

// Origin tags where a piece of evidence came from.
type Origin string

// Evidence origins.
const (
	OriginInternal Origin = "internal"
	OriginWeb      Origin = "web"
)

// Priority orders origins when scores tie. Lower sorts first.
func (o Origin) Priority() int {
	if o == OriginInternal {
		return 0
	}
	return 1
}

// Evidence is one ranked piece of supporting material. It is a closed sum
// type: the only implementations are InternalEvidence and WebEvidence.
type Evidence interface {
	// Score is the relevance in [0,1].
	Score() float64

	// Label is the human-readable name shown to the caller.
	Label() string

	// Origin reports which source produced the item.
	Origin() Origin

	// Snippet is the text handed to the model.
	Snippet() string

	isEvidence()
}

// InternalEvidence references a stored chunk.
type InternalEvidence struct {
	Chunk        Chunk
	DocumentName string
	Relevance    float64

	// Fallback is set when the chunk was returned because the lexical
	// query matched nothing.
	Fallback bool
}

// Score implements Evidence.
func (e InternalEvidence) Score() float64 { return e.Relevance }

// Label implements Evidence.
func (e InternalEvidence) Label() string {
	if e.DocumentName != "" {
		return e.DocumentName
	}
	return e.Chunk.DocumentID
}

// Origin implements Evidence.
func (e InternalEvidence) Origin() Origin { return OriginInternal }

// Snippet implements Evidence.
func (e InternalEvidence) Snippet() string { return e.Chunk.Content }

func (InternalEvidence) isEvidence() {}

// WebEvidence is a result from the web evidence provider.
type WebEvidence struct {
	URL       string
	Title     string
	Content   string
	Relevance float64

	// Extracted is set when the page was fetched directly from a URL in
	// the message rather than found by search.
	Extracted bool
}

// Score implements Evidence.
func (e WebEvidence) Score() float64 { return e.Relevance }

// Label implements Evidence.
func (e WebEvidence) Label() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Title
}

// Origin implements Evidence.
func (e WebEvidence) Origin() Origin { return OriginWeb }

// Snippet implements Evidence.
func (e WebEvidence) Snippet() string { return e.Content }

func (WebEvidence) isEvidence() {}

// Source is the serialisable projection of an Evidence item. It is what
// callers receive in the sources event and what assistant messages keep.
type Source struct {
	Origin       Origin  `json:"source_type"`
	Label        string  `json:"label"`
	Score        float64 `json:"relevance_score"`
	DocumentID   string  `json:"document_id,omitempty"`
	DocumentName string  `json:"document_name,omitempty"`
	ChunkID      string  `json:"chunk_id,omitempty"`
	URL          string  `json:"url,omitempty"`
	Snippet      string  `json:"snippet"`
}

// SourceFrom projects an Evidence item onto its wire form.
func SourceFrom(e Evidence) Source {
	src := Source{
		Origin:  e.Origin(),
		Label:   e.Label(),
		Score:   e.Score(),
		Snippet: e.Snippet(),
	}
	switch v := e.(type) {
	case InternalEvidence:
		src.DocumentID = v.Chunk.DocumentID
		src.DocumentName = v.DocumentName
		src.ChunkID = v.Chunk.ID
	case WebEvidence:
		src.URL = v.URL
		src.DocumentName = v.Title
	}
	return src
}

// SourcesFrom projects a list of evidence items.
func SourcesFrom(items []Evidence) []Source {
	out := make([]Source, len(items))
	for i, e := range items {
		out[i] = SourceFrom(e)
	}
	return out
}

// EvidenceSet is the ordered output of retrieval.
type EvidenceSet struct {
	// Items is sorted by score descending, internal before web on ties,
	// then by retrieval order.
	Items []Evidence

	// WebSearched is true when a web search or extract ran and returned
	// at least one result.
	WebSearched bool
}

// Count returns the number of items with the given origin.
func (s EvidenceSet) Count(o Origin) int {
	n := 0
	for _, e := range s.Items {
		if e.Origin() == o {
			n++
		}
	}
	return n
}

// ByOrigin returns the items with the given origin, preserving order.
func (s EvidenceSet) ByOrigin(o Origin) []Evidence {
	var out []Evidence
	for _, e := range s.Items {
		if e.Origin() == o {
			out = append(out, e)
		}
	}
	return out
}

// WebResult is a single hit returned by the web evidence provider.
type WebResult struct {
	URL     string
	Title   string
	Content string

	// Score is the provider's own relevance signal, not yet normalised.
	Score float64
}

// ChunkHit is a chunk returned by a lexical lookup.
type ChunkHit struct {
	Chunk        Chunk
	DocumentName string

	// Rank is the zero-based position in the result list.
	Rank int

	// Exact is set when the chunk contains the whole query as a phrase.
	Exact bool
}
