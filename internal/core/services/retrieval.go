package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Scoring policy for merged evidence.
const (
	exactMatchScore  = 1.0
	topTermScore     = 0.9
	internalScoreMin = 0.5
	fallbackScore    = internalScoreMin
	extractScore     = 1.0
	webDominantFloor = 0.75
)

// RetrievalCoordinator gathers internal and web evidence for one query and
// merges it into a single ranked list.
type RetrievalCoordinator struct {
	docStore driven.DocumentStore
	web      driven.WebEvidenceProvider
	timeout  time.Duration
}

// NewRetrievalCoordinator creates a coordinator. The web provider is
// optional (can be nil). A zero timeout leaves each leg bounded only by the
// caller's context.
func NewRetrievalCoordinator(
	docStore driven.DocumentStore,
	web driven.WebEvidenceProvider,
	timeout time.Duration,
) *RetrievalCoordinator {
	return &RetrievalCoordinator{
		docStore: docStore,
		web:      web,
		timeout:  timeout,
	}
}

// Retrieve runs the internal and web legs concurrently and merges their
// results. Failures in either leg degrade that leg to empty.
func (r *RetrievalCoordinator) Retrieve(ctx context.Context, req domain.RetrievalRequest) domain.EvidenceSet {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, scope: %d documents, plan: %+v", req.Query, len(req.Scope), req.Plan)

	var internal, web []domain.Evidence
	var internalErr, webErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		internal, internalErr = r.internalEvidence(ctx, req)
	}()

	go func() {
		defer wg.Done()
		web, webErr = r.webEvidence(ctx, req)
	}()

	wg.Wait()

	if internalErr != nil {
		logger.Warn("Internal retrieval failed, continuing without documents: %v", internalErr)
		internal = nil
	}
	if webErr != nil {
		logger.Warn("Web retrieval failed, continuing without web sources: %v", webErr)
		web = nil
	}

	items := mergeEvidence(internal, web, req.Limits)
	logger.Debug("Retrieved %d internal + %d web, merged to %d", len(internal), len(web), len(items))

	return domain.EvidenceSet{
		Items:       items,
		WebSearched: len(web) > 0,
	}
}

// SearchInternal runs only the lexical leg and reports failures to the caller.
func (r *RetrievalCoordinator) SearchInternal(
	ctx context.Context, query string, scope []string, limit int,
) ([]domain.Evidence, error) {
	return r.internalEvidence(ctx, domain.RetrievalRequest{
		Scope:  scope,
		Query:  query,
		Limits: domain.Limits{MaxInternal: limit},
	})
}

// internalEvidence queries the chunk store, falling back to the first
// chunks of the scope when nothing matches.
func (r *RetrievalCoordinator) internalEvidence(
	ctx context.Context, req domain.RetrievalRequest,
) ([]domain.Evidence, error) {
	if len(req.Scope) == 0 || req.Limits.MaxInternal <= 0 {
		logger.Debug("Internal retrieval skipped: empty scope")
		return nil, nil
	}
	if r.docStore == nil {
		return nil, fmt.Errorf("%w: document store unavailable", domain.ErrRetrievalFailure)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	hits, err := r.docStore.SearchChunks(ctx, req.Query, req.Scope, req.Limits.MaxInternal)
	if err != nil {
		return nil, fmt.Errorf("%w: search chunks: %w", domain.ErrRetrievalFailure, err)
	}
	if len(hits) > 0 {
		return scoreChunkHits(hits), nil
	}

	logger.Debug("No lexical matches, using first chunks of scoped documents")
	first, err := r.docStore.FirstChunks(ctx, req.Scope, req.Limits.MaxInternal)
	if err != nil {
		return nil, fmt.Errorf("%w: first chunks: %w", domain.ErrRetrievalFailure, err)
	}

	items := make([]domain.Evidence, len(first))
	for i, h := range first {
		items[i] = domain.InternalEvidence{
			Chunk:        h.Chunk,
			DocumentName: h.DocumentName,
			Relevance:    fallbackScore,
			Fallback:     true,
		}
	}
	return items, nil
}

// scoreChunkHits maps lexical rank onto [internalScoreMin, 1]. Exact phrase
// matches score 1; the remaining hits are spread from topTermScore down to
// the floor by rank.
func scoreChunkHits(hits []domain.ChunkHit) []domain.Evidence {
	termHits := 0
	for _, h := range hits {
		if !h.Exact {
			termHits++
		}
	}

	items := make([]domain.Evidence, len(hits))
	termRank := 0
	for i, h := range hits {
		score := exactMatchScore
		if !h.Exact {
			score = interpolateScore(termRank, termHits)
			termRank++
		}
		items[i] = domain.InternalEvidence{
			Chunk:        h.Chunk,
			DocumentName: h.DocumentName,
			Relevance:    score,
		}
	}
	return items
}

// interpolateScore returns the score of the rank-th of n term matches.
func interpolateScore(rank, n int) float64 {
	if n <= 1 {
		return topTermScore
	}
	step := (topTermScore - internalScoreMin) / float64(n-1)
	return topTermScore - step*float64(rank)
}

// webEvidence runs extract when the plan names a URL, otherwise search when
// the plan or the caller asks for it.
func (r *RetrievalCoordinator) webEvidence(ctx context.Context, req domain.RetrievalRequest) ([]domain.Evidence, error) {
	wantSearch := req.Plan.NeedsWebSearch || req.ForceWebSearch
	if req.Plan.ExtractURL == "" && (!wantSearch || req.Limits.MaxWeb <= 0) {
		return nil, nil
	}
	if r.web == nil {
		logger.Debug("Web retrieval requested but no provider is configured")
		return nil, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if req.Plan.ExtractURL != "" {
		res, err := r.web.Extract(ctx, req.Plan.ExtractURL)
		if err != nil {
			return nil, fmt.Errorf("%w: extract %s: %w", domain.ErrRetrievalFailure, req.Plan.ExtractURL, err)
		}
		return []domain.Evidence{domain.WebEvidence{
			URL:       res.URL,
			Title:     res.Title,
			Content:   res.Content,
			Relevance: extractScore,
			Extracted: true,
		}}, nil
	}

	results, err := r.web.Search(ctx, req.Query, req.Limits.MaxWeb)
	if err != nil {
		return nil, fmt.Errorf("%w: web search: %w", domain.ErrRetrievalFailure, err)
	}
	if len(results) > req.Limits.MaxWeb {
		results = results[:req.Limits.MaxWeb]
	}

	scores := rescaleWebScores(results)
	items := make([]domain.Evidence, len(results))
	for i, res := range results {
		items[i] = domain.WebEvidence{
			URL:       res.URL,
			Title:     res.Title,
			Content:   res.Content,
			Relevance: scores[i],
		}
	}
	return items, nil
}

// rescaleWebScores maps provider scores into [0,1]. When any score exceeds
// 1 all scores are divided by the maximum first.
func rescaleWebScores(results []domain.WebResult) []float64 {
	maxScore := 0.0
	for _, res := range results {
		if res.Score > maxScore {
			maxScore = res.Score
		}
	}

	scores := make([]float64, len(results))
	for i, res := range results {
		s := res.Score
		if maxScore > 1 {
			s /= maxScore
		}
		scores[i] = clampScore(s)
	}
	return scores
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// mergeEvidence applies the web-dominance floor, orders by score then
// origin then retrieval order, and truncates to the overall limit.
func mergeEvidence(internal, web []domain.Evidence, limits domain.Limits) []domain.Evidence {
	items := make([]domain.Evidence, 0, len(internal)+len(web))
	items = append(items, internal...)
	items = append(items, web...)

	if len(web) > len(internal) {
		kept := items[:0]
		for _, e := range items {
			if e.Score() >= webDominantFloor {
				kept = append(kept, e)
			}
		}
		items = kept
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score() != items[j].Score() {
			return items[i].Score() > items[j].Score()
		}
		return items[i].Origin().Priority() < items[j].Origin().Priority()
	})

	if total := limits.Total(); total >= 0 && len(items) > total {
		items = items[:total]
	}
	return items
}

func (r *RetrievalCoordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
