package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// seedStore creates a memory store with one completed document per entry.
func seedStore(t *testing.T, docs map[string][]string) *memory.DocumentStore {
	t.Helper()
	store := memory.NewDocumentStore()
	ctx := context.Background()
	for id, texts := range docs {
		require.NoError(t, store.SaveDocument(ctx, &domain.Document{
			ID:        id,
			Name:      id + ".txt",
			Type:      domain.DocumentTypeText,
			Status:    domain.StatusProcessing,
			CreatedAt: time.Now(),
		}))
		chunks := make([]domain.Chunk, len(texts))
		for i, text := range texts {
			chunks[i] = domain.Chunk{ID: fmt.Sprintf("%s-%d", id, i), DocumentID: id, Position: i, Content: text}
		}
		require.NoError(t, store.ReplaceChunks(ctx, id, chunks))
	}
	return store
}

func defaultLimits() domain.Limits {
	return domain.Limits{MaxInternal: domain.DefaultMaxInternalSources, MaxWeb: domain.DefaultMaxWebSources}
}

func assertSorted(t *testing.T, items []domain.Evidence) {
	t.Helper()
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		require.GreaterOrEqual(t, prev.Score(), cur.Score(), "items must be sorted by score")
		if prev.Score() == cur.Score() {
			assert.LessOrEqual(t, prev.Origin().Priority(), cur.Origin().Priority(), "internal before web on ties")
		}
	}
}

func TestRetrieve_EmptyScopeSkipsInternal(t *testing.T) {
	store := seedStore(t, map[string][]string{"D1": {"leave policy text"}})
	web := &mockWebProvider{results: []domain.WebResult{{URL: "https://a", Score: 0.9}}}
	r := NewRetrievalCoordinator(store, web, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Scope:          []string{},
		Query:          "leave policy",
		ForceWebSearch: true,
		Limits:         defaultLimits(),
	})

	assert.Zero(t, set.Count(domain.OriginInternal))
	assert.Equal(t, 1, set.Count(domain.OriginWeb))
}

func TestRetrieve_LeavePolicyScenario(t *testing.T) {
	store := seedStore(t, map[string][]string{
		"D1": {"Holidays are listed below.", "Our leave policy grants 25 days.", "Leave must be approved."},
	})
	web := &mockWebProvider{}
	r := NewRetrievalCoordinator(store, web, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Scope:  []string{"D1"},
		Query:  "What is the leave policy?",
		Limits: defaultLimits(),
	})

	require.NotEmpty(t, set.Items)
	top, ok := set.Items[0].(domain.InternalEvidence)
	require.True(t, ok)
	assert.Equal(t, "D1", top.Chunk.DocumentID)
	assert.Equal(t, 0, set.Count(domain.OriginWeb))
	search, extract := web.counts()
	assert.Zero(t, search)
	assert.Zero(t, extract)
	assertSorted(t, set.Items)
}

func TestRetrieve_ExactPhraseScoresOne(t *testing.T) {
	store := seedStore(t, map[string][]string{
		"D1": {"the leave policy is generous", "leave is approved by managers", "policy updates"},
	})
	r := NewRetrievalCoordinator(store, nil, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Scope: []string{"D1"}, Query: "leave policy", Limits: defaultLimits(),
	})

	require.Len(t, set.Items, 3)
	assert.InDelta(t, 1.0, set.Items[0].Score(), 1e-9)
	assert.InDelta(t, 0.9, set.Items[1].Score(), 1e-9)
	assert.InDelta(t, 0.5, set.Items[2].Score(), 1e-9)
	for _, e := range set.Items {
		assert.GreaterOrEqual(t, e.Score(), 0.5)
		assert.LessOrEqual(t, e.Score(), 1.0)
	}
}

func TestRetrieve_FallbackReturnsFirstChunks(t *testing.T) {
	store := seedStore(t, map[string][]string{
		"A": {"a0", "a1"},
		"B": {"b0", "b1", "b2"},
	})
	r := NewRetrievalCoordinator(store, nil, time.Second)

	tests := []struct {
		name        string
		maxInternal int
		want        []string
	}{
		{"fewer than available", 3, []string{"a0", "a1", "b0"}},
		{"more than available", 10, []string{"a0", "a1", "b0", "b1", "b2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := r.Retrieve(context.Background(), domain.RetrievalRequest{
				Scope:  []string{"B", "A"},
				Query:  "tell me about this",
				Limits: domain.Limits{MaxInternal: tt.maxInternal, MaxWeb: 3},
			})

			got := make([]string, len(set.Items))
			for i, e := range set.Items {
				ie := e.(domain.InternalEvidence)
				assert.True(t, ie.Fallback)
				assert.InDelta(t, 0.5, ie.Score(), 1e-9)
				got[i] = ie.Chunk.Content
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetrieve_DeletedDocumentYieldsNothing(t *testing.T) {
	store := seedStore(t, map[string][]string{"D1": {"leave policy"}})
	require.NoError(t, store.DeleteDocument(context.Background(), "D1"))
	r := NewRetrievalCoordinator(store, nil, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Scope: []string{"D1"}, Query: "leave policy", Limits: defaultLimits(),
	})

	assert.Empty(t, set.Items)
}

func TestRetrieve_ExtractBypassesSearch(t *testing.T) {
	web := &mockWebProvider{results: []domain.WebResult{{URL: "https://s", Score: 0.9}}}
	r := NewRetrievalCoordinator(memory.NewDocumentStore(), web, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Query:          "summarise https://example.com",
		Plan:           domain.Plan{ExtractURL: "https://example.com"},
		ForceWebSearch: true,
		Limits:         defaultLimits(),
	})

	search, extract := web.counts()
	assert.Zero(t, search)
	assert.Equal(t, 1, extract)
	require.Len(t, set.Items, 1)
	we := set.Items[0].(domain.WebEvidence)
	assert.True(t, we.Extracted)
	assert.InDelta(t, 1.0, we.Score(), 1e-9)
	assert.True(t, set.WebSearched)
}

func TestRetrieve_WebSearchCappedAtMaxWeb(t *testing.T) {
	web := &mockWebProvider{results: []domain.WebResult{
		{URL: "https://1", Score: 0.9}, {URL: "https://2", Score: 0.8},
		{URL: "https://3", Score: 0.85}, {URL: "https://4", Score: 0.95},
	}}
	r := NewRetrievalCoordinator(memory.NewDocumentStore(), web, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Query:  "latest news on interest rates",
		Plan:   domain.Plan{NeedsWebSearch: true},
		Limits: domain.Limits{MaxInternal: 5, MaxWeb: 2},
	})

	assert.Equal(t, 2, web.lastMax)
	assert.Equal(t, 2, set.Count(domain.OriginWeb))
	assertSorted(t, set.Items)
}

func TestRetrieve_WebDominatedAppliesFloor(t *testing.T) {
	store := seedStore(t, map[string][]string{"D1": {"interest rates rose", "unrelated"}})
	web := &mockWebProvider{results: []domain.WebResult{
		{URL: "https://1", Score: 0.9}, {URL: "https://2", Score: 0.6}, {URL: "https://3", Score: 0.8},
	}}
	r := NewRetrievalCoordinator(store, web, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Scope:  []string{"D1"},
		Query:  "latest interest rates",
		Plan:   domain.Plan{NeedsWebSearch: true},
		Limits: defaultLimits(),
	})

	require.NotEmpty(t, set.Items)
	for _, e := range set.Items {
		assert.GreaterOrEqual(t, e.Score(), webDominantFloor)
	}
	assertSorted(t, set.Items)
}

func TestRetrieve_WebFailureDegrades(t *testing.T) {
	store := seedStore(t, map[string][]string{"D1": {"leave policy"}})
	web := &mockWebProvider{searchErr: errors.New("503")}
	r := NewRetrievalCoordinator(store, web, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Scope: []string{"D1"}, Query: "leave policy", ForceWebSearch: true, Limits: defaultLimits(),
	})

	assert.Equal(t, 1, set.Count(domain.OriginInternal))
	assert.Zero(t, set.Count(domain.OriginWeb))
	assert.False(t, set.WebSearched)
}

func TestRetrieve_InternalFailureDegrades(t *testing.T) {
	store := failingDocStore{DocumentStore: memory.NewDocumentStore()}
	web := &mockWebProvider{results: []domain.WebResult{{URL: "https://1", Score: 0.9}}}
	r := NewRetrievalCoordinator(store, web, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Scope: []string{"D1"}, Query: "q", ForceWebSearch: true, Limits: defaultLimits(),
	})

	assert.Zero(t, set.Count(domain.OriginInternal))
	assert.Equal(t, 1, set.Count(domain.OriginWeb))
}

func TestRetrieve_BothEmptyIsValid(t *testing.T) {
	r := NewRetrievalCoordinator(memory.NewDocumentStore(), nil, time.Second)

	set := r.Retrieve(context.Background(), domain.RetrievalRequest{
		Query: "anything", ForceWebSearch: true, Limits: defaultLimits(),
	})

	assert.Empty(t, set.Items)
}

func TestSearchInternal_ReportsErrors(t *testing.T) {
	r := NewRetrievalCoordinator(failingDocStore{DocumentStore: memory.NewDocumentStore()}, nil, time.Second)

	_, err := r.SearchInternal(context.Background(), "q", []string{"D1"}, 5)

	assert.ErrorIs(t, err, domain.ErrRetrievalFailure)
}

func TestRescaleWebScores(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   []float64
	}{
		{"already normalised", []float64{0.9, 0.4}, []float64{0.9, 0.4}},
		{"divides by max", []float64{8, 4, 2}, []float64{1, 0.5, 0.25}},
		{"clamps negatives", []float64{-0.3, 0.5}, []float64{0, 0.5}},
		{"empty", nil, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]domain.WebResult, len(tt.scores))
			for i, s := range tt.scores {
				results[i] = domain.WebResult{Score: s}
			}
			got := rescaleWebScores(results)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestInterpolateScore(t *testing.T) {
	assert.InDelta(t, 0.9, interpolateScore(0, 1), 1e-9)
	assert.InDelta(t, 0.9, interpolateScore(0, 5), 1e-9)
	assert.InDelta(t, 0.7, interpolateScore(2, 5), 1e-9)
	assert.InDelta(t, 0.5, interpolateScore(4, 5), 1e-9)
}

func TestMergeEvidence_TiesPreferInternalThenOrder(t *testing.T) {
	internal := []domain.Evidence{
		domain.InternalEvidence{Chunk: domain.Chunk{ID: "i1"}, Relevance: 0.8},
		domain.InternalEvidence{Chunk: domain.Chunk{ID: "i2"}, Relevance: 0.8},
	}
	web := []domain.Evidence{
		domain.WebEvidence{URL: "w1", Relevance: 0.8},
		domain.WebEvidence{URL: "w2", Relevance: 0.9},
	}

	got := mergeEvidence(internal, web, domain.Limits{MaxInternal: 5, MaxWeb: 3})

	labels := make([]string, len(got))
	for i, e := range got {
		if ie, ok := e.(domain.InternalEvidence); ok {
			labels[i] = ie.Chunk.ID
		} else {
			labels[i] = e.Label()
		}
	}
	assert.Equal(t, []string{"w2", "i1", "i2", "w1"}, labels)
}

func TestMergeEvidence_TruncatesToTotal(t *testing.T) {
	var internal []domain.Evidence
	for i := 0; i < 4; i++ {
		internal = append(internal, domain.InternalEvidence{Relevance: 0.9})
	}
	web := []domain.Evidence{domain.WebEvidence{Relevance: 0.95}}

	got := mergeEvidence(internal, web, domain.Limits{MaxInternal: 2, MaxWeb: 1})

	assert.Len(t, got, 3)
	assert.Equal(t, domain.OriginWeb, got[0].Origin())
}
