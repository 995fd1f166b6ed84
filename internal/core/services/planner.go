package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Decider answers whether a query needs live web evidence.
type Decider interface {
	Decide(ctx context.Context, query string, history []domain.Message) (bool, error)
}

// Ensure deciders implement the interface.
var (
	_ Decider = (*KeywordDecider)(nil)
	_ Decider = (*LLMDecider)(nil)
	_ Decider = (*FallbackDecider)(nil)
)

// freshnessPatterns match questions about current or recent events.
var freshnessPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btoday'?s?\b`),
	regexp.MustCompile(`\b(latest|current|recent|breaking|live)\b`),
	regexp.MustCompile(`\b(news|headline|headlines|update|updates)\b`),
	regexp.MustCompile(`\b(as of|right now)\b`),
	regexp.MustCompile(`\b(this week|this month|this year)\b`),
}

// KeywordDecider flags queries containing freshness terms. It never errors.
type KeywordDecider struct{}

// NewKeywordDecider creates a keyword heuristic decider.
func NewKeywordDecider() *KeywordDecider {
	return &KeywordDecider{}
}

// Decide reports whether any freshness term occurs in the query.
func (d *KeywordDecider) Decide(_ context.Context, query string, _ []domain.Message) (bool, error) {
	lower := strings.ToLower(query)
	for _, p := range freshnessPatterns {
		if p.MatchString(lower) {
			return true, nil
		}
	}
	return false, nil
}

// LLMDecider asks the completion provider for a yes/no classification.
type LLMDecider struct {
	llm     driven.LLMService
	prompts promptBuilder
	timeout time.Duration
}

// NewLLMDecider creates a provider-backed decider. A zero timeout means the
// caller's context is the only bound.
func NewLLMDecider(llm driven.LLMService, timeout time.Duration) *LLMDecider {
	return &LLMDecider{llm: llm, timeout: timeout}
}

// SetPromptStore sets the prompt store for loading the planner prompt.
func (d *LLMDecider) SetPromptStore(store driven.PromptStore) {
	d.prompts.prompts = store
}

// Decide classifies the query. Output other than "yes" counts as no.
func (d *LLMDecider) Decide(ctx context.Context, query string, history []domain.Message) (bool, error) {
	if d.llm == nil {
		return false, fmt.Errorf("%w: %w", domain.ErrPlannerFailure, domain.ErrLLMUnavailable)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	reply, err := d.llm.Chat(ctx, d.prompts.plannerMessages(query, history), driven.ChatOptions{
		MaxTokens:   5,
		Temperature: 0,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrPlannerFailure, err)
	}

	return parseYesNo(reply), nil
}

// parseYesNo maps a classification reply onto a boolean.
func parseYesNo(reply string) bool {
	answer := strings.ToLower(strings.TrimSpace(reply))
	answer = strings.TrimRight(answer, ".!\"' ")
	answer = strings.TrimLeft(answer, "\"' ")
	return answer == "yes"
}

// FallbackDecider consults primary and, when it fails, fallback.
type FallbackDecider struct {
	primary  Decider
	fallback Decider
}

// NewFallbackDecider chains two deciders.
func NewFallbackDecider(primary, fallback Decider) *FallbackDecider {
	return &FallbackDecider{primary: primary, fallback: fallback}
}

// Decide returns the primary decision unless it errored.
func (d *FallbackDecider) Decide(ctx context.Context, query string, history []domain.Message) (bool, error) {
	needs, err := d.primary.Decide(ctx, query, history)
	if err == nil {
		return needs, nil
	}
	logger.Warn("Planner classification failed, using fallback: %v", err)
	return d.fallback.Decide(ctx, query, history)
}

// urlPattern finds absolute http(s) URLs in free text.
var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

// ExtractURL returns the first valid absolute URL in text, or "".
// Trailing sentence punctuation is not part of the URL.
func ExtractURL(text string) string {
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		candidate = strings.TrimRight(candidate, ".,;:!?)'")
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		return candidate
	}
	return ""
}

// Planner decides per message between URL extraction, web search and
// internal evidence only.
type Planner struct {
	decider Decider
}

// NewPlanner creates a planner. A nil decider uses the keyword heuristic.
func NewPlanner(decider Decider) *Planner {
	if decider == nil {
		decider = NewKeywordDecider()
	}
	return &Planner{decider: decider}
}

// NewDefaultPlanner builds the LLM decider with keyword fallback. Without a
// provider the keyword heuristic is used directly.
func NewDefaultPlanner(llm driven.LLMService, timeout time.Duration, prompts driven.PromptStore) *Planner {
	if llm == nil {
		return NewPlanner(NewKeywordDecider())
	}
	primary := NewLLMDecider(llm, timeout)
	primary.SetPromptStore(prompts)
	return NewPlanner(NewFallbackDecider(primary, NewKeywordDecider()))
}

// Plan inspects a message. A URL in the message takes precedence and the
// decider is not consulted.
func (p *Planner) Plan(ctx context.Context, message string, history []domain.Message) domain.Plan {
	if u := ExtractURL(message); u != "" {
		logger.Debug("Planner: extracting %s", u)
		return domain.Plan{ExtractURL: u}
	}

	needs, err := p.decider.Decide(ctx, message, history)
	if err != nil {
		// Only reachable with a bare LLMDecider.
		logger.Warn("Planner decision failed: %v", err)
		return domain.Plan{}
	}
	logger.Debug("Planner: needs web search=%t", needs)
	return domain.Plan{NeedsWebSearch: needs}
}
