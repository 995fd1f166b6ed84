package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Generation parameters for answers.
const (
	answerTemperature    = 0.7
	answerMaxTokens      = 4096
	answerHistoryWindow  = 5
	plannerHistoryWindow = 3
	internalWeight       = 1.2
	webWeight            = 0.8
)

// defaultAnswerSystemPrompt is the fallback prompt when no PromptStore is configured.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const defaultAnswerSystemPrompt = `You are Sercha, a document assistant. You answer questions using the documents the user has uploaded and, when they are relevant, web sources.

Rules:
1. Ground answers in the provided documents. Cite document content inline as [Source: filename].
2. Format answers in clean markdown: headers, bullet points, numbered lists, **bold** for emphasis.
3. Keep answers concise and structured. Never use emojis.
4. Do not mention internal details such as "context", "chunks" or "retrieval".
5. For questions about current events, prefer web sources when they are present and include explicit dates.
6. When the available information is insufficient, say what is known and what is missing. Never invent facts.`

// defaultPlannerPrompt is the fallback prompt when no PromptStore is configured.
const defaultPlannerPrompt = `You decide whether a question needs live web search.
Answer "yes" when the question asks for current, latest, recent, breaking or real-time information
such as news, prices, weather, schedules or anything "as of now".
Answer "no" when the question is about uploaded documents or has a stable answer.
Reply with exactly one word: yes or no.`

// defaultAnswerWithContextPrompt expects the context block and the question.
const defaultAnswerWithContextPrompt = `### Retrieved Context:
%s

### User Question:
%s

### Instructions:
- Answer from the context above
- Cite sources inline when you use them
- Use markdown formatting
- If the context does not fully answer the question, say so clearly`

// defaultAnswerNoMatchPrompt expects the question.
const defaultAnswerNoMatchPrompt = `### User Question:
%s

### Instructions:
- Documents are attached to this conversation but none matched this question
- Do not claim that no documents are uploaded
- Ask a brief clarifying question or offer to summarise the documents
- If useful, give a best-effort answer and label the uncertainty
- Use markdown formatting`

// defaultAnswerGeneralPrompt expects the question.
const defaultAnswerGeneralPrompt = `### User Question:
%s

### Instructions:
- No documents are attached to this conversation
- Answer from general knowledge
- Use markdown formatting
- Be concise and helpful`

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		logger.Debug("Prompt %q unavailable, using default: %v", name, err)
		return fallback
	}
	return prompt
}

// promptBuilder assembles the messages sent to the completion provider.
type promptBuilder struct {
	prompts driven.PromptStore
}

// answerMessages builds the system prompt, recent history and the user
// message for one answer.
func (b promptBuilder) answerMessages(
	query string, history []domain.Message, evidence domain.EvidenceSet, docsScoped bool,
) []driven.ChatMessage {
	messages := []driven.ChatMessage{{
		Role:    string(domain.RoleSystem),
		Content: loadPrompt(b.prompts, driven.PromptAnswerSystem, defaultAnswerSystemPrompt),
	}}

	for _, m := range domain.LastMessages(history, answerHistoryWindow) {
		messages = append(messages, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	var user string
	switch {
	case len(evidence.Items) > 0:
		tmpl := loadPrompt(b.prompts, driven.PromptAnswerWithContext, defaultAnswerWithContextPrompt)
		user = fmt.Sprintf(tmpl, buildContext(evidence.Items), query)
	case docsScoped:
		tmpl := loadPrompt(b.prompts, driven.PromptAnswerNoMatch, defaultAnswerNoMatchPrompt)
		user = fmt.Sprintf(tmpl, query)
	default:
		tmpl := loadPrompt(b.prompts, driven.PromptAnswerGeneral, defaultAnswerGeneralPrompt)
		user = fmt.Sprintf(tmpl, query)
	}

	return append(messages, driven.ChatMessage{Role: string(domain.RoleUser), Content: user})
}

// plannerMessages builds the classification request for the LLM decider.
func (b promptBuilder) plannerMessages(query string, history []domain.Message) []driven.ChatMessage {
	messages := []driven.ChatMessage{{
		Role:    string(domain.RoleSystem),
		Content: loadPrompt(b.prompts, driven.PromptPlanner, defaultPlannerPrompt),
	}}
	for _, m := range domain.LastMessages(history, plannerHistoryWindow) {
		messages = append(messages, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return append(messages, driven.ChatMessage{Role: string(domain.RoleUser), Content: query})
}

// buildContext renders evidence as markdown, documents first.
func buildContext(items []domain.Evidence) string {
	var internal, web []domain.Evidence
	for _, e := range items {
		if e.Origin() == domain.OriginInternal {
			internal = append(internal, e)
		} else {
			web = append(web, e)
		}
	}

	var b strings.Builder
	if len(internal) > 0 {
		b.WriteString("## Documents:\n\n")
		for _, e := range internal {
			fmt.Fprintf(&b, "### [%s] (Relevance: %d%%)\n%s\n\n", e.Label(), int(e.Score()*100), e.Snippet())
		}
	}
	if len(web) > 0 {
		b.WriteString("## Web Sources:\n\n")
		for _, e := range web {
			fmt.Fprintf(&b, "### [%s]\n%s\n\n", e.Label(), e.Snippet())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// confidence weights internal evidence up and web evidence down, averaged
// and capped at 1.
func confidence(items []domain.Evidence) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, e := range items {
		if e.Origin() == domain.OriginInternal {
			sum += e.Score() * internalWeight
		} else {
			sum += e.Score() * webWeight
		}
	}
	avg := sum / float64(len(items))
	if avg > 1 {
		return 1
	}
	return avg
}

// promptChars counts the characters sent to the provider.
func promptChars(messages []driven.ChatMessage) int {
	n := 0
	for _, m := range messages {
		n += len([]rune(m.Content))
	}
	return n
}
