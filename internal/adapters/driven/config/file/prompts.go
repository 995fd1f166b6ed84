package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves prompt templates from <dir>/<name>.txt. The directory is
// seeded with the built-in templates on first Load, never in the constructor.
// A file that is missing, unreadable or has the wrong number of %s
// placeholders is replaced by the built-in template.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// placeholders is the number of %s verbs each template is formatted with.
var placeholders = map[string]int{
	driven.PromptAnswerSystem:      0,
	driven.PromptPlanner:           0,
	driven.PromptAnswerWithContext: 2,
	driven.PromptAnswerNoMatch:     1,
	driven.PromptAnswerGeneral:     1,
}

var promptDescriptions = map[string]string{
	driven.PromptAnswerSystem:      "System prompt for every answer",
	driven.PromptPlanner:           "Decides whether a question needs web search (reply yes or no)",
	driven.PromptAnswerWithContext: "Wraps retrieved sources and the question",
	driven.PromptAnswerNoMatch:     "Used when documents are attached but none matched",
	driven.PromptAnswerGeneral:     "Used when no documents are attached",
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: `You are Sercha, a document assistant. You answer questions using the documents the user has uploaded and, when they are relevant, web sources.

Rules:
1. Ground answers in the provided documents. Cite document content inline as [Source: filename].
2. Format answers in clean markdown: headers, bullet points, numbered lists, **bold** for emphasis.
3. Keep answers concise and structured. Never use emojis.
4. Do not mention internal details such as "context", "chunks" or "retrieval".
5. For questions about current events, prefer web sources when they are present and include explicit dates.
6. When the available information is insufficient, say what is known and what is missing. Never invent facts.`,

	driven.PromptPlanner: `You decide whether a question needs live web search.
Answer "yes" when the question asks for current, latest, recent, breaking or real-time information
such as news, prices, weather, schedules or anything "as of now".
Answer "no" when the question is about uploaded documents or has a stable answer.
Reply with exactly one word: yes or no.`,

	driven.PromptAnswerWithContext: `### Retrieved Context:
%s

### User Question:
%s

### Instructions:
- Answer from the context above
- Cite sources inline when you use them
- Use markdown formatting
- If the context does not fully answer the question, say so clearly`,

	driven.PromptAnswerNoMatch: `### User Question:
%s

### Instructions:
- Documents are attached to this conversation but none matched this question
- Do not claim that no documents are uploaded
- Ask a brief clarifying question or offer to summarise the documents
- If useful, give a best-effort answer and label the uncertainty
- Use markdown formatting`,

	driven.PromptAnswerGeneral: `### User Question:
%s

### Instructions:
- No documents are attached to this conversation
- Answer from general knowledge
- Use markdown formatting
- Be concise and helpful`,
}

// NewPromptStore creates a prompt store rooted at promptDir, or
// ~/.sercha-rag/prompts when promptDir is empty.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, DefaultDirName, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := defaultPrompts[name]

	s.initOnce.Do(s.seed)
	if s.initErr != nil {
		if known {
			return builtin, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.read(name)
	switch {
	case err != nil && !known:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case err != nil:
		prompt = builtin
	case known && strings.Count(prompt, "%s") != placeholders[name]:
		logger.Warn("Prompt %s needs %d %%s placeholder(s), using the built-in template",
			s.path(name), placeholders[name])
		prompt = builtin
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload drops cached templates so edited files are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// seed writes any built-in template and the README that are not on disk yet.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{"README.md": readme()}
	for name, content := range defaultPrompts {
		files[name+".txt"] = content
	}
	for file, content := range files {
		path := filepath.Join(s.promptDir, file)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.initErr = fmt.Errorf("create %s: %w", file, err)
			return
		}
	}
}

func readme() string {
	names := make([]string, 0, len(promptDescriptions))
	for name := range promptDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Sercha RAG Prompts\n\n")
	b.WriteString("Templates used to plan and answer questions. Edit a file and restart the\n")
	b.WriteString("server to change the assistant's behaviour. Delete a file to restore the\n")
	b.WriteString("built-in version on next start.\n\n")
	b.WriteString("| File | Purpose | %s placeholders |\n|---|---|---|\n")
	for _, name := range names {
		fmt.Fprintf(&b, "| `%s.txt` | %s | %d |\n", name, promptDescriptions[name], placeholders[name])
	}
	b.WriteString("\nanswer_with_context takes the sources first, then the question. A file\n")
	b.WriteString("with the wrong number of placeholders is ignored.\n")
	return b.String()
}
