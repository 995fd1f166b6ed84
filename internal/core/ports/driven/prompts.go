package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswerSystem is the system prompt for answer generation.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptPlanner asks for a yes/no web search decision.
	// This prompt has no format placeholders.
	PromptPlanner = "planner"

	// PromptAnswerWithContext wraps retrieved evidence and the question.
	// The template expects %s (context) and %s (question) placeholders.
	PromptAnswerWithContext = "answer_with_context"

	// PromptAnswerNoMatch is used when documents are scoped but nothing matched.
	// The template expects a %s placeholder for the question.
	PromptAnswerNoMatch = "answer_no_match"

	// PromptAnswerGeneral is used when no documents are scoped.
	// The template expects a %s placeholder for the question.
	PromptAnswerGeneral = "answer_general"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
