package ai

import "context"

// EmbedTask tells providers with asymmetric embeddings which side of a
// retrieval the texts are on.
type EmbedTask int

const (
	// EmbedDocument is the default: texts are stored and searched.
	EmbedDocument EmbedTask = iota
	EmbedQuery
)

type embedTaskKey struct{}

// WithEmbedTask tags ctx so Embed calls made under it use task.
func WithEmbedTask(ctx context.Context, task EmbedTask) context.Context {
	return context.WithValue(ctx, embedTaskKey{}, task)
}

// EmbedTaskFrom returns the task carried by ctx, EmbedDocument if none.
func EmbedTaskFrom(ctx context.Context) EmbedTask {
	if t, ok := ctx.Value(embedTaskKey{}).(EmbedTask); ok {
		return t
	}
	return EmbedDocument
}

// geminiTaskType maps the task onto the Gemini embedding task names.
func geminiTaskType(ctx context.Context) string {
	if EmbedTaskFrom(ctx) == EmbedQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}
