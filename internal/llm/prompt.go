package llm

import "strings"

// Fixed answers for degraded paths. The query endpoint never fails a request
// because the model misbehaved; it answers with one of these instead.
const (
	AnswerNoContext  = "I couldn't find relevant information in the documents."
	AnswerEmpty      = "I couldn't generate an answer from the given context."
	AnswerModelError = "Error generating answer from the local model."
)

// SystemPrompt is sent as the system-role message on every chat request.
const SystemPrompt = "You are a factual assistant."

// BuildPrompt assembles the grounding prompt from retrieved chunks and the
// user's question. The model is instructed to refuse when the context does
// not contain the answer.
func BuildPrompt(question string, chunks []string) string {
	var b strings.Builder
	b.WriteString("Use the following context to answer the question. ")
	b.WriteString("If the answer is not contained in the context, reply with: 'I don't know from the provided documents.'\n\n")
	b.WriteString("Context:\n")
	for _, chunk := range chunks {
		b.WriteString(chunk)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
