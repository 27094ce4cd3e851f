package filings

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as a citation-disciplined filing analyst.
const SystemPrompt = `You are a financial analyst assistant that answers questions about SEC filings (10-K, 10-Q, 8-K and similar).

Your responsibilities:
- Answer only from the provided context
- Cite every fact or figure with the numbered citations [1], [2], [3]
- Be precise with financial data, dates and percentages
- When the context is insufficient, say: "I don't have enough information in the available filings to answer this question."`

// NoContextResponse is returned without calling the model when retrieval
// finds nothing.
const NoContextResponse = `I don't have enough information in the available SEC filings to answer this question.

This could be because:
- The information hasn't been uploaded to the database yet
- The question relates to data not typically found in SEC filings
- The search didn't find relevant sections

Please try:
- Rephrasing your question
- Being more specific about what you're looking for
- Checking if the relevant SEC filing has been processed`

// FormatContext numbers chunks as "[i] content" separated by blank lines.
func FormatContext(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt renders the user turn for question over the numbered context.
func BuildPrompt(context, question string) string {
	return fmt.Sprintf(`Context from SEC filings:

%s

Question: %s

Instructions:
- Answer the question using ONLY the information provided in the context above
- Cite every fact using the numbered citations that correspond to the context sources
- If the context doesn't contain the answer, say so clearly
- Be concise but complete in your answer

Answer:`, context, question)
}
