package agent

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/docchat/pkg/llm"
)

// systemPrompt is injected ahead of history on every model call and never
// persisted, so policy edits take effect immediately without rewriting
// stored conversations.
const systemPrompt = `You are a helpful AI assistant.
Use the search_documents tool to answer questions about uploaded files.
Always cite your sources using [1], [2], etc. based on the tool output.
If the tool returns no results, inform the user that you couldn't find relevant information in the uploaded documents.
Use the list_documents tool when the user asks which files are available.
Answer clear general-knowledge questions directly without searching.
Maintain a conversational tone and remember previous parts of the chat.`

// PromptBuilder assembles token-budgeted prompts: the system instruction
// plus the newest history that fits the input budget.
type PromptBuilder struct {
	tokenizer *tiktoken.Tiktoken
	budget    int
}

// NewPromptBuilder creates a builder for the given model's tokenizer.
// maxTokens is the model's context window; reserve is held back for the
// model's own output.
func NewPromptBuilder(model string, maxTokens, reserve int) (*PromptBuilder, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	budget := maxTokens - reserve
	if budget <= 0 {
		return nil, fmt.Errorf("no input budget: context %d, reserve %d", maxTokens, reserve)
	}
	return &PromptBuilder{tokenizer: enc, budget: budget}, nil
}

func (b *PromptBuilder) countTokens(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

func (b *PromptBuilder) messageTokens(msg llm.Message) int {
	n := b.countTokens(msg.Content)
	for _, tc := range msg.ToolCalls {
		n += b.countTokens(tc.Function.Name)
		n += b.countTokens(string(tc.Function.Arguments))
	}
	return n
}

// Build returns the messages for one model call: the system instruction
// followed by the longest suffix of history that fits the budget. The most
// recent message is always included even when it alone exceeds the budget,
// so a turn can never build an empty prompt.
func (b *PromptBuilder) Build(history []llm.Message) []llm.Message {
	remaining := b.budget - b.countTokens(systemPrompt)

	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := b.messageTokens(history[i])
		if cost > remaining && start < len(history) {
			break
		}
		remaining -= cost
		start = i
	}

	messages := make([]llm.Message, 0, 1+len(history)-start)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, history[start:]...)
	return messages
}
