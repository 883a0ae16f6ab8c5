// Package openai implements llm.Provider against OpenAI-compatible
// chat-completions and embeddings endpoints (OpenAI, Groq, Ollama, vLLM).
package openai

import "github.com/user/docchat/pkg/llm"

// Compile-time interface compliance checks.
var _ llm.Provider = (*Client)(nil)
