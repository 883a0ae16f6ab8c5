package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/docchat/internal/types"
	"github.com/user/docchat/pkg/llm"
)

// ErrTooManyRounds is returned when a turn exhausts its tool-call budget
// without the model producing a final answer.
var ErrTooManyRounds = errors.New("too many tool rounds")

const rateLimitReply = "I'm sorry, but I've reached my rate limit for now. Please try again in a few moments."

// Loop runs conversational turns: stream a model response, execute any
// requested tools, feed results back, repeat until the model answers in
// plain text or the round budget runs out.
type Loop struct {
	provider  llm.Provider
	prompts   *PromptBuilder
	history   *HistoryStore
	registry  *Registry
	maxRounds int
	logger    *slog.Logger
}

func NewLoop(provider llm.Provider, prompts *PromptBuilder, history *HistoryStore, registry *Registry, maxRounds int, logger *slog.Logger) *Loop {
	if maxRounds <= 0 {
		maxRounds = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		provider:  provider,
		prompts:   prompts,
		history:   history,
		registry:  registry,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Run executes one turn for the given thread, projecting progress through p.
// It does not emit the terminal or error events; the caller owns stream
// lifecycle.
func (l *Loop) Run(ctx context.Context, thread types.ThreadID, query string, p *Projector) error {
	p.Begin()
	l.history.Append(thread, llm.Message{Role: llm.RoleUser, Content: query})

	for round := 0; round < l.maxRounds; round++ {
		messages := l.prompts.Build(l.history.Get(thread))

		assistant, err := l.streamResponse(ctx, messages, p)
		if err != nil {
			if llm.IsRateLimit(err) {
				l.logger.Warn("model rate limited", "thread", thread)
				l.history.Append(thread, llm.Message{Role: llm.RoleAssistant, Content: rateLimitReply})
				p.Text(rateLimitReply)
				return nil
			}
			return fmt.Errorf("model call: %w", err)
		}

		l.history.Append(thread, assistant)

		if len(assistant.ToolCalls) == 0 {
			return nil
		}

		for _, call := range assistant.ToolCalls {
			p.ToolStart(call.Function.Name)
			result := l.execute(ctx, call)
			if len(result.Sources) > 0 {
				p.Sources(result.Sources)
			}
			l.history.Append(thread, llm.Message{
				Role:       llm.RoleTool,
				Content:    result.Content,
				ToolCallID: call.ID,
			})
		}
	}

	return ErrTooManyRounds
}

// streamResponse drives one model call, forwarding content deltas to the
// projector and assembling the full assistant message.
func (l *Loop) streamResponse(ctx context.Context, messages []llm.Message, p *Projector) (llm.Message, error) {
	deltas, err := l.provider.Stream(ctx, messages, l.registry.AsLLMTools())
	if err != nil {
		return llm.Message{}, err
	}

	var content strings.Builder
	var toolCalls []llm.ToolCall
	for d := range deltas {
		if d.Err != nil {
			return llm.Message{}, d.Err
		}
		if d.Content != "" {
			content.WriteString(d.Content)
			p.Text(d.Content)
		}
		toolCalls = append(toolCalls, d.ToolCalls...)
	}
	if err := ctx.Err(); err != nil {
		return llm.Message{}, err
	}

	return llm.Message{
		Role:      llm.RoleAssistant,
		Content:   content.String(),
		ToolCalls: toolCalls,
	}, nil
}

// execute runs a single tool call. Failures are folded into the result
// content so the model can recover instead of aborting the turn.
func (l *Loop) execute(ctx context.Context, call llm.ToolCall) ToolResult {
	tool, ok := l.registry.Get(call.Function.Name)
	if !ok {
		l.logger.Warn("unknown tool requested", "tool", call.Function.Name)
		return ToolResult{Content: fmt.Sprintf("Error: unknown tool %q", call.Function.Name)}
	}
	result, err := tool.Execute(ctx, call.Function.Arguments)
	if err != nil {
		l.logger.Error("tool execution failed", "tool", call.Function.Name, "error", err)
		return ToolResult{Content: fmt.Sprintf("Error executing %s: %v", call.Function.Name, err)}
	}
	return result
}
