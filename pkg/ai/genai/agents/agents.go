// Package agents implements a small tool-calling agent loop over an
// llm.Client: the model is given a system prompt enumerating its tools and
// may respond with tool calls, which the Agent executes and feeds back as
// tool messages, until it produces a final answer or hits the iteration cap.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/chris-alexander-pop/system-design-library/pkg/ai/genai/llm"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

const maxIterations = 5

// Tool is a single capability an Agent may invoke.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, argsJSON string) (string, error)
}

// Agent drives the tool-calling loop for one llm.Client against a fixed
// set of tools.
type Agent struct {
	client llm.Client
	tools  []Tool
}

// New constructs an Agent.
func New(client llm.Client, tools []Tool) *Agent {
	return &Agent{client: client, tools: tools}
}

// buildSystemPrompt enumerates the agent's tools, one per line, for the
// model's system message.
func (a *Agent) buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an assistant with access to the following tools:\n")
	for _, t := range a.tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	return b.String()
}

func (a *Agent) toolDefinitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        t.Name(),
				Description: t.Description(),
			},
		})
	}
	return defs
}

// Run drives the agent loop to completion: the model is invoked repeatedly,
// each tool call it emits is executed and fed back, until it returns a
// final non-tool-call response or the iteration cap is reached.
func (a *Agent) Run(ctx context.Context, userInput string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.buildSystemPrompt()},
		{Role: llm.RoleUser, Content: userInput},
	}
	toolDefs := a.toolDefinitions()

	for i := 0; i < maxIterations; i++ {
		gen, err := a.client.Chat(ctx, messages, llm.WithTools(toolDefs))
		if err != nil {
			return "", errors.Internal("agent chat call failed", err)
		}

		if gen.FinishReason != "tool_calls" || len(gen.Message.ToolCalls) == 0 {
			return gen.Message.Content, nil
		}

		messages = append(messages, gen.Message)
		for _, call := range gen.Message.ToolCalls {
			result, err := a.executeTool(ctx, call)
			if err != nil {
				result = "error: " + err.Error()
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	return "", errors.New(errors.CodeInternal, "agent exceeded max tool-call iterations", nil)
}

func (a *Agent) executeTool(ctx context.Context, call llm.ToolCall) (string, error) {
	for _, t := range a.tools {
		if t.Name() == call.Function.Name {
			return t.Execute(ctx, call.Function.Arguments)
		}
	}
	return "", fmt.Errorf("tool not found: %s", call.Function.Name)
}

// MockTool is a minimal Tool used by tests that only need name/description
// plumbing, not real execution.
type MockTool struct {
	name        string
	description string
}

func (m MockTool) Name() string        { return m.name }
func (m MockTool) Description() string { return m.description }
func (m MockTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	return "", nil
}

// MockClient is a minimal llm.Client used by tests that don't exercise a
// real model call.
type MockClient struct{}

func (MockClient) Chat(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (*llm.Generation, error) {
	return &llm.Generation{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: "mock response"},
		FinishReason: "stop",
	}, nil
}

var _ llm.Client = MockClient{}
