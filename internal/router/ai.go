package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chris-alexander-pop/system-design-library/internal/channel"
	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/chris-alexander-pop/system-design-library/internal/guardrail"
	"github.com/chris-alexander-pop/system-design-library/pkg/ai/genai/agents"
	"github.com/chris-alexander-pop/system-design-library/pkg/ai/genai/llm"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

// AIRouter routes content through a transformation agent holding one
// rendering tool per target channel (§4.6, §4.7). The agent decides
// per-channel phrasing; each tool call is a bounded side effect that
// invokes a ChannelAdapter and is filtered by the output guardrail before
// it ever reaches one.
type AIRouter struct {
	registry  *channel.Registry
	client    llm.Client
	guardrail *guardrail.Guardrail
}

// NewAIRouter constructs an AIRouter.
func NewAIRouter(registry *channel.Registry, client llm.Client, g *guardrail.Guardrail) *AIRouter {
	return &AIRouter{registry: registry, client: client, guardrail: g}
}

func (r *AIRouter) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	start := time.Now()

	inputResult := r.guardrail.FilterInput(req.Text)
	if inputResult.Blocked() {
		res := guardrailBlockedOutcome(req.Channels, inputResult.Reason)
		res.Duration = time.Since(start)
		return res, nil
	}

	collector := &outcomeCollector{}
	tools := make([]agents.Tool, 0, len(req.Channels))
	for _, c := range req.Channels {
		tools = append(tools, &channelTool{
			channel:   c,
			mediaRef:  req.MediaRef,
			recipient: req.RecipientRef,
			registry:  r.registry,
			guardrail: r.guardrail,
			collector: collector,
		})
	}

	agent := agents.New(r.client, tools)
	prompt := fmt.Sprintf(
		"Rephrase and deliver the following message to each of its target channels using the matching tool, in a tone appropriate for that channel:\n\n%s",
		inputResult.SanitizedText,
	)
	if _, err := agent.Run(ctx, prompt); err != nil {
		return PublishResult{}, err
	}

	outcomes := collector.resultsFor(req.Channels)
	return PublishResult{Outcomes: outcomes, Duration: time.Since(start)}, nil
}

var _ Router = (*AIRouter)(nil)

// outcomeCollector accumulates ChannelOutcome values recorded by concurrent
// tool executions keyed by channel.
type outcomeCollector struct {
	mu    sync.Mutex
	byKey map[domain.ChannelKind]ChannelOutcome
}

func (c *outcomeCollector) record(o ChannelOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byKey == nil {
		c.byKey = make(map[domain.ChannelKind]ChannelOutcome)
	}
	c.byKey[o.Channel] = o
}

// resultsFor returns one outcome per requested channel, synthesizing a
// failure for any channel the agent never called a tool for.
func (c *outcomeCollector) resultsFor(channels []domain.ChannelKind) []ChannelOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChannelOutcome, len(channels))
	for i, ch := range channels {
		if o, ok := c.byKey[ch]; ok {
			out[i] = o
			continue
		}
		out[i] = ChannelOutcome{Channel: ch, Success: false, Error: "agent never invoked this channel's tool", Category: channel.ErrorCategoryValidation}
	}
	return out
}

// channelTool is the per-channel rendering tool exposed to the agent. Its
// Execute method is the guardrail+adapter side effect described in §4.6.
type channelTool struct {
	channel   domain.ChannelKind
	mediaRef  string
	recipient string
	registry  *channel.Registry
	guardrail *guardrail.Guardrail
	collector *outcomeCollector
}

type channelToolArgs struct {
	Text string `json:"text"`
}

func (t *channelTool) Name() string { return "send_" + string(t.channel) }

func (t *channelTool) Description() string {
	return "Send rendered text to the " + string(t.channel) + " channel. Args: {\"text\": string}."
}

func (t *channelTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args channelToolArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		outcome := ChannelOutcome{Channel: t.channel, Success: false, Error: "malformed tool arguments", Category: channel.ErrorCategoryValidation}
		t.collector.record(outcome)
		return "", fmt.Errorf("malformed arguments for %s", t.Name())
	}

	outputResult := t.guardrail.FilterOutput(args.Text)
	if outputResult.Blocked() {
		logger.L().WarnContext(ctx, "guardrail replaced blocked output with placeholder text",
			"channel", t.channel, "reason", outputResult.Reason)
	}

	// A blocked result still carries SanitizedText: the neutral placeholder
	// rather than the original, so delivery proceeds with the substitute
	// instead of silently dropping the channel (§4.7).
	outcome := sendOne(ctx, t.registry, t.channel, channel.SendRequest{
		RecipientRef: t.recipient,
		Text:         outputResult.SanitizedText,
		MediaRef:     t.mediaRef,
	})
	t.collector.record(outcome)

	if outcome.Success {
		return "delivered", nil
	}
	return "failed: " + outcome.Error, nil
}

var _ agents.Tool = (*channelTool)(nil)
