package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// OpenAI calls a chat-completion model with the agent's personality and the
// scored signal, expecting strict JSON back. Any transport or schema failure
// surfaces as an error; the caller applies the fallback.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAI builds the advisor. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, logger *slog.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "advisor")),
	}
}

// Advise implements domain.Advisor.
func (o *OpenAI) Advise(ctx context.Context, req domain.AdvisoryRequest) (domain.AdvisoryResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.4,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	})
	if err != nil {
		return domain.AdvisoryResponse{}, fmt.Errorf("advisory call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.AdvisoryResponse{}, fmt.Errorf("%w: empty completion", domain.ErrAdvisorInvalid)
	}

	var out domain.AdvisoryResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return domain.AdvisoryResponse{}, fmt.Errorf("%w: %v", domain.ErrAdvisorInvalid, err)
	}
	if err := validateResponse(out); err != nil {
		return domain.AdvisoryResponse{}, err
	}
	return out, nil
}

var _ domain.Advisor = (*OpenAI)(nil)

func systemPrompt(req domain.AdvisoryRequest) string {
	return fmt.Sprintf(`You are %s, a trading agent on a bonding-curve token launchpad.
Personality: %s
Strategy: %s

Respond with ONLY a JSON object:
{"action":"BUY"|"SKIP"|"SELL","confidence":0-100,"reasoning":"...","targetAmount":optional number,"narrative":optional string,"risks":optional array of strings}`,
		req.AgentName, req.Personality, req.Strategy)
}

func userPrompt(req domain.AdvisoryRequest) string {
	var b strings.Builder
	t := req.Token
	fmt.Fprintf(&b, "Token %s (%s)\n", t.Symbol, t.Name)
	fmt.Fprintf(&b, "price=%.8f reserve=%.1f MON holders=%d curve=%.0f%% vol1h=%.0f chg1h=%.1f%% chg24h=%.1f%%\n",
		t.Price, t.ReserveMon, t.HolderCount, t.CurveProgress, t.Volume1h, t.PriceChange1h, t.PriceChange24h)
	fmt.Fprintf(&b, "Signal score %.0f in %s regime. Reasons:\n", req.Signal.Score, req.Signal.Regime)
	for _, r := range req.Signal.Reasons {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	fmt.Fprintf(&b, "Open positions: %d of %d max.\n", req.OpenHoldings, req.MaxPositions)
	if len(req.RecentTrades) > 0 {
		fmt.Fprintf(&b, "Recent outcomes:\n")
		for _, tr := range req.RecentTrades {
			if tr.Type != domain.TradeSell || tr.RealizedPnLUnits == nil {
				continue
			}
			fmt.Fprintf(&b, "- %s: %+.2f MON (%s)\n", tr.Symbol, float64(*tr.RealizedPnLUnits)/domain.UnitsPerMon, tr.Reason)
		}
	}
	b.WriteString("Decide whether to buy this token now.")
	return b.String()
}
