// Package gateway invokes the external reasoning service to score a customer
// from aggregated metrics, enforcing a strict response contract. An
// unvalidated response is worse than no response: any violation fails closed
// with a tagged error and the caller decides what to do.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/payscore/internal/model"
	"github.com/sells-group/payscore/internal/resilience"
	"github.com/sells-group/payscore/internal/scoring"
	"github.com/sells-group/payscore/pkg/anthropic"
)

const systemPrompt = `You are a credit analyst evaluating a customer's payment behavior for an accounting system. You receive aggregated invoice metrics, never raw records. Assess the risk that future invoices will be paid late or not at all.

Respond with ONLY valid JSON, no markdown, no extra text:
{"payment_score": <number 0-100, higher is safer>, "risk_level": "low | medium | high", "recommended_action": "none | friendly_reminder | immediate_followup", "insights": "<2-3 sentence business explanation>"}`

const userPromptFormat = `Customer payment metrics:
%s

Return the JSON object described in the instructions.`

// scoreEpsilon tolerates marginal rounding drift on payment_score. Values
// beyond the epsilon are rejected, not clamped.
const scoreEpsilon = 0.5

// Config holds the reasoning gateway settings.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
	RatePerSec  float64
	Bands       scoring.Bands
}

// Gateway evaluates metric summaries through the Anthropic API.
type Gateway struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates a Gateway. The rate limiter guards the reasoning service's
// per-caller limits across concurrent bulk scoring.
func New(client anthropic.Client, cfg Config) *Gateway {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 4
	}
	if cfg.Bands.LowMin == 0 && cfg.Bands.MediumMin == 0 {
		cfg.Bands = scoring.DefaultBands()
	}
	return &Gateway{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// evaluation is the response contract the reasoning service must honor.
type evaluation struct {
	PaymentScore      *float64 `json:"payment_score"`
	RiskLevel         string   `json:"risk_level"`
	RecommendedAction string   `json:"recommended_action"`
	Insights          string   `json:"insights"`
}

// Evaluate renders the summary into a prompt, invokes the reasoning service
// with a bounded timeout and a single capped retry, and validates the
// response. Only the MetricSummary fields are ever transmitted. On success
// the returned score carries Source=ai with tier and action re-derived from
// the numeric score; the model's own tier strings are validated but never
// authoritative.
func (g *Gateway) Evaluate(ctx context.Context, summary model.MetricSummary) (model.CustomerScore, error) {
	var zero model.CustomerScore

	if err := g.limiter.Wait(ctx); err != nil {
		return zero, newError(classifyCallError(err), err)
	}

	prompt, err := buildPrompt(summary)
	if err != nil {
		return zero, newError(KindMalformed, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	temp := g.cfg.Temperature
	resp, err := resilience.DoVal(callCtx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       g.cfg.Model,
			MaxTokens:   g.cfg.MaxTokens,
			System:      systemPrompt,
			Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
			Temperature: &temp,
		})
	})
	if err != nil {
		return zero, newError(classifyCallError(err), err)
	}

	resp.Usage.LogCost(g.cfg.Model, "risk-analysis")

	eval, err := parseEvaluation(extractText(resp))
	if err != nil {
		return zero, err
	}

	score, err := validateScore(*eval.PaymentScore)
	if err != nil {
		return zero, err
	}

	risk, action := g.cfg.Bands.Classify(score)

	zap.L().Debug("gateway: evaluation accepted",
		zap.Float64("payment_score", score),
		zap.String("risk_level", string(risk)),
	)

	return model.CustomerScore{
		Score:     score,
		RiskLevel: risk,
		Action:    action,
		Insights:  strings.TrimSpace(eval.Insights),
		Source:    model.SourceAI,
		Summary:   summary,
	}, nil
}

// buildPrompt renders exactly the MetricSummary fields as an indented JSON
// block. Raw invoice or payment records are never transmitted.
func buildPrompt(summary model.MetricSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(userPromptFormat, data), nil
}

// parseEvaluation decodes the response text and enforces the field contract.
func parseEvaluation(text string) (*evaluation, error) {
	cleaned := cleanJSON(text)

	var eval evaluation
	if err := json.Unmarshal([]byte(cleaned), &eval); err != nil {
		return nil, newError(KindMalformed, fmt.Errorf("decode response: %w", err))
	}

	if eval.PaymentScore == nil {
		return nil, newError(KindMalformed, errors.New("missing payment_score"))
	}
	if _, err := model.ParseRiskLevel(eval.RiskLevel); err != nil {
		return nil, newError(KindMalformed, err)
	}
	if _, err := model.ParseAction(eval.RecommendedAction); err != nil {
		return nil, newError(KindMalformed, err)
	}
	if strings.TrimSpace(eval.Insights) == "" {
		return nil, newError(KindMalformed, errors.New("empty insights"))
	}

	return &eval, nil
}

// validateScore clamps marginal rounding drift and rejects values wildly out
// of the [0,100] range.
func validateScore(score float64) (float64, error) {
	if score < -scoreEpsilon || score > 100+scoreEpsilon {
		return 0, newError(KindOutOfRange, fmt.Errorf("payment_score %v outside [0,100]", score))
	}
	return math.Min(100, math.Max(0, score)), nil
}

// classifyCallError maps a transport failure onto an ErrorKind.
func classifyCallError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "authentication") {
		return KindUnauthorized
	}
	if strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout") {
		return KindTimeout
	}
	return KindUnreachable
}

// extractText concatenates all text content blocks.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
