package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/strainguard/injury-risk-backend/internal/risk"
)

// ollamaClient is the concrete Generator backed by an Ollama-compatible
// /api/generate endpoint.
type ollamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaClient returns a Generator that calls an Ollama server.
//   - baseURL: e.g. "http://localhost:11434"
//   - model:   e.g. "llama3.1"
//   - timeout: per-request deadline; a timed-out call fails like any other
func NewOllamaClient(baseURL, model string, timeout time.Duration) Generator {
	return &ollamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ─── OLLAMA API SHAPES ────────────────────────────────────────────────────────

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	// Low temperature keeps the plan deterministic-leaning, not strictly
	// deterministic.
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

const systemInstruction = `You are a conservative strength-training recovery coach.
You never diagnose medical conditions. When pain is severe (7+/10) or red-flag
symptoms are present, you always advise consulting a licensed clinician.
You will receive an athlete's training inputs and a computed injury risk result.

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble:
{
  "summary": "1-2 sentence summary of the risk level",
  "top_drivers": ["up to three driver strings"],
  "week_plan": {
    "keep": ["ordered actions to keep doing"],
    "reduce": ["ordered actions to reduce"],
    "add": ["ordered actions to add"]
  },
  "red_flags": ["warning signs that warrant professional evaluation"]
}`

// Generate builds the prompt, makes exactly one non-streaming call to the
// Ollama endpoint, and parses the returned text as a plan candidate. Every
// failure path — transport error, non-2xx status, empty body, non-JSON text,
// missing required keys — collapses into an error return; the orchestrator
// substitutes the fallback plan.
func (c *ollamaClient) Generate(ctx context.Context, in risk.Input, res risk.Result) (Plan, error) {
	reqBody := ollamaRequest{
		Model:   c.model,
		Prompt:  buildPrompt(in, res),
		Stream:  false,
		Options: ollamaOptions{Temperature: 0.2},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return Plan{}, err
	}

	// Strip any accidental markdown fences the model may have added.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return Plan{}, fmt.Errorf("ollama: empty response text")
	}

	// Minimal shape check before the full unmarshal: the candidate must be a
	// JSON object carrying a summary string and a week_plan object. Full
	// structural conformance is the orchestrator's job (Plan.Validate).
	var probe struct {
		Summary  *string         `json:"summary"`
		WeekPlan json.RawMessage `json:"week_plan"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return Plan{}, fmt.Errorf("ollama: response is not a JSON object: %w (raw: %.200s)", err, raw)
	}
	if probe.Summary == nil {
		return Plan{}, fmt.Errorf("ollama: response is missing the summary field")
	}
	trimmedPlan := bytes.TrimSpace(probe.WeekPlan)
	if len(trimmedPlan) == 0 || trimmedPlan[0] != '{' {
		return Plan{}, fmt.Errorf("ollama: response week_plan is missing or not an object")
	}

	var plan Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return Plan{}, fmt.Errorf("ollama: parse plan JSON: %w (raw: %.200s)", err, raw)
	}

	return plan, nil
}

// call sends one request to the Ollama generate endpoint and returns the text
// of the response field.
func (c *ollamaClient) call(ctx context.Context, reqBody ollamaRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("ollama: read response body: %w", err)
	}

	if len(bytes.TrimSpace(respBytes)) == 0 {
		return "", fmt.Errorf("ollama: empty response body (status %d)", resp.StatusCode)
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("ollama: unmarshal response: %w", err)
	}

	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: API error: %s", parsed.Error)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return parsed.Response, nil
}

// buildPrompt serialises the input and risk result into a compact prompt.
func buildPrompt(in risk.Input, res risk.Result) string {
	var sb strings.Builder
	sb.WriteString(systemInstruction)
	sb.WriteString("\n\nAthlete inputs:\n")

	fmt.Fprintf(&sb, "training_days_per_week: %d\n", in.TrainingDaysPerWeek)
	fmt.Fprintf(&sb, "session_minutes: %d\n", in.SessionMinutes)
	fmt.Fprintf(&sb, "rpe: %d/10\n", in.RPE)
	fmt.Fprintf(&sb, "weekly_sets: %d\n", in.WeeklySets)
	fmt.Fprintf(&sb, "rest_days_per_week: %d\n", in.RestDaysPerWeek)
	fmt.Fprintf(&sb, "sleep_hours: %g\n", in.SleepHours)
	fmt.Fprintf(&sb, "pain_score: %d/10\n", in.PainScore)
	fmt.Fprintf(&sb, "pain_location: %s\n", in.PainLocation)
	fmt.Fprintf(&sb, "experience_level: %s\n", in.ExperienceLevel)

	sb.WriteString("\nComputed risk result:\n")
	fmt.Fprintf(&sb, "risk_score: %d/100, risk_level: %s\n", res.Score, res.Level)
	for _, f := range res.TopFactors {
		fmt.Fprintf(&sb, "factor: %s\n", f)
	}
	for _, r := range res.Recommendations {
		fmt.Fprintf(&sb, "recommendation: %s\n", r)
	}

	return sb.String()
}
