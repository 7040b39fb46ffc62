package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"laundry-aura-backend/config"
	"laundry-aura-backend/internal/laundry"
)

// Prediction is the delay forecast for one cycle.
type Prediction struct {
	DelayMinutes int    `json:"delayMinutes"`
	Message      string `json:"message"`
}

// Client talks to the Gemini API for delay predictions and chat replies.
// Every call degrades to a local heuristic on transport failure, auth
// failure, or a malformed response; callers never see an error and must
// never block on this collaborator.
type Client struct {
	cfg     config.AIConfig
	apiKey  string
	client  *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter
}

// NewClient creates a client from configuration. A missing API key just
// means every call takes the fallback path.
func NewClient(cfg config.AIConfig) *Client {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if cfg.Enabled && apiKey == "" {
		log.Printf("AI is enabled but %s is not set; falling back to local heuristics", cfg.APIKeyEnv)
	}
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	interval := time.Duration(cfg.MinRequestIntervalMillis) * time.Millisecond
	return &Client{
		cfg:    cfg,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		cache:   cache.New(ttl, 2*ttl),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (c *Client) remoteEnabled() bool {
	return c.cfg.Enabled && c.apiKey != ""
}

// PredictDelay forecasts how late the user will be collecting, clamped to
// [0,30] minutes.
func (c *Client) PredictDelay(ctx context.Context, history []int, durationMinutes int) Prediction {
	key := fmt.Sprintf("delay_%s_%d", joinInts(history), durationMinutes)
	if cached, found := c.cache.Get(key); found {
		return cached.(Prediction)
	}

	if c.remoteEnabled() {
		pred, err := c.predictRemote(ctx, history, durationMinutes)
		if err == nil {
			c.cache.Set(key, pred, cache.DefaultExpiration)
			return pred
		}
		log.Printf("delay prediction fell back to heuristic: %v", err)
	}
	return fallbackPrediction(history, durationMinutes)
}

// ChatReply answers a laundry question given the machine snapshot.
func (c *Client) ChatReply(ctx context.Context, question string, machines []laundry.Machine) string {
	key := fmt.Sprintf("chat_%s_%s",
		strings.ReplaceAll(strings.ToLower(question), " ", "_"), statusHash(machines))
	if cached, found := c.cache.Get(key); found {
		return cached.(string)
	}

	if c.remoteEnabled() {
		reply, err := c.chatRemote(ctx, question, machines)
		if err == nil {
			c.cache.Set(key, reply, cache.DefaultExpiration)
			return reply
		}
		log.Printf("chat reply fell back to canned response: %v", err)
	}
	return fallbackChatReply(question, machines)
}

type predictionPayload struct {
	PredictedDelayMinutes float64 `json:"predicted_delay_minutes"`
	ReminderMessage       string  `json:"reminder_message"`
}

func (c *Client) predictRemote(ctx context.Context, history []int, durationMinutes int) (Prediction, error) {
	prompt := fmt.Sprintf(`You are AuraBot, an AI assistant for a residence laundry system.

Student's delay history (minutes after cycle finished): [%s]
Current cycle duration: %d minutes

TASK: Predict the collection delay and write a short friendly reminder
(under 25 words).

Return ONLY valid JSON: {"predicted_delay_minutes": number, "reminder_message": string}`,
		joinInts(history), durationMinutes)

	text, err := c.generate(ctx, prompt, "", true)
	if err != nil {
		return Prediction{}, err
	}

	var payload predictionPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Prediction{}, fmt.Errorf("malformed prediction response: %w", err)
	}
	delay := int(payload.PredictedDelayMinutes + 0.5)
	if delay < 0 {
		delay = 0
	}
	if delay > 30 {
		delay = 30
	}
	message := payload.ReminderMessage
	if message == "" {
		message = fmt.Sprintf("Your %d min cycle is running!", durationMinutes)
	}
	return Prediction{DelayMinutes: delay, Message: message}, nil
}

func (c *Client) chatRemote(ctx context.Context, question string, machines []laundry.Machine) (string, error) {
	var summary []string
	for _, m := range machines {
		summary = append(summary, fmt.Sprintf("%s %d: %s", m.Type, m.ID, m.Status))
	}
	system := fmt.Sprintf(`You are AuraBot, the assistant for a residence laundry system.

CURRENT MACHINE STATUS: %s

Be friendly and concise (under 50 words). ONLY answer laundry-related
questions; politely redirect anything else.`, strings.Join(summary, ", "))

	return c.generate(ctx, question, system, false)
}

// --- Gemini transport ---

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate performs one generateContent call. The rate limiter enforces the
// minimum inter-request interval; the wait is bounded by the client timeout
// carried in ctx.
func (c *Client) generate(ctx context.Context, prompt, system string, wantJSON bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.client.Timeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 150,
		},
	}
	if wantJSON {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
	}
	if system != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("api response contained no candidates")
	}
	return strings.TrimSpace(genResp.Candidates[0].Content.Parts[0].Text), nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}

func statusHash(machines []laundry.Machine) string {
	var b strings.Builder
	for _, m := range machines {
		fmt.Fprintf(&b, "%s%d%s", m.Type, m.ID, m.Status)
	}
	return b.String()
}
