package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("classifier not configured")

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Gemini classifies through the Generative Language REST API
type Gemini struct {
	http    *resty.Client
	apiKey  string
	model   string
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewGemini creates a client. Outbound calls are throttled to perSecond.
func NewGemini(baseURL, apiKey, model string, perSecond float64, logger *zap.SugaredLogger) *Gemini {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json")

	return &Gemini{
		http:    client,
		apiKey:  apiKey,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  logger,
	}
}

// Classify asks the model for {department, confidence, reasoning}
func (g *Gemini) Classify(ctx context.Context, text string) (*Result, error) {
	if g.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("classifier throttle: %w", err)
	}

	req := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(text)}}}},
		GenerationConfig: map[string]any{"temperature": 0.1, "responseMimeType": "application/json"},
	}

	var out geminiResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/v1beta/models/" + g.model + ":generateContent")
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("classifier error: %s", msg)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("classifier returned no candidates")
	}

	result, err := parseResult(out.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	g.logger.Debugw("Classifier result", "department", result.Department, "confidence", result.Confidence)
	return result, nil
}

func buildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You route civic complaints to a city department.\n")
	b.WriteString("Pick exactly one department from this list, using the keywords as hints:\n")

	for _, dept := range models.DepartmentTypes {
		kws := append([]string(nil), Keywords[dept]...)
		sort.Strings(kws)
		fmt.Fprintf(&b, "- %s: %s\n", dept, strings.Join(kws, ", "))
	}
	b.WriteString("\nReply with JSON only: {\"department\": string, \"confidence\": number between 0 and 1, \"reasoning\": string}\n\n")
	b.WriteString("Complaint:\n")
	b.WriteString(text)
	return b.String()
}

// parseResult extracts the JSON object from a model reply that may be
// wrapped in markdown fences or prose
func parseResult(reply string) (*Result, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("classifier reply has no JSON object")
	}
	var r Result
	if err := json.Unmarshal([]byte(reply[start:end+1]), &r); err != nil {
		return nil, fmt.Errorf("decode classifier reply: %w", err)
	}
	if r.Department == "" {
		return nil, fmt.Errorf("classifier reply has no department")
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	return &r, nil
}
