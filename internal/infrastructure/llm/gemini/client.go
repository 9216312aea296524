package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"medvault/internal/core/domain"
	"medvault/internal/infrastructure/resilience"
)

// Client talks to the external Gemini-style generateContent endpoint that
// provides both document classification and narrative synthesis. One request
// carries an instruction text part plus the ordered payload parts.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient httpDoer
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	// RequestsPerMinute throttles outbound calls; zero disables throttling.
	RequestsPerMinute int
	Timeout           time.Duration
	Executor          *resilience.Executor
}

func New(baseURL, model, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if options.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(options.RequestsPerMinute)/60.0), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout),
		limiter:    limiter,
		executor:   options.Executor,
	}
}

// Classifier issues one combined classification request per batch.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

type classificationRecord struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Summary     string `json:"summary"`
	Duplicate   bool   `json:"duplicate"`
	DuplicateOf *int   `json:"duplicate_of"`
}

func (c *Classifier) ClassifyBatch(ctx context.Context, payloads []domain.Payload) ([]domain.Classification, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	parts := make([]part, 0, len(payloads)+1)
	parts = append(parts, part{Text: classificationInstruction(len(payloads))})
	for _, p := range payloads {
		parts = append(parts, payloadPart(p))
	}

	raw, err := c.client.generateJSON(ctx, "classify", parts)
	if err != nil {
		return nil, err
	}

	var records []classificationRecord
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &records); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}
	if len(records) != len(payloads) {
		return nil, fmt.Errorf("classification response has %d entries for %d payloads", len(records), len(payloads))
	}

	out := make([]domain.Classification, len(records))
	for i, rec := range records {
		category, ok := domain.ParseCategory(rec.Category)
		if !ok {
			return nil, fmt.Errorf("classification entry %d: unknown category %q", i, rec.Category)
		}
		date := strings.TrimSpace(rec.Date)
		if date != "" {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return nil, fmt.Errorf("classification entry %d: malformed date %q", i, rec.Date)
			}
		}
		out[i] = domain.Classification{
			Date:        date,
			Category:    category,
			Summary:     strings.TrimSpace(rec.Summary),
			Duplicate:   rec.Duplicate,
			DuplicateOf: rec.DuplicateOf,
		}
	}
	return out, nil
}

// Synthesizer turns the serialized timeline into the three-part narrative.
type Synthesizer struct {
	client *Client
}

func NewSynthesizer(client *Client) *Synthesizer {
	return &Synthesizer{client: client}
}

type synthesisResponse struct {
	History   string `json:"history"`
	Summary   string `json:"summary"`
	Prognosis string `json:"prognosis"`
}

func (s *Synthesizer) Synthesize(ctx context.Context, timeline string) (domain.Report, error) {
	parts := []part{{Text: synthesisInstruction(timeline)}}

	raw, err := s.client.generateJSON(ctx, "synthesize", parts)
	if err != nil {
		return domain.Report{}, err
	}

	var resp synthesisResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &resp); err != nil {
		return domain.Report{}, fmt.Errorf("parse synthesis response: %w", err)
	}
	if resp.History == "" && resp.Summary == "" && resp.Prognosis == "" {
		return domain.Report{}, fmt.Errorf("synthesis response carries no narrative fields")
	}

	return domain.Report{
		History:      resp.History,
		Synthesis:    resp.Summary,
		Observations: resp.Prognosis,
	}, nil
}

func (c *Client) generateJSON(ctx context.Context, operation string, parts []part) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var raw string
	call := func(callCtx context.Context) error {
		text, err := c.postGenerate(callCtx, operation, parts)
		if err != nil {
			return err
		}
		raw = text
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini."+operation, call, classifyServiceError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapPermissionIfNeeded(operation, err)
	}
	return strings.TrimSpace(raw), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
