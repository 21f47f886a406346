package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 60 * time.Second
)

// ErrMissingAPIKey is returned when the client is constructed without a
// key. Callers map it to the same generic failure as any other upstream
// error; the distinction only matters for logs.
var ErrMissingAPIKey = errors.New("analyzer API key is not configured")

// Client calls the Gemini generateContent API to extract income figures
// from uploaded documents and reason about eligibility.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates an analyzer client. baseURL and model fall back to
// production defaults when empty; tests point baseURL at a stub server.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// File is one uploaded document, already base64-encoded by the frontend.
type File struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
	Name     string `json:"name,omitempty"`
}

// Extraction is the structured verdict the model must return.
type Extraction struct {
	IsEligible   bool     `json:"isEligible"`
	AnnualIncome *float64 `json:"annualIncome"`
	Reasoning    string   `json:"reasoning"`
	DocumentType string   `json:"documentType"`
}

// Request carries the documents plus the locally computed thresholds the
// model reasons against.
type Request struct {
	Files            []File
	HouseholdSize    int
	PovertyLevel     float64
	PovertyThreshold float64
}

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *inlineDataPart `json:"inline_data,omitempty"`
}

type inlineDataPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"response_mime_type"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze sends the documents to the model and decodes its structured
// verdict. Every failure mode (missing key, transport, non-2xx,
// unparseable output) comes back as an error; nothing from the upstream
// response leaks past the caller's logging.
func (c *Client) Analyze(ctx context.Context, req Request) (*Extraction, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	parts := make([]generatePart, 0, len(req.Files)+1)
	parts = append(parts, generatePart{Text: buildInstruction(req)})
	for _, f := range req.Files {
		parts = append(parts, generatePart{
			InlineData: &inlineDataPart{MimeType: f.MimeType, Data: f.Data},
		})
	}

	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:      0.1,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analyze response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("analyze API error (status %d): %s", resp.StatusCode, respBody)
	}

	var gen generateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analyze response: %w", err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("analyze response contained no candidates")
	}

	text := stripCodeFence(gen.Candidates[0].Content.Parts[0].Text)

	var extraction Extraction
	if err := json.Unmarshal([]byte(text), &extraction); err != nil {
		return nil, fmt.Errorf("model returned unparseable JSON: %w", err)
	}
	if extraction.Reasoning == "" || extraction.DocumentType == "" {
		return nil, fmt.Errorf("model response missing required fields")
	}

	return &extraction, nil
}

func buildInstruction(req Request) string {
	var b strings.Builder
	b.WriteString("You are an income verification assistant. Review the attached income documents ")
	b.WriteString("(pay stubs, tax forms, or benefit letters) and determine the applicant's total annual household income. ")
	fmt.Fprintf(&b, "The household has %d member(s). ", req.HouseholdSize)
	fmt.Fprintf(&b, "The Federal Poverty Level for this household is $%.0f per year, ", req.PovertyLevel)
	fmt.Fprintf(&b, "and the eligibility threshold is 200%% of that: $%.0f per year. ", req.PovertyThreshold)
	b.WriteString("The applicant is eligible if their annual income is at or below the threshold. ")
	b.WriteString("If multiple documents are provided, cross-check them for consistency. ")
	b.WriteString(`Respond with only a JSON object of this exact shape: {"isEligible": boolean, "annualIncome": number or null if it cannot be determined, "reasoning": string, "documentType": string}.`)
	return b.String()
}

// stripCodeFence removes a surrounding markdown fence. Models sometimes
// wrap JSON output in one even when asked not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
