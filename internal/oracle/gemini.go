package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// allowedSeparators constrains detect_separator answers.
var allowedSeparators = map[string]bool{
	",": true, ";": true, "\t": true, "|": true, ":": true, " ": true,
}

// GeminiClient implements Classifier against the Gemini generateContent
// API. Models are tried in order; a model that errors is logged and the
// next one is attempted. Classification is best-effort: callers apply
// their own fallback when every model fails.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	models      []string
	httpClient  *http.Client
	logger      zerolog.Logger
	RetryConfig RetryConfig
}

// NewGeminiClient creates a client trying the given models in order.
func NewGeminiClient(apiKey string, models []string, logger zerolog.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: defaultGeminiBaseURL,
		models:  models,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:      logger,
		RetryConfig: DefaultRetryConfig,
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *GeminiClient) WithBaseURL(url string) *GeminiClient {
	c.baseURL = url
	return c
}

// Classify answers a classification request by walking the model
// fallback list.
func (c *GeminiClient) Classify(ctx context.Context, req Request) (*Response, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, m := range c.models {
		resp, err := WithRetry(ctx, c.RetryConfig, func(ctx context.Context) (*Response, error) {
			return c.classifyWithModel(ctx, m, req.Kind, prompt)
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Warn().
			Str("model", m).
			Str("kind", string(req.Kind)).
			Err(err).
			Msg("model attempt failed, trying next")
	}

	return nil, &ClassifyError{
		Code:    ErrAllModelsFailed,
		Message: fmt.Sprintf("all %d models failed for %s", len(c.models), req.Kind),
		Cause:   lastErr,
	}
}

func buildPrompt(req Request) (string, error) {
	switch req.Kind {
	case KindDetectSeparator:
		if len(req.Lines) == 0 {
			return "", &ClassifyError{Code: ErrBadResponse, Message: "detect_separator requires sample lines"}
		}
		return separatorPrompt(req.Lines), nil
	case KindMapFields:
		if req.Header == "" {
			return "", &ClassifyError{Code: ErrBadResponse, Message: "map_fields requires a header row"}
		}
		return mappingPrompt(req.Header, req.SampleRow), nil
	case KindCategorizeBatch:
		if len(req.Rows) == 0 {
			return "", &ClassifyError{Code: ErrBadResponse, Message: "categorize_batch requires rows"}
		}
		return categorizePrompt(req.Rows), nil
	default:
		return "", &ClassifyError{Code: ErrBadResponse, Message: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

func (c *GeminiClient) classifyWithModel(ctx context.Context, model string, kind Kind, prompt string) (*Response, error) {
	text, err := c.generate(ctx, model, prompt)
	if err != nil {
		return nil, err
	}
	return decodeResponse(kind, text, model)
}

func decodeResponse(kind Kind, text, model string) (*Response, error) {
	badResponse := func(err error) *ClassifyError {
		return &ClassifyError{
			Code:    ErrBadResponse,
			Message: "model output did not match the response schema",
			Model:   model,
			Cause:   err,
		}
	}

	switch kind {
	case KindDetectSeparator:
		var result SeparatorResult
		if err := extractJSON(text, &result); err != nil {
			return nil, badResponse(err)
		}
		if result.Separator == "\\t" {
			result.Separator = "\t"
		}
		if !allowedSeparators[result.Separator] {
			return nil, badResponse(fmt.Errorf("separator %q not in the allowed set", result.Separator))
		}
		return &Response{Separator: &result}, nil

	case KindMapFields:
		var result FieldMapping
		if err := extractJSON(text, &result); err != nil {
			return nil, badResponse(err)
		}
		if result.Date.SourceField == "" || result.Description.SourceField == "" {
			return nil, badResponse(fmt.Errorf("mapping is missing date or description source field"))
		}
		return &Response{Mapping: &result}, nil

	case KindCategorizeBatch:
		var result CategorizedBatch
		if err := extractJSON(text, &result); err != nil {
			return nil, badResponse(err)
		}
		if len(result.Items) == 0 {
			return nil, badResponse(fmt.Errorf("empty transactions array"))
		}
		return &Response{Batch: &result}, nil
	}

	return nil, badResponse(fmt.Errorf("unknown kind %q", kind))
}

// generate performs one generateContent call. The HTTP client timeout
// is the only timeout in the pipeline.
func (c *GeminiClient) generate(ctx context.Context, model, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.1,
			"maxOutputTokens": 8192,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ClassifyError{
			Code:      ErrUnavailable,
			Message:   "generateContent request failed",
			Model:     model,
			Retryable: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyHTTPError(model, resp.StatusCode, string(body))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", &ClassifyError{
			Code:    ErrBadResponse,
			Message: "no candidates in response",
			Model:   model,
		}
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

func classifyHTTPError(model string, statusCode int, body string) *ClassifyError {
	if statusCode == http.StatusTooManyRequests {
		return &ClassifyError{
			Code:      ErrRateLimited,
			Message:   "rate limited",
			Model:     model,
			Retryable: true,
		}
	}
	return &ClassifyError{
		Code:      ErrUnavailable,
		Message:   fmt.Sprintf("HTTP %d: %s", statusCode, body),
		Model:     model,
		Retryable: statusCode >= 500,
	}
}

// extractJSON extracts the first balanced JSON object from a text
// response, tolerating prose or markdown fences around it.
func extractJSON(text string, v interface{}) error {
	start := -1
	end := -1
	braceCount := 0

	for i, ch := range text {
		if ch == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if ch == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				end = i + 1
				break
			}
		}
	}

	if start == -1 || end == -1 {
		return fmt.Errorf("no JSON object found in response")
	}
	return json.Unmarshal([]byte(text[start:end]), v)
}
