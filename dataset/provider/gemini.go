package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1/"
	DefaultTimeout       = 120 * time.Second
)

// Response is an unparsed HTTP response from the annotation endpoint.
type Response struct {
	StatusCode int
	Body       []byte
}

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// HTTPClient overrides the transport (tests, proxies).
	HTTPClient *http.Client
}

// GeminiClient issues generateContent calls. The openai-go client is used purely as the
// HTTP layer (base URL, query auth, timeouts); request and response bodies are Gemini's.
type GeminiClient struct {
	client *openai.Client
}

func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("NewGeminiClient: api key is empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithQuery("key", cfg.APIKey),
		option.WithHeaderDel("authorization"),
		// NewClient picks these up from OPENAI_ORG_ID / OPENAI_PROJECT_ID.
		option.WithHeaderDel("openai-organization"),
		option.WithHeaderDel("openai-project"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)
	return &GeminiClient{client: &client}, nil
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// RequestTimeline sends one annotation request for watchURL to model. Any HTTP status is
// returned as a Response; an error means no response was received at all.
func (c *GeminiClient) RequestTimeline(ctx context.Context, watchURL, model string) (Response, error) {
	if c == nil || c.client == nil {
		return Response{}, errors.New("GeminiClient: client is nil")
	}
	if model == "" {
		return Response{}, errors.New("GeminiClient: model is empty")
	}

	req := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: BuildTimelinePrompt(watchURL)}},
		}},
	}

	var raw *http.Response
	var body []byte
	err := c.client.Post(ctx, "models/"+model+":generateContent", req, &body, option.WithResponseInto(&raw))
	if err != nil {
		if raw != nil && raw.StatusCode != 0 && ctx.Err() == nil {
			return Response{StatusCode: raw.StatusCode, Body: readErrorBody(raw, err)}, nil
		}
		return Response{}, fmt.Errorf("generateContent %s: %w", model, err)
	}

	status := http.StatusOK
	if raw != nil {
		status = raw.StatusCode
	}
	return Response{StatusCode: status, Body: body}, nil
}

// readErrorBody recovers the body of a non-2xx response; the SDK re-populates it after
// building its error value.
func readErrorBody(res *http.Response, err error) []byte {
	if res.Body != nil {
		if b, rerr := io.ReadAll(res.Body); rerr == nil && len(b) > 0 {
			return b
		}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return []byte(apiErr.Error())
	}
	return nil
}
