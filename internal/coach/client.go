package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
)

// CompletionClient talks to an OpenAI compatible chat completions
// endpoint (Groq in production).
type CompletionClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewCompletionClient(baseURL, apiKey, model string, httpClient *http.Client) *CompletionClient {
	return &CompletionClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Messages    []chatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt as a single user message and returns the
// model's text response.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coach.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	reqBody, err := json.Marshal(chatCompletionRequest{
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Model:       c.model,
		Temperature: 0.7,
		MaxTokens:   1024,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response bytes: %w", err)
	}

	var completionResp chatCompletionResponse
	if err := json.Unmarshal(respBytes, &completionResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal completion response bytes: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if completionResp.Error != nil {
			return "", fmt.Errorf("completion api error: %s", completionResp.Error.Message)
		}
		return "", fmt.Errorf("completion api responded with status: %d", resp.StatusCode)
	}
	if len(completionResp.Choices) == 0 {
		return "", fmt.Errorf("completion api returned no choices")
	}

	content := completionResp.Choices[0].Message.Content
	log.Tracef("completion api returned %d chars", len(content))
	return content, nil
}
