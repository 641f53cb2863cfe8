package services

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

	"go.uber.org/zap"
)

const (
	chatTemperature = 0.5
	chatMaxTokens   = 400
	chatAttempts    = 3
	chatRetryDelay  = 1200 * time.Millisecond
)

var ErrChatUnavailable = errors.New("ассистент временно недоступен, попробуйте позже")

// ChatService answers free-form follow-up questions through the Mistral
// chat-completions API.
type ChatService struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewChatService(apiKey, baseURL, model string, log *zap.Logger) *ChatService {
	return &ChatService{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Enabled reports whether an API key is configured.
func (s *ChatService) Enabled() bool {
	return s.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Ask sends one prompt and returns the model's reply.
func (s *ChatService) Ask(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat api status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat api returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// SafeAsk retries transient failures a few times before giving up with a
// user-presentable error.
func (s *ChatService) SafeAsk(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= chatAttempts; attempt++ {
		answer, err := s.Ask(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		s.log.Warn("chat request failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < chatAttempts {
			select {
			case <-time.After(chatRetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	s.log.Error("chat unavailable after retries", zap.Error(lastErr))
	return "", ErrChatUnavailable
}
