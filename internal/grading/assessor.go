package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultAPIVersion = "2024-02-15-preview"

	SystemPrompt = `You are an interview assessor. Score the candidate's answer from 0-100 and give 1–2 sentences of constructive feedback. Respond **only** in JSON: {"score":<int>,"feedback":"<string>"}`
)

// ErrInvalidResponse is returned when the model reply is not JSON.
var ErrInvalidResponse = errors.New("invalid grader response")

// Assessor asks a chat model for a verdict and returns its raw JSON reply.
type Assessor interface {
	Assess(ctx context.Context, answer string) (json.RawMessage, error)
}

type AzureConfig struct {
	Endpoint   string
	Deployment string
	APIKey     string
	APIVersion string
	// BaseURL replaces the Azure URL layout, for OpenAI-compatible servers.
	BaseURL string
}

// OpenAIAssessor grades through an Azure OpenAI chat deployment.
type OpenAIAssessor struct {
	client     *openai.Client
	deployment string
}

func NewOpenAIAssessor(cfg AzureConfig) *OpenAIAssessor {
	var oc openai.ClientConfig
	if cfg.BaseURL != "" {
		oc = openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = cfg.BaseURL
	} else {
		oc = openai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.Endpoint, "/"))
		if cfg.APIVersion != "" {
			oc.APIVersion = cfg.APIVersion
		} else {
			oc.APIVersion = DefaultAPIVersion
		}
		deployment := cfg.Deployment
		oc.AzureModelMapperFunc = func(string) string { return deployment }
	}
	return &OpenAIAssessor{client: openai.NewClientWithConfig(oc), deployment: cfg.Deployment}
}

// Assess returns ErrInvalidResponse (wrapped) when the reply is not JSON;
// any other error means the upstream call failed.
func (a *OpenAIAssessor) Assess(ctx context.Context, answer string) (json.RawMessage, error) {
	req := openai.ChatCompletionRequest{
		Model: a.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: answer},
		},
	}
	// reasoning deployments only accept the default temperature
	if !isReasoningModel(a.deployment) {
		req.Temperature = 0.2
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("Grading: chat completion failed after %v: %v", time.Since(start), err)
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	content := "{}"
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		content = resp.Choices[0].Message.Content
	}
	log.Printf("Grading: assessed answer in %v", time.Since(start))
	return ParseVerdict(content)
}

func isReasoningModel(deployment string) bool {
	name := strings.ToLower(deployment)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// ParseVerdict validates the model reply.
func ParseVerdict(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResponse, content)
	}
	return json.RawMessage(content), nil
}
