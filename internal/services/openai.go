package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"
	"github.com/reelforge/reelforge/internal/models"
)

type OpenAIService struct {
	client *openai.Client
}

// Ensure OpenAIService implements ScenePlanner at compile time.
var _ ScenePlanner = (*OpenAIService)(nil)

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
	}
}

// GeneratePlan asks OpenAI for a scene selection over the movie's subtitles,
// using JSON mode so the response parses into a ClipPlan directly.
func (s *OpenAIService) GeneratePlan(ctx context.Context, movieTitle, subtitleText string, numScenes int) (*models.ClipPlan, error) {
	userPrompt := fmt.Sprintf(
		"Movie: %s\nSelect exactly %d scenes.\n\nSubtitles (timestamps in seconds):\n%s",
		movieTitle, numScenes, subtitleText,
	)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: "gpt-5-mini", // gpt-5-mini best for reasoning and cost efficiency
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: plannerSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 1.0,
	})

	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content
	const maxLogLen = 2000

	var plan models.ClipPlan
	if err := json.Unmarshal([]byte(rawContent), &plan); err != nil {
		log.Printf("[OpenAI plan] parse failed: %v", err)
		if len(rawContent) > maxLogLen {
			log.Printf("[OpenAI plan] raw response (truncated): %s...", rawContent[:maxLogLen])
		} else {
			log.Printf("[OpenAI plan] raw response: %s", rawContent)
		}
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	plan.Title = movieTitle
	plan.Normalize()

	log.Printf("[OpenAI plan] %d scenes planned for %q (requested %d)", len(plan.Scenes), movieTitle, numScenes)
	return &plan, nil
}
