package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"google.golang.org/genai"

	"github.com/reelforge/reelforge/internal/models"
)

// ---------------------------------------------------------------------------
// Gemini Scene Planner
// Alternate scene-plan provider using the Google Gen AI SDK. Selected via
// PLANNER_PROVIDER=gemini; the response contract matches the OpenAI planner.
// ---------------------------------------------------------------------------

const geminiPlannerModel = "gemini-2.5-flash"

type GeminiService struct {
	client  *genai.Client
	model   string
	initErr error
}

// Ensure GeminiService implements ScenePlanner at compile time.
var _ ScenePlanner = (*GeminiService)(nil)

// NewGeminiService builds the genai client once; it is safe for concurrent
// use across plan requests. A construction failure is surfaced on the first
// GeneratePlan call so startup wiring stays infallible.
func NewGeminiService(apiKey string) *GeminiService {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	return &GeminiService{
		client:  client,
		model:   geminiPlannerModel,
		initErr: err,
	}
}

// GeneratePlan asks Gemini for a scene selection over the movie's subtitles.
// The JSON response MIME type makes the model emit the ClipPlan shape directly.
func (s *GeminiService) GeneratePlan(ctx context.Context, movieTitle, subtitleText string, numScenes int) (*models.ClipPlan, error) {
	if s.initErr != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", s.initErr)
	}

	userPrompt := fmt.Sprintf(
		"Movie: %s\nSelect exactly %d scenes.\n\nSubtitles (timestamps in seconds):\n%s",
		movieTitle, numScenes, subtitleText,
	)

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(plannerSystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	rawContent := resp.Text()
	if rawContent == "" {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var plan models.ClipPlan
	if err := json.Unmarshal([]byte(rawContent), &plan); err != nil {
		log.Printf("[Gemini plan] parse failed: %v", err)
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	plan.Title = movieTitle
	plan.Normalize()

	log.Printf("[Gemini plan] %d scenes planned for %q (requested %d)", len(plan.Scenes), movieTitle, numScenes)
	return &plan, nil
}
