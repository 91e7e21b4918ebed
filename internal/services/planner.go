package services

import (
	"context"

	"github.com/reelforge/reelforge/internal/models"
)

// ScenePlanner is the scene-plan source: given a movie's subtitles, it
// returns an ordered scene selection with narration text per scene.
// Both the OpenAI and Gemini providers implement it; the worker uses
// whichever is configured without knowing the underlying provider.
type ScenePlanner interface {
	GeneratePlan(ctx context.Context, movieTitle, subtitleText string, numScenes int) (*models.ClipPlan, error)
}

// plannerSystemPrompt is shared by both providers: the response contract is
// identical, only the transport differs.
const plannerSystemPrompt = `You are a film editor selecting scenes for a short-form recap video.

You receive a movie's subtitles with timestamps already converted to seconds, in the form "START --> END" followed by dialogue lines.

Select the requested number of scenes that together tell the movie's story in chronological order. For each scene write one or two sentences of recap narration in an engaging, spoiler-friendly documentary voice.

Respond with JSON only, in this exact shape:
{"scenes":[{"index":0,"source_start":123,"source_end":151,"narration":"..."}]}

Rules:
- source_start and source_end are seconds into the movie; source_end must be greater than source_start.
- Scenes must be in chronological order and must not overlap.
- Each scene's source range should be 10-60 seconds long.
- index starts at 0 and increases by 1 per scene.
- narration must never be empty.`
