package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Uses the ElevenLabs REST API to convert narration text into speech audio.
// Voice and model are a configured pair, not per-request choices.
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
	elevenLabsDefaultVoice = "JBFqnCBsd6RMkjVDRZzb"
	elevenLabsOutputFormat = "mp3_44100_128" // High-quality MP3
)

// ElevenLabsService handles text-to-speech via the ElevenLabs API.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	modelID string
	client  *http.Client
}

// Ensure ElevenLabsService implements TTSService at compile time.
var _ TTSService = (*ElevenLabsService)(nil)

// NewElevenLabsService creates an ElevenLabs TTS service. Empty voiceID or
// modelID fall back to the service defaults.
func NewElevenLabsService(apiKey, voiceID, modelID string) *ElevenLabsService {
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}
	if modelID == "" {
		modelID = elevenLabsDefaultModel
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Request types
// ---------------------------------------------------------------------------

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// GenerateSpeech converts narration text to speech using ElevenLabs.
// Implements the TTSService interface.
func (s *ElevenLabsService) GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error) {
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.60, // Moderate stability — allows some emotional range
			SimilarityBoost: 0.80, // High voice consistency
			Style:           0.35, // Mild style exaggeration for natural delivery
			UseSpeakerBoost: true,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	// POST /v1/text-to-speech/{voice_id}?output_format=mp3_44100_128
	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		elevenLabsBaseURL, s.voiceID, elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Generating speech (voiceID=%s, model=%s, textLen=%d)",
		s.voiceID, s.modelID, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, string(body))
	}

	// The response body IS the audio file
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ElevenLabs audio response: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}

	log.Printf("[ElevenLabs] Speech generated (%d bytes)", len(audioData))

	return &TTSResponse{
		AudioData: audioData,
		Format:    "mp3",
	}, nil
}
