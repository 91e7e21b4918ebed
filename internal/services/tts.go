package services

import "context"

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers
// The pipeline only ever sees raw audio bytes; durations are measured from
// the decoded asset by the caller, never trusted from a provider response.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData []byte
	Format    string // "mp3", "wav", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// GenerateSpeech converts text to audio using the provider's configured
	// voice and model.
	GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error)
}
