package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Planner (scene-plan source)
	PlannerProvider string // "openai" or "gemini"
	OpenAIKey       string
	GeminiKey       string
	MinScenesPerRun int // lower bound of the random scene-count target per movie
	MaxScenesPerRun int // upper bound of the random scene-count target per movie

	// ElevenLabs (speech synthesis)
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	// Filesystem surface
	MoviesDir    string // discovery directory for source movies
	SubtitlesDir string // per-movie .srt files feeding the planner
	MusicDir     string // background-music candidate pool
	OutputDir    string // horizontal (16:9) renders — the primary output
	VerticalDir  string // vertical (9:16) renders
	RetiredDir   string // consumed source movies
	WorkDir      string // per-job private working areas, purged on completion

	// Timeline synthesis
	LeadInSec        float64 // silence before each narration so it never clips at a cut
	LeadOutSec       float64 // silence after each narration
	MinPlaybackRate  float64
	MaxPlaybackRate  float64
	MinScenes        int     // fewer surviving scenes than this fails assembly
	ClipToleranceSec float64 // allowed drift between target and extracted clip duration

	// Target encode parameters — clips conforming to these are stream-copied
	// at assembly; any mismatch triggers the uniform re-encode fallback.
	TargetWidth  int
	TargetHeight int
	TargetFPS    int

	// Audio mix
	MusicMinSec   float64 // candidate tracks shorter than this are never selected
	MusicGain     float64 // ducking gain applied to the music bed
	MusicStartSec float64 // offset into the chosen track, skips song intros

	// Media tools
	FFmpegPath  string
	FFprobePath string

	// Worker
	MaxConcurrentJobs int
	SceneConcurrency  int // bounded parallelism for per-scene TTS and extraction
	TTSMaxRetries     int
	TTSTimeoutSec     int // per-attempt timeout on the synthesis call
	ToolTimeoutSec    int // timeout on a single media-tool invocation
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),

		PlannerProvider: getEnv("PLANNER_PROVIDER", "openai"),
		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		GeminiKey:       getEnv("GEMINI_API_KEY", ""),
		MinScenesPerRun: getEnvInt("MIN_SCENES_PER_RUN", 20),
		MaxScenesPerRun: getEnvInt("MAX_SCENES_PER_RUN", 30),

		ElevenLabsKey:     getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", "JBFqnCBsd6RMkjVDRZzb"),
		ElevenLabsModelID: getEnv("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),

		MoviesDir:    getEnv("MOVIES_DIR", "movies"),
		SubtitlesDir: getEnv("SUBTITLES_DIR", "subtitles"),
		MusicDir:     getEnv("MUSIC_DIR", "backgroundmusic"),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),
		VerticalDir:  getEnv("OUTPUT_VERTICAL_DIR", "output_vertical"),
		RetiredDir:   getEnv("RETIRED_DIR", "movies_retired"),
		WorkDir:      getEnv("WORK_DIR", "work"),

		LeadInSec:        getEnvFloat("LEAD_IN_SEC", 0.5),
		LeadOutSec:       getEnvFloat("LEAD_OUT_SEC", 0.5),
		MinPlaybackRate:  getEnvFloat("MIN_PLAYBACK_RATE", 0.5),
		MaxPlaybackRate:  getEnvFloat("MAX_PLAYBACK_RATE", 1.75),
		MinScenes:        getEnvInt("MIN_SCENES", 5),
		ClipToleranceSec: getEnvFloat("CLIP_TOLERANCE_SEC", 0.25),

		TargetWidth:  getEnvInt("TARGET_WIDTH", 1920),
		TargetHeight: getEnvInt("TARGET_HEIGHT", 1080),
		TargetFPS:    getEnvInt("TARGET_FPS", 30),

		MusicMinSec:   getEnvFloat("MUSIC_MIN_SEC", 60),
		MusicGain:     getEnvFloat("MUSIC_GAIN", 0.12),
		MusicStartSec: getEnvFloat("MUSIC_START_SEC", 40),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 2),
		SceneConcurrency:  getEnvInt("SCENE_CONCURRENCY", 4),
		TTSMaxRetries:     getEnvInt("TTS_MAX_RETRIES", 3),
		TTSTimeoutSec:     getEnvInt("TTS_TIMEOUT_SEC", 90),
		ToolTimeoutSec:    getEnvInt("TOOL_TIMEOUT_SEC", 600),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ElevenLabsKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	switch cfg.PlannerProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when PLANNER_PROVIDER=openai")
		}
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when PLANNER_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("PLANNER_PROVIDER must be \"openai\" or \"gemini\", got %q", cfg.PlannerProvider)
	}

	if cfg.MinPlaybackRate <= 0 || cfg.MaxPlaybackRate < cfg.MinPlaybackRate {
		return nil, fmt.Errorf("playback rate bounds invalid: min=%.2f max=%.2f", cfg.MinPlaybackRate, cfg.MaxPlaybackRate)
	}

	if cfg.MinScenesPerRun <= 0 || cfg.MaxScenesPerRun < cfg.MinScenesPerRun {
		return nil, fmt.Errorf("scene count band invalid: min=%d max=%d", cfg.MinScenesPerRun, cfg.MaxScenesPerRun)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
